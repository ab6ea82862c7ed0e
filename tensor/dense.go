package tensor

import "gonum.org/v1/gonum/floats"

// Dense is a row-major N-dimensional array of float64.
type Dense struct {
	shape   []int
	strides []int
	data    []float64
}

// New allocates a zeroed tensor of the given shape.
func New(shape ...int) *Dense {
	var t = &Dense{
		shape:   append([]int(nil), shape...),
		strides: make([]int, len(shape)),
	}
	var size = 1
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] < 0 {
			panic("tensor: negative dimension")
		}
		t.strides[i] = size
		size *= shape[i]
	}
	t.data = make([]float64, size)
	return t
}

// ZerosLike allocates a zeroed tensor with the shape of t.
func ZerosLike(t *Dense) *Dense {
	return New(t.shape...)
}

// Shape returns the dimensions. The returned slice must not be modified.
func (t *Dense) Shape() []int {
	return t.shape
}

func (t *Dense) Dim(n int) int {
	return t.shape[n]
}

func (t *Dense) Len() int {
	return len(t.data)
}

// Data exposes the backing storage.
func (t *Dense) Data() []float64 {
	return t.data
}

// Offset returns the flat index of a full or partial index. Missing trailing
// indices are treated as zero.
func (t *Dense) Offset(idx ...int) (o int) {
	if len(idx) > len(t.shape) {
		panic("tensor: too many indices")
	}
	for i, v := range idx {
		if v < 0 || v >= t.shape[i] {
			panic("tensor: index out of range")
		}
		o += v * t.strides[i]
	}
	return
}

func (t *Dense) At(idx ...int) float64 {
	return t.data[t.Offset(idx...)]
}

func (t *Dense) Set(v float64, idx ...int) {
	t.data[t.Offset(idx...)] = v
}

// Add accumulates into one element.
func (t *Dense) Add(v float64, idx ...int) {
	t.data[t.Offset(idx...)] += v
}

// Vec returns the innermost vector at the given prefix as a view. The prefix
// must have exactly len(Shape())-1 indices.
func (t *Dense) Vec(idx ...int) []float64 {
	if len(idx) != len(t.shape)-1 {
		panic("tensor: Vec needs all but the last index")
	}
	var o = t.Offset(idx...)
	return t.data[o : o+t.shape[len(t.shape)-1]]
}

func (t *Dense) Sum() float64 {
	return floats.Sum(t.data)
}

// Zero clears all elements.
func (t *Dense) Zero() {
	for i := range t.data {
		t.data[i] = 0
	}
}
