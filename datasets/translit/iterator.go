package translit

import "math/rand"

// Batch is a padded, batch-first pair of ID matrices.
type Batch struct {
	Src, Tgt [][]int

	Examples []Example
}

func (b Batch) Len() int {
	return len(b.Src)
}

// Iterator cuts a split into batches, optionally reshuffled every epoch.
type Iterator struct {
	examples  []Example
	src, tgt  *Field
	batchSize int
	shuffle   bool
	rng       *rand.Rand
}

// NewIterator creates an iterator over examples.
func NewIterator(examples []Example, src, tgt *Field, batchSize int, shuffle bool, seed int64) *Iterator {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Iterator{
		examples:  examples,
		src:       src,
		tgt:       tgt,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (it *Iterator) Len() int {
	return len(it.examples)
}

// Batches returns one epoch worth of batches.
func (it *Iterator) Batches() []Batch {
	var order = make([]int, len(it.examples))
	for i := range order {
		order[i] = i
	}
	if it.shuffle {
		it.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	var out = make([]Batch, 0, (len(order)+it.batchSize-1)/it.batchSize)
	for start := 0; start < len(order); start += it.batchSize {
		end := start + it.batchSize
		if end > len(order) {
			end = len(order)
		}
		var exs = make([]Example, 0, end-start)
		var src, tgt [][]int
		for _, idx := range order[start:end] {
			ex := it.examples[idx]
			exs = append(exs, ex)
			src = append(src, it.src.Encode(ex.Src))
			tgt = append(tgt, it.tgt.Encode(ex.Tgt))
		}
		out = append(out, Batch{
			Src:      it.src.Pad(src),
			Tgt:      it.tgt.Pad(tgt),
			Examples: exs,
		})
	}
	return out
}
