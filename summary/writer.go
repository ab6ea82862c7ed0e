package summary

import (
	"os"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
)

// FileName is the summary file name inside an experiment directory.
const FileName = "scalars.arrow"

// Schema is the layout of every record batch in a summary file.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "tag", Type: arrow.BinaryTypes.String},
	{Name: "step", Type: arrow.PrimitiveTypes.Int64},
	{Name: "value", Type: arrow.PrimitiveTypes.Float64},
	{Name: "wall_time", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// Scalar is one logged value.
type Scalar struct {
	Tag      string
	Step     int64
	Value    float64
	WallTime time.Time
}

// Writer buffers scalars and appends them to the file as record batches.
// It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	ipc     *ipc.FileWriter
	builder *array.RecordBuilder
	pending int
	now     func() time.Time
}

// Create creates or truncates the summary file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create summary")
	}
	mem := memory.NewGoAllocator()
	w, err := ipc.NewFileWriter(f, ipc.WithSchema(Schema), ipc.WithAllocator(mem))
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "arrow file writer")
	}
	return &Writer{
		file:    f,
		ipc:     w,
		builder: array.NewRecordBuilder(mem, Schema),
		now:     time.Now,
	}, nil
}

// AddScalar buffers one value.
func (w *Writer) AddScalar(tag string, value float64, step int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.builder.Field(0).(*array.StringBuilder).Append(tag)
	w.builder.Field(1).(*array.Int64Builder).Append(int64(step))
	w.builder.Field(2).(*array.Float64Builder).Append(value)
	w.builder.Field(3).(*array.Float64Builder).Append(float64(w.now().UnixNano()) / 1e9)
	w.pending++
}

// Flush writes the buffered values as one record batch.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flush()
}

func (w *Writer) flush() error {
	if w.pending == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	w.pending = 0
	return errors.Wrap(w.ipc.Write(rec), "write summary batch")
}

// Close flushes, writes the file footer and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.flush()
	if cerr := w.ipc.Close(); err == nil {
		err = errors.Wrap(cerr, "close summary writer")
	}
	w.builder.Release()
	if cerr := w.file.Close(); err == nil && cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		err = errors.Wrap(cerr, "close summary file")
	}
	return err
}
