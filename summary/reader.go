package summary

import (
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
)

// ReadFile returns every scalar of a closed summary file in write order.
func ReadFile(path string) ([]Scalar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open summary")
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, errors.Wrap(err, "arrow file reader")
	}
	defer r.Close()

	if err := checkSchema(r.Schema().Fields()); err != nil {
		return nil, errors.Wrapf(err, "summary %s", path)
	}

	var out []Scalar
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, errors.Wrapf(err, "summary batch %d", i)
		}
		tags := rec.Column(0).(*array.String)
		steps := rec.Column(1).(*array.Int64)
		values := rec.Column(2).(*array.Float64)
		walls := rec.Column(3).(*array.Float64)
		for j := 0; j < int(rec.NumRows()); j++ {
			wall := walls.Value(j)
			out = append(out, Scalar{
				Tag:      tags.Value(j),
				Step:     steps.Value(j),
				Value:    values.Value(j),
				WallTime: time.Unix(0, int64(wall*1e9)),
			})
		}
	}
	return out, nil
}

func checkSchema(fields []arrow.Field) error {
	want := Schema.Fields()
	if len(fields) != len(want) {
		return errors.Errorf("expected %d columns, got %d", len(want), len(fields))
	}
	for i, f := range fields {
		if f.Name != want[i].Name || !arrow.TypeEqual(f.Type, want[i].Type) {
			return errors.Errorf("column %d is %s %s, expected %s %s", i, f.Name, f.Type, want[i].Name, want[i].Type)
		}
	}
	return nil
}

// Last returns the most recent value of every tag.
func Last(scalars []Scalar) map[string]Scalar {
	var out = make(map[string]Scalar)
	for _, s := range scalars {
		out[s.Tag] = s
	}
	return out
}
