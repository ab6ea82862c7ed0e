package summary

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	w, err := Create(path)
	require.NoError(t, err)
	start := time.Unix(1700000000, 0)
	w.now = func() time.Time { return start }

	w.AddScalar("loss/train", 2.5, 4)
	w.AddScalar("wer/val", 0.75, 4)
	require.NoError(t, w.Flush())
	require.NoError(t, w.Flush())
	w.AddScalar("loss/train", 1.5, 8)
	require.NoError(t, w.Close())

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "loss/train", got[0].Tag)
	assert.Equal(t, int64(4), got[0].Step)
	assert.Equal(t, 2.5, got[0].Value)
	assert.Equal(t, start.Unix(), got[0].WallTime.Unix())
	assert.Equal(t, 1.5, got[2].Value)

	last := Last(got)
	assert.Equal(t, int64(8), last["loss/train"].Step)
	assert.Equal(t, 0.75, last["wer/val"].Value)
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.arrow")
	require.NoError(t, os.WriteFile(bad, []byte("not arrow"), 0o644))
	_, err = ReadFile(bad)
	assert.Error(t, err)
}
