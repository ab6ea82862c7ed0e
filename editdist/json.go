package editdist

import (
	"compress/lzw"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

type jsonParam struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

type jsonModel struct {
	SrcVocab int         `json:"src_vocab"`
	TgtVocab int         `json:"tgt_vocab"`
	Params   []jsonParam `json:"params"`
}

// WriteCompressedWeightsToFile writes model weights to a lzw file. The file
// is replaced atomically so an interrupted write keeps the previous weights.
func (m *Model) WriteCompressedWeightsToFile(name string) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+".tmp*")
	if err != nil {
		return errors.Wrap(err, "create checkpoint")
	}
	err = m.WriteCompressedWeights(tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "write checkpoint")
	}
	return errors.Wrap(os.Rename(tmp.Name(), name), "replace checkpoint")
}

// WriteCompressedWeights writes model weights to a writer
func (m *Model) WriteCompressedWeights(w io.Writer) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)

	var jm = jsonModel{SrcVocab: m.src.Len(), TgtVocab: m.tgt.Len()}
	for _, p := range m.Params() {
		r, c := p.Value.Dims()
		jm.Params = append(jm.Params, jsonParam{
			Name: p.Name,
			Rows: r,
			Cols: c,
			Data: p.Value.RawMatrix().Data,
		})
	}
	if err := json.NewEncoder(lw).Encode(jm); err != nil {
		lw.Close()
		return err
	}
	return lw.Close()
}

// ReadCompressedWeightsFromFile reads model weights from a lzw file
func (m *Model) ReadCompressedWeightsFromFile(name string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	err = m.ReadCompressedWeights(file)
	file.Close()
	return err
}

// ReadCompressedWeights reads model weights from a reader. The vocabulary
// sizes and parameter shapes must match the model.
func (m *Model) ReadCompressedWeights(r io.Reader) error {
	lr := lzw.NewReader(r, lzw.LSB, 8)
	defer lr.Close()

	var jm jsonModel
	if err := json.NewDecoder(lr).Decode(&jm); err != nil {
		return errors.Wrap(err, "decode checkpoint")
	}
	if jm.SrcVocab != m.src.Len() || jm.TgtVocab != m.tgt.Len() {
		return errors.Errorf("checkpoint vocab sizes %d/%d do not match model %d/%d",
			jm.SrcVocab, jm.TgtVocab, m.src.Len(), m.tgt.Len())
	}
	var byName = make(map[string]jsonParam, len(jm.Params))
	for _, p := range jm.Params {
		byName[p.Name] = p
	}
	for _, p := range m.Params() {
		jp, ok := byName[p.Name]
		if !ok {
			return errors.Errorf("checkpoint is missing parameter %s", p.Name)
		}
		r, c := p.Value.Dims()
		if jp.Rows != r || jp.Cols != c || len(jp.Data) != r*c {
			return errors.Errorf("parameter %s has shape %dx%d, want %dx%d", p.Name, jp.Rows, jp.Cols, r, c)
		}
		copy(p.Value.RawMatrix().Data, jp.Data)
	}
	return nil
}
