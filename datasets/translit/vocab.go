package translit

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Special tokens, always the first entries of every vocabulary.
const (
	Unk  = "<unk>"
	Pad  = "<pad>"
	Init = "<s>"
	EOS  = "</s>"
)

var specials = []string{Unk, Pad, Init, EOS}

// Vocab maps tokens to integer IDs and back. It is immutable once built.
type Vocab struct {
	itos []string
	stoi map[string]int
}

// NewVocab builds a vocabulary from token counts. Tokens are ordered by
// descending frequency, ties lexicographically, after the special tokens.
func NewVocab(counts map[string]int) *Vocab {
	var tokens = make([]string, 0, len(counts))
	for tok := range counts {
		if isSpecial(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	return newVocab(append(append([]string(nil), specials...), tokens...))
}

func newVocab(itos []string) *Vocab {
	var v = &Vocab{
		itos: itos,
		stoi: make(map[string]int, len(itos)),
	}
	for i, tok := range itos {
		if _, ok := v.stoi[tok]; !ok {
			v.stoi[tok] = i
		}
	}
	return v
}

func isSpecial(tok string) bool {
	for _, s := range specials {
		if s == tok {
			return true
		}
	}
	return false
}

func (v *Vocab) Len() int {
	return len(v.itos)
}

// ID returns the ID of tok, or the ID of Unk for unknown tokens.
func (v *Vocab) ID(tok string) int {
	if id, ok := v.stoi[tok]; ok {
		return id
	}
	return v.stoi[Unk]
}

// Token returns the token of id, or Unk when out of range.
func (v *Vocab) Token(id int) string {
	if id < 0 || id >= len(v.itos) {
		return Unk
	}
	return v.itos[id]
}

// Itos returns a copy of the ID-ordered token list.
func (v *Vocab) Itos() []string {
	return append([]string(nil), v.itos...)
}

func (v *Vocab) PadID() int  { return v.stoi[Pad] }
func (v *Vocab) InitID() int { return v.stoi[Init] }
func (v *Vocab) EOSID() int  { return v.stoi[EOS] }
func (v *Vocab) UnkID() int  { return v.stoi[Unk] }

// SaveVocab writes the vocabulary one token per line.
func SaveVocab(v *Vocab, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create vocab")
	}
	var w = bufio.NewWriter(file)
	for _, tok := range v.itos {
		if strings.ContainsAny(tok, "\n\r") {
			file.Close()
			return errors.Errorf("vocab token %q contains a line break", tok)
		}
		w.WriteString(tok)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return errors.Wrap(err, "write vocab")
	}
	return file.Close()
}

// LoadVocab reads a vocabulary written by SaveVocab.
func LoadVocab(filename string) (*Vocab, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open vocab")
	}
	defer file.Close()

	var itos []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		itos = append(itos, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read vocab %s", filename)
	}
	if len(itos) < len(specials) {
		return nil, errors.Errorf("vocab %s is missing special tokens", filename)
	}
	for i, s := range specials {
		if itos[i] != s {
			return nil, errors.Errorf("vocab %s: entry %d is %q, want %q", filename, i, itos[i], s)
		}
	}
	return newVocab(itos), nil
}
