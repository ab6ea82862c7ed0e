package translit

import "strings"

// Field describes how one side of the parallel data is tokenized and
// numericalized.
type Field struct {
	// Tokenized selects space separated tokens instead of characters.
	Tokenized bool

	Vocab *Vocab
}

// Tokenize splits text into tokens.
func (f *Field) Tokenize(text string) []string {
	if f.Tokenized {
		return strings.Fields(text)
	}
	var out = make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

// Numericalize maps tokens to IDs wrapped in Init and EOS.
func (f *Field) Numericalize(tokens []string) []int {
	var ids = make([]int, 0, len(tokens)+2)
	ids = append(ids, f.Vocab.InitID())
	for _, tok := range tokens {
		ids = append(ids, f.Vocab.ID(tok))
	}
	return append(ids, f.Vocab.EOSID())
}

// Encode tokenizes and numericalizes text.
func (f *Field) Encode(text string) []int {
	return f.Numericalize(f.Tokenize(text))
}

// Pad right-pads every row to the longest row with the pad ID.
func (f *Field) Pad(rows [][]int) [][]int {
	var width int
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	var pad = f.Vocab.PadID()
	var out = make([][]int, len(rows))
	for i, row := range rows {
		out[i] = make([]int, width)
		copy(out[i], row)
		for j := len(row); j < width; j++ {
			out[i][j] = pad
		}
	}
	return out
}

// DecodeIDs maps IDs back to text. Tokens that start with '<' or end with
// '>' are treated as special and dropped.
func (f *Field) DecodeIDs(ids []int) string {
	var parts = make([]string, 0, len(ids))
	for _, id := range ids {
		tok := f.Vocab.Token(id)
		if tok == "" || strings.HasPrefix(tok, "<") || strings.HasSuffix(tok, ">") {
			continue
		}
		parts = append(parts, tok)
	}
	if f.Tokenized {
		return strings.Join(parts, " ")
	}
	return strings.Join(parts, "")
}
