package loss

// Mask marks non-pad positions of padded ID rows with 1.
func Mask(ids [][]int, pad int) [][]float64 {
	var out = make([][]float64, len(ids))
	for b, row := range ids {
		out[b] = make([]float64, len(row))
		for i, id := range row {
			if id != pad {
				out[b][i] = 1
			}
		}
	}
	return out
}

func sum(mask [][]float64, from int) (s float64) {
	for _, row := range mask {
		for i := from; i < len(row); i++ {
			s += row[i]
		}
	}
	return
}

// tableSum is the sum of the outer product mask over the table, skipping
// the first from rows and columns.
func tableSum(src, tgt [][]float64, from int) (s float64) {
	for b := range src {
		var rs, ts float64
		for i := from; i < len(src[b]); i++ {
			rs += src[b][i]
		}
		for j := from; j < len(tgt[b]); j++ {
			ts += tgt[b][j]
		}
		s += rs * ts
	}
	return
}
