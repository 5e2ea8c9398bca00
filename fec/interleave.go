package fec

import "github.com/etalazz/durapack/errs"

// Interleave splits input round-robin into group buffers, taking shardLen
// bytes per lane per round. The final round may be shorter than shardLen if
// input does not divide evenly.
func Interleave(input []byte, group, shardLen int) ([][]byte, error) {
	if group <= 0 {
		return nil, errs.NewInvalidStructure("interleave: group must be > 0")
	}
	if shardLen <= 0 {
		return nil, errs.NewInvalidStructure("interleave: shard_len must be > 0")
	}

	stripes := make([][]byte, group)
	lane := 0
	for offset := 0; offset < len(input); offset += shardLen {
		end := offset + shardLen
		if end > len(input) {
			end = len(input)
		}
		stripes[lane] = append(stripes[lane], input[offset:end]...)
		lane = (lane + 1) % group
	}
	return stripes, nil
}

// Deinterleave reverses Interleave exactly: it reads shardLen bytes from
// each lane in round-robin order, producing a buffer whose length is the
// sum of the stripe lengths.
func Deinterleave(stripes [][]byte, group, shardLen int) ([]byte, error) {
	if group <= 0 {
		return nil, errs.NewInvalidStructure("deinterleave: group must be > 0")
	}
	if shardLen <= 0 {
		return nil, errs.NewInvalidStructure("deinterleave: shard_len must be > 0")
	}
	if len(stripes) != group {
		return nil, errs.NewInvalidStructure("deinterleave: expected %d stripes, got %d", group, len(stripes))
	}

	total := 0
	for _, s := range stripes {
		total += len(s)
	}
	out := make([]byte, 0, total)

	cursors := make([]int, group)
	for {
		progressed := false
		for lane := 0; lane < group; lane++ {
			c := cursors[lane]
			if c >= len(stripes[lane]) {
				continue
			}
			end := c + shardLen
			if end > len(stripes[lane]) {
				end = len(stripes[lane])
			}
			out = append(out, stripes[lane][c:end]...)
			cursors[lane] = end
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return out, nil
}
