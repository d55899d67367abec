package blocking

// Pair is one candidate comparison. I < J always holds; BlockKey is the
// first block, in key order, that produced the pair.
type Pair struct {
	I, J     int
	BlockKey string
}

// CandidatePairs enumerates every distinct pair across blocks. Blocks are
// visited in the order given (CreateBlocks sorts them by key), so the output
// order and the block attributed to each pair are deterministic.
func CandidatePairs(blocks []Block) []Pair {
	seen := make(map[[2]int]struct{})
	var pairs []Pair
	for _, b := range blocks {
		for x := 0; x < len(b.Members); x++ {
			for y := x + 1; y < len(b.Members); y++ {
				i, j := b.Members[x], b.Members[y]
				if i == j {
					continue
				}
				if i > j {
					i, j = j, i
				}
				k := [2]int{i, j}
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}
				pairs = append(pairs, Pair{I: i, J: j, BlockKey: b.Key})
			}
		}
	}
	return pairs
}
