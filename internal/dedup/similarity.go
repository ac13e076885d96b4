package dedup

// Ratio computes a text similarity ratio in [0,1] as twice the number of
// matching runes over the combined length, where matches are found by
// recursively locating the longest common block (the classic sequence
// matcher formulation, without junk heuristics).
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ar := []rune(a)
	br := []rune(b)
	matched := matchingRunes(ar, br)
	return 2 * float64(matched) / float64(len(ar)+len(br))
}

func matchingRunes(a, b []rune) int {
	ai, bi, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingRunes(a[:ai], b[:bi]) +
		matchingRunes(a[ai+size:], b[bi+size:])
}

// longestMatch finds the longest common contiguous block between a and b,
// returning its start in each plus its length.
func longestMatch(a, b []rune) (int, int, int) {
	var bestA, bestB, bestSize int
	// lengths of matches ending at each position of b for the previous row
	prev := make(map[int]int)

	for i := range a {
		cur := make(map[int]int)
		for j := range b {
			if a[i] != b[j] {
				continue
			}
			k := prev[j-1] + 1
			cur[j] = k
			if k > bestSize {
				bestA, bestB, bestSize = i-k+1, j-k+1, k
			}
		}
		prev = cur
	}
	return bestA, bestB, bestSize
}
