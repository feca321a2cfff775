// Package fuzzy implements the edit-distance primitives used for
// approximate name and biomarker label matching.
package fuzzy

// Distance returns the Levenshtein edit distance between a and b,
// counted in runes.
func Distance(a, b string) int {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}

// Threshold returns the maximum edit distance considered a match for
// a candidate string of the given rune length: at least 2, scaling to
// 20% of the length for longer strings.
func Threshold(length int) int {
	t := length / 5
	if t < 2 {
		return 2
	}
	return t
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
