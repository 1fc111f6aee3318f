package match

// Ratio computes a normalized edit-distance similarity between two strings,
// in [0,1]. 1.0 means equal, 0.0 means nothing in common. Inputs are compared
// as-is; callers that want case/accent-insensitive scoring pass values through
// normalize.Value first.
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein is the classic single-row DP edit distance over runes.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(a); i++ {
		prev := i
		for j := 1; j <= len(b); j++ {
			var val int
			if a[i-1] == b[j-1] {
				val = row[j-1]
			} else {
				val = min3(row[j-1], prev, row[j]) + 1
			}
			row[j-1] = prev
			prev = val
		}
		row[len(b)] = prev
	}
	return row[len(b)]
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
