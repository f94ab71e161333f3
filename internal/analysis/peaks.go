package analysis

// findPeaks appends to dst the indices of local maxima in x whose value strictly
// exceeds minHeight. A flat-topped peak is reported once, at the middle of its
// plateau. The first and last samples are never peaks.
func findPeaks(x []float64, minHeight float64, dst []int) []int {
	last := len(x) - 1
	for i := 1; i < last; i++ {
		if x[i-1] >= x[i] {
			continue
		}
		ahead := i + 1
		for ahead < last && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			if peak := (i + ahead - 1) / 2; x[peak] > minHeight {
				dst = append(dst, peak)
			}
			i = ahead
		}
	}
	return dst
}
