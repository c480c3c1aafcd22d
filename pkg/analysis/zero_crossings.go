// Package analysis holds the signal statistics computed for ECG leads.
package analysis

// CountZeroCrossings counts the transitions between the non-negative and
// negative sign classes across adjacent samples. Zero belongs to the
// non-negative class. Signals with fewer than two samples have no adjacent
// pairs and yield 0.
func CountZeroCrossings(signal []int) int {
	crossings := 0
	for i := 0; i+1 < len(signal); i++ {
		if (signal[i] >= 0) != (signal[i+1] >= 0) {
			crossings++
		}
	}
	return crossings
}
