package peaks

import (
	"sort"
)

// Candidate is a local maximum together with its topographic prominence
type Candidate struct {
	Index      int
	Height     float64
	Prominence float64
}

// LocalMaxima returns indices of samples strictly higher than their left
// neighbour and not lower than their right one. Flat tops count once, at
// their middle sample. The first and last samples are never maxima.
func LocalMaxima(y []float64) []int {
	var maxima []int
	n := len(y)
	i := 1
	for i < n-1 {
		if y[i-1] < y[i] {
			ahead := i + 1
			for ahead < n-1 && y[ahead] == y[i] {
				ahead++
			}
			if y[ahead] < y[i] {
				maxima = append(maxima, (i+ahead-1)/2)
				i = ahead
				continue
			}
		}
		i++
	}
	return maxima
}

// Prominence is the height of a peak above the higher of the two lowest
// points reached before climbing to higher ground on either side.
func Prominence(y []float64, peak int) float64 {
	h := y[peak]

	leftMin := h
	for i := peak - 1; i >= 0 && y[i] <= h; i-- {
		leftMin = min(leftMin, y[i])
	}

	rightMin := h
	for i := peak + 1; i < len(y) && y[i] <= h; i++ {
		rightMin = min(rightMin, y[i])
	}

	return h - max(leftMin, rightMin)
}

// FindCandidates returns local maxima whose prominence is at least
// minProminence, ordered by position
func FindCandidates(y []float64, minProminence float64) []Candidate {
	var out []Candidate
	for _, idx := range LocalMaxima(y) {
		p := Prominence(y, idx)
		if p >= minProminence {
			out = append(out, Candidate{Index: idx, Height: y[idx], Prominence: p})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
