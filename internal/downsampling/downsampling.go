// Package downsampling thins long series for display. Every algorithm
// selects original points, so a thinned report still carries real
// observations with their bands.
package downsampling

import (
	"fmt"
	"math"
	"sort"
)

// Mode represents the downsampling mode
type Mode string

const (
	// ModeNone keeps every point
	ModeNone Mode = "none"
	// ModeAuto picks an algorithm from the shape of the data
	ModeAuto Mode = "auto"
	// ModeLTTB uses Largest-Triangle-Three-Buckets
	ModeLTTB Mode = "lttb"
	// ModeMinMax keeps the min and max of each bucket
	ModeMinMax Mode = "minmax"
	// ModeM4 keeps first, min, max and last of each bucket
	ModeM4 Mode = "m4"
)

// DefaultThreshold is the target point count when none is given
const DefaultThreshold = 1000

// ValidModes returns all valid downsampling modes
func ValidModes() []Mode {
	return []Mode{ModeNone, ModeAuto, ModeLTTB, ModeMinMax, ModeM4}
}

// ParseMode validates a mode name. An empty name means ModeAuto.
func ParseMode(name string) (Mode, error) {
	if name == "" {
		return ModeAuto, nil
	}
	for _, m := range ValidModes() {
		if string(m) == name {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown downsampling mode %q (valid: none, auto, lttb, minmax, m4)", name)
}

// Select returns the ascending indices of values to keep so that roughly
// threshold points remain. Indices listed in keep are always included, so
// the result can exceed threshold by len(keep).
func Select(values []float64, mode Mode, threshold int, keep []int) ([]int, error) {
	n := len(values)
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var picked []int
	switch {
	case mode == ModeNone || n <= threshold:
		picked = allIndices(n)
	default:
		if mode == ModeAuto {
			mode = detectBestAlgorithm(values)
		}
		switch mode {
		case ModeLTTB:
			picked = lttb(values, threshold)
		case ModeMinMax:
			picked = minmax(values, threshold)
		case ModeM4:
			picked = m4(values, threshold)
		default:
			return nil, fmt.Errorf("unknown downsampling mode %q", mode)
		}
	}

	return merge(picked, keep, n), nil
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// merge unions picked and keep, dropping out-of-range entries
func merge(picked, keep []int, n int) []int {
	seen := make(map[int]bool, len(picked)+len(keep))
	out := make([]int, 0, len(picked)+len(keep))
	for _, list := range [][]int{picked, keep} {
		for _, i := range list {
			if i < 0 || i >= n || seen[i] {
				continue
			}
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// detectBestAlgorithm prefers peak-preserving algorithms for spiky data
// and LTTB for smooth data
func detectBestAlgorithm(values []float64) Mode {
	spikiness := calculateSpikiness(values)
	switch {
	case spikiness > 0.2:
		return ModeMinMax
	case spikiness > 0.1:
		return ModeM4
	default:
		return ModeLTTB
	}
}

// calculateSpikiness is in [0, 1]: the weighted share of points far from
// the mean and of steps larger than one standard deviation
func calculateSpikiness(values []float64) float64 {
	n := len(values)
	if n < 10 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	stdDev := math.Sqrt(variance / float64(n))
	if stdDev == 0 {
		return 0
	}

	outliers, jumps := 0, 0
	for i, v := range values {
		if math.Abs(v-mean) > 2*stdDev {
			outliers++
		}
		if i > 0 && math.Abs(v-values[i-1]) > stdDev {
			jumps++
		}
	}

	s := (float64(outliers)/float64(n) + 1.5*float64(jumps)/float64(n-1)) / 2.5
	return math.Min(s, 1)
}

// lttb implements Largest-Triangle-Three-Buckets. The first and last points
// are always kept.
func lttb(values []float64, threshold int) []int {
	n := len(values)
	if threshold <= 2 {
		return []int{0, n - 1}
	}

	sampled := make([]int, 0, threshold)
	sampled = append(sampled, 0)

	bucketSize := float64(n-2) / float64(threshold-2)
	a := 0

	for i := 0; i < threshold-2; i++ {
		nextStart := int(math.Floor(float64(i+1)*bucketSize)) + 1
		nextEnd := min(int(math.Floor(float64(i+2)*bucketSize))+1, n)

		avgX, avgY := 0.0, 0.0
		for j := nextStart; j < nextEnd; j++ {
			avgX += float64(j)
			avgY += values[j]
		}
		count := float64(nextEnd - nextStart)
		avgX /= count
		avgY /= count

		from := int(math.Floor(float64(i)*bucketSize)) + 1
		to := int(math.Floor(float64(i+1)*bucketSize)) + 1

		ax, ay := float64(a), values[a]
		maxArea, chosen := -1.0, from
		for j := from; j < to; j++ {
			area := math.Abs((ax-avgX)*(values[j]-ay)-(ax-float64(j))*(avgY-ay)) * 0.5
			if area > maxArea {
				maxArea, chosen = area, j
			}
		}

		sampled = append(sampled, chosen)
		a = chosen
	}

	return append(sampled, n-1)
}

// bucketBounds splits n points into buckets of equal width
func bucketBounds(n, buckets, i int) (start, end int) {
	size := float64(n) / float64(buckets)
	start = int(float64(i) * size)
	end = min(int(float64(i+1)*size), n)
	return start, end
}

func extremes(values []float64, start, end int) (minIdx, maxIdx int) {
	minIdx, maxIdx = start, start
	for j := start + 1; j < end; j++ {
		if values[j] < values[minIdx] {
			minIdx = j
		}
		if values[j] > values[maxIdx] {
			maxIdx = j
		}
	}
	return minIdx, maxIdx
}

// minmax keeps the minimum and maximum of threshold/2 buckets
func minmax(values []float64, threshold int) []int {
	buckets := max(threshold/2, 1)
	sampled := make([]int, 0, buckets*2)
	for i := 0; i < buckets; i++ {
		start, end := bucketBounds(len(values), buckets, i)
		if start >= end {
			continue
		}
		lo, hi := extremes(values, start, end)
		sampled = append(sampled, lo, hi)
	}
	return sampled
}

// m4 keeps first, min, max and last of threshold/4 buckets
func m4(values []float64, threshold int) []int {
	buckets := max(threshold/4, 1)
	sampled := make([]int, 0, buckets*4)
	for i := 0; i < buckets; i++ {
		start, end := bucketBounds(len(values), buckets, i)
		if start >= end {
			continue
		}
		lo, hi := extremes(values, start, end)
		sampled = append(sampled, start, lo, hi, end-1)
	}
	return sampled
}
