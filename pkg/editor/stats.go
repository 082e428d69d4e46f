package editor

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the volume values under the selection
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Stats computes summary statistics of the selected voxel values. An empty
// selection yields a zero Count and NaN for every other field.
func (e *Editor) Stats() Stats {
	indices := e.sel.Indices()
	if len(indices) == 0 {
		nan := math.NaN()
		return Stats{Mean: nan, StdDev: nan, Min: nan, Max: nan}
	}

	values := make([]float64, len(indices))
	for i, v := range indices {
		values[i] = e.volume.Value(v[0], v[1], v[2])
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return Stats{
		Count:  len(values),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}
