package spectral

import (
	"github.com/chiashi-lab/RamanCalibrator/algorithms/common"
	"gonum.org/v1/gonum/floats"
)

// CosmicRayReport summarizes one RemoveCosmicRay pass
type CosmicRayReport struct {
	Threshold    float64
	GlobalStdDev float64
	// Flagged counts samples replaced because they exceeded the threshold
	Flagged int
	// DegenerateSeries counts (row, col, wavenumber) series in which every
	// repeat was flagged. Those series are filled with their unmasked mean.
	DegenerateSeries int
}

// RemoveCosmicRay rejects positive outliers across the repeat axis.
//
// For every (row, col, wavenumber) series the mean over repeats is taken and
// each sample is scored as (x - mean) / std, where std is the population
// standard deviation of the whole cube. Samples scoring above threshold are
// replaced by the mean of the unflagged samples of their series. A series
// with no unflagged sample cannot be repaired that way and is filled with
// its plain mean instead; such series are counted in the report.
//
// A cube with zero spread flags nothing. The input cube is not modified.
func RemoveCosmicRay(cube common.Cube4D, threshold float64) (common.Cube4D, CosmicRayReport) {
	out := cube.Clone()
	report := CosmicRayReport{Threshold: threshold}
	if !cube.Valid() {
		return out, report
	}

	std := common.PopStdDev(cube.Data)
	report.GlobalStdDev = std
	if std == 0 {
		return out, report
	}

	repeats, length := cube.Repeats, cube.Length
	flags := make([]bool, repeats)

	for pixel := 0; pixel < cube.Rows*cube.Cols; pixel++ {
		block := out.Data[pixel*repeats*length : (pixel+1)*repeats*length]
		for k := 0; k < length; k++ {
			sum := 0.0
			for j := 0; j < repeats; j++ {
				sum += block[j*length+k]
			}
			mean := sum / float64(repeats)

			kept, keptSum, nFlagged := 0, 0.0, 0
			for j := 0; j < repeats; j++ {
				v := block[j*length+k]
				flags[j] = (v-mean)/std > threshold
				if flags[j] {
					nFlagged++
				} else {
					kept++
					keptSum += v
				}
			}
			if nFlagged == 0 {
				continue
			}

			replacement := mean
			if kept > 0 {
				replacement = keptSum / float64(kept)
			} else {
				report.DegenerateSeries++
			}
			for j := 0; j < repeats; j++ {
				if flags[j] {
					block[j*length+k] = replacement
				}
			}
			report.Flagged += nFlagged
		}
	}

	return out, report
}

// MeanOverRepeats averages the exposures of every pixel
func MeanOverRepeats(cube common.Cube4D) common.Cube3D {
	out := common.NewCube3D(cube.Rows, cube.Cols, cube.Length)
	if !cube.Valid() {
		return out
	}
	inv := 1 / float64(cube.Repeats)
	for r := 0; r < cube.Rows; r++ {
		for c := 0; c < cube.Cols; c++ {
			dst := out.Spectrum(r, c)
			for j := 0; j < cube.Repeats; j++ {
				floats.Add(dst, cube.Series(r, c, j))
			}
			floats.Scale(inv, dst)
		}
	}
	return out
}

// CosmicRayRejectedMean removes cosmic rays and then averages over repeats
func CosmicRayRejectedMean(cube common.Cube4D, threshold float64) (common.Cube3D, CosmicRayReport) {
	cleaned, report := RemoveCosmicRay(cube, threshold)
	return MeanOverRepeats(cleaned), report
}
