package column

// deltaStats scans vals and reports whether the sequence is strictly
// increasing along with the min/max value and min/max successive
// difference, all needed by spec §4.4's delta heuristic.
func deltaStats(vals []int64) (minV, maxV, minDelta, maxDelta int64, increasing bool) {
	increasing = true
	minV, maxV = vals[0], vals[0]

	for i := 1; i < len(vals); i++ {
		if vals[i] <= vals[i-1] {
			increasing = false
		}

		d := vals[i] - vals[i-1]
		if i == 1 || d < minDelta {
			minDelta = d
		}

		if i == 1 || d > maxDelta {
			maxDelta = d
		}

		if vals[i] < minV {
			minV = vals[i]
		}

		if vals[i] > maxV {
			maxV = vals[i]
		}
	}

	return minV, maxV, minDelta, maxDelta, increasing
}

// shouldUseDelta applies spec §4.4: delta encoding applies iff the
// sequence is strictly increasing and (max_delta-min_delta)/(max_value-
// min_value) < 0.5. Ratio arithmetic is done in float64 to avoid int64
// overflow on wide-ranging sequences.
func shouldUseDelta(vals []int64) bool {
	if len(vals) < 2 {
		return false
	}

	minV, maxV, minD, maxD, increasing := deltaStats(vals)
	if !increasing {
		return false
	}

	denom := float64(maxV) - float64(minV)
	if denom == 0 {
		return false
	}

	ratio := (float64(maxD) - float64(minD)) / denom

	return ratio < 0.5
}
