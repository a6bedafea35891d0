package indicator

// spikeWindow is the number of recent bars averaged for spike detection
const spikeWindow = 20

// VolumeSpike reports whether the latest volume exceeds threshold times the
// mean of the last 20 volumes (the latest included).
func VolumeSpike(volumes []float64, threshold float64) bool {
	if len(volumes) < spikeWindow {
		return false
	}

	var sum float64
	for _, v := range volumes[len(volumes)-spikeWindow:] {
		sum += v
	}
	avg := sum / spikeWindow

	return volumes[len(volumes)-1] > avg*threshold
}
