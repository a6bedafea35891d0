package indicator

import "math"

// Bands holds Bollinger band levels
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// Bollinger calculates the latest Bollinger bands using the population
// standard deviation of the last period closes. All three levels collapse to
// the last price when there is not enough data.
func Bollinger(prices []float64, period int, k float64) Bands {
	if len(prices) == 0 {
		return Bands{}
	}
	if period <= 0 || len(prices) < period {
		p := prices[len(prices)-1]
		return Bands{Upper: p, Middle: p, Lower: p}
	}

	window := prices[len(prices)-period:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(period)

	var variance float64
	for _, v := range window {
		variance += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(variance / float64(period))

	return Bands{
		Upper:  mean + k*sd,
		Middle: mean,
		Lower:  mean - k*sd,
	}
}
