package batch

import "fmt"

// Stats are the derived counts over the queue. They are recomputed from the
// item list on every read and satisfy
// Pending+Processing+Success+Failed == Total.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Success    int `json:"success"`
	Failed     int `json:"failed"`
}

// SuccessRate returns the percentage of successful items over the total,
// or 0 for an empty queue. Derived from the counts on every call; rounding
// happens only in DisplayRate.
func (s Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Success) * 100 / float64(s.Total)
}

// DisplayRate renders the success rate with one decimal place.
func (s Stats) DisplayRate() string {
	return fmt.Sprintf("%.1f%%", s.SuccessRate())
}

// Summary is the completion report for one finished run.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}
