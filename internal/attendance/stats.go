package attendance

import "math"

// Stats is the aggregate of a set of attendance records.
type Stats struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// Summarize builds Stats from counts. Percentage is rounded to two decimals and is
// exactly 0 when there are no records.
func Summarize(total, present int) Stats {
	s := Stats{Total: total, Present: present, Absent: total - present}
	if total > 0 {
		s.Percentage = math.Round(float64(present)/float64(total)*100*100) / 100
	}
	return s
}

// Percentage aggregates records already in memory.
func Percentage(records []Record) Stats {
	present := 0
	for _, r := range records {
		if r.Status == Present {
			present++
		}
	}
	return Summarize(len(records), present)
}
