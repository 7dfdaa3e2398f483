package attendance

import "sort"

// DefaultThreshold is the percentage below which a student is a defaulter.
const DefaultThreshold = 75.0

// StudentRef identifies a student in reports.
type StudentRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	RollNo string `json:"rollNo"`
	Class  string `json:"class"`
}

// Tally is one student's record counts, as produced by the store.
type Tally struct {
	Student StudentRef
	Total   int
	Present int
}

type Defaulter struct {
	Student    StudentRef `json:"student"`
	Attendance Stats      `json:"attendance"`
}

// SelectDefaulters keeps the students whose percentage is strictly below threshold,
// worst first. Ties keep the order of tallies.
func SelectDefaulters(tallies []Tally, threshold float64) []Defaulter {
	res := make([]Defaulter, 0, len(tallies))
	for _, t := range tallies {
		stats := Summarize(t.Total, t.Present)
		if stats.Percentage < threshold {
			res = append(res, Defaulter{Student: t.Student, Attendance: stats})
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Attendance.Percentage < res[j].Attendance.Percentage
	})
	return res
}
