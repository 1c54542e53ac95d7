// Package dashboard renders the patient list, its summary cards and the
// add/edit modal, and pushes the same view to connected browsers whenever
// the mirror changes.
package dashboard

import (
	"time"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/patient"
)

// NewWindowDays is how far back an admission still counts as new.
const NewWindowDays = 7

// Stats are the summary cards above the list.
type Stats struct {
	Total      int            `json:"total"`
	New        int            `json:"new"`
	Discharged int            `json:"discharged"`
	ByCategory map[string]int `json:"byCategory"`
}

// ComputeStats aggregates patients as of now. A patient is new when admitted
// on or after the calendar day NewWindowDays before now, in now's location.
// Records whose admission date does not parse are never new.
func ComputeStats(patients []patient.Patient, now time.Time) Stats {
	y, m, d := now.Date()
	cutoff := time.Date(y, m, d-NewWindowDays, 0, 0, 0, 0, now.Location())

	s := Stats{
		Total:      len(patients),
		ByCategory: make(map[string]int),
	}
	for _, p := range patients {
		if admitted, err := p.AdmittedOn(now.Location()); err == nil && !admitted.Before(cutoff) {
			s.New++
		}
		if p.Status == patient.StatusDischarged {
			s.Discharged++
		}
		if p.ConditionCategory != "" {
			s.ByCategory[p.ConditionCategory]++
		}
	}
	return s
}

// Row is one line of the patient list.
type Row struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	Category      string `json:"conditionCategory"`
	Condition     string `json:"condition"`
	Location      string `json:"location"`
	AdmissionDate string `json:"admissionDate"`
	Status        string `json:"status"`
	Remarks       string `json:"remarks"`
}

func NewRow(p patient.Patient) Row {
	return Row{
		ID:            p.ID,
		Name:          p.Name,
		Age:           p.Age,
		Gender:        string(p.Gender),
		Category:      p.ConditionCategory,
		Condition:     p.Condition,
		Location:      p.Location(),
		AdmissionDate: p.AdmissionDate,
		Status:        string(p.Status),
		Remarks:       p.Remarks,
	}
}

// NewRows keeps the mirror order.
func NewRows(patients []patient.Patient) []Row {
	rows := make([]Row, 0, len(patients))
	for _, p := range patients {
		rows = append(rows, NewRow(p))
	}
	return rows
}
