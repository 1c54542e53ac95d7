package dashboard

import (
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/patient"
)

var fixedNow = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

func admitted(id, date string, status patient.Status) patient.Patient {
	return patient.Patient{
		ID: id,
		Draft: patient.Draft{
			Name:              "Patient " + id,
			Age:               40,
			Gender:            patient.GenderOther,
			ConditionCategory: "Cardiovascular",
			Condition:         "Hypertension",
			AdmissionDate:     date,
			Status:            status,
			LocationType:      patient.LocationClinic,
			ClinicNumber:      patient.StringPtr("C-" + id),
		},
	}
}

func TestComputeStats_Counts(t *testing.T) {
	patients := []patient.Patient{
		admitted("1", "2024-03-15", patient.StatusActive),
		admitted("2", "2024-03-01", patient.StatusDischarged),
		admitted("3", "2024-03-10", patient.StatusDischarged),
	}
	patients[2].ConditionCategory = "Respiratory"

	s := ComputeStats(patients, fixedNow)

	if s.Total != 3 || s.New != 2 || s.Discharged != 2 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.ByCategory["Cardiovascular"] != 2 || s.ByCategory["Respiratory"] != 1 {
		t.Errorf("unexpected breakdown %v", s.ByCategory)
	}
}

func TestComputeStats_NewWindowBoundary(t *testing.T) {
	testCases := []struct {
		name string
		date string
		want int
	}{
		{"today", "2024-03-15", 1},
		{"exactly seven days ago", "2024-03-08", 1},
		{"eight days ago", "2024-03-07", 0},
		{"future admission", "2024-03-20", 1},
		{"unparseable date", "15/03/2024", 0},
		{"empty date", "", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := ComputeStats([]patient.Patient{admitted("1", tc.date, patient.StatusActive)}, fixedNow)
			if s.New != tc.want {
				t.Errorf("expected new=%d for %s, got %d", tc.want, tc.date, s.New)
			}
		})
	}
}

func TestComputeStats_BoundaryIgnoresTimeOfDay(t *testing.T) {
	p := []patient.Patient{admitted("1", "2024-03-08", patient.StatusActive)}

	for _, now := range []time.Time{
		time.Date(2024, time.March, 15, 0, 0, 1, 0, time.UTC),
		time.Date(2024, time.March, 15, 23, 59, 59, 0, time.UTC),
	} {
		if s := ComputeStats(p, now); s.New != 1 {
			t.Errorf("at %s expected the admission to be new", now)
		}
	}
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(nil, fixedNow)
	if s.Total != 0 || s.New != 0 || s.Discharged != 0 || len(s.ByCategory) != 0 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestNewRow_Location(t *testing.T) {
	clinic := admitted("1", "2024-03-15", patient.StatusActive)
	clinic.ClinicNumber = patient.StringPtr("C-2023")

	ward := admitted("2", "2024-03-15", patient.StatusActive)
	ward.LocationType = patient.LocationWard
	ward.ClinicNumber = nil
	ward.WardName = patient.StringPtr("Cardiac ICU")
	ward.BedNumber = patient.StringPtr("A-1")

	rows := NewRows([]patient.Patient{clinic, ward})
	if rows[0].Location != "Clinic C-2023" {
		t.Errorf("unexpected clinic location %q", rows[0].Location)
	}
	if rows[1].Location != "Cardiac ICU - A-1" {
		t.Errorf("unexpected ward location %q", rows[1].Location)
	}
	if rows[0].ID != "1" || rows[1].ID != "2" {
		t.Error("expected mirror order to be kept")
	}
}
