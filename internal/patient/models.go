package patient

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/docstore"
)

// DateLayout is the calendar date format of AdmissionDate.
const DateLayout = "2006-01-02"

// Document field names.
const (
	FieldName              = "name"
	FieldAge               = "age"
	FieldGender            = "gender"
	FieldConditionCategory = "conditionCategory"
	FieldCondition         = "condition"
	FieldAdmissionDate     = "admissionDate"
	FieldStatus            = "status"
	FieldRemarks           = "remarks"
	FieldLocationType      = "locationType"
	FieldWardName          = "wardName"
	FieldBedNumber         = "bedNumber"
	FieldClinicNumber      = "clinicNumber"
)

const (
	MinAge = 0
	MaxAge = 150
)

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

type Status string

const (
	StatusActive     Status = "Active"
	StatusDischarged Status = "Discharged"
)

var Statuses = []Status{StatusActive, StatusDischarged}

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDischarged
}

type LocationType string

const (
	LocationWard   LocationType = "Ward"
	LocationClinic LocationType = "Clinic"
)

var LocationTypes = []LocationType{LocationWard, LocationClinic}

func (l LocationType) Valid() bool {
	return l == LocationWard || l == LocationClinic
}

// Fields returns the document fields that belong to the location group of l.
func (l LocationType) Fields() []string {
	if l == LocationWard {
		return []string{FieldWardName, FieldBedNumber}
	}
	return []string{FieldClinicNumber}
}

// InactiveFields returns the fields of the other location group.
func (l LocationType) InactiveFields() []string {
	if l == LocationWard {
		return []string{FieldClinicNumber}
	}
	return []string{FieldWardName, FieldBedNumber}
}

// Draft is a patient payload without its id. The location fields of the
// group not selected by LocationType are nil, never empty strings.
type Draft struct {
	Name              string       `json:"name"`
	Age               int          `json:"age"`
	Gender            Gender       `json:"gender"`
	ConditionCategory string       `json:"conditionCategory"`
	Condition         string       `json:"condition"`
	AdmissionDate     string       `json:"admissionDate"`
	Status            Status       `json:"status"`
	Remarks           string       `json:"remarks"`
	LocationType      LocationType `json:"locationType"`
	WardName          *string      `json:"wardName,omitempty"`
	BedNumber         *string      `json:"bedNumber,omitempty"`
	ClinicNumber      *string      `json:"clinicNumber,omitempty"`
}

// Patient is a stored record.
type Patient struct {
	ID string `json:"id"`
	Draft
}

// Normalize returns a copy whose inactive location group is absent.
func (d Draft) Normalize() Draft {
	switch d.LocationType {
	case LocationWard:
		d.ClinicNumber = nil
	case LocationClinic:
		d.WardName = nil
		d.BedNumber = nil
	}
	return d
}

// Fields returns every field of the draft keyed by document field name.
// Absent location fields are present as nil *string values; Sanitize drops
// them.
func (d Draft) Fields() map[string]interface{} {
	return map[string]interface{}{
		FieldName:              d.Name,
		FieldAge:               d.Age,
		FieldGender:            string(d.Gender),
		FieldConditionCategory: d.ConditionCategory,
		FieldCondition:         d.Condition,
		FieldAdmissionDate:     d.AdmissionDate,
		FieldStatus:            string(d.Status),
		FieldRemarks:           d.Remarks,
		FieldLocationType:      string(d.LocationType),
		FieldWardName:          d.WardName,
		FieldBedNumber:         d.BedNumber,
		FieldClinicNumber:      d.ClinicNumber,
	}
}

// Sanitize removes absent values from a write payload: untyped nils and nil
// pointers are dropped, non-nil pointers are dereferenced.
func Sanitize(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
			continue
		case *string:
			if val == nil {
				continue
			}
			out[k] = *val
		case *int:
			if val == nil {
				continue
			}
			out[k] = *val
		default:
			out[k] = v
		}
	}
	return out
}

// Location renders the placement as shown in the patient list.
func (d Draft) Location() string {
	if d.LocationType == LocationWard {
		return fmt.Sprintf("%s - %s", deref(d.WardName), deref(d.BedNumber))
	}
	return "Clinic " + deref(d.ClinicNumber)
}

// AdmittedOn parses AdmissionDate as a calendar day in loc.
func (d Draft) AdmittedOn(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, d.AdmissionDate, loc)
}

// Validate enforces the field constraints a patient record must satisfy.
// Free-text values are not checked beyond being present.
func (d Draft) Validate() error {
	errs := ValidationErrors{}

	if strings.TrimSpace(d.Name) == "" {
		errs[FieldName] = ErrMissingName
	}
	if d.Age < MinAge || d.Age > MaxAge {
		errs[FieldAge] = ErrInvalidAge
	}
	if !d.Gender.Valid() {
		errs[FieldGender] = ErrInvalidGender
	}
	if strings.TrimSpace(d.ConditionCategory) == "" {
		errs[FieldConditionCategory] = ErrMissingCategory
	}
	if strings.TrimSpace(d.Condition) == "" {
		errs[FieldCondition] = ErrMissingCondition
	}
	if _, err := time.Parse(DateLayout, d.AdmissionDate); err != nil {
		errs[FieldAdmissionDate] = ErrInvalidAdmissionDate
	}
	if !d.Status.Valid() {
		errs[FieldStatus] = ErrInvalidStatus
	}

	switch d.LocationType {
	case LocationWard:
		if blank(d.WardName) {
			errs[FieldWardName] = ErrMissingWardName
		}
		if blank(d.BedNumber) {
			errs[FieldBedNumber] = ErrMissingBedNumber
		}
		if d.ClinicNumber != nil {
			errs[FieldClinicNumber] = ErrMixedLocation
		}
	case LocationClinic:
		if blank(d.ClinicNumber) {
			errs[FieldClinicNumber] = ErrMissingClinicNumber
		}
		if d.WardName != nil || d.BedNumber != nil {
			errs[FieldWardName] = ErrMixedLocation
		}
	default:
		errs[FieldLocationType] = ErrInvalidLocationType
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// FromDocument decodes a stored document. The document data has the JSON
// shape of Draft, whatever numeric types the store hands back.
func FromDocument(doc docstore.Document) (Patient, error) {
	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return Patient{}, fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
	}

	var p Patient
	if err := json.Unmarshal(raw, &p.Draft); err != nil {
		return Patient{}, fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
	}
	p.ID = doc.ID
	return p, nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
