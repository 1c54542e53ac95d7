package patient

import (
	"errors"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/docstore"
)

func wardDraft() Draft {
	return Draft{
		Name:              "John Doe",
		Age:               55,
		Gender:            GenderMale,
		ConditionCategory: "Cardiovascular",
		Condition:         "Heart Failure",
		AdmissionDate:     "2024-03-01",
		Status:            StatusActive,
		LocationType:      LocationWard,
		WardName:          StringPtr("Cardiac ICU"),
		BedNumber:         StringPtr("A-1"),
	}
}

func clinicDraft() Draft {
	d := wardDraft()
	d.LocationType = LocationClinic
	d.WardName = nil
	d.BedNumber = nil
	d.ClinicNumber = StringPtr("C-2023")
	return d
}

func TestSanitize_DropsAbsentFields(t *testing.T) {
	payload := Sanitize(map[string]interface{}{
		"clinicNumber": (*string)(nil),
		"wardName":     StringPtr("ICU"),
		"bedNumber":    "A-1",
		"remarks":      nil,
	})

	if _, ok := payload["clinicNumber"]; ok {
		t.Error("expected clinicNumber to be dropped")
	}
	if _, ok := payload["remarks"]; ok {
		t.Error("expected untyped nil to be dropped")
	}
	if payload["wardName"] != "ICU" {
		t.Errorf("expected dereferenced wardName, got %#v", payload["wardName"])
	}
	if payload["bedNumber"] != "A-1" {
		t.Errorf("expected bedNumber to be kept, got %#v", payload["bedNumber"])
	}
}

func TestSanitize_KeepsEmptyStrings(t *testing.T) {
	payload := Sanitize(wardDraft().Fields())
	if v, ok := payload[FieldRemarks]; !ok || v != "" {
		t.Errorf("expected empty remarks to be kept, got %#v", v)
	}
}

func TestNormalize_ExactlyOneLocationGroup(t *testing.T) {
	d := wardDraft()
	d.ClinicNumber = StringPtr("C-1")

	ward := Sanitize(d.Normalize().Fields())
	if _, ok := ward[FieldClinicNumber]; ok {
		t.Error("ward payload carries clinicNumber")
	}
	if ward[FieldWardName] != "Cardiac ICU" || ward[FieldBedNumber] != "A-1" {
		t.Errorf("ward payload missing ward group: %v", ward)
	}

	d.LocationType = LocationClinic
	clinic := Sanitize(d.Normalize().Fields())
	if _, ok := clinic[FieldWardName]; ok {
		t.Error("clinic payload carries wardName")
	}
	if _, ok := clinic[FieldBedNumber]; ok {
		t.Error("clinic payload carries bedNumber")
	}
	if clinic[FieldClinicNumber] != "C-1" {
		t.Errorf("clinic payload missing clinicNumber: %v", clinic)
	}
}

func TestLocation(t *testing.T) {
	if got := wardDraft().Location(); got != "Cardiac ICU - A-1" {
		t.Errorf("unexpected ward location %q", got)
	}
	if got := clinicDraft().Location(); got != "Clinic C-2023" {
		t.Errorf("unexpected clinic location %q", got)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name  string
		edit  func(*Draft)
		field string
		want  error
	}{
		{name: "blank name", edit: func(d *Draft) { d.Name = "  " }, field: FieldName, want: ErrMissingName},
		{name: "negative age", edit: func(d *Draft) { d.Age = -1 }, field: FieldAge, want: ErrInvalidAge},
		{name: "age over 150", edit: func(d *Draft) { d.Age = 151 }, field: FieldAge, want: ErrInvalidAge},
		{name: "no gender", edit: func(d *Draft) { d.Gender = "" }, field: FieldGender, want: ErrInvalidGender},
		{name: "no category", edit: func(d *Draft) { d.ConditionCategory = "" }, field: FieldConditionCategory, want: ErrMissingCategory},
		{name: "no condition", edit: func(d *Draft) { d.Condition = "" }, field: FieldCondition, want: ErrMissingCondition},
		{name: "bad date", edit: func(d *Draft) { d.AdmissionDate = "03/01/2024" }, field: FieldAdmissionDate, want: ErrInvalidAdmissionDate},
		{name: "no status", edit: func(d *Draft) { d.Status = "Unknown" }, field: FieldStatus, want: ErrInvalidStatus},
		{name: "no bed", edit: func(d *Draft) { d.BedNumber = nil }, field: FieldBedNumber, want: ErrMissingBedNumber},
		{name: "blank ward", edit: func(d *Draft) { d.WardName = StringPtr("") }, field: FieldWardName, want: ErrMissingWardName},
		{name: "mixed groups", edit: func(d *Draft) { d.ClinicNumber = StringPtr("C-1") }, field: FieldClinicNumber, want: ErrMixedLocation},
		{name: "bad location type", edit: func(d *Draft) { d.LocationType = "Home" }, field: FieldLocationType, want: ErrInvalidLocationType},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := wardDraft()
			tc.edit(&d)

			err := d.Validate()
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if !errors.Is(verrs[tc.field], tc.want) {
				t.Errorf("expected %s: %v, got %v", tc.field, tc.want, verrs)
			}
		})
	}
}

func TestValidate_AcceptsBoundaries(t *testing.T) {
	for _, age := range []int{0, 150} {
		d := clinicDraft()
		d.Age = age
		if err := d.Validate(); err != nil {
			t.Errorf("age %d: unexpected error %v", age, err)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	err := ValidationErrors{FieldName: ErrMissingName, FieldAge: ErrInvalidAge}
	want := "invalid patient: age: age must be between 0 and 150; name: name is required"
	if err.Error() != want {
		t.Errorf("got %q", err.Error())
	}
}

func TestFromDocument(t *testing.T) {
	doc := docstore.Document{
		ID: "p-1",
		Data: map[string]interface{}{
			"name":          "Jane",
			"age":           float64(42),
			"gender":        "Female",
			"locationType":  "Clinic",
			"clinicNumber":  "C-2023",
			"admissionDate": "2024-01-02",
			"status":        "Discharged",
		},
	}

	p, err := FromDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "p-1" || p.Age != 42 || p.Status != StatusDischarged {
		t.Errorf("unexpected patient %+v", p)
	}
	if p.WardName != nil || p.ClinicNumber == nil || *p.ClinicNumber != "C-2023" {
		t.Errorf("unexpected location fields %+v", p.Draft)
	}

	if _, err := FromDocument(docstore.Document{ID: "bad", Data: map[string]interface{}{"age": "old"}}); err == nil {
		t.Error("expected error for malformed document")
	}
}

func TestAdmittedOn(t *testing.T) {
	d := wardDraft()
	got, err := d.AdmittedOn(time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %s", got)
	}
}

func TestOperationError(t *testing.T) {
	err := &OperationError{Op: OpUpdate, Err: docstore.ErrNotFound}
	if err.Error() != "failed to update patient" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Error("expected cause to be reachable")
	}
}
