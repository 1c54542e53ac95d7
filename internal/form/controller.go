// Package form holds the editing state of the add/edit patient form: the
// cascading category and condition selects, the location groups and the
// plain inputs. It turns that state into a patient.Draft on submit.
package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/patient"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/taxonomy"
)

// OtherValue is the select value of the synthetic "Other (specify)" option.
const OtherValue = "other"

// OtherLabel is the text shown for OtherValue.
const OtherLabel = "Other (specify)"

// Input names as posted by the HTML form.
const (
	FieldName           = "name"
	FieldAge            = "age"
	FieldGender         = "gender"
	FieldCategory       = "conditionCategory"
	FieldCustomCategory = "customCategory"
	FieldCondition      = "condition"
	FieldOtherCondition = "otherCondition"
	FieldLocationType   = "locationType"
	FieldWardName       = "wardName"
	FieldBedNumber      = "bedNumber"
	FieldClinicNumber   = "clinicNumber"
	FieldAdmissionDate  = "admissionDate"
	FieldStatus         = "status"
	FieldRemarks        = "remarks"
)

var (
	ErrUnknownCondition     = errors.New("condition is not listed for the selected category")
	ErrConditionUnavailable = errors.New("select a category before choosing a condition")
	ErrUnknownField         = errors.New("unknown form field")
)

// CascadeState is the state of the category/condition selects.
type CascadeState int

const (
	// Unselected: no category chosen, no conditions offered.
	Unselected CascadeState = iota
	// Listed: a taxonomy category with a condition from its list, or none yet.
	Listed
	// ListedOther: a taxonomy category with a free-text condition.
	ListedOther
	// Custom: free-text category and free-text condition.
	Custom
)

func (s CascadeState) String() string {
	switch s {
	case Unselected:
		return "unselected"
	case Listed:
		return "listed"
	case ListedOther:
		return "listed-other"
	case Custom:
		return "custom"
	}
	return fmt.Sprintf("CascadeState(%d)", int(s))
}

// Mutator writes drafts. *patient.Service satisfies it.
type Mutator interface {
	CreatePatient(ctx context.Context, d patient.Draft) (string, error)
	UpdatePatient(ctx context.Context, id string, d patient.Draft) error
}

// Controller is the editing state of one form. It is not safe for
// concurrent use; each request builds its own.
type Controller struct {
	editing *patient.Patient

	state          CascadeState
	category       string
	condition      string
	customCategory string
	otherCondition string

	locationType patient.LocationType
	text         map[string]string
}

// plain inputs kept verbatim until submit
var textFields = []string{
	FieldName,
	FieldAge,
	FieldGender,
	FieldWardName,
	FieldBedNumber,
	FieldClinicNumber,
	FieldAdmissionDate,
	FieldStatus,
	FieldRemarks,
}

// NewController starts a form. With editing nil the form creates a record;
// otherwise it is pre-filled from editing and updates it on submit.
//
// A stored category/condition pair is mapped onto the cascade: an unknown
// category becomes Custom, a condition missing from the taxonomy becomes
// free text, and a condition listed under a different category is cleared.
func NewController(editing *patient.Patient) *Controller {
	c := &Controller{
		editing:      editing,
		locationType: patient.LocationWard,
		text:         make(map[string]string, len(textFields)),
	}
	if editing == nil {
		return c
	}

	d := editing.Draft
	c.text[FieldName] = d.Name
	c.text[FieldAge] = strconv.Itoa(d.Age)
	c.text[FieldGender] = string(d.Gender)
	c.text[FieldAdmissionDate] = d.AdmissionDate
	c.text[FieldStatus] = string(d.Status)
	c.text[FieldRemarks] = d.Remarks
	c.text[FieldWardName] = deref(d.WardName)
	c.text[FieldBedNumber] = deref(d.BedNumber)
	c.text[FieldClinicNumber] = deref(d.ClinicNumber)
	if d.LocationType.Valid() {
		c.locationType = d.LocationType
	}

	switch {
	case d.ConditionCategory == "":
		c.state = Unselected
	case taxonomy.IsCategory(d.ConditionCategory):
		c.category = d.ConditionCategory
		switch {
		case contains(taxonomy.ConditionsFor(d.ConditionCategory), d.Condition):
			c.state = Listed
			c.condition = d.Condition
		case d.Condition == "" || taxonomy.IsKnownCondition(d.Condition):
			c.state = Listed
		default:
			c.state = ListedOther
			c.otherCondition = d.Condition
		}
	default:
		c.state = Custom
		c.customCategory = d.ConditionCategory
		c.otherCondition = d.Condition
	}

	return c
}

func (c *Controller) State() CascadeState {
	return c.state
}

// SelectCategory applies a change of the category select. value is a
// taxonomy category, OtherValue or empty.
func (c *Controller) SelectCategory(value string) error {
	switch {
	case value == "":
		c.state = Unselected
		c.category = ""
		c.condition = ""
	case value == OtherValue:
		c.state = Custom
		c.category = ""
		c.condition = ""
	case taxonomy.IsCategory(value):
		c.category = value
		if c.state == ListedOther {
			return nil
		}
		c.state = Listed
		if !contains(taxonomy.ConditionsFor(value), c.condition) {
			c.condition = ""
		}
	default:
		return fmt.Errorf("%w: %q", taxonomy.ErrUnknownCategory, value)
	}
	return nil
}

// SelectCondition applies a change of the condition select. It is only
// offered while a taxonomy category is selected.
func (c *Controller) SelectCondition(value string) error {
	if c.state != Listed && c.state != ListedOther {
		return ErrConditionUnavailable
	}

	switch {
	case value == "":
		c.state = Listed
		c.condition = ""
	case value == OtherValue:
		c.state = ListedOther
		c.condition = ""
	case contains(taxonomy.ConditionsFor(c.category), value):
		c.state = Listed
		c.condition = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCondition, value)
	}
	return nil
}

// SetCustomCategory sets the free-text category used in the Custom state.
func (c *Controller) SetCustomCategory(v string) {
	c.customCategory = v
}

// SetOtherCondition sets the free-text condition used in the ListedOther
// and Custom states.
func (c *Controller) SetOtherCondition(v string) {
	c.otherCondition = v
}

// SetLocationType switches the active location group. Values typed into
// the other group are kept but not submitted.
func (c *Controller) SetLocationType(v patient.LocationType) error {
	if !v.Valid() {
		return patient.ErrInvalidLocationType
	}
	c.locationType = v
	return nil
}

func (c *Controller) LocationType() patient.LocationType {
	return c.locationType
}

// Set stores the raw value of a plain input.
func (c *Controller) Set(field, value string) error {
	if !contains(textFields, field) {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	c.text[field] = value
	return nil
}

// Value returns the raw value of a plain input.
func (c *Controller) Value(field string) string {
	return c.text[field]
}

// Category returns the category a submit would store.
func (c *Controller) Category() string {
	if c.state == Custom {
		return strings.TrimSpace(c.customCategory)
	}
	return c.category
}

// Condition returns the condition a submit would store.
func (c *Controller) Condition() string {
	if c.state == ListedOther || c.state == Custom {
		return strings.TrimSpace(c.otherCondition)
	}
	return c.condition
}

// AvailableConditions returns the listed conditions for the current
// category. It is empty outside Listed and ListedOther.
func (c *Controller) AvailableConditions() []string {
	if c.state != Listed && c.state != ListedOther {
		return nil
	}
	return taxonomy.ConditionsFor(c.category)
}

// Payload assembles the draft a submit would write. Only the constraints a
// browser enforces on the inputs are checked.
func (c *Controller) Payload() (patient.Draft, error) {
	errs := Errors{}
	required := func(field, message string) string {
		v := strings.TrimSpace(c.text[field])
		if v == "" {
			errs[field] = message
		}
		return v
	}

	d := patient.Draft{
		Name:          required(FieldName, "Name is required"),
		Gender:        patient.Gender(required(FieldGender, "Select a gender")),
		AdmissionDate: required(FieldAdmissionDate, "Admission date is required"),
		Status:        patient.Status(required(FieldStatus, "Select a status")),
		Remarks:       c.text[FieldRemarks],
		LocationType:  c.locationType,
	}

	if age := required(FieldAge, "Age is required"); age != "" {
		n, err := strconv.Atoi(age)
		if err != nil || n < patient.MinAge || n > patient.MaxAge {
			errs[FieldAge] = "Age must be a whole number between 0 and 150"
		}
		d.Age = n
	}
	if d.Gender != "" && !d.Gender.Valid() {
		errs[FieldGender] = "Select a gender"
	}
	if d.Status != "" && !d.Status.Valid() {
		errs[FieldStatus] = "Select a status"
	}
	if d.AdmissionDate != "" {
		if _, err := time.Parse(patient.DateLayout, d.AdmissionDate); err != nil {
			errs[FieldAdmissionDate] = "Admission date must be a date"
		}
	}

	d.ConditionCategory = c.Category()
	d.Condition = c.Condition()
	switch c.state {
	case Unselected:
		errs[FieldCategory] = "Select a category"
	case Listed:
		if d.Condition == "" {
			errs[FieldCondition] = "Select a condition"
		}
	case ListedOther:
		if d.Condition == "" {
			errs[FieldOtherCondition] = "Specify the condition"
		}
	case Custom:
		if d.ConditionCategory == "" {
			errs[FieldCustomCategory] = "Specify the category"
		}
		if d.Condition == "" {
			errs[FieldOtherCondition] = "Specify the condition"
		}
	}

	if c.locationType == patient.LocationWard {
		d.WardName = patient.StringPtr(required(FieldWardName, "Select a ward"))
		d.BedNumber = patient.StringPtr(required(FieldBedNumber, "Bed number is required"))
	} else {
		d.ClinicNumber = patient.StringPtr(required(FieldClinicNumber, "Clinic number is required"))
	}

	if len(errs) > 0 {
		return patient.Draft{}, errs
	}
	return d, nil
}

// Submit writes the payload through m: an update when editing, a create
// otherwise. It returns the id of the written record.
func (c *Controller) Submit(ctx context.Context, m Mutator) (string, error) {
	d, err := c.Payload()
	if err != nil {
		return "", err
	}

	if c.editing != nil {
		if err := m.UpdatePatient(ctx, c.editing.ID, d); err != nil {
			return "", err
		}
		return c.editing.ID, nil
	}
	return m.CreatePatient(ctx, d)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
