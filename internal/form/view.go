package form

import (
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/patient"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/taxonomy"
)

// Option is one entry of a select.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// View is everything the form template needs.
type View struct {
	Title       string
	SubmitLabel string
	Action      string
	Editing     bool

	State              string
	CategoryOptions    []Option
	ConditionOptions   []Option
	ShowConditionList  bool
	ShowCustomCategory bool
	ShowOtherCondition bool
	CustomCategory     string
	OtherCondition     string

	LocationOptions []Option
	IsWard          bool
	WardOptions     []Option
	GenderOptions   []Option
	StatusOptions   []Option

	Values map[string]string
	Errors Errors
}

// View renders the controller state. errs may be nil.
func (c *Controller) View(errs Errors) View {
	v := View{
		Title:       "Add New Patient",
		SubmitLabel: "Add Patient",
		Action:      "/patients",
		State:       c.state.String(),

		ShowConditionList:  c.state != Custom,
		ShowCustomCategory: c.state == Custom,
		ShowOtherCondition: c.state == ListedOther || c.state == Custom,
		CustomCategory:     c.customCategory,
		OtherCondition:     c.otherCondition,

		IsWard: c.locationType == patient.LocationWard,
		Values: make(map[string]string, len(c.text)),
		Errors: errs,
	}
	if c.editing != nil {
		v.Title = "Edit Patient"
		v.SubmitLabel = "Update Patient"
		v.Action = "/patients/" + c.editing.ID
		v.Editing = true
	}
	for k, val := range c.text {
		v.Values[k] = val
	}

	v.CategoryOptions = []Option{{Value: "", Label: "Select category", Selected: c.state == Unselected}}
	for _, cat := range taxonomy.Categories() {
		v.CategoryOptions = append(v.CategoryOptions, Option{
			Value:    cat,
			Label:    cat,
			Selected: (c.state == Listed || c.state == ListedOther) && c.category == cat,
		})
	}
	v.CategoryOptions = append(v.CategoryOptions, Option{Value: OtherValue, Label: OtherLabel, Selected: c.state == Custom})

	v.ConditionOptions = []Option{{Value: "", Label: "Select condition", Selected: c.state == Listed && c.condition == ""}}
	for _, cond := range c.AvailableConditions() {
		v.ConditionOptions = append(v.ConditionOptions, Option{
			Value:    cond,
			Label:    cond,
			Selected: c.state == Listed && c.condition == cond,
		})
	}
	v.ConditionOptions = append(v.ConditionOptions, Option{Value: OtherValue, Label: OtherLabel, Selected: c.state == ListedOther})

	for _, lt := range patient.LocationTypes {
		v.LocationOptions = append(v.LocationOptions, Option{Value: string(lt), Label: string(lt), Selected: c.locationType == lt})
	}

	v.WardOptions = selectOptions("Select ward", taxonomy.Wards(), c.text[FieldWardName])

	genders := make([]string, 0, len(patient.Genders))
	for _, g := range patient.Genders {
		genders = append(genders, string(g))
	}
	v.GenderOptions = selectOptions("Select gender", genders, c.text[FieldGender])

	statuses := make([]string, 0, len(patient.Statuses))
	for _, s := range patient.Statuses {
		statuses = append(statuses, string(s))
	}
	v.StatusOptions = selectOptions("Select status", statuses, c.text[FieldStatus])

	return v
}

func selectOptions(placeholder string, values []string, selected string) []Option {
	opts := make([]Option, 0, len(values)+1)
	opts = append(opts, Option{Value: "", Label: placeholder, Selected: selected == ""})
	for _, val := range values {
		opts = append(opts, Option{Value: val, Label: val, Selected: val == selected})
	}
	// stored values outside the list stay selectable when editing
	if selected != "" && !contains(values, selected) {
		opts = append(opts, Option{Value: selected, Label: selected, Selected: true})
	}
	return opts
}
