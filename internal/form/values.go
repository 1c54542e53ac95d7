package form

import (
	"net/url"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/patient"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/taxonomy"
)

// FromValues rebuilds a controller from a posted form by replaying the
// transitions a user makes: category, then condition, then the free-text
// and location inputs. The condition select is only read while a taxonomy
// category is selected. A posted condition that does not belong to the
// posted category is the stale selection of the previous category and
// resets the condition.
func FromValues(values url.Values, editing *patient.Patient) (*Controller, error) {
	c := NewController(editing)

	if err := c.SelectCategory(values.Get(FieldCategory)); err != nil {
		return nil, err
	}
	c.SetCustomCategory(values.Get(FieldCustomCategory))

	if c.state == Listed || c.state == ListedOther {
		condition := values.Get(FieldCondition)
		if condition != OtherValue && !contains(taxonomy.ConditionsFor(c.category), condition) {
			condition = ""
		}
		if err := c.SelectCondition(condition); err != nil {
			return nil, err
		}
	}
	c.SetOtherCondition(values.Get(FieldOtherCondition))

	if lt := values.Get(FieldLocationType); lt != "" {
		if err := c.SetLocationType(patient.LocationType(lt)); err != nil {
			return nil, err
		}
	}

	for _, field := range textFields {
		if _, posted := values[field]; posted {
			c.text[field] = values.Get(field)
		}
	}

	return c, nil
}
