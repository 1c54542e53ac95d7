package patient

import "context"

// ServiceInterface defines the contract for patient business logic operations
type ServiceInterface interface {
	CreatePatient(ctx context.Context, d Draft) (string, error)
	UpdatePatient(ctx context.Context, id string, d Draft) error
	DeletePatient(ctx context.Context, id string) error
}

// Reader is the read side the handlers render from.
type Reader interface {
	State() State
	Get(id string) (Patient, bool)
}

var (
	_ ServiceInterface = (*Service)(nil)
	_ Reader           = (*Mirror)(nil)
	_ Lookup           = (*Mirror)(nil)
)
