package patient

import "context"

// RepositoryInterface defines the contract for patient writes
type RepositoryInterface interface {
	Create(ctx context.Context, d Draft) (string, error)
	Update(ctx context.Context, id string, d Draft) error
	Remove(ctx context.Context, id string) error
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
