package patient

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/docstore"
)

// Repository writes patient records to a document store collection. Every
// failure is logged with its cause and returned as an *OperationError.
type Repository struct {
	store      docstore.Store
	collection string
	logger     zerolog.Logger
}

func NewRepository(store docstore.Store, collection string, logger zerolog.Logger) *Repository {
	return &Repository{
		store:      store,
		collection: collection,
		logger:     logger.With().Str("component", "patient_repository").Logger(),
	}
}

// Create stores a new record and returns its generated id.
func (r *Repository) Create(ctx context.Context, d Draft) (string, error) {
	payload := Sanitize(d.Normalize().Fields())

	id, err := r.store.Add(ctx, r.collection, payload)
	if err != nil {
		r.logger.Error().Err(err).Msg("error adding patient")
		return "", &OperationError{Op: OpCreate, Err: err}
	}

	r.logger.Info().Str("patient_id", id).Msg("patient added")
	return id, nil
}

// Update merges d into the record with the given id. The fields of the
// location group d does not use are removed from the stored document.
func (r *Repository) Update(ctx context.Context, id string, d Draft) error {
	if id == "" {
		return &OperationError{Op: OpUpdate, Err: ErrMissingID}
	}

	payload := Sanitize(d.Normalize().Fields())
	var clear []string
	if d.LocationType.Valid() {
		clear = d.LocationType.InactiveFields()
	}

	if err := r.store.Update(ctx, r.collection, id, payload, clear); err != nil {
		r.logger.Error().Err(err).Str("patient_id", id).Msg("error updating patient")
		return &OperationError{Op: OpUpdate, Err: err}
	}

	r.logger.Info().Str("patient_id", id).Msg("patient updated")
	return nil
}

// Remove deletes the record with the given id.
func (r *Repository) Remove(ctx context.Context, id string) error {
	if id == "" {
		return &OperationError{Op: OpDelete, Err: ErrMissingID}
	}

	if err := r.store.Delete(ctx, r.collection, id); err != nil {
		r.logger.Error().Err(err).Str("patient_id", id).Msg("error deleting patient")
		return &OperationError{Op: OpDelete, Err: err}
	}

	r.logger.Info().Str("patient_id", id).Msg("patient deleted")
	return nil
}
