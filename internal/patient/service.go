package patient

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/messaging"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/telemetry"
)

// Lookup resolves the current version of a record, used to detect status
// changes on update.
type Lookup interface {
	Get(id string) (Patient, bool)
}

// Service validates drafts, writes them through the repository and
// publishes the matching domain events. Publishing is best effort: a
// failed publish is logged and never fails the mutation.
type Service struct {
	repo      RepositoryInterface
	lookup    Lookup
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
	logger    zerolog.Logger
}

func NewService(repo RepositoryInterface, lookup Lookup, publisher messaging.PublisherInterface, metrics *telemetry.Metrics, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		lookup:    lookup,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "patient_service").Logger(),
	}
}

func (s *Service) CreatePatient(ctx context.Context, d Draft) (string, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return "", err
	}

	id, err := s.repo.Create(ctx, d)
	s.metrics.RecordPatientOperation(ctx, OpCreate, err)
	if err != nil {
		return "", err
	}

	s.publish(ctx, messaging.EventPatientCreated, messaging.PatientCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientCreated),
		Data: messaging.PatientCreatedData{
			PatientID:         id,
			Name:              d.Name,
			Age:               d.Age,
			Gender:            string(d.Gender),
			ConditionCategory: d.ConditionCategory,
			Condition:         d.Condition,
			AdmissionDate:     d.AdmissionDate,
			Status:            string(d.Status),
			Location:          d.Location(),
			CreatedAt:         time.Now().UTC(),
		},
	})

	return id, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id string, d Draft) error {
	if id == "" {
		return ErrMissingID
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return err
	}

	var previous Patient
	var known bool
	if s.lookup != nil {
		previous, known = s.lookup.Get(id)
	}

	err := s.repo.Update(ctx, id, d)
	s.metrics.RecordPatientOperation(ctx, OpUpdate, err)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	s.publish(ctx, messaging.EventPatientUpdated, messaging.PatientUpdatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientUpdated),
		Data: messaging.PatientUpdatedData{
			PatientID:         id,
			ConditionCategory: d.ConditionCategory,
			Condition:         d.Condition,
			Status:            string(d.Status),
			Location:          d.Location(),
			UpdatedAt:         now,
		},
	})

	if known && previous.Status != d.Status {
		s.publish(ctx, messaging.EventPatientStatusChanged, messaging.PatientStatusChangedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventPatientStatusChanged),
			Data: messaging.PatientStatusChangedData{
				PatientID: id,
				OldStatus: string(previous.Status),
				NewStatus: string(d.Status),
				ChangedAt: now,
			},
		})
	}

	return nil
}

func (s *Service) DeletePatient(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}

	err := s.repo.Remove(ctx, id)
	s.metrics.RecordPatientOperation(ctx, OpDelete, err)
	if err != nil {
		return err
	}

	s.publish(ctx, messaging.EventPatientDeleted, messaging.PatientDeletedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientDeleted),
		Data: messaging.PatientDeletedData{
			PatientID: id,
			DeletedAt: time.Now().UTC(),
		},
	})

	return nil
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	err := s.publisher.Publish(ctx, routingKey, event)
	switch {
	case err == nil:
	case messaging.IsOpen(err):
		s.logger.Debug().Str("routing_key", routingKey).Msg("event dropped, broker circuit open")
	default:
		s.logger.Warn().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
	}
}
