package patient

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/messaging"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/testutil"
)

// mockRepository implements RepositoryInterface for testing
type mockRepository struct {
	createFunc func(ctx context.Context, d Draft) (string, error)
	updateFunc func(ctx context.Context, id string, d Draft) error
	removeFunc func(ctx context.Context, id string) error
}

func (m *mockRepository) Create(ctx context.Context, d Draft) (string, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, d)
	}
	return "", errors.New("not implemented")
}

func (m *mockRepository) Update(ctx context.Context, id string, d Draft) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, d)
	}
	return errors.New("not implemented")
}

func (m *mockRepository) Remove(ctx context.Context, id string) error {
	if m.removeFunc != nil {
		return m.removeFunc(ctx, id)
	}
	return errors.New("not implemented")
}

type mapLookup map[string]Patient

func (l mapLookup) Get(id string) (Patient, bool) {
	p, ok := l[id]
	return p, ok
}

func TestCreatePatient_Success(t *testing.T) {
	var stored Draft
	repo := &mockRepository{
		createFunc: func(ctx context.Context, d Draft) (string, error) {
			stored = d
			return "patient-123", nil
		},
	}
	publisher := testutil.NewMockPublisher()
	service := NewService(repo, nil, publisher, nil, zerolog.Nop())

	d := wardDraft()
	d.ClinicNumber = StringPtr("leftover")

	id, err := service.CreatePatient(context.Background(), d)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if id != "patient-123" {
		t.Errorf("Expected id 'patient-123', got '%s'", id)
	}
	if stored.ClinicNumber != nil {
		t.Error("Expected draft to be normalized before storing")
	}

	publisher.AssertEventCount(t, messaging.EventPatientCreated, 1)
	var event messaging.PatientCreatedEvent
	publisher.LastEventByKey(t, messaging.EventPatientCreated).Decode(t, &event)
	if event.Data.PatientID != "patient-123" || event.Data.Location != "Cardiac ICU - A-1" {
		t.Errorf("unexpected event data %+v", event.Data)
	}
}

func TestCreatePatient_ValidationError(t *testing.T) {
	called := false
	repo := &mockRepository{
		createFunc: func(ctx context.Context, d Draft) (string, error) {
			called = true
			return "x", nil
		},
	}
	publisher := testutil.NewMockPublisher()
	service := NewService(repo, nil, publisher, nil, zerolog.Nop())

	d := wardDraft()
	d.Name = ""

	_, err := service.CreatePatient(context.Background(), d)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if called {
		t.Error("Expected repository not to be called")
	}
	if publisher.GetEventCount() != 0 {
		t.Error("Expected no events")
	}
}

func TestCreatePatient_RepositoryError(t *testing.T) {
	cause := &OperationError{Op: OpCreate, Err: errors.New("quota exceeded")}
	repo := &mockRepository{
		createFunc: func(ctx context.Context, d Draft) (string, error) {
			return "", cause
		},
	}
	publisher := testutil.NewMockPublisher()
	service := NewService(repo, nil, publisher, nil, zerolog.Nop())

	_, err := service.CreatePatient(context.Background(), wardDraft())
	if !errors.Is(err, cause) {
		t.Fatalf("Expected repository error, got %v", err)
	}
	if publisher.GetEventCount() != 0 {
		t.Error("Expected no events after a failed write")
	}
}

func TestCreatePatient_PublishFailureDoesNotFail(t *testing.T) {
	repo := &mockRepository{
		createFunc: func(ctx context.Context, d Draft) (string, error) {
			return "p-1", nil
		},
	}
	publisher := testutil.NewMockPublisher()
	publisher.Err = errors.New("broker down")
	service := NewService(repo, nil, publisher, nil, zerolog.Nop())

	if _, err := service.CreatePatient(context.Background(), wardDraft()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if publisher.Calls() != 1 {
		t.Errorf("Expected one publish attempt, got %d", publisher.Calls())
	}
}

func TestCreatePatient_OpenCircuitIsNotAWarning(t *testing.T) {
	repo := &mockRepository{
		createFunc: func(ctx context.Context, d Draft) (string, error) {
			return "p-1", nil
		},
	}
	var logs bytes.Buffer
	publisher := testutil.NewMockPublisher()
	publisher.Err = gobreaker.ErrOpenState
	service := NewService(repo, nil, publisher, nil, zerolog.New(&logs))

	if _, err := service.CreatePatient(context.Background(), wardDraft()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(logs.String(), "broker circuit open") {
		t.Errorf("expected a dropped-event log, got %s", logs.String())
	}
	if strings.Contains(logs.String(), `"level":"warn"`) {
		t.Errorf("expected no warning for an open circuit, got %s", logs.String())
	}
}

func TestUpdatePatient_StatusChange(t *testing.T) {
	repo := &mockRepository{
		updateFunc: func(ctx context.Context, id string, d Draft) error {
			return nil
		},
	}
	lookup := mapLookup{"p-1": {ID: "p-1", Draft: wardDraft()}}
	publisher := testutil.NewMockPublisher()
	service := NewService(repo, lookup, publisher, nil, zerolog.Nop())

	d := wardDraft()
	d.Status = StatusDischarged

	if err := service.UpdatePatient(context.Background(), "p-1", d); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	publisher.AssertEventCount(t, messaging.EventPatientUpdated, 1)
	publisher.AssertEventCount(t, messaging.EventPatientStatusChanged, 1)

	var event messaging.PatientStatusChangedEvent
	publisher.LastEventByKey(t, messaging.EventPatientStatusChanged).Decode(t, &event)
	if event.Data.OldStatus != "Active" || event.Data.NewStatus != "Discharged" {
		t.Errorf("unexpected status change %+v", event.Data)
	}
}

func TestUpdatePatient_SameStatus(t *testing.T) {
	repo := &mockRepository{
		updateFunc: func(ctx context.Context, id string, d Draft) error {
			return nil
		},
	}
	lookup := mapLookup{"p-1": {ID: "p-1", Draft: wardDraft()}}
	publisher := testutil.NewMockPublisher()
	service := NewService(repo, lookup, publisher, nil, zerolog.Nop())

	if err := service.UpdatePatient(context.Background(), "p-1", clinicDraft()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	publisher.AssertEventCount(t, messaging.EventPatientUpdated, 1)
	publisher.AssertEventCount(t, messaging.EventPatientStatusChanged, 0)
}

func TestUpdatePatient_MissingID(t *testing.T) {
	service := NewService(&mockRepository{}, nil, nil, nil, zerolog.Nop())

	if err := service.UpdatePatient(context.Background(), "", wardDraft()); !errors.Is(err, ErrMissingID) {
		t.Errorf("Expected ErrMissingID, got %v", err)
	}
}

func TestDeletePatient(t *testing.T) {
	var removed string
	repo := &mockRepository{
		removeFunc: func(ctx context.Context, id string) error {
			removed = id
			return nil
		},
	}
	publisher := testutil.NewMockPublisher()
	service := NewService(repo, nil, publisher, nil, zerolog.Nop())

	if err := service.DeletePatient(context.Background(), "p-9"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if removed != "p-9" {
		t.Errorf("Expected p-9 to be removed, got %q", removed)
	}
	publisher.AssertEventCount(t, messaging.EventPatientDeleted, 1)
}

func TestDeletePatient_Error(t *testing.T) {
	repo := &mockRepository{
		removeFunc: func(ctx context.Context, id string) error {
			return &OperationError{Op: OpDelete, Err: errors.New("denied")}
		},
	}
	publisher := testutil.NewMockPublisher()
	service := NewService(repo, nil, publisher, nil, zerolog.Nop())

	err := service.DeletePatient(context.Background(), "p-9")
	if err == nil || err.Error() != "failed to delete patient" {
		t.Fatalf("Expected generic delete error, got %v", err)
	}
	publisher.AssertEventCount(t, messaging.EventPatientDeleted, 0)
}
