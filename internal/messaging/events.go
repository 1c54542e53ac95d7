package messaging

import (
	"time"

	"github.com/google/uuid"
)

// ServiceName identifies this service in published events.
const ServiceName = "patient-dashboard"

// Event routing keys as constants
const (
	EventPatientCreated       = "patient.created"
	EventPatientUpdated       = "patient.updated"
	EventPatientDeleted       = "patient.deleted"
	EventPatientStatusChanged = "patient.status_changed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// PatientCreatedEvent represents a patient admission recorded on the dashboard
type PatientCreatedEvent struct {
	BaseEvent
	Data PatientCreatedData `json:"data"`
}

type PatientCreatedData struct {
	PatientID         string    `json:"patient_id"`
	Name              string    `json:"name"`
	Age               int       `json:"age"`
	Gender            string    `json:"gender"`
	ConditionCategory string    `json:"condition_category"`
	Condition         string    `json:"condition"`
	AdmissionDate     string    `json:"admission_date"`
	Status            string    `json:"status"`
	Location          string    `json:"location"`
	CreatedAt         time.Time `json:"created_at"`
}

// PatientUpdatedEvent represents an edit of an existing record
type PatientUpdatedEvent struct {
	BaseEvent
	Data PatientUpdatedData `json:"data"`
}

type PatientUpdatedData struct {
	PatientID         string    `json:"patient_id"`
	ConditionCategory string    `json:"condition_category"`
	Condition         string    `json:"condition"`
	Status            string    `json:"status"`
	Location          string    `json:"location"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PatientDeletedEvent represents a patient deletion event
type PatientDeletedEvent struct {
	BaseEvent
	Data PatientDeletedData `json:"data"`
}

type PatientDeletedData struct {
	PatientID string    `json:"patient_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// PatientStatusChangedEvent is published alongside patient.updated when the
// status moved between Active and Discharged
type PatientStatusChangedEvent struct {
	BaseEvent
	Data PatientStatusChangedData `json:"data"`
}

type PatientStatusChangedData struct {
	PatientID string    `json:"patient_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}
