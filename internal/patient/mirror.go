package patient

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/docstore"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/telemetry"
)

// State is a consistent view of the mirror.
type State struct {
	Patients []Patient
	Loading  bool
	Err      error
}

// Listener is told about every change of the mirror state.
type Listener interface {
	MirrorUpdated(State)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(State)

func (f ListenerFunc) MirrorUpdated(s State) { f(s) }

// Mirror keeps a local copy of the patients collection, fed by a single
// live query. The subscription goroutine is its only writer.
type Mirror struct {
	store      docstore.Store
	collection string
	metrics    *telemetry.Metrics
	logger     zerolog.Logger

	mu         sync.RWMutex
	patients   []Patient
	loading    bool
	err        error
	subscribed bool
	listeners  []Listener
}

func NewMirror(store docstore.Store, collection string, metrics *telemetry.Metrics, logger zerolog.Logger) *Mirror {
	return &Mirror{
		store:      store,
		collection: collection,
		metrics:    metrics,
		logger:     logger.With().Str("component", "patient_mirror").Logger(),
		loading:    true,
	}
}

// AddListener registers l. Listeners are called from the subscription
// goroutine, in registration order, after the state has been replaced.
func (m *Mirror) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Subscribe starts the live query. The returned function stops it and
// waits for the consumer goroutine to exit; calling it more than once is
// safe. A mirror can be subscribed only once.
func (m *Mirror) Subscribe(ctx context.Context) (func(), error) {
	m.mu.Lock()
	if m.subscribed {
		m.mu.Unlock()
		return nil, ErrAlreadySubscribed
	}
	m.subscribed = true
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stream, err := m.store.Watch(ctx, m.collection)
	if err != nil {
		cancel()
		m.fail(err)
		return nil, fmt.Errorf("failed to subscribe to %s: %w", m.collection, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range stream {
			if snap.Err != nil {
				m.fail(snap.Err)
				cancel()
				return
			}
			m.replace(ctx, snap.Documents)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func (m *Mirror) replace(ctx context.Context, docs []docstore.Document) {
	patients := make([]Patient, 0, len(docs))
	for _, doc := range docs {
		p, err := FromDocument(doc)
		if err != nil {
			m.logger.Warn().Err(err).Str("patient_id", doc.ID).Msg("skipping malformed patient document")
			continue
		}
		patients = append(patients, p)
	}

	m.mu.Lock()
	m.patients = patients
	m.loading = false
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.metrics.RecordSnapshot(ctx, len(patients))
	m.logger.Debug().Int("patients", len(patients)).Msg("snapshot received")
	m.notify(listeners)
}

func (m *Mirror) fail(err error) {
	m.logger.Error().Err(err).Msg("error fetching patients")

	m.mu.Lock()
	m.err = err
	m.loading = false
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.notify(listeners)
}

func (m *Mirror) notify(listeners []Listener) {
	if len(listeners) == 0 {
		return
	}
	s := m.State()
	for _, l := range listeners {
		l.MirrorUpdated(s)
	}
}

// State returns a copy of the current mirror state.
func (m *Mirror) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return State{
		Patients: append([]Patient(nil), m.patients...),
		Loading:  m.loading,
		Err:      m.err,
	}
}

// Patients returns a copy of the mirrored records in store order.
func (m *Mirror) Patients() []Patient {
	return m.State().Patients
}

// Loading reports whether neither a snapshot nor an error has arrived yet.
func (m *Mirror) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Err returns the subscription error, if any.
func (m *Mirror) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Get looks up a mirrored record by id.
func (m *Mirror) Get(id string) (Patient, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.patients {
		if p.ID == id {
			return p, true
		}
	}
	return Patient{}, false
}
