package patient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/docstore"
)

// feedStore hands out a stream the test writes snapshots to.
type feedStore struct {
	docstore.Store
	feed     chan docstore.Snapshot
	watchErr error
}

func newFeedStore() *feedStore {
	return &feedStore{feed: make(chan docstore.Snapshot)}
}

func (f *feedStore) Watch(ctx context.Context, collection string) (<-chan docstore.Snapshot, error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	out := make(chan docstore.Snapshot)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-f.feed:
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type recordingListener struct {
	mu     sync.Mutex
	states []State
	ch     chan State
}

func newRecordingListener() *recordingListener {
	return &recordingListener{ch: make(chan State, 16)}
}

func (r *recordingListener) MirrorUpdated(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *recordingListener) wait(t *testing.T) State {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mirror update")
	}
	return State{}
}

func TestMirror_LoadingUntilFirstSnapshot(t *testing.T) {
	store := newFeedStore()
	m := NewMirror(store, "patients", nil, zerolog.Nop())
	l := newRecordingListener()
	m.AddListener(l)

	if !m.Loading() {
		t.Fatal("expected loading before subscribe")
	}

	unsubscribe, err := m.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unsubscribe()

	if !m.Loading() {
		t.Fatal("expected loading before first snapshot")
	}

	store.feed <- docstore.Snapshot{Documents: []docstore.Document{
		{ID: "p-1", Data: map[string]interface{}{"name": "Jane", "status": "Active"}},
	}}

	s := l.wait(t)
	if s.Loading || s.Err != nil {
		t.Fatalf("unexpected state %+v", s)
	}
	if len(s.Patients) != 1 || s.Patients[0].ID != "p-1" {
		t.Fatalf("unexpected patients %+v", s.Patients)
	}
	if m.Loading() {
		t.Error("expected loading to be false")
	}
}

func TestMirror_ReplacesWholesale(t *testing.T) {
	store := newFeedStore()
	m := NewMirror(store, "patients", nil, zerolog.Nop())
	l := newRecordingListener()
	m.AddListener(l)

	unsubscribe, _ := m.Subscribe(context.Background())
	defer unsubscribe()

	store.feed <- docstore.Snapshot{Documents: []docstore.Document{
		{ID: "a", Data: map[string]interface{}{}},
		{ID: "b", Data: map[string]interface{}{}},
	}}
	l.wait(t)

	store.feed <- docstore.Snapshot{Documents: []docstore.Document{
		{ID: "b", Data: map[string]interface{}{}},
	}}
	l.wait(t)

	patients := m.Patients()
	if len(patients) != 1 || patients[0].ID != "b" {
		t.Errorf("expected only b after replacement, got %+v", patients)
	}
	if _, ok := m.Get("a"); ok {
		t.Error("expected a to be gone")
	}
}

func TestMirror_SkipsMalformedDocuments(t *testing.T) {
	store := newFeedStore()
	m := NewMirror(store, "patients", nil, zerolog.Nop())
	l := newRecordingListener()
	m.AddListener(l)

	unsubscribe, _ := m.Subscribe(context.Background())
	defer unsubscribe()

	store.feed <- docstore.Snapshot{Documents: []docstore.Document{
		{ID: "bad", Data: map[string]interface{}{"age": "unknown"}},
		{ID: "good", Data: map[string]interface{}{"age": 30}},
	}}

	s := l.wait(t)
	if len(s.Patients) != 1 || s.Patients[0].ID != "good" {
		t.Errorf("unexpected patients %+v", s.Patients)
	}
}

func TestMirror_ErrorIsTerminal(t *testing.T) {
	store := newFeedStore()
	m := NewMirror(store, "patients", nil, zerolog.Nop())
	l := newRecordingListener()
	m.AddListener(l)

	unsubscribe, _ := m.Subscribe(context.Background())
	defer unsubscribe()

	cause := errors.New("permission denied")
	store.feed <- docstore.Snapshot{Err: cause}

	s := l.wait(t)
	if !errors.Is(s.Err, cause) || s.Loading {
		t.Fatalf("unexpected state %+v", s)
	}

	select {
	case store.feed <- docstore.Snapshot{}:
		t.Fatal("mirror kept consuming after an error")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMirror_SubscribeTwiceFails(t *testing.T) {
	m := NewMirror(newFeedStore(), "patients", nil, zerolog.Nop())

	unsubscribe, err := m.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unsubscribe()

	if _, err := m.Subscribe(context.Background()); !errors.Is(err, ErrAlreadySubscribed) {
		t.Errorf("expected ErrAlreadySubscribed, got %v", err)
	}
}

func TestMirror_WatchFailure(t *testing.T) {
	store := newFeedStore()
	store.watchErr = errors.New("unreachable")
	m := NewMirror(store, "patients", nil, zerolog.Nop())

	if _, err := m.Subscribe(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if m.Loading() || m.Err() == nil {
		t.Errorf("expected terminal error state, got loading=%v err=%v", m.Loading(), m.Err())
	}
}

func TestMirror_UnsubscribeStopsConsumer(t *testing.T) {
	m := NewMirror(docstore.NewMemory(), "patients", nil, zerolog.Nop())
	l := newRecordingListener()
	m.AddListener(l)

	unsubscribe, err := m.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.wait(t)

	done := make(chan struct{})
	go func() {
		unsubscribe()
		unsubscribe()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("unsubscribe did not return")
	}
}

func TestMirror_FollowsMemoryStore(t *testing.T) {
	store := docstore.NewMemory()
	m := NewMirror(store, "patients", nil, zerolog.Nop())
	l := newRecordingListener()
	m.AddListener(l)

	unsubscribe, _ := m.Subscribe(context.Background())
	defer unsubscribe()
	l.wait(t)

	repo := NewRepository(store, "patients", zerolog.Nop())
	id, err := repo.Create(context.Background(), clinicDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := l.wait(t)
	if len(s.Patients) != 1 || s.Patients[0].ID != id {
		t.Fatalf("unexpected patients %+v", s.Patients)
	}
	if s.Patients[0].Location() != "Clinic C-2023" {
		t.Errorf("unexpected location %q", s.Patients[0].Location())
	}
}
