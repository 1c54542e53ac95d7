package dashboard

import (
	"time"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/patient"
)

// Message types pushed to browsers.
const (
	MessageSnapshot = "snapshot"
	MessageError    = "error"
)

// FetchFailedMessage is shown once the live query has failed.
const FetchFailedMessage = "Failed to fetch patients"

// Message is the payload of one push.
type Message struct {
	Type    string `json:"type"`
	Stats   *Stats `json:"stats,omitempty"`
	Rows    []Row  `json:"rows,omitempty"`
	Message string `json:"message,omitempty"`
}

// Broadcaster fans a message out to connected browsers.
type Broadcaster interface {
	Broadcast(v interface{})
}

// StatsRecorder publishes the aggregates as metrics.
type StatsRecorder interface {
	SetStats(total, newCount, discharged int, byCategory map[string]int)
}

// Feed turns mirror updates into pushes and metric updates.
type Feed struct {
	broadcaster Broadcaster
	recorder    StatsRecorder
	now         func() time.Time
}

var _ patient.Listener = (*Feed)(nil)

// NewFeed creates a mirror listener. recorder may be nil.
func NewFeed(b Broadcaster, recorder StatsRecorder, now func() time.Time) *Feed {
	if now == nil {
		now = time.Now
	}
	return &Feed{broadcaster: b, recorder: recorder, now: now}
}

func (f *Feed) MirrorUpdated(s patient.State) {
	msg, ok := f.Snapshot(s)
	if !ok {
		return
	}
	f.record(msg)
	f.broadcaster.Broadcast(msg)
}

// Snapshot builds the push for s at the current instant. It reports false
// while the mirror is loading.
func (f *Feed) Snapshot(s patient.State) (Message, bool) {
	if s.Err != nil {
		return Message{Type: MessageError, Message: FetchFailedMessage}, true
	}
	if s.Loading {
		return Message{}, false
	}

	stats := ComputeStats(s.Patients, f.now())
	return Message{
		Type:  MessageSnapshot,
		Stats: &stats,
		Rows:  NewRows(s.Patients),
	}, true
}

// Replay returns the hub replay source: the snapshot of r computed when a
// browser connects, so "new" counts against the connect time.
func (f *Feed) Replay(r patient.Reader) func() (interface{}, bool) {
	return func() (interface{}, bool) {
		msg, ok := f.Snapshot(r.State())
		if ok {
			f.record(msg)
		}
		return msg, ok
	}
}

// Refresh recomputes the recorded stats from r at the current instant.
func (f *Feed) Refresh(r patient.Reader) {
	if msg, ok := f.Snapshot(r.State()); ok {
		f.record(msg)
	}
}

func (f *Feed) record(msg Message) {
	if f.recorder == nil || msg.Stats == nil {
		return
	}
	f.recorder.SetStats(msg.Stats.Total, msg.Stats.New, msg.Stats.Discharged, msg.Stats.ByCategory)
}
