package e2e

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/app"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/docstore"
	"github.com/WailSalutem-Health-Care/patient-dashboard/internal/testutil"
)

const testCollection = "patients"

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	App           *app.App
	Store         docstore.Store
	MockPublisher *testutil.MockPublisher
}

// SetupE2ETest starts the whole dashboard on store with a mock publisher
// and waits for the first snapshot. It is torn down when the test ends.
func SetupE2ETest(t *testing.T, store docstore.Store, collection string, now func() time.Time) *TestServer {
	t.Helper()

	mockPublisher := testutil.NewMockPublisher()

	a := app.New(app.Options{
		ServiceName:    "patient-dashboard-test",
		Collection:     collection,
		AllowedOrigins: []string{"*"},
		Store:          store,
		Publisher:      mockPublisher,
		Now:            now,
		Logger:         zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := a.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Failed to start dashboard: %v", err)
	}

	server := httptest.NewServer(a.Handler)

	ts := &TestServer{
		Server:        server,
		App:           a,
		Store:         store,
		MockPublisher: mockPublisher,
	}
	t.Cleanup(func() {
		server.Close()
		a.Stop()
		cancel()
	})

	testutil.Eventually(t, 2*time.Second, func() bool { return !a.Mirror.Loading() }, "first snapshot")
	return ts
}

// SetupMemoryE2ETest runs the dashboard on an in-memory store.
func SetupMemoryE2ETest(t *testing.T, now func() time.Time) *TestServer {
	t.Helper()
	return SetupE2ETest(t, docstore.NewMemory(), testCollection, now)
}

// NewClient creates a new HTTP test client for this server
func (ts *TestServer) NewClient() *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL)
}

// WaitForTotal waits until the mirror holds n patients.
func (ts *TestServer) WaitForTotal(t *testing.T, n int) {
	t.Helper()
	testutil.Eventually(t, 2*time.Second, func() bool {
		return len(ts.App.Mirror.Patients()) == n
	}, "patient count")
}

// StoredDocument reads one document straight from the store, bypassing the
// mirror.
func (ts *TestServer) StoredDocument(t *testing.T, id string) (map[string]interface{}, bool) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := ts.Store.Watch(ctx, testCollection)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	snap := <-snapshots
	if snap.Err != nil {
		t.Fatalf("snapshot failed: %v", snap.Err)
	}
	for _, doc := range snap.Documents {
		if doc.ID == id {
			return doc.Data, true
		}
	}
	return nil, false
}
