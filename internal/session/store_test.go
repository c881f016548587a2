package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yildizm/logdash/internal/api"
)

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

func TestNewStoreIsIdle(t *testing.T) {
	store := newTestStore(t, &fakeBackend{})
	snap := store.Snapshot()

	if snap.Scan != nil || snap.CurrentFile != "" || snap.RagStatus != api.RagIdle {
		t.Errorf("Expected empty idle session, got %+v", snap)
	}
	if snap.Uploading || snap.Querying || len(snap.Transcript) != 0 {
		t.Errorf("Expected no activity, got %+v", snap)
	}
}

func TestUploadScenario(t *testing.T) {
	backend := &fakeBackend{
		uploadFn: func(name, body string) (*api.ScanResult, error) {
			return scanResult(100, 5, api.Count{Name: "database", Count: 3}, api.Count{Name: "network", Count: 2}), nil
		},
		ragScript: []api.RagStatus{api.RagReady},
	}
	store := newTestStore(t, backend)

	result, err := store.Upload(context.Background(), "app.log", stringsReader("x"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if result.TotalLines != 100 {
		t.Errorf("Expected returned scan, got %+v", result)
	}

	snap := store.Snapshot()
	if snap.ErrorRate() != "5.00" {
		t.Errorf("Expected error rate 5.00, got %s", snap.ErrorRate())
	}
	if top, _ := snap.TopCategory(); top != "database" {
		t.Errorf("Expected top category database, got %q", top)
	}
	if snap.CurrentFile != "app.log" || snap.Uploading {
		t.Errorf("Expected current file set and upload finished, got %+v", snap)
	}
}

func TestUploadSetsBuildingAndStartsPoller(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{
		ragFn: func(ctx context.Context, call int) (*api.RagStatusResponse, error) {
			<-release
			return &api.RagStatusResponse{Status: api.RagReady}, nil
		},
	}
	store := newTestStore(t, backend)

	if _, err := store.Upload(context.Background(), "app.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	snap := store.Snapshot()
	if snap.RagStatus != api.RagBuilding || !snap.Polling {
		t.Errorf("Expected building with active poller, got %s polling=%v", snap.RagStatus, snap.Polling)
	}

	close(release)
	waitPoller(t, store.pollerDone())
	if got := store.Snapshot(); got.RagStatus != api.RagReady || got.Polling {
		t.Errorf("Expected ready with no poller, got %s polling=%v", got.RagStatus, got.Polling)
	}
}

func TestUploadStoresBaseNameWhenBackendOmitsFilename(t *testing.T) {
	backend := &fakeBackend{
		uploadFn: func(name, body string) (*api.ScanResult, error) {
			return &api.ScanResult{TotalLines: 1}, nil
		},
	}
	store := newTestStore(t, backend)

	if _, err := store.Upload(context.Background(), "/var/log/nginx/error.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if got := store.Snapshot().CurrentFile; got != "error.log" {
		t.Errorf("Expected error.log, got %q", got)
	}
}

func TestUploadClearsTranscript(t *testing.T) {
	backend := &fakeBackend{}
	store := readyStore(t, backend)

	if _, err := store.Query(context.Background(), "what failed?"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if n := len(store.Snapshot().Transcript); n != 2 {
		t.Fatalf("Expected 2 messages before re-upload, got %d", n)
	}

	if _, err := store.Upload(context.Background(), "other.log", stringsReader("y")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if n := len(store.Snapshot().Transcript); n != 0 {
		t.Errorf("Expected empty transcript after upload, got %d messages", n)
	}
}

func TestUploadValidation(t *testing.T) {
	backend := &fakeBackend{}
	store := newTestStore(t, backend)

	if _, err := store.Upload(context.Background(), "", stringsReader("x")); !errors.Is(err, ErrNoFile) {
		t.Errorf("Expected ErrNoFile for empty name, got %v", err)
	}
	if _, err := store.Upload(context.Background(), "a.log", nil); !errors.Is(err, ErrNoFile) {
		t.Errorf("Expected ErrNoFile for nil reader, got %v", err)
	}
	if upload, _, _, _ := backend.calls(); upload != 0 {
		t.Errorf("Expected no backend calls, got %d", upload)
	}
}

func TestUploadInFlightRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		uploadFn: func(name, body string) (*api.ScanResult, error) {
			close(entered)
			<-release
			return &api.ScanResult{Filename: name}, nil
		},
	}
	store := newTestStore(t, backend)

	done := make(chan error, 1)
	go func() {
		_, err := store.Upload(context.Background(), "a.log", stringsReader("x"))
		done <- err
	}()
	<-entered

	if !store.Snapshot().Uploading {
		t.Error("Expected uploading flag during upload")
	}
	if _, err := store.Upload(context.Background(), "b.log", stringsReader("y")); !errors.Is(err, ErrUploadInFlight) {
		t.Errorf("Expected ErrUploadInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("First upload failed: %v", err)
	}
	if upload, _, _, _ := backend.calls(); upload != 1 {
		t.Errorf("Expected exactly one backend upload, got %d", upload)
	}
}

func TestFailedUploadKeepsState(t *testing.T) {
	first := scanResult(10, 1, api.Count{Name: "io", Count: 1})
	var uploads int32
	backend := &fakeBackend{
		uploadFn: func(name, body string) (*api.ScanResult, error) {
			if atomic.AddInt32(&uploads, 1) == 1 {
				return first, nil
			}
			return nil, &api.TransportError{Type: api.ErrTypeBackend, Op: "upload", StatusCode: 413, Detail: "file too large"}
		},
	}
	store := readyStore(t, backend)

	if _, err := store.Query(context.Background(), "hello"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	_, err := store.Upload(context.Background(), "huge.log", stringsReader("zzz"))
	if err == nil || err.Error() != "file too large" {
		t.Fatalf("Expected 'file too large', got %v", err)
	}

	snap := store.Snapshot()
	if snap.Scan != first {
		t.Error("Expected previous scan result to remain current")
	}
	if snap.RagStatus != api.RagReady || snap.CurrentFile != "app.log" {
		t.Errorf("Expected previous session to stay ready, got %s / %q", snap.RagStatus, snap.CurrentFile)
	}
	if len(snap.Transcript) != 2 || snap.Uploading {
		t.Errorf("Expected transcript kept and upload finished, got %d messages uploading=%v", len(snap.Transcript), snap.Uploading)
	}
}

func TestFailedUploadOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"file too large"}`))
	}))
	defer server.Close()

	client, err := api.New(server.URL)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	store := newTestStore(t, client)

	_, err = store.Upload(context.Background(), "big.log", stringsReader("x"))
	if err == nil || err.Error() != "file too large" {
		t.Fatalf("Expected 'file too large', got %v", err)
	}
	if snap := store.Snapshot(); snap.Scan != nil || snap.RagStatus != api.RagIdle {
		t.Errorf("Expected untouched state, got %+v", snap)
	}
}

func TestFailedUploadResumesPriorBuild(t *testing.T) {
	var uploads int32
	var ready atomic.Bool
	backend := &fakeBackend{
		uploadFn: func(name, body string) (*api.ScanResult, error) {
			if atomic.AddInt32(&uploads, 1) == 1 {
				return &api.ScanResult{Filename: name}, nil
			}
			return nil, errors.New("connection reset")
		},
		ragFn: func(ctx context.Context, call int) (*api.RagStatusResponse, error) {
			if ready.Load() {
				return &api.RagStatusResponse{Status: api.RagReady}, nil
			}
			return &api.RagStatusResponse{Status: api.RagBuilding}, nil
		},
	}
	store := newTestStore(t, backend)

	if _, err := store.Upload(context.Background(), "a.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if _, err := store.Upload(context.Background(), "b.log", stringsReader("y")); err == nil {
		t.Fatal("Expected second upload to fail")
	}

	snap := store.Snapshot()
	if snap.RagStatus != api.RagBuilding || !snap.Polling {
		t.Fatalf("Expected prior build to be polled again, got %s polling=%v", snap.RagStatus, snap.Polling)
	}

	ready.Store(true)
	waitPoller(t, store.pollerDone())
	if got := store.Snapshot().RagStatus; got != api.RagReady {
		t.Errorf("Expected ready, got %s", got)
	}
}

func TestPollerScriptedSequence(t *testing.T) {
	backend := &fakeBackend{
		ragScript: []api.RagStatus{api.RagBuilding, api.RagBuilding, api.RagReady},
	}
	store := newTestStore(t, backend)

	if _, err := store.Upload(context.Background(), "app.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	waitPoller(t, store.pollerDone())

	// give a would-be extra tick time to fire
	time.Sleep(20 * time.Millisecond)

	if _, rag, _, _ := backend.calls(); rag != 3 {
		t.Errorf("Expected exactly 3 status requests, got %d", rag)
	}
	if got := store.Snapshot().RagStatus; got != api.RagReady {
		t.Errorf("Expected ready, got %s", got)
	}
}

func TestPollerStopsOnError(t *testing.T) {
	backend := &fakeBackend{
		ragFn: func(ctx context.Context, call int) (*api.RagStatusResponse, error) {
			if call == 1 {
				return &api.RagStatusResponse{Status: api.RagBuilding}, nil
			}
			return &api.RagStatusResponse{Status: api.RagError, Error: "embedding model missing"}, nil
		},
	}
	store := newTestStore(t, backend)

	if _, err := store.Upload(context.Background(), "app.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	waitPoller(t, store.pollerDone())

	snap := store.Snapshot()
	if snap.RagStatus != api.RagError || snap.RagError != "embedding model missing" {
		t.Errorf("Expected error status with backend message, got %s %q", snap.RagStatus, snap.RagError)
	}
	if _, rag, _, _ := backend.calls(); rag != 2 {
		t.Errorf("Expected 2 status requests, got %d", rag)
	}
}

func TestPollerGivesUpAfterConsecutiveFailures(t *testing.T) {
	backend := &fakeBackend{
		ragFn: func(ctx context.Context, call int) (*api.RagStatusResponse, error) {
			if call == 2 {
				return &api.RagStatusResponse{Status: "indexing"}, nil
			}
			return nil, errors.New("connection refused")
		},
	}
	store := newTestStore(t, backend, WithMaxPollFailures(3))

	if _, err := store.Upload(context.Background(), "app.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	waitPoller(t, store.pollerDone())

	snap := store.Snapshot()
	if snap.RagStatus != api.RagError {
		t.Errorf("Expected error after repeated failures, got %s", snap.RagStatus)
	}
	if !strings.Contains(snap.RagError, "connection refused") {
		t.Errorf("Expected failure cause in message, got %q", snap.RagError)
	}
	if _, rag, _, _ := backend.calls(); rag != 3 {
		t.Errorf("Expected 3 status requests, got %d", rag)
	}
}

func TestPollerTimeout(t *testing.T) {
	backend := &fakeBackend{ragScript: []api.RagStatus{api.RagBuilding}}
	store := newTestStore(t, backend, WithPollInterval(5*time.Millisecond), WithPollTimeout(30*time.Millisecond))

	if _, err := store.Upload(context.Background(), "app.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	waitPoller(t, store.pollerDone())

	if got := store.Snapshot().RagStatus; got != api.RagError {
		t.Errorf("Expected error after poll timeout, got %s", got)
	}
}

func TestStalePollerResponseDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		ragFn: func(ctx context.Context, call int) (*api.RagStatusResponse, error) {
			if call == 1 {
				close(started)
				<-release
				return &api.RagStatusResponse{Status: api.RagError, Error: "stale"}, nil
			}
			return &api.RagStatusResponse{Status: api.RagReady}, nil
		},
	}
	store := newTestStore(t, backend)

	if _, err := store.Upload(context.Background(), "first.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	firstDone := store.pollerDone()
	<-started

	if _, err := store.Upload(context.Background(), "second.log", stringsReader("y")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	waitPoller(t, store.pollerDone())

	close(release)
	waitPoller(t, firstDone)

	snap := store.Snapshot()
	if snap.RagStatus != api.RagReady || snap.RagError != "" {
		t.Errorf("Expected stale response to be ignored, got %s %q", snap.RagStatus, snap.RagError)
	}
	if snap.CurrentFile != "second.log" {
		t.Errorf("Expected second.log, got %q", snap.CurrentFile)
	}
	if _, rag, _, _ := backend.calls(); rag != 2 {
		t.Errorf("Expected superseded poller to stop after its pending request, got %d requests", rag)
	}
}

func TestQueryNotReadyDoesNothing(t *testing.T) {
	for _, status := range []api.RagStatus{api.RagIdle, api.RagBuilding, api.RagError} {
		t.Run(string(status), func(t *testing.T) {
			backend := &fakeBackend{}
			store := newTestStore(t, backend)
			store.ragStatus = status

			_, err := store.Query(context.Background(), "why?")
			if !errors.Is(err, ErrNotReady) {
				t.Errorf("Expected ErrNotReady, got %v", err)
			}
			if n := len(store.Snapshot().Transcript); n != 0 {
				t.Errorf("Expected no transcript change, got %d messages", n)
			}
			if _, _, query, _ := backend.calls(); query != 0 {
				t.Errorf("Expected no backend query, got %d", query)
			}
		})
	}
}

func TestQueryEmptyQuestion(t *testing.T) {
	backend := &fakeBackend{}
	store := readyStore(t, backend)

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := store.Query(context.Background(), q); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("Expected ErrEmptyQuestion for %q, got %v", q, err)
		}
	}
	if _, _, query, _ := backend.calls(); query != 0 {
		t.Errorf("Expected no backend query, got %d", query)
	}
}

func TestQuerySuccess(t *testing.T) {
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	backend := &fakeBackend{
		queryFn: func(ctx context.Context, q string) (*api.QueryResponse, error) {
			return &api.QueryResponse{Answer: "The database was down."}, nil
		},
	}
	store := newTestStore(t, backend, WithClock(func() time.Time { return clock }))
	store.ragStatus = api.RagReady

	reply, err := store.Query(context.Background(), "  Why did the server crash?  ")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	transcript := store.Snapshot().Transcript
	if len(transcript) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(transcript))
	}
	if transcript[0].Role != RoleUser || transcript[0].Text != "Why did the server crash?" {
		t.Errorf("Unexpected user message %+v", transcript[0])
	}
	if transcript[1].Role != RoleAssistant || transcript[1].Text != "The database was down." || transcript[1].Failed {
		t.Errorf("Unexpected assistant message %+v", transcript[1])
	}
	if reply.ID != transcript[1].ID || reply.ID == transcript[0].ID || reply.ID == "" {
		t.Errorf("Expected distinct message IDs, got %q and %q", transcript[0].ID, reply.ID)
	}
	if !transcript[0].Timestamp.Equal(clock) {
		t.Errorf("Expected timestamp from clock, got %v", transcript[0].Timestamp)
	}
	if store.Snapshot().Querying {
		t.Error("Expected querying flag cleared")
	}
}

func TestQueryFailureAppendsErrorMessage(t *testing.T) {
	backend := &fakeBackend{
		queryFn: func(ctx context.Context, q string) (*api.QueryResponse, error) {
			return nil, &api.TransportError{Type: api.ErrTypeBackend, Op: "query", StatusCode: 500, Detail: "LLM unavailable"}
		},
	}
	store := newTestStore(t, backend)
	store.ragStatus = api.RagReady

	reply, err := store.Query(context.Background(), "what happened?")
	if err == nil {
		t.Fatal("Expected query error")
	}
	if reply.Text != "⚠️ Error: LLM unavailable" || !reply.Failed {
		t.Errorf("Unexpected surrogate %+v", reply)
	}

	transcript := store.Snapshot().Transcript
	if len(transcript) != 2 || transcript[0].Text != "what happened?" || transcript[1].Text != reply.Text {
		t.Errorf("Expected question kept and error appended, got %+v", transcript)
	}
	if store.Snapshot().Querying {
		t.Error("Expected querying flag cleared after failure")
	}
}

func TestQueryInFlightRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		queryFn: func(ctx context.Context, q string) (*api.QueryResponse, error) {
			close(entered)
			<-release
			return &api.QueryResponse{Answer: "ok"}, nil
		},
	}
	store := newTestStore(t, backend)
	store.ragStatus = api.RagReady

	done := make(chan error, 1)
	go func() {
		_, err := store.Query(context.Background(), "first")
		done <- err
	}()
	<-entered

	snap := store.Snapshot()
	if !snap.Querying || len(snap.Transcript) != 1 {
		t.Errorf("Expected user message appended before the reply, got querying=%v %d messages", snap.Querying, len(snap.Transcript))
	}

	if _, err := store.Query(context.Background(), "second"); !errors.Is(err, ErrQueryInFlight) {
		t.Errorf("Expected ErrQueryInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if n := len(store.Snapshot().Transcript); n != 2 {
		t.Errorf("Expected 2 messages, got %d", n)
	}
}

func TestQueryReplyDroppedAfterNewUpload(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := &fakeBackend{
		queryFn: func(ctx context.Context, q string) (*api.QueryResponse, error) {
			close(entered)
			<-release
			return &api.QueryResponse{Answer: "late"}, nil
		},
	}
	store := readyStore(t, backend)

	done := make(chan error, 1)
	go func() {
		_, err := store.Query(context.Background(), "old question")
		done <- err
	}()
	<-entered

	if _, err := store.Upload(context.Background(), "new.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	close(release)
	<-done

	snap := store.Snapshot()
	if len(snap.Transcript) != 0 {
		t.Errorf("Expected reply for replaced session to be dropped, got %+v", snap.Transcript)
	}
	if snap.Querying {
		t.Error("Expected querying flag cleared")
	}
}

func TestInitialize(t *testing.T) {
	name := "previous.log"
	backend := &fakeBackend{
		status:   &api.StatusResponse{Ready: true, Filename: &name, Saved: true},
		patterns: &api.PatternsResponse{Patterns: []string{"Timeout"}, Descriptions: map[string]string{"Timeout": "Timeout"}},
	}
	store := newTestStore(t, backend)

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	snap := store.Snapshot()
	if !snap.IsReady() || snap.CurrentFile != "previous.log" {
		t.Errorf("Expected ready previous.log, got %s %q", snap.RagStatus, snap.CurrentFile)
	}
	if snap.Scan != nil {
		t.Error("Expected no scan result from status check")
	}
	if snap.Patterns == nil || len(snap.Patterns.Patterns) != 1 {
		t.Errorf("Expected patterns loaded, got %+v", snap.Patterns)
	}
}

func TestInitializeNotReady(t *testing.T) {
	store := newTestStore(t, &fakeBackend{status: &api.StatusResponse{Ready: false}})

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if snap := store.Snapshot(); snap.RagStatus != api.RagIdle || snap.CurrentFile != "" {
		t.Errorf("Expected idle defaults, got %+v", snap)
	}
}

func TestInitializeFailureIsNonFatal(t *testing.T) {
	backend := &fakeBackend{
		statusErr: errors.New("dial tcp: connection refused"),
		patterns:  &api.PatternsResponse{Patterns: []string{"Timeout"}},
	}
	store := newTestStore(t, backend)

	if err := store.Initialize(context.Background()); err == nil {
		t.Error("Expected Initialize to report the failed status check")
	}

	snap := store.Snapshot()
	if snap.RagStatus != api.RagIdle || snap.Scan != nil {
		t.Errorf("Expected defaults after failure, got %+v", snap)
	}
	if snap.Patterns == nil {
		t.Error("Expected patterns to load even though status failed")
	}
}

func TestRescan(t *testing.T) {
	backend := &fakeBackend{
		rescanFn: func(patterns []string) (*api.ScanResult, error) {
			return scanResult(10, 2, api.Count{Name: "network", Count: 2}), nil
		},
	}
	store := newTestStore(t, backend)

	if _, err := store.Rescan(context.Background(), []string{"Timeout"}); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession before upload, got %v", err)
	}

	store = readyStore(t, backend)
	if _, err := store.Query(context.Background(), "q"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if _, err := store.Rescan(context.Background(), nil); !errors.Is(err, ErrNoPatterns) {
		t.Errorf("Expected ErrNoPatterns, got %v", err)
	}

	result, err := store.Rescan(context.Background(), []string{"Timeout"})
	if err != nil {
		t.Fatalf("Rescan failed: %v", err)
	}

	snap := store.Snapshot()
	if snap.Scan != result || snap.Scan.ErrorCount != 2 {
		t.Errorf("Expected scan replaced, got %+v", snap.Scan)
	}
	if snap.CurrentFile != "app.log" || snap.Scan.Filename != "app.log" {
		t.Errorf("Expected filename kept, got %q / %q", snap.CurrentFile, snap.Scan.Filename)
	}
	if !snap.IsReady() || len(snap.Transcript) != 2 {
		t.Errorf("Expected status and transcript untouched, got %s with %d messages", snap.RagStatus, len(snap.Transcript))
	}
}

func TestSubscribe(t *testing.T) {
	store := newTestStore(t, &fakeBackend{})
	events, unsubscribe := store.Subscribe()
	defer unsubscribe()

	if _, err := store.Upload(context.Background(), "app.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	seen := make(map[EventType]bool)
	timeout := time.After(time.Second)
	for !seen[EventScan] || !seen[EventChat] {
		select {
		case ev := <-events:
			seen[ev.Type] = true
		case <-timeout:
			t.Fatalf("Missing events, saw %v", seen)
		}
	}
}

func TestCloseClosesSubscriptions(t *testing.T) {
	store := New(&fakeBackend{})
	events, unsubscribe := store.Subscribe()

	store.Close()
	store.Close()
	unsubscribe()

	for range events {
	}

	late, _ := store.Subscribe()
	if _, ok := <-late; ok {
		t.Error("Expected subscription on closed store to be closed")
	}
}

func TestCloseWaitsForPoller(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	backend := &fakeBackend{
		ragFn: func(ctx context.Context, call int) (*api.RagStatusResponse, error) {
			if call == 1 {
				close(started)
			}
			<-ctx.Done()
			// a request still unwinding after cancellation
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
			return nil, ctx.Err()
		},
	}
	store := New(backend, WithPollInterval(time.Millisecond))

	if _, err := store.Upload(context.Background(), "app.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("Poller never queried the index status")
	}

	done := store.pollerDone()
	store.Close()

	select {
	case <-done:
	default:
		t.Fatal("Expected the poller to have exited when Close returned")
	}
	if !finished.Load() {
		t.Error("Expected the in-flight status request to complete before Close returned")
	}
	_, rag, _, _ := backend.calls()
	if rag != 1 {
		t.Errorf("Expected no status requests after Close, got %d", rag)
	}
}

func TestWaitForRag(t *testing.T) {
	backend := &fakeBackend{ragScript: []api.RagStatus{api.RagBuilding, api.RagBuilding, api.RagReady}}
	store := newTestStore(t, backend)

	if _, err := store.WaitForRag(context.Background()); !errors.Is(err, ErrNotPolling) {
		t.Errorf("Expected ErrNotPolling on idle store, got %v", err)
	}

	if _, err := store.Upload(context.Background(), "app.log", stringsReader("x")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status, err := store.WaitForRag(ctx)
	if err != nil || status != api.RagReady {
		t.Errorf("Expected ready, got %s (%v)", status, err)
	}
}
