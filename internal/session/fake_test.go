package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/yildizm/logdash/internal/api"
)

type fakeBackend struct {
	mu sync.Mutex

	status      *api.StatusResponse
	statusErr   error
	patterns    *api.PatternsResponse
	patternsErr error

	uploadFn    func(name string, body string) (*api.ScanResult, error)
	uploadCalls int

	ragScript []api.RagStatus
	ragFn     func(ctx context.Context, call int) (*api.RagStatusResponse, error)
	ragCalls  int

	queryFn    func(ctx context.Context, question string) (*api.QueryResponse, error)
	queryCalls int

	rescanFn    func(patterns []string) (*api.ScanResult, error)
	rescanCalls int
}

func (f *fakeBackend) Status(ctx context.Context) (*api.StatusResponse, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.status == nil {
		return &api.StatusResponse{}, nil
	}
	return f.status, nil
}

func (f *fakeBackend) Patterns(ctx context.Context) (*api.PatternsResponse, error) {
	if f.patternsErr != nil {
		return nil, f.patternsErr
	}
	if f.patterns == nil {
		return &api.PatternsResponse{}, nil
	}
	return f.patterns, nil
}

func (f *fakeBackend) Upload(ctx context.Context, name string, r io.Reader) (*api.ScanResult, error) {
	f.mu.Lock()
	f.uploadCalls++
	fn := f.uploadFn
	f.mu.Unlock()

	body, _ := io.ReadAll(r)
	if fn == nil {
		return &api.ScanResult{Filename: name, TotalLines: 1}, nil
	}
	return fn(name, string(body))
}

func (f *fakeBackend) RagStatus(ctx context.Context) (*api.RagStatusResponse, error) {
	f.mu.Lock()
	f.ragCalls++
	call := f.ragCalls
	fn := f.ragFn
	var status api.RagStatus
	if fn == nil {
		switch {
		case len(f.ragScript) == 0:
			status = api.RagReady
		case call <= len(f.ragScript):
			status = f.ragScript[call-1]
		default:
			status = f.ragScript[len(f.ragScript)-1]
		}
	}
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, call)
	}
	return &api.RagStatusResponse{Status: status}, nil
}

func (f *fakeBackend) Query(ctx context.Context, question string) (*api.QueryResponse, error) {
	f.mu.Lock()
	f.queryCalls++
	fn := f.queryFn
	f.mu.Unlock()

	if fn == nil {
		return &api.QueryResponse{Answer: "answer to " + question}, nil
	}
	return fn(ctx, question)
}

func (f *fakeBackend) Rescan(ctx context.Context, patterns []string) (*api.ScanResult, error) {
	f.mu.Lock()
	f.rescanCalls++
	fn := f.rescanFn
	f.mu.Unlock()

	if fn == nil {
		return nil, errors.New("rescan not scripted")
	}
	return fn(patterns)
}

func (f *fakeBackend) calls() (upload, rag, query, rescan int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadCalls, f.ragCalls, f.queryCalls, f.rescanCalls
}

func newTestStore(t *testing.T, backend Backend, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithPollInterval(time.Millisecond)}, opts...)
	store := New(backend, opts...)
	t.Cleanup(store.Close)
	return store
}

func waitPoller(t *testing.T, done <-chan struct{}) {
	t.Helper()
	if done == nil {
		t.Fatal("No poller was started")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Poller did not stop")
	}
}

// readyStore uploads a file and waits for the index to become ready.
func readyStore(t *testing.T, backend *fakeBackend) *Store {
	t.Helper()
	store := newTestStore(t, backend)
	if _, err := store.Upload(context.Background(), "app.log", stringsReader("ERROR boom")); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	waitPoller(t, store.pollerDone())
	if !store.Snapshot().IsReady() {
		t.Fatalf("Expected ready store, got %s", store.Snapshot().RagStatus)
	}
	return store
}

func scanResult(total, errCount int, categories ...api.Count) *api.ScanResult {
	return &api.ScanResult{
		Filename:   "app.log",
		TotalLines: total,
		ErrorCount: errCount,
		Categories: api.NewCounts(categories...),
	}
}
