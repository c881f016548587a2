package session

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/logger"
)

const (
	DefaultPollInterval    = 3 * time.Second
	DefaultMaxPollFailures = 5
	DefaultPollTimeout     = 10 * time.Minute

	// ErrorPrefix marks an assistant message that replaces a failed answer
	ErrorPrefix = "⚠️ Error: "
)

// Backend is the part of the transport client the store depends on
type Backend interface {
	Status(ctx context.Context) (*api.StatusResponse, error)
	Patterns(ctx context.Context) (*api.PatternsResponse, error)
	Upload(ctx context.Context, name string, r io.Reader) (*api.ScanResult, error)
	RagStatus(ctx context.Context) (*api.RagStatusResponse, error)
	Query(ctx context.Context, question string) (*api.QueryResponse, error)
	Rescan(ctx context.Context, patterns []string) (*api.ScanResult, error)
}

// Store owns the session state. All mutation goes through its methods and
// all reads go through Snapshot.
type Store struct {
	backend         Backend
	log             *logger.Logger
	pollInterval    time.Duration
	pollTimeout     time.Duration
	maxPollFailures int
	now             func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	bus    *bus

	mu          sync.Mutex
	scan        *api.ScanResult
	currentFile string
	ragStatus   api.RagStatus
	ragError    string
	uploading   bool
	querying    bool
	rescanning  bool
	transcript  []ChatMessage
	patterns    *api.PatternsResponse

	// fileGen changes whenever a new upload replaces the session
	fileGen uint64
	// pollGen identifies the only poller allowed to write ragStatus
	pollGen    uint64
	polling    bool
	pollCancel context.CancelFunc
	pollDone   chan struct{}
	closed     bool
}

// Option configures a Store
type Option func(*Store)

// WithPollInterval sets the delay between status polls
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMaxPollFailures sets how many consecutive failed polls mark the index as failed
func WithMaxPollFailures(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxPollFailures = n
		}
	}
}

// WithPollTimeout bounds how long one index build is waited for
func WithPollTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollTimeout = d
		}
	}
}

// WithLogger sets the store logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the time source for message timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an idle, empty session
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:         backend,
		log:             logger.Nop(),
		pollInterval:    DefaultPollInterval,
		pollTimeout:     DefaultPollTimeout,
		maxPollFailures: DefaultMaxPollFailures,
		now:             time.Now,
		ragStatus:       api.RagIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.bus = newBus(s.log)
	return s
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := make([]ChatMessage, len(s.transcript))
	copy(transcript, s.transcript)

	return Snapshot{
		Scan:        s.scan,
		CurrentFile: s.currentFile,
		RagStatus:   s.ragStatus,
		RagError:    s.ragError,
		Uploading:   s.uploading,
		Querying:    s.querying,
		Rescanning:  s.rescanning,
		Polling:     s.polling,
		Transcript:  transcript,
		Patterns:    s.patterns,
	}
}

// Subscribe returns a channel of change notifications and a function that
// unsubscribes and closes it.
func (s *Store) Subscribe() (<-chan Event, func()) {
	return s.bus.subscribe()
}

// Initialize picks up an index left ready by an earlier session and loads
// the pattern list. Failures leave the defaults in place.
func (s *Store) Initialize(ctx context.Context) error {
	var (
		g        errgroup.Group
		status   *api.StatusResponse
		patterns *api.PatternsResponse
	)

	g.Go(func() error {
		resp, err := s.backend.Status(ctx)
		if err != nil {
			s.log.Warn("status check failed: %v", err)
			return err
		}
		status = resp
		return nil
	})
	g.Go(func() error {
		resp, err := s.backend.Patterns(ctx)
		if err != nil {
			s.log.Warn("loading patterns failed: %v", err)
			return err
		}
		patterns = resp
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	changed := false
	if status != nil && status.Ready && s.ragStatus == api.RagIdle && !s.uploading {
		s.ragStatus = api.RagReady
		if status.Filename != nil {
			s.currentFile = *status.Filename
		}
		changed = true
	}
	if patterns != nil {
		s.patterns = patterns
	}
	s.mu.Unlock()

	if changed {
		s.log.InfoWithFields("resumed ready index", []logger.Field{logger.F("file", s.Snapshot().CurrentFile)})
		s.bus.publish(EventRag, EventScan)
	}
	return err
}

// Upload sends a new log file. On success the scan replaces the current
// one, the transcript is cleared, and a fresh status poller starts. On
// failure the previous session stays usable.
func (s *Store) Upload(ctx context.Context, name string, r io.Reader) (*api.ScanResult, error) {
	if strings.TrimSpace(name) == "" || r == nil {
		return nil, ErrNoFile
	}

	s.mu.Lock()
	if s.uploading {
		s.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	prevStatus := s.ragStatus
	prevFile := s.currentFile
	s.uploading = true
	s.ragStatus = api.RagIdle
	s.stopPollerLocked()
	s.mu.Unlock()
	s.bus.publish(EventBusy, EventRag)

	s.log.InfoWithFields("uploading", []logger.Field{logger.F("file", name)})
	result, err := s.backend.Upload(ctx, name, r)

	s.mu.Lock()
	s.uploading = false
	if err != nil {
		s.ragStatus = prevStatus
		if prevFile != "" && prevStatus == api.RagBuilding {
			s.startPollerLocked()
		}
		s.mu.Unlock()
		s.log.WarnWithFields("upload failed", []logger.Field{logger.F("file", name), logger.Err(err)})
		s.bus.publish(EventBusy, EventRag)
		return nil, err
	}

	if result.Filename == "" {
		result.Filename = filepath.Base(name)
	}
	s.scan = result
	s.currentFile = result.Filename
	s.ragStatus = api.RagBuilding
	s.ragError = ""
	s.transcript = nil
	s.fileGen++
	s.startPollerLocked()
	s.mu.Unlock()

	s.log.InfoWithFields("upload complete", []logger.Field{
		logger.F("file", result.Filename), logger.F("lines", result.TotalLines), logger.F("errors", result.ErrorCount),
	})
	s.bus.publish(EventScan, EventRag, EventChat, EventBusy)
	return result, nil
}

// Query asks the backend about the current file. The user's question is in
// the transcript before the request is sent; the answer, or an error
// message in its place, is appended when it returns.
func (s *Store) Query(ctx context.Context, question string) (ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ChatMessage{}, ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.ragStatus != api.RagReady {
		s.mu.Unlock()
		return ChatMessage{}, ErrNotReady
	}
	if s.querying {
		s.mu.Unlock()
		return ChatMessage{}, ErrQueryInFlight
	}
	s.querying = true
	gen := s.fileGen
	s.transcript = append(s.transcript, s.message(RoleUser, question))
	s.mu.Unlock()
	s.bus.publish(EventChat, EventBusy)

	resp, err := s.backend.Query(ctx, question)

	var reply ChatMessage
	if err != nil {
		reply = s.message(RoleAssistant, ErrorPrefix+api.Message(err))
		reply.Failed = true
		s.log.WarnWithFields("query failed", []logger.Field{logger.Err(err)})
	} else {
		reply = s.message(RoleAssistant, resp.Answer)
	}

	s.mu.Lock()
	s.querying = false
	// a new upload cleared the transcript the question belonged to
	if gen == s.fileGen {
		s.transcript = append(s.transcript, reply)
	}
	s.mu.Unlock()
	s.bus.publish(EventChat, EventBusy)

	return reply, err
}

// Rescan re-runs the scan of the current file with the given patterns.
// The index status and transcript are left alone.
func (s *Store) Rescan(ctx context.Context, patterns []string) (*api.ScanResult, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	s.mu.Lock()
	switch {
	case s.currentFile == "":
		s.mu.Unlock()
		return nil, ErrNoSession
	case s.uploading:
		s.mu.Unlock()
		return nil, ErrUploadInFlight
	case s.rescanning:
		s.mu.Unlock()
		return nil, ErrRescanInFlight
	}
	s.rescanning = true
	gen := s.fileGen
	file := s.currentFile
	s.mu.Unlock()
	s.bus.publish(EventBusy)

	result, err := s.backend.Rescan(ctx, patterns)

	s.mu.Lock()
	s.rescanning = false
	applied := false
	if err == nil && gen == s.fileGen {
		if result.Filename == "" {
			result.Filename = file
		}
		s.scan = result
		applied = true
	}
	s.mu.Unlock()

	if applied {
		s.bus.publish(EventScan, EventBusy)
	} else {
		s.bus.publish(EventBusy)
	}
	if err != nil {
		s.log.WarnWithFields("rescan failed", []logger.Field{logger.Err(err)})
		return nil, err
	}
	return result, nil
}

// WaitForRag blocks until the index reaches ready or error.
func (s *Store) WaitForRag(ctx context.Context) (api.RagStatus, error) {
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	for {
		snap := s.Snapshot()
		if snap.RagStatus.Terminal() {
			return snap.RagStatus, nil
		}
		if !snap.Polling && !snap.Uploading {
			return snap.RagStatus, ErrNotPolling
		}

		select {
		case <-ctx.Done():
			return snap.RagStatus, ctx.Err()
		case _, ok := <-events:
			if !ok {
				return s.Snapshot().RagStatus, ErrClosed
			}
		}
	}
}

// Close stops the poller, waits for it to exit and closes every
// subscription.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopPollerLocked()
	done := s.pollDone
	s.mu.Unlock()

	s.cancel()
	// the poller may be inside a request; it must not outlive Close
	if done != nil {
		<-done
	}
	s.bus.close()
}

func (s *Store) message(role Role, text string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: s.now(),
	}
}
