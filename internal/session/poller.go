package session

import (
	"context"
	"fmt"
	"time"

	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/logger"
)

// startPollerLocked supersedes any running poller and starts a new one.
func (s *Store) startPollerLocked() {
	if s.closed {
		return
	}
	s.stopPollerLocked()

	gen := s.pollGen
	ctx, cancel := context.WithTimeout(s.ctx, s.pollTimeout)
	done := make(chan struct{})
	s.pollCancel = cancel
	s.pollDone = done
	s.polling = true

	go s.poll(ctx, gen, done)
}

// stopPollerLocked invalidates the current poller so none of its pending
// responses are applied.
func (s *Store) stopPollerLocked() {
	s.pollGen++
	s.polling = false
	if s.pollCancel != nil {
		s.pollCancel()
		s.pollCancel = nil
	}
}

func (s *Store) poll(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	defer s.finishPoll(gen)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		resp, err := s.backend.RagStatus(ctx)
		if !s.applyPoll(ctx, gen, resp, err, &failures) {
			return
		}

		select {
		case <-ctx.Done():
			s.expirePoll(ctx, gen)
			return
		case <-ticker.C:
		}
	}
}

// applyPoll records one poll response and reports whether polling continues.
func (s *Store) applyPoll(ctx context.Context, gen uint64, resp *api.RagStatusResponse, err error, failures *int) bool {
	s.mu.Lock()
	if gen != s.pollGen {
		s.mu.Unlock()
		return false
	}

	if err == nil && !resp.Status.Valid() {
		err = fmt.Errorf("unknown index status %q", resp.Status)
	}
	if err != nil {
		if ctx.Err() != nil {
			s.mu.Unlock()
			s.expirePoll(ctx, gen)
			return false
		}
		*failures++
		if *failures < s.maxPollFailures {
			s.mu.Unlock()
			s.log.WarnWithFields("status poll failed", []logger.Field{logger.F("attempt", *failures), logger.Err(err)})
			return true
		}
		s.ragStatus = api.RagError
		s.ragError = fmt.Sprintf("index status unavailable after %d attempts: %s", *failures, api.Message(err))
		s.mu.Unlock()
		s.log.Error("giving up on index status: %v", err)
		s.bus.publish(EventRag)
		return false
	}

	*failures = 0
	changed := s.ragStatus != resp.Status || s.ragError != resp.Error
	s.ragStatus = resp.Status
	s.ragError = resp.Error
	s.mu.Unlock()

	if changed {
		s.log.InfoWithFields("index status", []logger.Field{logger.F("status", resp.Status)})
		s.bus.publish(EventRag)
	}
	return !resp.Status.Terminal()
}

// expirePoll marks the build failed when the poll deadline passed. A
// cancelled poller (superseded or closed) changes nothing.
func (s *Store) expirePoll(ctx context.Context, gen uint64) {
	if ctx.Err() != context.DeadlineExceeded {
		return
	}
	s.mu.Lock()
	if gen != s.pollGen || s.ragStatus.Terminal() {
		s.mu.Unlock()
		return
	}
	s.ragStatus = api.RagError
	s.ragError = fmt.Sprintf("index was not ready after %s", s.pollTimeout)
	s.mu.Unlock()
	s.bus.publish(EventRag)
}

func (s *Store) finishPoll(gen uint64) {
	s.mu.Lock()
	current := gen == s.pollGen
	if current {
		s.polling = false
		if s.pollCancel != nil {
			s.pollCancel()
			s.pollCancel = nil
		}
	}
	s.mu.Unlock()
	if current {
		s.bus.publish(EventBusy)
	}
}

// pollerDone returns a channel closed when the latest poller exits.
func (s *Store) pollerDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollDone
}
