package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/lookout/internal/api"
)

const (
	reconcileTimeout = 30 * time.Second
	fileReadLimit    = 4
)

// snapshotRead is the result of one full reconciliation read.
type snapshotRead struct {
	sessions []api.Session
	files    map[string][]api.File
	workers  *api.WorkerStatus
}

// readAll fetches sessions, then every session's files and the worker status
// in parallel.
func readAll(ctx context.Context, r api.Reader) (snapshotRead, error) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	sessions, err := r.FetchSessions(ctx)
	if err != nil {
		return snapshotRead{}, fmt.Errorf("fetch sessions: %w", err)
	}

	out := snapshotRead{sessions: sessions, files: make(map[string][]api.File, len(sessions))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fileReadLimit)
	g.Go(func() error {
		workers, err := r.FetchWorkerStatus(gctx)
		if err != nil {
			return fmt.Errorf("fetch worker status: %w", err)
		}
		mu.Lock()
		out.workers = workers
		mu.Unlock()
		return nil
	})
	for _, sess := range sessions {
		g.Go(func() error {
			files, err := r.FetchSessionFiles(gctx, sess.ID)
			if err != nil {
				return fmt.Errorf("fetch files for session %s: %w", sess.ID, err)
			}
			mu.Lock()
			out.files[sess.ID] = files
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshotRead{}, err
	}
	return out, nil
}

// requestReconcile starts a read unless one is in flight, in which case one
// follow-up read is queued.
func (s *Service) requestReconcile(reason string) {
	if s.reconciling {
		s.reconcileAgain = true
		return
	}
	s.reconciling = true
	s.replay = s.replay[:0]
	s.throttle.Mark()
	s.store.BeginReconcile()
	s.logger.Debug("reconcile", "reason", reason)

	ctx := s.ctx
	go func() {
		read, err := readAll(ctx, s.reader)
		s.post(func() { s.reconciled(reason, read, err) })
	}()
}

func (s *Service) reconciled(reason string, read snapshotRead, err error) {
	s.reconciling = false
	replay := s.replay
	s.replay = nil

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("reconcile failed", "reason", reason, "err", err)
		}
		s.store.EndReconcile(err, s.now())
	} else {
		s.dispatcher.Replace(read.sessions, read.files, read.workers)
		for _, r := range replay {
			s.dispatcher.Reapply(r.n, r.m)
		}
		s.publish()
		s.store.EndReconcile(nil, s.now())
		s.logger.Debug("reconciled", "reason", reason, "sessions", len(read.sessions), "replayed", len(replay))
	}

	if s.reconcileAgain {
		s.reconcileAgain = false
		s.requestReconcile("coalesced")
	}
}
