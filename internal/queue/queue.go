// Package queue serializes "add this mod package" requests: arrivals are
// deduplicated by location, persisted so a restart resumes them, and handed
// one at a time to the registration handler so no two package registrations
// ever interleave.
package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quantmind-br/modctl/internal/core"
	"github.com/quantmind-br/modctl/internal/db"
	"github.com/quantmind-br/modctl/internal/task"
)

// Handler registers one validated package with the mod registry. It runs on
// the queue worker, one invocation at a time.
type Handler func(ctx context.Context, location string, resolve core.DestinationResolver) (*core.Mod, error)

// request is one queued package.
type request struct {
	id       string
	location string
	resolve  core.DestinationResolver // nil for restored requests
	task     *task.Task
}

// Queue is the add-mod queue for one engine.
type Queue struct {
	store   *db.DB
	handler Handler
	logger  zerolog.Logger

	mu       sync.Mutex
	pending  []*request
	inflight map[string]*request // normalized location -> request
	loaded   bool

	wake   chan struct{}
	stop   context.CancelFunc
	doneWG sync.WaitGroup
}

// New creates a queue. Call LoadPending then Start before adding requests.
func New(store *db.DB, handler Handler, logger zerolog.Logger) *Queue {
	return &Queue{
		store:    store,
		handler:  handler,
		logger:   logger,
		inflight: make(map[string]*request),
		wake:     make(chan struct{}, 1),
	}
}

// LoadPending restores requests persisted by a previous run. It is
// effective exactly once; later calls are no-ops.
func (q *Queue) LoadPending(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.loaded {
		return nil
	}
	q.loaded = true

	rows, err := q.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("load pending packages: %w", err)
	}

	for _, row := range rows {
		req := &request{
			id:       row.RequestID,
			location: row.Location,
		}
		req.task = q.newTask(req)
		q.pending = append(q.pending, req)
		q.inflight[row.Location] = req
		q.logger.Info().Str("location", row.Location).Msg("restored pending package")
	}

	return nil
}

// Start launches the worker. The worker runs until Close or ctx
// cancellation.
func (q *Queue) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	q.stop = cancel

	q.doneWG.Add(1)
	go func() {
		defer q.doneWG.Done()
		q.run(runCtx)
	}()
}

// Close stops the worker and waits for the in-flight request, if any, to
// finish its current file operation.
func (q *Queue) Close() {
	if q.stop != nil {
		q.stop()
	}
	q.doneWG.Wait()
}

// Add enqueues a package location. A second request for the same location
// while the first is still queued or processing is attached to the first:
// the same task handle is returned and the package is processed once.
func (q *Queue) Add(ctx context.Context, location string, resolve core.DestinationResolver) (*task.Task, error) {
	abs, err := filepath.Abs(filepath.Clean(location))
	if err != nil {
		return nil, fmt.Errorf("resolve package location: %w", err)
	}

	q.mu.Lock()
	if existing, ok := q.inflight[abs]; ok {
		q.mu.Unlock()
		q.logger.Debug().Str("location", abs).Msg("duplicate add request attached to existing task")
		return existing.task, nil
	}

	req := &request{
		id:       uuid.NewString(),
		location: abs,
		resolve:  resolve,
	}
	req.task = q.newTask(req)
	q.inflight[abs] = req
	q.mu.Unlock()

	// Persist before acknowledging so the request survives a restart.
	if err := q.store.EnqueuePending(ctx, req.id, abs); err != nil {
		q.mu.Lock()
		delete(q.inflight, abs)
		q.mu.Unlock()
		return nil, fmt.Errorf("persist add request: %w", err)
	}

	q.mu.Lock()
	q.pending = append(q.pending, req)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}

	return req.task, nil
}

func (q *Queue) newTask(req *request) *task.Task {
	return task.New(fmt.Sprintf("add %s", filepath.Base(req.location)), func(ctx context.Context, t *task.Task) (any, error) {
		t.SetProgress(fmt.Sprintf("registering %s", req.location), -1)

		mod, err := q.handler(ctx, req.location, req.resolve)
		if err != nil {
			q.logger.Error().Err(err).Str("location", req.location).Msg("package registration failed")
			return nil, err
		}

		// Only successfully processed entries leave the persisted queue; a
		// failed one is retried on the next start.
		if err := q.store.DeletePending(ctx, req.id); err != nil {
			return nil, fmt.Errorf("dequeue processed package: %w", err)
		}

		return mod, nil
	})
}

// run processes the queue strictly one request at a time.
func (q *Queue) run(ctx context.Context) {
	for {
		req := q.next()
		if req == nil {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}

		req.task.RunSync(ctx)

		q.mu.Lock()
		delete(q.inflight, req.location)
		q.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
	}
}

func (q *Queue) next() *request {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	req := q.pending[0]
	q.pending = q.pending[1:]
	return req
}
