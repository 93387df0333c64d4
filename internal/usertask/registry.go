package usertask

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/config"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/redact"
	"github.com/jellydator/ttlcache/v3"
)

// State is the lifecycle state of a Registry.
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// leaseGrace is added to the poll timeout to bound a lease call that the
// engine fails to end on its own.
const leaseGrace = 10 * time.Second

// Registry holds the snapshot of active user tasks and the loop that refreshes it.
type Registry struct {
	client engine.Client
	cfg    config.TasksConfig
	worker string
	clock  clock.Clock
	logger *slog.Logger

	mu    sync.RWMutex
	tasks map[int64]*Task
	// completed remembers keys removed by Complete until any lease call that
	// could still carry them has been replaced.
	completed *ttlcache.Cache[int64, struct{}]

	state   atomic.Int32
	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewRegistry creates a stopped registry with an empty snapshot.
// A nil clock uses the wall clock.
func NewRegistry(client engine.Client, cfg config.TasksConfig, clk clock.Clock, logger *slog.Logger) *Registry {
	if client == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("engine client cannot be nil for Registry")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for Registry")
	}
	if clk == nil {
		clk = clock.New()
	}

	worker := cfg.WorkerName
	if worker == "" {
		worker = "wrapper-" + uuid.NewString()
	}

	return &Registry{
		client: client,
		cfg:    cfg,
		worker: worker,
		clock:  clk,
		logger: logger.With(slog.String("component", "usertask_registry"), slog.String("worker", worker)),
		tasks:  map[int64]*Task{},
		completed: ttlcache.New(
			ttlcache.WithTTL[int64, struct{}](tombstoneTTL(cfg)),
			ttlcache.WithDisableTouchOnHit[int64, struct{}](),
		),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// tombstoneTTL outlives the longest lease call that can start before a
// completion and finish after it.
func tombstoneTTL(cfg config.TasksConfig) time.Duration {
	return 2*(cfg.PollTimeout+leaseGrace) + cfg.LockDuration + cfg.PollInterval
}

// Worker returns the identity the registry leases jobs under.
func (r *Registry) Worker() string {
	return r.worker
}

// State reports whether the loop is running.
func (r *Registry) State() State {
	return State(r.state.Load())
}

// Len returns the number of tasks in the current snapshot.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Start launches the background loop. The first lease call is issued
// immediately. ctx supplies values for the loop's engine calls; use Stop to
// end the loop.
func (r *Registry) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	r.state.Store(int32(Running))
	r.logger.Info("starting user task registry",
		"topic", r.cfg.Topic,
		"poll_interval", r.cfg.PollInterval,
		"lock_duration", r.cfg.LockDuration)

	go r.run(context.WithoutCancel(ctx))
	return nil
}

// Stop signals the loop and waits for it to exit. A lease call in progress is
// allowed to finish first. A stopped registry cannot be started again.
func (r *Registry) Stop() {
	r.once.Do(func() {
		close(r.stop)
	})
	if r.started.CompareAndSwap(false, true) {
		// Never started; make later Start calls fail.
		close(r.done)
	}
	<-r.done
	r.state.Store(int32(Stopped))
}

func (r *Registry) run(ctx context.Context) {
	defer close(r.done)
	defer r.logger.Info("user task registry stopped")

	for {
		r.refresh(ctx)

		timer := r.clock.Timer(r.cfg.PollInterval)
		select {
		case <-r.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		// A stop that raced with the timer still wins before the next lease.
		select {
		case <-r.stop:
			return
		default:
		}
	}
}

// refresh runs one lease call to completion and swaps in its result. On
// failure the snapshot is left as it was.
func (r *Registry) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.PollTimeout+leaseGrace)
	defer cancel()

	stream, err := r.client.LeaseJobs(ctx, engine.LeaseRequest{
		Topic:        r.cfg.Topic,
		Worker:       r.worker,
		LockDuration: r.cfg.LockDuration,
		MaxJobs:      int32(r.cfg.MaxJobs),
		PollTimeout:  r.cfg.PollTimeout,
	})
	if err != nil {
		r.logger.Warn("failed to lease user tasks, keeping previous snapshot",
			"code", engine.CodeOf(err).String(),
			"error", redact.Error(err))
		return
	}

	candidate := map[int64]*Task{}
	batches := 0
	for {
		batch, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			r.logger.Warn("user task stream failed, keeping previous snapshot",
				"code", engine.CodeOf(err).String(),
				"batches", batches,
				"error", redact.Error(err))
			return
		}
		batches++
		for _, job := range batch {
			candidate[job.Key] = taskFromJob(job, r.logger)
		}
	}

	r.replace(candidate)
	r.logger.Debug("user task snapshot replaced",
		"tasks", len(candidate),
		"batches", batches)
}

// replace makes candidate the snapshot, dropping keys completed since the
// lease call began.
func (r *Registry) replace(candidate map[int64]*Task) {
	r.completed.DeleteExpired()

	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range candidate {
		if r.completed.Get(key) != nil {
			delete(candidate, key)
		}
	}
	r.tasks = candidate
}

// remove drops key from the snapshot and remembers it as completed.
func (r *Registry) remove(key int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tasks, key)
	r.completed.Set(key, struct{}{}, ttlcache.DefaultTTL)
}

// List returns the tasks assigned to assignee, optionally narrowed to one task
// id and one workflow id. Empty filters match everything. Results are ordered
// by key.
func (r *Registry) List(assignee, taskID, workflowID string) ([]Summary, error) {
	if strings.TrimSpace(assignee) == "" {
		return nil, ErrMissingAssignee
	}

	r.mu.RLock()
	summaries := make([]Summary, 0, len(r.tasks))
	for _, task := range r.tasks {
		if task.Assignee != assignee {
			continue
		}
		if taskID != "" && task.TaskID != taskID {
			continue
		}
		if workflowID != "" && task.WorkflowID != workflowID {
			continue
		}
		summaries = append(summaries, task.summary())
	}
	r.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Key < summaries[j].Key
	})
	return summaries, nil
}

// Get returns a copy of the task with key.
func (r *Registry) Get(key int64) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[key]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task.clone(), nil
}

// Complete completes the task with key on behalf of assignee, passing vars to
// the engine. Only the task's assignee may complete it. On success the task
// is gone from the snapshot before Complete returns.
func (r *Registry) Complete(ctx context.Context, key int64, assignee string, vars map[string]any) error {
	if strings.TrimSpace(assignee) == "" {
		return ErrMissingAssignee
	}

	r.mu.RLock()
	task, ok := r.tasks[key]
	var owner string
	if ok {
		owner = task.Assignee
	}
	r.mu.RUnlock()

	if !ok {
		return ErrTaskNotFound
	}
	if owner != assignee {
		r.logger.Debug("task completion refused",
			"job_key", key,
			"caller", assignee)
		return ErrForbidden
	}

	if r.cfg.CompleteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CompleteTimeout)
		defer cancel()
	}
	if err := r.client.CompleteJob(ctx, key, vars); err != nil {
		if engine.IsCode(err, engine.CodeNotFound) {
			r.logger.Info("task vanished from engine, dropping it",
				"job_key", key)
			r.remove(key)
			return fmt.Errorf("%w: %w", ErrTaskNotFound, err)
		}
		return fmt.Errorf("failed to complete task %d: %w", key, err)
	}

	r.remove(key)
	r.logger.Info("task completed",
		"job_key", key,
		"assignee", assignee)
	return nil
}
