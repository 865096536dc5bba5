package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lemonbanan4/ai-web-research/pkg/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxTasks = 10000
	DefaultTaskTTL  = 24 * time.Hour
)

var ErrTaskExists = errors.New("task already exists")

// TaskRegistry holds live research tasks for the lifetime of the process.
// Reads return deep copies; writes after the task is done are rejected.
type TaskRegistry interface {
	Create(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, id string) (*domain.Task, error)
	// SetStage moves the task to stage/status and appends steps in one update.
	SetStage(ctx context.Context, id string, stage domain.Stage, status string, steps ...string) error
	AppendStep(ctx context.Context, id string, step string) error
	// Complete sets the result and the Done stage exactly once.
	Complete(ctx context.Context, id string, result domain.ResearchResult) error
	Len() int
	Stats() map[domain.Stage]int
}

type taskEntry struct {
	mu   sync.RWMutex
	task *domain.Task
}

// memoryTaskRegistry keeps unfinished tasks in live, which never evicts.
// Complete moves a task into done, where size and TTL apply from completion.
type memoryTaskRegistry struct {
	mu   sync.RWMutex
	live map[string]*taskEntry
	done *expirable.LRU[string, *taskEntry]
	now  func() time.Time
}

// NewTaskRegistry bounds finished tasks by count and age; the oldest are
// evicted first. Queued and running tasks are never evicted.
func NewTaskRegistry(maxTasks int, ttl time.Duration) TaskRegistry {
	return newTaskRegistry(maxTasks, ttl, time.Now)
}

func newTaskRegistry(maxTasks int, ttl time.Duration, now func() time.Time) *memoryTaskRegistry {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	if ttl <= 0 {
		ttl = DefaultTaskTTL
	}
	return &memoryTaskRegistry{
		live: map[string]*taskEntry{},
		done: expirable.NewLRU[string, *taskEntry](maxTasks, nil, ttl),
		now:  now,
	}
}

func (r *memoryTaskRegistry) Create(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return errors.New("task id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[task.ID]; ok || r.done.Contains(task.ID) {
		return ErrTaskExists
	}
	cp := task.Clone()
	ts := r.now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = ts
	}
	cp.UpdatedAt = ts
	e := &taskEntry{task: cp}
	if cp.Done() {
		r.done.Add(cp.ID, e)
	} else {
		r.live[cp.ID] = e
	}
	return nil
}

func (r *memoryTaskRegistry) Get(ctx context.Context, id string) (*domain.Task, error) {
	e, ok := r.lookup(id)
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.task.Clone(), nil
}

func (r *memoryTaskRegistry) SetStage(ctx context.Context, id string, stage domain.Stage, status string, steps ...string) error {
	return r.update(id, func(t *domain.Task) error {
		if stage == domain.StageDone {
			return errors.New("use Complete to finish a task")
		}
		t.Stage = stage
		t.Status = status
		t.Steps = append(t.Steps, steps...)
		return nil
	})
}

func (r *memoryTaskRegistry) AppendStep(ctx context.Context, id string, step string) error {
	return r.update(id, func(t *domain.Task) error {
		t.Steps = append(t.Steps, step)
		return nil
	})
}

func (r *memoryTaskRegistry) Complete(ctx context.Context, id string, result domain.ResearchResult) error {
	err := r.update(id, func(t *domain.Task) error {
		res := domain.ResearchResult{
			Summary: result.Summary,
			Sources: append(make([]domain.SourceRecord, 0, len(result.Sources)), result.Sources...),
		}
		done := r.now()
		t.Result = &res
		t.Stage = domain.StageDone
		t.Status = domain.StatusDone
		t.CompletedAt = &done
		return nil
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.live[id]; ok {
		// Added before the delete so a concurrent lookup always finds it.
		r.done.Add(id, e)
		delete(r.live, id)
	}
	return nil
}

func (r *memoryTaskRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live) + r.done.Len()
}

func (r *memoryTaskRegistry) Stats() map[domain.Stage]int {
	r.mu.RLock()
	entries := make([]*taskEntry, 0, len(r.live))
	for _, e := range r.live {
		entries = append(entries, e)
	}
	r.mu.RUnlock()
	entries = append(entries, r.done.Values()...)

	out := map[domain.Stage]int{}
	for _, e := range entries {
		e.mu.RLock()
		out[e.task.Stage]++
		e.mu.RUnlock()
	}
	return out
}

func (r *memoryTaskRegistry) lookup(id string) (*taskEntry, bool) {
	r.mu.RLock()
	e, ok := r.live[id]
	r.mu.RUnlock()
	if ok {
		return e, true
	}
	return r.done.Get(id)
}

func (r *memoryTaskRegistry) update(id string, fn func(t *domain.Task) error) error {
	r.mu.RLock()
	e, ok := r.live[id]
	r.mu.RUnlock()
	if !ok {
		if r.done.Contains(id) {
			return domain.ErrTaskCompleted
		}
		return domain.ErrTaskNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task.Done() {
		return domain.ErrTaskCompleted
	}
	if err := fn(e.task); err != nil {
		return err
	}
	e.task.UpdatedAt = r.now()
	return nil
}
