package tasks

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/models"
	"github.com/desertthunder/radiotx/internal/shared"
)

const initialMessage = "Initializing..."

// Patch is a partial update of a [models.TaskRecord]. Nil fields are left unchanged.
type Patch struct {
	Status   *models.TaskStatus
	Progress *int
	Message  *string
}

// Registry is the in-memory table of task records, keyed by task id.
//
// Reads may run concurrently with the single writer that owns a task.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]*models.TaskRecord
	logger *log.Logger
	now    func() time.Time

	onUpdate func(taskID string, rec models.TaskRecord)
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Registry{
		tasks:  make(map[string]*models.TaskRecord),
		logger: logger.With("component", "registry"),
		now:    time.Now,
	}
}

// Create registers taskID as processing at 0% with "Initializing...", replacing any existing record.
func (r *Registry) Create(taskID string) models.TaskRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := &models.TaskRecord{
		Status:    models.TaskProcessing,
		Progress:  0,
		Message:   initialMessage,
		UpdatedAt: r.now(),
	}
	r.tasks[taskID] = rec
	return *rec
}

// Update merges p into the record of taskID. Unknown ids are logged and ignored.
func (r *Registry) Update(taskID string, p Patch) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.tasks[taskID]
	if !ok {
		r.logger.Warn("update for unknown task", "task_id", taskID)
		return false
	}

	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Progress != nil {
		rec.Progress = *p.Progress
	}
	if p.Message != nil {
		rec.Message = *p.Message
	}
	rec.UpdatedAt = r.now()
	if r.onUpdate != nil {
		r.onUpdate(taskID, *rec)
	}
	return true
}

// Get returns a copy of the record of taskID.
func (r *Registry) Get(taskID string) (models.TaskRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.tasks[taskID]
	if !ok {
		return models.TaskRecord{}, false
	}
	return *rec, true
}

// Len returns the number of tracked tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Sweep removes terminal records not updated within olderThan and returns how many were removed.
// Processing records are never removed.
func (r *Registry) Sweep(olderThan time.Duration) int {
	if olderThan <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-olderThan)
	removed := 0
	for id, rec := range r.tasks {
		if rec.Status.Terminal() && rec.UpdatedAt.Before(cutoff) {
			delete(r.tasks, id)
			removed++
		}
	}

	if removed > 0 {
		r.logger.Debug("swept task records", "removed", removed, "remaining", len(r.tasks))
	}
	return removed
}
