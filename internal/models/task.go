package models

import "time"

// TaskStatus is the lifecycle state of a background task.
type TaskStatus string

const (
	TaskProcessing           TaskStatus = "processing"
	TaskCompleted            TaskStatus = "completed"
	TaskCompletedWithWarning TaskStatus = "completed_with_warning"
	TaskError                TaskStatus = "error"
)

// Terminal reports whether no further work is expected for the task.
func (s TaskStatus) Terminal() bool {
	return s != TaskProcessing
}

// TaskRecord is the pollable progress of one task.
type TaskRecord struct {
	Status    TaskStatus `json:"status"`
	Progress  int        `json:"progress"` // 0-100
	Message   string     `json:"message"`
	UpdatedAt time.Time  `json:"-"`
}
