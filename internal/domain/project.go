// Package domain holds the plain entity types shared by every governance
// component: Project, Task, Artifact, dependency declarations, PSMP events,
// and audit entries.
package domain

import "time"

// ProjectStatus is the lifecycle state of a Project.
type ProjectStatus string

const (
	ProjectInitialized ProjectStatus = "INITIALIZED"
	ProjectPlanning    ProjectStatus = "PLANNING"
	ProjectInProgress  ProjectStatus = "IN_PROGRESS"
	ProjectBlocked     ProjectStatus = "BLOCKED"
	ProjectCompleted   ProjectStatus = "COMPLETED"
	ProjectFailed      ProjectStatus = "FAILED"
	ProjectArchived    ProjectStatus = "ARCHIVED"
)

// Project is the top-level unit the State Manager governs.
type Project struct {
	ID          string
	Name        string
	Description string
	Status      ProjectStatus
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
	TaskSkipped    TaskStatus = "SKIPPED"
)

// Task is a unit of work belonging to a Project, forming an intra-project
// dependency DAG via Dependencies.
type Task struct {
	ID             string
	ProjectID      string
	Title          string
	Status         TaskStatus
	Priority       int
	Milestone      string
	EstimatedHours float64
	AgentType      string
	Dependencies   []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
