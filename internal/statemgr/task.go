package statemgr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/storage"
)

// CreateTask creates a task under projectID. dependencies names prerequisite
// task ids within the same project; the resulting graph must stay acyclic.
func (m *Manager) CreateTask(ctx context.Context, projectID, title string, priority int, milestone string, estimatedHours float64, agentType string, dependencies []string) (*domain.Task, error) {
	if _, err := m.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	existing, err := m.ListTasks(ctx, projectID, nil)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Task, len(existing))
	for _, t := range existing {
		byID[t.ID] = t
	}
	for _, depID := range dependencies {
		if _, ok := byID[depID]; !ok {
			return nil, svcerrors.InvalidDeclaration(fmt.Sprintf("dependency task %s does not exist", depID))
		}
	}

	now := time.Now().UTC()
	task := &domain.Task{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		Title:          title,
		Status:         domain.TaskPending,
		Priority:       priority,
		Milestone:      milestone,
		EstimatedHours: estimatedHours,
		AgentType:      agentType,
		Dependencies:   dependencies,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if cyclePath, found := detectTaskCycle(append(existing, *task)); found {
		return nil, svcerrors.InvalidDeclaration(fmt.Sprintf("task dependency cycle: %v", cyclePath))
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return nil, svcerrors.StorageUnavailable("encode_task", err)
	}
	event := domain.PSMPEvent{
		EventID:   uuid.NewString(),
		EventType: domain.EventTaskCreated,
		ProjectID: projectID,
		Timestamp: now,
		Actor:     "system",
		Payload:   map[string]interface{}{"task_id": task.ID, "title": title},
	}
	eventData, err := json.Marshal(event)
	if err != nil {
		return nil, svcerrors.StorageUnavailable("encode_event", err)
	}

	err = m.backend.Tx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Put(ctx, storage.KindTask, task.ID, taskData); err != nil {
			return err
		}
		return tx.Append(ctx, storage.LogPSMPEvents, eventData)
	})
	if err != nil {
		return nil, svcerrors.StorageUnavailable("write_task", err)
	}
	return task, nil
}

// detectTaskCycle reports whether the dependency graph formed by tasks
// contains a cycle, via depth-first search with recursion-stack tracking.
func detectTaskCycle(tasks []domain.Task) ([]string, bool) {
	byID := make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(tasks))
	var stack []string

	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		stack = append(stack, id)
		for _, dep := range byID[id].Dependencies {
			if visit(dep) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return false
	}

	for _, t := range tasks {
		if state[t.ID] == unvisited {
			if visit(t.ID) {
				return stack, true
			}
		}
	}
	return nil, false
}

// TransitionTask moves a task to newStatus per the task adjacency set.
func (m *Manager) TransitionTask(ctx context.Context, taskID string, newStatus domain.TaskStatus) (*domain.Task, error) {
	task, err := m.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(task.ProjectID)
	defer unlock()

	if !taskTransitionAllowed(task.Status, newStatus) {
		return nil, svcerrors.InvalidTransition(string(task.Status), string(newStatus))
	}

	from := task.Status
	task.Status = newStatus
	task.UpdatedAt = time.Now().UTC()

	taskData, err := json.Marshal(task)
	if err != nil {
		return nil, svcerrors.StorageUnavailable("encode_task", err)
	}
	event := domain.PSMPEvent{
		EventID:   uuid.NewString(),
		EventType: domain.EventTaskStatusChanged,
		ProjectID: task.ProjectID,
		Timestamp: task.UpdatedAt,
		Actor:     "system",
		Payload:   map[string]interface{}{"task_id": task.ID, "from": string(from), "to": string(newStatus)},
	}
	eventData, err := json.Marshal(event)
	if err != nil {
		return nil, svcerrors.StorageUnavailable("encode_event", err)
	}

	err = m.backend.Tx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Put(ctx, storage.KindTask, task.ID, taskData); err != nil {
			return err
		}
		return tx.Append(ctx, storage.LogPSMPEvents, eventData)
	})
	if err != nil {
		return nil, svcerrors.StorageUnavailable("write_task", err)
	}
	return task, nil
}

func (m *Manager) getTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := m.backend.Get(ctx, storage.KindTask, taskID)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, svcerrors.NotFound("task", taskID)
		}
		return nil, svcerrors.StorageUnavailable("get_task", err)
	}
	var t domain.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, svcerrors.StorageUnavailable("decode_task", err)
	}
	return &t, nil
}

// TaskFilter narrows ListTasks results; a nil filter returns every task.
type TaskFilter func(domain.Task) bool

// ListTasks returns every task belonging to projectID matching filter.
func (m *Manager) ListTasks(ctx context.Context, projectID string, filter TaskFilter) ([]domain.Task, error) {
	records, err := m.backend.Scan(ctx, storage.KindTask, func(id string, data []byte) bool {
		var t domain.Task
		if err := json.Unmarshal(data, &t); err != nil {
			return false
		}
		if t.ProjectID != projectID {
			return false
		}
		if filter != nil {
			return filter(t)
		}
		return true
	})
	if err != nil {
		return nil, svcerrors.StorageUnavailable("scan_tasks", err)
	}
	tasks := make([]domain.Task, 0, len(records))
	for _, data := range records {
		var t domain.Task
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, svcerrors.StorageUnavailable("decode_task", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
