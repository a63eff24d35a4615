// Package statemgr is the sole authority for Project and Task lifecycle:
// creation, transition validation against the adjacency sets, and
// checkpoint/restore. It never calls into the PSMP engine; the PSMP engine
// calls it to read status and request transitions.
package statemgr

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/logger"
	"github.com/r3e-network/governance-core/internal/storage"
)

// Manager owns all Project and Task mutations.
type Manager struct {
	backend storage.Backend
	log     *logger.Logger
	locks   *keyedLock
}

// NewManager builds a Manager over the given storage backend.
func NewManager(backend storage.Backend, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefault("statemgr")
	}
	return &Manager{backend: backend, log: log, locks: newKeyedLock()}
}

// CreateProject creates a project, failing with DuplicateProject if name
// already exists.
func (m *Manager) CreateProject(ctx context.Context, name, description string, metadata map[string]string) (*domain.Project, error) {
	existing, err := m.findProjectByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, svcerrors.DuplicateProject(name)
	}

	now := time.Now().UTC()
	project := &domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Status:      domain.ProjectInitialized,
		Metadata:    metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	event := domain.PSMPEvent{
		EventID:   uuid.NewString(),
		EventType: domain.EventProjectCreated,
		ProjectID: project.ID,
		Timestamp: now,
		Actor:     "system",
		Payload:   map[string]interface{}{"name": name},
	}

	if err := m.writeProjectAndEvent(ctx, project, event); err != nil {
		return nil, err
	}
	return project, nil
}

func (m *Manager) findProjectByName(ctx context.Context, name string) (*domain.Project, error) {
	records, err := m.backend.Scan(ctx, storage.KindProject, func(id string, data []byte) bool {
		var p domain.Project
		if err := json.Unmarshal(data, &p); err != nil {
			return false
		}
		return p.Name == name
	})
	if err != nil {
		return nil, svcerrors.StorageUnavailable("scan_projects", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	var p domain.Project
	if err := json.Unmarshal(records[0], &p); err != nil {
		return nil, svcerrors.StorageUnavailable("decode_project", err)
	}
	return &p, nil
}

// GetProject loads a project by id.
func (m *Manager) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	data, err := m.backend.Get(ctx, storage.KindProject, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, svcerrors.NotFound("project", id)
		}
		return nil, svcerrors.StorageUnavailable("get_project", err)
	}
	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, svcerrors.StorageUnavailable("decode_project", err)
	}
	return &p, nil
}

// TransitionProject moves a project to newStatus, rejecting transitions
// outside the adjacency set.
func (m *Manager) TransitionProject(ctx context.Context, id string, newStatus domain.ProjectStatus, reason string) (*domain.Project, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	project, err := m.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if !projectTransitionAllowed(project.Status, newStatus) {
		return nil, svcerrors.InvalidTransition(string(project.Status), string(newStatus))
	}

	from := project.Status
	project.Status = newStatus
	project.UpdatedAt = time.Now().UTC()

	event := domain.PSMPEvent{
		EventID:   uuid.NewString(),
		EventType: domain.EventStateTransition,
		ProjectID: project.ID,
		Timestamp: project.UpdatedAt,
		Actor:     "system",
		Payload: map[string]interface{}{
			"from":   string(from),
			"to":     string(newStatus),
			"reason": reason,
		},
	}

	if err := m.writeProjectAndEvent(ctx, project, event); err != nil {
		return nil, err
	}
	return project, nil
}

func (m *Manager) writeProjectAndEvent(ctx context.Context, project *domain.Project, event domain.PSMPEvent) error {
	projectData, err := json.Marshal(project)
	if err != nil {
		return svcerrors.StorageUnavailable("encode_project", err)
	}
	eventData, err := json.Marshal(event)
	if err != nil {
		return svcerrors.StorageUnavailable("encode_event", err)
	}

	err = m.backend.Tx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Put(ctx, storage.KindProject, project.ID, projectData); err != nil {
			return err
		}
		return tx.Append(ctx, storage.LogPSMPEvents, eventData)
	})
	if err != nil {
		return svcerrors.StorageUnavailable("write_project", err)
	}
	return nil
}
