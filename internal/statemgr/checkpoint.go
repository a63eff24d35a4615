package statemgr

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/storage"
)

// checkpoint is a self-contained point-in-time snapshot of a project, its
// tasks, and its live artifact ids, restorable as a single unit.
type checkpoint struct {
	ID              string         `json:"id"`
	Project         domain.Project `json:"project"`
	Tasks           []domain.Task  `json:"tasks"`
	LiveArtifactIDs []string       `json:"live_artifact_ids"`
	CreatedAt       time.Time      `json:"created_at"`
}

func checkpointKey(projectID, checkpointID string) string {
	return projectID + "/" + checkpointID
}

// CheckpointProject snapshots a project, its tasks, and its live artifact
// ids, returning the new checkpoint id.
func (m *Manager) CheckpointProject(ctx context.Context, projectID string) (string, error) {
	project, err := m.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	tasks, err := m.ListTasks(ctx, projectID, nil)
	if err != nil {
		return "", err
	}
	artifactIDs, err := m.liveArtifactIDs(ctx, projectID)
	if err != nil {
		return "", err
	}

	cp := checkpoint{
		ID:              uuid.NewString(),
		Project:         *project,
		Tasks:           tasks,
		LiveArtifactIDs: artifactIDs,
		CreatedAt:       time.Now().UTC(),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return "", svcerrors.StorageUnavailable("encode_checkpoint", err)
	}
	if err := m.backend.Put(ctx, storage.KindCheckpoint, checkpointKey(projectID, cp.ID), data); err != nil {
		return "", svcerrors.StorageUnavailable("put_checkpoint", err)
	}
	return cp.ID, nil
}

func (m *Manager) liveArtifactIDs(ctx context.Context, projectID string) ([]string, error) {
	records, err := m.backend.Scan(ctx, storage.KindArtifact, func(id string, data []byte) bool {
		var a domain.Artifact
		if err := json.Unmarshal(data, &a); err != nil {
			return false
		}
		return a.ProjectID == projectID && !a.Revoked
	})
	if err != nil {
		return nil, svcerrors.StorageUnavailable("scan_artifacts", err)
	}
	ids := make([]string, 0, len(records))
	for _, data := range records {
		var a domain.Artifact
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, svcerrors.StorageUnavailable("decode_artifact", err)
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// RestoreProject replaces a project's and its tasks' state with a prior
// checkpoint. Events recorded between the checkpoint and the restore are
// never erased.
func (m *Manager) RestoreProject(ctx context.Context, projectID, checkpointID string) (*domain.Project, error) {
	unlock := m.locks.Lock(projectID)
	defer unlock()

	data, err := m.backend.Get(ctx, storage.KindCheckpoint, checkpointKey(projectID, checkpointID))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, svcerrors.NotFound("checkpoint", checkpointID)
		}
		return nil, svcerrors.StorageUnavailable("get_checkpoint", err)
	}
	var cp checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, svcerrors.StorageUnavailable("decode_checkpoint", err)
	}

	restored := cp.Project
	restored.UpdatedAt = time.Now().UTC()
	projectData, err := json.Marshal(restored)
	if err != nil {
		return nil, svcerrors.StorageUnavailable("encode_project", err)
	}

	event := domain.PSMPEvent{
		EventID:   uuid.NewString(),
		EventType: domain.EventStateTransition,
		ProjectID: projectID,
		Timestamp: restored.UpdatedAt,
		Actor:     "system",
		Payload:   map[string]interface{}{"restored_from": checkpointID},
	}
	eventData, err := json.Marshal(event)
	if err != nil {
		return nil, svcerrors.StorageUnavailable("encode_event", err)
	}

	err = m.backend.Tx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.Put(ctx, storage.KindProject, restored.ID, projectData); err != nil {
			return err
		}
		for _, task := range cp.Tasks {
			taskData, err := json.Marshal(task)
			if err != nil {
				return err
			}
			if err := tx.Put(ctx, storage.KindTask, task.ID, taskData); err != nil {
				return err
			}
		}
		return tx.Append(ctx, storage.LogPSMPEvents, eventData)
	})
	if err != nil {
		return nil, svcerrors.StorageUnavailable("restore_project", err)
	}
	return &restored, nil
}
