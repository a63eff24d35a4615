package statemgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-network/governance-core/internal/domain"
	svcerrors "github.com/r3e-network/governance-core/internal/errors"
	"github.com/r3e-network/governance-core/internal/storage/memory"
)

func newTestManager() *Manager {
	return NewManager(memory.New(), nil)
}

func TestCreateProjectSucceeds(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	p, err := m.CreateProject(ctx, "chat", "chat app", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectInitialized, p.Status)
	assert.NotEmpty(t, p.ID)
}

func TestCreateProjectDuplicateNameFails(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	_, err := m.CreateProject(ctx, "chat", "", nil)
	require.NoError(t, err)

	_, err = m.CreateProject(ctx, "chat", "", nil)
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodeDuplicateProject))
}

func TestTransitionProjectHappyPath(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	p, err := m.CreateProject(ctx, "chat", "", nil)
	require.NoError(t, err)

	p, err = m.TransitionProject(ctx, p.ID, domain.ProjectPlanning, "start planning")
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectPlanning, p.Status)

	p, err = m.TransitionProject(ctx, p.ID, domain.ProjectInProgress, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectInProgress, p.Status)
}

func TestTransitionProjectRejectsInvalidEdge(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	p, err := m.CreateProject(ctx, "chat", "", nil)
	require.NoError(t, err)

	_, err = m.TransitionProject(ctx, p.ID, domain.ProjectCompleted, "")
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodeInvalidTransition))
}

func TestTransitionProjectRejectsSelfTransition(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	p, err := m.CreateProject(ctx, "chat", "", nil)
	require.NoError(t, err)

	_, err = m.TransitionProject(ctx, p.ID, domain.ProjectInitialized, "")
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodeInvalidTransition))
}

func TestGetProjectMissingReturnsNotFound(t *testing.T) {
	m := newTestManager()
	_, err := m.GetProject(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodeNotFound))
}

func TestCreateTaskAndTransition(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	p, err := m.CreateProject(ctx, "chat", "", nil)
	require.NoError(t, err)

	task, err := m.CreateTask(ctx, p.ID, "design schema", 3, "", 2.5, "planner", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPending, task.Status)

	task, err = m.TransitionTask(ctx, task.ID, domain.TaskInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, task.Status)

	_, err = m.TransitionTask(ctx, task.ID, domain.TaskPending)
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodeInvalidTransition))
}

func TestCreateTaskRejectsMissingDependency(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	p, err := m.CreateProject(ctx, "chat", "", nil)
	require.NoError(t, err)

	_, err = m.CreateTask(ctx, p.ID, "build", 1, "", 0, "coder", []string{"nonexistent"})
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodeInvalidDeclaration))
}

func TestCheckpointAndRestore(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	p, err := m.CreateProject(ctx, "chat", "", nil)
	require.NoError(t, err)
	p, err = m.TransitionProject(ctx, p.ID, domain.ProjectPlanning, "")
	require.NoError(t, err)

	checkpointID, err := m.CheckpointProject(ctx, p.ID)
	require.NoError(t, err)
	require.NotEmpty(t, checkpointID)

	_, err = m.TransitionProject(ctx, p.ID, domain.ProjectInProgress, "")
	require.NoError(t, err)

	restored, err := m.RestoreProject(ctx, p.ID, checkpointID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectPlanning, restored.Status)
}

func TestRestoreProjectMissingCheckpointReturnsNotFound(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	p, err := m.CreateProject(ctx, "chat", "", nil)
	require.NoError(t, err)

	_, err = m.RestoreProject(ctx, p.ID, "no-such-checkpoint")
	require.Error(t, err)
	assert.True(t, svcerrors.Is(err, svcerrors.ErrCodeNotFound))
}
