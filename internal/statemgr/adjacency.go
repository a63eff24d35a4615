package statemgr

import "github.com/r3e-network/governance-core/internal/domain"

var projectAdjacency = map[domain.ProjectStatus]map[domain.ProjectStatus]bool{
	domain.ProjectInitialized: {
		domain.ProjectPlanning: true,
		domain.ProjectFailed:   true,
		domain.ProjectArchived: true,
	},
	domain.ProjectPlanning: {
		domain.ProjectInProgress: true,
		domain.ProjectBlocked:    true,
		domain.ProjectFailed:     true,
	},
	domain.ProjectInProgress: {
		domain.ProjectBlocked:   true,
		domain.ProjectCompleted: true,
		domain.ProjectFailed:    true,
	},
	domain.ProjectBlocked: {
		domain.ProjectInProgress: true,
		domain.ProjectFailed:     true,
		domain.ProjectArchived:   true,
	},
	domain.ProjectCompleted: {
		domain.ProjectArchived: true,
	},
	domain.ProjectFailed: {
		domain.ProjectArchived: true,
	},
	domain.ProjectArchived: {},
}

func projectTransitionAllowed(from, to domain.ProjectStatus) bool {
	if from == to {
		return false
	}
	return projectAdjacency[from][to]
}

var taskAdjacency = map[domain.TaskStatus]map[domain.TaskStatus]bool{
	domain.TaskPending: {
		domain.TaskInProgress: true,
		domain.TaskSkipped:    true,
	},
	domain.TaskInProgress: {
		domain.TaskCompleted: true,
		domain.TaskFailed:    true,
	},
	domain.TaskCompleted: {},
	domain.TaskFailed:    {},
	domain.TaskSkipped:   {},
}

func taskTransitionAllowed(from, to domain.TaskStatus) bool {
	if from == to {
		return false
	}
	return taskAdjacency[from][to]
}
