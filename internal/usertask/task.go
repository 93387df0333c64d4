package usertask

import (
	"log/slog"
	"maps"
	"time"

	"github.com/haninge-digit/digit-camunda-wrapper/internal/engine"
)

// AssigneeHeader is the job custom header carrying the assigned user.
const AssigneeHeader = "io.camunda.zeebe:assignee"

// Task is one active user task.
type Task struct {
	Key                int64          `json:"key,string"`
	WorkflowID         string         `json:"workflowId"`
	TaskID             string         `json:"taskId"`
	Assignee           string         `json:"assignee"`
	TaskVariables      map[string]any `json:"taskVariables"`
	WorkflowVariables  map[string]any `json:"workflowVariables"`
	ProcessInstanceKey int64          `json:"processInstanceKey,string"`
	Deadline           time.Time      `json:"deadline"`
}

// Summary is the list view of a Task.
type Summary struct {
	Key        int64  `json:"key,string"`
	WorkflowID string `json:"workflowId"`
	TaskID     string `json:"taskId"`
	Assignee   string `json:"assignee"`
}

func (t *Task) summary() Summary {
	return Summary{
		Key:        t.Key,
		WorkflowID: t.WorkflowID,
		TaskID:     t.TaskID,
		Assignee:   t.Assignee,
	}
}

// clone returns a copy whose variable maps can be modified without touching t.
// Nested values are shared.
func (t *Task) clone() *Task {
	c := *t
	c.TaskVariables = maps.Clone(t.TaskVariables)
	c.WorkflowVariables = maps.Clone(t.WorkflowVariables)
	return &c
}

// taskFromJob derives a Task from a leased job. A job without an assignee is
// still recorded; it just matches no caller.
func taskFromJob(job engine.Job, logger *slog.Logger) *Task {
	headers := make(map[string]any, len(job.CustomHeaders))
	for k, v := range job.CustomHeaders {
		headers[k] = v
	}

	assignee, ok := job.CustomHeaders[AssigneeHeader]
	if !ok {
		logger.Debug("user task has no assignee",
			"job_key", job.Key,
			"workflow_id", job.ProcessID,
			"task_id", job.ElementID)
	}

	vars := job.Variables
	if vars == nil {
		vars = map[string]any{}
	}

	return &Task{
		Key:                job.Key,
		WorkflowID:         job.ProcessID,
		TaskID:             job.ElementID,
		Assignee:           assignee,
		TaskVariables:      headers,
		WorkflowVariables:  vars,
		ProcessInstanceKey: job.ProcessInstanceKey,
		Deadline:           job.Deadline,
	}
}
