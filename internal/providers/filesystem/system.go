package filesystem

import (
	"context"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/id"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
)

// SystemOps handles task control and share discovery
type SystemOps struct {
	*FilesystemOps
}

// GetTools returns system operation tool definitions
func (s *SystemOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          OpCancel.String(),
			Name:        "Cancel",
			Description: "Cancel a running operation by task ID",
			Parameters: []types.Parameter{
				{Name: "taskId", Type: "string", Description: "Task ID from a progress event or response", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          OpShares.String(),
			Name:        "List Shares",
			Description: "List registered network shares and whether their mounts are reachable",
			Returns:     "array",
		},
	}
}

// Cancel requests cancellation of a running task. It takes effect at the
// task's next checkpoint.
func (s *SystemOps) Cancel(_ context.Context, _ *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	taskID, err := requireString(params, "cancel", "taskId")
	if err != nil {
		return nil, err
	}
	if !s.Tasks.Cancel(id.TaskID(taskID)) {
		return nil, errs.Newf(errs.NotFound, "cancel", "", "no running task %s", taskID)
	}
	return map[string]interface{}{"taskId": taskID, "cancelled": true}, nil
}

// ListShares lists the share registry
func (s *SystemOps) ListShares(_ context.Context, _ *task.Handle, _ map[string]interface{}) (map[string]interface{}, error) {
	shares := s.Shares.List()
	return map[string]interface{}{"shares": shares, "count": len(shares)}, nil
}
