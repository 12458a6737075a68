package temporal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	// Workflow IDs
	IngestWorkflowIDPrefix      = "ingest-"
	ReconstructWorkflowIDPrefix = "reconstruct-"
	ValuesWorkflowIDPrefix      = "values-"

	// DefaultTaskQueue is the task queue served by the worker
	DefaultTaskQueue = "epitaxy-task-queue"

	// Activity names
	StoreSettingsActivityName  = "store-settings"
	ParseLogsActivityName      = "parse-logs"
	ProcessChannelActivityName = "process-channel"
	ReconstructActivityName    = "reconstruct"
	ChannelValuesActivityName  = "channel-values"
)

// Registrar is the part of a worker the workflows and activities are
// registered on
type Registrar interface {
	RegisterWorkflow(w interface{})
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register registers the workflows and activities under the names the
// workflows call them by
func Register(r Registrar, a *Activities) {
	r.RegisterWorkflow(IngestRunWorkflow)
	r.RegisterWorkflow(ReconstructionWorkflow)
	r.RegisterWorkflow(ChannelValuesWorkflow)

	r.RegisterActivityWithOptions(a.StoreSettingsActivity, activity.RegisterOptions{Name: StoreSettingsActivityName})
	r.RegisterActivityWithOptions(a.ParseLogsActivity, activity.RegisterOptions{Name: ParseLogsActivityName})
	r.RegisterActivityWithOptions(a.ProcessChannelActivity, activity.RegisterOptions{Name: ProcessChannelActivityName})
	r.RegisterActivityWithOptions(a.ReconstructActivity, activity.RegisterOptions{Name: ReconstructActivityName})
	r.RegisterActivityWithOptions(a.ChannelValuesActivity, activity.RegisterOptions{Name: ChannelValuesActivityName})
}

func withActivityOptions(ctx workflow.Context, timeout time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		ScheduleToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
}

// IngestRunWorkflow stores the settings of a run, parses its logs and
// processes every channel in a parallel activity
func IngestRunWorkflow(ctx workflow.Context, req IngestRequest) (*IngestResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting ingest workflow", "runID", req.RunID)

	ctx = withActivityOptions(ctx, 5*time.Minute)
	result := &IngestResult{RunID: req.RunID}

	if req.Settings != nil {
		err := workflow.ExecuteActivity(ctx, StoreSettingsActivityName, req.RunID, *req.Settings).Get(ctx, &result.Settings)
		if err != nil {
			return nil, fmt.Errorf("failed to store settings: %w", err)
		}
	}
	if req.Values == "" {
		logger.Info("No logs uploaded", "runID", req.RunID)
		return result, nil
	}

	var parsed ParseResult
	parse := ParseRequest{
		RunID:    req.RunID,
		Values:   req.Values,
		Shutters: req.Shutters,
		Location: req.Location,
		Window:   req.Window,
	}
	if err := workflow.ExecuteActivity(ctx, ParseLogsActivityName, parse).Get(ctx, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse logs: %w", err)
	}
	result.Samples = parsed.Samples

	futures := make([]workflow.Future, len(parsed.ChannelIDs))
	for i, id := range parsed.ChannelIDs {
		futures[i] = workflow.ExecuteActivity(ctx, ProcessChannelActivityName, req.RunID, id)
	}
	for i, future := range futures {
		var summary ChannelSummary
		if err := future.Get(ctx, &summary); err != nil {
			return nil, fmt.Errorf("failed to process channel %d: %w", parsed.ChannelIDs[i], err)
		}
		result.Channels = append(result.Channels, summary)
	}

	logger.Info("Ingest completed", "runID", req.RunID, "channels", len(result.Channels), "samples", result.Samples)
	return result, nil
}

// ReconstructionWorkflow reconstructs the layers of an ingested run
func ReconstructionWorkflow(ctx workflow.Context, req ReconstructRequest) (*ReconstructResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting reconstruction workflow", "runID", req.RunID)

	ctx = withActivityOptions(ctx, 10*time.Minute)

	var result *ReconstructResult
	if err := workflow.ExecuteActivity(ctx, ReconstructActivityName, req).Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to reconstruct: %w", err)
	}

	logger.Info("Reconstruction completed", "runID", req.RunID, "layers", len(result.Layers))
	return result, nil
}

// ChannelValuesWorkflow queries one channel of an ingested run
func ChannelValuesWorkflow(ctx workflow.Context, req ValuesRequest) (*ValuesResult, error) {
	ctx = withActivityOptions(ctx, time.Minute)

	var result *ValuesResult
	if err := workflow.ExecuteActivity(ctx, ChannelValuesActivityName, req).Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to query channel %d: %w", req.ChannelID, err)
	}
	return result, nil
}

// Utility functions for workflow IDs

// NewRunID returns a fresh run id
func NewRunID() string {
	return uuid.NewString()
}

// GenerateIngestWorkflowID creates a workflow ID for ingesting a run
func GenerateIngestWorkflowID(runID string) string {
	return fmt.Sprintf("%s%s-%s", IngestWorkflowIDPrefix, runID, uuid.NewString())
}

// GenerateReconstructWorkflowID creates a workflow ID for a reconstruction
func GenerateReconstructWorkflowID(runID string) string {
	return fmt.Sprintf("%s%s-%s", ReconstructWorkflowIDPrefix, runID, uuid.NewString())
}

// GenerateValuesWorkflowID creates a workflow ID for a channel query
func GenerateValuesWorkflowID(runID string) string {
	return fmt.Sprintf("%s%s-%s", ValuesWorkflowIDPrefix, runID, uuid.NewString())
}
