package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
)

// WorkflowClient starts executions of one Cloud Workflow.
type WorkflowClient struct {
	client *executions.Client
	parent string
}

func NewWorkflowClient(client *executions.Client, projectID, location, workflowID string) *WorkflowClient {
	return &WorkflowClient{
		client: client,
		parent: WorkflowParent(projectID, location, workflowID),
	}
}

// WorkflowParent is the resource name executions are created under.
func WorkflowParent(projectID, location, workflowID string) string {
	return fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID)
}

// Trigger starts an execution with payload as its JSON argument and returns
// the execution name.
func (w *WorkflowClient) Trigger(ctx context.Context, payload any) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: w.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	exec, err := w.client.CreateExecution(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return exec.GetName(), nil
}
