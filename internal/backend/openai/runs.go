package openai

import (
	"context"

	"github.com/openai/openai-go"

	models "threadkeeper/internal/domain/models/assistant"
)

// CreateRun starts a run. Not retried.
func (b *Backend) CreateRun(ctx context.Context, threadID, assistantID string) (*models.Run, error) {
	run, err := b.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	if err != nil {
		return nil, translateError("create run", err)
	}
	out := fromRun(*run)
	return &out, nil
}

// GetRun fetches a run.
func (b *Backend) GetRun(ctx context.Context, threadID, runID string) (*models.Run, error) {
	var run *openai.Run
	err := b.read(ctx, "get run", func(ctx context.Context) error {
		var err error
		run, err = b.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
		return err
	})
	if err != nil {
		return nil, translateError("get run", err)
	}
	out := fromRun(*run)
	return &out, nil
}

// ListRuns returns the newest page of runs. Live runs are always recent, so one
// page of 100 is enough to find them.
func (b *Backend) ListRuns(ctx context.Context, threadID string) ([]models.Run, error) {
	params := openai.BetaThreadRunListParams{
		Limit: openai.Int(100),
		Order: openai.BetaThreadRunListParamsOrderDesc,
	}

	var page []openai.Run
	err := b.read(ctx, "list runs", func(ctx context.Context) error {
		res, err := b.client.Beta.Threads.Runs.List(ctx, threadID, params)
		if err != nil {
			return err
		}
		page = res.Data
		return nil
	})
	if err != nil {
		return nil, translateError("list runs", err)
	}

	runs := make([]models.Run, 0, len(page))
	for _, r := range page {
		runs = append(runs, fromRun(r))
	}
	return runs, nil
}

// CancelRun requests cancellation of a run.
func (b *Backend) CancelRun(ctx context.Context, threadID, runID string) error {
	if _, err := b.client.Beta.Threads.Runs.Cancel(ctx, threadID, runID); err != nil {
		return translateError("cancel run", err)
	}
	return nil
}

func fromRun(r openai.Run) models.Run {
	run := models.Run{
		ID:          r.ID,
		ThreadID:    r.ThreadID,
		AssistantID: r.AssistantID,
		Status:      models.RunStatus(r.Status),
	}
	if r.LastError.Code != "" || r.LastError.Message != "" {
		run.LastError = &models.RunError{
			Code:    string(r.LastError.Code),
			Message: r.LastError.Message,
		}
	}
	return run
}
