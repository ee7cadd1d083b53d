package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-gudang/internal/obs"
)

// TaskTypeAppendNote is the asynq task type for deferred note delivery.
const TaskTypeAppendNote = "crm:append_note"

// AppendNotePayload carries one note append command.
type AppendNotePayload struct {
	DealID string `json:"dealId"`
	Text   string `json:"text"`
}

// NewAppendNoteTask constructs an asynq task for the payload.
func NewAppendNoteTask(payload AppendNotePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAppendNote, data, asynq.MaxRetry(10)), nil
}

// Enqueuer is a NoteSink that hands notes to the worker queue. Enqueue
// failures surface to the caller; delivery retries happen out of band.
type Enqueuer struct {
	Tasks *asynq.Client
	Queue string
}

// AppendNote enqueues the note for asynchronous delivery.
func (e Enqueuer) AppendNote(ctx context.Context, dealID, text string) error {
	if e.Tasks == nil {
		return errors.New("crm: task client not configured")
	}
	task, err := NewAppendNoteTask(AppendNotePayload{DealID: dealID, Text: text})
	if err != nil {
		return err
	}
	queue := e.Queue
	if queue == "" {
		queue = "default"
	}
	if _, err := e.Tasks.EnqueueContext(ctx, task, asynq.Queue(queue)); err != nil {
		return fmt.Errorf("enqueue note: %w", err)
	}
	return nil
}

// NoteWorker processes append-note tasks against the CRM API.
type NoteWorker struct {
	Client *Client
	Logger *zerolog.Logger
}

// HandleAppendNote delivers one queued note. Malformed payloads are dropped
// rather than retried.
func (w NoteWorker) HandleAppendNote(ctx context.Context, t *asynq.Task) error {
	var payload AppendNotePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode note payload: %w", asynq.SkipRetry)
	}
	if w.Client == nil {
		return errors.New("crm: note worker not configured")
	}
	if err := w.Client.AppendNote(ctx, payload.DealID, payload.Text); err != nil {
		obs.CountNoteDelivery("error")
		if w.Logger != nil {
			w.Logger.Error().Err(err).Str("deal_id", payload.DealID).Msg("append note failed")
		}
		return err
	}
	obs.CountNoteDelivery("ok")
	if w.Logger != nil {
		w.Logger.Info().Str("deal_id", payload.DealID).Msg("note appended")
	}
	return nil
}
