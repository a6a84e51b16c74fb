// Package chat drives one question cycle end to end: log the question,
// open the stream, fold events, and on the terminal signal assemble the
// answer or surface the failure.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lumin-ai/lens/internal/aggregate"
	"github.com/lumin-ai/lens/internal/conversation"
	"github.com/lumin-ai/lens/internal/notify"
	"github.com/lumin-ai/lens/internal/selection"
	"github.com/lumin-ai/lens/internal/stream"
)

// AskParams carries the dataset/table context for a question. All
// fields are optional; a context-free question runs in chat mode.
type AskParams struct {
	DatasetID      *int
	SelectedTables []string
	ConversationID *int
}

// Runner owns the active stream session. At most one session is live;
// submitting a new question supersedes the previous one.
type Runner struct {
	streams   *stream.Client
	agg       *aggregate.Aggregator
	assembler *aggregate.Assembler
	log       *conversation.Log
	selection *selection.Store
	notifier  *notify.Notifier
	logger    *slog.Logger

	mu      sync.Mutex
	latest  uint64
	current *stream.Session
}

func NewRunner(
	streams *stream.Client,
	agg *aggregate.Aggregator,
	assembler *aggregate.Assembler,
	log *conversation.Log,
	sel *selection.Store,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		streams:   streams,
		agg:       agg,
		assembler: assembler,
		log:       log,
		selection: sel,
		notifier:  notifier,
		logger:    logger,
	}
}

// Ask submits a question. The user-question message is appended before
// the stream opens, so the conversation reflects it regardless of
// network latency. The returned message is that question entry; the
// answer arrives in the log asynchronously.
func (r *Runner) Ask(ctx context.Context, question string, params AskParams) (conversation.Message, error) {
	msg := r.log.AppendQuestion(question)
	r.notifier.Publish(notify.SubjectMessageAppended, messageNotice(msg))

	token := r.agg.Start()
	r.supersede(token)

	model, _ := r.selection.Current()
	req := stream.Request{
		Question:       question,
		Type:           requestType(params),
		DatasetID:      params.DatasetID,
		SelectedTables: params.SelectedTables,
		Model:          model,
		ConversationID: params.ConversationID,
	}

	// The stream outlives the submitting request; only supersession,
	// explicit cancel or the idle watchdog end it.
	session, err := r.streams.Open(context.WithoutCancel(ctx), req)
	if err != nil {
		r.agg.Finish(token, err)
		r.notifier.Publish(notify.SubjectStreamFailed, map[string]any{"error": err.Error()})
		return msg, err
	}

	r.mu.Lock()
	if r.latest == token {
		r.current = session
	} else {
		// A newer question arrived while this one was connecting.
		defer session.Cancel()
	}
	r.mu.Unlock()

	go r.drain(token, session)
	return msg, nil
}

// Cancel stops the live session, if any. Idempotent.
func (r *Runner) Cancel() {
	r.mu.Lock()
	s := r.current
	r.mu.Unlock()
	if s != nil {
		s.Cancel()
	}
}

// supersede cancels whatever session is still live. Its remaining
// events are already locked out by the aggregator's session counter;
// the cancel just releases the connection. Tokens are only allowed to
// move latest forward: when two questions race, the one holding the
// older token must not cancel the newer one's session, so a stale
// token is a no-op and that question ends up superseded itself.
func (r *Runner) supersede(token uint64) {
	r.mu.Lock()
	if token < r.latest {
		r.mu.Unlock()
		return
	}
	s := r.current
	r.current = nil
	r.latest = token
	r.mu.Unlock()
	if s != nil {
		r.logger.Info("superseding live stream session")
		s.Cancel()
	}
}

func (r *Runner) drain(token uint64, session *stream.Session) {
	for ev := range session.Events() {
		r.agg.Observe(token, ev)
	}
	streamErr := session.Err()

	r.mu.Lock()
	if r.current == session {
		r.current = nil
	}
	r.mu.Unlock()

	draft, outcome := r.agg.Finish(token, streamErr)
	switch outcome {
	case aggregate.Completed:
		msg := r.assembler.Assemble(draft)
		r.logger.Info("answer assembled", "message_id", msg.ID, "model", msg.Answer.ModelUsed)
		r.notifier.Publish(notify.SubjectMessageAppended, messageNotice(msg))
		r.notifier.Publish(notify.SubjectAnswerAssembled, map[string]any{
			"message_id": msg.ID.String(),
			"model_used": msg.Answer.ModelUsed,
		})
	case aggregate.Failed:
		if errors.Is(streamErr, stream.ErrCanceled) {
			r.logger.Info("stream canceled", "session", token)
		} else {
			r.logger.Warn("stream failed", "error", streamErr)
		}
		r.notifier.Publish(notify.SubjectStreamFailed, map[string]any{"error": streamErr.Error()})
	case aggregate.Superseded:
		// Events discarded, no answer.
		r.logger.Debug("stream ended without answer", "session", token)
	}
}

func requestType(p AskParams) string {
	if p.DatasetID != nil || len(p.SelectedTables) > 0 {
		return "sql"
	}
	return "chat"
}

func messageNotice(m conversation.Message) map[string]any {
	return map[string]any{
		"message_id": m.ID.String(),
		"kind":       string(m.Kind),
	}
}
