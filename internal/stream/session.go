// Package stream consumes the Lumin analysis pipeline's streaming
// endpoint: one cancellable session per question, yielding stage events
// in arrival order and a terminal outcome.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrIdleTimeout is the terminal outcome of a stream that stopped
// delivering lines without ever signalling completion.
var ErrIdleTimeout = errors.New("stream idle timeout")

// ErrCanceled is the terminal outcome of an explicitly canceled session.
var ErrCanceled = errors.New("stream canceled")

// Client opens stream sessions against the backend analysis endpoint.
type Client struct {
	baseURL     string
	idleTimeout time.Duration
	client      *http.Client
	logger      *slog.Logger
}

func NewClient(baseURL string, idleTimeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		idleTimeout: idleTimeout,
		// No overall timeout: the stream is open-ended. The idle
		// watchdog bounds how long we wait between lines instead.
		client: &http.Client{},
		logger: logger,
	}
}

// Request is the analysis request record the backend accepts.
type Request struct {
	Question       string   `json:"question"`
	Type           string   `json:"type"`
	DatasetID      *int     `json:"dataset_id,omitempty"`
	SelectedTables []string `json:"selected_tables,omitempty"`
	Model          string   `json:"llm_model"`
	ConversationID *int     `json:"conversation_id,omitempty"`
}

// envelope is one wire line: either a partial result or a pipeline error.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// Session is one live stream. Events are delivered in arrival order on
// Events(); the channel closes on the terminal signal, after which Err
// reports the outcome (nil on success). A session is not restartable.
type Session struct {
	events chan StageEvent
	cancel context.CancelCauseFunc
	done   chan struct{}
	err    error
}

// Open submits the question and starts delivering events. The returned
// error covers connection and request-rejection failures only; failures
// after the stream is established surface through Session.Err.
func (c *Client) Open(ctx context.Context, req Request) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithCancelCause(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/analysis/stream", bytes.NewReader(body))
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		cancel(nil)
		return nil, fmt.Errorf("open stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel(nil)
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			switch {
			case errResp.Error.Message != "":
				return nil, fmt.Errorf("backend rejected request (%d): %s", resp.StatusCode, errResp.Error.Message)
			case errResp.Detail != "":
				return nil, fmt.Errorf("backend rejected request (%d): %s", resp.StatusCode, errResp.Detail)
			}
		}
		return nil, fmt.Errorf("backend rejected request (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	s := &Session{
		events: make(chan StageEvent),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.consume(ctx, s, resp.Body)
	return s, nil
}

// Events yields stage events in arrival order. The channel closes on
// the terminal signal.
func (s *Session) Events() <-chan StageEvent {
	return s.events
}

// Err reports the terminal outcome: nil for success, otherwise the
// failure. Valid once Events() has closed.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Cancel stops further event delivery. Idempotent; safe after natural
// completion. Already-delivered events are not retracted.
func (s *Session) Cancel() {
	s.cancel(ErrCanceled)
}

func (c *Client) consume(ctx context.Context, s *Session, body io.ReadCloser) {
	defer body.Close()

	// Bound the wait between lines so a silent backend becomes a
	// failure terminal instead of a UI stuck in "streaming".
	watchdog := time.AfterFunc(c.idleTimeout, func() {
		s.cancel(ErrIdleTimeout)
	})
	defer watchdog.Stop()

	// done must close before events: a consumer draining Events()
	// calls Err() as soon as the channel closes.
	terminate := func(err error) {
		s.err = err
		close(s.done)
		close(s.events)
	}

	// deliver parses one wire line and forwards its event. It returns
	// a non-nil terminal or done=true when the stream must end.
	deliver := func(line string) (terminal error, done bool) {
		line = strings.TrimSpace(line)
		if line == "" {
			return nil, false
		}
		// Tolerate SSE framing in front of the JSON payload.
		line = strings.TrimPrefix(line, "data: ")

		var env envelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			c.logger.Debug("skipping malformed stream line", "error", err)
			return nil, false
		}
		if env.Error != "" {
			return fmt.Errorf("pipeline error: %s", env.Error), true
		}
		if env.Data == nil {
			return nil, false
		}

		var ev StageEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			// Unknown shape: treat every field as absent, but the
			// event still counts as received.
			c.logger.Debug("stage event with unrecognised payload", "error", err)
			ev = StageEvent{}
		}

		select {
		case s.events <- ev:
			return nil, false
		case <-ctx.Done():
			cause := context.Cause(ctx)
			if cause == nil || errors.Is(cause, context.Canceled) {
				cause = ErrCanceled
			}
			return cause, true
		}
	}

	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				// The last line may arrive without a newline.
				if terminal, done := deliver(line); done {
					terminate(terminal)
					return
				}
				terminate(nil)
				return
			}
			if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				terminate(cause)
				return
			}
			terminate(fmt.Errorf("read stream: %w", err))
			return
		}
		watchdog.Reset(c.idleTimeout)

		if terminal, done := deliver(line); done {
			terminate(terminal)
			return
		}
	}
}
