// Package conversation is the append-only record of the session's
// messages: user questions, assembled answers and file-upload notices.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumin-ai/lens/internal/stream"
)

// Kind discriminates the message variants.
type Kind string

const (
	KindUserQuestion Kind = "user_question"
	KindAnswer       Kind = "answer"
	KindFileUpload   Kind = "file_upload"
)

// Answer is the immutable, finalized result of one completed question
// cycle. Owned by the Message that carries it; never mutated after
// assembly.
type Answer struct {
	Summary           *string                `json:"answer,omitempty"`
	SQLQuery          *string                `json:"sql_query,omitempty"`
	SQLValid          *bool                  `json:"sql_valid,omitempty"`
	ParsedQuestion    *stream.ParsedQuestion `json:"parsed_question,omitempty"`
	VisualizationData []map[string]any       `json:"formatted_data_for_visualization,omitempty"`
	Visualization     *string                `json:"recommended_visualization,omitempty"`
	ModelUsed         string                 `json:"model_used"`
	AssembledAt       time.Time              `json:"assembled_at"`
}

// Upload describes a file-upload notice.
type Upload struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	RowCount int    `json:"row_count"`
}

// Message is one conversation entry. Exactly one of Question, Answer or
// Upload is populated, per Kind.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Question  string    `json:"question,omitempty"`
	Answer    *Answer   `json:"answer,omitempty"`
	Upload    *Upload   `json:"upload,omitempty"`
}

// Log is the ordered, append-only message sequence for the active
// conversation. Append is the only mutator; there is no removal,
// reordering or in-place editing.
type Log struct {
	mu   sync.Mutex
	msgs []Message
}

func NewLog() *Log {
	return &Log{}
}

// AppendQuestion records a user question and returns the stored message.
func (l *Log) AppendQuestion(text string) Message {
	return l.append(Message{Kind: KindUserQuestion, Question: text})
}

// AppendAnswer records an assembled answer and returns the stored message.
func (l *Log) AppendAnswer(a Answer) Message {
	return l.append(Message{Kind: KindAnswer, Answer: &a})
}

// AppendUpload records a file-upload notice and returns the stored message.
func (l *Log) AppendUpload(u Upload) Message {
	return l.append(Message{Kind: KindFileUpload, Upload: &u})
}

func (l *Log) append(m Message) Message {
	m.ID = uuid.New()
	m.CreatedAt = time.Now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, m)
	return m
}

// All returns the messages in insertion order.
func (l *Log) All() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Len reports the message count.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.msgs)
}
