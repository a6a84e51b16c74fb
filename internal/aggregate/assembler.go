package aggregate

import (
	"time"

	"github.com/lumin-ai/lens/internal/conversation"
	"github.com/lumin-ai/lens/internal/selection"
)

// Assembler finalizes a completed draft into an immutable answer and
// appends it to the conversation log.
type Assembler struct {
	selection *selection.Store
	log       *conversation.Log
	now       func() time.Time
}

func NewAssembler(sel *selection.Store, log *conversation.Log) *Assembler {
	return &Assembler{selection: sel, log: log, now: time.Now}
}

// Assemble stamps the draft with the model selection as it stands right
// now, not as it stood when the question was sent. A selection changed
// mid-stream is therefore attributed to the in-flight answer; that is
// the accepted behavior, kept deliberately.
func (as *Assembler) Assemble(d Draft) conversation.Message {
	model, _ := as.selection.Current()
	answer := conversation.Answer{
		Summary:           d.Answer,
		SQLQuery:          d.SQLQuery,
		SQLValid:          d.SQLValid,
		ParsedQuestion:    d.ParsedQuestion,
		VisualizationData: d.VisualizationData,
		Visualization:     d.Visualization,
		ModelUsed:         model,
		AssembledAt:       as.now().UTC(),
	}
	return as.log.AppendAnswer(answer)
}
