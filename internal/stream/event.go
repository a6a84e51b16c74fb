package stream

// StageEvent is one partial result emitted while the backend pipeline
// executes. Every field is optional; a stage only populates what it
// produced. Arrival order on the wire is the only ordering.
type StageEvent struct {
	Answer            *string          `json:"answer,omitempty"`
	SQLQuery          *string          `json:"sql_query,omitempty"`
	SQLValid          *bool            `json:"sql_valid,omitempty"`
	ParsedQuestion    *ParsedQuestion  `json:"parsed_question,omitempty"`
	VisualizationData []map[string]any `json:"formatted_data_for_visualization,omitempty"`
	Visualization     *string          `json:"recommended_visualization,omitempty"`
}

// ParsedQuestion carries the question-analysis stage output.
type ParsedQuestion struct {
	RelevantTables []TableRef `json:"relevant_tables"`
}

// TableRef identifies one table the pipeline considered relevant.
// The backend attaches more columns to this record; only the name is
// contractual.
type TableRef struct {
	TableName string `json:"table_name"`
}

// Empty reports whether the event carries no recognised field at all.
// Such events still count as received (they advance the processing log)
// but contribute nothing to the draft.
func (e StageEvent) Empty() bool {
	return e.Answer == nil &&
		e.SQLQuery == nil &&
		e.SQLValid == nil &&
		e.ParsedQuestion == nil &&
		e.VisualizationData == nil &&
		e.Visualization == nil
}
