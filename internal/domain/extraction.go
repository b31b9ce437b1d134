package domain

import "time"

// VerdictOutcome is the grounding decision taken for one value.
type VerdictOutcome string

const (
	VerdictKept               VerdictOutcome = "kept"
	VerdictClearedUnsupported VerdictOutcome = "cleared-unsupported"
	VerdictClearedSuspicious  VerdictOutcome = "cleared-suspicious"
)

// Verdict records what the grounding validator did with one value.
// Field is a path such as "brand", "technical_specs.capacity" or "features[2]".
type Verdict struct {
	Field           string         `json:"field"`
	Value           string         `json:"value"`
	Outcome         VerdictOutcome `json:"outcome"`
	ForeignLanguage bool           `json:"foreign_language,omitempty"`
}

// RecoveryStrategy names the recovery step that produced a structure.
type RecoveryStrategy string

const (
	StrategyDirect  RecoveryStrategy = "direct"
	StrategyPattern RecoveryStrategy = "pattern"
	StrategyRepair  RecoveryStrategy = "repair"
	StrategyNone    RecoveryStrategy = "none"
)

// Recovery is the outcome of coercing raw model text into a record.
// When Strategy is StrategyNone the record is the empty schema and RawText
// holds the unparsed reply for diagnostics.
type Recovery struct {
	Record    ProductRecord
	Strategy  RecoveryStrategy
	Conforms  bool
	RawText   string
	RawFields map[string]any
}

// Parsed reports whether one of the recovery strategies succeeded.
func (r Recovery) Parsed() bool { return r.Strategy != StrategyNone }

// ModelOptions are the sampling options sent with every generate request.
type ModelOptions struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	NumPredict  int      `json:"num_predict"`
	Stop        []string `json:"stop,omitempty"`
}

// ModelRequest is a single non-streaming generate call.
type ModelRequest struct {
	Model   string       `json:"model"`
	Prompt  string       `json:"prompt"`
	Stream  bool         `json:"stream"`
	Options ModelOptions `json:"options"`
}

// ModelReply is the part of the model-service reply the pipeline consumes.
type ModelReply struct {
	Response string `json:"response"`
}

// RawModelReply is an unparsed reply tagged with its prompt. It is kept for
// diagnostics only.
type RawModelReply struct {
	Prompt     string
	Response   string
	ReceivedAt time.Time
}

// SegmentAnalysis is the validated outcome of analysing one segment.
type SegmentAnalysis struct {
	SegmentIndex int
	Record       ProductRecord
	Verdicts     []Verdict
	Strategy     RecoveryStrategy
	Attempts     int
	UsedFallback bool
}

// ExtractionRequest is one document submitted to the pipeline.
type ExtractionRequest struct {
	SessionID string
	Filename  string
	Text      string
}

// ExtractionResult is the merged record plus what it took to build it.
type ExtractionResult struct {
	Record   ProductRecord `json:"product"`
	Segments int           `json:"segments"`
	Verdicts []Verdict     `json:"verdicts,omitempty"`
	Cached   bool          `json:"cached"`
}

// DiagnosticMetadata identifies the attempt a diagnostic record belongs to.
type DiagnosticMetadata struct {
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Model     string `json:"model"`
	Filename  string `json:"filename"`
	Segment   int    `json:"segment"`
	Attempt   int    `json:"attempt"`
	Fallback  bool   `json:"fallback,omitempty"`
}

// DiagnosticAnalysisInfo summarises one attempt.
type DiagnosticAnalysisInfo struct {
	PromptLength      int    `json:"prompt_length"`
	ResponseLength    int    `json:"response_length"`
	ParsedFieldsCount int    `json:"parsed_fields_count"`
	ModelUsed         string `json:"model_used"`
	Strategy          string `json:"strategy"`
}

// DiagnosticRecord is written once per model attempt and never read back by
// the pipeline.
type DiagnosticRecord struct {
	Metadata     DiagnosticMetadata     `json:"metadata"`
	Prompt       string                 `json:"prompt"`
	RawResponse  string                 `json:"raw_response"`
	ParsedData   ProductRecord          `json:"parsed_data"`
	AnalysisInfo DiagnosticAnalysisInfo `json:"analysis_info"`
}
