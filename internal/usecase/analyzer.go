package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"github.com/productsheet/backend/internal/domain"
)

// AnalyzerConfig holds the model settings used for every request
type AnalyzerConfig struct {
	Model   string
	Options domain.ModelOptions
	Prompts PromptTemplates
}

// SegmentJob is one segment to analyse. Source is the full source text that
// extracted values are grounded against.
type SegmentJob struct {
	SessionID string
	Filename  string
	Segment   domain.Segment
	Source    string
}

// SegmentAnalyzer runs the model call, recovery and grounding for one
// segment, with retries and a reduced-schema fallback.
type SegmentAnalyzer struct {
	client      domain.ModelClient
	recoverer   *ResponseRecoverer
	validator   *GroundingValidator
	diagnostics domain.DiagnosticsStore
	config      AnalyzerConfig
	now         func() time.Time
}

// NewSegmentAnalyzer creates an analyzer. diagnostics may be nil.
func NewSegmentAnalyzer(
	client domain.ModelClient,
	recoverer *ResponseRecoverer,
	validator *GroundingValidator,
	diagnostics domain.DiagnosticsStore,
	config AnalyzerConfig,
) *SegmentAnalyzer {
	config.Prompts = config.Prompts.withDefaults()

	return &SegmentAnalyzer{
		client:      client,
		recoverer:   recoverer,
		validator:   validator,
		diagnostics: diagnostics,
		config:      config,
		now:         time.Now,
	}
}

// Analyze returns the validated record for one segment.
// Connection failures and 5xx replies are retried up to policy.MaxRetries
// attempts in total, then reported as ErrServiceUnavailable or the last
// error. Timeouts fail at once. Replies that cannot be parsed are retried
// and, after the last attempt, one reduced-schema request is made; if that
// is unparsable too the empty record is returned without error.
func (a *SegmentAnalyzer) Analyze(ctx context.Context, job SegmentJob, policy RetryPolicy) (*domain.SegmentAnalysis, error) {
	prompt := a.config.Prompts.full(job.Segment.Text)
	maxAttempts := policy.attempts()

	var last attemptResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, policy.Delay); err != nil {
				return nil, err
			}
		}

		last = a.attempt(ctx, job, prompt, attempt, false)
		switch last.outcome {
		case attemptSucceeded:
			return last.analysis, nil
		case attemptFatal:
			log.Error().Err(last.err).Int("segment", job.Segment.Index).Int("attempt", attempt).Msg("[ANALYZE] Segment analysis failed")
			return nil, last.err
		}

		log.Warn().Err(last.err).Int("segment", job.Segment.Index).Int("attempt", attempt).Int("max_attempts", maxAttempts).Msg("[ANALYZE] Attempt failed, retrying")
	}

	if errors.Is(last.err, domain.ErrUnparsable) {
		return a.fallback(ctx, job, maxAttempts+1)
	}
	return nil, exhausted(last.err, maxAttempts)
}

// fallback makes the single reduced-schema request.
func (a *SegmentAnalyzer) fallback(ctx context.Context, job SegmentJob, attempt int) (*domain.SegmentAnalysis, error) {
	log.Warn().Int("segment", job.Segment.Index).Msg("[ANALYZE] Falling back to reduced schema")

	res := a.attempt(ctx, job, a.config.Prompts.reduced(job.Segment.Text), attempt, true)
	switch {
	case res.outcome == attemptSucceeded:
		return res.analysis, nil
	case errors.Is(res.err, domain.ErrUnparsable):
		log.Warn().Int("segment", job.Segment.Index).Msg("[ANALYZE] No structure recovered, keeping empty record")
		return &domain.SegmentAnalysis{
			SegmentIndex: job.Segment.Index,
			Record:       domain.NewProductRecord(),
			Strategy:     domain.StrategyNone,
			Attempts:     attempt,
			UsedFallback: true,
		}, nil
	case res.outcome == attemptRetryable:
		return nil, exhausted(res.err, attempt)
	default:
		return nil, res.err
	}
}

func exhausted(err error, attempts int) error {
	if errors.Is(err, domain.ErrModelConnection) {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	return fmt.Errorf("model service failed after %d attempts: %w", attempts, err)
}

// attempt makes one model call and classifies the outcome.
func (a *SegmentAnalyzer) attempt(ctx context.Context, job SegmentJob, prompt string, attempt int, fallback bool) attemptResult {
	req := domain.ModelRequest{
		Model:   a.config.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: a.config.Options,
	}

	reply, err := a.client.Generate(ctx, req)
	if err != nil {
		return classifyModelError(err)
	}

	recovery := a.recoverer.Recover(reply.Response)
	if !recovery.Parsed() {
		a.saveDiagnostic(ctx, job, req, reply.Response, recovery, recovery.Record, attempt, fallback)
		return attemptResult{outcome: attemptRetryable, err: domain.ErrUnparsable}
	}

	record, verdicts := a.validator.Validate(recovery.Record, job.Source)
	record = withUnits(record, recovery.RawFields)
	a.saveDiagnostic(ctx, job, req, reply.Response, recovery, record, attempt, fallback)

	log.Info().
		Int("segment", job.Segment.Index).
		Int("attempt", attempt).
		Str("strategy", string(recovery.Strategy)).
		Bool("conforms", recovery.Conforms).
		Int("fields", record.FilledFields()).
		Msg("[ANALYZE] Segment analysed")

	return attemptResult{
		outcome: attemptSucceeded,
		analysis: &domain.SegmentAnalysis{
			SegmentIndex: job.Segment.Index,
			Record:       record,
			Verdicts:     verdicts,
			Strategy:     recovery.Strategy,
			Attempts:     attempt,
			UsedFallback: fallback,
		},
	}
}

// saveDiagnostic persists the attempt. Failures are logged and ignored.
func (a *SegmentAnalyzer) saveDiagnostic(
	ctx context.Context,
	job SegmentJob,
	req domain.ModelRequest,
	raw string,
	recovery domain.Recovery,
	record domain.ProductRecord,
	attempt int,
	fallback bool,
) {
	if a.diagnostics == nil {
		return
	}

	diag := domain.DiagnosticRecord{
		Metadata: domain.DiagnosticMetadata{
			SessionID: job.SessionID,
			Timestamp: a.now().UTC().Format(time.RFC3339Nano),
			Model:     req.Model,
			Filename:  job.Filename,
			Segment:   job.Segment.Index,
			Attempt:   attempt,
			Fallback:  fallback,
		},
		Prompt:      req.Prompt,
		RawResponse: raw,
		ParsedData:  record,
		AnalysisInfo: domain.DiagnosticAnalysisInfo{
			PromptLength:      len([]rune(req.Prompt)),
			ResponseLength:    len([]rune(raw)),
			ParsedFieldsCount: record.FilledFields(),
			ModelUsed:         req.Model,
			Strategy:          string(recovery.Strategy),
		},
	}

	if _, err := a.diagnostics.Save(ctx, diag); err != nil {
		log.Warn().Err(err).Int("segment", job.Segment.Index).Msg("[ANALYZE] Could not save diagnostic record")
	}
}
