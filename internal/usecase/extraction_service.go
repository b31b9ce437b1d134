package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phuslu/log"

	"github.com/productsheet/backend/internal/domain"
)

// ExtractionServiceConfig holds configuration for the extraction service
type ExtractionServiceConfig struct {
	// SegmentThreshold is the rune count above which text is segmented.
	SegmentThreshold int
	Retry            RetryPolicy
	ProbeAttempts    int
	ProbeDelay       time.Duration
	CacheTTL         time.Duration
}

// ExtractionService is the pipeline entry point: probe, segment, analyse
// each segment in order, merge and cache.
type ExtractionService struct {
	prober    *AvailabilityProber
	segmenter *TextSegmenter
	analyzer  *SegmentAnalyzer
	merger    *ResultMerger
	cache     domain.CacheRepository
	config    ExtractionServiceConfig
}

// NewExtractionService creates a new extraction service. cache may be nil.
func NewExtractionService(
	prober *AvailabilityProber,
	segmenter *TextSegmenter,
	analyzer *SegmentAnalyzer,
	merger *ResultMerger,
	cache domain.CacheRepository,
	config ExtractionServiceConfig,
) *ExtractionService {
	if config.CacheTTL == 0 {
		config.CacheTTL = 24 * time.Hour
	}
	if config.ProbeAttempts < 1 {
		config.ProbeAttempts = 1
	}

	return &ExtractionService{
		prober:    prober,
		segmenter: segmenter,
		analyzer:  analyzer,
		merger:    merger,
		cache:     cache,
		config:    config,
	}
}

// Ready reports whether the model service currently answers. It is used by
// the health endpoint.
func (s *ExtractionService) Ready(ctx context.Context) bool {
	return s.prober.Probe(ctx)
}

// Extract builds the product record for one document.
// Flow: check cache -> probe -> segment -> analyse each segment -> merge -> cache
func (s *ExtractionService) Extract(ctx context.Context, request domain.ExtractionRequest) (*domain.ExtractionResult, error) {
	if strings.TrimSpace(request.Text) == "" {
		return nil, domain.ErrEmptyDocument
	}

	cacheKey := generateCacheKey(request.Text)
	if cached, ok := s.getFromCache(ctx, cacheKey); ok {
		log.Info().Str("session", request.SessionID).Msg("[EXTRACT] Served from cache")
		return &domain.ExtractionResult{Record: cached, Segments: 0, Cached: true}, nil
	}

	if !s.prober.WaitUntilReady(ctx, s.config.ProbeAttempts, s.config.ProbeDelay) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrServiceUnavailable
	}

	segments := s.split(request.Text)
	log.Info().Str("session", request.SessionID).Int("segments", len(segments)).Int("length", utf8.RuneCountInString(request.Text)).Msg("[EXTRACT] Starting analysis")

	records := make([]domain.ProductRecord, 0, len(segments))
	var verdicts []domain.Verdict
	for _, segment := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		analysis, err := s.analyzer.Analyze(ctx, SegmentJob{
			SessionID: request.SessionID,
			Filename:  request.Filename,
			Segment:   segment,
			Source:    request.Text,
		}, s.config.Retry)
		if err != nil {
			return nil, &domain.SegmentError{Index: segment.Index, Err: err}
		}

		records = append(records, analysis.Record)
		verdicts = append(verdicts, analysis.Verdicts...)
	}

	merged := s.merger.Merge(records)
	s.setInCache(ctx, cacheKey, merged)

	log.Info().Str("session", request.SessionID).Int("fields", merged.FilledFields()).Msg("[EXTRACT] Extraction complete")

	return &domain.ExtractionResult{
		Record:   merged,
		Segments: len(segments),
		Verdicts: verdicts,
	}, nil
}

// split returns the single whole-text segment at or below the threshold.
func (s *ExtractionService) split(text string) []domain.Segment {
	n := utf8.RuneCountInString(text)
	if n <= s.config.SegmentThreshold {
		return []domain.Segment{{Index: 0, Text: text, Start: 0, End: n}}
	}
	return s.segmenter.Split(text)
}

// generateCacheKey derives the cache key from the source text digest.
// Format: "extraction:{sha256}"
func generateCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("extraction:%s", hex.EncodeToString(sum[:]))
}

func (s *ExtractionService) getFromCache(ctx context.Context, key string) (domain.ProductRecord, bool) {
	if s.cache == nil {
		return domain.ProductRecord{}, false
	}
	record, err := s.cache.Get(ctx, key)
	if err != nil {
		return domain.ProductRecord{}, false
	}
	return record, true
}

func (s *ExtractionService) setInCache(ctx context.Context, key string, record domain.ProductRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, record, s.config.CacheTTL); err != nil {
		log.Warn().Err(err).Msg("[EXTRACT] Failed to cache result")
	}
}
