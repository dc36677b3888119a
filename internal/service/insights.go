package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quillhealth/quill/internal/logger"
	"github.com/quillhealth/quill/internal/models"
	"github.com/quillhealth/quill/internal/repository"
)

type insightsService struct {
	repo    repository.EntryRepository
	crisis  CrisisDetector
	trend   TrendAnalyzer
	predict Predictor
	multi   MultiVariateAnalyzer
	log     logger.Logger
}

// NewInsightsService wires the analysis engines behind a single
// snapshot-then-compute entry point.
func NewInsightsService(
	repo repository.EntryRepository,
	crisis CrisisDetector,
	trend TrendAnalyzer,
	predict Predictor,
	multi MultiVariateAnalyzer,
	log logger.Logger,
) InsightsService {
	return &insightsService{
		repo:    repo,
		crisis:  crisis,
		trend:   trend,
		predict: predict,
		multi:   multi,
		log:     log,
	}
}

// Snapshot reads a decrypted copy of the journal for analysis. Records
// that could not be read are logged and excluded; the analysis runs on
// what remains.
func (s *insightsService) Snapshot(ctx context.Context, since *time.Time) ([]models.Entry, error) {
	entries, issues, err := s.repo.ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot entries: %w", err)
	}
	for _, issue := range issues {
		s.log.WithContext(ctx).Warn("excluding unreadable record from analysis",
			logger.String("record_id", issue.ID),
			logger.Err(issue.Err))
	}
	return entries, nil
}

// GetInsights computes every insight over one snapshot. Engines that
// lack data contribute an insufficiency note instead of a section;
// recomputation over the same entry set is idempotent.
func (s *insightsService) GetInsights(ctx context.Context) (*models.InsightsResponse, error) {
	entries, err := s.Snapshot(ctx, nil)
	if err != nil {
		return nil, err
	}

	resp := &models.InsightsResponse{
		Crisis:     s.crisis.Detect(entries),
		ComputedAt: time.Now().UTC(),
		SampleSize: len(entries),
	}

	trend, err := s.trend.Analyze(entries, 0)
	if note, ok := insufficiency(err); ok {
		resp.Insufficient = append(resp.Insufficient, note)
	} else if err != nil {
		return nil, err
	} else {
		resp.Trend = trend
	}

	prediction, err := s.predict.Predict(entries)
	if note, ok := insufficiency(err); ok {
		resp.Insufficient = append(resp.Insufficient, note)
	} else if err != nil {
		return nil, err
	} else {
		resp.Prediction = prediction
	}

	resp.MultiVariate = s.multi.Analyze(entries)

	return resp, nil
}

func (s *insightsService) GetCrisisSignal(ctx context.Context) (*models.CrisisSignal, error) {
	entries, err := s.Snapshot(ctx, nil)
	if err != nil {
		return nil, err
	}
	return s.crisis.Detect(entries), nil
}

func (s *insightsService) GetTrend(ctx context.Context, lookbackDays int) (*models.TrendResult, error) {
	entries, err := s.Snapshot(ctx, nil)
	if err != nil {
		return nil, err
	}
	return s.trend.Analyze(entries, lookbackDays)
}

func (s *insightsService) GetPrediction(ctx context.Context) (*models.Prediction, error) {
	entries, err := s.Snapshot(ctx, nil)
	if err != nil {
		return nil, err
	}
	return s.predict.Predict(entries)
}

func (s *insightsService) GetMultiVariate(ctx context.Context) (*models.MultiVariateResult, error) {
	entries, err := s.Snapshot(ctx, nil)
	if err != nil {
		return nil, err
	}
	return s.multi.Analyze(entries), nil
}

// insufficiency unwraps an *InsufficientDataError into its note form.
func insufficiency(err error) (models.InsufficiencyNote, bool) {
	var insufficient *InsufficientDataError
	if errors.As(err, &insufficient) {
		return insufficient.Note(), true
	}
	return models.InsufficiencyNote{}, false
}
