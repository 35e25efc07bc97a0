package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/car-advisor/advisor/pkg/adapter"
	"github.com/car-advisor/advisor/pkg/audit"
	"github.com/car-advisor/advisor/pkg/config"
	"github.com/car-advisor/advisor/pkg/favorites"
	"github.com/car-advisor/advisor/pkg/metrics"
	"github.com/car-advisor/advisor/pkg/profiles"
	"github.com/car-advisor/advisor/pkg/recommend"
	"github.com/car-advisor/advisor/pkg/render"
	"github.com/car-advisor/advisor/pkg/scoring"
	"github.com/car-advisor/advisor/pkg/types"
	"github.com/car-advisor/advisor/pkg/wizard"
	log "github.com/sirupsen/logrus"
)

// ErrUpstream wraps every failure of the recommendation service
var ErrUpstream = errors.New("recommendation service failed")

// Recommender is the recommendation service as seen by the engine
type Recommender interface {
	Recommend(ctx context.Context, req types.RecommendationRequest) (*types.RecommendResponse, error)
	Batch(ctx context.Context, ids []string) ([]types.CarRecord, error)
}

// Engine orchestrates diagnosis, request building, the upstream call and
// card rendering
type Engine struct {
	adapter *adapter.Adapter
	client  Recommender
	audit   *audit.AuditTrail
	metrics *metrics.Recorder
}

// New builds an engine from configuration. recorder may be nil.
func New(cfg *config.Config, recorder *metrics.Recorder) (*Engine, error) {
	variant := adapter.DefaultVariant()
	if cfg.VariantFile != "" {
		loaded, err := adapter.LoadVariant(cfg.VariantFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load adapter variant: %w", err)
		}
		variant = loaded
	}

	opts := []recommend.Option{recommend.WithTimeout(cfg.UpstreamTimeout)}
	if recorder != nil {
		opts = append(opts, recommend.WithObserver(recorder))
	}
	client := recommend.NewClient(cfg.UpstreamURL, opts...)

	log.WithFields(log.Fields{
		"variant":  variant.Name,
		"upstream": cfg.UpstreamURL,
		"audit":    cfg.AuditDir != "",
	}).Info("Advisor engine configured")

	return NewWith(adapter.New(variant), client, audit.New(cfg.AuditDir), recorder), nil
}

// NewWith assembles an engine from parts
func NewWith(a *adapter.Adapter, client Recommender, trail *audit.AuditTrail, recorder *metrics.Recorder) *Engine {
	if a == nil {
		a = adapter.New(adapter.DefaultVariant())
	}
	if trail == nil {
		trail = audit.New("")
	}
	return &Engine{adapter: a, client: client, audit: trail, metrics: recorder}
}

// Variant returns the adapter constants in use
func (e *Engine) Variant() adapter.Variant {
	return e.adapter.Variant()
}

// Next advances the session and counts the diagnosis when it completes
func (e *Engine) Next(s *wizard.Session) error {
	if err := s.Next(); err != nil {
		return err
	}
	if s.Step() == types.StepResult {
		e.metrics.ObserveDiagnosis(s.Result())
	}
	return nil
}

// Request returns the recommendation request for a finished session
func (e *Engine) Request(s *wizard.Session) (types.RecommendationRequest, error) {
	return e.adapter.ToRequest(s.Result())
}

// Diagnose scores answers without a session
func (e *Engine) Diagnose(answers *types.AnswerSet) (*DiagnosisResult, error) {
	result := scoring.Score(answers)
	e.metrics.ObserveDiagnosis(result)

	req, err := e.adapter.ToRequest(result)
	if err != nil {
		return nil, err
	}

	profile, _ := profiles.Get(result.Type)
	return &DiagnosisResult{
		Result:        result,
		Profile:       profile,
		Contributions: scoring.Explain(answers),
		Request:       req,
	}, nil
}

// RecommendOptions tune a recommendation run
type RecommendOptions struct {
	Favorites []string
	Sort      render.SortMode
	Metadata  audit.AuditMetadata
}

// Recommend runs the pipeline for a finished session. Only one call per
// session may be outstanding; a failed call leaves the session untouched.
func (e *Engine) Recommend(ctx context.Context, s *wizard.Session, opts RecommendOptions) (*RecommendResult, error) {
	result := s.Result()
	if result == nil {
		return nil, adapter.ErrIncompleteDiagnosis
	}

	if err := s.BeginRequest(); err != nil {
		return nil, err
	}
	defer s.EndRequest()

	if opts.Metadata.Mode == "" {
		opts.Metadata.Mode = string(s.Mode())
	}
	return e.recommend(ctx, s.ID(), result, opts)
}

// RecommendDiagnosis runs the pipeline for a stateless diagnosis
func (e *Engine) RecommendDiagnosis(ctx context.Context, d *DiagnosisResult, opts RecommendOptions) (*RecommendResult, error) {
	if d == nil || d.Result == nil {
		return nil, adapter.ErrIncompleteDiagnosis
	}
	return e.recommend(ctx, "", d.Result, opts)
}

func (e *Engine) recommend(ctx context.Context, sessionID string, result *types.ProfileResult, opts RecommendOptions) (*RecommendResult, error) {
	req, err := e.adapter.ToRequest(result)
	if err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{
		"session": sessionID,
		"profile": result.Type,
	})
	logger.Info("Requesting recommendations")

	resp, err := e.client.Recommend(ctx, req)
	if err != nil {
		logger.WithError(err).Warn("Recommendation request failed")
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	mode := opts.Sort
	if mode == "" {
		mode = render.SortRecommended
	}
	cars := resp.Cars
	render.Sort(cars, mode)

	auditID, err := e.audit.LogDiagnosis(sessionID, result, &req, len(cars), opts.Metadata)
	if err != nil {
		logger.WithError(err).Warn("Failed to write audit record")
	}

	profile, _ := profiles.Get(result.Type)
	logger.WithField("cars", len(cars)).Info("Recommendations rendered")

	return &RecommendResult{
		SessionID: sessionID,
		Result:    result,
		Profile:   profile,
		Request:   req,
		Cards:     render.Cards(cars, favorites.Set(opts.Favorites)),
		Total:     len(cars),
		AuditID:   auditID,
	}, nil
}

// FavoriteCards fetches and renders the favorites page for ids
func (e *Engine) FavoriteCards(ctx context.Context, ids []string) ([]render.Card, error) {
	top := favorites.Top(ids)
	if len(top) == 0 {
		return []render.Card{}, nil
	}

	cars, err := e.client.Batch(ctx, top)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load favorite cars: %w", ErrUpstream, err)
	}
	return render.Cards(cars, favorites.Set(top)), nil
}

// DiagnosisResult is a scored diagnosis with its explanation
type DiagnosisResult struct {
	Result        *types.ProfileResult        `json:"result"`
	Profile       profiles.Profile            `json:"profile"`
	Contributions []scoring.Contribution      `json:"contributions"`
	Request       types.RecommendationRequest `json:"request"`
}

// RecommendResult is the rendered output of one pipeline run
type RecommendResult struct {
	SessionID string                      `json:"session_id,omitempty"`
	Result    *types.ProfileResult        `json:"result"`
	Profile   profiles.Profile            `json:"profile"`
	Request   types.RecommendationRequest `json:"request"`
	Cards     []render.Card               `json:"cards"`
	Total     int                         `json:"total"`
	AuditID   string                      `json:"audit_id,omitempty"`
}
