// Package inference is the call boundary to the optional statistical
// collaborators: Bayesian-network fitting and ensemble prediction. The
// engines themselves live outside this codebase; what this package owns is
// the capability resolution and the failure policy. An unavailable or
// failing engine degrades the feature, never the pipeline.
package inference

import (
	"context"
	"errors"

	"github.com/ecorisk/bowtie/pkg/logging"
)

// ErrUnavailable is returned when a capability's engine is not configured.
var ErrUnavailable = errors.New("inference engine unavailable")

// Capabilities records which engines were resolved at startup. It is built
// once and injected; components never probe for engines ad hoc.
type Capabilities struct {
	BayesNet     bool `json:"bayes_net"`
	RandomForest bool `json:"random_forest"`
	GBM          bool `json:"gbm"`
	XGBoost      bool `json:"xgboost"`
}

// Evidence maps node names to observed states for a posterior query.
type Evidence map[string]string

// Posterior maps outcome states to probabilities.
type Posterior map[string]float64

// BayesianNetwork is the structure-in, fitted-model-out contract of the
// external BN engine.
type BayesianNetwork interface {
	// Fit learns parameters for the given directed structure from data.
	Fit(ctx context.Context, nodes []string, edges [][2]string, observations []map[string]string) error
	// Query returns the posterior over target given evidence.
	Query(ctx context.Context, target string, evidence Evidence) (Posterior, error)
}

// EnsemblePredictor is the contract of the external ensemble engine.
type EnsemblePredictor interface {
	Train(ctx context.Context, features [][]float64, labels []string) error
	Predict(ctx context.Context, features []float64) (string, float64, error)
}

// Service fronts the engines with the degrade-not-crash policy.
type Service struct {
	caps     Capabilities
	bayes    BayesianNetwork
	ensemble EnsemblePredictor
	logger   logging.Logger
}

// NewService wires the configured engines. Nil engines mark their
// capability unavailable.
func NewService(bayes BayesianNetwork, ensemble EnsemblePredictor, caps Capabilities, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if bayes == nil {
		caps.BayesNet = false
	}
	if ensemble == nil {
		caps.RandomForest = false
		caps.GBM = false
		caps.XGBoost = false
	}
	return &Service{caps: caps, bayes: bayes, ensemble: ensemble, logger: logger}
}

// Capabilities reports what was resolved at startup.
func (s *Service) Capabilities() Capabilities {
	return s.caps
}

// QueryPosterior runs a BN query. Engine failures are logged and surfaced
// as ErrUnavailable so the caller renders "feature unavailable".
func (s *Service) QueryPosterior(ctx context.Context, target string, evidence Evidence) (Posterior, error) {
	if !s.caps.BayesNet || s.bayes == nil {
		return nil, ErrUnavailable
	}
	posterior, err := s.bayes.Query(ctx, target, evidence)
	if err != nil {
		s.logger.Error("bayesian query failed",
			logging.String("target", target), logging.Error(err))
		return nil, errors.Join(ErrUnavailable, err)
	}
	return posterior, nil
}

// PredictLevel runs the ensemble predictor. Same failure policy as
// QueryPosterior.
func (s *Service) PredictLevel(ctx context.Context, features []float64) (string, float64, error) {
	if s.ensemble == nil {
		return "", 0, ErrUnavailable
	}
	label, confidence, err := s.ensemble.Predict(ctx, features)
	if err != nil {
		s.logger.Error("ensemble prediction failed", logging.Error(err))
		return "", 0, errors.Join(ErrUnavailable, err)
	}
	return label, confidence, nil
}
