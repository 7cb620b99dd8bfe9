package moderation

import (
	"context"

	"go.uber.org/zap"

	"github.com/perchlabs/perch/internal/metrics"
)

// Service gates search queries through a content classifier. Moderation
// fails open: an unavailable or failing classifier must never take search
// down with it.
type Service struct {
	classifier Classifier
	enabled    bool
	logger     *zap.Logger
}

// New creates a moderation service. A nil classifier disables moderation.
func New(classifier Classifier, enabled bool, logger *zap.Logger) *Service {
	return &Service{
		classifier: classifier,
		enabled:    enabled && classifier != nil,
		logger:     logger,
	}
}

// Check classifies a query. Disabled moderation and classifier errors both
// allow the query through.
func (s *Service) Check(ctx context.Context, query string) Decision {
	if !s.enabled {
		return Decision{Allowed: true, Reason: "moderation disabled"}
	}

	decision, err := s.classifier.Classify(ctx, query)
	if err != nil {
		s.logger.Warn("Moderation check failed, allowing query", zap.Error(err))
		metrics.ModerationDecisionsTotal.WithLabelValues("error").Inc()
		return Decision{Allowed: true, Reason: "moderation check failed"}
	}

	if decision.Allowed {
		metrics.ModerationDecisionsTotal.WithLabelValues("allow").Inc()
	} else {
		metrics.ModerationDecisionsTotal.WithLabelValues("block").Inc()
	}
	return decision
}
