package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gamedex/internal/domain"
	"github.com/kailas-cloud/gamedex/internal/domain/search/filter"
	domquery "github.com/kailas-cloud/gamedex/internal/domain/search/query"
	"github.com/kailas-cloud/gamedex/internal/index/lexical"
	"github.com/kailas-cloud/gamedex/internal/logger"
	"github.com/kailas-cloud/gamedex/internal/metrics"
)

// Service turns raw user input into a validated Query: threat classification
// first, then sanitization and tokenization.
type Service struct {
	tok        *lexical.Tokenizer
	classifier *Classifier
}

// New creates a query processor.
func New(tok *lexical.Tokenizer, classifier *Classifier) *Service {
	return &Service{tok: tok, classifier: classifier}
}

// Process validates and normalizes a raw search request. Queries that cross
// the risk threshold are rejected with a ValidationError and logged by hash;
// the raw text of a rejected query never reaches the log.
func (s *Service) Process(
	ctx context.Context, raw string, filters filter.Set, limit, offset int,
) (domquery.Query, error) {
	if raw == "" {
		metrics.SearchRejectedTotal.WithLabelValues("invalid").Inc()
		return domquery.Query{}, domain.NewValidationError("empty query", 0)
	}
	if len(raw) > domquery.MaxRawLength {
		metrics.SearchRejectedTotal.WithLabelValues("invalid").Inc()
		return domquery.Query{}, domain.NewValidationError("query too long", 0)
	}

	verdict := s.classifier.Classify(raw)
	if s.classifier.Rejects(verdict) {
		metrics.SearchRejectedTotal.WithLabelValues("malicious").Inc()
		logger.FromContext(ctx).Warn("query rejected",
			zap.String("query_sha256", hashQuery(raw)),
			zap.String("category", verdict.Category),
			zap.Float64("risk_score", verdict.RiskScore),
		)
		return domquery.Query{}, domain.NewValidationError(
			"query rejected: "+verdict.Category, verdict.RiskScore,
		)
	}

	normalized := Sanitize(raw)
	if normalized == "" {
		return domquery.Query{}, domain.NewValidationError("empty query after sanitization", 0)
	}

	var threat *domquery.Threat
	if verdict.RiskScore > 0 {
		threat = &domquery.Threat{
			Category:  verdict.Category,
			RiskScore: verdict.RiskScore,
		}
		logger.FromContext(ctx).Info("query flagged below threshold",
			zap.String("query_sha256", hashQuery(raw)),
			zap.String("category", verdict.Category),
			zap.Float64("risk_score", verdict.RiskScore),
		)
	}

	q, err := domquery.New(raw, normalized, s.tok.Tokenize(normalized), filters, limit, offset, threat)
	if err != nil {
		return domquery.Query{}, domain.NewValidationError(err.Error(), 0)
	}
	return q, nil
}

func hashQuery(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
