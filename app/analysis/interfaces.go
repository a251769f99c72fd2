package analysis

import (
	"context"
	"encoding/json"
)

// KeywordExtractor extracts the topK most salient terms from a text.
// Deterministic for fixed input.
type KeywordExtractor interface {
	Extract(ctx context.Context, text string, topK int) ([]string, error)
}

// SentimentAnalyzer maps a token sequence to an emotion vector. The schema of
// the vector is owned by the analysis service; the pipeline stores it opaquely.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, tokens []string) (json.RawMessage, error)
}
