package moderation

import "context"

// Decision is a moderation verdict for one query.
type Decision struct {
	Allowed bool
	Reason  string
}

// Classifier renders an allow/block verdict for a search query.
type Classifier interface {
	Classify(ctx context.Context, query string) (Decision, error)
}
