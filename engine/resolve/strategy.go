package resolve

import (
	"github.com/LossLensAI/losslens-engine/engine/domain"
)

// strategy is one rung of a field cascade: a named attempt at extracting a
// value from the document at a given trust tier. Adding a dialect or a new
// heuristic means appending a strategy, not growing a conditional.
type strategy[T any] struct {
	name string
	tier domain.Tier
	run  func(doc domain.Document) (T, bool)
}

// runCascade tries strategies in order and returns the first hit, tagged
// with the winning strategy's tier and name.
func runCascade[T any](doc domain.Document, strategies []strategy[T]) domain.Resolution[T] {
	for _, s := range strategies {
		if v, ok := s.run(doc); ok {
			return domain.Resolved(v, s.tier, s.name)
		}
	}
	return domain.Unresolved[T]()
}

// state carries the cross-field values one resolution run is allowed to
// share: the identifier found in the text and the manufacturer once known.
// It lives for a single Resolve call and is never shared across runs.
type state struct {
	identifier string
	maker      string
}
