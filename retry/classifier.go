package retry

import (
	"fmt"
	"slices"
	"time"

	"github.com/pithecene-io/smithyrt/interceptor"
	"github.com/pithecene-io/smithyrt/sdkerr"
)

// Reason explains why an attempt should be retried: either an explicit
// delay requested by the server, or an error kind that needs backoff.
type Reason struct {
	// Explicit is set when After holds a server-requested delay.
	Explicit bool
	After    time.Duration
	Kind     sdkerr.ErrorKind
}

func (r Reason) String() string {
	if r.Explicit {
		return fmt.Sprintf("explicit retry after %s", r.After)
	}
	return fmt.Sprintf("%s error", r.Kind)
}

// ActionKind is the verdict of a classifier.
type ActionKind int

const (
	// NoActionIndicated defers to the next classifier.
	NoActionIndicated ActionKind = iota
	// RetryIndicated asks for a retry for the attached Reason.
	RetryIndicated
	// RetryForbidden vetoes a retry.
	RetryForbidden
)

func (k ActionKind) String() string {
	switch k {
	case RetryIndicated:
		return "retry_indicated"
	case RetryForbidden:
		return "retry_forbidden"
	default:
		return "no_action_indicated"
	}
}

// Action is the result of classifying a failed attempt.
type Action struct {
	Kind   ActionKind
	Reason Reason
}

// NoAction returns an action that defers to other classifiers.
func NoAction() Action { return Action{} }

// Forbid returns an action that vetoes a retry.
func Forbid() Action { return Action{Kind: RetryForbidden} }

// RetryError returns an action requesting a backoff retry for kind.
func RetryError(kind sdkerr.ErrorKind) Action {
	return Action{Kind: RetryIndicated, Reason: Reason{Kind: kind}}
}

// RetryAfter returns an action requesting a retry after exactly d.
func RetryAfter(d time.Duration) Action {
	return Action{Kind: RetryIndicated, Reason: Reason{Explicit: true, After: d}}
}

func (a Action) String() string {
	if a.Kind == RetryIndicated {
		return a.Reason.String()
	}
	return a.Kind.String()
}

// Priority orders classifiers. A lower value takes precedence: its verdict
// overrides that of any classifier with a higher value.
type Priority int

// Built-in classifier priorities.
const (
	PriorityHTTPStatusCode     Priority = 0
	PriorityModeledAsRetryable Priority = 10
	PriorityTransientError     Priority = 20
)

// LowerPriorityThan returns a priority that yields to p.
func LowerPriorityThan(p Priority) Priority { return p + 1 }

// HigherPriorityThan returns a priority that overrides p.
func HigherPriorityThan(p Priority) Priority { return p - 1 }

// Classifier inspects a failed attempt and proposes an Action.
type Classifier interface {
	Name() string
	Priority() Priority
	Classify(ictx *interceptor.Context) Action
}

// Classify runs classifiers in precedence order and returns the first verdict
// other than NoActionIndicated. Classifiers with equal priority keep their
// registration order. A successful attempt is never retried.
func Classify(ictx *interceptor.Context, classifiers []Classifier) Action {
	if !ictx.IsFailed() {
		return NoAction()
	}

	ordered := slices.Clone(classifiers)
	slices.SortStableFunc(ordered, func(a, b Classifier) int {
		return int(a.Priority()) - int(b.Priority())
	})

	for _, c := range ordered {
		if action := c.Classify(ictx); action.Kind != NoActionIndicated {
			return action
		}
	}
	return NoAction()
}

// ClassifierFunc adapts a function into a Classifier.
type ClassifierFunc struct {
	ClassifierName string
	Prio           Priority
	Fn             func(ictx *interceptor.Context) Action
}

// Name implements Classifier.
func (f ClassifierFunc) Name() string { return f.ClassifierName }

// Priority implements Classifier.
func (f ClassifierFunc) Priority() Priority { return f.Prio }

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ictx *interceptor.Context) Action { return f.Fn(ictx) }

// AlwaysRetry is a classifier that retries every failure as kind. It is
// intended for tests.
func AlwaysRetry(kind sdkerr.ErrorKind) Classifier {
	return ClassifierFunc{
		ClassifierName: "AlwaysRetry",
		Prio:           PriorityHTTPStatusCode,
		Fn: func(*interceptor.Context) Action {
			return RetryError(kind)
		},
	}
}
