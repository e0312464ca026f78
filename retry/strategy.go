// Package retry decides whether and when a failed attempt is retried.
//
// A Strategy is asked before the first attempt and after every attempt. The
// standard strategy classifies the failure with a chain of Classifiers,
// draws admission from a TokenBucket shared by the whole client, and backs
// off exponentially with jitter.
package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/interceptor"
)

// RequestAttemptsKey holds the 1-based number of the current attempt. The
// orchestrator stores it before each attempt.
var RequestAttemptsKey = bag.NewKey[int]("request_attempts")

// MaxAttemptsKey holds the configured attempt limit, when the strategy has one.
var MaxAttemptsKey = bag.NewKey[int]("max_attempts")

// ErrNoAttemptCount is returned when a retry decision is requested before
// any attempt was recorded.
var ErrNoAttemptCount = errors.New("retry: request attempt count is not set")

// Decision is the verdict of a Strategy.
type Decision int

const (
	// No means stop: the last result is final.
	No Decision = iota
	// Yes means attempt immediately.
	Yes
	// YesAfterDelay means attempt after ShouldAttempt.Delay.
	YesAfterDelay
)

func (d Decision) String() string {
	switch d {
	case Yes:
		return "yes"
	case YesAfterDelay:
		return "yes_after_delay"
	default:
		return "no"
	}
}

// ShouldAttempt is a Strategy's answer.
type ShouldAttempt struct {
	Decision Decision
	Delay    time.Duration
}

// AttemptNow returns a Yes answer.
func AttemptNow() ShouldAttempt { return ShouldAttempt{Decision: Yes} }

// DoNotAttempt returns a No answer.
func DoNotAttempt() ShouldAttempt { return ShouldAttempt{Decision: No} }

// AttemptAfter returns a YesAfterDelay answer.
func AttemptAfter(d time.Duration) ShouldAttempt {
	return ShouldAttempt{Decision: YesAfterDelay, Delay: d}
}

func (s ShouldAttempt) String() string {
	if s.Decision == YesAfterDelay {
		return fmt.Sprintf("yes after %s", s.Delay)
	}
	return s.Decision.String()
}

// Strategy decides whether an invocation makes another attempt.
//
// A Strategy is shared by every invocation of a client; per-invocation state
// lives in the bag passed to each call.
type Strategy interface {
	// ShouldAttemptInitialRequest is asked once, before the first attempt.
	ShouldAttemptInitialRequest(b *bag.Bag) (ShouldAttempt, error)

	// ShouldAttemptRetry is asked after every attempt, once the attempt's
	// output or error has been recorded in ictx.
	ShouldAttemptRetry(ictx *interceptor.Context, classifiers []Classifier, b *bag.Bag) (ShouldAttempt, error)

	// Cleanup is called once when the invocation ends, on every exit path,
	// so resources held for the invocation are returned.
	Cleanup(b *bag.Bag)
}

// NeverStrategy makes the initial attempt and never retries.
type NeverStrategy struct{}

// ShouldAttemptInitialRequest implements Strategy.
func (NeverStrategy) ShouldAttemptInitialRequest(*bag.Bag) (ShouldAttempt, error) {
	return AttemptNow(), nil
}

// ShouldAttemptRetry implements Strategy.
func (NeverStrategy) ShouldAttemptRetry(*interceptor.Context, []Classifier, *bag.Bag) (ShouldAttempt, error) {
	return DoNotAttempt(), nil
}

// Cleanup implements Strategy.
func (NeverStrategy) Cleanup(*bag.Bag) {}

var _ Strategy = NeverStrategy{}
