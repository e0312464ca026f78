package retry

import (
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/pithecene-io/smithyrt/interceptor"
	"github.com/pithecene-io/smithyrt/sdkerr"
)

// RetryAfterHeader carries a server-requested retry delay in milliseconds.
const RetryAfterHeader = "x-amz-retry-after"

// TransientStatusCodes are HTTP status codes retried as transient errors.
var TransientStatusCodes = []int{500, 502, 503, 504}

// ThrottlingErrorCodes are modeled error codes retried as throttling errors.
var ThrottlingErrorCodes = []string{
	"Throttling",
	"ThrottlingException",
	"ThrottledException",
	"RequestThrottledException",
	"TooManyRequestsException",
	"ProvisionedThroughputExceededException",
	"TransactionInProgressException",
	"RequestLimitExceeded",
	"BandwidthLimitExceeded",
	"LimitExceededException",
	"RequestThrottled",
	"SlowDown",
	"PriorRequestNotComplete",
	"EC2ThrottledException",
}

// TransientErrorCodes are modeled error codes retried as transient errors.
var TransientErrorCodes = []string{"RequestTimeout", "RequestTimeoutException"}

// HTTPStatusCodeClassifier retries responses whose status code is in Codes.
type HTTPStatusCodeClassifier struct {
	Codes []int
}

// NewHTTPStatusCodeClassifier uses TransientStatusCodes.
func NewHTTPStatusCodeClassifier() *HTTPStatusCodeClassifier {
	return &HTTPStatusCodeClassifier{Codes: TransientStatusCodes}
}

// Name implements Classifier.
func (*HTTPStatusCodeClassifier) Name() string { return "HTTP Status Code" }

// Priority implements Classifier.
func (*HTTPStatusCodeClassifier) Priority() Priority { return PriorityHTTPStatusCode }

// Classify implements Classifier.
func (c *HTTPStatusCodeClassifier) Classify(ictx *interceptor.Context) Action {
	resp := ictx.Response()
	if resp == nil || !slices.Contains(c.Codes, resp.StatusCode) {
		return NoAction()
	}
	return RetryError(sdkerr.TransientError)
}

// ModeledAsRetryableClassifier retries modeled service errors: those that
// declare a retryable kind, carry a known throttling or transient code, or
// come with a retry-after header.
type ModeledAsRetryableClassifier struct{}

// Name implements Classifier.
func (ModeledAsRetryableClassifier) Name() string { return "Errors Modeled As Retryable" }

// Priority implements Classifier.
func (ModeledAsRetryableClassifier) Priority() Priority { return PriorityModeledAsRetryable }

// Classify implements Classifier.
func (ModeledAsRetryableClassifier) Classify(ictx *interceptor.Context) Action {
	var opErr *sdkerr.OperationError
	if !errors.As(ictx.Err(), &opErr) {
		return NoAction()
	}

	if d, ok := retryAfter(ictx); ok {
		return RetryAfter(d)
	}

	var modeled sdkerr.ProvideErrorKind
	if !errors.As(opErr.Err, &modeled) {
		return NoAction()
	}
	if kind, ok := modeled.RetryableErrorKind(); ok {
		return RetryError(kind)
	}
	code := modeled.Code()
	switch {
	case code == "":
		return NoAction()
	case slices.Contains(ThrottlingErrorCodes, code):
		return RetryError(sdkerr.ThrottlingError)
	case slices.Contains(TransientErrorCodes, code):
		return RetryError(sdkerr.TransientError)
	default:
		return NoAction()
	}
}

func retryAfter(ictx *interceptor.Context) (time.Duration, bool) {
	resp := ictx.Response()
	if resp == nil || resp.Header == nil {
		return 0, false
	}
	v := resp.Header.Get(RetryAfterHeader)
	if v == "" {
		return 0, false
	}
	ms, err := strconv.ParseUint(v, 10, 63)
	if err != nil {
		return 0, false
	}
	return time.Duration(ms) * time.Millisecond, true
}

// TransientErrorClassifier retries timeouts and connector failures.
type TransientErrorClassifier struct{}

// Name implements Classifier.
func (TransientErrorClassifier) Name() string { return "Retryable Smithy Errors" }

// Priority implements Classifier.
func (TransientErrorClassifier) Priority() Priority { return PriorityTransientError }

// Classify implements Classifier.
func (TransientErrorClassifier) Classify(ictx *interceptor.Context) Action {
	err := ictx.Err()
	if errors.Is(err, sdkerr.ErrTimeout) {
		return RetryError(sdkerr.TransientError)
	}

	var connErr *sdkerr.ConnectorError
	if !errors.As(err, &connErr) {
		return NoAction()
	}
	if connErr.IsTimeout() || connErr.IsIO() {
		return RetryError(sdkerr.TransientError)
	}
	if kind, ok := connErr.OtherKind(); ok {
		return RetryError(kind)
	}
	return NoAction()
}

// DefaultClassifiers returns the built-in classifier set.
func DefaultClassifiers() []Classifier {
	return []Classifier{
		NewHTTPStatusCodeClassifier(),
		ModeledAsRetryableClassifier{},
		TransientErrorClassifier{},
	}
}

var (
	_ Classifier = (*HTTPStatusCodeClassifier)(nil)
	_ Classifier = ModeledAsRetryableClassifier{}
	_ Classifier = TransientErrorClassifier{}
	_ Classifier = ClassifierFunc{}
)
