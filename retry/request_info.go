package retry

import (
	"context"
	"strconv"
	"strings"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/interceptor"
)

// RequestInfoHeader tells the service which attempt a request is.
const RequestInfoHeader = "amz-sdk-request"

// RequestInfo stamps every attempt with "attempt=N; max=M". The max part is
// omitted when the strategy has no attempt limit.
type RequestInfo struct {
	interceptor.Base
}

// NewRequestInfo creates the interceptor.
func NewRequestInfo() *RequestInfo {
	return &RequestInfo{}
}

// Name implements interceptor.Interceptor.
func (*RequestInfo) Name() string { return "RequestInfoInterceptor" }

// ModifyBeforeTransmit sets the header.
func (*RequestInfo) ModifyBeforeTransmit(_ context.Context, ictx *interceptor.Context, b *bag.Bag) error {
	req := ictx.Request()
	if req == nil {
		return nil
	}

	var parts []string
	if n, ok := bag.Load(b, RequestAttemptsKey); ok {
		parts = append(parts, "attempt="+strconv.Itoa(n))
	}
	if n, ok := bag.Load(b, MaxAttemptsKey); ok {
		parts = append(parts, "max="+strconv.Itoa(n))
	}
	if len(parts) == 0 {
		return nil
	}
	req.Header.Set(RequestInfoHeader, strings.Join(parts, "; "))
	return nil
}

var _ interceptor.Interceptor = (*RequestInfo)(nil)
