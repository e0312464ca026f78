package interceptor

import (
	"context"

	"github.com/google/uuid"

	"github.com/pithecene-io/smithyrt/bag"
)

// InvocationIDHeader carries the invocation id on every attempt.
const InvocationIDHeader = "amz-sdk-invocation-id"

// InvocationIDKey holds the invocation id in the interceptor state layer.
var InvocationIDKey = bag.NewKey[string]("invocation_id")

// InvocationIDGenerator produces invocation ids.
type InvocationIDGenerator func() string

// InvocationID assigns one id per invocation, shared by all of its attempts,
// and stamps it on every outgoing request.
type InvocationID struct {
	Base
	gen InvocationIDGenerator
}

// NewInvocationID creates the interceptor. A nil generator uses random UUIDs.
func NewInvocationID(gen InvocationIDGenerator) *InvocationID {
	if gen == nil {
		gen = func() string { return uuid.NewString() }
	}
	return &InvocationID{gen: gen}
}

// Name implements Interceptor.
func (*InvocationID) Name() string { return "InvocationIdInterceptor" }

// ModifyBeforeRetryLoop generates the id unless one is already set.
func (i *InvocationID) ModifyBeforeRetryLoop(_ context.Context, _ *Context, b *bag.Bag) error {
	if _, ok := bag.Load(b, InvocationIDKey); ok {
		return nil
	}
	bag.Store(b, InvocationIDKey, i.gen())
	return nil
}

// ModifyBeforeTransmit sets the header on the request.
func (i *InvocationID) ModifyBeforeTransmit(_ context.Context, ictx *Context, b *bag.Bag) error {
	id, ok := bag.Load(b, InvocationIDKey)
	if !ok || ictx.Request() == nil {
		return nil
	}
	ictx.Request().Header.Set(InvocationIDHeader, id)
	return nil
}

var _ Interceptor = (*InvocationID)(nil)
