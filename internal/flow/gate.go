package flow

import "context"

// Gate is consulted after a call's input has been validated and its prompt
// rendered, immediately before the model is called. A non-nil error aborts
// the call and is returned to the caller unchanged.
type Gate func(ctx context.Context) error

type gateKey struct{}

// WithGate attaches g to ctx. Callers use it to meter model calls so that
// requests rejected by validation are never billed.
func WithGate(ctx context.Context, g Gate) context.Context {
	return context.WithValue(ctx, gateKey{}, g)
}

// Admit runs the gate attached to ctx, if any. Invoker implementations call
// it once input validation has passed.
func Admit(ctx context.Context) error {
	g, _ := ctx.Value(gateKey{}).(Gate)
	if g == nil {
		return nil
	}
	return g(ctx)
}
