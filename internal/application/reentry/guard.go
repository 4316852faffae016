// Package reentry provides recursion guards scoped to a call chain.
//
// The guard lives in the context, so two concurrent requests never see each
// other's flags while nested calls within one request do.
package reentry

import "context"

type guardKey struct{ name string }

// Enter marks name as active on the returned context. The boolean is false
// when ctx is already inside name; callers should then skip the guarded work
// and keep using their original context.
func Enter(ctx context.Context, name string) (context.Context, bool) {
	if Active(ctx, name) {
		return ctx, false
	}
	return context.WithValue(ctx, guardKey{name: name}, true), true
}

// Active reports whether ctx is inside name.
func Active(ctx context.Context, name string) bool {
	v, _ := ctx.Value(guardKey{name: name}).(bool)
	return v
}
