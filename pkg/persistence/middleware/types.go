// Package middleware decorates a ports.SnapshotArchive. Middlewares compose:
//
//	archive := middleware.Chain(base, redact, encrypt)
//
// wraps base so that Save redacts before encrypting.
package middleware

import "github.com/facebook/flipper-sub000/pkg/ports"

// Middleware allows wrapping a SnapshotArchive to add behavior.
type Middleware func(ports.SnapshotArchive) ports.SnapshotArchive

// Chain wraps base with mws. The first middleware sees calls first.
func Chain(base ports.SnapshotArchive, mws ...Middleware) ports.SnapshotArchive {
	out := base
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}
