// Package reqctx attaches a request identifier to contexts so one scrape
// request can be followed through the API, the orchestrator, and the logs.
package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

type key int

const requestKey key = 0

// Info identifies one API request.
type Info struct {
	ID      string
	Started time.Time
}

// With stamps ctx with a fresh request identifier.
func With(ctx context.Context) context.Context {
	b := make([]byte, 8)
	rand.Read(b)
	return context.WithValue(ctx, requestKey, &Info{
		ID:      hex.EncodeToString(b),
		Started: time.Now(),
	})
}

// From returns the request info attached to ctx. Contexts that never went
// through With report an "unknown" request.
func From(ctx context.Context) *Info {
	if info, ok := ctx.Value(requestKey).(*Info); ok {
		return info
	}
	return &Info{ID: "unknown", Started: time.Now()}
}

// Elapsed returns how long the request has been running.
func (i *Info) Elapsed() time.Duration {
	return time.Since(i.Started)
}
