package control

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/oshokin/energy-sim/internal/logger"
)

// CallerMetadataKey carries "user@host" of the client for audit logs.
const CallerMetadataKey = "x-energy-sim-caller"

// FormatCaller renders a caller identity.
func FormatCaller(username, hostname string) string {
	return username + "@" + hostname
}

// withCaller attaches the caller from incoming metadata to the context logger.
func withCaller(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}

	callers := md.Get(CallerMetadataKey)
	if len(callers) == 0 {
		return ctx
	}

	return logger.WithKV(ctx, "caller", callers[0])
}
