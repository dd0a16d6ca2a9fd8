package logger

import (
	"context"
	"strconv"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Actor names the actor a line belongs to, e.g. region_id=north.
func Actor(kind, id string) zap.Field {
	return zap.String(kind+"_id", id)
}

// Joules renders an energy amount with an SI prefix, e.g. total="1.20 GJ".
func Joules(key string, j float64) zap.Field {
	value, prefix := humanize.ComputeSI(j)

	return zap.String(key, strconv.FormatFloat(value, 'f', 2, 64)+" "+prefix+"J")
}

// WithActor attaches Actor to every message logged through ctx.
func WithActor(ctx context.Context, kind, id string) context.Context {
	return WithFields(ctx, Actor(kind, id))
}
