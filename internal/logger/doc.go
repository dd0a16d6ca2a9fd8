// Package logger wraps a global zap sugared logger that writes to stderr.
//
// Services carry a scoped logger in their context (WithName, WithKV,
// WithActor) and log through the package helpers, which pick it up again.
// Actor and Joules build the fields shared by simulation log lines.
package logger
