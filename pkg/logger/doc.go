// Package logger builds the application's slog.Logger. Development and staging
// get a human-readable text handler; production gets JSON from a zap core via
// zapslog. Every record carries the environment attribute.
package logger
