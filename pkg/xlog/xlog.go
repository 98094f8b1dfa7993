// SPDX-License-Identifier: Apache-2.0

// Package xlog provides the structured logger used across the query
// engine. It mirrors the teacher migration tool's logger shape: an
// interface with a pterm-backed implementation for humans and a no-op
// implementation that discards all output.
package xlog

import "github.com/pterm/pterm"

// Logger is responsible for logging query-engine activity.
type Logger interface {
	LogQueryStart(spaceID, form string)
	LogQueryComplete(spaceID, form string, rows int, truncated bool)
	LogUpdateStart(spaceID, form string)
	LogUpdateComplete(spaceID, form string)
	LogIngestBatch(spaceID string, terms, quads int)
	LogTranslationWarning(spaceID string, msg string, args ...any)

	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type engineLogger struct {
	logger pterm.Logger
}

type noopLogger struct{}

// New returns a Logger backed by pterm's default structured logger.
func New() Logger {
	return &engineLogger{logger: pterm.DefaultLogger}
}

// NewNoop returns a Logger that discards everything.
func NewNoop() Logger {
	return &noopLogger{}
}

func (l *engineLogger) LogQueryStart(spaceID, form string) {
	l.logger.Info("executing sparql query", l.logger.Args("space", spaceID, "form", form))
}

func (l *engineLogger) LogQueryComplete(spaceID, form string, rows int, truncated bool) {
	l.logger.Info("sparql query complete", l.logger.Args(
		"space", spaceID, "form", form, "rows", rows, "truncated", truncated))
}

func (l *engineLogger) LogUpdateStart(spaceID, form string) {
	l.logger.Info("executing sparql update", l.logger.Args("space", spaceID, "form", form))
}

func (l *engineLogger) LogUpdateComplete(spaceID, form string) {
	l.logger.Info("sparql update complete", l.logger.Args("space", spaceID, "form", form))
}

func (l *engineLogger) LogIngestBatch(spaceID string, terms, quads int) {
	l.logger.Info("ingested batch", l.logger.Args("space", spaceID, "terms_inserted", terms, "quads_inserted", quads))
}

func (l *engineLogger) LogTranslationWarning(spaceID string, msg string, args ...any) {
	l.logger.Warn(msg, l.logger.Args(append([]any{"space", spaceID}, args...)...))
}

func (l *engineLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.logger.Args(args...))
}

func (l *engineLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, l.logger.Args(args...))
}

func (l *noopLogger) LogQueryStart(spaceID, form string)                         {}
func (l *noopLogger) LogQueryComplete(spaceID, form string, rows int, trunc bool) {}
func (l *noopLogger) LogUpdateStart(spaceID, form string)                        {}
func (l *noopLogger) LogUpdateComplete(spaceID, form string)                     {}
func (l *noopLogger) LogIngestBatch(spaceID string, terms, quads int)            {}
func (l *noopLogger) LogTranslationWarning(spaceID, msg string, args ...any)     {}
func (l *noopLogger) Info(msg string, args ...any)                              {}
func (l *noopLogger) Error(msg string, args ...any)                             {}
