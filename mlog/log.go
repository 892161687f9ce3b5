// Package mlog provides logging with log levels and structured fields on top
// of log/slog.
//
// Each log level has a function to log with and without error. Each such
// function takes a varargs list of attributes to log. Logging strings
// themselves should be constant, with variable data in attributes, for easier
// log processing.
package mlog

import (
	"context"
	"log/slog"
)

// Log wraps an slog.Logger. Use the convenience functions for logging with
// and without error.
type Log struct {
	*slog.Logger
}

// New returns a Log that adds a "pkg" attribute to each logged line. If elog
// is nil, slog.Default() is used.
func New(pkg string, elog *slog.Logger) Log {
	if elog == nil {
		elog = slog.Default()
	}
	return Log{elog.With(slog.String("pkg", pkg))}
}

// Debug logs attrs at debug level.
func (l Log) Debug(msg string, attrs ...slog.Attr) {
	l.logx(slog.LevelDebug, msg, nil, attrs...)
}

// Debugx logs attrs and an error at debug level.
func (l Log) Debugx(msg string, err error, attrs ...slog.Attr) {
	l.logx(slog.LevelDebug, msg, err, attrs...)
}

// Info logs attrs at info level.
func (l Log) Info(msg string, attrs ...slog.Attr) {
	l.logx(slog.LevelInfo, msg, nil, attrs...)
}

// Infox logs attrs and an error at info level.
func (l Log) Infox(msg string, err error, attrs ...slog.Attr) {
	l.logx(slog.LevelInfo, msg, err, attrs...)
}

// Error logs attrs at error level.
func (l Log) Error(msg string, attrs ...slog.Attr) {
	l.logx(slog.LevelError, msg, nil, attrs...)
}

// Errorx logs attrs and an error at error level.
func (l Log) Errorx(msg string, err error, attrs ...slog.Attr) {
	l.logx(slog.LevelError, msg, err, attrs...)
}

func (l Log) logx(level slog.Level, msg string, err error, attrs ...slog.Attr) {
	if !l.Logger.Enabled(context.Background(), level) {
		return
	}
	if err != nil {
		attrs = append([]slog.Attr{slog.Any("err", err)}, attrs...)
	}
	l.Logger.LogAttrs(context.Background(), level, msg, attrs...)
}
