// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2024 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

// Package logger provides the ambient structured logging facade used
// across the planner. It mirrors the familiar Debugf/Noticef/Errorf
// surface, backed by zap.
package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Logger is the minimal interface every planner package logs through.
type Logger interface {
	Debugf(format string, v ...interface{})
	Noticef(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Debugf(format string, v ...interface{}) {
	l.s.Debugf(format, v...)
}

func (l *zapLogger) Noticef(format string, v ...interface{}) {
	l.s.Infof(format, v...)
}

func (l *zapLogger) Errorf(format string, v ...interface{}) {
	l.s.Errorf(format, v...)
}

// New builds a Logger backed by a production zap configuration.
func New() Logger {
	z, err := zap.NewProduction()
	if err != nil {
		// zap's production config only fails to build on a broken sink;
		// fall back to a logger that still satisfies the interface.
		z = zap.NewNop()
	}
	return &zapLogger{s: z.Sugar()}
}

var (
	mu  sync.Mutex
	log Logger = New()
)

// SetLogger replaces the package-level logger, returning the previous one.
func SetLogger(l Logger) Logger {
	mu.Lock()
	defer mu.Unlock()
	old := log
	log = l
	return old
}

func current() Logger {
	mu.Lock()
	defer mu.Unlock()
	return log
}

// Debugf logs at debug level through the package-level logger.
func Debugf(format string, v ...interface{}) { current().Debugf(format, v...) }

// Noticef logs at notice (info) level through the package-level logger.
func Noticef(format string, v ...interface{}) { current().Noticef(format, v...) }

// Errorf logs at error level through the package-level logger.
func Errorf(format string, v ...interface{}) { current().Errorf(format, v...) }

// MockedLogger is a test double capturing every record passed to it.
type MockedLogger struct {
	mu      sync.Mutex
	Debugs  []string
	Notices []string
	Errors  []string
}

func (m *MockedLogger) Debugf(format string, v ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Debugs = append(m.Debugs, fmt.Sprintf(format, v...))
}

func (m *MockedLogger) Noticef(format string, v ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notices = append(m.Notices, fmt.Sprintf(format, v...))
}

func (m *MockedLogger) Errorf(format string, v ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, fmt.Sprintf(format, v...))
}

// MockLogger installs a MockedLogger as the package logger and returns it
// along with a restore function, following the teacher's MockLogger/
// restore idiom used throughout its test suites.
func MockLogger() (mocked *MockedLogger, restore func()) {
	m := &MockedLogger{}
	old := SetLogger(m)
	return m, func() { SetLogger(old) }
}

// NullLogger discards everything; useful as a quiet default in tests
// that don't care about log output.
func NullLogger() Logger { return &zapLogger{s: zap.NewNop().Sugar()} }
