/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package logger provides the leveled component logger of the device
// description repository.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level orders log messages by importance.
type Level int32

// Log levels, least important first.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	logger = log.New(os.Stderr, "[DDRepo] ", log.LstdFlags|log.Lshortfile)
	level  atomic.Int32
)

func init() {
	level.Store(int32(LevelInfo))
}

// ParseLevel maps "debug", "info", "warn" or "error" to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// SetLevel drops messages below l.
func SetLevel(l Level) {
	level.Store(int32(l))
}

// Enabled reports whether messages at l are written.
func Enabled(l Level) bool {
	return l >= Level(level.Load())
}

func output(l Level, tag, message string) {
	if !Enabled(l) {
		return
	}
	_ = logger.Output(3, tag+": "+message)
}

// LogError logs err with the context it occurred in. A nil err is ignored.
func LogError(context string, err error) {
	if err != nil {
		output(LevelError, "ERROR", context+": "+err.Error())
	}
}

// LogInfo logs an informational message.
func LogInfo(message string) {
	output(LevelInfo, "INFO", message)
}

// LogWarning logs a warning message.
func LogWarning(message string) {
	output(LevelWarn, "WARN", message)
}

// LogDebug logs a debug message.
func LogDebug(message string) {
	output(LevelDebug, "DEBUG", message)
}

// LogAnalysisFailure logs an analysis run that ended in a failed metric.
func LogAnalysisFailure(deviceID, metricID int64, err error) {
	output(LevelError, "ERROR", fmt.Sprintf("analysis of device description %d failed (metric %d): %v", deviceID, metricID, err))
}
