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

package model

import (
	"errors"
	"fmt"
)

// MalformedInputError reports a structurally invalid document. Nothing is
// persisted when a parse fails with it.
type MalformedInputError struct {
	Format  FormatKind
	Line    int
	Offset  int64
	Message string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed %s input at line %d (offset %d): %s", e.Format, e.Line, e.Offset, e.Message)
}

// InputLimitError reports an input that exceeds a configured parse bound.
type InputLimitError struct {
	Limit  string
	Max    int64
	Actual int64
}

func (e *InputLimitError) Error() string {
	return fmt.Sprintf("input exceeds %s: %d > %d", e.Limit, e.Actual, e.Max)
}

// PrerequisiteMissingError reports an analysis request for a device without
// an archived original.
type PrerequisiteMissingError struct {
	DeviceDescriptionID int64
	Missing             string
}

func (e *PrerequisiteMissingError) Error() string {
	return fmt.Sprintf("device description %d has no %s", e.DeviceDescriptionID, e.Missing)
}

var (
	// ErrIncompatibleRoot is returned when two trees cannot be compared.
	ErrIncompatibleRoot = errors.New("incompatible document roots")

	// ErrAnalysisInProgress is returned when an analysis for the same device is running.
	ErrAnalysisInProgress = errors.New("analysis already in progress for device description")

	// ErrUnsupportedFormat is returned for format kinds without a codec.
	ErrUnsupportedFormat = errors.New("unsupported format kind")
)

// AnalysisFailedError wraps the cause of a run that produced a failed metric.
type AnalysisFailedError struct {
	MetricID int64
	Err      error
}

func (e *AnalysisFailedError) Error() string {
	return fmt.Sprintf("analysis %d failed: %v", e.MetricID, e.Err)
}

func (e *AnalysisFailedError) Unwrap() error { return e.Err }

// IsMalformedInput reports whether err is a parse rejection.
func IsMalformedInput(err error) bool {
	var malformed *MalformedInputError
	var limit *InputLimitError
	return errors.As(err, &malformed) || errors.As(err, &limit)
}

// IsPrerequisiteMissing reports whether err is a PrerequisiteMissingError.
func IsPrerequisiteMissing(err error) bool {
	var pm *PrerequisiteMissingError
	return errors.As(err, &pm)
}
