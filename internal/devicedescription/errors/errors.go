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

// Package errors provides centralized error definitions for the device description repository.
package errors

import (
	"fmt"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common"
)

// Transaction-related errors
var (
	// ErrTransactionCommitFailed is returned when a PostgreSQL transaction fails to commit.
	ErrTransactionCommitFailed = common.NewInternalServerError("Failed to commit PostgreSQL transaction - no changes applied - see console for details")

	// ErrTransactionBeginFailed is returned when a PostgreSQL transaction fails to begin.
	ErrTransactionBeginFailed = common.NewInternalServerError("Failed to begin PostgreSQL transaction - no changes applied - see console for details")
)

// Archive-related errors
var (
	// ErrOriginalCorrupted is returned when archived bytes no longer match their content hash.
	ErrOriginalCorrupted = common.NewInternalServerError("DDREPO-ARCHIVE-HASHMISMATCH archived original does not match its content hash")
)

// NewDeviceDescriptionNotFound creates a not found error for a device description id.
func NewDeviceDescriptionNotFound(id int64) error {
	return common.NewErrNotFound(fmt.Sprintf("device description %d", id))
}

// NewMetricNotFound creates a not found error for a quality metric id.
func NewMetricNotFound(id int64) error {
	return common.NewErrNotFound(fmt.Sprintf("quality metric %d", id))
}

// NewNoMetricYet creates a not found error for a device description that was never analyzed.
func NewNoMetricYet(deviceID int64) error {
	return common.NewErrNotFound(fmt.Sprintf("no quality metric for device description %d", deviceID))
}
