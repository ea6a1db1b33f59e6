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

package common

import (
	"errors"
	"net/http"
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common/model"
	"github.com/google/uuid"
)

const (
	prefixNotFound            = "404 Not Found: "
	prefixBadRequest          = "400 Bad Request: "
	prefixConflict            = "409 Conflict: "
	prefixPreconditionFailed  = "412 Precondition Failed: "
	prefixUnprocessableEntity = "422 Unprocessable Entity: "
	prefixInternalServerError = "500 Internal Server Error: "
)

type ErrorHandler struct {
	MessageType   string `json:"messageType"`
	Text          string `json:"text"`
	Code          string `json:"code,omitempty"`
	CorrelationId string `json:"correlationId,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

func NewErrorHandler(messageType string, text error, code string, correlationId string, timestamp string) *ErrorHandler {
	return &ErrorHandler{
		MessageType:   messageType,
		Text:          text.Error(),
		Code:          code,
		CorrelationId: correlationId,
		Timestamp:     timestamp,
	}
}

// NewErrorResponse wraps err into the error envelope returned by every
// service operation.
//
// Parameters:
//   - err: The error to report
//   - status: HTTP status code of the response
//   - componentName: Short name of the reporting component (e.g. "DDREPO")
//   - operation: Name of the failed operation
//   - reason: Short machine readable reason (e.g. "NotFound")
//
// Returns:
//   - model.ImplResponse: Response carrying a single error message
func NewErrorResponse(err error, status int, componentName string, operation string, reason string) model.ImplResponse {
	messageType := "Error"
	if status < http.StatusInternalServerError {
		messageType = "Exception"
	}
	code := componentName + "-" + strings.ToUpper(operation) + "-" + strings.ToUpper(reason)
	handler := NewErrorHandler(messageType, err, code, uuid.NewString(), GetCurrentTimestamp())
	return model.Response(status, []ErrorHandler{*handler})
}

func NewErrNotFound(elementId string) error {
	return errors.New(prefixNotFound + elementId)
}

func NewErrBadRequest(message string) error {
	return errors.New(prefixBadRequest + message)
}

func NewErrConflict(message string) error {
	return errors.New(prefixConflict + message)
}

func NewErrPreconditionFailed(message string) error {
	return errors.New(prefixPreconditionFailed + message)
}

func NewErrUnprocessableEntity(message string) error {
	return errors.New(prefixUnprocessableEntity + message)
}

func NewInternalServerError(message string) error {
	return errors.New(prefixInternalServerError + message)
}

func IsErrNotFound(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixNotFound)
}

func IsErrBadRequest(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixBadRequest)
}

func IsErrConflict(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixConflict)
}

func IsErrPreconditionFailed(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixPreconditionFailed)
}

func IsErrUnprocessableEntity(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixUnprocessableEntity)
}

func IsInternalServerError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), prefixInternalServerError)
}
