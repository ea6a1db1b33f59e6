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

package openapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common/model"
)

const componentName = "DDREPO"

// ParsingError reports a request parameter or body that could not be read.
type ParsingError struct {
	Param string
	Err   error
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

func (e *ParsingError) Error() string {
	if e.Param == "" {
		return e.Err.Error()
	}
	return e.Param + ": " + e.Err.Error()
}

// RequiredError reports a missing mandatory parameter.
type RequiredError struct {
	Field string
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("required field '%s' is zero value.", e.Field)
}

// ErrorHandler writes the response for a failed request. result is nil when
// the request never reached the servicer.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error, result *model.ImplResponse)

// DefaultErrorHandler answers request errors with the repository's error
// message body: 413 for oversized uploads, 400 for unreadable parameters and
// the servicer's own response otherwise.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error, result *model.ImplResponse) {
	if result != nil {
		if result.Body != nil {
			_ = EncodeJSONResponse(result.Body, &result.Code, w)
			return
		}
		result.Body = common.NewErrorResponse(err, result.Code, componentName, operationName(r), "Unhandled").Body
		_ = EncodeJSONResponse(result.Body, &result.Code, w)
		return
	}

	status, reason := http.StatusInternalServerError, "Unhandled"
	var tooLarge *http.MaxBytesError
	var parsingErr *ParsingError
	var requiredErr *RequiredError
	switch {
	case errors.As(err, &tooLarge):
		status, reason = http.StatusRequestEntityTooLarge, "PayloadTooLarge"
	case errors.As(err, &parsingErr):
		status, reason = http.StatusBadRequest, "ParsingError"
	case errors.As(err, &requiredErr):
		status, reason = http.StatusBadRequest, "MissingParameter"
	}
	resp := common.NewErrorResponse(err, status, componentName, operationName(r), reason)
	_ = EncodeJSONResponse(resp.Body, &resp.Code, w)
}

// operationName is the route name stored by NewRouter, or "Request" for
// handlers mounted without it.
func operationName(r *http.Request) string {
	if r != nil {
		if name, ok := r.Context().Value(routeNameKey{}).(string); ok && name != "" {
			return name
		}
	}
	return "Request"
}
