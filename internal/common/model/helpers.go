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

// Package model provides the response types shared by the HTTP services of
// the device description repository.
//
//nolint:all
package model

import (
	"mime"
	"net/http"
	"path/filepath"
)

// ImplResponse defines an implementation response with error code and the associated body
type ImplResponse struct {
	Code int
	Body interface{}
}

// Response creates an ImplResponse struct with the given status code and body.
func Response(code int, body interface{}) ImplResponse {
	return ImplResponse{
		Code: code,
		Body: body,
	}
}

// SetSafeDownloadHeaders marks a response as an attachment download that
// browsers must not sniff.
func SetSafeDownloadHeaders(wHeader http.Header, filename, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	wHeader.Set("Content-Type", contentType)
	wHeader.Set("X-Content-Type-Options", "nosniff")

	if filename == "" {
		wHeader.Set("Content-Disposition", "attachment")
		return
	}

	safeFilename := filepath.Base(filename)
	contentDisposition := mime.FormatMediaType("attachment", map[string]string{"filename": safeFilename})
	wHeader.Set("Content-Disposition", contentDisposition)
}
