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

// Package codec selects the front-end and back-end of a device description
// format and wraps them with the checks shared by every format.
package codec

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/diff"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/doctree"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/eds"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/iodd"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/logger"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// Codec is the capability set of one format.
type Codec interface {
	Kind() model.FormatKind
	Parse(raw []byte, limits model.ParseLimits) (*model.DeviceDescription, model.Diagnostics, error)
	Reconstruct(dd *model.DeviceDescription) (string, model.Diagnostics)
	BuildTree(raw []byte, limits model.ParseLimits) (*doctree.Node, error)
	Rules() doctree.Rules
}

var (
	_ Codec = iodd.Codec{}
	_ Codec = eds.Codec{}
)

// For returns the codec of kind.
func For(kind model.FormatKind) (Codec, error) {
	switch kind {
	case model.FormatIODD:
		return iodd.Codec{}, nil
	case model.FormatEDS:
		return eds.Codec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, kind)
	}
}

// Detect guesses the format of raw: a document starting with markup is an
// IODD, anything else is read as an EDS.
func Detect(raw []byte) model.FormatKind {
	b := bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	b = bytes.TrimLeft(b, " \t\r\n")
	if len(b) > 0 && b[0] == '<' {
		return model.FormatIODD
	}
	return model.FormatEDS
}

// Parse checks the input size, then parses raw with the codec of kind. The
// returned description carries the hash of raw.
func Parse(raw []byte, kind model.FormatKind, limits model.ParseLimits) (*model.DeviceDescription, model.Diagnostics, error) {
	limits = limits.Normalize()
	if int64(len(raw)) > limits.MaxInputBytes {
		return nil, nil, &model.InputLimitError{Limit: "maximum input size", Max: limits.MaxInputBytes, Actual: int64(len(raw))}
	}
	c, err := For(kind)
	if err != nil {
		return nil, nil, err
	}
	dd, diags, err := c.Parse(raw, limits)
	if err != nil {
		return nil, nil, err
	}
	dd.SourceHash = Hash(raw)
	return dd, diags, nil
}

// Reconstruct regenerates the text of dd. Warnings are logged; the text is
// returned even when a region could only be written partially.
func Reconstruct(dd *model.DeviceDescription) (string, error) {
	c, err := For(dd.Format)
	if err != nil {
		return "", err
	}
	text, diags := c.Reconstruct(dd)
	for _, d := range diags {
		logger.LogWarning(fmt.Sprintf("reconstruct device description %d: %s", dd.ID, d))
	}
	return text, nil
}

// Diff compares an original with its reconstruction. Both texts are read
// under the same limits the original was parsed with.
func Diff(original, reconstructed []byte, kind model.FormatKind, limits model.ParseLimits) (*diff.Result, error) {
	c, err := For(kind)
	if err != nil {
		return nil, err
	}
	return diff.Analyze(original, reconstructed, c, limits.Normalize())
}

// Hash is the content address of raw.
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
