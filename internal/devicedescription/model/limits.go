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

// ParserVersion tags entity graphs, archives and metrics with the parser
// generation that produced them.
const ParserVersion = "1.0.0"

// ParseLimits bounds pathological inputs so a parse fails fast instead of
// consuming unbounded memory or time.
type ParseLimits struct {
	MaxInputBytes int64
	MaxDepth      int
	MaxEnumValues int
}

// DefaultParseLimits are used when no configuration overrides them.
var DefaultParseLimits = ParseLimits{
	MaxInputBytes: 16 << 20,
	MaxDepth:      64,
	MaxEnumValues: 4096,
}

// Normalize fills unset bounds with defaults.
func (l ParseLimits) Normalize() ParseLimits {
	if l.MaxInputBytes <= 0 {
		l.MaxInputBytes = DefaultParseLimits.MaxInputBytes
	}
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultParseLimits.MaxDepth
	}
	if l.MaxEnumValues <= 0 {
		l.MaxEnumValues = DefaultParseLimits.MaxEnumValues
	}
	return l
}
