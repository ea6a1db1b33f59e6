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

// Package model contains the entity graph of an imported device description
// together with the derived quality records produced by fidelity analysis.
//
// The graph is format neutral: IODD profile documents and EDS data sheets are
// both expressed as a forest of Field values owned by one DeviceDescription.
package model

import (
	"fmt"
	"strings"
	"time"
)

// FormatKind selects the grammar a device description was written in.
type FormatKind string

const (
	// FormatIODD is the IO-Link device description (XML profile document).
	FormatIODD FormatKind = "iodd"
	// FormatEDS is the CIP electronic data sheet (section/key-value text).
	FormatEDS FormatKind = "eds"
)

// ParseFormatKind converts user input into a FormatKind.
func ParseFormatKind(value string) (FormatKind, error) {
	switch FormatKind(strings.ToLower(strings.TrimSpace(value))) {
	case FormatIODD:
		return FormatIODD, nil
	case FormatEDS:
		return FormatEDS, nil
	default:
		return "", fmt.Errorf("unsupported format kind %q", value)
	}
}

// DeviceDescription is the root entity for one imported file.
type DeviceDescription struct {
	ID              int64      `json:"id"`
	Format          FormatKind `json:"format"`
	VendorID        string     `json:"vendorId"`
	VendorName      string     `json:"vendorName,omitempty"`
	DeviceID        string     `json:"deviceId"`
	ProductName     string     `json:"productName,omitempty"`
	FormatVersion   string     `json:"formatVersion,omitempty"`
	PrimaryLanguage string     `json:"primaryLanguage,omitempty"`
	// Indent and LineEnding are formatting hints observed in the source so
	// that regenerated regions look like the surrounding verbatim ones.
	Indent        string    `json:"indent"`
	LineEnding    string    `json:"lineEnding"`
	ParserVersion string    `json:"parserVersion"`
	SourceHash    string    `json:"sourceHash,omitempty"`
	ImportedAt    time.Time `json:"importedAt"`

	Fields        []Field        `json:"fields"`
	TextResources []TextResource `json:"textResources,omitempty"`
}

// TextResource is an externalised display string keyed by its original
// identifier. The identifier is authoritative, the value is display data.
type TextResource struct {
	ID       int64  `json:"-"`
	TextID   string `json:"textId"`
	Language string `json:"language"`
	Value    string `json:"value"`
	Ordinal  int    `json:"ordinal"`
}

// TextIndex resolves text identifiers of one device description.
type TextIndex struct {
	primary string
	texts   map[string]map[string]string
}

// NewTextIndex builds the lookup table over the resources of dd.
func NewTextIndex(dd *DeviceDescription) *TextIndex {
	idx := &TextIndex{primary: dd.PrimaryLanguage, texts: make(map[string]map[string]string)}
	for _, tr := range dd.TextResources {
		byLang, ok := idx.texts[tr.TextID]
		if !ok {
			byLang = make(map[string]string)
			idx.texts[tr.TextID] = byLang
		}
		byLang[tr.Language] = tr.Value
	}
	return idx
}

// Has reports whether textID is declared in any language.
func (idx *TextIndex) Has(textID string) bool {
	_, ok := idx.texts[textID]
	return ok
}

// Resolve returns the display string for textID, preferring lang, then the
// primary language. The result is a derived value and never stored as the
// reference itself.
func (idx *TextIndex) Resolve(textID, lang string) (string, bool) {
	byLang, ok := idx.texts[textID]
	if !ok {
		return "", false
	}
	if v, ok := byLang[lang]; ok {
		return v, true
	}
	if v, ok := byLang[idx.primary]; ok {
		return v, true
	}
	return "", false
}

// Identified reports whether dd carries both identity fields. Only an
// identified device can replace an earlier import of itself.
func (dd *DeviceDescription) Identified() bool {
	return dd.VendorID != "" && dd.DeviceID != ""
}

// StructuredFields returns all structured fields in depth-first order.
func (dd *DeviceDescription) StructuredFields() []*StructuredField {
	var out []*StructuredField
	Walk(dd.Fields, func(f Field) {
		if sf, ok := f.(*StructuredField); ok {
			out = append(out, sf)
		}
	})
	return out
}

// OpaqueSections returns all opaque sections in depth-first order.
func (dd *DeviceDescription) OpaqueSections() []*OpaqueSection {
	var out []*OpaqueSection
	Walk(dd.Fields, func(f Field) {
		if op, ok := f.(*OpaqueSection); ok {
			out = append(out, op)
		}
	})
	return out
}

// FindField returns the first structured field with the given original identifier.
func (dd *DeviceDescription) FindField(originalID string) *StructuredField {
	for _, f := range dd.StructuredFields() {
		if f.OriginalID == originalID {
			return f
		}
	}
	return nil
}

// DeviceFilter narrows the set of device descriptions returned by a listing.
type DeviceFilter struct {
	Format     FormatKind `json:"format,omitempty"`
	Unanalyzed bool       `json:"unanalyzed,omitempty"`
}
