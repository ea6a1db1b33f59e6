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
	"encoding/json"
	"sort"
)

// Field is one extracted region of a source file. It is either a modeled
// *StructuredField or a verbatim *OpaqueSection; no other implementations
// exist, so a type switch over both cases is exhaustive.
type Field interface {
	isField()
	// FieldName is the element or section name the region was read from.
	FieldName() string
	// Position is the ordinal among the siblings, counted in the order the
	// writer of the format places them.
	Position() int
}

// FieldKind classifies structured fields.
type FieldKind string

// Field kinds shared by both formats.
const (
	KindDocument      FieldKind = "document"
	KindSection       FieldKind = "section"
	KindNetworkClass  FieldKind = "network-class"
	KindIdentity      FieldKind = "identity"
	KindVariable      FieldKind = "variable"
	KindParameter     FieldKind = "parameter"
	KindDatatype      FieldKind = "datatype"
	KindProcessData   FieldKind = "process-data"
	KindRecordItem    FieldKind = "record-item"
	KindErrorType     FieldKind = "error-type"
	KindEvent         FieldKind = "event"
	KindAssembly      FieldKind = "assembly"
	KindConnection    FieldKind = "connection"
	KindTextReference FieldKind = "text-reference"
	KindLanguage      FieldKind = "language"
	KindEnumeration   FieldKind = "enumeration"
	KindEntry         FieldKind = "entry"
	KindElement       FieldKind = "element"
)

// Attribute is a name/value pair kept in source order.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// EnumValue is one (code, label) pair of an enumeration. Label carries the
// literal text (EDS) or a resolved cache of LabelTextID (IODD).
type EnumValue struct {
	ID          int64  `json:"-"`
	Code        string `json:"code"`
	Label       string `json:"label,omitempty"`
	LabelTextID string `json:"labelTextId,omitempty"`
	Ordinal     int    `json:"ordinal"`
}

// StructuredField is a modeled region. Empty strings mean "absent in the
// source"; reconstruction never fills them with defaults.
type StructuredField struct {
	ID          int64     `json:"-"`
	Kind        FieldKind `json:"kind"`
	ElementName string    `json:"elementName"`
	// OriginalID is the identifier as written in the source. It is stored
	// verbatim and used for cross references and diff matching.
	OriginalID        string `json:"originalId,omitempty"`
	Ordinal           int    `json:"ordinal"`
	Value             string `json:"value,omitempty"`
	Name              string `json:"name,omitempty"`
	NameTextID        string `json:"nameTextId,omitempty"`
	DescriptionTextID string `json:"descriptionTextId,omitempty"`
	Description       string `json:"description,omitempty"`
	// ResolvedName is derived from NameTextID; it is never written back.
	ResolvedName string `json:"resolvedName,omitempty"`
	DataType     string `json:"dataType,omitempty"`
	Length       string `json:"length,omitempty"`
	AccessRights string `json:"accessRights,omitempty"`
	DefaultValue string `json:"defaultValue,omitempty"`
	MinValue     string `json:"minValue,omitempty"`
	MaxValue     string `json:"maxValue,omitempty"`
	Units        string `json:"units,omitempty"`

	Attributes  []Attribute `json:"attributes,omitempty"`
	Enumeration []EnumValue `json:"enumeration,omitempty"`
	Children    []Field     `json:"children,omitempty"`
}

func (*StructuredField) isField() {}

// FieldName implements Field.
func (f *StructuredField) FieldName() string { return f.ElementName }

// Position implements Field.
func (f *StructuredField) Position() int { return f.Ordinal }

// Attr returns the value of the named attribute.
func (f *StructuredField) Attr(name string) (string, bool) {
	for _, a := range f.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr replaces the value of an existing attribute or appends a new one.
func (f *StructuredField) SetAttr(name, value string) {
	for i := range f.Attributes {
		if f.Attributes[i].Name == name {
			f.Attributes[i].Value = value
			return
		}
	}
	f.Attributes = append(f.Attributes, Attribute{Name: name, Value: value})
}

// MarshalJSON tags the variant for API consumers.
func (f *StructuredField) MarshalJSON() ([]byte, error) {
	type alias StructuredField
	return json.Marshal(struct {
		Type string `json:"type"`
		*alias
	}{Type: "structured", alias: (*alias)(f)})
}

// OpaqueSection is a region that is not modeled. Content is the exact byte
// span of the source and is replayed unchanged.
type OpaqueSection struct {
	ID          int64  `json:"-"`
	Name        string `json:"name"`
	Ordinal     int    `json:"ordinal"`
	StartOffset int64  `json:"startOffset"`
	EndOffset   int64  `json:"endOffset"`
	Content     []byte `json:"-"`
}

func (*OpaqueSection) isField() {}

// FieldName implements Field.
func (o *OpaqueSection) FieldName() string { return o.Name }

// Position implements Field.
func (o *OpaqueSection) Position() int { return o.Ordinal }

// MarshalJSON tags the variant and exposes the content as text.
func (o *OpaqueSection) MarshalJSON() ([]byte, error) {
	type alias OpaqueSection
	return json.Marshal(struct {
		Type    string `json:"type"`
		Content string `json:"content"`
		*alias
	}{Type: "opaque", Content: string(o.Content), alias: (*alias)(o)})
}

// Walk visits fields depth first in slice order.
func Walk(fields []Field, fn func(Field)) {
	for _, f := range fields {
		fn(f)
		if sf, ok := f.(*StructuredField); ok {
			Walk(sf.Children, fn)
		}
	}
}

// Placeable is anything that can be ordered among siblings by Arrange.
type Placeable interface {
	FieldName() string
	Position() int
}

// Arrange orders sibling fields for output. Names known to rank are placed by
// their rank and then by ordinal. Unknown names stay behind the known sibling
// that preceded them in the source, so vendor extensions keep their place.
func Arrange[T Placeable](children []T, rank func(name string) (int, bool)) []T {
	bySource := make([]T, len(children))
	copy(bySource, children)
	sort.SliceStable(bySource, func(i, j int) bool {
		return bySource[i].Position() < bySource[j].Position()
	})

	type placed struct {
		field   T
		rank    int
		anchor  int
		unknown bool
	}
	items := make([]placed, 0, len(bySource))
	anchorRank, anchorPos := -1, -1
	for _, f := range bySource {
		if r, ok := rank(f.FieldName()); ok {
			anchorRank, anchorPos = r, f.Position()
			items = append(items, placed{field: f, rank: r, anchor: anchorPos})
			continue
		}
		items = append(items, placed{field: f, rank: anchorRank, anchor: anchorPos, unknown: true})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.anchor != b.anchor {
			return a.anchor < b.anchor
		}
		if a.unknown != b.unknown {
			return !a.unknown
		}
		return a.field.Position() < b.field.Position()
	})

	out := make([]T, len(items))
	for i, it := range items {
		out[i] = it.field
	}
	return out
}

// Slot is one sibling position to be numbered by Sequence. Set is nil for
// slots whose place is fixed by the writer, such as folded Name references.
type Slot struct {
	Name string
	Pos  int
	Set  func(ordinal int)
}

// FieldName implements Placeable.
func (s Slot) FieldName() string { return s.Name }

// Position implements Placeable.
func (s Slot) Position() int { return s.Pos }

// FieldSlot returns the slot of a stored field.
func FieldSlot(f Field) Slot {
	switch f := f.(type) {
	case *StructuredField:
		return Slot{Name: f.ElementName, Pos: f.Ordinal, Set: func(ord int) { f.Ordinal = ord }}
	case *OpaqueSection:
		return Slot{Name: f.Name, Pos: f.Ordinal, Set: func(ord int) { f.Ordinal = ord }}
	}
	return Slot{}
}

// Sequence arranges slots as Arrange would and numbers the settable ones
// 0..n-1 in that order. Arranging the numbered slots again yields the same
// order, so a parse of the reconstruction assigns the same ordinals.
func Sequence(slots []Slot, rank func(name string) (int, bool)) {
	n := 0
	for _, s := range Arrange(slots, rank) {
		if s.Set != nil {
			s.Set(n)
			n++
		}
	}
}

// Renumber sequences a list of stored sibling fields and sorts it by the new
// ordinals.
func Renumber(fields []Field, rank func(name string) (int, bool)) {
	slots := make([]Slot, 0, len(fields))
	for _, f := range fields {
		slots = append(slots, FieldSlot(f))
	}
	Sequence(slots, rank)
	ByPosition(fields)
}

// ByPosition sorts siblings by ordinal.
func ByPosition(fields []Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Position() < fields[j].Position()
	})
}
