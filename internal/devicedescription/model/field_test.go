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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(fields []Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.FieldName())
	}
	return out
}

func TestArrangeKeepsUnknownBehindPrecedingKnownSibling(t *testing.T) {
	order := map[string]int{"Datatype": 0, "Name": 1, "Description": 2}
	rank := func(name string) (int, bool) {
		r, ok := order[name]
		return r, ok
	}

	children := []Field{
		&StructuredField{ElementName: "Description", Ordinal: 3},
		&OpaqueSection{Name: "VendorExt", Ordinal: 1},
		&StructuredField{ElementName: "Datatype", Ordinal: 0},
		&StructuredField{ElementName: "Name", Ordinal: 2},
		&OpaqueSection{Name: "#comment", Ordinal: 4},
	}

	got := Arrange(children, rank)
	assert.Equal(t, []string{"Datatype", "VendorExt", "Name", "Description", "#comment"}, names(got))
}

func TestArrangeLeadingUnknownStaysFirst(t *testing.T) {
	rank := func(name string) (int, bool) {
		if name == "IODevice" {
			return 0, true
		}
		return 0, false
	}
	children := []Field{
		&OpaqueSection{Name: "#epilog", Ordinal: 2},
		&StructuredField{ElementName: "IODevice", Ordinal: 1},
		&OpaqueSection{Name: "#prolog", Ordinal: 0},
	}
	assert.Equal(t, []string{"#prolog", "IODevice", "#epilog"}, names(Arrange(children, rank)))
}

func TestArrangeKeepsInterleavedSourceOrderWithinRank(t *testing.T) {
	rank := func(name string) (int, bool) {
		if name == "Variable" {
			return 2, true
		}
		return 0, false
	}
	children := []Field{
		&StructuredField{ElementName: "Variable", OriginalID: "V_A", Ordinal: 0},
		&OpaqueSection{Name: "#comment", Ordinal: 1},
		&StructuredField{ElementName: "Variable", OriginalID: "V_B", Ordinal: 2},
	}
	got := Arrange(children, rank)
	require.Len(t, got, 3)
	assert.Equal(t, "V_A", got[0].(*StructuredField).OriginalID)
	assert.Equal(t, "#comment", got[1].FieldName())
	assert.Equal(t, "V_B", got[2].(*StructuredField).OriginalID)
}

func TestRenumberFollowsOutputOrderAndIsStable(t *testing.T) {
	order := map[string]int{"Name": 0, "Datatype": 1, "RecordItem": 2}
	rank := func(name string) (int, bool) {
		r, ok := order[name]
		return r, ok
	}
	children := []Field{
		&StructuredField{ElementName: "RecordItem", Ordinal: 0},
		&OpaqueSection{Name: "#comment", Ordinal: 1},
		&StructuredField{ElementName: "Datatype", Ordinal: 3},
	}
	folded := Slot{Name: "Name", Pos: -1}
	slots := []Slot{folded}
	for _, c := range children {
		slots = append(slots, FieldSlot(c))
	}
	Sequence(slots, rank)

	arranged := Arrange(children, rank)
	assert.Equal(t, []string{"Datatype", "RecordItem", "#comment"}, names(arranged))
	for i, f := range arranged {
		assert.Equal(t, i, f.Position())
	}

	Renumber(children, rank)
	assert.Equal(t, names(arranged), names(children))
	assert.Equal(t, names(arranged), names(Arrange(children, rank)))
	for i, f := range Arrange(children, rank) {
		assert.Equal(t, i, f.Position())
	}
}

func TestTextIndexFallsBackToPrimaryLanguage(t *testing.T) {
	dd := &DeviceDescription{
		PrimaryLanguage: "en",
		TextResources: []TextResource{
			{TextID: "TI_Foo", Language: "en", Value: "Foo"},
			{TextID: "TI_Foo", Language: "de", Value: "Fu"},
			{TextID: "TI_Bar", Language: "en", Value: "Bar"},
		},
	}
	idx := NewTextIndex(dd)

	v, ok := idx.Resolve("TI_Foo", "de")
	require.True(t, ok)
	assert.Equal(t, "Fu", v)

	v, ok = idx.Resolve("TI_Bar", "de")
	require.True(t, ok)
	assert.Equal(t, "Bar", v)

	_, ok = idx.Resolve("TI_Missing", "en")
	assert.False(t, ok)
	assert.True(t, idx.Has("TI_Bar"))
}

func TestWalkAndFind(t *testing.T) {
	dd := &DeviceDescription{Fields: []Field{
		&OpaqueSection{Name: "#prolog"},
		&StructuredField{ElementName: "IODevice", Children: []Field{
			&StructuredField{ElementName: "Variable", OriginalID: "V_Setpoint"},
			&OpaqueSection{Name: "UserInterface"},
		}},
	}}

	assert.Len(t, dd.StructuredFields(), 2)
	assert.Len(t, dd.OpaqueSections(), 2)
	require.NotNil(t, dd.FindField("V_Setpoint"))
	assert.Nil(t, dd.FindField("V_Nope"))
}

func TestSeverityCountsHasEveryBucket(t *testing.T) {
	counts := SeverityCounts([]DiffDetail{
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: SeverityInfo},
	})
	assert.Equal(t, 2, counts[SeverityHigh])
	assert.Equal(t, 1, counts[SeverityInfo])
	assert.Equal(t, 0, counts[SeverityCritical])
	assert.Len(t, counts, len(Severities))
}

func TestParseFormatKind(t *testing.T) {
	k, err := ParseFormatKind(" IODD ")
	require.NoError(t, err)
	assert.Equal(t, FormatIODD, k)

	_, err = ParseFormatKind("gsdml")
	assert.Error(t, err)
}
