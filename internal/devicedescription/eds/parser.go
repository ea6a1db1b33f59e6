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

// Package eds reads and writes CIP electronic data sheets (EDS), the
// section/key-value text format of EtherNet/IP and DeviceNet devices.
//
// Known sections are modeled entry by entry; ParamN, AssemN and ConnectionN
// entries keep every positional field as a labeled attribute, and EnumN lists
// become the enumeration of the parameter they belong to. Sections that are
// not modeled are stored as opaque byte spans.
package eds

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/doctree"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// Diagnostic codes raised by the EDS front-end.
const (
	DiagMissingSection = "EDS-MISSING-SECTION"
	DiagMissingEntry   = "EDS-MISSING-ENTRY"
	DiagOrphanEnum     = "EDS-ORPHAN-ENUM"
	DiagMalformedEnum  = "EDS-MALFORMED-ENUM"
	DiagDuplicateEntry = "EDS-DUPLICATE-ENTRY"
	DiagPartialOutput  = "EDS-RECONSTRUCT-PARTIAL"
	DiagCommentedEntry = "EDS-COMMENTED-ENTRY"
)

// notePrefix marks the attributes that carry comments written inside the
// value of a labeled entry. The rest of the name is the field index.
const notePrefix = "$"

// Codec is the EDS capability set.
type Codec struct{}

// Kind implements codec.Codec.
func (Codec) Kind() model.FormatKind { return model.FormatEDS }

// Rules implements codec.Codec.
func (Codec) Rules() doctree.Rules { return edsRules }

type parser struct {
	raw    []byte
	dd     *model.DeviceDescription
	diags  model.Diagnostics
	limits model.ParseLimits
	enums  int
}

// Parse implements codec.Codec.
func (Codec) Parse(raw []byte, limits model.ParseLimits) (*model.DeviceDescription, model.Diagnostics, error) {
	limits = limits.Normalize()
	doc, err := lex(raw)
	if err != nil {
		return nil, nil, err
	}

	p := &parser{raw: raw, limits: limits, dd: &model.DeviceDescription{
		Format:        model.FormatEDS,
		Indent:        indentOf(raw, doc),
		LineEnding:    lineEnding(raw),
		ParserVersion: model.ParserVersion,
	}}

	ordinal := 0
	if doc.prologEnd > 0 {
		p.dd.Fields = append(p.dd.Fields, p.span("#prolog", ordinal, 0, doc.prologEnd))
		ordinal++
	}
	for _, s := range doc.sections {
		if _, known := sectionRank(s.name); known {
			sf, err := p.section(s, ordinal)
			if err != nil {
				return nil, nil, err
			}
			p.dd.Fields = append(p.dd.Fields, sf)
		} else {
			p.dd.Fields = append(p.dd.Fields, p.span(s.name, ordinal, s.start, s.end))
		}
		ordinal++
	}
	// Known sections are written in canonical order.
	model.Renumber(p.dd.Fields, sectionRank)

	p.identify()
	return p.dd, p.diags, nil
}

func (p *parser) span(name string, ordinal int, start, end int64) *model.OpaqueSection {
	content := make([]byte, end-start)
	copy(content, p.raw[start:end])
	return &model.OpaqueSection{Name: name, Ordinal: ordinal, StartOffset: start, EndOffset: end, Content: content}
}

// section models the entries of a known section. Ordinals count the stored
// children in source order; EnumN lists folded into their parameter take no
// place of their own.
func (p *parser) section(s *section, ordinal int) (*model.StructuredField, error) {
	sf := &model.StructuredField{
		Kind:        sectionKind(s.name),
		ElementName: s.name,
		Ordinal:     ordinal,
	}

	seen := make(map[string]bool)
	params := make(map[string]*model.StructuredField)
	var enums []*entry
	for i, it := range s.items {
		if it.comment != nil {
			sf.Children = append(sf.Children, p.span("#comment", i, it.comment.start, it.comment.end))
			continue
		}
		e := it.entry
		if seen[e.key] {
			p.diags.Warn(DiagDuplicateEntry, e.line, "[%s] declares %s more than once", s.name, e.key)
		}
		seen[e.key] = true

		family := canonicalKey(e.key)
		if family == "EnumN" && len(e.notes) == 0 {
			enums = append(enums, e)
			continue
		}
		f := p.entry(s.name, e, i)
		if pf, ok := f.(*model.StructuredField); ok && family == "ParamN" {
			params[keyNumber(e.key)] = pf
		}
		sf.Children = append(sf.Children, f)
	}

	// Enumerations attach to their parameter regardless of where they were
	// declared; an orphan keeps its source position.
	for _, e := range enums {
		values, ok := enumValues(e.fields)
		if !ok {
			p.diags.Warn(DiagMalformedEnum, e.line, "%s has an odd number of fields, kept as plain entry", e.key)
			sf.Children = append(sf.Children, &model.StructuredField{
				Kind: model.KindEntry, ElementName: e.key, OriginalID: e.key,
				Ordinal: itemIndex(s, e), Value: strings.Join(e.fields, ","),
			})
			continue
		}
		if p.enums += len(values); p.enums > p.limits.MaxEnumValues {
			return nil, &model.InputLimitError{Limit: "maximum enumeration values", Max: int64(p.limits.MaxEnumValues), Actual: int64(p.enums)}
		}
		if param, ok := params[keyNumber(e.key)]; ok {
			param.Enumeration = values
			continue
		}
		p.diags.Warn(DiagOrphanEnum, e.line, "%s has no matching parameter in [%s]", e.key, s.name)
		sf.Children = append(sf.Children, &model.StructuredField{
			Kind: model.KindEnumeration, ElementName: e.key, OriginalID: e.key,
			Ordinal: itemIndex(s, e), Enumeration: values,
		})
	}
	model.Renumber(sf.Children, sourceOrder)
	return sf, nil
}

func itemIndex(s *section, e *entry) int {
	for i, it := range s.items {
		if it.entry == e {
			return i
		}
	}
	return len(s.items)
}

// entry models one key/value entry. Comments inside the value of a labeled
// entry are kept as note attributes; any other entry with such comments is
// kept verbatim.
func (p *parser) entry(section string, e *entry, ordinal int) model.Field {
	family := canonicalKey(e.key)
	labels := labelsFor(family, len(e.fields))
	if len(e.notes) > 0 && labels == nil {
		p.diags.Info(DiagCommentedEntry, e.line, "[%s] %s has comments inside its value, kept verbatim", section, e.key)
		return p.span(e.key, ordinal, e.start, e.end)
	}

	f := &model.StructuredField{
		Kind:        entryKind(section, family),
		ElementName: e.key,
		OriginalID:  e.key,
		Ordinal:     ordinal,
	}
	if labels == nil {
		f.Value = strings.Join(e.fields, ",")
		return f
	}
	for i, tok := range e.fields {
		f.Attributes = append(f.Attributes, model.Attribute{Name: labels[i], Value: tok})
	}
	for _, n := range e.notes {
		f.Attributes = append(f.Attributes, model.Attribute{Name: notePrefix + strconv.Itoa(n.field), Value: n.text})
	}
	project(f)
	return f
}

// project fills the typed columns of a labeled entry.
func project(f *model.StructuredField) {
	get := func(label string) string {
		v, _ := f.Attr(label)
		if quotedLabels[label] {
			return unquote(v)
		}
		return v
	}
	switch canonicalKey(f.ElementName) {
	case "ParamN":
		f.DataType = get("dataType")
		f.Length = get("dataSize")
		f.Name = get("name")
		f.Units = get("units")
		f.Description = get("help")
		f.MinValue = get("min")
		f.MaxValue = get("max")
		f.DefaultValue = get("default")
	case "AssemN":
		f.Name = get("name")
		f.Length = get("size")
	case "ConnectionN":
		f.Name = get("name")
		f.Description = get("help")
	}
}

// enumValues reads "code, label, code, label, ..." pairs.
func enumValues(fields []string) ([]model.EnumValue, bool) {
	if len(fields)%2 != 0 {
		return nil, false
	}
	values := make([]model.EnumValue, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		values = append(values, model.EnumValue{
			Code:    fields[i],
			Label:   unquote(fields[i+1]),
			Ordinal: i / 2,
		})
	}
	return values, true
}

func (p *parser) identify() {
	dd := p.dd
	value := func(sf *model.StructuredField, key string) (string, bool) {
		if sf == nil {
			return "", false
		}
		for _, c := range sf.Children {
			if e, ok := c.(*model.StructuredField); ok && strings.EqualFold(e.ElementName, key) {
				return unquote(e.Value), true
			}
		}
		return "", false
	}

	var ok bool
	file := p.find("File")
	if file == nil {
		p.diags.Warn(DiagMissingSection, 0, "no [File] section")
	} else if dd.FormatVersion, ok = value(file, "Revision"); !ok {
		p.diags.Info(DiagMissingEntry, 0, "[File] has no Revision")
	}

	device := p.find("Device")
	if device == nil {
		p.diags.Warn(DiagMissingSection, 0, "no [Device] section")
		return
	}
	if dd.VendorID, ok = value(device, "VendCode"); !ok {
		p.diags.Warn(DiagMissingEntry, 0, "[Device] has no VendCode")
	}
	if dd.DeviceID, ok = value(device, "ProdCode"); !ok {
		p.diags.Warn(DiagMissingEntry, 0, "[Device] has no ProdCode")
	}
	if dd.VendorName, ok = value(device, "VendName"); !ok {
		p.diags.Info(DiagMissingEntry, 0, "[Device] has no VendName")
	}
	if dd.ProductName, ok = value(device, "ProdName"); !ok {
		p.diags.Info(DiagMissingEntry, 0, "[Device] has no ProdName")
	}
}

func (p *parser) find(section string) *model.StructuredField {
	for _, f := range p.dd.Fields {
		if sf, ok := f.(*model.StructuredField); ok && strings.EqualFold(sf.ElementName, section) {
			return sf
		}
	}
	return nil
}

func lineEnding(raw []byte) string {
	if bytes.Contains(raw, []byte("\r\n")) {
		return "\r\n"
	}
	return "\n"
}

// indentOf returns the whitespace in front of the first entry.
func indentOf(raw []byte, doc *document) string {
	for _, s := range doc.sections {
		for _, it := range s.items {
			if it.entry == nil {
				continue
			}
			start := it.entry.start
			ls := int64(bytes.LastIndexByte(raw[:start], '\n') + 1)
			ws := raw[ls:start]
			if len(ws) > 0 && len(bytes.Trim(ws, " \t")) == 0 {
				return string(ws)
			}
			return "\t"
		}
	}
	return "\t"
}
