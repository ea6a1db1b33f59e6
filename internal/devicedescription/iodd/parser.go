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

// Package iodd reads and writes IO-Link device descriptions (IODD), the XML
// profile documents rooted at an IODevice element.
//
// Modeled elements become structured fields that keep their attributes
// verbatim and in source order. Everything else, comments included, is stored
// as an opaque byte span and replayed unchanged on reconstruction.
package iodd

import (
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/doctree"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// Diagnostic codes raised by the IODD front-end.
const (
	DiagMissingVendorID    = "IODD-MISSING-VENDORID"
	DiagMissingDeviceID    = "IODD-MISSING-DEVICEID"
	DiagMissingProductName = "IODD-MISSING-PRODUCTNAME"
	DiagMissingRevision    = "IODD-MISSING-REVISION"
	DiagMissingLanguage    = "IODD-MISSING-PRIMARYLANGUAGE"
	DiagUnresolvedText     = "IODD-UNRESOLVED-TEXTID"
	DiagUnresolvedDatatype = "IODD-UNRESOLVED-DATATYPEREF"
	DiagPartialOutput      = "IODD-RECONSTRUCT-PARTIAL"
)

// Codec is the IODD capability set.
type Codec struct{}

// Kind implements codec.Codec.
func (Codec) Kind() model.FormatKind { return model.FormatIODD }

// Rules implements codec.Codec.
func (Codec) Rules() doctree.Rules { return rules{} }

// BuildTree implements codec.Codec.
func (Codec) BuildTree(raw []byte, limits model.ParseLimits) (*doctree.Node, error) {
	return readTree(raw, limits.Normalize())
}

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
	root, err := readTree(raw, limits)
	if err != nil {
		return nil, nil, err
	}
	if localName(root.Name) != RootElement {
		return nil, nil, malformed(root.Line, root.Start, "document element must be "+RootElement+", found "+root.Name)
	}

	p := &parser{raw: raw, limits: limits, dd: &model.DeviceDescription{
		Format:        model.FormatIODD,
		Indent:        indentOf(raw, root),
		LineEnding:    lineEnding(raw),
		ParserVersion: model.ParserVersion,
	}}

	ordinal := 0
	if root.Start > 0 {
		p.dd.Fields = append(p.dd.Fields, p.span("#prolog", ordinal, 0, root.Start))
		ordinal++
	}
	doc, err := p.structured(root, ordinal)
	if err != nil {
		return nil, nil, err
	}
	p.dd.Fields = append(p.dd.Fields, doc)
	ordinal++
	if root.End < int64(len(raw)) {
		p.dd.Fields = append(p.dd.Fields, p.span("#epilog", ordinal, root.End, int64(len(raw))))
	}

	p.identify(root)
	p.resolve()
	return p.dd, p.diags, nil
}

func (p *parser) span(name string, ordinal int, start, end int64) *model.OpaqueSection {
	content := make([]byte, end-start)
	copy(content, p.raw[start:end])
	return &model.OpaqueSection{Name: name, Ordinal: ordinal, StartOffset: start, EndOffset: end, Content: content}
}

func (p *parser) verbatim(n *doctree.Node, ordinal int) *model.OpaqueSection {
	return p.span(n.Name, ordinal, n.Start, n.End)
}

// structured models n and its children. Sibling ordinals are first the raw
// child index and then renumbered in the order the writer places the
// siblings, so that folded children leave no gaps and schema order survives
// a round trip.
func (p *parser) structured(n *doctree.Node, ordinal int) (*model.StructuredField, error) {
	sf := &model.StructuredField{
		Kind:        kindOf(n.Name),
		ElementName: n.Name,
		OriginalID:  originalID(n),
		Ordinal:     ordinal,
	}
	for _, a := range n.Attrs {
		sf.Attributes = append(sf.Attributes, model.Attribute{Name: a.Name, Value: a.Value})
	}
	if len(n.Elements()) == 0 {
		sf.Value = n.Text
	}

	var slots []model.Slot
	keep := func(f model.Field) {
		sf.Children = append(sf.Children, f)
		slots = append(slots, model.FieldSlot(f))
	}

	lang, _ := n.Attr("xml:lang")
	for i, c := range n.Children {
		switch {
		case c.Verbatim:
			keep(p.verbatim(c, i))
		case !allowedChild(n.Name, c.Name) || verbatimElements[c.Name] || mixedContent(c):
			keep(p.verbatim(c, i))
		case c.Name == "Name" && sf.NameTextID == "" && foldableTextRef(c):
			sf.NameTextID, _ = c.Attr("textId")
			slots = append(slots, model.Slot{Name: c.Name, Pos: -1})
		case c.Name == "Description" && sf.DescriptionTextID == "" && foldableTextRef(c):
			sf.DescriptionTextID, _ = c.Attr("textId")
			slots = append(slots, model.Slot{Name: c.Name, Pos: -1})
		case c.Name == "SingleValue":
			ev, ok := foldEnumValue(c, i)
			if !ok {
				keep(p.verbatim(c, i))
				continue
			}
			if p.enums++; p.enums > p.limits.MaxEnumValues {
				return nil, &model.InputLimitError{Limit: "maximum enumeration values", Max: int64(p.limits.MaxEnumValues), Actual: int64(p.enums)}
			}
			sf.Enumeration = append(sf.Enumeration, ev)
			k := len(sf.Enumeration) - 1
			slots = append(slots, model.Slot{Name: c.Name, Pos: i, Set: func(ord int) { sf.Enumeration[k].Ordinal = ord }})
		case c.Name == "Text":
			tr, ok := foldText(c, lang, i)
			if !ok {
				keep(p.verbatim(c, i))
				continue
			}
			p.dd.TextResources = append(p.dd.TextResources, tr)
			k := len(p.dd.TextResources) - 1
			slots = append(slots, model.Slot{Name: c.Name, Pos: i, Set: func(ord int) { p.dd.TextResources[k].Ordinal = ord }})
		case c.Name == "Name" || c.Name == "Description":
			keep(p.verbatim(c, i))
		default:
			child, err := p.structured(c, i)
			if err != nil {
				return nil, err
			}
			keep(child)
		}
	}
	model.Sequence(slots, rankIn(n.Name))
	model.ByPosition(sf.Children)

	project(sf)
	return sf, nil
}

func originalID(n *doctree.Node) string {
	for _, name := range originalIDAttrs {
		if v, ok := n.Attr(name); ok {
			return v
		}
	}
	return ""
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func mixedContent(n *doctree.Node) bool {
	return len(n.Elements()) > 0 && !blank(n.Text)
}

func onlyAttrs(n *doctree.Node, names ...string) bool {
	if len(n.Attrs) != len(names) {
		return false
	}
	for _, name := range names {
		if _, ok := n.Attr(name); !ok {
			return false
		}
	}
	return true
}

// foldableTextRef matches <Name textId="..."/> with nothing else inside.
func foldableTextRef(n *doctree.Node) bool {
	return len(n.Children) == 0 && blank(n.Text) && onlyAttrs(n, "textId")
}

// foldEnumValue matches <SingleValue value="..."> with at most one plain Name.
func foldEnumValue(n *doctree.Node, ordinal int) (model.EnumValue, bool) {
	if !onlyAttrs(n, "value") || !blank(n.Text) {
		return model.EnumValue{}, false
	}
	ev := model.EnumValue{Ordinal: ordinal}
	ev.Code, _ = n.Attr("value")
	switch len(n.Children) {
	case 0:
		return ev, true
	case 1:
		c := n.Children[0]
		if c.Name != "Name" || !foldableTextRef(c) {
			return model.EnumValue{}, false
		}
		ev.LabelTextID, _ = c.Attr("textId")
		return ev, true
	default:
		return model.EnumValue{}, false
	}
}

// foldText matches <Text id="..." value="..."/> inside a language block.
func foldText(n *doctree.Node, lang string, ordinal int) (model.TextResource, bool) {
	if lang == "" || len(n.Children) > 0 || !blank(n.Text) || !onlyAttrs(n, "id", "value") {
		return model.TextResource{}, false
	}
	tr := model.TextResource{Language: lang, Ordinal: ordinal}
	tr.TextID, _ = n.Attr("id")
	tr.Value, _ = n.Attr("value")
	return tr, true
}

// project fills the typed columns from attributes and modeled children. The
// columns are read models only; reconstruction uses the attributes.
func project(sf *model.StructuredField) {
	attr := func(name string) string {
		v, _ := sf.Attr(name)
		return v
	}
	switch sf.ElementName {
	case "Datatype", "SimpleDatatype":
		sf.DataType = attr("xsi:type")
		sf.Length = attr("bitLength")
		if sf.Length == "" {
			sf.Length = attr("fixedLength")
		}
		for _, c := range sf.Children {
			if vr, ok := c.(*model.StructuredField); ok && vr.ElementName == "ValueRange" {
				sf.MinValue, _ = vr.Attr("lowerValue")
				sf.MaxValue, _ = vr.Attr("upperValue")
			}
		}
	case "DatatypeRef":
		sf.DataType = attr("datatypeId")
	case "Variable", "StdVariableRef", "DirectParameterOverlay", "RecordItem", "ProcessDataIn", "ProcessDataOut":
		sf.AccessRights = attr("accessRights")
		sf.DefaultValue = attr("defaultValue")
		sf.Length = attr("bitLength")
		for _, c := range sf.Children {
			dt, ok := c.(*model.StructuredField)
			if !ok || dt.Kind != model.KindDatatype {
				continue
			}
			sf.DataType = dt.DataType
			if sf.Length == "" {
				sf.Length = dt.Length
			}
			sf.MinValue, sf.MaxValue = dt.MinValue, dt.MaxValue
		}
	}
}

// identify fills the device level metadata from the document tree.
func (p *parser) identify(root *doctree.Node) {
	dd := p.dd
	if id := child(root, "ProfileBody", "DeviceIdentity"); id != nil {
		dd.VendorID, _ = id.Attr("vendorId")
		dd.DeviceID, _ = id.Attr("deviceId")
		dd.VendorName, _ = id.Attr("vendorName")
	}
	if rev := child(root, "ProfileHeader", "ProfileRevision"); rev != nil {
		dd.FormatVersion = strings.TrimSpace(rev.Text)
	}
	if pl := child(root, "ExternalTextCollection", "PrimaryLanguage"); pl != nil {
		dd.PrimaryLanguage, _ = pl.Attr("xml:lang")
	}

	if dd.VendorID == "" {
		p.diags.Warn(DiagMissingVendorID, root.Line, "DeviceIdentity has no vendorId")
	}
	if dd.DeviceID == "" {
		p.diags.Warn(DiagMissingDeviceID, root.Line, "DeviceIdentity has no deviceId")
	}
	if dd.FormatVersion == "" {
		p.diags.Info(DiagMissingRevision, root.Line, "ProfileHeader has no ProfileRevision")
	}
	if dd.PrimaryLanguage == "" {
		p.diags.Warn(DiagMissingLanguage, root.Line, "ExternalTextCollection has no PrimaryLanguage")
	}
}

// resolve checks every reference by identifier and fills the derived
// display caches. References that do not resolve stay as they were written.
func (p *parser) resolve() {
	dd := p.dd
	texts := model.NewTextIndex(dd)
	datatypes := make(map[string]bool)
	for _, sf := range dd.StructuredFields() {
		if sf.ElementName == "Datatype" && sf.OriginalID != "" {
			datatypes[sf.OriginalID] = true
		}
	}

	checkText := func(id, where string) {
		if id != "" && !texts.Has(id) {
			p.diags.Warn(DiagUnresolvedText, 0, "%s references undefined text %q", where, id)
		}
	}

	for _, sf := range dd.StructuredFields() {
		where := sf.ElementName
		if sf.OriginalID != "" {
			where += " " + sf.OriginalID
		}
		checkText(sf.NameTextID, where)
		checkText(sf.DescriptionTextID, where)
		if sf.Kind == model.KindTextReference {
			if id, ok := sf.Attr("textId"); ok {
				checkText(id, where)
			}
		}
		if sf.NameTextID != "" {
			sf.ResolvedName, _ = texts.Resolve(sf.NameTextID, dd.PrimaryLanguage)
		}
		if sf.DescriptionTextID != "" {
			sf.Description, _ = texts.Resolve(sf.DescriptionTextID, dd.PrimaryLanguage)
		}
		for i := range sf.Enumeration {
			ev := &sf.Enumeration[i]
			checkText(ev.LabelTextID, where)
			if ev.LabelTextID != "" {
				ev.Label, _ = texts.Resolve(ev.LabelTextID, dd.PrimaryLanguage)
			}
		}
		if sf.ElementName == "DatatypeRef" && sf.OriginalID != "" && !datatypes[sf.OriginalID] {
			p.diags.Warn(DiagUnresolvedDatatype, 0, "%s references undefined datatype %q", where, sf.OriginalID)
		}
	}

	if dd.ProductName == "" {
		if dn := findByName(dd, "DeviceName"); dn != nil {
			if id, ok := dn.Attr("textId"); ok {
				dd.ProductName, _ = texts.Resolve(id, dd.PrimaryLanguage)
			}
		}
	}
	if dd.ProductName == "" {
		if dv := findByName(dd, "DeviceVariant"); dv != nil {
			dd.ProductName, _ = dv.Attr("productId")
		}
	}
	if dd.ProductName == "" {
		p.diags.Info(DiagMissingProductName, 0, "no DeviceName or DeviceVariant to derive a product name from")
	}
}

func findByName(dd *model.DeviceDescription, name string) *model.StructuredField {
	for _, sf := range dd.StructuredFields() {
		if sf.ElementName == name {
			return sf
		}
	}
	return nil
}
