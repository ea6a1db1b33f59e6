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

package iodd

import (
	"bytes"
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// item is one child slot of an element on output: a stored field or a
// fragment regenerated from folded data (names, enumerations, texts).
type item struct {
	name  string
	pos   int
	write func(depth int)
}

func (i item) FieldName() string { return i.name }
func (i item) Position() int     { return i.pos }

// requiredAttr names the attribute a consumer cannot do without. A field
// lacking it is still written.
var requiredAttr = map[string]string{
	"Variable":        "id",
	"StdVariableRef":  "id",
	"Datatype":        "xsi:type",
	"DatatypeRef":     "datatypeId",
	"ErrorType":       "code",
	"Event":           "code",
	"PrimaryLanguage": "xml:lang",
	"Language":        "xml:lang",
}

type writer struct {
	dd     *model.DeviceDescription
	buf    bytes.Buffer
	indent string
	eol    string
	texts  map[string][]model.TextResource
	used   map[string]bool
	diags  model.Diagnostics
}

// Reconstruct implements codec.Codec. Element order follows the IODD schema
// order per parent; verbatim spans are replayed as stored.
func (Codec) Reconstruct(dd *model.DeviceDescription) (string, model.Diagnostics) {
	w := &writer{
		dd:     dd,
		indent: dd.Indent,
		eol:    dd.LineEnding,
		texts:  make(map[string][]model.TextResource),
		used:   make(map[string]bool),
	}
	if w.indent == "" {
		w.indent = "\t"
	}
	if w.eol == "" {
		w.eol = "\n"
	}
	for _, tr := range dd.TextResources {
		w.texts[tr.Language] = append(w.texts[tr.Language], tr)
	}

	top := func(name string) (int, bool) { return 0, localName(name) == RootElement }
	for _, f := range model.Arrange(dd.Fields, top) {
		switch f := f.(type) {
		case *model.OpaqueSection:
			w.buf.Write(f.Content)
		case *model.StructuredField:
			w.element(f, 0)
			if b := w.buf.Bytes(); bytes.HasSuffix(b, []byte(w.eol)) {
				w.buf.Truncate(len(b) - len(w.eol))
			}
		}
	}
	return w.buf.String(), w.diags
}

func (w *writer) pad(depth int) {
	for i := 0; i < depth; i++ {
		w.buf.WriteString(w.indent)
	}
}

func (w *writer) open(name string, attrs []model.Attribute) {
	w.buf.WriteByte('<')
	w.buf.WriteString(name)
	for _, a := range attrs {
		w.buf.WriteByte(' ')
		w.buf.WriteString(a.Name)
		w.buf.WriteString(`="`)
		w.buf.WriteString(escapeAttr(a.Value))
		w.buf.WriteByte('"')
	}
}

func (w *writer) empty(depth int, name string, attrs ...model.Attribute) {
	w.pad(depth)
	w.open(name, attrs)
	w.buf.WriteString("/>")
	w.buf.WriteString(w.eol)
}

func (w *writer) element(sf *model.StructuredField, depth int) {
	if sf.ElementName == "" {
		w.diags.Warn(DiagPartialOutput, 0, "skipping field %d without element name", sf.ID)
		return
	}
	if attr, ok := requiredAttr[sf.ElementName]; ok {
		if _, ok := sf.Attr(attr); !ok {
			w.diags.Warn(DiagPartialOutput, 0, "%s is missing attribute %s", sf.ElementName, attr)
		}
	}

	items := model.Arrange(w.items(sf), rankIn(sf.ElementName))

	w.pad(depth)
	w.open(sf.ElementName, sf.Attributes)
	if len(items) == 0 {
		if sf.Value == "" {
			w.buf.WriteString("/>")
		} else {
			w.buf.WriteByte('>')
			w.buf.WriteString(escapeText(sf.Value))
			w.buf.WriteString("</" + sf.ElementName + ">")
		}
		w.buf.WriteString(w.eol)
		return
	}

	w.buf.WriteByte('>')
	if !blank(sf.Value) {
		w.buf.WriteString(escapeText(sf.Value))
	}
	w.buf.WriteString(w.eol)
	for _, it := range items {
		it.write(depth + 1)
	}
	w.pad(depth)
	w.buf.WriteString("</" + sf.ElementName + ">")
	w.buf.WriteString(w.eol)
}

func (w *writer) items(sf *model.StructuredField) []item {
	var out []item
	for _, c := range sf.Children {
		switch c := c.(type) {
		case *model.OpaqueSection:
			out = append(out, item{name: c.Name, pos: c.Ordinal, write: func(depth int) {
				w.pad(depth)
				w.buf.Write(c.Content)
				w.buf.WriteString(w.eol)
			}})
		case *model.StructuredField:
			out = append(out, item{name: c.ElementName, pos: c.Ordinal, write: func(depth int) {
				w.element(c, depth)
			}})
		}
	}

	if id := sf.NameTextID; id != "" {
		out = append(out, item{name: "Name", pos: -1, write: func(depth int) {
			w.empty(depth, "Name", model.Attribute{Name: "textId", Value: id})
		}})
	}
	if id := sf.DescriptionTextID; id != "" {
		out = append(out, item{name: "Description", pos: -1, write: func(depth int) {
			w.empty(depth, "Description", model.Attribute{Name: "textId", Value: id})
		}})
	}

	for _, ev := range sf.Enumeration {
		ev := ev
		if ev.Code == "" {
			w.diags.Warn(DiagPartialOutput, 0, "%s %s has an enumeration value without code", sf.ElementName, sf.OriginalID)
		}
		out = append(out, item{name: "SingleValue", pos: ev.Ordinal, write: func(depth int) {
			value := model.Attribute{Name: "value", Value: ev.Code}
			if ev.LabelTextID == "" {
				w.empty(depth, "SingleValue", value)
				return
			}
			w.pad(depth)
			w.open("SingleValue", []model.Attribute{value})
			w.buf.WriteByte('>')
			w.buf.WriteString(w.eol)
			w.empty(depth+1, "Name", model.Attribute{Name: "textId", Value: ev.LabelTextID})
			w.pad(depth)
			w.buf.WriteString("</SingleValue>")
			w.buf.WriteString(w.eol)
		}})
	}

	if sf.Kind == model.KindLanguage {
		lang, ok := sf.Attr("xml:lang")
		switch {
		case !ok:
			w.diags.Warn(DiagPartialOutput, 0, "%s without xml:lang, texts cannot be placed", sf.ElementName)
		case !w.used[lang]:
			w.used[lang] = true
			for _, tr := range w.texts[lang] {
				tr := tr
				out = append(out, item{name: "Text", pos: tr.Ordinal, write: func(depth int) {
					w.empty(depth, "Text",
						model.Attribute{Name: "id", Value: tr.TextID},
						model.Attribute{Name: "value", Value: tr.Value})
				}})
			}
		}
	}
	return out
}

var (
	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\t", "&#x9;",
		"\n", "&#xA;",
		"\r", "&#xD;",
	)
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\r", "&#xD;",
	)
)

func escapeAttr(s string) string { return attrEscaper.Replace(s) }

func escapeText(s string) string { return textEscaper.Replace(s) }
