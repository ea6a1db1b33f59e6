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

package eds

import (
	"strconv"
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

type writer struct {
	buf    strings.Builder
	indent string
	eol    string
	diags  model.Diagnostics
}

func sourceOrder(string) (int, bool) { return 0, false }

// Reconstruct implements codec.Codec. Known sections are written in canonical
// order with their entries in source order; unknown sections and comments are
// replayed verbatim.
func (Codec) Reconstruct(dd *model.DeviceDescription) (string, model.Diagnostics) {
	w := &writer{indent: dd.Indent, eol: dd.LineEnding}
	if w.indent == "" {
		w.indent = "\t"
	}
	if w.eol == "" {
		w.eol = "\n"
	}

	for _, f := range model.Arrange(dd.Fields, sectionRank) {
		switch f := f.(type) {
		case *model.OpaqueSection:
			w.buf.Write(f.Content)
		case *model.StructuredField:
			w.section(f)
		}
	}
	return w.buf.String(), w.diags
}

func (w *writer) section(sf *model.StructuredField) {
	w.buf.WriteString("[" + sf.ElementName + "]" + w.eol)
	for _, c := range model.Arrange(sf.Children, sourceOrder) {
		switch c := c.(type) {
		case *model.OpaqueSection:
			w.buf.WriteString(w.indent)
			w.buf.Write(c.Content)
			w.buf.WriteString(w.eol)
		case *model.StructuredField:
			w.entry(sf.ElementName, c)
		}
	}
	w.buf.WriteString(w.eol)
}

func (w *writer) entry(section string, f *model.StructuredField) {
	if f.ElementName == "" {
		w.diags.Warn(DiagPartialOutput, 0, "[%s] has an entry without key", section)
		return
	}

	family := canonicalKey(f.ElementName)
	switch {
	case f.Kind == model.KindEnumeration:
		w.list(f.ElementName, enumFields(f.Enumeration), nil)
	case labelsFor(family, 0) != nil:
		fields := fieldsOf(f)
		if len(fields) == 0 {
			w.diags.Warn(DiagPartialOutput, 0, "[%s] %s has no fields", section, f.ElementName)
		}
		w.list(f.ElementName, fields, notesOf(f))
		if family == "ParamN" && len(f.Enumeration) > 0 {
			w.list("Enum"+keyNumber(f.ElementName), enumFields(f.Enumeration), nil)
		}
	default:
		w.buf.WriteString(w.indent + f.ElementName + " = " + f.Value + ";" + w.eol)
	}
}

// list writes a multi-field entry with one field per line. notes are the
// comments per field line, -1 being the line of the key.
func (w *writer) list(key string, fields []string, notes map[int][]string) {
	if len(fields) == 0 {
		w.buf.WriteString(w.indent + key + " = ;" + w.eol)
		return
	}
	w.buf.WriteString(w.indent + key + " =")
	w.notes(notes[-1])
	last := len(fields) - 1
	for i, f := range fields {
		w.buf.WriteString(w.indent + w.indent + f)
		switch {
		case i < last:
			w.buf.WriteString(",")
			w.notes(notes[i])
		case len(notes[i]) > 0:
			// A comment behind the terminator would leave the entry.
			w.notes(notes[i])
			w.buf.WriteString(w.indent + w.indent + ";" + w.eol)
		default:
			w.buf.WriteString(";" + w.eol)
		}
	}
}

// notes ends the current line, the first comment staying on it.
func (w *writer) notes(texts []string) {
	for i, text := range texts {
		if i > 0 {
			w.buf.WriteString(w.indent + w.indent)
		}
		w.buf.WriteString(" " + text + w.eol)
	}
	if len(texts) == 0 {
		w.buf.WriteString(w.eol)
	}
}

// notesOf groups the note attributes of f by field line.
func notesOf(f *model.StructuredField) map[int][]string {
	var out map[int][]string
	for _, a := range f.Attributes {
		if !strings.HasPrefix(a.Name, notePrefix) {
			continue
		}
		at, err := strconv.Atoi(strings.TrimPrefix(a.Name, notePrefix))
		if err != nil {
			continue
		}
		if out == nil {
			out = make(map[int][]string)
		}
		out[at] = append(out[at], a.Value)
	}
	return out
}

// fieldsOf returns the stored tokens, with typed columns laid over the ones
// they were projected from when they have been changed since.
func fieldsOf(f *model.StructuredField) []string {
	typed := map[string]string{}
	switch canonicalKey(f.ElementName) {
	case "ParamN":
		typed = map[string]string{
			"dataType": f.DataType, "dataSize": f.Length, "name": f.Name, "units": f.Units,
			"help": f.Description, "min": f.MinValue, "max": f.MaxValue, "default": f.DefaultValue,
		}
	case "AssemN":
		typed = map[string]string{"name": f.Name, "size": f.Length}
	case "ConnectionN":
		typed = map[string]string{"name": f.Name, "help": f.Description}
	}

	out := make([]string, 0, len(f.Attributes))
	for _, a := range f.Attributes {
		if strings.HasPrefix(a.Name, notePrefix) {
			continue
		}
		tok := a.Value
		if v, ok := typed[a.Name]; ok && v != "" {
			switch {
			case quotedLabels[a.Name] && unquote(tok) != v:
				tok = quote(v)
			case !quotedLabels[a.Name] && tok != v:
				tok = v
			}
		}
		out = append(out, tok)
	}
	return out
}

func enumFields(values []model.EnumValue) []string {
	out := make([]string, 0, 2*len(values))
	for _, ev := range values {
		out = append(out, ev.Code, quote(ev.Label))
	}
	return out
}
