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
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/doctree"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// BuildTree implements codec.Codec. The tree has one node per section and
// one per entry below it; labeled entries carry their fields as attributes,
// plain entries their value as text. Comments are not part of the tree. EDS
// has no nesting, so only the size limit applies.
func (Codec) BuildTree(raw []byte, limits model.ParseLimits) (*doctree.Node, error) {
	limits = limits.Normalize()
	if int64(len(raw)) > limits.MaxInputBytes {
		return nil, &model.InputLimitError{Limit: "maximum input size", Max: limits.MaxInputBytes, Actual: int64(len(raw))}
	}
	doc, err := lex(raw)
	if err != nil {
		return nil, err
	}

	root := &doctree.Node{Name: RootName, Start: 0, End: int64(len(raw)), Line: 1}
	for _, s := range doc.sections {
		sn := &doctree.Node{Name: s.name, Start: s.start, End: s.end, Line: s.line}
		for _, it := range s.items {
			if it.entry != nil {
				sn.Children = append(sn.Children, entryNode(it.entry))
			}
		}
		root.Children = append(root.Children, sn)
	}
	return root, nil
}

func entryNode(e *entry) *doctree.Node {
	n := &doctree.Node{Name: e.key, Start: e.start, End: e.end, Line: e.line}
	family := canonicalKey(e.key)

	if family == "EnumN" {
		if values, ok := enumValues(e.fields); ok {
			for _, ev := range values {
				c := &doctree.Node{Name: "EnumValue", Start: e.start, End: e.end, Line: e.line, Attrs: []doctree.Attr{
					{Name: "code", Value: ev.Code},
					{Name: "label", Value: ev.Label},
				}}
				c.Key = doctree.KeyOf(c, "code")
				n.Children = append(n.Children, c)
			}
			return n
		}
	}

	labels := labelsFor(family, len(e.fields))
	if labels == nil {
		n.Text = unquote(strings.Join(e.fields, ","))
		return n
	}
	for i, tok := range e.fields {
		n.Attrs = append(n.Attrs, doctree.Attr{Name: labels[i], Value: unquote(tok)})
	}
	return n
}
