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

// Package doctree holds the comparable document tree shared by the format
// front-ends and the diff analyzer. Both the parser and the comparator read
// source text through the same builder, so a difference reported by the
// analyzer is always a difference the parser could see.
package doctree

import (
	"strconv"
	"strings"
)

// Attr is an attribute as written in the source, prefix included.
type Attr struct {
	Name  string
	Value string
}

// Node is one element (or EDS section/entry) of a source document.
type Node struct {
	Name string
	// Key is the identity predicate used for matching and paths, e.g.
	// "@id='V_Setpoint'". Empty when the node carries no identifier.
	Key      string
	Attrs    []Attr
	Text     string
	Children []*Node
	// Verbatim marks comments and processing instructions. They are
	// carried for the parser but never compared or counted.
	Verbatim bool

	Start int64
	End   int64
	Line  int
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Elements returns the comparable children.
func (n *Node) Elements() []*Node {
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if !c.Verbatim {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of elements and attributes in the subtree rooted at n.
func Count(n *Node) (elements, attributes int) {
	if n == nil || n.Verbatim {
		return 0, 0
	}
	elements, attributes = 1, len(n.Attrs)
	for _, c := range n.Children {
		e, a := Count(c)
		elements += e
		attributes += a
	}
	return elements, attributes
}

// KeyOf builds an identity predicate from the given attributes, in order.
// Attributes missing from n are skipped; the result is empty if none is present.
func KeyOf(n *Node, attrs ...string) string {
	parts := make([]string, 0, len(attrs))
	for _, name := range attrs {
		if v, ok := n.Attr(name); ok {
			parts = append(parts, "@"+name+"='"+v+"'")
		}
	}
	return strings.Join(parts, " and ")
}

// Segment renders the path segment of child within parent: the key predicate
// when present, a 1-based position among same named siblings when ambiguous,
// the bare name otherwise.
func Segment(parent, child *Node) string {
	if child.Key != "" {
		return child.Name + "[" + child.Key + "]"
	}
	if parent == nil {
		return child.Name
	}
	pos, total := 0, 0
	for _, c := range parent.Elements() {
		if c.Name != child.Name {
			continue
		}
		total++
		if c == child {
			pos = total
		}
	}
	if total > 1 {
		return child.Name + "[" + strconv.Itoa(pos) + "]"
	}
	return child.Name
}

// Rules carries the format specific knowledge the comparator needs to grade
// a discrepancy.
type Rules interface {
	// Required reports whether losing n breaks the document semantically.
	Required(n *Node) bool
	// ConsumerVisible reports whether an unexpected n changes what a device
	// consumer sees.
	ConsumerVisible(n *Node) bool
	// IdentifierAttr reports whether attr on n is an identifier or type tag.
	IdentifierAttr(n *Node, attr string) bool
}

// NameRules is a table driven Rules implementation. Canonical, if set, maps
// a concrete name such as "Param12" to its table entry ("ParamN").
type NameRules struct {
	RequiredNames   map[string]bool
	VisibleNames    map[string]bool
	IdentifierAttrs map[string]bool
	Canonical       func(name string) string
}

func (r NameRules) name(n *Node) string {
	if r.Canonical != nil {
		return r.Canonical(n.Name)
	}
	return n.Name
}

// Required implements Rules.
func (r NameRules) Required(n *Node) bool { return r.RequiredNames[r.name(n)] }

// ConsumerVisible implements Rules.
func (r NameRules) ConsumerVisible(n *Node) bool { return r.VisibleNames[r.name(n)] }

// IdentifierAttr implements Rules.
func (r NameRules) IdentifierAttr(_ *Node, attr string) bool { return r.IdentifierAttrs[attr] }
