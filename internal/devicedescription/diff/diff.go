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

// Package diff compares an original device description with its
// reconstruction and classifies every discrepancy.
//
// Both texts are read with the tree builder of their format front-end.
// Elements are paired by identity key first and by name and position among
// the remaining siblings second; text content is never used for pairing.
package diff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/doctree"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// TreeBuilder is the part of a format codec the comparator needs.
type TreeBuilder interface {
	BuildTree(raw []byte, limits model.ParseLimits) (*doctree.Node, error)
	Rules() doctree.Rules
}

// Result is the outcome of one comparison.
type Result struct {
	Details []model.DiffDetail

	OriginalElements        int
	OriginalAttributes      int
	ReconstructedElements   int
	ReconstructedAttributes int
}

// Analyze builds both trees under limits and compares them. A reconstruction
// that cannot be read, or whose root differs from the original, yields an
// error wrapping model.ErrIncompatibleRoot.
func Analyze(original, reconstructed []byte, b TreeBuilder, limits model.ParseLimits) (*Result, error) {
	orig, err := b.BuildTree(original, limits)
	if err != nil {
		return nil, fmt.Errorf("reading archived original: %w", err)
	}
	rec, err := b.BuildTree(reconstructed, limits)
	if err != nil {
		return nil, fmt.Errorf("%w: reconstruction is not readable: %v", model.ErrIncompatibleRoot, err)
	}

	details, err := Compare(orig, rec, b.Rules())
	if err != nil {
		return nil, err
	}
	res := &Result{Details: details}
	res.OriginalElements, res.OriginalAttributes = doctree.Count(orig)
	res.ReconstructedElements, res.ReconstructedAttributes = doctree.Count(rec)
	return res, nil
}

// Compare walks both trees from the root. Details come out in document order
// of the original, with unmatched reconstructed elements after the matched
// and missing siblings of their parent.
func Compare(original, reconstructed *doctree.Node, rules doctree.Rules) ([]model.DiffDetail, error) {
	if original == nil || reconstructed == nil {
		return nil, errors.New("diff: nil tree")
	}
	if original.Name != reconstructed.Name {
		return nil, fmt.Errorf("%w: <%s> against <%s>", model.ErrIncompatibleRoot, original.Name, reconstructed.Name)
	}

	c := &comparator{rules: rules}
	c.node("/"+original.Name, original, reconstructed)
	for i := range c.out {
		c.out[i].Ordinal = i
	}
	return c.out, nil
}

type comparator struct {
	rules doctree.Rules
	out   []model.DiffDetail
}

func (c *comparator) add(kind model.DiffKind, sev model.Severity, path, expected, actual string) {
	c.out = append(c.out, model.DiffDetail{Kind: kind, Severity: sev, Path: path, Expected: expected, Actual: actual})
}

func (c *comparator) node(path string, o, r *doctree.Node) {
	for _, a := range o.Attrs {
		v, ok := r.Attr(a.Name)
		switch {
		case !ok:
			c.add(model.DiffMissingAttribute, model.SeverityHigh, path+"/@"+a.Name, a.Value, "")
		case v == a.Value:
		case c.rules.IdentifierAttr(o, a.Name):
			c.add(model.DiffIncorrectAttribute, model.SeverityHigh, path+"/@"+a.Name, a.Value, v)
		default:
			c.add(model.DiffValueChange, model.SeverityMedium, path+"/@"+a.Name, a.Value, v)
		}
	}

	if o.Text != r.Text {
		ot, rt := collapse(o.Text), collapse(r.Text)
		switch {
		case ot != rt:
			c.add(model.DiffValueChange, model.SeverityMedium, path+"/text()", strings.TrimSpace(o.Text), strings.TrimSpace(r.Text))
		case ot != "":
			c.add(model.DiffValueChange, model.SeverityInfo, path+"/text()", o.Text, r.Text)
		}
	}

	c.children(path, o, r)
}

func (c *comparator) children(path string, o, r *doctree.Node) {
	oc, rc := o.Elements(), r.Elements()
	partner := make([]*doctree.Node, len(oc))
	used := make([]bool, len(rc))

	keyed := make(map[string][]int)
	for j, n := range rc {
		if n.Key != "" {
			keyed[n.Name+"\x00"+n.Key] = append(keyed[n.Name+"\x00"+n.Key], j)
		}
	}
	for i, n := range oc {
		if n.Key == "" {
			continue
		}
		k := n.Name + "\x00" + n.Key
		if js := keyed[k]; len(js) > 0 {
			partner[i], used[js[0]] = rc[js[0]], true
			keyed[k] = js[1:]
		}
	}
	for i, n := range oc {
		if partner[i] != nil {
			continue
		}
		for j, m := range rc {
			if !used[j] && m.Name == n.Name {
				partner[i], used[j] = m, true
				break
			}
		}
	}

	for i, n := range oc {
		p := path + "/" + doctree.Segment(o, n)
		if partner[i] == nil {
			sev := model.SeverityHigh
			if c.rules.Required(n) {
				sev = model.SeverityCritical
			}
			c.add(model.DiffMissingElement, sev, p, n.Name, "")
			continue
		}
		c.node(p, n, partner[i])
	}
	for j, m := range rc {
		if used[j] {
			continue
		}
		sev := model.SeverityLow
		if c.rules.ConsumerVisible(m) {
			sev = model.SeverityMedium
		}
		c.add(model.DiffExtraElement, sev, path+"/"+doctree.Segment(r, m), "", m.Name)
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
