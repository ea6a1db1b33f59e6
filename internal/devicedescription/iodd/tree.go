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
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/doctree"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// readTree tokenizes raw into a doctree rooted at the document element.
// Names keep the prefix they were written with and every node records the
// byte span it was read from.
func readTree(raw []byte, limits model.ParseLimits) (*doctree.Node, error) {
	limits = limits.Normalize()

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = true
	// Bytes are passed through untouched so offsets stay exact.
	dec.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	var root *doctree.Node
	var stack []*doctree.Node
	var text []*strings.Builder

	for {
		start := dec.InputOffset()
		line, _ := dec.InputPos()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var syntax *xml.SyntaxError
			if errors.As(err, &syntax) {
				line = syntax.Line
			}
			return nil, malformed(line, start, err.Error())
		}
		end := dec.InputOffset()

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, malformed(line, start, "content after the document element")
			}
			if len(stack) >= limits.MaxDepth {
				return nil, &model.InputLimitError{Limit: "maximum element depth", Max: int64(limits.MaxDepth), Actual: int64(len(stack) + 1)}
			}
			n := &doctree.Node{Name: qualified(t.Name), Start: start, Line: line}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, doctree.Attr{Name: qualified(a.Name), Value: a.Value})
			}
			n.Key = keyFor(n)
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, malformed(line, start, fmt.Sprintf("unexpected closing tag </%s>", qualified(t.Name)))
			}
			top := stack[len(stack)-1]
			if name := qualified(t.Name); name != top.Name {
				return nil, malformed(line, start, fmt.Sprintf("element <%s> opened at line %d closed by </%s>", top.Name, top.Line, name))
			}
			top.End = end
			top.Text = text[len(text)-1].String()
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]

		case xml.CharData:
			if len(stack) > 0 {
				text[len(text)-1].Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, malformed(line, start, "text outside the document element")
			}

		case xml.Comment, xml.ProcInst, xml.Directive:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, &doctree.Node{Name: verbatimName(tok), Verbatim: true, Start: start, End: end, Line: line})
			}
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, malformed(top.Line, int64(len(raw)), fmt.Sprintf("element <%s> is never closed", top.Name))
	}
	if root == nil {
		return nil, malformed(1, 0, "no document element")
	}
	return root, nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func verbatimName(tok xml.Token) string {
	switch tok.(type) {
	case xml.Comment:
		return "#comment"
	case xml.ProcInst:
		return "#pi"
	default:
		return "#directive"
	}
}

func malformed(line int, offset int64, msg string) error {
	return &model.MalformedInputError{Format: model.FormatIODD, Line: line, Offset: offset, Message: msg}
}

func lineEnding(raw []byte) string {
	if bytes.Contains(raw, []byte("\r\n")) {
		return "\r\n"
	}
	return "\n"
}

// indentOf returns the whitespace in front of the first child of root.
func indentOf(raw []byte, root *doctree.Node) string {
	for _, c := range root.Children {
		nl := bytes.LastIndexByte(raw[:c.Start], '\n')
		if nl < 0 {
			continue
		}
		ws := raw[nl+1 : c.Start]
		if len(ws) > 0 && len(bytes.Trim(ws, " \t")) == 0 {
			return string(ws)
		}
	}
	return "\t"
}

func child(n *doctree.Node, names ...string) *doctree.Node {
	cur := n
	for _, name := range names {
		var next *doctree.Node
		for _, c := range cur.Elements() {
			if c.Name == name {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}
