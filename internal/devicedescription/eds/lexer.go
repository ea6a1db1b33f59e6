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
	"bytes"
	"fmt"
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// span is a byte range of the source with the line it starts on.
type span struct {
	start, end int64
	line       int
}

type entry struct {
	key    string
	fields []string
	notes  []note
	span
}

// note is a comment inside an entry value. field is the index of the field
// whose line carries it, -1 for the line of the key.
type note struct {
	field int
	text  string
}

// sectionItem is either an entry or a whole line comment.
type sectionItem struct {
	entry   *entry
	comment *span
}

type section struct {
	name  string
	items []sectionItem
	// start is the beginning of the header line, end the beginning of the
	// next header line (or the end of input).
	span
}

type document struct {
	prologEnd int64
	sections  []*section
}

type lexer struct {
	raw  []byte
	pos  int
	line int
}

// lex splits raw into sections, entries and comments. Field text is
// normalized: trimmed, with whitespace runs outside quotes collapsed.
func lex(raw []byte) (*document, error) {
	lx := &lexer{raw: raw, line: 1}
	doc := &document{}
	var cur *section

	for {
		lx.skipBlank()
		if lx.eof() {
			break
		}
		switch lx.raw[lx.pos] {
		case '$':
			c := span{start: int64(lx.pos), line: lx.line}
			lx.skipComment()
			c.end = int64(lx.pos)
			if cur != nil {
				cur.items = append(cur.items, sectionItem{comment: &c})
			}
		case '[':
			lineStart := lx.lineStart()
			name, err := lx.header()
			if err != nil {
				return nil, err
			}
			if cur != nil {
				cur.end = lineStart
			} else {
				doc.prologEnd = lineStart
			}
			cur = &section{name: name, span: span{start: lineStart, line: lx.line}}
			doc.sections = append(doc.sections, cur)
		default:
			if cur == nil {
				return nil, lx.errorf(int64(lx.pos), "content outside a section")
			}
			e, err := lx.entry()
			if err != nil {
				return nil, err
			}
			cur.items = append(cur.items, sectionItem{entry: e})
		}
	}

	if len(doc.sections) == 0 {
		return nil, &model.MalformedInputError{Format: model.FormatEDS, Line: 1, Offset: 0, Message: "no sections"}
	}
	doc.sections[len(doc.sections)-1].end = int64(len(raw))
	return doc, nil
}

func (lx *lexer) eof() bool { return lx.pos >= len(lx.raw) }

func (lx *lexer) errorf(offset int64, format string, args ...any) error {
	return &model.MalformedInputError{Format: model.FormatEDS, Line: lx.line, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

func (lx *lexer) skipBlank() {
	for !lx.eof() {
		switch lx.raw[lx.pos] {
		case '\n':
			lx.line++
		case ' ', '\t', '\r', '\f', '\v':
		default:
			return
		}
		lx.pos++
	}
}

// skipComment advances to the line break ending the comment.
func (lx *lexer) skipComment() {
	for !lx.eof() && lx.raw[lx.pos] != '\n' && lx.raw[lx.pos] != '\r' {
		lx.pos++
	}
}

func (lx *lexer) lineStart() int64 {
	return int64(bytes.LastIndexByte(lx.raw[:lx.pos], '\n') + 1)
}

func (lx *lexer) header() (string, error) {
	open := lx.pos
	lx.pos++
	for !lx.eof() && lx.raw[lx.pos] != ']' {
		if lx.raw[lx.pos] == '\n' {
			return "", lx.errorf(int64(open), "section header is missing ']'")
		}
		lx.pos++
	}
	if lx.eof() {
		return "", lx.errorf(int64(open), "section header is missing ']'")
	}
	name := strings.TrimSpace(string(lx.raw[open+1 : lx.pos]))
	lx.pos++
	if name == "" {
		return "", lx.errorf(int64(open), "empty section name")
	}
	return name, nil
}

func (lx *lexer) entry() (*entry, error) {
	e := &entry{span: span{start: int64(lx.pos), line: lx.line}}

	for !lx.eof() && lx.raw[lx.pos] != '=' {
		if c := lx.raw[lx.pos]; c == '\n' || c == ';' {
			return nil, lx.errorf(e.start, "entry is missing '='")
		}
		lx.pos++
	}
	if lx.eof() {
		return nil, lx.errorf(e.start, "entry is missing '='")
	}
	e.key = strings.TrimSpace(string(lx.raw[int(e.start):lx.pos]))
	if e.key == "" {
		return nil, lx.errorf(e.start, "entry without key")
	}
	lx.pos++

	var field strings.Builder
	depth := 0
	for {
		if lx.eof() {
			return nil, lx.errorf(e.start, "entry %s is not terminated by ';'", e.key)
		}
		c := lx.raw[lx.pos]
		switch {
		case c == '"':
			if err := lx.quoted(&field); err != nil {
				return nil, err
			}
			continue
		case c == '$':
			at := len(e.fields)
			if strings.TrimSpace(field.String()) == "" {
				at--
			}
			start := lx.pos
			lx.skipComment()
			e.notes = append(e.notes, note{field: at, text: strings.TrimRight(string(lx.raw[start:lx.pos]), " \t")})
			continue
		case c == '\n':
			lx.line++
			field.WriteByte(' ')
			if lx.nextLineIsHeader() {
				return nil, lx.errorf(e.start, "entry %s is not terminated by ';'", e.key)
			}
		case c == '{':
			depth++
			field.WriteByte(c)
		case c == '}':
			depth--
			field.WriteByte(c)
		case c == ',' && depth == 0:
			e.fields = append(e.fields, normalizeField(field.String()))
			field.Reset()
		case c == ';' && depth <= 0:
			e.fields = append(e.fields, normalizeField(field.String()))
			lx.pos++
			e.end = int64(lx.pos)
			return e, nil
		default:
			field.WriteByte(c)
		}
		lx.pos++
	}
}

// quoted copies a string literal, quotes and escapes included.
func (lx *lexer) quoted(field *strings.Builder) error {
	open := lx.pos
	field.WriteByte('"')
	lx.pos++
	for !lx.eof() {
		c := lx.raw[lx.pos]
		switch c {
		case '\\':
			if lx.pos+1 < len(lx.raw) && lx.raw[lx.pos+1] != '\n' {
				field.Write(lx.raw[lx.pos : lx.pos+2])
				lx.pos += 2
				continue
			}
		case '"':
			field.WriteByte('"')
			lx.pos++
			return nil
		case '\n':
			return lx.errorf(int64(open), "unterminated string")
		}
		field.WriteByte(c)
		lx.pos++
	}
	return lx.errorf(int64(open), "unterminated string")
}

func (lx *lexer) nextLineIsHeader() bool {
	for i := lx.pos + 1; i < len(lx.raw); i++ {
		switch lx.raw[i] {
		case ' ', '\t', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}

// normalizeField trims s and collapses whitespace runs outside string literals.
func normalizeField(s string) string {
	var b strings.Builder
	inString, escaped, space := false, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == ' ' || c == '\t' || c == '\r' {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}

// unquote returns the text of the string literals in s, concatenated. A
// field without literals is returned unchanged.
func unquote(s string) string {
	if !strings.Contains(s, `"`) {
		return s
	}
	var b strings.Builder
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			continue
		}
		switch {
		case c == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\'):
			b.WriteByte(s[i+1])
			i++
		case c == '"':
			inString = false
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
