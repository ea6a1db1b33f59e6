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

// Package scoring turns a diff result into the sub-scores of a quality metric.
package scoring

import (
	"math"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/diff"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// Weights of the sub-scores in the overall score.
const (
	StructuralWeight = 0.40
	AttributeWeight  = 0.35
	ValueWeight      = 0.25
)

// Counts are the diff totals the scores are computed from. INFO details are
// not counted.
type Counts struct {
	MissingElements     int
	ExtraElements       int
	MissingAttributes   int
	IncorrectAttributes int
	ValueChanges        int
}

// Tally counts details by kind.
func Tally(details []model.DiffDetail) Counts {
	var c Counts
	for _, d := range details {
		if d.Severity == model.SeverityInfo {
			continue
		}
		switch d.Kind {
		case model.DiffMissingElement:
			c.MissingElements++
		case model.DiffExtraElement:
			c.ExtraElements++
		case model.DiffMissingAttribute:
			c.MissingAttributes++
		case model.DiffIncorrectAttribute:
			c.IncorrectAttributes++
		case model.DiffValueChange:
			c.ValueChanges++
		}
	}
	return c
}

// Scores of one run, each in [0, 100] and rounded to two decimals.
type Scores struct {
	Overall    float64
	Structural float64
	Attribute  float64
	Value      float64
	DataLoss   float64
}

// Score computes the sub-scores for an original with the given number of
// elements and attributes. An empty original scores 100.
func Score(elements, attributes int, c Counts) Scores {
	s := Scores{
		Structural: ratioScore(c.MissingElements+c.ExtraElements, elements),
		Attribute:  ratioScore(c.MissingAttributes+c.IncorrectAttributes, attributes),
		Value:      ratioScore(c.ValueChanges, elements),
	}
	s.Overall = clamp(StructuralWeight*s.Structural + AttributeWeight*s.Attribute + ValueWeight*s.Value)
	if total := elements + attributes; total > 0 {
		s.DataLoss = clamp(100 * float64(c.MissingElements+c.MissingAttributes) / float64(total))
	}

	s.Overall = round(s.Overall)
	s.Structural = round(s.Structural)
	s.Attribute = round(s.Attribute)
	s.Value = round(s.Value)
	s.DataLoss = round(s.DataLoss)
	return s
}

// Apply scores res and writes the result into m.
func Apply(m *model.QualityMetric, res *diff.Result) {
	s := Score(res.OriginalElements, res.OriginalAttributes, Tally(res.Details))
	m.Status = model.MetricCompleted
	m.OverallScore = s.Overall
	m.StructuralScore = s.Structural
	m.AttributeScore = s.Attribute
	m.ValueScore = s.Value
	m.DataLossPercentage = s.DataLoss
	m.OriginalElements = res.OriginalElements
	m.OriginalAttributes = res.OriginalAttributes
	m.ReconstructedElements = res.ReconstructedElements
	m.ReconstructedAttributes = res.ReconstructedAttributes
	m.Diffs = res.Details
}

func ratioScore(faults, total int) float64 {
	if total == 0 {
		return 100
	}
	return clamp(100 * (1 - float64(faults)/float64(total)))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
