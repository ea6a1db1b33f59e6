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

package model

import "time"

// ArchivedOriginal is the immutable byte copy of an uploaded file. It is
// content addressed by ContentHash and never updated after creation.
type ArchivedOriginal struct {
	ID                  int64      `json:"id"`
	DeviceDescriptionID int64      `json:"deviceDescriptionId"`
	ContentHash         string     `json:"contentHash"`
	Format              FormatKind `json:"format"`
	ParserVersion       string     `json:"parserVersion"`
	Size                int64      `json:"size"`
	StorageBackend      string     `json:"storageBackend"`
	CreatedAt           time.Time  `json:"createdAt"`
	Content             []byte     `json:"-"`
}

// DiffKind classifies a discrepancy between original and reconstruction.
type DiffKind string

// Diff kinds.
const (
	DiffMissingElement     DiffKind = "missing-element"
	DiffExtraElement       DiffKind = "extra-element"
	DiffMissingAttribute   DiffKind = "missing-attribute"
	DiffIncorrectAttribute DiffKind = "incorrect-attribute"
	DiffValueChange        DiffKind = "value-change"
)

// Severity of a diff detail.
type Severity string

// Severities, most severe first.
const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Severities lists all severities in bucket order.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// DiffDetail is one classified discrepancy. It belongs to exactly one metric.
type DiffDetail struct {
	ID       int64    `json:"id,omitempty"`
	MetricID int64    `json:"metricId,omitempty"`
	Ordinal  int      `json:"ordinal"`
	Kind     DiffKind `json:"kind"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Expected string   `json:"expected,omitempty"`
	Actual   string   `json:"actual,omitempty"`
}

// MetricStatus tells a scored run apart from a run that could not compare.
type MetricStatus string

// Metric statuses.
const (
	MetricCompleted MetricStatus = "completed"
	MetricFailed    MetricStatus = "failed"
)

// QualityMetric is the result of one analysis run. Rows are append only.
type QualityMetric struct {
	ID                      int64        `json:"id"`
	DeviceDescriptionID     int64        `json:"deviceDescriptionId"`
	Status                  MetricStatus `json:"status"`
	FailureReason           string       `json:"failureReason,omitempty"`
	OverallScore            float64      `json:"overallScore"`
	StructuralScore         float64      `json:"structuralScore"`
	AttributeScore          float64      `json:"attributeScore"`
	ValueScore              float64      `json:"valueScore"`
	DataLossPercentage      float64      `json:"dataLossPercentage"`
	OriginalElements        int          `json:"originalElements"`
	ReconstructedElements   int          `json:"reconstructedElements"`
	OriginalAttributes      int          `json:"originalAttributes"`
	ReconstructedAttributes int          `json:"reconstructedAttributes"`
	ParserVersion           string       `json:"parserVersion"`
	SourceHash              string       `json:"sourceHash"`
	CreatedAt               time.Time    `json:"createdAt"`

	Diffs []DiffDetail `json:"-"`
}

// SeverityCounts buckets diffs by severity.
func SeverityCounts(diffs []DiffDetail) map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		counts[s] = 0
	}
	for _, d := range diffs {
		counts[d.Severity]++
	}
	return counts
}
