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

// Package persistence stores device descriptions, their archived originals
// and the quality metrics derived from them.
package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// HistoryPolicy decides what happens to the metrics of a device description
// when the same device is imported again.
type HistoryPolicy string

const (
	// HistoryRetain keeps prior metrics as history. Each metric stays tied to
	// the source hash and parser version it was computed from.
	HistoryRetain HistoryPolicy = "retain"
	// HistoryDiscard deletes prior metrics in the re-import transaction.
	HistoryDiscard HistoryPolicy = "discard"
)

// ParseHistoryPolicy converts a configuration value into a HistoryPolicy.
// An empty value selects HistoryRetain.
func ParseHistoryPolicy(value string) (HistoryPolicy, error) {
	switch HistoryPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", HistoryRetain:
		return HistoryRetain, nil
	case HistoryDiscard:
		return HistoryDiscard, nil
	default:
		return "", fmt.Errorf("unknown metric history policy %q", value)
	}
}

// DeviceSummary is the listing view of a stored device description.
type DeviceSummary struct {
	ID           int64            `json:"id"`
	Format       model.FormatKind `json:"format"`
	VendorID     string           `json:"vendorId"`
	DeviceID     string           `json:"deviceId"`
	ProductName  string           `json:"productName,omitempty"`
	SourceHash   string           `json:"sourceHash"`
	ImportedAt   time.Time        `json:"importedAt"`
	LastMetricID int64            `json:"lastMetricId,omitempty"`
}

// Store is the storage contract of the repository.
type Store interface {
	// Import saves dd and archives raw in one transaction. An identified
	// device with the same format, vendor id and device id is replaced in
	// place; a device lacking either id is always stored as a new one.
	Import(ctx context.Context, dd *model.DeviceDescription, raw []byte) (*model.ArchivedOriginal, error)
	// Save persists the entity graph and returns its id.
	Save(ctx context.Context, dd *model.DeviceDescription) (int64, error)
	// Load rebuilds the entity graph of id.
	Load(ctx context.Context, id int64) (*model.DeviceDescription, error)
	// Archive stores raw as the current original of id.
	Archive(ctx context.Context, id int64, raw []byte) (*model.ArchivedOriginal, error)
	// LoadOriginal returns the current original of id with its content.
	LoadOriginal(ctx context.Context, id int64) (*model.ArchivedOriginal, error)
	List(ctx context.Context, filter model.DeviceFilter) ([]DeviceSummary, error)
	Delete(ctx context.Context, id int64) error

	// SaveMetric appends a metric and its diffs while holding the owning
	// device row.
	SaveMetric(ctx context.Context, m *model.QualityMetric) (int64, error)
	LatestMetric(ctx context.Context, deviceID int64) (*model.QualityMetric, error)
	Metric(ctx context.Context, metricID int64) (*model.QualityMetric, error)
	Diffs(ctx context.Context, metricID int64) ([]model.DiffDetail, error)
}
