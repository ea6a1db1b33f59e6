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

// Package orchestrator runs the import and fidelity analysis pipeline:
// parse, store, reconstruct, diff and score.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/codec"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/logger"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/persistence"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/scoring"
)

// DefaultWorkers bounds batch analysis when no worker count is configured.
const DefaultWorkers = 4

// Orchestrator coordinates the pipeline over a Store. At most one analysis
// runs per device description at a time.
type Orchestrator struct {
	store   persistence.Store
	limits  model.ParseLimits
	workers int
	locks   *keyedMutex

	jobsMu sync.Mutex
	jobs   map[string]*job
}

// New creates an orchestrator. workers bounds the concurrency of batch jobs.
func New(store persistence.Store, limits model.ParseLimits, workers int) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Orchestrator{
		store:   store,
		limits:  limits.Normalize(),
		workers: workers,
		locks:   newKeyedMutex(),
		jobs:    make(map[string]*job),
	}
}

// ImportResult is the outcome of a successful import.
type ImportResult struct {
	DeviceDescription *model.DeviceDescription `json:"deviceDescription"`
	Archive           *model.ArchivedOriginal  `json:"archive"`
	Diagnostics       model.Diagnostics        `json:"diagnostics"`
}

// Import parses raw and stores the entity graph together with the archived
// original. An empty kind is detected from the content. Nothing is stored
// when the parse fails.
func (o *Orchestrator) Import(ctx context.Context, raw []byte, kind model.FormatKind) (*ImportResult, error) {
	if kind == "" {
		kind = codec.Detect(raw)
	}
	dd, diags, err := codec.Parse(raw, kind, o.limits)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		logger.LogDebug(fmt.Sprintf("import %s %s/%s: %s", kind, dd.VendorID, dd.DeviceID, d))
	}
	ao, err := o.store.Import(ctx, dd, raw)
	if err != nil {
		return nil, err
	}
	logger.LogInfo(fmt.Sprintf("imported %s device description %d (vendor %s, device %s, %d bytes)", kind, dd.ID, dd.VendorID, dd.DeviceID, ao.Size))
	return &ImportResult{DeviceDescription: dd, Archive: ao, Diagnostics: diags}, nil
}

// Reconstruct regenerates the text of a stored device description from its
// entity graph alone.
func (o *Orchestrator) Reconstruct(ctx context.Context, id int64) (string, model.FormatKind, error) {
	dd, err := o.store.Load(ctx, id)
	if err != nil {
		return "", "", err
	}
	text, err := codec.Reconstruct(dd)
	if err != nil {
		return "", "", err
	}
	return text, dd.Format, nil
}

// Analyze reconstructs device description id, compares the reconstruction
// with the archived original and stores the resulting metric. It returns
// model.ErrAnalysisInProgress when an analysis of id is already running.
//
// A reconstruction that cannot be compared is stored as a failed metric and
// reported as *model.AnalysisFailedError together with that metric.
func (o *Orchestrator) Analyze(ctx context.Context, id int64) (*model.QualityMetric, error) {
	if !o.locks.TryLock(id) {
		return nil, model.ErrAnalysisInProgress
	}
	defer o.locks.Unlock(id)
	return o.analyze(ctx, id)
}

// analyzeWait is Analyze for batch workers: it waits for a running analysis
// of the same device instead of rejecting.
func (o *Orchestrator) analyzeWait(ctx context.Context, id int64) (*model.QualityMetric, error) {
	if err := o.locks.Lock(ctx, id); err != nil {
		return nil, err
	}
	defer o.locks.Unlock(id)
	return o.analyze(context.WithoutCancel(ctx), id)
}

func (o *Orchestrator) analyze(ctx context.Context, id int64) (*model.QualityMetric, error) {
	original, err := o.store.LoadOriginal(ctx, id)
	if err != nil {
		return nil, err
	}
	dd, err := o.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	metric := &model.QualityMetric{
		DeviceDescriptionID: id,
		ParserVersion:       model.ParserVersion,
		SourceHash:          original.ContentHash,
	}

	text, err := codec.Reconstruct(dd)
	if err != nil {
		return o.fail(ctx, metric, err)
	}
	res, err := codec.Diff(original.Content, []byte(text), original.Format, o.limits)
	if err != nil {
		return o.fail(ctx, metric, err)
	}

	scoring.Apply(metric, res)
	if _, err := o.store.SaveMetric(ctx, metric); err != nil {
		return nil, err
	}
	logger.LogInfo(fmt.Sprintf("analyzed device description %d: overall %.2f, %d diffs", id, metric.OverallScore, len(metric.Diffs)))
	return metric, nil
}

func (o *Orchestrator) fail(ctx context.Context, metric *model.QualityMetric, cause error) (*model.QualityMetric, error) {
	metric.Status = model.MetricFailed
	metric.FailureReason = cause.Error()
	if _, err := o.store.SaveMetric(ctx, metric); err != nil {
		return nil, err
	}
	logger.LogAnalysisFailure(metric.DeviceDescriptionID, metric.ID, cause)
	return metric, &model.AnalysisFailedError{MetricID: metric.ID, Err: cause}
}
