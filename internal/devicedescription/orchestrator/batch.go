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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/logger"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// finishedJobRetention is how long finished jobs stay queryable.
const finishedJobRetention = 24 * time.Hour

// JobState is the lifecycle state of a batch analysis job.
type JobState string

// Job states.
const (
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobCancelled JobState = "cancelled"
)

// ItemStatus is the outcome of one device in a batch job.
type ItemStatus string

// Item statuses.
const (
	ItemPending   ItemStatus = "pending"
	ItemCompleted ItemStatus = "completed"
	ItemFailed    ItemStatus = "failed"
	ItemSkipped   ItemStatus = "skipped"
)

// JobItem is the per device result of a batch job.
type JobItem struct {
	DeviceDescriptionID int64      `json:"deviceDescriptionId"`
	Status              ItemStatus `json:"status"`
	MetricID            int64      `json:"metricId,omitempty"`
	OverallScore        float64    `json:"overallScore,omitempty"`
	Error               string     `json:"error,omitempty"`
}

// JobStatus is a snapshot of a batch job.
type JobStatus struct {
	ID         string     `json:"id"`
	State      JobState   `json:"state"`
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Items      []JobItem  `json:"items"`
}

type job struct {
	mu     sync.Mutex
	status JobStatus
	cancel context.CancelFunc
	done   chan struct{}
}

func (j *job) snapshot() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := j.status
	s.Items = append([]JobItem(nil), j.status.Items...)
	if j.status.FinishedAt != nil {
		at := *j.status.FinishedAt
		s.FinishedAt = &at
	}
	return s
}

func (j *job) record(i int, item JobItem) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status.Items[i] = item
	switch item.Status {
	case ItemCompleted:
		j.status.Completed++
	case ItemFailed:
		j.status.Failed++
	case ItemSkipped:
		j.status.Skipped++
	}
}

// SubmitAnalyzeAll starts an asynchronous job that analyzes every device
// description matching filter and returns its first snapshot.
func (o *Orchestrator) SubmitAnalyzeAll(ctx context.Context, filter model.DeviceFilter) (JobStatus, error) {
	devices, err := o.store.List(ctx, filter)
	if err != nil {
		return JobStatus{}, err
	}

	j := &job{
		status: JobStatus{
			ID:        uuid.NewString(),
			State:     JobRunning,
			Total:     len(devices),
			CreatedAt: time.Now().UTC(),
			Items:     make([]JobItem, len(devices)),
		},
		done: make(chan struct{}),
	}
	ids := make([]int64, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
		j.status.Items[i] = JobItem{DeviceDescriptionID: d.ID, Status: ItemPending}
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	j.cancel = cancel

	o.jobsMu.Lock()
	o.pruneJobsLocked()
	o.jobs[j.status.ID] = j
	o.jobsMu.Unlock()

	logger.LogInfo(fmt.Sprintf("analysis job %s started for %d device descriptions", j.status.ID, len(ids)))
	go o.runJob(jobCtx, j, ids)
	return j.snapshot(), nil
}

// runJob analyzes ids with at most o.workers analyses in flight. After
// cancellation items that have not started are skipped; running analyses
// complete.
func (o *Orchestrator) runJob(ctx context.Context, j *job, ids []int64) {
	defer close(j.done)
	defer j.cancel()

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, id := range ids {
		i, id := i, id
		if ctx.Err() != nil {
			j.record(i, JobItem{DeviceDescriptionID: id, Status: ItemSkipped})
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				j.record(i, JobItem{DeviceDescriptionID: id, Status: ItemSkipped})
				return nil
			}
			j.record(i, o.analyzeItem(ctx, id))
			return nil
		})
	}
	_ = g.Wait()

	j.mu.Lock()
	now := time.Now().UTC()
	j.status.FinishedAt = &now
	j.status.State = JobCompleted
	if ctx.Err() != nil {
		j.status.State = JobCancelled
	}
	summary := fmt.Sprintf("analysis job %s %s: %d completed, %d failed, %d skipped",
		j.status.ID, j.status.State, j.status.Completed, j.status.Failed, j.status.Skipped)
	j.mu.Unlock()
	logger.LogInfo(summary)
}

func (o *Orchestrator) analyzeItem(ctx context.Context, id int64) JobItem {
	item := JobItem{DeviceDescriptionID: id}
	metric, err := o.analyzeWait(ctx, id)
	switch {
	case err == nil:
		item.Status = ItemCompleted
		item.MetricID = metric.ID
		item.OverallScore = metric.OverallScore
	case errors.Is(err, context.Canceled):
		item.Status = ItemSkipped
	default:
		item.Status = ItemFailed
		item.Error = err.Error()
		if metric != nil {
			item.MetricID = metric.ID
		}
	}
	return item
}

// Job returns a snapshot of job id.
func (o *Orchestrator) Job(id string) (JobStatus, error) {
	j, err := o.job(id)
	if err != nil {
		return JobStatus{}, err
	}
	return j.snapshot(), nil
}

// CancelJob requests cancellation of job id and returns its snapshot.
// Cancelling a finished job has no effect.
func (o *Orchestrator) CancelJob(id string) (JobStatus, error) {
	j, err := o.job(id)
	if err != nil {
		return JobStatus{}, err
	}
	j.cancel()
	logger.LogInfo("analysis job " + id + " cancellation requested")
	return j.snapshot(), nil
}

// WaitJob blocks until job id has finished or ctx ends.
func (o *Orchestrator) WaitJob(ctx context.Context, id string) (JobStatus, error) {
	j, err := o.job(id)
	if err != nil {
		return JobStatus{}, err
	}
	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return j.snapshot(), ctx.Err()
	}
}

func (o *Orchestrator) job(id string) (*job, error) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	j, ok := o.jobs[id]
	if !ok {
		return nil, common.NewErrNotFound("analysis job " + id)
	}
	return j, nil
}

func (o *Orchestrator) pruneJobsLocked() {
	cutoff := time.Now().Add(-finishedJobRetention)
	for id, j := range o.jobs {
		s := j.snapshot()
		if s.FinishedAt != nil && s.FinishedAt.Before(cutoff) {
			delete(o.jobs, id)
		}
	}
}
