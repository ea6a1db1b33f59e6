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

// Package scheduler runs background scans that analyze every device
// description without a quality metric.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/logger"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/orchestrator"
)

// JobSubmitter starts and inspects batch analysis jobs.
type JobSubmitter interface {
	SubmitAnalyzeAll(ctx context.Context, filter model.DeviceFilter) (orchestrator.JobStatus, error)
	Job(id string) (orchestrator.JobStatus, error)
}

// Config controls when scans run. A zero Interval disables periodic scans.
type Config struct {
	ScanOnStartup bool
	Interval      time.Duration
}

// Scheduler submits "analyze all unanalyzed" jobs. A scan is skipped while
// the job of the previous scan is still running.
type Scheduler struct {
	jobs JobSubmitter
	cfg  Config

	mu      sync.Mutex
	lastJob string
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler. Nothing runs until Start.
func New(jobs JobSubmitter, cfg Config) *Scheduler {
	return &Scheduler{jobs: jobs, cfg: cfg}
}

// Start launches the scan loop. It is a no-op when neither a start-up scan
// nor an interval is configured, or when the loop is already running.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.ScanOnStartup && s.cfg.Interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop ends the scan loop and waits for it. Jobs already submitted keep
// running in the orchestrator.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	logger.LogInfo("analysis scheduler is started")
	defer logger.LogInfo("analysis scheduler is stopped")

	if s.cfg.ScanOnStartup {
		s.scan(ctx)
	}
	if s.cfg.Interval <= 0 {
		return
	}

	tk := time.NewTicker(s.cfg.Interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			s.scan(ctx)
		}
	}
}

func (s *Scheduler) scan(ctx context.Context) {
	if _, _, err := s.Scan(ctx); err != nil {
		logger.LogError("scheduled scan", err)
	}
}

// Scan submits one job for all unanalyzed device descriptions. submitted is
// false when the previous scan job is still running.
func (s *Scheduler) Scan(ctx context.Context) (job orchestrator.JobStatus, submitted bool, err error) {
	s.mu.Lock()
	last := s.lastJob
	s.mu.Unlock()

	if last != "" {
		prev, err := s.jobs.Job(last)
		if err == nil && prev.State == orchestrator.JobRunning {
			logger.LogDebug(fmt.Sprintf("scan skipped, job %s still running (%d/%d)", last, prev.Completed+prev.Failed+prev.Skipped, prev.Total))
			return prev, false, nil
		}
	}

	job, err = s.jobs.SubmitAnalyzeAll(ctx, model.DeviceFilter{Unanalyzed: true})
	if err != nil {
		return orchestrator.JobStatus{}, false, err
	}
	s.mu.Lock()
	s.lastJob = job.ID
	s.mu.Unlock()
	return job, true, nil
}
