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

// Package api implements the business logic behind the device description
// repository endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common/model"
	ddmodel "github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/orchestrator"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/persistence"
	openapi "github.com/eclipse-basyx/basyx-go-devicedescription/pkg/devicedescriptionapi/go"
)

const componentName = "DDREPO"

// Thresholds are the acceptance limits published to collaborators. The
// repository itself never evaluates them.
type Thresholds struct {
	MinOverallScore       float64 `json:"minOverallScore"`
	MinStructuralScore    float64 `json:"minStructuralScore"`
	MaxDataLossPercentage float64 `json:"maxDataLossPercentage"`
}

// MetricResponse is a quality metric together with its severity buckets.
type MetricResponse struct {
	*ddmodel.QualityMetric
	SeverityCounts map[ddmodel.Severity]int `json:"severityCounts"`
}

// DeviceDescriptionRepositoryAPIAPIService implements the DeviceDescriptionRepositoryAPIAPIServicer.
type DeviceDescriptionRepositoryAPIAPIService struct {
	orchestrator *orchestrator.Orchestrator
	store        persistence.Store
	thresholds   Thresholds
}

// NewDeviceDescriptionRepositoryAPIAPIService creates a default api service
func NewDeviceDescriptionRepositoryAPIAPIService(o *orchestrator.Orchestrator, store persistence.Store, thresholds Thresholds) *DeviceDescriptionRepositoryAPIAPIService {
	return &DeviceDescriptionRepositoryAPIAPIService{
		orchestrator: o,
		store:        store,
		thresholds:   thresholds,
	}
}

func logFailure(operation string, err error) {
	log.Printf("🧩 [%s] Error in %s: %v", componentName, operation, err)
}

func parseFilter(format string, unanalyzed bool) (ddmodel.DeviceFilter, error) {
	filter := ddmodel.DeviceFilter{Unanalyzed: unanalyzed}
	if format != "" {
		kind, err := ddmodel.ParseFormatKind(format)
		if err != nil {
			return filter, common.NewErrBadRequest(err.Error())
		}
		filter.Format = kind
	}
	return filter, nil
}

// ImportDeviceDescription - Parses and stores a device description file
func (s *DeviceDescriptionRepositoryAPIAPIService) ImportDeviceDescription(ctx context.Context, format string, content []byte) (model.ImplResponse, error) {
	var kind ddmodel.FormatKind
	if format != "" {
		var err error
		kind, err = ddmodel.ParseFormatKind(format)
		if err != nil {
			return common.NewErrorResponse(err, http.StatusBadRequest, componentName, "ImportDeviceDescription", "Format"), nil
		}
	}
	if len(content) == 0 {
		err := common.NewErrBadRequest("DDREPO-IMPORT-EMPTYBODY request body is empty")
		return common.NewErrorResponse(err, http.StatusBadRequest, componentName, "ImportDeviceDescription", "EmptyBody"), nil
	}

	result, err := s.orchestrator.Import(ctx, content, kind)
	if err != nil {
		logFailure("ImportDeviceDescription", err)
		switch {
		case ddmodel.IsMalformedInput(err):
			return common.NewErrorResponse(err, http.StatusBadRequest, componentName, "ImportDeviceDescription", "MalformedInput"), nil
		case errors.Is(err, ddmodel.ErrUnsupportedFormat):
			return common.NewErrorResponse(err, http.StatusBadRequest, componentName, "ImportDeviceDescription", "Format"), nil
		case common.IsErrConflict(err):
			return common.NewErrorResponse(err, http.StatusConflict, componentName, "ImportDeviceDescription", "Conflict"), nil
		default:
			return common.NewErrorResponse(err, http.StatusInternalServerError, componentName, "ImportDeviceDescription", "Unhandled"), err
		}
	}
	return model.Response(http.StatusCreated, result), nil
}

// GetAllDeviceDescriptions - Lists stored device descriptions
func (s *DeviceDescriptionRepositoryAPIAPIService) GetAllDeviceDescriptions(ctx context.Context, format string, unanalyzed bool) (model.ImplResponse, error) {
	filter, err := parseFilter(format, unanalyzed)
	if err != nil {
		return common.NewErrorResponse(err, http.StatusBadRequest, componentName, "GetAllDeviceDescriptions", "BadRequest"), nil
	}
	devices, err := s.store.List(ctx, filter)
	if err != nil {
		logFailure("GetAllDeviceDescriptions", err)
		return common.NewErrorResponse(err, http.StatusInternalServerError, componentName, "GetAllDeviceDescriptions", "Unhandled"), err
	}
	return model.Response(http.StatusOK, devices), nil
}

// GetDeviceDescriptionByID - Returns the entity graph of a device description
func (s *DeviceDescriptionRepositoryAPIAPIService) GetDeviceDescriptionByID(ctx context.Context, id int64) (model.ImplResponse, error) {
	dd, err := s.store.Load(ctx, id)
	if err != nil {
		return s.readFailure("GetDeviceDescriptionByID", err)
	}
	return model.Response(http.StatusOK, dd), nil
}

// DeleteDeviceDescriptionByID - Deletes a device description with its archive and metrics
func (s *DeviceDescriptionRepositoryAPIAPIService) DeleteDeviceDescriptionByID(ctx context.Context, id int64) (model.ImplResponse, error) {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.readFailure("DeleteDeviceDescriptionByID", err)
	}
	return model.Response(http.StatusNoContent, nil), nil
}

// GetReconstruction - Regenerates the text of a device description from its entity graph
func (s *DeviceDescriptionRepositoryAPIAPIService) GetReconstruction(ctx context.Context, id int64) (model.ImplResponse, error) {
	text, kind, err := s.orchestrator.Reconstruct(ctx, id)
	if err != nil {
		return s.readFailure("GetReconstruction", err)
	}
	return model.Response(http.StatusOK, openapi.FileDownload{
		Content:     []byte(text),
		ContentType: contentType(kind),
		Filename:    fmt.Sprintf("device-description-%d%s", id, extension(kind)),
	}), nil
}

// GetOriginal - Returns the archived original bytes
func (s *DeviceDescriptionRepositoryAPIAPIService) GetOriginal(ctx context.Context, id int64) (model.ImplResponse, error) {
	original, err := s.store.LoadOriginal(ctx, id)
	if err != nil {
		if ddmodel.IsPrerequisiteMissing(err) {
			return common.NewErrorResponse(err, http.StatusNotFound, componentName, "GetOriginal", "NoArchive"), nil
		}
		return s.readFailure("GetOriginal", err)
	}
	return model.Response(http.StatusOK, openapi.FileDownload{
		Content:     original.Content,
		ContentType: contentType(original.Format),
		Filename:    fmt.Sprintf("original-%d%s", id, extension(original.Format)),
	}), nil
}

// AnalyzeDeviceDescription - Runs a fidelity analysis and returns the new metric
func (s *DeviceDescriptionRepositoryAPIAPIService) AnalyzeDeviceDescription(ctx context.Context, id int64) (model.ImplResponse, error) {
	metric, err := s.orchestrator.Analyze(ctx, id)
	if err != nil {
		logFailure("AnalyzeDeviceDescription", err)
		var failed *ddmodel.AnalysisFailedError
		switch {
		case errors.Is(err, ddmodel.ErrAnalysisInProgress):
			return common.NewErrorResponse(err, http.StatusConflict, componentName, "AnalyzeDeviceDescription", "InProgress"), nil
		case ddmodel.IsPrerequisiteMissing(err):
			return common.NewErrorResponse(err, http.StatusPreconditionFailed, componentName, "AnalyzeDeviceDescription", "PrerequisiteMissing"), nil
		case errors.As(err, &failed):
			return common.NewErrorResponse(err, http.StatusUnprocessableEntity, componentName, "AnalyzeDeviceDescription", "AnalysisFailed"), nil
		case common.IsErrNotFound(err):
			return common.NewErrorResponse(err, http.StatusNotFound, componentName, "AnalyzeDeviceDescription", "NotFound"), nil
		default:
			return common.NewErrorResponse(err, http.StatusInternalServerError, componentName, "AnalyzeDeviceDescription", "Unhandled"), err
		}
	}
	return model.Response(http.StatusCreated, MetricResponse{
		QualityMetric:  metric,
		SeverityCounts: ddmodel.SeverityCounts(metric.Diffs),
	}), nil
}

// GetLatestQualityMetric - Returns the most recent metric of a device description
func (s *DeviceDescriptionRepositoryAPIAPIService) GetLatestQualityMetric(ctx context.Context, id int64) (model.ImplResponse, error) {
	metric, err := s.store.LatestMetric(ctx, id)
	if err != nil {
		return s.readFailure("GetLatestQualityMetric", err)
	}
	return s.metricResponse(ctx, "GetLatestQualityMetric", metric)
}

// GetQualityMetricByID - Returns a specific metric
func (s *DeviceDescriptionRepositoryAPIAPIService) GetQualityMetricByID(ctx context.Context, metricID int64) (model.ImplResponse, error) {
	metric, err := s.store.Metric(ctx, metricID)
	if err != nil {
		return s.readFailure("GetQualityMetricByID", err)
	}
	return s.metricResponse(ctx, "GetQualityMetricByID", metric)
}

func (s *DeviceDescriptionRepositoryAPIAPIService) metricResponse(ctx context.Context, operation string, metric *ddmodel.QualityMetric) (model.ImplResponse, error) {
	diffs, err := s.store.Diffs(ctx, metric.ID)
	if err != nil {
		return s.readFailure(operation, err)
	}
	return model.Response(http.StatusOK, MetricResponse{
		QualityMetric:  metric,
		SeverityCounts: ddmodel.SeverityCounts(diffs),
	}), nil
}

// GetDiffs - Returns the diff details of a metric, optionally filtered by severity
func (s *DeviceDescriptionRepositoryAPIAPIService) GetDiffs(ctx context.Context, metricID int64, severity string) (model.ImplResponse, error) {
	var want ddmodel.Severity
	if severity != "" {
		want = ddmodel.Severity(strings.ToUpper(severity))
		known := false
		for _, sev := range ddmodel.Severities {
			known = known || sev == want
		}
		if !known {
			err := common.NewErrBadRequest("DDREPO-GETDIFFS-SEVERITY unknown severity " + severity)
			return common.NewErrorResponse(err, http.StatusBadRequest, componentName, "GetDiffs", "Severity"), nil
		}
	}

	diffs, err := s.store.Diffs(ctx, metricID)
	if err != nil {
		return s.readFailure("GetDiffs", err)
	}
	if want != "" {
		filtered := diffs[:0]
		for _, d := range diffs {
			if d.Severity == want {
				filtered = append(filtered, d)
			}
		}
		diffs = filtered
	}
	return model.Response(http.StatusOK, diffs), nil
}

// PostAnalysisJob - Starts an asynchronous analysis of all matching device descriptions
func (s *DeviceDescriptionRepositoryAPIAPIService) PostAnalysisJob(ctx context.Context, format string, unanalyzed bool) (model.ImplResponse, error) {
	filter, err := parseFilter(format, unanalyzed)
	if err != nil {
		return common.NewErrorResponse(err, http.StatusBadRequest, componentName, "PostAnalysisJob", "BadRequest"), nil
	}
	job, err := s.orchestrator.SubmitAnalyzeAll(ctx, filter)
	if err != nil {
		logFailure("PostAnalysisJob", err)
		return common.NewErrorResponse(err, http.StatusInternalServerError, componentName, "PostAnalysisJob", "Unhandled"), err
	}
	return model.Response(http.StatusAccepted, job), nil
}

// GetAnalysisJob - Returns the progress of an analysis job
func (s *DeviceDescriptionRepositoryAPIAPIService) GetAnalysisJob(_ context.Context, jobID string) (model.ImplResponse, error) {
	job, err := s.orchestrator.Job(jobID)
	if err != nil {
		return s.readFailure("GetAnalysisJob", err)
	}
	return model.Response(http.StatusOK, job), nil
}

// CancelAnalysisJob - Requests cancellation of an analysis job
func (s *DeviceDescriptionRepositoryAPIAPIService) CancelAnalysisJob(_ context.Context, jobID string) (model.ImplResponse, error) {
	job, err := s.orchestrator.CancelJob(jobID)
	if err != nil {
		return s.readFailure("CancelAnalysisJob", err)
	}
	return model.Response(http.StatusAccepted, job), nil
}

// GetThresholds - Returns the configured acceptance thresholds
func (s *DeviceDescriptionRepositoryAPIAPIService) GetThresholds(_ context.Context) (model.ImplResponse, error) {
	return model.Response(http.StatusOK, s.thresholds), nil
}

func (s *DeviceDescriptionRepositoryAPIAPIService) readFailure(operation string, err error) (model.ImplResponse, error) {
	logFailure(operation, err)
	switch {
	case common.IsErrNotFound(err):
		return common.NewErrorResponse(err, http.StatusNotFound, componentName, operation, "NotFound"), nil
	case common.IsErrBadRequest(err):
		return common.NewErrorResponse(err, http.StatusBadRequest, componentName, operation, "BadRequest"), nil
	default:
		return common.NewErrorResponse(err, http.StatusInternalServerError, componentName, operation, "Unhandled"), err
	}
}

func contentType(kind ddmodel.FormatKind) string {
	if kind == ddmodel.FormatIODD {
		return "application/xml"
	}
	return "text/plain; charset=utf-8"
}

func extension(kind ddmodel.FormatKind) string {
	if kind == ddmodel.FormatIODD {
		return ".xml"
	}
	return ".eds"
}
