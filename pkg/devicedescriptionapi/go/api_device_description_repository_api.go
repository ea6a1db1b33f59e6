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

package openapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// DefaultMaxUploadBytes bounds an import request when no limit is configured.
const DefaultMaxUploadBytes int64 = 32 << 20

// DeviceDescriptionRepositoryAPIAPIController binds http requests to an api service and writes the service results to the http response
type DeviceDescriptionRepositoryAPIAPIController struct {
	service        DeviceDescriptionRepositoryAPIAPIServicer
	errorHandler   ErrorHandler
	contextPath    string
	maxUploadBytes int64
}

// DeviceDescriptionRepositoryAPIAPIOption for how the controller is set up.
type DeviceDescriptionRepositoryAPIAPIOption func(*DeviceDescriptionRepositoryAPIAPIController)

// WithDeviceDescriptionRepositoryAPIAPIErrorHandler inject ErrorHandler into controller
func WithDeviceDescriptionRepositoryAPIAPIErrorHandler(h ErrorHandler) DeviceDescriptionRepositoryAPIAPIOption {
	return func(c *DeviceDescriptionRepositoryAPIAPIController) {
		c.errorHandler = h
	}
}

// WithMaxUploadBytes limits the size of an imported document
func WithMaxUploadBytes(n int64) DeviceDescriptionRepositoryAPIAPIOption {
	return func(c *DeviceDescriptionRepositoryAPIAPIController) {
		if n > 0 {
			c.maxUploadBytes = n
		}
	}
}

// NewDeviceDescriptionRepositoryAPIAPIController creates a default api controller
func NewDeviceDescriptionRepositoryAPIAPIController(s DeviceDescriptionRepositoryAPIAPIServicer, contextPath string, opts ...DeviceDescriptionRepositoryAPIAPIOption) *DeviceDescriptionRepositoryAPIAPIController {
	controller := &DeviceDescriptionRepositoryAPIAPIController{
		service:        s,
		errorHandler:   DefaultErrorHandler,
		contextPath:    contextPath,
		maxUploadBytes: DefaultMaxUploadBytes,
	}

	for _, opt := range opts {
		opt(controller)
	}

	return controller
}

// Routes returns all the api routes for the DeviceDescriptionRepositoryAPIAPIController
func (c *DeviceDescriptionRepositoryAPIAPIController) Routes() Routes {
	return Routes{
		"ImportDeviceDescription": Route{
			strings.ToUpper("Post"),
			c.contextPath + "/device-descriptions",
			c.ImportDeviceDescription,
		},
		"GetAllDeviceDescriptions": Route{
			strings.ToUpper("Get"),
			c.contextPath + "/device-descriptions",
			c.GetAllDeviceDescriptions,
		},
		"GetDeviceDescriptionById": Route{
			strings.ToUpper("Get"),
			c.contextPath + "/device-descriptions/{id}",
			c.GetDeviceDescriptionByID,
		},
		"DeleteDeviceDescriptionById": Route{
			strings.ToUpper("Delete"),
			c.contextPath + "/device-descriptions/{id}",
			c.DeleteDeviceDescriptionByID,
		},
		"GetReconstruction": Route{
			strings.ToUpper("Get"),
			c.contextPath + "/device-descriptions/{id}/reconstruction",
			c.GetReconstruction,
		},
		"GetOriginal": Route{
			strings.ToUpper("Get"),
			c.contextPath + "/device-descriptions/{id}/original",
			c.GetOriginal,
		},
		"AnalyzeDeviceDescription": Route{
			strings.ToUpper("Post"),
			c.contextPath + "/device-descriptions/{id}/analyses",
			c.AnalyzeDeviceDescription,
		},
		"GetLatestQualityMetric": Route{
			strings.ToUpper("Get"),
			c.contextPath + "/device-descriptions/{id}/quality-metrics/latest",
			c.GetLatestQualityMetric,
		},
		"GetQualityMetricById": Route{
			strings.ToUpper("Get"),
			c.contextPath + "/quality-metrics/{metricId}",
			c.GetQualityMetricByID,
		},
		"GetDiffs": Route{
			strings.ToUpper("Get"),
			c.contextPath + "/quality-metrics/{metricId}/diffs",
			c.GetDiffs,
		},
		"PostAnalysisJob": Route{
			strings.ToUpper("Post"),
			c.contextPath + "/analysis-jobs",
			c.PostAnalysisJob,
		},
		"GetAnalysisJob": Route{
			strings.ToUpper("Get"),
			c.contextPath + "/analysis-jobs/{jobId}",
			c.GetAnalysisJob,
		},
		"CancelAnalysisJob": Route{
			strings.ToUpper("Delete"),
			c.contextPath + "/analysis-jobs/{jobId}",
			c.CancelAnalysisJob,
		},
		"GetThresholds": Route{
			strings.ToUpper("Get"),
			c.contextPath + "/thresholds",
			c.GetThresholds,
		},
	}
}

// pathID reads a positive numeric path parameter. It reports false after
// the error has been written.
func (c *DeviceDescriptionRepositoryAPIAPIController) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	param := chi.URLParam(r, name)
	if param == "" {
		c.errorHandler(w, r, &RequiredError{name}, nil)
		return 0, false
	}
	id, err := parseNumericParameter[int64](
		param,
		WithRequire[int64](parseInt64),
		WithMinimum[int64](1),
	)
	if err != nil {
		c.errorHandler(w, r, &ParsingError{Param: name, Err: err}, nil)
		return 0, false
	}
	return id, true
}

// filterParams reads the optional format and unanalyzed query parameters.
func (c *DeviceDescriptionRepositoryAPIAPIController) filterParams(w http.ResponseWriter, r *http.Request) (string, bool, bool) {
	query, err := parseQuery(r.URL.RawQuery)
	if err != nil {
		c.errorHandler(w, r, &ParsingError{Err: err}, nil)
		return "", false, false
	}
	var formatParam string
	if query.Has("format") {
		formatParam = query.Get("format")
	}
	var unanalyzedParam bool
	if query.Has("unanalyzed") {
		param, err := parseBoolParameter(
			query.Get("unanalyzed"),
			WithDefaultOrParse[bool](false, parseBool),
		)
		if err != nil {
			c.errorHandler(w, r, &ParsingError{Param: "unanalyzed", Err: err}, nil)
			return "", false, false
		}
		unanalyzedParam = param
	}
	return formatParam, unanalyzedParam, true
}

// ImportDeviceDescription - Parses and stores a device description file
func (c *DeviceDescriptionRepositoryAPIAPIController) ImportDeviceDescription(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r.URL.RawQuery)
	if err != nil {
		c.errorHandler(w, r, &ParsingError{Err: err}, nil)
		return
	}
	var formatParam string
	if query.Has("format") {
		formatParam = query.Get("format")
	}
	contentParam, err := readUploadedContent(w, r, c.maxUploadBytes)
	if err != nil {
		c.errorHandler(w, r, &ParsingError{Param: "file", Err: err}, nil)
		return
	}
	result, err := c.service.ImportDeviceDescription(r.Context(), formatParam, contentParam)
	// If an error occurred, encode the error with the status code
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	// If no error, encode the body and the result code
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// GetAllDeviceDescriptions - Lists stored device descriptions
func (c *DeviceDescriptionRepositoryAPIAPIController) GetAllDeviceDescriptions(w http.ResponseWriter, r *http.Request) {
	formatParam, unanalyzedParam, ok := c.filterParams(w, r)
	if !ok {
		return
	}
	result, err := c.service.GetAllDeviceDescriptions(r.Context(), formatParam, unanalyzedParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// GetDeviceDescriptionByID - Returns the entity graph of a device description
func (c *DeviceDescriptionRepositoryAPIAPIController) GetDeviceDescriptionByID(w http.ResponseWriter, r *http.Request) {
	idParam, ok := c.pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := c.service.GetDeviceDescriptionByID(r.Context(), idParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// DeleteDeviceDescriptionByID - Deletes a device description
func (c *DeviceDescriptionRepositoryAPIAPIController) DeleteDeviceDescriptionByID(w http.ResponseWriter, r *http.Request) {
	idParam, ok := c.pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := c.service.DeleteDeviceDescriptionByID(r.Context(), idParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// GetReconstruction - Regenerates the text of a device description
func (c *DeviceDescriptionRepositoryAPIAPIController) GetReconstruction(w http.ResponseWriter, r *http.Request) {
	idParam, ok := c.pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := c.service.GetReconstruction(r.Context(), idParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// GetOriginal - Returns the archived original
func (c *DeviceDescriptionRepositoryAPIAPIController) GetOriginal(w http.ResponseWriter, r *http.Request) {
	idParam, ok := c.pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := c.service.GetOriginal(r.Context(), idParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// AnalyzeDeviceDescription - Runs a fidelity analysis
func (c *DeviceDescriptionRepositoryAPIAPIController) AnalyzeDeviceDescription(w http.ResponseWriter, r *http.Request) {
	idParam, ok := c.pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := c.service.AnalyzeDeviceDescription(r.Context(), idParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// GetLatestQualityMetric - Returns the latest metric of a device description
func (c *DeviceDescriptionRepositoryAPIAPIController) GetLatestQualityMetric(w http.ResponseWriter, r *http.Request) {
	idParam, ok := c.pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := c.service.GetLatestQualityMetric(r.Context(), idParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// GetQualityMetricByID - Returns a specific metric
func (c *DeviceDescriptionRepositoryAPIAPIController) GetQualityMetricByID(w http.ResponseWriter, r *http.Request) {
	metricIDParam, ok := c.pathID(w, r, "metricId")
	if !ok {
		return
	}
	result, err := c.service.GetQualityMetricByID(r.Context(), metricIDParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// GetDiffs - Returns the diff details of a metric
func (c *DeviceDescriptionRepositoryAPIAPIController) GetDiffs(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r.URL.RawQuery)
	if err != nil {
		c.errorHandler(w, r, &ParsingError{Err: err}, nil)
		return
	}
	metricIDParam, ok := c.pathID(w, r, "metricId")
	if !ok {
		return
	}
	var severityParam string
	if query.Has("severity") {
		severityParam = query.Get("severity")
	}
	result, err := c.service.GetDiffs(r.Context(), metricIDParam, severityParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// PostAnalysisJob - Starts an asynchronous batch analysis
func (c *DeviceDescriptionRepositoryAPIAPIController) PostAnalysisJob(w http.ResponseWriter, r *http.Request) {
	formatParam, unanalyzedParam, ok := c.filterParams(w, r)
	if !ok {
		return
	}
	result, err := c.service.PostAnalysisJob(r.Context(), formatParam, unanalyzedParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// GetAnalysisJob - Returns the progress of an analysis job
func (c *DeviceDescriptionRepositoryAPIAPIController) GetAnalysisJob(w http.ResponseWriter, r *http.Request) {
	jobIDParam := chi.URLParam(r, "jobId")
	if jobIDParam == "" {
		c.errorHandler(w, r, &RequiredError{"jobId"}, nil)
		return
	}
	result, err := c.service.GetAnalysisJob(r.Context(), jobIDParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// CancelAnalysisJob - Cancels an analysis job
func (c *DeviceDescriptionRepositoryAPIAPIController) CancelAnalysisJob(w http.ResponseWriter, r *http.Request) {
	jobIDParam := chi.URLParam(r, "jobId")
	if jobIDParam == "" {
		c.errorHandler(w, r, &RequiredError{"jobId"}, nil)
		return
	}
	result, err := c.service.CancelAnalysisJob(r.Context(), jobIDParam)
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}

// GetThresholds - Returns the configured acceptance thresholds
func (c *DeviceDescriptionRepositoryAPIAPIController) GetThresholds(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.GetThresholds(r.Context())
	if err != nil {
		c.errorHandler(w, r, err, &result)
		return
	}
	_ = EncodeJSONResponse(result.Body, &result.Code, w)
}
