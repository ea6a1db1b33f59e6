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

/*
 * Device Description Repository | HTTP/REST
 *
 * Import of IODD and EDS device descriptions, reconstruction from the stored
 * entity graph and round-trip fidelity analysis.
 *
 * API version: V1.0.0
 */

// Package openapi Device Description Repository API
package openapi

import (
	"context"
	"net/http"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common/model"
)

// DeviceDescriptionRepositoryAPIAPIRouter defines the required methods for binding the api requests to a responses for the DeviceDescriptionRepositoryAPIAPI
// The DeviceDescriptionRepositoryAPIAPIRouter implementation should parse necessary information from the http request,
// pass the data to a DeviceDescriptionRepositoryAPIAPIServicer to perform the required actions, then write the service results to the http response.
type DeviceDescriptionRepositoryAPIAPIRouter interface {
	ImportDeviceDescription(http.ResponseWriter, *http.Request)
	GetAllDeviceDescriptions(http.ResponseWriter, *http.Request)
	GetDeviceDescriptionByID(http.ResponseWriter, *http.Request)
	DeleteDeviceDescriptionByID(http.ResponseWriter, *http.Request)
	GetReconstruction(http.ResponseWriter, *http.Request)
	GetOriginal(http.ResponseWriter, *http.Request)
	AnalyzeDeviceDescription(http.ResponseWriter, *http.Request)
	GetLatestQualityMetric(http.ResponseWriter, *http.Request)
	GetQualityMetricByID(http.ResponseWriter, *http.Request)
	GetDiffs(http.ResponseWriter, *http.Request)
	PostAnalysisJob(http.ResponseWriter, *http.Request)
	GetAnalysisJob(http.ResponseWriter, *http.Request)
	CancelAnalysisJob(http.ResponseWriter, *http.Request)
	GetThresholds(http.ResponseWriter, *http.Request)
}

// DeviceDescriptionRepositoryAPIAPIServicer defines the api actions for the DeviceDescriptionRepositoryAPIAPI service
// This interface intended to stay up to date with the openapi yaml used to generate it,
// while the service implementation can be ignored with the .openapi-generator-ignore file
// and updated with the logic required for the API.
type DeviceDescriptionRepositoryAPIAPIServicer interface {
	ImportDeviceDescription(ctx context.Context, format string, content []byte) (model.ImplResponse, error)
	GetAllDeviceDescriptions(ctx context.Context, format string, unanalyzed bool) (model.ImplResponse, error)
	GetDeviceDescriptionByID(ctx context.Context, id int64) (model.ImplResponse, error)
	DeleteDeviceDescriptionByID(ctx context.Context, id int64) (model.ImplResponse, error)
	GetReconstruction(ctx context.Context, id int64) (model.ImplResponse, error)
	GetOriginal(ctx context.Context, id int64) (model.ImplResponse, error)
	AnalyzeDeviceDescription(ctx context.Context, id int64) (model.ImplResponse, error)
	GetLatestQualityMetric(ctx context.Context, id int64) (model.ImplResponse, error)
	GetQualityMetricByID(ctx context.Context, metricID int64) (model.ImplResponse, error)
	GetDiffs(ctx context.Context, metricID int64, severity string) (model.ImplResponse, error)
	PostAnalysisJob(ctx context.Context, format string, unanalyzed bool) (model.ImplResponse, error)
	GetAnalysisJob(ctx context.Context, jobID string) (model.ImplResponse, error)
	CancelAnalysisJob(ctx context.Context, jobID string) (model.ImplResponse, error)
	GetThresholds(ctx context.Context) (model.ImplResponse, error)
}
