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

package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/codec"
	ddmodel "github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/orchestrator"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/persistence"
	openapi "github.com/eclipse-basyx/basyx-go-devicedescription/pkg/devicedescriptionapi/go"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type fixture struct {
	store  *persistence.InMemoryStore
	svc    *DeviceDescriptionRepositoryAPIAPIService
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := persistence.NewInMemoryStore(persistence.HistoryRetain)
	o := orchestrator.New(store, ddmodel.DefaultParseLimits, 2)
	svc := NewDeviceDescriptionRepositoryAPIAPIService(o, store, Thresholds{MinOverallScore: 90, MinStructuralScore: 95, MaxDataLossPercentage: 5})
	ctrl := openapi.NewDeviceDescriptionRepositoryAPIAPIController(svc, "/api", openapi.WithMaxUploadBytes(1<<20))
	server := httptest.NewServer(openapi.NewRouter(ctrl))
	t.Cleanup(server.Close)
	return &fixture{store: store, svc: svc, server: server}
}

func (f *fixture) do(t *testing.T, method, path, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+"/api"+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body []common.ErrorHandler
	decode(t, resp, &body)
	require.Len(t, body, 1)
	return body[0].Code
}

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

func parseFixture(t *testing.T, path string, kind ddmodel.FormatKind) (*ddmodel.DeviceDescription, ddmodel.Diagnostics, error) {
	t.Helper()
	return codec.Parse(readFixture(t, path), kind, ddmodel.DefaultParseLimits)
}

func TestHTTPImportReconstructAnalyze(t *testing.T) {
	f := newFixture(t)
	raw := readFixture(t, "../iodd/testdata/sensor.xml")

	resp := f.do(t, http.MethodPost, "/device-descriptions?format=iodd", "application/xml", raw)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var imported struct {
		DeviceDescription struct {
			ID     int64  `json:"id"`
			Format string `json:"format"`
		} `json:"deviceDescription"`
		Archive struct {
			ContentHash string `json:"contentHash"`
		} `json:"archive"`
	}
	decode(t, resp, &imported)
	require.NotZero(t, imported.DeviceDescription.ID)
	assert.Equal(t, "iodd", imported.DeviceDescription.Format)
	id := imported.DeviceDescription.ID

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/device-descriptions/%d/reconstruction", id), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	var text bytes.Buffer
	_, err := text.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, string(raw), text.String())

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/device-descriptions/%d/quality-metrics/latest", id), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, fmt.Sprintf("/device-descriptions/%d/analyses", id), "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var metric struct {
		ID             int64          `json:"id"`
		Status         string         `json:"status"`
		OverallScore   float64        `json:"overallScore"`
		SeverityCounts map[string]int `json:"severityCounts"`
	}
	decode(t, resp, &metric)
	assert.Equal(t, "completed", metric.Status)
	assert.Equal(t, 100.0, metric.OverallScore)
	assert.Len(t, metric.SeverityCounts, 5)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/quality-metrics/%d", metric.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/quality-metrics/%d/diffs?severity=critical", metric.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var diffs []ddmodel.DiffDetail
	decode(t, resp, &diffs)
	assert.Empty(t, diffs)

	resp = f.do(t, http.MethodGet, fmt.Sprintf("/device-descriptions/%d/original", id), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var original bytes.Buffer
	_, err = original.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, raw, original.Bytes())
}

func TestHTTPImportMultipartDetectsFormat(t *testing.T) {
	f := newFixture(t)
	raw := readFixture(t, "../eds/testdata/adapter.eds")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "adapter.eds")
	require.NoError(t, err)
	_, err = part.Write(raw)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp := f.do(t, http.MethodPost, "/device-descriptions", mw.FormDataContentType(), body.Bytes())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/device-descriptions?format=eds", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []persistence.DeviceSummary
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, ddmodel.FormatEDS, list[0].Format)
}

func TestHTTPImportMalformedIsBadRequest(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/device-descriptions?format=iodd", "application/xml", []byte("<IODevice><ProfileBody></IODevice>"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "DDREPO-IMPORTDEVICEDESCRIPTION-MALFORMEDINPUT", errorCode(t, resp))

	resp = f.do(t, http.MethodPost, "/device-descriptions?format=gsdml", "text/plain", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/device-descriptions", "text/plain", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPRejectsInvalidIdentifiers(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/device-descriptions/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/device-descriptions/0", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/device-descriptions?unanalyzed=maybe", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPNotFound(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{
		"/device-descriptions/7",
		"/device-descriptions/7/reconstruction",
		"/quality-metrics/7",
		"/quality-metrics/7/diffs",
		"/analysis-jobs/unknown",
	} {
		resp := f.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp := f.do(t, http.MethodDelete, "/device-descriptions/7", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = f.do(t, http.MethodPost, "/device-descriptions/7/analyses", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyzeWithoutArchiveIsPreconditionFailed(t *testing.T) {
	f := newFixture(t)
	dd, _, err := parseFixture(t, "../eds/testdata/adapter.eds", ddmodel.FormatEDS)
	require.NoError(t, err)
	id, err := f.store.Save(context.Background(), dd)
	require.NoError(t, err)

	resp, err := f.svc.AnalyzeDeviceDescription(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, http.StatusPreconditionFailed, resp.Code)
}

func TestAnalyzeIncompatibleRootIsUnprocessable(t *testing.T) {
	f := newFixture(t)
	imported, err := f.svc.orchestrator.Import(context.Background(), readFixture(t, "../iodd/testdata/sensor.xml"), ddmodel.FormatIODD)
	require.NoError(t, err)
	_, err = f.store.Archive(context.Background(), imported.DeviceDescription.ID, []byte("<Other/>"))
	require.NoError(t, err)

	resp, err := f.svc.AnalyzeDeviceDescription(context.Background(), imported.DeviceDescription.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	latest, err := f.svc.GetLatestQualityMetric(context.Background(), imported.DeviceDescription.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, latest.Code)
	assert.Equal(t, ddmodel.MetricFailed, latest.Body.(MetricResponse).Status)
}

func TestHTTPAnalysisJobLifecycle(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.orchestrator.Import(context.Background(), readFixture(t, "../eds/testdata/adapter.eds"), "")
	require.NoError(t, err)

	resp := f.do(t, http.MethodPost, "/analysis-jobs?unanalyzed=true", "", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var job orchestrator.JobStatus
	decode(t, resp, &job)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, 1, job.Total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = f.svc.orchestrator.WaitJob(ctx, job.ID)
	require.NoError(t, err)

	resp = f.do(t, http.MethodGet, "/analysis-jobs/"+job.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &job)
	assert.Equal(t, orchestrator.JobCompleted, job.State)
	assert.Equal(t, 1, job.Completed)

	resp = f.do(t, http.MethodDelete, "/analysis-jobs/"+job.ID, "", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestHTTPDeleteAndThresholds(t *testing.T) {
	f := newFixture(t)
	imported, err := f.svc.orchestrator.Import(context.Background(), readFixture(t, "../eds/testdata/adapter.eds"), "")
	require.NoError(t, err)

	resp := f.do(t, http.MethodDelete, fmt.Sprintf("/device-descriptions/%d", imported.DeviceDescription.ID), "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodGet, fmt.Sprintf("/device-descriptions/%d", imported.DeviceDescription.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/thresholds", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var th Thresholds
	decode(t, resp, &th)
	assert.Equal(t, Thresholds{MinOverallScore: 90, MinStructuralScore: 95, MaxDataLossPercentage: 5}, th)
}

func TestGetDiffsRejectsUnknownSeverity(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.GetDiffs(context.Background(), 1, "urgent")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
