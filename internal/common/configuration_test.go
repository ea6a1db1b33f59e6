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

package common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 5004, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "postgres", cfg.Archive.Backend)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, "retain", cfg.Analysis.MetricHistoryOnReimport)
	assert.Zero(t, cfg.Analysis.ScanInterval)
	assert.Equal(t, []string{"*"}, cfg.CorsConfig.AllowedOrigins)
	assert.Equal(t, 95.0, cfg.Thresholds.MinOverallScore)
}

func TestLoadConfigFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 6001
  contextPath: /dd
archive:
  backend: s3
  s3:
    bucket: originals
    endpoint: http://minio:9000
    usePathStyle: true
analysis:
  workers: 8
  metricHistoryOnReimport: discard
  scanOnStartup: true
  scanInterval: 15m
thresholds:
  minOverallScore: 80
`)
	t.Setenv("ANALYSIS_WORKERS", "2")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 6001, cfg.Server.Port)
	assert.Equal(t, "/dd", cfg.Server.ContextPath)
	assert.Equal(t, "s3", cfg.Archive.Backend)
	assert.Equal(t, "originals", cfg.Archive.S3.Bucket)
	assert.True(t, cfg.Archive.S3.UsePathStyle)
	assert.Equal(t, 2, cfg.Analysis.Workers)
	assert.Equal(t, "discard", cfg.Analysis.MetricHistoryOnReimport)
	assert.True(t, cfg.Analysis.ScanOnStartup)
	assert.Equal(t, 15*time.Minute, cfg.Analysis.ScanInterval)
	assert.Equal(t, 80.0, cfg.Thresholds.MinOverallScore)
	assert.Equal(t, 98.0, cfg.Thresholds.MinStructuralScore)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	for name, content := range map[string]string{
		"unknown backend":   "archive:\n  backend: ftp\n",
		"s3 without bucket": "archive:\n  backend: s3\n",
		"unknown history":   "analysis:\n  metricHistoryOnReimport: forget\n",
		"unknown log level": "server:\n  logLevel: verbose\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "dd"}
	assert.Equal(t, "postgres://u:p@db:5432/dd?sslmode=disable", p.DSN())
}

func TestLoadSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	path := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE IF NOT EXISTS t (id BIGINT);"), 0o600))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS t").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, LoadSchema(db, path))
	require.NoError(t, LoadSchema(db, ""))
	assert.Error(t, LoadSchema(db, filepath.Join(t.TempDir(), "missing.sql")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthEndpoint(t *testing.T) {
	r := chi.NewRouter()
	AddHealthEndpoint(r, &Config{Server: ServerConfig{ContextPath: "/dd"}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dd/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"UP"}`, rec.Body.String())
}

func TestHealthEndpointFailingCheck(t *testing.T) {
	r := chi.NewRouter()
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return errors.New("connection refused") }
	AddHealthEndpoint(r, &Config{}, healthy, broken)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"DOWN"}`, rec.Body.String())
}

func TestLoadConfigNormalizesContextPath(t *testing.T) {
	for in, want := range map[string]string{
		"/":        "",
		"dd":       "/dd",
		"/api/v1/": "/api/v1",
		"  /dd/  ": "/dd",
	} {
		cfg, err := LoadConfig(writeConfig(t, "server:\n  contextPath: \""+in+"\"\n"))
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Server.ContextPath, in)
	}
}
