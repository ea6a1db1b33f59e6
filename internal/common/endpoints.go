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

//nolint:revive
package common

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency of the service is usable.
type HealthCheck func(ctx context.Context) error

type healthStatus struct {
	Status string `json:"status"`
}

// AddHealthEndpoint registers GET {contextPath}/health on the router.
//
// The endpoint answers HTTP 200 with {"status":"UP"} when every check passes
// and HTTP 503 with {"status":"DOWN"} otherwise. Without checks it only
// reports that the process is serving requests.
//
// Example:
//
//	router := chi.NewRouter()
//	AddHealthEndpoint(router, config, db.PingContext)
//	// Health check available at: GET /health
func AddHealthEndpoint(r *chi.Mux, config *Config, checks ...HealthCheck) {
	r.Get(config.Server.ContextPath+"/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()

		status, code := healthStatus{Status: "UP"}, http.StatusOK
		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.Printf("❌ Health check failed: %v", err)
				status, code = healthStatus{Status: "DOWN"}, http.StatusServiceUnavailable
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Failed to write health response: %v", err)
		}
	})
}
