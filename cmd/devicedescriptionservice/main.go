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

// Package main implements the Device Description Repository Service server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/api"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/logger"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/orchestrator"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/persistence"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/scheduler"
	openapi "github.com/eclipse-basyx/basyx-go-devicedescription/pkg/devicedescriptionapi/go"
)

const (
	defaultSchemaPath = "resources/sql/devicedescriptionschema.sql"
	shutdownTimeout   = 10 * time.Second
)

func newBlobStore(ctx context.Context, cfg common.ArchiveConfig) (persistence.BlobStore, error) {
	if !strings.EqualFold(cfg.Backend, persistence.BackendS3) {
		return persistence.InlineBlobStore{}, nil
	}
	return persistence.NewS3BlobStore(ctx, persistence.S3Config{
		Bucket:          cfg.S3.Bucket,
		Prefix:          cfg.S3.Prefix,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		UsePathStyle:    cfg.S3.UsePathStyle,
	})
}

func runServer(ctx context.Context, configPath string, databaseSchema string) error {
	log.Default().Println("Loading Device Description Repository Service...")
	log.Default().Println("Config Path:", configPath)
	// Load configuration
	config, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(config.Server.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	// Create Chi router
	r := chi.NewRouter()

	// Enable CORS
	common.AddCors(r, config)

	// ==== Storage ====
	db, err := common.InitializeDatabase(config.Postgres, databaseSchema)
	if err != nil {
		return err
	}
	defer func(db *sql.DB) {
		_ = db.Close()
	}(db)

	// Add health endpoint
	common.AddHealthEndpoint(r, config, db.PingContext)

	blobs, err := newBlobStore(ctx, config.Archive)
	if err != nil {
		return err
	}
	history, err := persistence.ParseHistoryPolicy(config.Analysis.MetricHistoryOnReimport)
	if err != nil {
		return err
	}
	store := persistence.NewPostgreSQLStore(db, blobs, history)

	// ==== Analysis ====
	o := orchestrator.New(store, model.ParseLimits{
		MaxInputBytes: config.Analysis.MaxInputBytes,
		MaxDepth:      config.Analysis.MaxDepth,
		MaxEnumValues: config.Analysis.MaxEnumValues,
	}, config.Analysis.Workers)

	sched := scheduler.New(o, scheduler.Config{
		ScanOnStartup: config.Analysis.ScanOnStartup,
		Interval:      config.Analysis.ScanInterval,
	})
	sched.Start(ctx)
	defer sched.Stop()

	// ==== Device Description Repository Service ====
	ddSvc := api.NewDeviceDescriptionRepositoryAPIAPIService(o, store, api.Thresholds{
		MinOverallScore:       config.Thresholds.MinOverallScore,
		MinStructuralScore:    config.Thresholds.MinStructuralScore,
		MaxDataLossPercentage: config.Thresholds.MaxDataLossPercentage,
	})
	ddCtrl := openapi.NewDeviceDescriptionRepositoryAPIAPIController(ddSvc, config.Server.ContextPath,
		openapi.WithMaxUploadBytes(config.Server.MaxUploadBytes))
	for name, rt := range ddCtrl.Routes() {
		r.Method(rt.Method, rt.Pattern, openapi.Logger(rt.HandlerFunc, name))
	}

	// Start the server
	addr := "0.0.0.0:" + fmt.Sprintf("%d", config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("▶️  Device Description Repository listening on %s\n", addr)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// load config path from flag
	configPath := ""
	databaseSchema := ""
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&databaseSchema, "databaseSchema", defaultSchemaPath, "Path to Database Schema")
	flag.Parse()

	common.PrintSplash()

	if databaseSchema != "" {
		_, fileError := os.ReadFile(databaseSchema)
		if fileError != nil {
			_, _ = fmt.Println("The specified database schema path is invalid or the file was not found.")
			os.Exit(1)
		}
	}

	if err := runServer(ctx, configPath, databaseSchema); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
