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

// Package common provides configuration management, database initialization,
// error classification and HTTP endpoint utilities for the device description
// repository. It includes support for YAML configuration files, environment
// variable overrides, CORS setup, health endpoints, and PostgreSQL database
// connections with connection pooling.
// nolint:all
package common

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/viper"
)

// PrintSplash displays the BaSyx Go ASCII art logo to the console.
// This function is typically called during application startup to provide
// visual branding and confirm the service is starting.
func PrintSplash() {
	log.Printf(`
	██████╗  █████╗ ███████╗██╗   ██╗██╗  ██╗     ██████╗  ██████╗
	██╔══██╗██╔══██╗██╔════╝╚██╗ ██╔╝╚██╗██╔╝    ██╔════╝ ██╔═══██╗
	██████╔╝███████║███████╗ ╚████╔╝  ╚███╔╝     ██║  ███╗██║   ██║
	██╔══██╗██╔══██║╚════██║  ╚██╔╝   ██╔██╗     ██║   ██║██║   ██║
	██████╔╝██║  ██║███████║   ██║   ██╔╝ ██╗    ╚██████╔╝╚██████╔╝
	╚═════╝ ╚═╝  ╚═╝╚══════╝   ╚═╝   ╚═╝  ╚═╝     ╚═════╝  ╚═════╝

	██████╗ ██████╗     ██████╗ ███████╗██████╗  ██████╗
	██╔══██╗██╔══██╗    ██╔══██╗██╔════╝██╔══██╗██╔═══██╗
	██║  ██║██║  ██║    ██████╔╝█████╗  ██████╔╝██║   ██║
	██║  ██║██║  ██║    ██╔══██╗██╔══╝  ██╔═══╝ ██║   ██║
	██████╔╝██████╔╝    ██║  ██║███████╗██║     ╚██████╔╝
	╚═════╝ ╚═════╝     ╚═╝  ╚═╝╚══════╝╚═╝      ╚═════╝
	`)
}

// Config represents the complete configuration structure of the device
// description repository.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" json:"server"`         // HTTP server configuration
	Postgres   PostgresConfig   `mapstructure:"postgres" json:"postgres"`     // PostgreSQL database settings
	CorsConfig CorsConfig       `mapstructure:"cors" json:"cors"`             // CORS policy configuration
	Archive    ArchiveConfig    `mapstructure:"archive" json:"archive"`       // Storage of archived originals
	Analysis   AnalysisConfig   `mapstructure:"analysis" json:"analysis"`     // Parser limits and analysis scheduling
	Thresholds ThresholdsConfig `mapstructure:"thresholds" json:"thresholds"` // Published acceptance thresholds
}

// ServerConfig contains HTTP server configuration parameters.
type ServerConfig struct {
	Port           int    `mapstructure:"port" json:"port"`                     // HTTP server port (default: 5004)
	ContextPath    string `mapstructure:"contextPath" json:"contextPath"`       // Base path for all endpoints
	MaxUploadBytes int64  `mapstructure:"maxUploadBytes" json:"maxUploadBytes"` // Largest accepted import request
	LogLevel       string `mapstructure:"logLevel" json:"logLevel"`             // debug, info, warn or error
}

// PostgresConfig contains PostgreSQL database connection parameters.
// It includes connection pooling settings for optimal performance.
type PostgresConfig struct {
	Host                   string `mapstructure:"host" json:"host"`                                     // Database host address
	Port                   int    `mapstructure:"port" json:"port"`                                     // Database port (default: 5432)
	User                   string `mapstructure:"user" json:"user"`                                     // Database username
	Password               string `mapstructure:"password" json:"password"`                             // Database password
	DBName                 string `mapstructure:"dbname" json:"dbname"`                                 // Database name
	MaxOpenConnections     int    `mapstructure:"maxOpenConnections" json:"maxOpenConnections"`         // Maximum open connections
	MaxIdleConnections     int    `mapstructure:"maxIdleConnections" json:"maxIdleConnections"`         // Maximum idle connections
	ConnMaxLifetimeMinutes int    `mapstructure:"connMaxLifetimeMinutes" json:"connMaxLifetimeMinutes"` // Connection lifetime in minutes
}

// DSN returns the lib/pq connection string for the configured database.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DBName)
}

// CorsConfig contains Cross-Origin Resource Sharing (CORS) policy settings.
type CorsConfig struct {
	AllowedOrigins   []string `mapstructure:"allowedOrigins" json:"allowedOrigins"`     // Allowed origin domains
	AllowedMethods   []string `mapstructure:"allowedMethods" json:"allowedMethods"`     // Allowed HTTP methods
	AllowedHeaders   []string `mapstructure:"allowedHeaders" json:"allowedHeaders"`     // Allowed request headers
	AllowCredentials bool     `mapstructure:"allowCredentials" json:"allowCredentials"` // Allow credentials in requests
}

// ArchiveConfig selects where archived originals are kept. Backend "postgres"
// stores the bytes inline in the archive table, backend "s3" stores them in an
// S3 compatible bucket keyed by content hash.
type ArchiveConfig struct {
	Backend string   `mapstructure:"backend" json:"backend"`
	S3      S3Config `mapstructure:"s3" json:"s3"`
}

// S3Config contains the bucket settings of the S3 archive backend.
type S3Config struct {
	Bucket          string `mapstructure:"bucket" json:"bucket"`
	Prefix          string `mapstructure:"prefix" json:"prefix"`
	Region          string `mapstructure:"region" json:"region"`
	Endpoint        string `mapstructure:"endpoint" json:"endpoint"`               // Custom endpoint, e.g. MinIO
	AccessKeyID     string `mapstructure:"accessKeyId" json:"accessKeyId"`         // Static credentials; empty uses the default chain
	SecretAccessKey string `mapstructure:"secretAccessKey" json:"secretAccessKey"` // Static credentials; empty uses the default chain
	UsePathStyle    bool   `mapstructure:"usePathStyle" json:"usePathStyle"`
}

// AnalysisConfig contains parser limits and the analysis scheduling options.
type AnalysisConfig struct {
	Workers                 int           `mapstructure:"workers" json:"workers"`                                 // Concurrent analyses of a batch job
	MetricHistoryOnReimport string        `mapstructure:"metricHistoryOnReimport" json:"metricHistoryOnReimport"` // "retain" or "discard"
	ScanOnStartup           bool          `mapstructure:"scanOnStartup" json:"scanOnStartup"`                     // Analyze unanalyzed devices at start-up
	ScanInterval            time.Duration `mapstructure:"scanInterval" json:"scanInterval"`                       // Period of background scans, 0 disables
	MaxInputBytes           int64         `mapstructure:"maxInputBytes" json:"maxInputBytes"`
	MaxDepth                int           `mapstructure:"maxDepth" json:"maxDepth"`
	MaxEnumValues           int           `mapstructure:"maxEnumValues" json:"maxEnumValues"`
}

// ThresholdsConfig contains the acceptance thresholds published to
// collaborators. The repository never evaluates them itself.
type ThresholdsConfig struct {
	MinOverallScore       float64 `mapstructure:"minOverallScore" json:"minOverallScore"`
	MinStructuralScore    float64 `mapstructure:"minStructuralScore" json:"minStructuralScore"`
	MaxDataLossPercentage float64 `mapstructure:"maxDataLossPercentage" json:"maxDataLossPercentage"`
}

// LoadConfig loads the configuration from YAML files and environment variables.
//
// The function supports multiple configuration sources with the following precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file (if provided)
// 3. Default values (lowest priority)
//
// Environment variables should use underscore notation (e.g., SERVER_PORT for server.port).
//
// Parameters:
//   - configPath: Path to the YAML configuration file. If empty, only environment
//     variables and defaults will be used.
//
// Returns:
//   - *Config: Loaded configuration structure
//   - error: Error if configuration loading or validation fails
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	if configPath != "" {
		log.Printf("📁 Loading config from file: %s", configPath)
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Println("📁 No config file provided, loading from environment variables only")
	}

	// Override config with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Server.ContextPath = contextPath(cfg.Server.ContextPath)

	log.Println("✅ Configuration loaded successfully")
	PrintConfiguration(cfg)
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Server.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid config: unknown server.logLevel %q", c.Server.LogLevel)
	}
	switch strings.ToLower(c.Archive.Backend) {
	case "postgres":
	case "s3":
		if c.Archive.S3.Bucket == "" {
			return fmt.Errorf("invalid config: archive.s3.bucket is required for the s3 archive backend")
		}
	default:
		return fmt.Errorf("invalid config: unknown archive.backend %q", c.Archive.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(c.Analysis.MetricHistoryOnReimport)) {
	case "", "retain", "discard":
	default:
		return fmt.Errorf("invalid config: unknown analysis.metricHistoryOnReimport %q", c.Analysis.MetricHistoryOnReimport)
	}
	if c.Analysis.ScanInterval < 0 {
		return fmt.Errorf("invalid config: analysis.scanInterval must not be negative")
	}
	return nil
}

// setDefaults configures sensible default values for all configuration options.
//
// Default values include:
//   - Server: Port 5004, no context path, 32 MiB uploads
//   - Database: Local PostgreSQL on port 5432 with test credentials
//   - CORS: Permissive policy allowing all origins and common methods
//   - Archive: Inline PostgreSQL storage
//   - Analysis: 4 workers, metric history retained, no background scans
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 5004)
	v.SetDefault("server.contextPath", "")
	v.SetDefault("server.maxUploadBytes", 32<<20)
	v.SetDefault("server.logLevel", "info")

	// PostgreSQL defaults
	v.SetDefault("postgres.host", "db")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "admin")
	v.SetDefault("postgres.password", "admin123")
	v.SetDefault("postgres.dbname", "basyxTestDB")
	v.SetDefault("postgres.maxOpenConnections", 50)
	v.SetDefault("postgres.maxIdleConnections", 50)
	v.SetDefault("postgres.connMaxLifetimeMinutes", 5)

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{"*"})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"*"})
	v.SetDefault("cors.allowCredentials", true)

	// Archive defaults
	v.SetDefault("archive.backend", "postgres")
	v.SetDefault("archive.s3.bucket", "")
	v.SetDefault("archive.s3.prefix", "originals/")
	v.SetDefault("archive.s3.region", "us-east-1")
	v.SetDefault("archive.s3.endpoint", "")
	v.SetDefault("archive.s3.accessKeyId", "")
	v.SetDefault("archive.s3.secretAccessKey", "")
	v.SetDefault("archive.s3.usePathStyle", false)

	// Analysis defaults
	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.metricHistoryOnReimport", "retain")
	v.SetDefault("analysis.scanOnStartup", false)
	v.SetDefault("analysis.scanInterval", "0s")
	v.SetDefault("analysis.maxInputBytes", 16<<20)
	v.SetDefault("analysis.maxDepth", 64)
	v.SetDefault("analysis.maxEnumValues", 10000)

	// Threshold defaults
	v.SetDefault("thresholds.minOverallScore", 95.0)
	v.SetDefault("thresholds.minStructuralScore", 98.0)
	v.SetDefault("thresholds.maxDataLossPercentage", 2.0)
}

// PrintConfiguration prints the current configuration to the console with sensitive data redacted.
//
// Database host, username and password as well as S3 credentials are
// replaced with "****".
func PrintConfiguration(cfg *Config) {
	// Create a copy of the config to avoid modifying the original
	cfgCopy := *cfg

	if cfg.Postgres.Host != "" {
		cfgCopy.Postgres.Host = "****"
		cfgCopy.Postgres.User = "****"
		cfgCopy.Postgres.Password = "****"
	}
	if cfg.Archive.S3.AccessKeyID != "" {
		cfgCopy.Archive.S3.AccessKeyID = "****"
		cfgCopy.Archive.S3.SecretAccessKey = "****"
	}

	configJSON, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(cfgCopy, "", "  ")
	if err != nil {
		log.Printf("Unable to marshal configuration to JSON: %v", err)
		return
	}

	log.Printf("📜 Loaded configuration:\n%s", string(configJSON))
}

// AddCors configures Cross-Origin Resource Sharing (CORS) middleware for the router.
//
// Example:
//
//	router := chi.NewRouter()
//	AddCors(router, config)
//	// Router now accepts cross-origin requests according to config
func AddCors(r *chi.Mux, config *Config) {
	c := cors.New(cors.Options{
		AllowedOrigins:   config.CorsConfig.AllowedOrigins,
		AllowedMethods:   config.CorsConfig.AllowedMethods,
		AllowedHeaders:   config.CorsConfig.AllowedHeaders,
		AllowCredentials: config.CorsConfig.AllowCredentials,
	})
	r.Use(c.Handler)
}
