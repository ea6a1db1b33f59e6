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

//nolint:all
package common

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// InitializeDatabase establishes a PostgreSQL database connection with optional schema initialization.
//
// The connection pool is sized from the configuration:
//   - MaxOpenConns: postgres.maxOpenConnections
//   - MaxIdleConns: postgres.maxIdleConnections
//   - ConnMaxLifetime: postgres.connMaxLifetimeMinutes
//
// Parameters:
//   - cfg: PostgreSQL connection and pool settings
//   - schemaFilePath: Path to SQL schema file for initialization.
//     If empty, schema loading is skipped.
//
// Returns:
//   - *sql.DB: Configured database connection pool
//   - error: Error if connection fails or schema loading fails
//
// Example:
//
//	db, err := InitializeDatabase(config.Postgres, "resources/sql/devicedescriptionschema.sql")
//	if err != nil {
//	    log.Fatal("Database initialization failed:", err)
//	}
//	defer db.Close()
func InitializeDatabase(cfg PostgresConfig, schemaFilePath string) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := LoadSchema(db, schemaFilePath); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// LoadSchema executes the SQL file at schemaFilePath. An empty path is a no-op.
func LoadSchema(db *sql.DB, schemaFilePath string) error {
	if schemaFilePath == "" {
		log.Println("No SQL Schema passed - skipping schema loading.")
		return nil
	}
	queryString, err := os.ReadFile(schemaFilePath)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.Exec(string(queryString)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
