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

// Package transaction scopes PostgreSQL transactions of the device
// description store.
package transaction

import (
	"context"
	"database/sql"
	"errors"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/logger"
)

// TxScope wraps either a transaction it started (owned) or one handed in by
// the caller (borrowed). Only owned transactions are committed or rolled
// back by the scope.
type TxScope struct {
	tx    *sql.Tx
	owned bool
	done  bool
}

// NewTxScope joins existingTx, or begins a new transaction on db when
// existingTx is nil.
func NewTxScope(ctx context.Context, db *sql.DB, existingTx *sql.Tx) (*TxScope, error) {
	if existingTx != nil {
		return &TxScope{tx: existingTx}, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &TxScope{tx: tx, owned: true}, nil
}

// Tx returns the scoped transaction.
func (s *TxScope) Tx() *sql.Tx {
	return s.tx
}

// IsOwned reports whether the scope began the transaction.
func (s *TxScope) IsOwned() bool {
	return s.owned
}

// Commit commits an owned transaction once. It is a no-op for borrowed
// transactions and on repeated calls.
func (s *TxScope) Commit() error {
	if !s.owned || s.done {
		return nil
	}
	s.done = true
	return s.tx.Commit()
}

// Rollback rolls back an owned transaction that was not committed. It is
// meant for defer.
func (s *TxScope) Rollback() {
	if !s.owned || s.done {
		return
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.LogError("rolling back transaction", err)
	}
}

// Run executes fn in a scope over existingTx or a new transaction. An owned
// transaction is committed when fn succeeds and rolled back otherwise.
func Run(ctx context.Context, db *sql.DB, existingTx *sql.Tx, fn func(tx *sql.Tx) error) error {
	scope, err := NewTxScope(ctx, db, existingTx)
	if err != nil {
		return err
	}
	defer scope.Rollback()

	if err := fn(scope.Tx()); err != nil {
		return err
	}
	return scope.Commit()
}
