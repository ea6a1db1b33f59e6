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

package orchestrator

import (
	"context"
	"sync"
)

// keyedMutex serializes work per device description id.
type keyedMutex struct {
	mu   sync.Mutex
	held map[int64]chan struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{held: make(map[int64]chan struct{})}
}

// TryLock acquires id without waiting.
func (k *keyedMutex) TryLock(id int64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, busy := k.held[id]; busy {
		return false
	}
	k.held[id] = make(chan struct{})
	return true
}

// Lock waits until id is free or ctx ends.
func (k *keyedMutex) Lock(ctx context.Context, id int64) error {
	for {
		k.mu.Lock()
		released, busy := k.held[id]
		if !busy {
			k.held[id] = make(chan struct{})
			k.mu.Unlock()
			return nil
		}
		k.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Unlock releases id and wakes every waiter.
func (k *keyedMutex) Unlock(id int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if released, ok := k.held[id]; ok {
		delete(k.held, id)
		close(released)
	}
}
