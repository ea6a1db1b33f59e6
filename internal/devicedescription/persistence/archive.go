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

package persistence

import (
	"context"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/codec"
	dderrors "github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/errors"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/logger"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

// BlobStore holds the bytes of archived originals, addressed by content hash.
type BlobStore interface {
	// Backend names the store in archive rows.
	Backend() string
	// Put stores content under hash. The returned bytes are kept in the
	// archive row itself; a store that keeps content elsewhere returns nil.
	Put(ctx context.Context, hash string, content []byte) ([]byte, error)
	// Get returns the content stored under hash. inline is what Put returned.
	Get(ctx context.Context, hash string, inline []byte) ([]byte, error)
}

// InlineBlobStore keeps content in the archive row.
type InlineBlobStore struct{}

// BackendInline is the backend name of InlineBlobStore.
const BackendInline = "postgres"

// Backend implements BlobStore.
func (InlineBlobStore) Backend() string { return BackendInline }

// Put implements BlobStore.
func (InlineBlobStore) Put(_ context.Context, _ string, content []byte) ([]byte, error) {
	return content, nil
}

// Get implements BlobStore.
func (InlineBlobStore) Get(_ context.Context, _ string, inline []byte) ([]byte, error) {
	return inline, nil
}

func newArchivedOriginal(deviceID int64, format model.FormatKind, raw []byte, backend string) *model.ArchivedOriginal {
	return &model.ArchivedOriginal{
		DeviceDescriptionID: deviceID,
		ContentHash:         codec.Hash(raw),
		Format:              format,
		ParserVersion:       model.ParserVersion,
		Size:                int64(len(raw)),
		StorageBackend:      backend,
	}
}

// verifyOriginal checks the content of ao against its hash.
func verifyOriginal(ao *model.ArchivedOriginal) error {
	if codec.Hash(ao.Content) != ao.ContentHash {
		logger.LogError("verifying archived original", dderrors.ErrOriginalCorrupted)
		return dderrors.ErrOriginalCorrupted
	}
	return nil
}
