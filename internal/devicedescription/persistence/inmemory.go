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
	"sort"
	"sync"
	"time"

	dderrors "github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/errors"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
)

type deviceKey struct {
	format   model.FormatKind
	vendorID string
	deviceID string
}

// InMemoryStore implements Store in process memory. Graphs are copied on the
// way in and out so callers never share state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	history  HistoryPolicy
	nextID   int64
	devices  map[int64]*model.DeviceDescription
	byKey    map[deviceKey]int64
	archives map[int64][]*model.ArchivedOriginal
	metrics  map[int64]*model.QualityMetric
	byDevice map[int64][]int64
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(history HistoryPolicy) *InMemoryStore {
	if history == "" {
		history = HistoryRetain
	}
	return &InMemoryStore{
		history:  history,
		devices:  make(map[int64]*model.DeviceDescription),
		byKey:    make(map[deviceKey]int64),
		archives: make(map[int64][]*model.ArchivedOriginal),
		metrics:  make(map[int64]*model.QualityMetric),
		byDevice: make(map[int64][]int64),
	}
}

func (s *InMemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// Import implements Store.
func (s *InMemoryStore) Import(_ context.Context, dd *model.DeviceDescription, raw []byte) (*model.ArchivedOriginal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.saveLocked(dd)
	return s.archiveLocked(id, dd.Format, raw), nil
}

// Save implements Store.
func (s *InMemoryStore) Save(_ context.Context, dd *model.DeviceDescription) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(dd), nil
}

func (s *InMemoryStore) saveLocked(dd *model.DeviceDescription) int64 {
	key := deviceKey{dd.Format, dd.VendorID, dd.DeviceID}
	var id int64
	replaced := false
	if dd.Identified() {
		id, replaced = s.byKey[key]
	}
	if !replaced {
		id = s.id()
		if dd.Identified() {
			s.byKey[key] = id
		}
	}
	if replaced && s.history == HistoryDiscard {
		for _, mid := range s.byDevice[id] {
			delete(s.metrics, mid)
		}
		delete(s.byDevice, id)
	}
	if dd.ImportedAt.IsZero() {
		dd.ImportedAt = time.Now().UTC()
	}
	dd.ID = id
	s.devices[id] = cloneDevice(dd)
	return id
}

// Load implements Store.
func (s *InMemoryStore) Load(_ context.Context, id int64) (*model.DeviceDescription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dd, ok := s.devices[id]
	if !ok {
		return nil, dderrors.NewDeviceDescriptionNotFound(id)
	}
	return cloneDevice(dd), nil
}

// Archive implements Store.
func (s *InMemoryStore) Archive(_ context.Context, id int64, raw []byte) (*model.ArchivedOriginal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dd, ok := s.devices[id]
	if !ok {
		return nil, dderrors.NewDeviceDescriptionNotFound(id)
	}
	return s.archiveLocked(id, dd.Format, raw), nil
}

func (s *InMemoryStore) archiveLocked(id int64, format model.FormatKind, raw []byte) *model.ArchivedOriginal {
	ao := newArchivedOriginal(id, format, raw, "memory")
	ao.ID = s.id()
	ao.CreatedAt = time.Now().UTC()
	ao.Content = append([]byte(nil), raw...)
	s.archives[id] = append(s.archives[id], ao)
	out := *ao
	return &out
}

// LoadOriginal implements Store.
func (s *InMemoryStore) LoadOriginal(_ context.Context, id int64) (*model.ArchivedOriginal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.devices[id]; !ok {
		return nil, dderrors.NewDeviceDescriptionNotFound(id)
	}
	archives := s.archives[id]
	if len(archives) == 0 {
		return nil, &model.PrerequisiteMissingError{DeviceDescriptionID: id, Missing: "archived original"}
	}
	ao := *archives[len(archives)-1]
	ao.Content = append([]byte(nil), ao.Content...)
	if err := verifyOriginal(&ao); err != nil {
		return nil, err
	}
	return &ao, nil
}

// List implements Store.
func (s *InMemoryStore) List(_ context.Context, filter model.DeviceFilter) ([]DeviceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]DeviceSummary, 0, len(s.devices))
	for id, dd := range s.devices {
		if filter.Format != "" && dd.Format != filter.Format {
			continue
		}
		metrics := s.byDevice[id]
		if filter.Unanalyzed && len(metrics) > 0 {
			continue
		}
		sum := DeviceSummary{
			ID:          id,
			Format:      dd.Format,
			VendorID:    dd.VendorID,
			DeviceID:    dd.DeviceID,
			ProductName: dd.ProductName,
			SourceHash:  dd.SourceHash,
			ImportedAt:  dd.ImportedAt,
		}
		if len(metrics) > 0 {
			sum.LastMetricID = metrics[len(metrics)-1]
		}
		result = append(result, sum)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dd, ok := s.devices[id]
	if !ok {
		return dderrors.NewDeviceDescriptionNotFound(id)
	}
	delete(s.byKey, deviceKey{dd.Format, dd.VendorID, dd.DeviceID})
	delete(s.devices, id)
	delete(s.archives, id)
	for _, mid := range s.byDevice[id] {
		delete(s.metrics, mid)
	}
	delete(s.byDevice, id)
	return nil
}

// SaveMetric implements Store.
func (s *InMemoryStore) SaveMetric(_ context.Context, m *model.QualityMetric) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[m.DeviceDescriptionID]; !ok {
		return 0, dderrors.NewDeviceDescriptionNotFound(m.DeviceDescriptionID)
	}
	m.ID = s.id()
	m.CreatedAt = time.Now().UTC()
	for i := range m.Diffs {
		m.Diffs[i].MetricID = m.ID
		m.Diffs[i].ID = s.id()
	}
	stored := *m
	stored.Diffs = append([]model.DiffDetail(nil), m.Diffs...)
	s.metrics[m.ID] = &stored
	s.byDevice[m.DeviceDescriptionID] = append(s.byDevice[m.DeviceDescriptionID], m.ID)
	return m.ID, nil
}

// LatestMetric implements Store.
func (s *InMemoryStore) LatestMetric(_ context.Context, deviceID int64) (*model.QualityMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byDevice[deviceID]
	if len(ids) == 0 {
		return nil, dderrors.NewNoMetricYet(deviceID)
	}
	m := *s.metrics[ids[len(ids)-1]]
	m.Diffs = nil
	return &m, nil
}

// Metric implements Store.
func (s *InMemoryStore) Metric(_ context.Context, metricID int64) (*model.QualityMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.metrics[metricID]
	if !ok {
		return nil, dderrors.NewMetricNotFound(metricID)
	}
	m := *stored
	m.Diffs = nil
	return &m, nil
}

// Diffs implements Store.
func (s *InMemoryStore) Diffs(_ context.Context, metricID int64) ([]model.DiffDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.metrics[metricID]
	if !ok {
		return nil, dderrors.NewMetricNotFound(metricID)
	}
	return append(make([]model.DiffDetail, 0, len(stored.Diffs)), stored.Diffs...), nil
}

func cloneDevice(dd *model.DeviceDescription) *model.DeviceDescription {
	out := *dd
	out.Fields = cloneFields(dd.Fields)
	out.TextResources = append([]model.TextResource(nil), dd.TextResources...)
	return &out
}

func cloneFields(fields []model.Field) []model.Field {
	if fields == nil {
		return nil
	}
	out := make([]model.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.(type) {
		case *model.StructuredField:
			c := *v
			c.Attributes = append([]model.Attribute(nil), v.Attributes...)
			c.Enumeration = append([]model.EnumValue(nil), v.Enumeration...)
			c.Children = cloneFields(v.Children)
			out = append(out, &c)
		case *model.OpaqueSection:
			c := *v
			c.Content = append([]byte(nil), v.Content...)
			out = append(out, &c)
		}
	}
	return out
}
