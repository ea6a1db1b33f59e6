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
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ioddFixture = "../iodd/testdata/sensor.xml"
	edsFixture  = "../eds/testdata/adapter.eds"
)

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

// blockingStore holds every LoadOriginal call until release is closed.
type blockingStore struct {
	persistence.Store
	entered chan int64
	release chan struct{}
}

func (s *blockingStore) LoadOriginal(ctx context.Context, id int64) (*model.ArchivedOriginal, error) {
	s.entered <- id
	<-s.release
	return s.Store.LoadOriginal(ctx, id)
}

func TestImportThenAnalyzeCanonicalFixtures(t *testing.T) {
	for kind, path := range map[model.FormatKind]string{model.FormatIODD: ioddFixture, model.FormatEDS: edsFixture} {
		t.Run(string(kind), func(t *testing.T) {
			o := New(persistence.NewInMemoryStore(persistence.HistoryRetain), model.DefaultParseLimits, 2)
			raw := readFixture(t, path)

			imported, err := o.Import(context.Background(), raw, "")
			require.NoError(t, err)
			assert.Equal(t, kind, imported.DeviceDescription.Format)
			assert.Equal(t, imported.DeviceDescription.SourceHash, imported.Archive.ContentHash)

			text, format, err := o.Reconstruct(context.Background(), imported.DeviceDescription.ID)
			require.NoError(t, err)
			assert.Equal(t, kind, format)
			assert.Equal(t, string(raw), text)

			metric, err := o.Analyze(context.Background(), imported.DeviceDescription.ID)
			require.NoError(t, err)
			assert.Equal(t, model.MetricCompleted, metric.Status)
			assert.Equal(t, 100.0, metric.OverallScore)
			assert.Equal(t, 0.0, metric.DataLossPercentage)
			assert.Empty(t, metric.Diffs)
			assert.Equal(t, imported.Archive.ContentHash, metric.SourceHash)
			assert.Equal(t, model.ParserVersion, metric.ParserVersion)
		})
	}
}

func TestImportKeepsAnonymousDocumentsApart(t *testing.T) {
	store := persistence.NewInMemoryStore(persistence.HistoryDiscard)
	o := New(store, model.DefaultParseLimits, 1)

	a, err := o.Import(context.Background(), []byte("[File]\n\tDescText = \"A\";\n\n"), model.FormatEDS)
	require.NoError(t, err)
	b, err := o.Import(context.Background(), []byte("[File]\n\tDescText = \"B\";\n\n"), model.FormatEDS)
	require.NoError(t, err)
	assert.NotEqual(t, a.DeviceDescription.ID, b.DeviceDescription.ID)

	list, err := store.List(context.Background(), model.DeviceFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	text, _, err := o.Reconstruct(context.Background(), a.DeviceDescription.ID)
	require.NoError(t, err)
	assert.Contains(t, text, `"A"`)
}

func TestAnalyzeUsesConfiguredDepthLimit(t *testing.T) {
	raw := []byte("<IODevice>" + strings.Repeat("<Vendor>", 70) + strings.Repeat("</Vendor>", 70) + "</IODevice>")
	o := New(persistence.NewInMemoryStore(persistence.HistoryRetain), model.ParseLimits{MaxDepth: 100}, 1)

	imported, err := o.Import(context.Background(), raw, model.FormatIODD)
	require.NoError(t, err)

	metric, err := o.Analyze(context.Background(), imported.DeviceDescription.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MetricCompleted, metric.Status)
	assert.Empty(t, metric.FailureReason)
}

func TestImportRejectsMalformedInputAndStoresNothing(t *testing.T) {
	store := persistence.NewInMemoryStore(persistence.HistoryRetain)
	o := New(store, model.DefaultParseLimits, 1)

	_, err := o.Import(context.Background(), []byte("<IODevice><ProfileBody></IODevice>"), model.FormatIODD)
	require.Error(t, err)
	assert.True(t, model.IsMalformedInput(err))

	list, err := store.List(context.Background(), model.DeviceFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAnalyzeRejectsConcurrentRunForSameDevice(t *testing.T) {
	inner := persistence.NewInMemoryStore(persistence.HistoryRetain)
	store := &blockingStore{Store: inner, entered: make(chan int64, 1), release: make(chan struct{})}
	o := New(store, model.DefaultParseLimits, 1)

	imported, err := o.Import(context.Background(), readFixture(t, ioddFixture), model.FormatIODD)
	require.NoError(t, err)
	id := imported.DeviceDescription.ID

	type outcome struct {
		metric *model.QualityMetric
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		m, err := o.Analyze(context.Background(), id)
		first <- outcome{m, err}
	}()
	require.Equal(t, id, <-store.entered)

	_, err = o.Analyze(context.Background(), id)
	assert.True(t, errors.Is(err, model.ErrAnalysisInProgress))

	close(store.release)
	res := <-first
	require.NoError(t, res.err)
	assert.Equal(t, model.MetricCompleted, res.metric.Status)

	latest, err := inner.LatestMetric(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, res.metric.ID, latest.ID)
}

func TestAnalyzeStoresFailedMetricForIncompatibleRoot(t *testing.T) {
	store := persistence.NewInMemoryStore(persistence.HistoryRetain)
	o := New(store, model.DefaultParseLimits, 1)

	imported, err := o.Import(context.Background(), readFixture(t, ioddFixture), model.FormatIODD)
	require.NoError(t, err)
	id := imported.DeviceDescription.ID
	_, err = store.Archive(context.Background(), id, []byte("<Other/>"))
	require.NoError(t, err)

	metric, err := o.Analyze(context.Background(), id)
	require.Error(t, err)
	var failed *model.AnalysisFailedError
	require.True(t, errors.As(err, &failed))
	assert.True(t, errors.Is(err, model.ErrIncompatibleRoot))
	require.NotNil(t, metric)
	assert.Equal(t, model.MetricFailed, metric.Status)
	assert.Equal(t, metric.ID, failed.MetricID)
	assert.NotEmpty(t, metric.FailureReason)

	latest, err := store.LatestMetric(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.MetricFailed, latest.Status)
}

func TestAnalyzeWithoutArchiveIsPrerequisiteMissing(t *testing.T) {
	store := persistence.NewInMemoryStore(persistence.HistoryRetain)
	o := New(store, model.DefaultParseLimits, 1)

	imported, err := o.Import(context.Background(), readFixture(t, edsFixture), model.FormatEDS)
	require.NoError(t, err)
	dd, err := store.Load(context.Background(), imported.DeviceDescription.ID)
	require.NoError(t, err)
	dd.VendorID = "other-vendor"
	id, err := store.Save(context.Background(), dd)
	require.NoError(t, err)
	require.NotEqual(t, imported.DeviceDescription.ID, id)

	_, err = o.Analyze(context.Background(), id)
	assert.True(t, model.IsPrerequisiteMissing(err))

	_, err = store.LatestMetric(context.Background(), id)
	assert.True(t, common.IsErrNotFound(err))
}

func TestAnalyzeUnknownDeviceIsNotFound(t *testing.T) {
	o := New(persistence.NewInMemoryStore(persistence.HistoryRetain), model.DefaultParseLimits, 1)
	_, err := o.Analyze(context.Background(), 42)
	assert.True(t, common.IsErrNotFound(err))
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	o := New(persistence.NewInMemoryStore(persistence.HistoryRetain), model.DefaultParseLimits, 1)
	imported, err := o.Import(context.Background(), readFixture(t, edsFixture), model.FormatEDS)
	require.NoError(t, err)

	first, err := o.Analyze(context.Background(), imported.DeviceDescription.ID)
	require.NoError(t, err)
	second, err := o.Analyze(context.Background(), imported.DeviceDescription.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, len(first.Diffs), len(second.Diffs))
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	require.True(t, k.TryLock(1))
	assert.False(t, k.TryLock(1))
	assert.True(t, k.TryLock(2))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, k.Lock(ctx, 1), context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		assert.NoError(t, k.Lock(context.Background(), 1))
		close(acquired)
	}()
	k.Unlock(1)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Unlock")
	}
	k.Unlock(1)
	k.Unlock(2)
	assert.True(t, k.TryLock(1))
}
