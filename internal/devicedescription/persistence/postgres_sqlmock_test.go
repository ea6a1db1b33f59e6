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
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/codec"
	dderrors "github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/errors"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fieldRowColumns = []string{
	"id", "parent_id", "variant", "ordinal", "kind", "element_name", "original_id", "value", "name",
	"name_text_id", "description_text_id", "description", "resolved_name", "data_type", "length",
	"access_rights", "default_value", "min_value", "max_value", "units", "start_offset", "end_offset", "content",
}

var metricRowColumns = []string{
	"id", "device_description_id", "status", "failure_reason", "overall_score", "structural_score",
	"attribute_score", "value_score", "data_loss_percentage", "original_elements", "reconstructed_elements",
	"original_attributes", "reconstructed_attributes", "parser_version", "source_hash", "created_at",
}

func sampleDevice() *model.DeviceDescription {
	return &model.DeviceDescription{
		Format:        model.FormatEDS,
		VendorID:      "888",
		DeviceID:      "4711",
		ProductName:   "IO-Link Adapter",
		Indent:        "\t",
		LineEnding:    "\n",
		ParserVersion: model.ParserVersion,
		SourceHash:    "abc",
		Fields: []model.Field{
			&model.StructuredField{
				Kind:        model.KindParameter,
				ElementName: "Param1",
				Ordinal:     0,
				DataType:    "0xC6",
				Attributes:  []model.Attribute{{Name: "label", Value: "Mode"}},
				Enumeration: []model.EnumValue{{Code: "0", Label: "Disabled"}, {Code: "1", Label: "Enabled", Ordinal: 1}},
				Children: []model.Field{
					&model.OpaqueSection{Name: "#comment", Ordinal: 1, StartOffset: 10, EndOffset: 20, Content: []byte("\t$ note\n")},
				},
			},
		},
		TextResources: []model.TextResource{{TextID: "TI_1", Language: "en", Value: "Mode"}},
	}
}

func TestImportUpsertFailureRollsBack(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "device_description".*ON CONFLICT.*RETURNING`).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	ao, err := sut.Import(context.Background(), sampleDevice(), []byte("[File]\n"))
	require.Error(t, err)
	require.Nil(t, ao)
	require.True(t, common.IsInternalServerError(err))
	require.Contains(t, err.Error(), "DDREPO-SAVE-EXECUPSERT")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportPersistsGraphAndArchiveInOneTransaction(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)
	dd := sampleDevice()
	raw := []byte("[File]\n\tRevision = 1.0;\n")
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "device_description".*ON CONFLICT \(format, vendor_id, device_id\) WHERE \(vendor_id <> '' AND device_id <> ''\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(`DELETE FROM "dd_field"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "dd_text_resource"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO "dd_field".*RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(`INSERT INTO "dd_attribute"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "dd_enum_value"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`INSERT INTO "dd_field".*RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectExec(`INSERT INTO "dd_text_resource"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "dd_archived_original".*RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), created))
	mock.ExpectCommit()

	ao, err := sut.Import(context.Background(), dd, raw)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, int64(7), dd.ID)
	param := dd.Fields[0].(*model.StructuredField)
	assert.Equal(t, int64(11), param.ID)
	assert.Equal(t, int64(12), param.Children[0].(*model.OpaqueSection).ID)

	assert.Equal(t, int64(3), ao.ID)
	assert.Equal(t, int64(7), ao.DeviceDescriptionID)
	assert.Equal(t, codec.Hash(raw), ao.ContentHash)
	assert.Equal(t, int64(len(raw)), ao.Size)
	assert.Equal(t, BackendInline, ao.StorageBackend)
	assert.Equal(t, created, ao.CreatedAt)
	assert.Equal(t, raw, ao.Content)
}

func TestImportOfAnonymousDevicesInsertsSeparateRows(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryDiscard)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// A plain insert: no conflict clause and no clearing of an earlier graph.
	for _, id := range []int64{8, 9} {
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "device_description" \([^)]*\) VALUES \([^)]*\) RETURNING "id"$`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
		mock.ExpectQuery(`INSERT INTO "dd_archived_original".*RETURNING`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id+10, created))
		mock.ExpectCommit()
	}

	first := &model.DeviceDescription{Format: model.FormatEDS, ParserVersion: model.ParserVersion}
	second := &model.DeviceDescription{Format: model.FormatEDS, VendorID: "888", ParserVersion: model.ParserVersion}
	_, err = sut.Import(context.Background(), first, []byte("[File]\n\tDescText = \"A\";\n"))
	require.NoError(t, err)
	_, err = sut.Import(context.Background(), second, []byte("[File]\n\tDescText = \"B\";\n"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, int64(8), first.ID)
	assert.Equal(t, int64(9), second.ID)
}

func TestSaveWithDiscardPolicyDeletesPriorMetrics(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryDiscard)
	dd := &model.DeviceDescription{Format: model.FormatIODD, VendorID: "1", DeviceID: "2", ParserVersion: model.ParserVersion}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "device_description"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec(`DELETE FROM "dd_field"`).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`DELETE FROM "dd_text_resource"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM "quality_metric"`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	id, err := sut.Save(context.Background(), dd)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadRebuildsFieldForest(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)
	imported := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "device_description"`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "format", "vendor_id", "vendor_name", "device_id", "product_name", "format_version",
			"primary_language", "indent", "line_ending", "parser_version", "source_hash", "imported_at",
		}).AddRow(int64(7), "eds", "888", "ACME", "4711", nil, "1.1", nil, "\t", "\n", model.ParserVersion, "abc", imported))
	mock.ExpectQuery(`SELECT .* FROM "dd_field"`).
		WillReturnRows(sqlmock.NewRows(fieldRowColumns).
			AddRow(int64(11), nil, "structured", int64(4), "section", "Params", nil, nil, nil,
				nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil).
			AddRow(int64(12), int64(11), "structured", int64(0), "parameter", "Param1", nil, nil, "Mode",
				nil, nil, nil, nil, "0xC6", "1", nil, "0", "0", "1", nil, nil, nil, nil).
			AddRow(int64(13), int64(11), "opaque", int64(1), nil, "#comment", nil, nil, nil,
				nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, int64(30), int64(40), []byte("\t$ x\n")).
			AddRow(int64(14), nil, "opaque", int64(5), nil, "ACME Firmware", nil, nil, nil,
				nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, int64(50), int64(70), []byte("[ACME Firmware]\n")))
	mock.ExpectQuery(`SELECT .* FROM "dd_attribute".*ANY`).
		WillReturnRows(sqlmock.NewRows([]string{"field_id", "name", "value"}).
			AddRow(int64(12), "label", "\"Mode\"").
			AddRow(int64(12), "units", "\"\""))
	mock.ExpectQuery(`SELECT .* FROM "dd_enum_value".*ANY`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "field_id", "ordinal", "code", "label", "label_text_id"}).
			AddRow(int64(21), int64(12), int64(0), "0", "Disabled", nil).
			AddRow(int64(22), int64(12), int64(1), "1", "Enabled", nil))
	mock.ExpectQuery(`SELECT .* FROM "dd_text_resource" .*ORDER BY "id" ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text_id", "language", "value", "ordinal"}).
			AddRow(int64(31), "TI_Mode", "en", "Mode", int64(0)).
			AddRow(int64(32), "TI_Off", "en", "Off", int64(1)).
			AddRow(int64(33), "TI_Mode", "de", "Modus", int64(0)))
	mock.ExpectCommit()

	dd, err := sut.Load(context.Background(), 7)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, model.FormatEDS, dd.Format)
	assert.Equal(t, "ACME", dd.VendorName)
	assert.Empty(t, dd.ProductName)
	assert.Equal(t, imported, dd.ImportedAt)
	require.Len(t, dd.Fields, 2)

	params := dd.Fields[0].(*model.StructuredField)
	assert.Equal(t, "Params", params.ElementName)
	require.Len(t, params.Children, 2)

	param := params.Children[0].(*model.StructuredField)
	assert.Equal(t, "Param1", param.ElementName)
	assert.Equal(t, "0xC6", param.DataType)
	assert.Empty(t, param.AccessRights)
	assert.Equal(t, []model.Attribute{{Name: "label", Value: "\"Mode\""}, {Name: "units", Value: "\"\""}}, param.Attributes)
	require.Len(t, param.Enumeration, 2)
	assert.Equal(t, "Disabled", param.Enumeration[0].Label)
	assert.Equal(t, "Enabled", param.Enumeration[1].Label)

	comment := params.Children[1].(*model.OpaqueSection)
	assert.Equal(t, []byte("\t$ x\n"), comment.Content)
	assert.Equal(t, int64(30), comment.StartOffset)

	firmware := dd.Fields[1].(*model.OpaqueSection)
	assert.Equal(t, "ACME Firmware", firmware.Name)
	assert.Equal(t, 5, firmware.Ordinal)

	// Texts keep their insertion order, languages are not interleaved.
	require.Len(t, dd.TextResources, 3)
	assert.Equal(t, int64(31), dd.TextResources[0].ID)
	assert.Equal(t, int64(32), dd.TextResources[1].ID)
	assert.Equal(t, "de", dd.TextResources[2].Language)
}

func TestLoadUnknownDeviceIsNotFound(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "device_description"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	dd, err := sut.Load(context.Background(), 99)
	require.Nil(t, dd)
	require.True(t, common.IsErrNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func archiveRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "content_hash", "format", "parser_version", "size", "storage_backend", "content", "created_at"})
}

func TestLoadOriginalVerifiesContentHash(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)
	raw := []byte("<IODevice/>")
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM "dd_archived_original".*ORDER BY "id" DESC LIMIT`).
		WillReturnRows(archiveRows().AddRow(int64(3), codec.Hash(raw), "iodd", model.ParserVersion, int64(len(raw)), BackendInline, raw, now))
	mock.ExpectQuery(`SELECT .* FROM "dd_archived_original"`).
		WillReturnRows(archiveRows().AddRow(int64(4), codec.Hash(raw), "iodd", model.ParserVersion, int64(len(raw)), BackendInline, []byte("<IODevice />"), now))

	ao, err := sut.LoadOriginal(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, raw, ao.Content)
	assert.Equal(t, model.FormatIODD, ao.Format)

	ao, err = sut.LoadOriginal(context.Background(), 7)
	require.Nil(t, ao)
	require.ErrorIs(t, err, dderrors.ErrOriginalCorrupted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadOriginalWithoutArchive(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)

	mock.ExpectQuery(`SELECT .* FROM "dd_archived_original"`).WillReturnRows(archiveRows())
	mock.ExpectQuery(`SELECT 1 FROM "device_description"`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`SELECT .* FROM "dd_archived_original"`).WillReturnRows(archiveRows())
	mock.ExpectQuery(`SELECT 1 FROM "device_description"`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	_, err = sut.LoadOriginal(context.Background(), 7)
	var pm *model.PrerequisiteMissingError
	require.ErrorAs(t, err, &pm)
	assert.Equal(t, int64(7), pm.DeviceDescriptionID)

	_, err = sut.LoadOriginal(context.Background(), 8)
	require.True(t, common.IsErrNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMetricLocksDeviceRowAndStoresDiffs(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)
	created := time.Now().UTC()
	m := &model.QualityMetric{
		DeviceDescriptionID: 7,
		Status:              model.MetricCompleted,
		OverallScore:        94.25,
		ParserVersion:       model.ParserVersion,
		SourceHash:          "abc",
		Diffs: []model.DiffDetail{
			{Ordinal: 0, Kind: model.DiffMissingElement, Severity: model.SeverityHigh, Path: "/IODevice/X", Expected: "X"},
			{Ordinal: 1, Kind: model.DiffIncorrectAttribute, Severity: model.SeverityHigh, Path: "/IODevice/@id", Expected: "a", Actual: "b"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "id" FROM "device_description" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`INSERT INTO "quality_metric".*RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(40), created))
	mock.ExpectExec(`INSERT INTO "diff_detail"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	id, err := sut.SaveMetric(context.Background(), m)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, int64(40), id)
	assert.Equal(t, created, m.CreatedAt)
	for _, d := range m.Diffs {
		assert.Equal(t, int64(40), d.MetricID)
	}
}

func TestSaveMetricForDeletedDeviceRollsBack(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err = sut.SaveMetric(context.Background(), &model.QualityMetric{DeviceDescriptionID: 9, Status: model.MetricFailed})
	require.True(t, common.IsErrNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestMetricScansRow(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)
	created := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM "quality_metric" .*ORDER BY "id" DESC LIMIT`).
		WillReturnRows(sqlmock.NewRows(metricRowColumns).AddRow(
			int64(40), int64(7), "failed", "incompatible document roots", 0.0, 0.0, 0.0, 0.0, 0.0,
			int64(0), int64(0), int64(0), int64(0), model.ParserVersion, "abc", created))
	mock.ExpectQuery(`SELECT .* FROM "quality_metric"`).WillReturnRows(sqlmock.NewRows(metricRowColumns))

	m, err := sut.LatestMetric(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, model.MetricFailed, m.Status)
	assert.Equal(t, "incompatible document roots", m.FailureReason)
	assert.Equal(t, int64(7), m.DeviceDescriptionID)

	_, err = sut.LatestMetric(context.Background(), 8)
	require.True(t, common.IsErrNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDiffsOfUnknownMetricIsNotFound(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)

	mock.ExpectQuery(`SELECT 1 FROM "quality_metric"`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectQuery(`SELECT 1 FROM "quality_metric"`).WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`SELECT .* FROM "diff_detail" .*ORDER BY "ordinal"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "quality_metric_id", "ordinal", "kind", "severity", "path", "expected", "actual"}).
			AddRow(int64(1), int64(40), int64(0), "missing-element", "CRITICAL", "/EDS/Device/VendCode", "VendCode", nil))

	_, err = sut.Diffs(context.Background(), 41)
	require.True(t, common.IsErrNotFound(err))

	diffs, err := sut.Diffs(context.Background(), 40)
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, model.SeverityCritical, diffs[0].Severity)
	assert.Empty(t, diffs[0].Actual)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppliesFilter(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM "device_description" AS "d".*"d"."format" = \$1.*NOT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "format", "vendor_id", "device_id", "product_name", "source_hash", "imported_at", "last_metric_id"}).
			AddRow(int64(7), "eds", "888", "4711", "Adapter", "abc", now, nil))

	list, err := sut.List(context.Background(), model.DeviceFilter{Format: model.FormatEDS, Unanalyzed: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(7), list[0].ID)
	assert.Zero(t, list[0].LastMetricID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUnknownDeviceIsNotFound(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	sut := NewPostgreSQLStore(db, nil, HistoryRetain)

	mock.ExpectExec(`DELETE FROM "device_description"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "device_description"`).WillReturnResult(sqlmock.NewResult(0, 1))

	require.True(t, common.IsErrNotFound(sut.Delete(context.Background(), 8)))
	require.NoError(t, sut.Delete(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassifyMapsDriverErrors(t *testing.T) {
	t.Parallel()

	assert.True(t, common.IsErrConflict(classify("X", &pq.Error{Code: "23505", Message: "duplicate key"})))
	assert.True(t, common.IsErrNotFound(classify("X", &pq.Error{Code: "23503", Message: "foreign key"})))
	assert.True(t, common.IsInternalServerError(classify("X", errors.New("connection reset"))))

	notFound := dderrors.NewDeviceDescriptionNotFound(1)
	assert.Equal(t, notFound, classify("X", notFound))
}
