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
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // Postgres Driver for Goqu
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/common"
	dderrors "github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/errors"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/model"
	"github.com/eclipse-basyx/basyx-go-devicedescription/internal/devicedescription/transaction"
	"github.com/lib/pq"
)

const diffInsertBatch = 1000

const (
	variantStructured = "structured"
	variantOpaque     = "opaque"
)

var deviceColumns = []interface{}{
	"id", "format", "vendor_id", "vendor_name", "device_id", "product_name", "format_version",
	"primary_language", "indent", "line_ending", "parser_version", "source_hash", "imported_at",
}

var fieldColumns = []interface{}{
	"id", "parent_id", "variant", "ordinal", "kind", "element_name", "original_id", "value", "name",
	"name_text_id", "description_text_id", "description", "resolved_name", "data_type", "length",
	"access_rights", "default_value", "min_value", "max_value", "units", "start_offset", "end_offset", "content",
}

var metricColumns = []interface{}{
	"id", "device_description_id", "status", "failure_reason", "overall_score", "structural_score",
	"attribute_score", "value_score", "data_loss_percentage", "original_elements", "reconstructed_elements",
	"original_attributes", "reconstructed_attributes", "parser_version", "source_hash", "created_at",
}

// PostgreSQLStore implements Store on PostgreSQL. The entity graph is kept
// in flat tables linked by parent ids; archive content goes to a BlobStore.
type PostgreSQLStore struct {
	db      *sql.DB
	blobs   BlobStore
	history HistoryPolicy
}

// NewPostgreSQLStore creates a store over db. A nil blobs keeps archive
// content inline.
func NewPostgreSQLStore(db *sql.DB, blobs BlobStore, history HistoryPolicy) *PostgreSQLStore {
	if blobs == nil {
		blobs = InlineBlobStore{}
	}
	if history == "" {
		history = HistoryRetain
	}
	return &PostgreSQLStore{db: db, blobs: blobs, history: history}
}

// Import implements Store.
func (s *PostgreSQLStore) Import(ctx context.Context, dd *model.DeviceDescription, raw []byte) (*model.ArchivedOriginal, error) {
	var ao *model.ArchivedOriginal
	err := transaction.Run(ctx, s.db, nil, func(tx *sql.Tx) error {
		id, err := s.saveTx(ctx, tx, dd)
		if err != nil {
			return err
		}
		ao, err = s.archiveTx(ctx, tx, id, dd.Format, raw)
		return err
	})
	if err != nil {
		return nil, classify("DDREPO-IMPORT", err)
	}
	return ao, nil
}

// Save implements Store.
func (s *PostgreSQLStore) Save(ctx context.Context, dd *model.DeviceDescription) (int64, error) {
	var id int64
	err := transaction.Run(ctx, s.db, nil, func(tx *sql.Tx) error {
		var err error
		id, err = s.saveTx(ctx, tx, dd)
		return err
	})
	if err != nil {
		return 0, classify("DDREPO-SAVE", err)
	}
	return id, nil
}

// identityTarget names the partial unique index over the device identity,
// its predicate included. goqu adds the outer parentheses.
const identityTarget = "format, vendor_id, device_id) WHERE (vendor_id <> '' AND device_id <> ''"

func (s *PostgreSQLStore) saveTx(ctx context.Context, tx *sql.Tx, dd *model.DeviceDescription) (int64, error) {
	dialect := goqu.Dialect("postgres")
	if dd.ImportedAt.IsZero() {
		dd.ImportedAt = time.Now().UTC()
	}

	// Only an identified device can be a re-import; anonymous documents
	// always get a row of their own.
	identified := dd.Identified()
	insert := dialect.Insert("device_description").Prepared(true).
		Rows(goqu.Record{
			"format":           string(dd.Format),
			"vendor_id":        dd.VendorID,
			"vendor_name":      nullString(dd.VendorName),
			"device_id":        dd.DeviceID,
			"product_name":     nullString(dd.ProductName),
			"format_version":   nullString(dd.FormatVersion),
			"primary_language": nullString(dd.PrimaryLanguage),
			"indent":           dd.Indent,
			"line_ending":      dd.LineEnding,
			"parser_version":   dd.ParserVersion,
			"source_hash":      dd.SourceHash,
			"imported_at":      dd.ImportedAt,
		})
	if identified {
		insert = insert.OnConflict(goqu.DoUpdate(identityTarget, goqu.Record{
			"vendor_name":      goqu.L("EXCLUDED.vendor_name"),
			"product_name":     goqu.L("EXCLUDED.product_name"),
			"format_version":   goqu.L("EXCLUDED.format_version"),
			"primary_language": goqu.L("EXCLUDED.primary_language"),
			"indent":           goqu.L("EXCLUDED.indent"),
			"line_ending":      goqu.L("EXCLUDED.line_ending"),
			"parser_version":   goqu.L("EXCLUDED.parser_version"),
			"source_hash":      goqu.L("EXCLUDED.source_hash"),
			"imported_at":      goqu.L("EXCLUDED.imported_at"),
		}))
	}
	query, args, err := insert.Returning(goqu.I("id")).ToSQL()
	if err != nil {
		return 0, common.NewInternalServerError("DDREPO-SAVE-UPSERTSQL " + err.Error())
	}
	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, classify("DDREPO-SAVE-EXECUPSERT", err)
	}

	if identified {
		if err := s.clearTx(ctx, tx, &dialect, id); err != nil {
			return 0, err
		}
	}

	if err := insertFields(ctx, tx, &dialect, id, sql.NullInt64{}, dd.Fields); err != nil {
		return 0, err
	}
	if err := insertTextResources(ctx, tx, &dialect, id, dd.TextResources); err != nil {
		return 0, err
	}
	dd.ID = id
	return id, nil
}

// clearTx removes the graph of a re-imported device so it can be replaced
// in place; attributes and enum values cascade from their fields.
func (s *PostgreSQLStore) clearTx(ctx context.Context, tx *sql.Tx, dialect *goqu.DialectWrapper, id int64) error {
	for _, table := range []string{"dd_field", "dd_text_resource"} {
		query, args, err := dialect.Delete(table).Prepared(true).Where(goqu.Ex{"device_description_id": id}).ToSQL()
		if err != nil {
			return common.NewInternalServerError("DDREPO-SAVE-CLEARSQL " + err.Error())
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return classify("DDREPO-SAVE-EXECCLEAR", err)
		}
	}
	if s.history == HistoryDiscard {
		query, args, err := dialect.Delete("quality_metric").Prepared(true).Where(goqu.Ex{"device_description_id": id}).ToSQL()
		if err != nil {
			return common.NewInternalServerError("DDREPO-SAVE-DISCARDSQL " + err.Error())
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return classify("DDREPO-SAVE-EXECDISCARD", err)
		}
	}
	return nil
}

func insertFields(ctx context.Context, tx *sql.Tx, dialect *goqu.DialectWrapper, deviceID int64, parentID sql.NullInt64, fields []model.Field) error {
	for _, f := range fields {
		rec := goqu.Record{
			"device_description_id": deviceID,
			"parent_id":             parentID,
		}
		switch v := f.(type) {
		case *model.StructuredField:
			rec["variant"] = variantStructured
			rec["ordinal"] = v.Ordinal
			rec["kind"] = string(v.Kind)
			rec["element_name"] = v.ElementName
			rec["original_id"] = nullString(v.OriginalID)
			rec["value"] = nullString(v.Value)
			rec["name"] = nullString(v.Name)
			rec["name_text_id"] = nullString(v.NameTextID)
			rec["description_text_id"] = nullString(v.DescriptionTextID)
			rec["description"] = nullString(v.Description)
			rec["resolved_name"] = nullString(v.ResolvedName)
			rec["data_type"] = nullString(v.DataType)
			rec["length"] = nullString(v.Length)
			rec["access_rights"] = nullString(v.AccessRights)
			rec["default_value"] = nullString(v.DefaultValue)
			rec["min_value"] = nullString(v.MinValue)
			rec["max_value"] = nullString(v.MaxValue)
			rec["units"] = nullString(v.Units)
		case *model.OpaqueSection:
			rec["variant"] = variantOpaque
			rec["ordinal"] = v.Ordinal
			rec["element_name"] = v.Name
			rec["start_offset"] = v.StartOffset
			rec["end_offset"] = v.EndOffset
			rec["content"] = v.Content
		}

		query, args, err := dialect.Insert("dd_field").Prepared(true).Rows(rec).Returning(goqu.I("id")).ToSQL()
		if err != nil {
			return common.NewInternalServerError("DDREPO-SAVE-FIELDSQL " + err.Error())
		}
		var fieldID int64
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&fieldID); err != nil {
			return classify("DDREPO-SAVE-EXECFIELD", err)
		}

		switch v := f.(type) {
		case *model.StructuredField:
			v.ID = fieldID
			if err := insertAttributes(ctx, tx, dialect, fieldID, v.Attributes); err != nil {
				return err
			}
			if err := insertEnumeration(ctx, tx, dialect, fieldID, v.Enumeration); err != nil {
				return err
			}
			if err := insertFields(ctx, tx, dialect, deviceID, sql.NullInt64{Int64: fieldID, Valid: true}, v.Children); err != nil {
				return err
			}
		case *model.OpaqueSection:
			v.ID = fieldID
		}
	}
	return nil
}

func insertAttributes(ctx context.Context, tx *sql.Tx, dialect *goqu.DialectWrapper, fieldID int64, attrs []model.Attribute) error {
	if len(attrs) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(attrs))
	for i, a := range attrs {
		rows = append(rows, goqu.Record{"field_id": fieldID, "ordinal": i, "name": a.Name, "value": a.Value})
	}
	query, args, err := dialect.Insert("dd_attribute").Prepared(true).Rows(rows...).ToSQL()
	if err != nil {
		return common.NewInternalServerError("DDREPO-SAVE-ATTRSQL " + err.Error())
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return classify("DDREPO-SAVE-EXECATTR", err)
	}
	return nil
}

func insertEnumeration(ctx context.Context, tx *sql.Tx, dialect *goqu.DialectWrapper, fieldID int64, values []model.EnumValue) error {
	if len(values) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(values))
	for _, ev := range values {
		rows = append(rows, goqu.Record{
			"field_id":      fieldID,
			"ordinal":       ev.Ordinal,
			"code":          ev.Code,
			"label":         nullString(ev.Label),
			"label_text_id": nullString(ev.LabelTextID),
		})
	}
	query, args, err := dialect.Insert("dd_enum_value").Prepared(true).Rows(rows...).ToSQL()
	if err != nil {
		return common.NewInternalServerError("DDREPO-SAVE-ENUMSQL " + err.Error())
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return classify("DDREPO-SAVE-EXECENUM", err)
	}
	return nil
}

func insertTextResources(ctx context.Context, tx *sql.Tx, dialect *goqu.DialectWrapper, deviceID int64, texts []model.TextResource) error {
	if len(texts) == 0 {
		return nil
	}
	rows := make([]interface{}, 0, len(texts))
	for _, tr := range texts {
		rows = append(rows, goqu.Record{
			"device_description_id": deviceID,
			"ordinal":               tr.Ordinal,
			"text_id":               tr.TextID,
			"language":              tr.Language,
			"value":                 tr.Value,
		})
	}
	query, args, err := dialect.Insert("dd_text_resource").Prepared(true).Rows(rows...).ToSQL()
	if err != nil {
		return common.NewInternalServerError("DDREPO-SAVE-TEXTSQL " + err.Error())
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return classify("DDREPO-SAVE-EXECTEXT", err)
	}
	return nil
}

// Load implements Store.
func (s *PostgreSQLStore) Load(ctx context.Context, id int64) (*model.DeviceDescription, error) {
	var dd *model.DeviceDescription
	err := transaction.Run(ctx, s.db, nil, func(tx *sql.Tx) error {
		var err error
		dd, err = loadTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, classify("DDREPO-LOAD", err)
	}
	return dd, nil
}

func loadTx(ctx context.Context, tx *sql.Tx, id int64) (*model.DeviceDescription, error) {
	dialect := goqu.Dialect("postgres")

	query, args, err := dialect.From("device_description").Prepared(true).Select(deviceColumns...).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-LOAD-DEVICESQL " + err.Error())
	}
	var (
		dd                                                   model.DeviceDescription
		format                                               string
		vendorName, productName, formatVersion, primaryLang sql.NullString
	)
	err = tx.QueryRowContext(ctx, query, args...).Scan(
		&dd.ID, &format, &dd.VendorID, &vendorName, &dd.DeviceID, &productName, &formatVersion,
		&primaryLang, &dd.Indent, &dd.LineEnding, &dd.ParserVersion, &dd.SourceHash, &dd.ImportedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dderrors.NewDeviceDescriptionNotFound(id)
	}
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-LOAD-EXECDEVICE " + err.Error())
	}
	dd.Format = model.FormatKind(format)
	dd.VendorName = vendorName.String
	dd.ProductName = productName.String
	dd.FormatVersion = formatVersion.String
	dd.PrimaryLanguage = primaryLang.String

	structured, err := loadFields(ctx, tx, &dialect, &dd)
	if err != nil {
		return nil, err
	}
	if len(structured) > 0 {
		if err := loadAttributes(ctx, tx, &dialect, structured); err != nil {
			return nil, err
		}
		if err := loadEnumeration(ctx, tx, &dialect, structured); err != nil {
			return nil, err
		}
	}
	if err := loadTextResources(ctx, tx, &dialect, &dd); err != nil {
		return nil, err
	}
	return &dd, nil
}

// loadFields rebuilds the field forest. Rows come in insertion order, so a
// parent is always seen before its children and siblings keep their order.
func loadFields(ctx context.Context, tx *sql.Tx, dialect *goqu.DialectWrapper, dd *model.DeviceDescription) (map[int64]*model.StructuredField, error) {
	query, args, err := dialect.From("dd_field").Prepared(true).Select(fieldColumns...).
		Where(goqu.Ex{"device_description_id": dd.ID}).
		Order(goqu.I("id").Asc()).ToSQL()
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-LOAD-FIELDSQL " + err.Error())
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-LOAD-EXECFIELD " + err.Error())
	}
	defer func() {
		_ = rows.Close()
	}()

	structured := make(map[int64]*model.StructuredField)
	for rows.Next() {
		var (
			id, ordinal                      int64
			parentID, startOffset, endOffset sql.NullInt64
			variant, elementName             string
			kind, originalID, value, name    sql.NullString
			nameTextID, descTextID, desc     sql.NullString
			resolvedName, dataType, length   sql.NullString
			accessRights, defaultValue       sql.NullString
			minValue, maxValue, units        sql.NullString
			content                          []byte
		)
		if err := rows.Scan(
			&id, &parentID, &variant, &ordinal, &kind, &elementName, &originalID, &value, &name,
			&nameTextID, &descTextID, &desc, &resolvedName, &dataType, &length,
			&accessRights, &defaultValue, &minValue, &maxValue, &units, &startOffset, &endOffset, &content,
		); err != nil {
			return nil, common.NewInternalServerError("DDREPO-LOAD-SCANFIELD " + err.Error())
		}

		var f model.Field
		switch variant {
		case variantStructured:
			sf := &model.StructuredField{
				ID:                id,
				Kind:              model.FieldKind(kind.String),
				ElementName:       elementName,
				OriginalID:        originalID.String,
				Ordinal:           int(ordinal),
				Value:             value.String,
				Name:              name.String,
				NameTextID:        nameTextID.String,
				DescriptionTextID: descTextID.String,
				Description:       desc.String,
				ResolvedName:      resolvedName.String,
				DataType:          dataType.String,
				Length:            length.String,
				AccessRights:      accessRights.String,
				DefaultValue:      defaultValue.String,
				MinValue:          minValue.String,
				MaxValue:          maxValue.String,
				Units:             units.String,
			}
			structured[id] = sf
			f = sf
		case variantOpaque:
			f = &model.OpaqueSection{
				ID:          id,
				Name:        elementName,
				Ordinal:     int(ordinal),
				StartOffset: startOffset.Int64,
				EndOffset:   endOffset.Int64,
				Content:     content,
			}
		default:
			return nil, common.NewInternalServerError("DDREPO-LOAD-FIELDVARIANT unknown variant " + variant)
		}

		if !parentID.Valid {
			dd.Fields = append(dd.Fields, f)
			continue
		}
		parent, ok := structured[parentID.Int64]
		if !ok {
			return nil, common.NewInternalServerError("DDREPO-LOAD-ORPHANFIELD field without structured parent")
		}
		parent.Children = append(parent.Children, f)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewInternalServerError("DDREPO-LOAD-ITERFIELD " + err.Error())
	}
	return structured, nil
}

func fieldIDs(structured map[int64]*model.StructuredField) []int64 {
	ids := make([]int64, 0, len(structured))
	for id := range structured {
		ids = append(ids, id)
	}
	return ids
}

func loadAttributes(ctx context.Context, tx *sql.Tx, dialect *goqu.DialectWrapper, structured map[int64]*model.StructuredField) error {
	query, args, err := dialect.From("dd_attribute").Prepared(true).
		Select("field_id", "name", "value").
		Where(goqu.L("field_id = ANY(?::bigint[])", pq.Array(fieldIDs(structured)))).
		Order(goqu.I("field_id").Asc(), goqu.I("ordinal").Asc()).ToSQL()
	if err != nil {
		return common.NewInternalServerError("DDREPO-LOAD-ATTRSQL " + err.Error())
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return common.NewInternalServerError("DDREPO-LOAD-EXECATTR " + err.Error())
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var fieldID int64
		var a model.Attribute
		if err := rows.Scan(&fieldID, &a.Name, &a.Value); err != nil {
			return common.NewInternalServerError("DDREPO-LOAD-SCANATTR " + err.Error())
		}
		if sf, ok := structured[fieldID]; ok {
			sf.Attributes = append(sf.Attributes, a)
		}
	}
	if err := rows.Err(); err != nil {
		return common.NewInternalServerError("DDREPO-LOAD-ITERATTR " + err.Error())
	}
	return nil
}

func loadEnumeration(ctx context.Context, tx *sql.Tx, dialect *goqu.DialectWrapper, structured map[int64]*model.StructuredField) error {
	query, args, err := dialect.From("dd_enum_value").Prepared(true).
		Select("id", "field_id", "ordinal", "code", "label", "label_text_id").
		Where(goqu.L("field_id = ANY(?::bigint[])", pq.Array(fieldIDs(structured)))).
		Order(goqu.I("field_id").Asc(), goqu.I("ordinal").Asc()).ToSQL()
	if err != nil {
		return common.NewInternalServerError("DDREPO-LOAD-ENUMSQL " + err.Error())
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return common.NewInternalServerError("DDREPO-LOAD-EXECENUM " + err.Error())
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var fieldID int64
		var ev model.EnumValue
		var label, labelTextID sql.NullString
		if err := rows.Scan(&ev.ID, &fieldID, &ev.Ordinal, &ev.Code, &label, &labelTextID); err != nil {
			return common.NewInternalServerError("DDREPO-LOAD-SCANENUM " + err.Error())
		}
		ev.Label = label.String
		ev.LabelTextID = labelTextID.String
		if sf, ok := structured[fieldID]; ok {
			sf.Enumeration = append(sf.Enumeration, ev)
		}
	}
	if err := rows.Err(); err != nil {
		return common.NewInternalServerError("DDREPO-LOAD-ITERENUM " + err.Error())
	}
	return nil
}

func loadTextResources(ctx context.Context, tx *sql.Tx, dialect *goqu.DialectWrapper, dd *model.DeviceDescription) error {
	query, args, err := dialect.From("dd_text_resource").Prepared(true).
		Select("id", "text_id", "language", "value", "ordinal").
		Where(goqu.Ex{"device_description_id": dd.ID}).
		Order(goqu.I("id").Asc()).ToSQL()
	if err != nil {
		return common.NewInternalServerError("DDREPO-LOAD-TEXTSQL " + err.Error())
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return common.NewInternalServerError("DDREPO-LOAD-EXECTEXT " + err.Error())
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var tr model.TextResource
		if err := rows.Scan(&tr.ID, &tr.TextID, &tr.Language, &tr.Value, &tr.Ordinal); err != nil {
			return common.NewInternalServerError("DDREPO-LOAD-SCANTEXT " + err.Error())
		}
		dd.TextResources = append(dd.TextResources, tr)
	}
	if err := rows.Err(); err != nil {
		return common.NewInternalServerError("DDREPO-LOAD-ITERTEXT " + err.Error())
	}
	return nil
}

// Archive implements Store.
func (s *PostgreSQLStore) Archive(ctx context.Context, id int64, raw []byte) (*model.ArchivedOriginal, error) {
	var ao *model.ArchivedOriginal
	err := transaction.Run(ctx, s.db, nil, func(tx *sql.Tx) error {
		dialect := goqu.Dialect("postgres")
		query, args, err := dialect.From("device_description").Prepared(true).Select("format").Where(goqu.Ex{"id": id}).ToSQL()
		if err != nil {
			return common.NewInternalServerError("DDREPO-ARCHIVE-DEVICESQL " + err.Error())
		}
		var format string
		err = tx.QueryRowContext(ctx, query, args...).Scan(&format)
		if errors.Is(err, sql.ErrNoRows) {
			return dderrors.NewDeviceDescriptionNotFound(id)
		}
		if err != nil {
			return common.NewInternalServerError("DDREPO-ARCHIVE-EXECDEVICE " + err.Error())
		}
		ao, err = s.archiveTx(ctx, tx, id, model.FormatKind(format), raw)
		return err
	})
	if err != nil {
		return nil, classify("DDREPO-ARCHIVE", err)
	}
	return ao, nil
}

func (s *PostgreSQLStore) archiveTx(ctx context.Context, tx *sql.Tx, deviceID int64, format model.FormatKind, raw []byte) (*model.ArchivedOriginal, error) {
	ao := newArchivedOriginal(deviceID, format, raw, s.blobs.Backend())
	inline, err := s.blobs.Put(ctx, ao.ContentHash, raw)
	if err != nil {
		return nil, err
	}

	dialect := goqu.Dialect("postgres")
	query, args, err := dialect.Insert("dd_archived_original").Prepared(true).
		Rows(goqu.Record{
			"device_description_id": deviceID,
			"content_hash":          ao.ContentHash,
			"format":                string(ao.Format),
			"parser_version":        ao.ParserVersion,
			"size":                  ao.Size,
			"storage_backend":       ao.StorageBackend,
			"content":               inline,
		}).
		Returning(goqu.I("id"), goqu.I("created_at")).ToSQL()
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-ARCHIVE-INSERTSQL " + err.Error())
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&ao.ID, &ao.CreatedAt); err != nil {
		return nil, classify("DDREPO-ARCHIVE-EXECSQL", err)
	}
	ao.Content = raw
	return ao, nil
}

// LoadOriginal implements Store. The content is verified against its hash.
func (s *PostgreSQLStore) LoadOriginal(ctx context.Context, id int64) (*model.ArchivedOriginal, error) {
	dialect := goqu.Dialect("postgres")
	query, args, err := dialect.From("dd_archived_original").Prepared(true).
		Select("id", "content_hash", "format", "parser_version", "size", "storage_backend", "content", "created_at").
		Where(goqu.Ex{"device_description_id": id}).
		Order(goqu.I("id").Desc()).Limit(1).ToSQL()
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-ORIGINAL-SELECTSQL " + err.Error())
	}

	ao := model.ArchivedOriginal{DeviceDescriptionID: id}
	var format string
	var inline []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&ao.ID, &ao.ContentHash, &format, &ao.ParserVersion, &ao.Size, &ao.StorageBackend, &inline, &ao.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		exists, existsErr := s.exists(ctx, id)
		if existsErr != nil {
			return nil, existsErr
		}
		if !exists {
			return nil, dderrors.NewDeviceDescriptionNotFound(id)
		}
		return nil, &model.PrerequisiteMissingError{DeviceDescriptionID: id, Missing: "archived original"}
	}
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-ORIGINAL-EXECSQL " + err.Error())
	}
	ao.Format = model.FormatKind(format)

	blobs := s.blobs
	if ao.StorageBackend == BackendInline {
		blobs = InlineBlobStore{}
	}
	ao.Content, err = blobs.Get(ctx, ao.ContentHash, inline)
	if err != nil {
		return nil, err
	}
	if err := verifyOriginal(&ao); err != nil {
		return nil, err
	}
	return &ao, nil
}

func (s *PostgreSQLStore) exists(ctx context.Context, id int64) (bool, error) {
	dialect := goqu.Dialect("postgres")
	query, args, err := dialect.From("device_description").Prepared(true).Select(goqu.L("1")).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return false, common.NewInternalServerError("DDREPO-EXISTS-SELECTSQL " + err.Error())
	}
	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, common.NewInternalServerError("DDREPO-EXISTS-EXECSQL " + err.Error())
	}
	return true, nil
}

// List implements Store.
func (s *PostgreSQLStore) List(ctx context.Context, filter model.DeviceFilter) ([]DeviceSummary, error) {
	dialect := goqu.Dialect("postgres")
	ds := dialect.From(goqu.T("device_description").As("d")).Prepared(true).
		Select(
			goqu.I("d.id"), goqu.I("d.format"), goqu.I("d.vendor_id"), goqu.I("d.device_id"),
			goqu.I("d.product_name"), goqu.I("d.source_hash"), goqu.I("d.imported_at"),
			goqu.L("(SELECT MAX(q.id) FROM quality_metric q WHERE q.device_description_id = d.id)").As("last_metric_id"),
		).
		Order(goqu.I("d.id").Asc())
	if filter.Format != "" {
		ds = ds.Where(goqu.I("d.format").Eq(string(filter.Format)))
	}
	if filter.Unanalyzed {
		ds = ds.Where(goqu.L("NOT EXISTS (SELECT 1 FROM quality_metric q WHERE q.device_description_id = d.id)"))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-LIST-SELECTSQL " + err.Error())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-LIST-EXECSQL " + err.Error())
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]DeviceSummary, 0)
	for rows.Next() {
		var sum DeviceSummary
		var format string
		var productName sql.NullString
		var lastMetric sql.NullInt64
		if err := rows.Scan(&sum.ID, &format, &sum.VendorID, &sum.DeviceID, &productName, &sum.SourceHash, &sum.ImportedAt, &lastMetric); err != nil {
			return nil, common.NewInternalServerError("DDREPO-LIST-SCAN " + err.Error())
		}
		sum.Format = model.FormatKind(format)
		sum.ProductName = productName.String
		sum.LastMetricID = lastMetric.Int64
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewInternalServerError("DDREPO-LIST-ITER " + err.Error())
	}
	return result, nil
}

// Delete implements Store. The entity graph, archive rows and metrics
// cascade. Objects of an external blob store are shared by content hash and
// stay in place.
func (s *PostgreSQLStore) Delete(ctx context.Context, id int64) error {
	dialect := goqu.Dialect("postgres")
	query, args, err := dialect.Delete("device_description").Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return common.NewInternalServerError("DDREPO-DELETE-SQL " + err.Error())
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return common.NewInternalServerError("DDREPO-DELETE-EXECSQL " + err.Error())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return common.NewInternalServerError("DDREPO-DELETE-ROWSAFFECTED " + err.Error())
	}
	if affected == 0 {
		return dderrors.NewDeviceDescriptionNotFound(id)
	}
	return nil
}

// SaveMetric implements Store.
func (s *PostgreSQLStore) SaveMetric(ctx context.Context, m *model.QualityMetric) (int64, error) {
	err := transaction.Run(ctx, s.db, nil, func(tx *sql.Tx) error {
		dialect := goqu.Dialect("postgres")

		query, args, err := dialect.From("device_description").Prepared(true).
			Select("id").Where(goqu.Ex{"id": m.DeviceDescriptionID}).
			ForUpdate(exp.Wait).ToSQL()
		if err != nil {
			return common.NewInternalServerError("DDREPO-SAVEMETRIC-LOCKSQL " + err.Error())
		}
		var locked int64
		err = tx.QueryRowContext(ctx, query, args...).Scan(&locked)
		if errors.Is(err, sql.ErrNoRows) {
			return dderrors.NewDeviceDescriptionNotFound(m.DeviceDescriptionID)
		}
		if err != nil {
			return common.NewInternalServerError("DDREPO-SAVEMETRIC-EXECLOCK " + err.Error())
		}

		query, args, err = dialect.Insert("quality_metric").Prepared(true).
			Rows(goqu.Record{
				"device_description_id":    m.DeviceDescriptionID,
				"status":                   string(m.Status),
				"failure_reason":           nullString(m.FailureReason),
				"overall_score":            m.OverallScore,
				"structural_score":         m.StructuralScore,
				"attribute_score":          m.AttributeScore,
				"value_score":              m.ValueScore,
				"data_loss_percentage":     m.DataLossPercentage,
				"original_elements":        m.OriginalElements,
				"reconstructed_elements":   m.ReconstructedElements,
				"original_attributes":      m.OriginalAttributes,
				"reconstructed_attributes": m.ReconstructedAttributes,
				"parser_version":           m.ParserVersion,
				"source_hash":              m.SourceHash,
			}).
			Returning(goqu.I("id"), goqu.I("created_at")).ToSQL()
		if err != nil {
			return common.NewInternalServerError("DDREPO-SAVEMETRIC-INSERTSQL " + err.Error())
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&m.ID, &m.CreatedAt); err != nil {
			return classify("DDREPO-SAVEMETRIC-EXECSQL", err)
		}

		for start := 0; start < len(m.Diffs); start += diffInsertBatch {
			end := min(start+diffInsertBatch, len(m.Diffs))
			rows := make([]interface{}, 0, end-start)
			for i := start; i < end; i++ {
				d := &m.Diffs[i]
				d.MetricID = m.ID
				rows = append(rows, goqu.Record{
					"quality_metric_id": m.ID,
					"ordinal":           d.Ordinal,
					"kind":              string(d.Kind),
					"severity":          string(d.Severity),
					"path":              d.Path,
					"expected":          nullString(d.Expected),
					"actual":            nullString(d.Actual),
				})
			}
			query, args, err = dialect.Insert("diff_detail").Prepared(true).Rows(rows...).ToSQL()
			if err != nil {
				return common.NewInternalServerError("DDREPO-SAVEMETRIC-DIFFSQL " + err.Error())
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return classify("DDREPO-SAVEMETRIC-EXECDIFF", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, classify("DDREPO-SAVEMETRIC", err)
	}
	return m.ID, nil
}

// LatestMetric implements Store.
func (s *PostgreSQLStore) LatestMetric(ctx context.Context, deviceID int64) (*model.QualityMetric, error) {
	dialect := goqu.Dialect("postgres")
	query, args, err := dialect.From("quality_metric").Prepared(true).Select(metricColumns...).
		Where(goqu.Ex{"device_description_id": deviceID}).
		Order(goqu.I("id").Desc()).Limit(1).ToSQL()
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-LATESTMETRIC-SELECTSQL " + err.Error())
	}
	m, err := scanMetric(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dderrors.NewNoMetricYet(deviceID)
	}
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-LATESTMETRIC-EXECSQL " + err.Error())
	}
	return m, nil
}

// Metric implements Store.
func (s *PostgreSQLStore) Metric(ctx context.Context, metricID int64) (*model.QualityMetric, error) {
	dialect := goqu.Dialect("postgres")
	query, args, err := dialect.From("quality_metric").Prepared(true).Select(metricColumns...).
		Where(goqu.Ex{"id": metricID}).ToSQL()
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-METRIC-SELECTSQL " + err.Error())
	}
	m, err := scanMetric(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dderrors.NewMetricNotFound(metricID)
	}
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-METRIC-EXECSQL " + err.Error())
	}
	return m, nil
}

func scanMetric(row *sql.Row) (*model.QualityMetric, error) {
	var m model.QualityMetric
	var status string
	var reason sql.NullString
	err := row.Scan(
		&m.ID, &m.DeviceDescriptionID, &status, &reason, &m.OverallScore, &m.StructuralScore,
		&m.AttributeScore, &m.ValueScore, &m.DataLossPercentage, &m.OriginalElements, &m.ReconstructedElements,
		&m.OriginalAttributes, &m.ReconstructedAttributes, &m.ParserVersion, &m.SourceHash, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Status = model.MetricStatus(status)
	m.FailureReason = reason.String
	return &m, nil
}

// Diffs implements Store.
func (s *PostgreSQLStore) Diffs(ctx context.Context, metricID int64) ([]model.DiffDetail, error) {
	dialect := goqu.Dialect("postgres")
	query, args, err := dialect.From("quality_metric").Prepared(true).Select(goqu.L("1")).Where(goqu.Ex{"id": metricID}).ToSQL()
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-DIFFS-METRICSQL " + err.Error())
	}
	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dderrors.NewMetricNotFound(metricID)
	}
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-DIFFS-EXECMETRIC " + err.Error())
	}

	query, args, err = dialect.From("diff_detail").Prepared(true).
		Select("id", "quality_metric_id", "ordinal", "kind", "severity", "path", "expected", "actual").
		Where(goqu.Ex{"quality_metric_id": metricID}).
		Order(goqu.I("ordinal").Asc()).ToSQL()
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-DIFFS-SELECTSQL " + err.Error())
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewInternalServerError("DDREPO-DIFFS-EXECSQL " + err.Error())
	}
	defer func() {
		_ = rows.Close()
	}()

	diffs := make([]model.DiffDetail, 0)
	for rows.Next() {
		var d model.DiffDetail
		var kind, severity string
		var expected, actual sql.NullString
		if err := rows.Scan(&d.ID, &d.MetricID, &d.Ordinal, &kind, &severity, &d.Path, &expected, &actual); err != nil {
			return nil, common.NewInternalServerError("DDREPO-DIFFS-SCAN " + err.Error())
		}
		d.Kind = model.DiffKind(kind)
		d.Severity = model.Severity(severity)
		d.Expected = expected.String
		d.Actual = actual.String
		diffs = append(diffs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewInternalServerError("DDREPO-DIFFS-ITER " + err.Error())
	}
	return diffs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// classify keeps errors that already carry an HTTP class and maps driver
// errors to one.
func classify(code string, err error) error {
	if common.IsErrNotFound(err) || common.IsErrBadRequest(err) || common.IsErrConflict(err) ||
		common.IsInternalServerError(err) || model.IsPrerequisiteMissing(err) {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return common.NewErrConflict(code + " " + pqErr.Message)
		case "23503":
			return common.NewErrNotFound(code + " " + pqErr.Message)
		}
	}
	return common.NewInternalServerError(code + " " + err.Error())
}
