package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// documentRow is the single table backing every collection.
type documentRow struct {
	Collection string `gorm:"primaryKey;size:64"`
	ID         string `gorm:"primaryKey;size:255"`
	Data       string `gorm:"type:text;not null"`
	UpdatedAt  time.Time
}

func (documentRow) TableName() string {
	return "documents"
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*sqliteOptions)

type sqliteOptions struct {
	logLevel logger.LogLevel
}

// WithSQLLogLevel sets gorm's SQL log level. The default is logger.Warn.
func WithSQLLogLevel(level logger.LogLevel) SQLiteOption {
	return func(o *sqliteOptions) { o.logLevel = level }
}

// SQLiteStore stores documents as JSON text in SQLite.
type SQLiteStore struct {
	db *gorm.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a document database at path.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	o := sqliteOptions{logLevel: logger.Warn}
	for _, opt := range opts {
		opt(&o)
	}

	dsn := path + "?_busy_timeout=5000&_txlock=immediate&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(o.logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying connection: %w", err)
	}
	// One writer at a time; transactions serialize on the connection.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate document database: %w", err)
	}

	log.Printf("Document store initialized at %s", path)
	return &SQLiteStore{db: db}, nil
}

// DB exposes the gorm handle for diagnostics.
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	data, found, err := loadRow(s.db.WithContext(ctx), collection, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return &Document{Collection: collection, ID: id, Data: data}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, collection, id string, data any) error {
	w, err := newWrite(writeCreate, collection, id, data)
	if err != nil {
		return err
	}
	return applyRowWrite(s.db.WithContext(ctx), w)
}

func (s *SQLiteStore) Set(ctx context.Context, collection, id string, data any) error {
	w, err := newWrite(writeSet, collection, id, data)
	if err != nil {
		return err
	}
	return applyRowWrite(s.db.WithContext(ctx), w)
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	w, err := newUpdateWrite(collection, id, fields)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return applyRowWrite(tx, w)
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	w, err := newWrite(writeDelete, collection, id, nil)
	if err != nil {
		return err
	}
	return applyRowWrite(s.db.WithContext(ctx), w)
}

func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]*Document, error) {
	return queryRows(s.db.WithContext(ctx), q)
}

func (s *SQLiteStore) Count(ctx context.Context, q Query) (int64, error) {
	if err := q.Err(); err != nil {
		return 0, err
	}
	tx, err := compileQuery(s.db.WithContext(ctx).Model(&documentRow{}), q, false)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", q.collection, err)
	}
	return n, nil
}

func (s *SQLiteStore) Batch() Batch {
	return &sqliteBatch{store: s}
}

func (s *SQLiteStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&sqliteTx{db: gtx})
	})
}

type sqliteBatch struct {
	store  *SQLiteStore
	writes []write
}

func (b *sqliteBatch) Set(collection, id string, data any) error {
	w, err := newWrite(writeSet, collection, id, data)
	if err != nil {
		return err
	}
	b.writes = append(b.writes, w)
	return nil
}

func (b *sqliteBatch) Update(collection, id string, fields map[string]any) error {
	w, err := newUpdateWrite(collection, id, fields)
	if err != nil {
		return err
	}
	b.writes = append(b.writes, w)
	return nil
}

func (b *sqliteBatch) Delete(collection, id string) {
	b.writes = append(b.writes, write{kind: writeDelete, collection: collection, id: id})
}

func (b *sqliteBatch) Len() int {
	return len(b.writes)
}

func (b *sqliteBatch) Commit(ctx context.Context) error {
	if len(b.writes) > MaxBatchWrites {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(b.writes), MaxBatchWrites)
	}
	if len(b.writes) == 0 {
		return nil
	}
	return b.store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, w := range b.writes {
			if err := applyRowWrite(tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// sqliteTx runs every call inside the surrounding SQL transaction.
type sqliteTx struct {
	db *gorm.DB
}

func (t *sqliteTx) Get(ctx context.Context, collection, id string) (*Document, error) {
	data, found, err := loadRow(t.db.WithContext(ctx), collection, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return &Document{Collection: collection, ID: id, Data: data}, nil
}

func (t *sqliteTx) Create(collection, id string, data any) error {
	w, err := newWrite(writeCreate, collection, id, data)
	if err != nil {
		return err
	}
	return applyRowWrite(t.db, w)
}

func (t *sqliteTx) Set(collection, id string, data any) error {
	w, err := newWrite(writeSet, collection, id, data)
	if err != nil {
		return err
	}
	return applyRowWrite(t.db, w)
}

func (t *sqliteTx) Update(collection, id string, fields map[string]any) error {
	w, err := newUpdateWrite(collection, id, fields)
	if err != nil {
		return err
	}
	return applyRowWrite(t.db, w)
}

func (t *sqliteTx) Delete(collection, id string) error {
	w, err := newWrite(writeDelete, collection, id, nil)
	if err != nil {
		return err
	}
	return applyRowWrite(t.db, w)
}

func loadRow(db *gorm.DB, collection, id string) (map[string]any, bool, error) {
	var rows []documentRow
	err := db.Where("collection = ? AND id = ?", collection, id).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	data, err := decodeRow(rows[0])
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func decodeRow(row documentRow) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", row.Collection, row.ID, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

func encodeRow(collection, id string, data map[string]any) (*documentRow, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	return &documentRow{Collection: collection, ID: id, Data: string(raw)}, nil
}

func applyRowWrite(db *gorm.DB, w write) error {
	switch w.kind {
	case writeCreate:
		row, err := encodeRow(w.collection, w.id, w.data)
		if err != nil {
			return err
		}
		if err := db.Create(row).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%s/%s: %w", w.collection, w.id, ErrAlreadyExists)
			}
			return fmt.Errorf("create %s/%s: %w", w.collection, w.id, err)
		}
		return nil
	case writeSet:
		return upsertRow(db, w.collection, w.id, w.data)
	case writeUpdate:
		current, _, err := loadRow(db, w.collection, w.id)
		if err != nil {
			return err
		}
		next, err := w.apply(current)
		if err != nil {
			return err
		}
		return upsertRow(db, w.collection, w.id, next)
	default:
		err := db.Where("collection = ? AND id = ?", w.collection, w.id).Delete(&documentRow{}).Error
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", w.collection, w.id, err)
		}
		return nil
	}
}

func upsertRow(db *gorm.DB, collection, id string, data map[string]any) error {
	row, err := encodeRow(collection, id, data)
	if err != nil {
		return err
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func queryRows(db *gorm.DB, q Query) ([]*Document, error) {
	if err := q.Err(); err != nil {
		return nil, err
	}
	tx, err := compileQuery(db.Model(&documentRow{}), q, true)
	if err != nil {
		return nil, err
	}
	var rows []documentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", q.collection, err)
	}
	out := make([]*Document, 0, len(rows))
	for _, row := range rows {
		data, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, &Document{Collection: row.Collection, ID: row.ID, Data: data})
	}
	return out, nil
}

func jsonPath(field string) string {
	return "'$." + field + "'"
}

// compileQuery translates q into SQL. Field paths are validated by the
// builder, so they are safe to interpolate.
func compileQuery(db *gorm.DB, q Query, paged bool) (*gorm.DB, error) {
	tx := db.Where("collection = ?", q.collection)
	for _, f := range q.filters {
		cond, args, err := filterSQL(f)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(cond, args...)
	}
	for _, o := range q.orders {
		tx = tx.Where(fmt.Sprintf("json_type(data, %s) IS NOT NULL", jsonPath(o.Field)))
	}
	if !paged {
		return tx, nil
	}

	if q.startAfter != nil {
		cond, args, err := cursorSQL(q)
		if err != nil {
			return nil, err
		}
		tx = tx.Where(cond, args...)
	}
	for _, o := range q.orders {
		tx = tx.Order(fmt.Sprintf("json_extract(data, %s) %s", jsonPath(o.Field), dirSQL(o.Dir)))
	}
	tx = tx.Order("id " + dirSQL(q.tiebreak()))
	if q.limit > 0 {
		tx = tx.Limit(q.limit)
	}
	return tx, nil
}

func dirSQL(d Direction) string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// typeGuard restricts expr (a json_type or json_each.type expression) to the
// type class of v.
func typeGuard(expr string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return expr + " = 'null'", nil
	case bool:
		if t {
			return expr + " = 'true'", nil
		}
		return expr + " = 'false'", nil
	case float64:
		return expr + " IN ('integer', 'real')", nil
	case string:
		return expr + " = 'text'", nil
	default:
		return "", fmt.Errorf("filter value of type %T is not supported by the SQL backend", v)
	}
}

func filterSQL(f Filter) (string, []any, error) {
	path := jsonPath(f.Field)
	if f.Op == ArrayContains {
		guard, err := typeGuard("je.type", f.Value)
		if err != nil {
			return "", nil, err
		}
		cond := fmt.Sprintf(
			"json_type(data, %s) = 'array' AND EXISTS (SELECT 1 FROM json_each(documents.data, %s) AS je WHERE %s",
			path, path, guard,
		)
		switch f.Value.(type) {
		case nil, bool:
			return cond + ")", nil, nil
		}
		return cond + " AND je.value = ?)", []any{f.Value}, nil
	}

	guard, err := typeGuard(fmt.Sprintf("json_type(data, %s)", path), f.Value)
	if err != nil {
		return "", nil, err
	}
	switch f.Value.(type) {
	case nil, bool:
		if f.Op != Eq {
			return "", nil, fmt.Errorf("operator %s is not supported for %T values", f.Op, f.Value)
		}
		return guard, nil, nil
	}
	var op string
	switch f.Op {
	case Eq:
		op = "="
	case Lt:
		op = "<"
	case Lte:
		op = "<="
	case Gt:
		op = ">"
	case Gte:
		op = ">="
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", f.Op)
	}
	return fmt.Sprintf("%s AND json_extract(data, %s) %s ?", guard, path, op), []any{f.Value}, nil
}

// cursorSQL expands "strictly after cursor" over the order keys plus id.
func cursorSQL(q Query) (string, []any, error) {
	values, err := q.cursorValues()
	if err != nil {
		return "", nil, err
	}
	for i, v := range values {
		switch v.(type) {
		case nil, bool, float64, string:
		default:
			return "", nil, fmt.Errorf("cursor value for %s has unsupported type %T", q.orders[i].Field, v)
		}
	}

	var ors []string
	var args []any
	for i := 0; i <= len(q.orders); i++ {
		var parts []string
		for j := 0; j < i; j++ {
			parts = append(parts, fmt.Sprintf("json_extract(data, %s) IS ?", jsonPath(q.orders[j].Field)))
			args = append(args, values[j])
		}
		if i < len(q.orders) {
			parts = append(parts, fmt.Sprintf("json_extract(data, %s) %s ?", jsonPath(q.orders[i].Field), afterOp(q.orders[i].Dir)))
			args = append(args, values[i])
		} else {
			parts = append(parts, "id "+afterOp(q.tiebreak())+" ?")
			args = append(args, q.startAfter.ID)
		}
		ors = append(ors, "("+strings.Join(parts, " AND ")+")")
	}
	return "(" + strings.Join(ors, " OR ") + ")", args, nil
}

func afterOp(d Direction) string {
	if d == Desc {
		return "<"
	}
	return ">"
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && sqErr.Code == sqlite3.ErrConstraint {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isSQLiteBusy(err error) bool {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}
