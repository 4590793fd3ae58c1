package repositories

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ErrUnknownProperty is a programming error: a filter or property name that
// the record type does not declare.
var ErrUnknownProperty = errors.New("unknown record property")

// Record is any persisted row carrying an integer identity.
type Record interface {
	GetID() int64
}

// Filter matches columns by name with equality.
type Filter map[string]any

// RecordStore maps one record type to its table. Insert versus update is
// decided only by the presence of an identity and every save writes every
// declared column.
type RecordStore[T Record] struct {
	db *gorm.DB
}

func NewRecordStore[T Record](db *gorm.DB) *RecordStore[T] {
	return &RecordStore[T]{db: db}
}

// WithDB returns a store bound to another handle, e.g. a transaction.
func (s *RecordStore[T]) WithDB(db *gorm.DB) *RecordStore[T] {
	return &RecordStore[T]{db: db}
}

func (s *RecordStore[T]) schema() (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("failed to parse record schema: %w", err)
	}
	return stmt.Schema, nil
}

// Exists is true iff the record carries an identity.
func (s *RecordStore[T]) Exists(rec T) bool {
	return rec.GetID() != 0
}

// Load fetches one record by primary key; a missing row is nil, nil.
func (s *RecordStore[T]) Load(ctx context.Context, id int64) (*T, error) {
	var rec T
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load record %d: %w", id, err)
	}
	return &rec, nil
}

// LoadBy fetches the first record matching filter; a missing row is nil, nil.
func (s *RecordStore[T]) LoadBy(ctx context.Context, filter Filter) (*T, error) {
	if err := s.checkColumns(filter); err != nil {
		return nil, err
	}

	var rec T
	err := s.db.WithContext(ctx).Where(map[string]any(filter)).Order("id").First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return &rec, nil
}

// Save inserts a record without identity, otherwise updates all its columns.
func (s *RecordStore[T]) Save(ctx context.Context, rec *T) error {
	tx := s.db.WithContext(ctx)
	if !s.Exists(*rec) {
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		return nil
	}

	if err := tx.Save(rec).Error; err != nil {
		return fmt.Errorf("failed to update record %d: %w", (*rec).GetID(), err)
	}
	return nil
}

// All returns the records matching filter in the given order (default id).
func (s *RecordStore[T]) All(ctx context.Context, filter Filter, order ...string) ([]T, error) {
	if err := s.checkColumns(filter); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx)
	if len(filter) > 0 {
		q = q.Where(map[string]any(filter))
	}
	if len(order) == 0 {
		order = []string{"id"}
	}
	for _, o := range order {
		q = q.Order(o)
	}

	var out []T
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return out, nil
}

func (s *RecordStore[T]) Delete(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error; err != nil {
		return fmt.Errorf("failed to delete record %d: %w", id, err)
	}
	return nil
}

// MapRecord copies the columns of a flat record onto dst by column name.
// Columns the type does not declare are ignored.
func (s *RecordStore[T]) MapRecord(ctx context.Context, row map[string]any, dst *T) error {
	sch, err := s.schema()
	if err != nil {
		return err
	}

	rv := reflect.ValueOf(dst).Elem()
	for _, f := range sch.Fields {
		if f.DBName == "" {
			continue
		}
		v, ok := row[f.DBName]
		if !ok {
			continue
		}
		if err := f.Set(ctx, rv, v); err != nil {
			return fmt.Errorf("failed to map column %s: %w", f.DBName, err)
		}
	}
	return nil
}

// Property reads a declared property of rec by column or Go field name.
func (s *RecordStore[T]) Property(ctx context.Context, rec *T, name string) (any, error) {
	sch, err := s.schema()
	if err != nil {
		return nil, err
	}

	f := sch.LookUpField(name)
	if f == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownProperty, sch.Table, name)
	}
	v, _ := f.ValueOf(ctx, reflect.ValueOf(rec).Elem())
	return v, nil
}

func (s *RecordStore[T]) checkColumns(filter Filter) error {
	if len(filter) == 0 {
		return nil
	}
	sch, err := s.schema()
	if err != nil {
		return err
	}
	for name := range filter {
		if f := sch.LookUpField(name); f == nil || f.DBName != name {
			return fmt.Errorf("%w: %s.%s", ErrUnknownProperty, sch.Table, name)
		}
	}
	return nil
}
