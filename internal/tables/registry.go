// Package tables maps report types to their physical record and question
// tables. It creates tables on first use, keeps a cache of their column sets
// and applies column renames and drops when a report type's field list is
// edited.
package tables

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Table is a snapshot of one physical table. Columns excludes the primary
// key and follows field order.
type Table struct {
	Name    string
	Columns []string
	// Version increases with every column change seen by the registry.
	Version int
}

// Has reports whether col is a data column of the table.
func (t Table) Has(col string) bool {
	return slices.Contains(t.Columns, col)
}

func (t *Table) clone() Table {
	return Table{Name: t.Name, Columns: slices.Clone(t.Columns), Version: t.Version}
}

// Registry caches table definitions by physical name and hands out one lock
// per report type.
//
// The cache is written as soon as DDL succeeds on the caller's transaction.
// Callers must Invalidate the affected names when that transaction does not
// commit.
type Registry struct {
	mu     sync.Mutex
	tables map[string]*Table
	locks  map[uint]*sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		tables: make(map[string]*Table),
		locks:  make(map[uint]*sync.RWMutex),
	}
}

// Lock returns the lock guarding the tables of one report type. Schema
// changes take the write side, row operations the read side.
func (r *Registry) Lock(reportTypeID uint) *sync.RWMutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[reportTypeID]
	if !ok {
		l = &sync.RWMutex{}
		r.locks[reportTypeID] = l
	}
	return l
}

// RecordTable returns the record table of a report type, creating it with
// one text column per field if it does not exist.
func (r *Registry) RecordTable(tx *gorm.DB, reportTypeID uint, fields []string) (Table, error) {
	return r.Ensure(tx, RecordTableName(reportTypeID), fields)
}

// QuestionTable is RecordTable for the struct-mode question table.
func (r *Registry) QuestionTable(tx *gorm.DB, reportTypeID uint, fields []string) (Table, error) {
	return r.Ensure(tx, QuestionTableName(reportTypeID), fields)
}

// Ensure returns the table called name. A cached definition is returned as
// is; otherwise an existing table is introspected once, and a missing one is
// created from fields.
func (r *Registry) Ensure(tx *gorm.DB, name string, fields []string) (Table, error) {
	if t, ok := r.cached(name); ok {
		return t, nil
	}

	var cols []string
	if tx.Migrator().HasTable(name) {
		live, err := liveColumns(tx, name)
		if err != nil {
			return Table{}, fmt.Errorf("inspect table %s: %w", name, err)
		}
		cols = live
	} else {
		if err := ValidateFields(fields); err != nil {
			return Table{}, err
		}
		if err := createTable(tx, name, fields); err != nil {
			return Table{}, fmt.Errorf("create table %s: %w", name, err)
		}
		cols = slices.Clone(fields)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[name]
	if !ok {
		t = &Table{Name: name, Columns: cols, Version: 1}
		r.tables[name] = t
	}
	return t.clone(), nil
}

// Invalidate forgets cached definitions; the next Ensure re-reads them.
func (r *Registry) Invalidate(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		delete(r.tables, n)
	}
}

// InvalidateReportType forgets both tables of a report type.
func (r *Registry) InvalidateReportType(reportTypeID uint) {
	r.Invalidate(RecordTableName(reportTypeID), QuestionTableName(reportTypeID))
}

func (r *Registry) cached(name string) (Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[name]
	if !ok {
		return Table{}, false
	}
	return t.clone(), true
}

func createTable(tx *gorm.DB, name string, fields []string) error {
	var sb strings.Builder
	vars := make([]interface{}, 0, len(fields)+2)
	sb.WriteString("CREATE TABLE IF NOT EXISTS ? (? ")
	sb.WriteString(primaryKeyType(tx))
	vars = append(vars, clause.Table{Name: name}, clause.Column{Name: PrimaryKey})
	for _, f := range fields {
		sb.WriteString(", ? TEXT")
		vars = append(vars, clause.Column{Name: f})
	}
	sb.WriteString(")")
	return tx.Exec(sb.String(), vars...).Error
}

func primaryKeyType(tx *gorm.DB) string {
	if tx.Dialector.Name() == "sqlite" {
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "BIGSERIAL PRIMARY KEY"
}

// liveColumns reads the column order of an existing table.
func liveColumns(tx *gorm.DB, name string) ([]string, error) {
	rows, err := tx.Table(name).Limit(1).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	all, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(all))
	for _, c := range all {
		if c != PrimaryKey {
			cols = append(cols, c)
		}
	}
	return cols, nil
}
