package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reportgen/internal/models"
	"reportgen/internal/tables"
)

// Record is one row of a report type's record table. Values holds the
// non-null columns keyed by field name.
type Record struct {
	ID     int64
	Values map[string]string
}

// MarshalJSON flattens the record to {"id": ..., "<field>": "<value>", ...}.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(r.Values)+1)
	for k, v := range r.Values {
		m[k] = v
	}
	m[tables.PrimaryKey] = r.ID
	return json.Marshal(m)
}

// InsertRecord adds one row and returns its id. Keys must be fields of the
// report type.
func (s *Service) InsertRecord(ctx context.Context, rt *models.ReportType, values map[string]string) (int64, error) {
	ids, err := s.InsertRecords(ctx, rt, []map[string]string{values})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertRecords adds rows in one transaction; either all are stored or none.
func (s *Service) InsertRecords(ctx context.Context, rt *models.ReportType, rows []map[string]string) ([]int64, error) {
	l := s.registry.Lock(rt.ID)
	l.RLock()
	defer l.RUnlock()

	ids := make([]int64, 0, len(rows))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.registry.RecordTable(tx, rt.ID, rt.Fields)
		if err != nil {
			return err
		}
		for _, values := range rows {
			id, err := insertRow(tx, t, values)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		s.registry.InvalidateReportType(rt.ID)
		return nil, err
	}
	s.log.Debug("Records inserted", "report_type_id", rt.ID, "count", len(ids))
	return ids, nil
}

// Records returns every row of the report type in insertion order.
func (s *Service) Records(ctx context.Context, rt *models.ReportType) ([]Record, error) {
	l := s.registry.Lock(rt.ID)
	l.RLock()
	defer l.RUnlock()

	var out []Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.registry.RecordTable(tx, rt.ID, rt.Fields)
		if err != nil {
			return err
		}
		var rows []map[string]interface{}
		if err := tx.Table(t.Name).Order(tables.PrimaryKey).Find(&rows).Error; err != nil {
			return err
		}
		out = make([]Record, 0, len(rows))
		for _, row := range rows {
			out = append(out, toRecord(t, row))
		}
		return nil
	})
	if err != nil {
		s.registry.InvalidateReportType(rt.ID)
		return nil, err
	}
	return out, nil
}

// Record returns one row by id.
func (s *Service) Record(ctx context.Context, rt *models.ReportType, id int64) (Record, error) {
	l := s.registry.Lock(rt.ID)
	l.RLock()
	defer l.RUnlock()

	var out Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.registry.RecordTable(tx, rt.ID, rt.Fields)
		if err != nil {
			return err
		}
		var rows []map[string]interface{}
		if err := tx.Table(t.Name).Where(clause.Eq{Column: clause.Column{Name: tables.PrimaryKey}, Value: id}).Limit(1).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("record %d of report type %d: %w", id, rt.ID, ErrNotFound)
		}
		out = toRecord(t, rows[0])
		return nil
	})
	if err != nil {
		s.registry.InvalidateReportType(rt.ID)
	}
	return out, err
}

// UpdateRecord replaces text field values of one row. Only struct mode
// report types support it; values for image and video fields are ignored.
func (s *Service) UpdateRecord(ctx context.Context, rt *models.ReportType, id int64, values map[string]string) error {
	if rt.Mode != models.ModeStruct {
		return fmt.Errorf("update record: %w", ErrWrongMode)
	}
	types := rt.FieldTypeMap()
	updates := make(map[string]interface{}, len(values))
	for k, v := range values {
		ft, ok := types[k]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
		if ft == models.FieldText {
			updates[k] = v
		}
	}
	if len(updates) == 0 {
		return nil
	}

	l := s.registry.Lock(rt.ID)
	l.RLock()
	defer l.RUnlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.registry.RecordTable(tx, rt.ID, rt.Fields)
		if err != nil {
			return err
		}
		for k := range updates {
			if !t.Has(k) {
				return fmt.Errorf("%w: %q", ErrUnknownField, k)
			}
		}
		res := tx.Table(t.Name).Where(clause.Eq{Column: clause.Column{Name: tables.PrimaryKey}, Value: id}).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("record %d of report type %d: %w", id, rt.ID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		s.registry.InvalidateReportType(rt.ID)
	}
	return err
}

// DeleteRecords removes rows by id in one statement. Unknown ids are
// ignored. It returns the number of rows removed.
func (s *Service) DeleteRecords(ctx context.Context, rt *models.ReportType, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	l := s.registry.Lock(rt.ID)
	l.RLock()
	defer l.RUnlock()

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.registry.RecordTable(tx, rt.ID, rt.Fields)
		if err != nil {
			return err
		}
		res := tx.Exec("DELETE FROM ? WHERE ? IN ?", clause.Table{Name: t.Name}, clause.Column{Name: tables.PrimaryKey}, ids)
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		s.registry.InvalidateReportType(rt.ID)
		return 0, err
	}
	s.log.Info("Records deleted", "report_type_id", rt.ID, "requested", len(ids), "deleted", deleted)
	return deleted, nil
}

// insertRow inserts values into t and returns the new id. Columns are
// written in table order.
func insertRow(tx *gorm.DB, t tables.Table, values map[string]string) (int64, error) {
	for k := range values {
		if !t.Has(k) {
			return 0, fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
	}

	vars := []interface{}{clause.Table{Name: t.Name}}
	var sql string
	if len(values) == 0 {
		sql = "INSERT INTO ? DEFAULT VALUES RETURNING ?"
	} else {
		cols := make([]interface{}, 0, len(values))
		vals := make([]interface{}, 0, len(values))
		for _, c := range t.Columns {
			if v, ok := values[c]; ok {
				cols = append(cols, clause.Column{Name: c})
				vals = append(vals, v)
			}
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
		sql = "INSERT INTO ? (" + marks + ") VALUES (" + marks + ") RETURNING ?"
		vars = append(vars, cols...)
		vars = append(vars, vals...)
	}
	vars = append(vars, clause.Column{Name: tables.PrimaryKey})

	var id int64
	if err := tx.Raw(sql, vars...).Scan(&id).Error; err != nil {
		return 0, fmt.Errorf("insert into %s: %w", t.Name, err)
	}
	return id, nil
}

func toRecord(t tables.Table, row map[string]interface{}) Record {
	rec := Record{Values: make(map[string]string, len(t.Columns))}
	rec.ID, _ = toInt64(row[tables.PrimaryKey])
	for _, c := range t.Columns {
		v, ok := row[c]
		if !ok || v == nil {
			continue
		}
		rec.Values[c] = toString(v)
	}
	return rec
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case *string:
		if x == nil {
			return ""
		}
		return *x
	default:
		return fmt.Sprint(x)
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	case uint64:
		return int64(x), true
	case float64:
		return int64(x), true
	case []byte:
		n, err := strconv.ParseInt(string(x), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
