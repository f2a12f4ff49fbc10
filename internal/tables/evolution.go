package tables

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnsupportedEdit = errors.New("unsupported field list edit")

// Rename is one column rename.
type Rename struct {
	From string
	To   string
}

// Plan is the physical change set for a field list edit: renames in field
// order, then drops of the removed tail.
type Plan struct {
	Renames []Rename
	Drops   []string
}

func (p Plan) Empty() bool {
	return len(p.Renames) == 0 && len(p.Drops) == 0
}

// PlanFieldEdit turns an edit of a field list into renames and tail drops.
// Only positional renames and removal from the end are supported: a longer
// list, or a name that moves to another position, is rejected.
func PlanFieldEdit(oldFields, newFields []string) (Plan, error) {
	if len(newFields) > len(oldFields) {
		return Plan{}, fmt.Errorf("%w: %d fields given, table has %d; fields can only be renamed or removed from the end",
			ErrUnsupportedEdit, len(newFields), len(oldFields))
	}
	if err := ValidateFields(newFields); err != nil {
		return Plan{}, err
	}

	var plan Plan
	for i, name := range newFields {
		if name == oldFields[i] {
			continue
		}
		j := slices.IndexFunc(oldFields, func(f string) bool { return strings.EqualFold(f, name) })
		switch {
		case j == i:
			return Plan{}, fmt.Errorf("%w: field %q only changes letter case", ErrUnsupportedEdit, oldFields[i])
		case j >= 0:
			return Plan{}, fmt.Errorf("%w: field %q moves from position %d to %d; reordering is not supported",
				ErrUnsupportedEdit, name, j+1, i+1)
		}
		plan.Renames = append(plan.Renames, Rename{From: oldFields[i], To: name})
	}
	plan.Drops = slices.Clone(oldFields[len(newFields):])
	return plan, nil
}

// Apply runs plan against the table called name, column by column on tx.
// Wrap the call in a transaction for all-or-nothing behaviour.
func (r *Registry) Apply(tx *gorm.DB, name string, plan Plan) error {
	for _, rn := range plan.Renames {
		if err := ValidateIdentifier(rn.To); err != nil {
			return err
		}
		err := tx.Exec("ALTER TABLE ? RENAME COLUMN ? TO ?",
			clause.Table{Name: name}, clause.Column{Name: rn.From}, clause.Column{Name: rn.To}).Error
		if err != nil {
			return fmt.Errorf("rename column %s.%s to %s: %w", name, rn.From, rn.To, err)
		}
	}
	for _, col := range plan.Drops {
		err := tx.Exec("ALTER TABLE ? DROP COLUMN ?", clause.Table{Name: name}, clause.Column{Name: col}).Error
		if err != nil {
			return fmt.Errorf("drop column %s.%s: %w", name, col, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tables[name]; ok && !plan.Empty() {
		for _, rn := range plan.Renames {
			if i := slices.Index(t.Columns, rn.From); i >= 0 {
				t.Columns[i] = rn.To
			}
		}
		t.Columns = slices.DeleteFunc(t.Columns, func(c string) bool {
			return slices.Contains(plan.Drops, c)
		})
		t.Version++
	}
	return nil
}

// EvolveReportType applies a field list edit to the record table and, when
// withQuestions is set, to the question table. Missing tables are created
// from oldFields first so the edit always has something to act on.
func (r *Registry) EvolveReportType(tx *gorm.DB, reportTypeID uint, withQuestions bool, oldFields, newFields []string) (Plan, error) {
	plan, err := PlanFieldEdit(oldFields, newFields)
	if err != nil {
		return Plan{}, err
	}
	if plan.Empty() {
		return plan, nil
	}
	names := []string{RecordTableName(reportTypeID)}
	if withQuestions {
		names = append(names, QuestionTableName(reportTypeID))
	}
	for _, name := range names {
		if _, err := r.Ensure(tx, name, oldFields); err != nil {
			return Plan{}, err
		}
		if err := r.Apply(tx, name, plan); err != nil {
			return Plan{}, err
		}
	}
	return plan, nil
}

// DropTable drops the table called name if it exists and forgets it.
func (r *Registry) DropTable(tx *gorm.DB, name string) error {
	if err := tx.Exec("DROP TABLE IF EXISTS ?", clause.Table{Name: name}).Error; err != nil {
		return fmt.Errorf("drop table %s: %w", name, err)
	}
	r.Invalidate(name)
	return nil
}

// DropReportType drops the record and question tables of a report type.
// Tables that do not exist are skipped.
func (r *Registry) DropReportType(tx *gorm.DB, reportTypeID uint) error {
	if err := r.DropTable(tx, RecordTableName(reportTypeID)); err != nil {
		return err
	}
	return r.DropTable(tx, QuestionTableName(reportTypeID))
}
