package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reportgen/internal/testutil"
)

func TestPlanFieldEdit(t *testing.T) {
	tests := []struct {
		name     string
		old, new []string
		want     Plan
		wantErr  error
	}{
		{
			name: "no change",
			old:  []string{"a", "b"},
			new:  []string{"a", "b"},
		},
		{
			name: "rename one",
			old:  []string{"a", "b"},
			new:  []string{"alpha", "b"},
			want: Plan{Renames: []Rename{{From: "a", To: "alpha"}}},
		},
		{
			name: "rename all in order",
			old:  []string{"a", "b"},
			new:  []string{"x", "y"},
			want: Plan{Renames: []Rename{{From: "a", To: "x"}, {From: "b", To: "y"}}},
		},
		{
			name: "drop tail",
			old:  []string{"a", "b", "c"},
			new:  []string{"a"},
			want: Plan{Drops: []string{"b", "c"}},
		},
		{
			name:    "longer list",
			old:     []string{"a"},
			new:     []string{"a", "b"},
			wantErr: ErrUnsupportedEdit,
		},
		{
			name:    "swap",
			old:     []string{"a", "b"},
			new:     []string{"b", "a"},
			wantErr: ErrUnsupportedEdit,
		},
		{
			name:    "remove from middle",
			old:     []string{"a", "b", "c"},
			new:     []string{"a", "c"},
			wantErr: ErrUnsupportedEdit,
		},
		{
			name:    "case-only duplicate",
			old:     []string{"a", "b"},
			new:     []string{"a", "A"},
			wantErr: ErrInvalidIdentifier,
		},
		{
			name:    "case-only rename",
			old:     []string{"a", "b"},
			new:     []string{"A", "b"},
			wantErr: ErrUnsupportedEdit,
		},
		{
			name:    "rename onto later column in other case",
			old:     []string{"a", "b", "c"},
			new:     []string{"a", "C"},
			wantErr: ErrUnsupportedEdit,
		},
		{
			name:    "invalid name",
			old:     []string{"a"},
			new:     []string{"a b"},
			wantErr: ErrInvalidIdentifier,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanFieldEdit(tt.old, tt.new)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want.Renames, got.Renames)
			assert.ElementsMatch(t, tt.want.Drops, got.Drops)
		})
	}
}

func TestEvolveReportTypeRenamePreservesData(t *testing.T) {
	db := testutil.DB(t)
	reg := NewRegistry()

	_, err := reg.RecordTable(db, 1, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("INSERT INTO report_1 (a, b) VALUES ('x', 'y')").Error)

	_, err = reg.EvolveReportType(db, 1, false, []string{"a", "b"}, []string{"alpha", "b"})
	require.NoError(t, err)

	tbl, err := reg.RecordTable(db, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "b"}, tbl.Columns)
	assert.Equal(t, 2, tbl.Version)

	var rows []map[string]interface{}
	require.NoError(t, db.Table("report_1").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0]["id"])
	assert.EqualValues(t, "x", rows[0]["alpha"])
	assert.EqualValues(t, "y", rows[0]["b"])
}

func TestEvolveReportTypeTouchesQuestionTable(t *testing.T) {
	db := testutil.DB(t)
	reg := NewRegistry()
	_, err := reg.RecordTable(db, 4, []string{"a", "b", "c"})
	require.NoError(t, err)

	// The question table does not exist yet and is created on the way.
	_, err = reg.EvolveReportType(db, 4, true, []string{"a", "b", "c"}, []string{"q", "b"})
	require.NoError(t, err)

	// A fresh registry sees the live shape of both tables.
	fresh := NewRegistry()
	rec, err := fresh.RecordTable(db, 4, nil)
	require.NoError(t, err)
	qs, err := fresh.QuestionTable(db, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"q", "b"}, rec.Columns)
	assert.Equal(t, []string{"q", "b"}, qs.Columns)
}

func TestEvolveReportTypeAllOrNothingInTransaction(t *testing.T) {
	db := testutil.DB(t)
	reg := NewRegistry()
	_, err := reg.RecordTable(db, 5, []string{"a", "b"})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := reg.EvolveReportType(tx, 5, false, []string{"a", "b"}, []string{"x", "y"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	reg.InvalidateReportType(5)

	tbl, err := reg.RecordTable(db, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
}

func TestDropReportType(t *testing.T) {
	db := testutil.DB(t)
	reg := NewRegistry()
	_, err := reg.RecordTable(db, 6, []string{"a"})
	require.NoError(t, err)
	_, err = reg.QuestionTable(db, 6, []string{"a"})
	require.NoError(t, err)

	require.NoError(t, reg.DropReportType(db, 6))
	assert.EqualValues(t, 0, countTables(t, db, "report_6"))
	assert.EqualValues(t, 0, countTables(t, db, "report_6_questions"))

	// Dropping again is a no-op.
	require.NoError(t, reg.DropReportType(db, 6))
	_, cached := reg.cached("report_6")
	assert.False(t, cached)
}
