package reports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reportgen/internal/models"
	"reportgen/internal/tables"
	"reportgen/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	return NewService(db, tables.NewRegistry(), testutil.Logger(t)), db
}

func createStruct(t *testing.T, s *Service, name string, fields []string, questions ...string) *models.ReportType {
	t.Helper()
	rt, err := s.Create(context.Background(), CreateParams{Name: name, Mode: models.ModeStruct, Fields: fields, Questions: questions})
	require.NoError(t, err)
	return rt
}

func tableExists(t *testing.T, db *gorm.DB, name string) bool {
	t.Helper()
	return db.Migrator().HasTable(name)
}

func TestCreateStructProvisionsTables(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	rt := createStruct(t, s, "日報", []string{"name", "age"}, "名前は?", "年齢は?")
	assert.NotZero(t, rt.ID)
	assert.Equal(t, models.ModeStruct, rt.Mode)
	assert.Equal(t, []string{"text", "text"}, []string(rt.FieldTypes))
	assert.True(t, tableExists(t, db, tables.RecordTableName(rt.ID)))
	assert.True(t, tableExists(t, db, tables.QuestionTableName(rt.ID)))

	qs, err := s.Questions(ctx, rt)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "名前は?", "age": "年齢は?"}, qs)

	got, err := s.GetByName(ctx, "日報")
	require.NoError(t, err)
	assert.Equal(t, rt.ID, got.ID)
}

func TestCreateSmartHasNoQuestionTable(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	prompt := "extract everything"

	rt, err := s.Create(ctx, CreateParams{Name: "smart", Mode: models.ModeSmart, Fields: []string{"a"}, Prompt: &prompt})
	require.NoError(t, err)
	assert.True(t, tableExists(t, db, tables.RecordTableName(rt.ID)))
	assert.False(t, tableExists(t, db, tables.QuestionTableName(rt.ID)))
	assert.Equal(t, prompt, rt.PromptText())

	qs, err := s.Questions(ctx, rt)
	require.NoError(t, err)
	assert.Empty(t, qs)

	assert.ErrorIs(t, s.SetQuestions(ctx, rt, []string{"q"}), ErrWrongMode)
	assert.False(t, tableExists(t, db, tables.QuestionTableName(rt.ID)))
}

func TestCreateValidation(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	createStruct(t, s, "taken", []string{"a"})

	tests := []struct {
		name    string
		params  CreateParams
		wantErr error
	}{
		{"empty name", CreateParams{Name: "  ", Fields: []string{"a"}}, ErrInvalidArgument},
		{"unknown mode", CreateParams{Name: "x", Mode: "free", Fields: []string{"a"}}, ErrInvalidArgument},
		{"bad identifier", CreateParams{Name: "x", Fields: []string{"a-b"}}, tables.ErrInvalidIdentifier},
		{"reserved id", CreateParams{Name: "x", Fields: []string{"ID"}}, tables.ErrInvalidIdentifier},
		{"duplicate field", CreateParams{Name: "x", Fields: []string{"a", "a"}}, tables.ErrInvalidIdentifier},
		{"case-only duplicate", CreateParams{Name: "x", Fields: []string{"Name", "name"}}, tables.ErrInvalidIdentifier},
		{"type count", CreateParams{Name: "x", Fields: []string{"a", "b"}, FieldTypes: []string{"text"}}, ErrSchemaMismatch},
		{"unknown type", CreateParams{Name: "x", Fields: []string{"a"}, FieldTypes: []string{"audio"}}, ErrInvalidArgument},
		{"too many questions", CreateParams{Name: "x", Fields: []string{"a"}, Questions: []string{"1", "2"}}, ErrSchemaMismatch},
		{"smart with questions", CreateParams{Name: "x", Mode: models.ModeSmart, Fields: []string{"a"}, Questions: []string{"1"}}, ErrWrongMode},
		{"name taken", CreateParams{Name: "taken", Fields: []string{"b"}}, ErrNameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, tt.params)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.False(t, tableExists(t, db, "report_2"))
}

func TestCreateDropsBlankFieldsWithAlignedValues(t *testing.T) {
	s, _ := newTestService(t)
	rt, err := s.Create(context.Background(), CreateParams{
		Name:       "form",
		Fields:     []string{"a", "", "c", " "},
		FieldTypes: []string{"qa", "image", "video", "text"},
		Questions:  []string{"qa", "qb", "qc", "qd"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, []string(rt.Fields))
	assert.Equal(t, []string{"text", "video"}, []string(rt.FieldTypes))

	qs, err := s.Questions(context.Background(), rt)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "qa", "c": "qc"}, qs)
}

func TestRecordRoundTrip(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	rt := createStruct(t, s, "r", []string{"name", "note"})

	id, err := s.InsertRecord(ctx, rt, map[string]string{"name": "山田", "note": "ok"})
	require.NoError(t, err)
	_, err = s.InsertRecord(ctx, rt, map[string]string{"name": "only"})
	require.NoError(t, err)

	recs, err := s.Records(ctx, rt)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, id, recs[0].ID)
	assert.Equal(t, map[string]string{"name": "山田", "note": "ok"}, recs[0].Values)
	assert.Equal(t, map[string]string{"name": "only"}, recs[1].Values)

	one, err := s.Record(ctx, rt, id)
	require.NoError(t, err)
	assert.Equal(t, recs[0], one)

	_, err = s.Record(ctx, rt, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.InsertRecord(ctx, rt, map[string]string{"missing": "x"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestInsertEmptyRecord(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	rt := createStruct(t, s, "r", []string{"a"})

	id, err := s.InsertRecord(ctx, rt, map[string]string{})
	require.NoError(t, err)
	rec, err := s.Record(ctx, rt, id)
	require.NoError(t, err)
	assert.Empty(t, rec.Values)
}

func TestInsertRecordsIsAllOrNothing(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	rt := createStruct(t, s, "r", []string{"a"})

	_, err := s.InsertRecords(ctx, rt, []map[string]string{{"a": "1"}, {"b": "2"}})
	require.ErrorIs(t, err, ErrUnknownField)

	recs, err := s.Records(ctx, rt)
	require.NoError(t, err)
	assert.Empty(t, recs)

	ids, err := s.InsertRecords(ctx, rt, []map[string]string{{"a": "1"}, {"a": "2"}})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestRecordJSONIsFlat(t *testing.T) {
	b, err := Record{ID: 3, Values: map[string]string{"a": "x"}}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"a":"x"}`, string(b))
}

func TestDeleteRecordsBatch(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	rt := createStruct(t, s, "r", []string{"a"})

	var ids []int64
	for _, v := range []string{"1", "2", "3", "4", "5"} {
		id, err := s.InsertRecord(ctx, rt, map[string]string{"a": v})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	n, err := s.DeleteRecords(ctx, rt, []int64{ids[3]})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// ids[3] is already gone; only the two live rows count.
	n, err = s.DeleteRecords(ctx, rt, []int64{ids[1], ids[3], ids[4]})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	recs, err := s.Records(ctx, rt)
	require.NoError(t, err)
	var left []int64
	for _, r := range recs {
		left = append(left, r.ID)
	}
	assert.Equal(t, []int64{ids[0], ids[2]}, left)

	n, err = s.DeleteRecords(ctx, rt, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateRecord(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	rt, err := s.Create(ctx, CreateParams{
		Name:       "u",
		Fields:     []string{"title", "photo"},
		FieldTypes: []string{"text", "image"},
	})
	require.NoError(t, err)
	id, err := s.InsertRecord(ctx, rt, map[string]string{"title": "old", "photo": "uploads/a.png"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateRecord(ctx, rt, id, map[string]string{"title": "new", "photo": "uploads/evil.png"}))
	rec, err := s.Record(ctx, rt, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"title": "new", "photo": "uploads/a.png"}, rec.Values)

	// Only non-text values: nothing to do, not even a lookup.
	assert.NoError(t, s.UpdateRecord(ctx, rt, 999, map[string]string{"photo": "x"}))
	assert.ErrorIs(t, s.UpdateRecord(ctx, rt, 999, map[string]string{"title": "x"}), ErrNotFound)
	assert.ErrorIs(t, s.UpdateRecord(ctx, rt, id, map[string]string{"nope": "x"}), ErrUnknownField)

	smart, err := s.Create(ctx, CreateParams{Name: "s", Mode: models.ModeSmart, Fields: []string{"title"}})
	require.NoError(t, err)
	assert.ErrorIs(t, s.UpdateRecord(ctx, smart, 1, map[string]string{"title": "x"}), ErrWrongMode)
}

func TestSetQuestionsKeepsOneRow(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	rt := createStruct(t, s, "q", []string{"a", "b"}, "first")

	require.NoError(t, s.SetQuestions(ctx, rt, []string{"x", "y"}))
	require.NoError(t, s.SetQuestions(ctx, rt, []string{"z"}))

	var n int64
	require.NoError(t, db.Table(tables.QuestionTableName(rt.ID)).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	qs, err := s.Questions(ctx, rt)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "z", "b": ""}, qs)

	assert.ErrorIs(t, s.SetQuestions(ctx, rt, []string{"1", "2", "3"}), ErrSchemaMismatch)
}

func TestQuestionsWithoutRow(t *testing.T) {
	s, _ := newTestService(t)
	rt := createStruct(t, s, "q", []string{"a"})

	qs, err := s.Questions(context.Background(), rt)
	require.NoError(t, err)
	assert.Empty(t, qs)

	infos, err := s.FieldInfos(context.Background(), rt)
	require.NoError(t, err)
	assert.Equal(t, []FieldInfo{{Name: "a", Question: "", Type: models.FieldText, TypeLabel: "テキスト"}}, infos)
}

func TestUpdateFieldsRenamePreservesData(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	rt, err := s.Create(ctx, CreateParams{
		Name:       "e",
		Fields:     []string{"a", "b", "c"},
		FieldTypes: []string{"text", "image", "video"},
		Questions:  []string{"qa", "qb", "qc"},
	})
	require.NoError(t, err)
	id, err := s.InsertRecord(ctx, rt, map[string]string{"a": "1", "b": "2", "c": "3"})
	require.NoError(t, err)

	updated, err := s.UpdateFields(ctx, rt.ID, []string{"alpha", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "b"}, []string(updated.Fields))
	assert.Equal(t, []string{"text", "image"}, []string(updated.FieldTypes))

	reloaded, err := s.Get(ctx, rt.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Fields, reloaded.Fields)

	rec, err := s.Record(ctx, reloaded, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alpha": "1", "b": "2"}, rec.Values)

	qs, err := s.Questions(ctx, reloaded)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alpha": "qa", "b": "qb"}, qs)
}

func TestUpdateFieldsRejectsUnsupportedEdits(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	rt := createStruct(t, s, "e", []string{"a", "b"})

	_, err := s.UpdateFields(ctx, rt.ID, []string{"a", "b", "c"})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	_, err = s.UpdateFields(ctx, rt.ID, []string{"b", "a"})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
	_, err = s.UpdateFields(ctx, rt.ID, []string{"a b"})
	assert.ErrorIs(t, err, tables.ErrInvalidIdentifier)
	_, err = s.UpdateFields(ctx, rt.ID, []string{"a", "A"})
	assert.ErrorIs(t, err, tables.ErrInvalidIdentifier)
	_, err = s.UpdateFields(ctx, 999, []string{"a"})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Get(ctx, rt.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, []string(got.Fields))
	_, err = s.InsertRecord(ctx, got, map[string]string{"a": "1", "b": "2"})
	assert.NoError(t, err)
}

func TestDeleteRemovesTablesAndDefinition(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	rt := createStruct(t, s, "d", []string{"a"}, "q")
	_, err := s.InsertRecord(ctx, rt, map[string]string{"a": "1"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, rt.ID))
	assert.False(t, tableExists(t, db, tables.RecordTableName(rt.ID)))
	assert.False(t, tableExists(t, db, tables.QuestionTableName(rt.ID)))

	_, err = s.Get(ctx, rt.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetByName(ctx, "d")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, rt.ID), ErrNotFound)

	// The name is free again and the new type starts empty.
	again := createStruct(t, s, "d", []string{"a"})
	recs, err := s.Records(ctx, again)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestUpdatePrompt(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	smart, err := s.Create(ctx, CreateParams{Name: "s", Mode: models.ModeSmart, Fields: []string{"a"}})
	require.NoError(t, err)

	got, err := s.UpdatePrompt(ctx, smart.ID, "new prompt")
	require.NoError(t, err)
	assert.Equal(t, "new prompt", got.PromptText())

	reloaded, err := s.Get(ctx, smart.ID)
	require.NoError(t, err)
	assert.Equal(t, "new prompt", reloaded.PromptText())

	st := createStruct(t, s, "st", []string{"a"})
	_, err = s.UpdatePrompt(ctx, st.ID, "x")
	assert.ErrorIs(t, err, ErrWrongMode)
}

func TestRecordTableRecreatedWhenMissing(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	rt := createStruct(t, s, "lazy", []string{"a"})
	require.NoError(t, db.Exec("DROP TABLE " + tables.RecordTableName(rt.ID)).Error)

	// A fresh service has no cached definition and provisions the table on use.
	fresh := NewService(db, tables.NewRegistry(), testutil.Logger(t))
	id, err := fresh.InsertRecord(ctx, rt, map[string]string{"a": "1"})
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestFailedReadDoesNotCacheRolledBackTable(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	rt := createStruct(t, s, "rollback", []string{"a"})
	require.NoError(t, db.Exec("DROP TABLE "+tables.RecordTableName(rt.ID)).Error)
	s.registry.InvalidateReportType(rt.ID)

	// The lookup provisions the table, then rolls back on not found.
	_, err := s.Record(ctx, rt, 999)
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, tableExists(t, db, tables.RecordTableName(rt.ID)))

	id, err := s.InsertRecord(ctx, rt, map[string]string{"a": "1"})
	require.NoError(t, err)
	assert.NotZero(t, id)
}
