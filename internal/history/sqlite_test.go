package history

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaguard-pgx-server/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testResult(id, patientID string, drugs ...string) *domain.AnalysisResult {
	reports := make([]domain.DrugReport, 0, len(drugs))
	for _, drug := range drugs {
		reports = append(reports, domain.DrugReport{
			PatientID: patientID,
			Drug:      drug,
			RiskAssessment: domain.ReportRisk{
				RiskLabel:       domain.RiskSafe,
				ConfidenceScore: 0.95,
				Severity:        domain.SeverityNone,
			},
		})
	}
	return &domain.AnalysisResult{
		ID:              id,
		PatientID:       patientID,
		Drugs:           drugs,
		Reports:         reports,
		OverallSeverity: domain.SeverityNone,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	result := testResult("analysis-1", "PATIENT_A", "CODEINE", "WARFARIN")
	require.NoError(t, store.Save(ctx, result))

	record, err := store.Get(ctx, "analysis-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "analysis-1", record.ID)
	assert.Equal(t, "PATIENT_A", record.PatientID)
	assert.Equal(t, []string{"CODEINE", "WARFARIN"}, record.Drugs)
	assert.Equal(t, domain.SeverityNone, record.OverallSeverity)
	require.NotNil(t, record.Result)
	require.Len(t, record.Result.Reports, 2)
	assert.Equal(t, "CODEINE", record.Result.Reports[0].Drug)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	record, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestSQLiteStore_ListByPatient(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testResult("analysis-1", "PATIENT_A", "CODEINE")
	a.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	b := testResult("analysis-2", "PATIENT_A", "WARFARIN")
	b.CreatedAt = time.Now().UTC().Add(-1 * time.Hour)
	c := testResult("analysis-3", "PATIENT_B", "SIMVASTATIN")

	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))
	require.NoError(t, store.Save(ctx, c))

	records, err := store.ListByPatient(ctx, "PATIENT_A", 10, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first.
	assert.Equal(t, "analysis-2", records[0].ID)
	assert.Equal(t, "analysis-1", records[1].ID)

	records, err = store.ListByPatient(ctx, "PATIENT_C", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteStore_ListPagination(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		result := testResult(id, "PATIENT_A", "CODEINE")
		result.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Save(ctx, result))
	}

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)

	page, err = store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a", page[0].ID)
}

func TestSQLiteStore_CountAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testResult("analysis-1", "PATIENT_A", "CODEINE")))
	require.NoError(t, store.Save(ctx, testResult("analysis-2", "PATIENT_A", "WARFARIN")))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.Delete(ctx, "analysis-1"))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	record, err := store.Get(ctx, "analysis-1")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestSQLiteStore_DuplicateIDRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testResult("analysis-1", "PATIENT_A", "CODEINE")))
	err := store.Save(ctx, testResult("analysis-1", "PATIENT_B", "WARFARIN"))
	assert.Error(t, err)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testResult("analysis-1", "PATIENT_A", "CODEINE")))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	var export Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 1, export.Count)
	require.Len(t, export.Analyses, 1)
	assert.Equal(t, "analysis-1", export.Analyses[0].ID)
}
