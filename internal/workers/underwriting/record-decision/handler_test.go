// internal/workers/underwriting/record-decision/handler_test.go
package recorddecision

import (
	"context"
	"errors"
	"testing"
	"time"

	"underwriting-workers/internal/common/logger"
	"underwriting-workers/internal/engine"
	"underwriting-workers/internal/engine/criteria"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockIndexer struct {
	IndexDocumentFunc func(ctx context.Context, index, docID string, body []byte) error
}

func (m *MockIndexer) IndexDocument(ctx context.Context, index, docID string, body []byte) error {
	if m.IndexDocumentFunc == nil {
		return nil
	}
	return m.IndexDocumentFunc(ctx, index, docID, body)
}

// ==========================
// Test Helper Functions
// ==========================

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func approvedResult(t *testing.T) *engine.EvaluationResult {
	t.Helper()
	result, err := engine.Evaluate(engine.RawApplication{
		MonthlyRevenue:       f64(100000),
		TimeInBusinessMonths: intp(48),
		CreditScore:          intp(740),
		Industry:             "Technology",
		ExistingDebt:         f64(0),
	}, criteria.Default())
	require.NoError(t, err)
	require.Equal(t, engine.StatusApproved, result.Decision.Status)
	return result
}

func createTestInput(t *testing.T) *Input {
	return &Input{
		ApplicationID:       "app-001",
		QualificationResult: approvedResult(t),
	}
}

func expectDuplicateCheck(mock sqlmock.Sqlmock, exists bool) {
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("app-001", engine.EngineVersion).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDuplicateCheck(mock, false)
	mock.ExpectExec(`INSERT INTO underwriting_decisions`).
		WithArgs(sqlmock.AnyArg(), "app-001", "approved", 100.0, "A", "Premium",
			"High", 360000.0, 1.10, 6, engine.EngineVersion, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	var indexedDoc []byte
	indexer := &MockIndexer{
		IndexDocumentFunc: func(ctx context.Context, index, docID string, body []byte) error {
			assert.Equal(t, "underwriting-decisions", index)
			assert.NotEmpty(t, docID)
			indexedDoc = body
			return nil
		},
	}

	handler := NewHandler(LoadConfig(), db, indexer, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), createTestInput(t))

	require.NoError(t, err)
	assert.NotEmpty(t, output.DecisionID)
	_, err = time.Parse(time.RFC3339, output.RecordedAt)
	assert.NoError(t, err)

	assert.Contains(t, string(indexedDoc), `"approvalTier":"Premium"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_DuplicateDecision(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDuplicateCheck(mock, true)

	handler := NewHandler(LoadConfig(), db, &MockIndexer{}, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), createTestInput(t))

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrDuplicateApplication)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDuplicateCheck(mock, false)
	mock.ExpectExec(`INSERT INTO underwriting_decisions`).
		WillReturnError(errors.New("connection lost"))

	handler := NewHandler(LoadConfig(), db, &MockIndexer{}, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), createTestInput(t))

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrDatabaseInsertFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_IndexFailureIsNotFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDuplicateCheck(mock, false)
	mock.ExpectExec(`INSERT INTO underwriting_decisions`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	indexer := &MockIndexer{
		IndexDocumentFunc: func(ctx context.Context, index, docID string, body []byte) error {
			return errors.New("cluster unavailable")
		},
	}

	handler := NewHandler(LoadConfig(), db, indexer, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), createTestInput(t))

	require.NoError(t, err)
	assert.NotEmpty(t, output.DecisionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_NilIndexer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDuplicateCheck(mock, false)
	mock.ExpectExec(`INSERT INTO underwriting_decisions`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	handler := NewHandler(LoadConfig(), db, nil, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), createTestInput(t))

	require.NoError(t, err)
	assert.NotEmpty(t, output.DecisionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_MissingResult(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := NewHandler(LoadConfig(), db, &MockIndexer{}, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), &Input{ApplicationID: "app-001"})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrDatabaseInsertFailed)
}

func TestHandler_Execute_DeclinedDecisionStoresZeroOffer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	declined, err := engine.Evaluate(engine.RawApplication{
		MonthlyRevenue:       f64(8000),
		TimeInBusinessMonths: intp(24),
		CreditScore:          intp(680),
		Industry:             "Retail",
		ExistingDebt:         f64(0),
	}, criteria.Default())
	require.NoError(t, err)
	require.Equal(t, engine.StatusDeclined, declined.Decision.Status)

	expectDuplicateCheck(mock, false)
	mock.ExpectExec(`INSERT INTO underwriting_decisions`).
		WithArgs(sqlmock.AnyArg(), "app-001", "declined", declined.Scoring.TotalScore,
			declined.Scoring.Grade, "", declined.Decision.ConfidenceLevel,
			0.0, 0.0, 0, engine.EngineVersion, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	handler := NewHandler(LoadConfig(), db, nil, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID:       "app-001",
		QualificationResult: declined,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, output.DecisionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
