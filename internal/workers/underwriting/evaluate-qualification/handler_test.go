// internal/workers/underwriting/evaluate-qualification/handler_test.go
package evaluatequalification

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"underwriting-workers/internal/common/database"
	"underwriting-workers/internal/common/logger"
	"underwriting-workers/internal/engine"
	"underwriting-workers/internal/engine/criteria"
	"underwriting-workers/pkg/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

func createTestConfig() *Config {
	return &Config{
		CriteriaCacheTTL: 5 * time.Minute,
		Timeout:          10 * time.Second,
	}
}

func createTestInput(monthly float64, months, credit int, industry string) *Input {
	return &Input{
		ApplicationID: "app-001",
		Application: engine.RawApplication{
			MonthlyRevenue:       f64(monthly),
			TimeInBusinessMonths: intp(months),
			CreditScore:          intp(credit),
			Industry:             industry,
			ExistingDebt:         f64(0),
		},
	}
}

func newCacheClient(t *testing.T) (*miniredis.Miniredis, *database.RedisClient) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, database.NewRedisFromClient(client)
}

func TestHandler_Execute_ApprovedApplication(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, nil, logger.NewTestLogger(t))

	input := createTestInput(100000, 48, 740, "Technology")
	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "app-001", output.ApplicationID)
	assert.Equal(t, "approved", output.QualificationStatus)
	assert.Equal(t, "Premium", output.ApprovalTier)
	assert.Equal(t, "A", output.Grade)
	require.NotNil(t, output.QualificationResult)
	require.NotNil(t, output.QualificationResult.Offer)
	assert.Equal(t, 1.10, output.QualificationResult.Offer.FactorRate)
}

func TestHandler_Execute_DeclinedApplication(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, nil, logger.NewTestLogger(t))

	input := createTestInput(8000, 24, 680, "Retail")
	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "declined", output.QualificationStatus)
	assert.Empty(t, output.ApprovalTier)
	assert.Nil(t, output.QualificationResult.Offer)
}

func TestHandler_Execute_ValidationError(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, nil, logger.NewTestLogger(t))

	input := &Input{
		ApplicationID: "app-002",
		Application:   engine.RawApplication{Industry: "Retail"},
	}
	output, err := handler.Execute(context.Background(), input)

	assert.Nil(t, output)
	var vErr *engine.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestHandler_Execute_CachesCriteria(t *testing.T) {
	mr, cache := newCacheClient(t)
	handler := NewHandler(createTestConfig(), cache, nil, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), createTestInput(50000, 36, 700, "Technology"))
	require.NoError(t, err)

	assert.True(t, mr.Exists(criteriaCacheKey))

	cached, err := mr.Get(criteriaCacheKey)
	require.NoError(t, err)
	_, err = criteria.FromJSON([]byte(cached))
	assert.NoError(t, err)
}

func TestHandler_Execute_CorruptCacheFallsBack(t *testing.T) {
	mr, cache := newCacheClient(t)
	require.NoError(t, mr.Set(criteriaCacheKey, "not json"))

	handler := NewHandler(createTestConfig(), cache, nil, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), createTestInput(100000, 48, 740, "Technology"))
	require.NoError(t, err)
	assert.Equal(t, "approved", output.QualificationStatus)

	// The bad entry is replaced with a usable document.
	cached, err := mr.Get(criteriaCacheKey)
	require.NoError(t, err)
	_, err = criteria.FromJSON([]byte(cached))
	assert.NoError(t, err)
}

func TestHandler_Execute_InvalidCriteriaDocumentIsFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "criteria.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"approval_threshold": 50}`), 0o644))

	config := createTestConfig()
	config.CriteriaPath = path
	handler := NewHandler(config, nil, nil, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), createTestInput(100000, 48, 740, "Technology"))
	assert.Nil(t, output)
	assert.ErrorIs(t, err, criteria.ErrInvalidCriteria)
}

func TestHandler_WarmCriteria(t *testing.T) {
	mr, cache := newCacheClient(t)
	handler := NewHandler(createTestConfig(), cache, nil, logger.NewTestLogger(t))

	require.NoError(t, handler.WarmCriteria(context.Background()))
	assert.True(t, mr.Exists(criteriaCacheKey))
}

func testRegistry() *registry.TaskRegistry {
	return &registry.TaskRegistry{
		Version: "1.0",
		Tasks: []registry.TaskDefinition{
			{
				ID:          "evaluate-qualification",
				DisplayName: "Evaluate Qualification",
				Category:    "underwriting",
				TaskType:    TaskType,
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"applicationId", "application"},
					"properties": map[string]interface{}{
						"applicationId": map[string]interface{}{"type": "string"},
						"application":   map[string]interface{}{"type": "object"},
					},
				},
			},
		},
	}
}

func TestHandler_ValidateVariables_RejectsMissingRequiredField(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, testRegistry(), logger.NewTestLogger(t))

	err := handler.validateVariables(`{"application": {"monthly_revenue": 100000}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applicationId")
}

func TestHandler_ValidateVariables_AcceptsConformingPayload(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, testRegistry(), logger.NewTestLogger(t))

	err := handler.validateVariables(`{"applicationId": "app-001", "application": {"monthly_revenue": 100000}}`)
	require.NoError(t, err)
}

func TestHandler_ValidateVariables_NoRegistrySkipsValidation(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, nil, logger.NewTestLogger(t))

	require.NoError(t, handler.validateVariables(`{"anything": true}`))
}
