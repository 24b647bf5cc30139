// internal/workers/underwriting/generate-narrative/handler_test.go
package generatenarrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"underwriting-workers/internal/common/logger"
	"underwriting-workers/internal/engine"
	"underwriting-workers/internal/engine/criteria"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func declinedResult(t *testing.T) *engine.EvaluationResult {
	t.Helper()
	result, err := engine.Evaluate(engine.RawApplication{
		MonthlyRevenue:       f64(8000),
		TimeInBusinessMonths: intp(24),
		CreditScore:          intp(680),
		Industry:             "Retail",
		ExistingDebt:         f64(0),
	}, criteria.Default())
	require.NoError(t, err)
	require.Equal(t, engine.StatusDeclined, result.Decision.Status)
	return result
}

func createTestConfig() *Config {
	return &Config{
		APIKey:      "test-key",
		Timeout:     5 * time.Second,
		MaxRetries:  1,
		MaxTokens:   400,
		Temperature: 0.3,
	}
}

func narrativeAPIResponse(text string) string {
	data, _ := json.Marshal(map[string]interface{}{"text": text})
	return string(data)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_GeneratedNarrative(t *testing.T) {
	const generated = "Acme Tools earned a perfect qualification score and qualifies for premium terms."

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var reqBody map[string]interface{}
		json.NewDecoder(r.Body).Decode(&reqBody)
		prompt, _ := reqBody["prompt"].(string)
		assert.Contains(t, prompt, "Acme Tools")
		assert.Contains(t, prompt, "approved")
		assert.Equal(t, float64(400), reqBody["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(narrativeAPIResponse(generated)))
	}))
	defer server.Close()

	config := createTestConfig()
	config.GenAIBaseURL = server.URL
	handler := NewHandler(config, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID:       "app-001",
		BusinessName:        "Acme Tools",
		QualificationResult: approvedResult(t),
	})

	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, output.NarrativeSource)
	assert.Equal(t, generated, output.Narrative)
	_, err = time.Parse(time.RFC3339, output.GeneratedAt)
	assert.NoError(t, err)
}

func TestHandler_Execute_RetriesTransientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(narrativeAPIResponse("Second attempt narrative.")))
	}))
	defer server.Close()

	config := createTestConfig()
	config.GenAIBaseURL = server.URL
	handler := NewHandler(config, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID:       "app-001",
		QualificationResult: approvedResult(t),
	})

	require.NoError(t, err)
	assert.Equal(t, SourceGenerated, output.NarrativeSource)
	assert.Equal(t, "Second attempt narrative.", output.Narrative)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHandler_Execute_ServerErrorFallsBackToTemplate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	config := createTestConfig()
	config.GenAIBaseURL = server.URL
	handler := NewHandler(config, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID:       "app-001",
		BusinessName:        "Acme Tools",
		QualificationResult: approvedResult(t),
	})

	require.NoError(t, err)
	assert.Equal(t, SourceTemplate, output.NarrativeSource)
	assert.Contains(t, output.Narrative, "Acme Tools")
	assert.Contains(t, output.Narrative, "approved")
	assert.Contains(t, output.Narrative, "Premium")
	assert.Contains(t, output.Narrative, "$360000.00")
}

func TestHandler_Execute_EmptyResponseFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(narrativeAPIResponse("   ")))
	}))
	defer server.Close()

	config := createTestConfig()
	config.GenAIBaseURL = server.URL
	handler := NewHandler(config, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID:       "app-001",
		QualificationResult: approvedResult(t),
	})

	require.NoError(t, err)
	assert.Equal(t, SourceTemplate, output.NarrativeSource)
	assert.NotEmpty(t, output.Narrative)
}

func TestHandler_Execute_NoEndpointConfigured(t *testing.T) {
	handler := NewHandler(createTestConfig(), logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		ApplicationID:       "app-001",
		QualificationResult: declinedResult(t),
	})

	require.NoError(t, err)
	assert.Equal(t, SourceTemplate, output.NarrativeSource)
	assert.Contains(t, output.Narrative, "declined")
	assert.Contains(t, output.Narrative, "Annual revenue")
}

func TestHandler_Execute_TimeoutFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(narrativeAPIResponse("Too late.")))
	}))
	defer server.Close()

	config := createTestConfig()
	config.GenAIBaseURL = server.URL
	config.Timeout = 50 * time.Millisecond
	handler := NewHandler(config, logger.NewTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	output, err := handler.Execute(ctx, &Input{
		ApplicationID:       "app-001",
		QualificationResult: approvedResult(t),
	})

	require.NoError(t, err)
	assert.Equal(t, SourceTemplate, output.NarrativeSource)
}

func TestHandler_Execute_MissingResult(t *testing.T) {
	handler := NewHandler(createTestConfig(), logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{ApplicationID: "app-001"})

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrNarrativeFailed)
}

func TestBuildTemplateNarrative_DeclineNamesPrimaryReason(t *testing.T) {
	result := declinedResult(t)
	narrative := buildTemplateNarrative(&Input{ApplicationID: "app-001"}, result)

	assert.Contains(t, narrative, "The application was declined")
	assert.Contains(t, narrative, "Primary reason:")
}
