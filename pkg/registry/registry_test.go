// pkg/registry/registry_test.go
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegistry() *TaskRegistry {
	return &TaskRegistry{
		Version: "1.0",
		Tasks: []TaskDefinition{
			{
				ID:          "evaluate-qualification",
				DisplayName: "Evaluate Qualification",
				Category:    "underwriting",
				TaskType:    "evaluate-qualification",
				InputSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"applicationId", "application"},
					"properties": map[string]interface{}{
						"applicationId": map[string]interface{}{"type": "string"},
						"application":   map[string]interface{}{"type": "object"},
					},
				},
				ErrorCodes: []string{"APPLICATION_VALIDATION_FAILED", "CRITERIA_INVALID"},
			},
			{
				ID:          "record-decision",
				DisplayName: "Record Decision",
				Category:    "underwriting",
				TaskType:    "record-decision",
				ErrorCodes:  []string{"DATABASE_INSERT_FAILED", "DUPLICATE_APPLICATION"},
			},
		},
	}
}

func TestLoad(t *testing.T) {
	reg := validRegistry()
	data, err := json.Marshal(reg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "task-registry.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", loaded.Version)
	assert.Len(t, loaded.Tasks, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TaskRegistry)
		wantErr string
	}{
		{
			name:   "valid registry",
			mutate: func(r *TaskRegistry) {},
		},
		{
			name:    "no tasks",
			mutate:  func(r *TaskRegistry) { r.Tasks = nil },
			wantErr: "no tasks",
		},
		{
			name:    "duplicate ID",
			mutate:  func(r *TaskRegistry) { r.Tasks[1].ID = r.Tasks[0].ID },
			wantErr: "duplicate task ID",
		},
		{
			name:    "duplicate task type",
			mutate:  func(r *TaskRegistry) { r.Tasks[1].TaskType = r.Tasks[0].TaskType },
			wantErr: "duplicate task type",
		},
		{
			name:    "missing display name",
			mutate:  func(r *TaskRegistry) { r.Tasks[0].DisplayName = "" },
			wantErr: "DisplayName",
		},
		{
			name:    "missing category",
			mutate:  func(r *TaskRegistry) { r.Tasks[0].Category = "" },
			wantErr: "Category",
		},
		{
			name: "invalid input schema",
			mutate: func(r *TaskRegistry) {
				r.Tasks[0].InputSchema = map[string]interface{}{"type": 42}
			},
			wantErr: "invalid input schema",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := validRegistry()
			tt.mutate(reg)
			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFindByTaskType(t *testing.T) {
	reg := validRegistry()

	task, ok := reg.FindByTaskType("record-decision")
	require.True(t, ok)
	assert.Equal(t, "Record Decision", task.DisplayName)

	_, ok = reg.FindByTaskType("unknown-task")
	assert.False(t, ok)
}

func TestValidateVariables(t *testing.T) {
	reg := validRegistry()

	err := reg.ValidateVariables("evaluate-qualification",
		[]byte(`{"applicationId": "app-001", "application": {"monthly_revenue": 50000}}`))
	assert.NoError(t, err)

	err = reg.ValidateVariables("evaluate-qualification", []byte(`{"application": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applicationId")

	// No schema declared: everything passes.
	err = reg.ValidateVariables("record-decision", []byte(`{"anything": true}`))
	assert.NoError(t, err)

	err = reg.ValidateVariables("unknown-task", []byte(`{}`))
	assert.Error(t, err)
}
