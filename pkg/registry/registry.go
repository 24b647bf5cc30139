// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

func Load(path string) (*TaskRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TaskRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks structural integrity: unique IDs and task types, required
// fields, and that every declared variable schema compiles as JSON Schema.
func (r *TaskRegistry) Validate() error {
	if len(r.Tasks) == 0 {
		return fmt.Errorf("registry contains no tasks")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, task := range r.Tasks {
		if task.ID == "" {
			return fmt.Errorf("task missing required field: ID")
		}
		if ids[task.ID] {
			return fmt.Errorf("duplicate task ID: %s", task.ID)
		}
		ids[task.ID] = true

		if task.DisplayName == "" {
			return fmt.Errorf("task %s missing required field: DisplayName", task.ID)
		}
		if task.TaskType == "" {
			return fmt.Errorf("task %s missing required field: TaskType", task.ID)
		}
		if taskTypes[task.TaskType] {
			return fmt.Errorf("duplicate task type: %s", task.TaskType)
		}
		taskTypes[task.TaskType] = true

		if task.Category == "" {
			return fmt.Errorf("task %s missing required field: Category", task.ID)
		}

		if err := compileSchema(task.InputSchema); err != nil {
			return fmt.Errorf("task %s has invalid input schema: %w", task.ID, err)
		}
		if err := compileSchema(task.OutputSchema); err != nil {
			return fmt.Errorf("task %s has invalid output schema: %w", task.ID, err)
		}
	}

	return nil
}

func compileSchema(schema map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	_, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	return err
}

// FindByTaskType returns the definition registered for a Zeebe task type.
func (r *TaskRegistry) FindByTaskType(taskType string) (*TaskDefinition, bool) {
	for i := range r.Tasks {
		if r.Tasks[i].TaskType == taskType {
			return &r.Tasks[i], true
		}
	}
	return nil, false
}

// ValidateVariables checks job variables against a task's declared input
// schema. Tasks without a schema accept anything.
func (r *TaskRegistry) ValidateVariables(taskType string, variables []byte) error {
	task, ok := r.FindByTaskType(taskType)
	if !ok {
		return fmt.Errorf("unknown task type: %s", taskType)
	}
	if task.InputSchema == nil {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(task.InputSchema),
		gojsonschema.NewBytesLoader(variables),
	)
	if err != nil {
		return fmt.Errorf("validate variables for %s: %w", taskType, err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return fmt.Errorf("invalid variables for %s: %s", taskType, first.String())
	}
	return nil
}
