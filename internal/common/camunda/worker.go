// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// HandlerFunc is the Zeebe job handler signature.
type HandlerFunc func(client worker.JobClient, job entities.Job)

type namedWorker struct {
	taskType string
	worker   worker.JobWorker
}

// Fleet tracks the opened job workers so shutdown can drain them before the
// gateway connection goes away.
type Fleet struct {
	client  zbc.Client
	logger  *zap.Logger
	workers []namedWorker
}

func NewFleet(client zbc.Client, logger *zap.Logger) *Fleet {
	return &Fleet{
		client: client,
		logger: logger,
	}
}

// Register opens a job worker for the task type. Timeout is the job
// activation timeout in milliseconds.
func (f *Fleet) Register(taskType string, maxJobsActive, timeoutMs int, handler HandlerFunc) {
	jobWorker := f.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(maxJobsActive).
		Timeout(time.Duration(timeoutMs) * time.Millisecond).
		Open()

	f.workers = append(f.workers, namedWorker{taskType: taskType, worker: jobWorker})

	f.logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", maxJobsActive),
		zap.Int("timeout_ms", timeoutMs),
	)
}

// Close drains every registered worker. AwaitClose blocks until in-flight
// jobs finish.
func (f *Fleet) Close() {
	for _, w := range f.workers {
		f.logger.Info("stopping worker", zap.String("taskType", w.taskType))
		w.worker.AwaitClose()
	}
}
