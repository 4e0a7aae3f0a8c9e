package worker

import (
	"context"
	"time"

	"github.com/akolanti/GoRAG/internal/config"
	jobmodel "github.com/akolanti/GoRAG/internal/domain/jobModel"
	"github.com/akolanti/GoRAG/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout)
	defer cancel()
	log := logger.WithTrace(ctxTrace)
	log.Debug("Processing job", "jobId", job.Id, "type", job.JobType)

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctx, job)

	job = _ingestor.IngestDocument(ctx, job)
	job.EndTime = time.Now()

	// the job context may have expired, the final state must still land
	saveJobState(ctxTrace, job)
	log.Info("Job finished", "jobId", job.Id, "status", job.Status, "documentId", job.JobPayload.DocumentID)
}

// removeWorker runs after the caller has already taken the worker off the count.
func removeWorker(reason string, count int64) {
	workerWaitGroup.Done()
	logger.Info("Removed worker", "reason", reason, "workerCount", count)
	metrics.DecrementActiveWorkerCount()
}

func saveJobState(ctx context.Context, job jobmodel.Job) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job state", "jobId", job.Id, "err", err)
	}
}
