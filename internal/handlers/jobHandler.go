package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/domain/jobModel"
	"github.com/akolanti/GoRAG/internal/job"
	"github.com/akolanti/GoRAG/internal/metrics"
	"github.com/akolanti/GoRAG/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("JobHandler")
)

type JobHandler struct {
	service *job.Service
}

type newJobData struct {
	id       string
	traceId  string
	jobType  jobModel.JobType
	fileName string
	filePath string
	url      string
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(ctx context.Context, newJob newJobData) bool {
	if handlerInstance == nil {
		logJH.Error("Job handler not initialised, dropping job", "jobId", newJob.id)
		return false
	}
	logJH.WithTrace(ctx).Info("To create new job", "jobId", newJob.id, "type", newJob.jobType)
	return handlerInstance.pushToJobChannel(ctx, newJob)
}

func GetJobStatus(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctx, id)
	}
	return result, false
}

// private methods
func (h *JobHandler) pushToJobChannel(ctx context.Context, newJob newJobData) bool {

	_job := jobModel.Job{
		Id:          newJob.id,
		TraceId:     newJob.traceId,
		JobType:     newJob.jobType,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.IngestInit,
		JobPayload: jobModel.JobPayload{
			FileName: newJob.fileName,
			FilePath: newJob.filePath,
			URL:      newJob.url,
		},
	}

	// persisted before queueing so status polls never miss a queued job
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		logJH.WithTrace(ctx).Error("Could not persist queued job", "jobId", _job.Id, "error", err)
	}

	select {
	case h.service.JobChannel <- _job: //blocks while the buffer is full
	case <-ctx.Done():
		logJH.WithTrace(ctx).Warn("Request cancelled before job was queued", "jobId", _job.Id)
		h.service.JobStore.DeleteJob(context.Background(), _job.Id)
		return false
	}
	metrics.IncrementJobsInQueue()
	logJH.WithTrace(ctx).Info("Created new job", "jobId", _job.Id)

	//every N requests we ask the dispatcher for another worker
	//ingestion is always slow (fetch, embed, index) so every ingestion job asks too
	//idle workers retire, so this stays cheap
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || isIngestion(_job.JobType) {
		select {
		case h.service.DispatcherChannel <- true:
			metrics.StartDispatcherSignalCount()
		default:
			logJH.Debug("Dispatcher busy, skipping worker signal", "count", accurateCount)
		}
	}
	return true
}

func isIngestion(t jobModel.JobType) bool {
	return t == jobModel.JobTypeIngestFile || t == jobModel.JobTypeIngestURL
}
