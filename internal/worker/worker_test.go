package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/GoRAG/internal/domain/jobModel"
	"github.com/akolanti/GoRAG/internal/job"
)

// MockIngestor tracks which jobs were executed
type MockIngestor struct {
	ProcessedCount int32
	OnIngest       func(ctx context.Context, j jobModel.Job) jobModel.Job
}

func (m *MockIngestor) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnIngest != nil {
		return m.OnIngest(ctx, j)
	}
	j.Status = jobModel.JobStatusComplete
	j.CurrentStep = jobModel.Complete
	return j
}

type MockJobStore struct {
	mu        sync.Mutex
	saved     []jobModel.Job
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Id == jobId {
			return m.saved[i], true
		}
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	m.saved = append(m.saved, j)
	m.mu.Unlock()
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

func (m *MockJobStore) states(id string) []jobModel.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []jobModel.JobStatus
	for _, j := range m.saved {
		if j.Id == id {
			out = append(out, j.Status)
		}
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorkerPool_Flow(t *testing.T) {
	store := &MockJobStore{}
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          store,
	}
	mockIngestor := &MockIngestor{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	atomic.StoreInt64(&currentWorkerCount, 0)
	InitServices(jobSvc, mockIngestor)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true
		waitFor(t, func() bool { return atomic.LoadInt64(&currentWorkerCount) >= 2 })
	})

	t.Run("Worker runs the job and persists each state", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "test-1", JobType: jobModel.JobTypeIngestURL, Status: jobModel.JobStatusQueued}

		waitFor(t, func() bool { return len(store.states("test-1")) == 2 })
		if got := atomic.LoadInt32(&mockIngestor.ProcessedCount); got != 1 {
			t.Errorf("Expected 1 job processed, got %d", got)
		}
		states := store.states("test-1")
		if states[0] != jobModel.JobStatusRunning || states[1] != jobModel.JobStatusComplete {
			t.Errorf("Unexpected state sequence %v", states)
		}
		final, _ := store.GetJob(context.Background(), "test-1")
		if final.EndTime.IsZero() {
			t.Error("Expected end time on finished job")
		}
	})

	t.Run("Failed ingestion keeps the error state", func(t *testing.T) {
		mockIngestor.OnIngest = func(ctx context.Context, j jobModel.Job) jobModel.Job {
			j.Status = jobModel.JobStatusError
			j.Error = jobModel.JobError{Code: 422, Message: "no content"}
			return j
		}
		jobSvc.JobChannel <- jobModel.Job{Id: "test-2", JobType: jobModel.JobTypeIngestFile}

		waitFor(t, func() bool { return len(store.states("test-2")) == 2 })
		final, _ := store.GetJob(context.Background(), "test-2")
		if final.Status != jobModel.JobStatusError || final.Error.Code != 422 {
			t.Errorf("Expected error state to be persisted, got %+v", final)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	previousTimeout := idleWorkerTimeout
	previousMin := atomic.LoadInt64(&minWorkerCount)
	idleWorkerTimeout = 20 * time.Millisecond
	t.Cleanup(func() {
		idleWorkerTimeout = previousTimeout
		atomic.StoreInt64(&minWorkerCount, previousMin)
	})

	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 1)
	InitServices(&job.Service{JobChannel: make(chan jobModel.Job)}, &MockIngestor{})

	wg := &sync.WaitGroup{}
	workerWaitGroup = wg
	stopWorkerChannel = make(chan bool)

	createWorker()
	createWorker()

	// one worker retires, the floor keeps the other
	waitFor(t, func() bool { return atomic.LoadInt64(&currentWorkerCount) == 1 })
	time.Sleep(5 * idleWorkerTimeout)
	if count := atomic.LoadInt64(&currentWorkerCount); count != 1 {
		t.Errorf("Expected the floor of 1 worker to stay, got %d", count)
	}
	close(stopWorkerChannel)
	wg.Wait()
}
