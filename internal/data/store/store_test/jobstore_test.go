package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/data/redisStore"
	"github.com/akolanti/GoRAG/internal/data/store"
	"github.com/akolanti/GoRAG/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	jobStore := store.TestJobStore(redisStore.NewTestStore(client))

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:      jobID,
		JobType: jobModel.JobTypeIngestURL,
		Status:  jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			URL: "https://example.com/guide",
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}
		if retrievedJob.JobPayload.URL != testJob.JobPayload.URL || retrievedJob.JobType != jobModel.JobTypeIngestURL {
			t.Errorf("Data mismatch! Got %+v, want %+v", retrievedJob, testJob)
		}
		if ttl := mr.TTL(jobID); ttl != config.RedisJobStoreTTL {
			t.Errorf("ttl = %v, want %v", ttl, config.RedisJobStoreTTL)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		if _, found := jobStore.GetJob(ctx, "ghost-id"); found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Corrupt Payload", func(t *testing.T) {
		_ = mr.Set("corrupt", "{not json")
		if _, found := jobStore.GetJob(ctx, "corrupt"); found {
			t.Error("Expected found=false for invalid json")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		if mr.Exists(jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisJobStore_Race(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobStore := store.TestJobStore(redisStore.NewTestStore(client))

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()
}

func TestNewJobStore_FallsBackToMemory(t *testing.T) {
	ctx := context.Background()

	disabled := store.NewJobStore(ctx, config.RedisConfig{Disabled: true})
	if _, ok := disabled.(*store.InMemoryJobStore); !ok {
		t.Errorf("expected in-memory store when redis is disabled, got %T", disabled)
	}

	// nothing listens on this port
	offline := store.NewJobStore(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	if _, ok := offline.(*store.InMemoryJobStore); !ok {
		t.Errorf("expected in-memory store when redis is offline, got %T", offline)
	}
}

func TestInMemoryJobStore(t *testing.T) {
	ctx := context.Background()
	s := store.InitInMemoryJobStore()

	_ = s.SaveJob(ctx, jobModel.Job{Id: "j1", Status: jobModel.JobStatusQueued})
	got, found := s.GetJob(ctx, "j1")
	if !found || got.Status != jobModel.JobStatusQueued {
		t.Fatalf("got %+v, %v", got, found)
	}

	s.DeleteJob(ctx, "j1")
	if _, found := s.GetJob(ctx, "j1"); found {
		t.Error("job should be deleted")
	}
}

func TestInMemoryJobStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := store.NewInMemoryJobStore(time.Hour, func() time.Time { return now })

	_ = s.SaveJob(ctx, jobModel.Job{Id: "old"})
	now = now.Add(30 * time.Minute)
	if _, found := s.GetJob(ctx, "old"); !found {
		t.Fatal("job should still be live")
	}

	now = now.Add(time.Hour)
	if _, found := s.GetJob(ctx, "old"); found {
		t.Error("expired job should not be returned")
	}

	_ = s.SaveJob(ctx, jobModel.Job{Id: "new"})
	if _, found := s.GetJob(ctx, "new"); !found {
		t.Error("fresh job should be stored")
	}
}
