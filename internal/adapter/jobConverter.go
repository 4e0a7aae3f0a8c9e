package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/GoRAG/internal/api"
	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/domain/jobModel"
	"github.com/akolanti/GoRAG/internal/rag/ingest"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("/api/status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:      string(job.Status),
		CurrentStep: string(job.CurrentStep),
	}
	if job.Status == jobModel.JobStatusComplete {
		result.IngestResponse = &api.IngestResponse{
			DocumentID: job.JobPayload.DocumentID,
			Duplicate:  job.JobPayload.Duplicate,
			Message:    ingestMessage(job.JobPayload.Duplicate),
		}
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToIngestResponse(res ingest.Result) api.IngestResponse {
	return api.IngestResponse{
		DocumentID: res.DocumentID,
		Duplicate:  res.Duplicate,
		Chunks:     res.Chunks,
		Strategy:   res.Strategy,
		Message:    ingestMessage(res.Duplicate),
	}
}

func ingestMessage(duplicate bool) string {
	if duplicate {
		return "Document already exists"
	}
	return "Document ingested"
}

func ToDocumentList(docs []commonModels.Document) api.DocumentListResponse {
	if docs == nil {
		docs = []commonModels.Document{}
	}
	return api.DocumentListResponse{Documents: docs, Total: len(docs)}
}

// FileURL is where a file-sourced document is served from.
func FileURL(id int64) string {
	return fmt.Sprintf("%s%d", config.FileServingPrefix, id)
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
