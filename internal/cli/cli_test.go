package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/GoRAG/internal/api"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/internal/rag/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockKB struct {
	stagedName  string
	stagedBody  string
	ingestPath  string
	askSession  string
	askResponse api.AskResponse
	deleted     map[int64]bool
	cleared     bool
	docs        []commonModels.Document
}

func (m *mockKB) Ask(ctx context.Context, question, sessionID string) (api.AskResponse, error) {
	m.askSession = sessionID
	resp := m.askResponse
	resp.Question = question
	return resp, nil
}

func (m *mockKB) IngestFile(ctx context.Context, path, filename string) (ingest.Result, error) {
	m.ingestPath = path
	return ingest.Result{DocumentID: 3, Chunks: 4, Strategy: "prose"}, nil
}

func (m *mockKB) IngestURL(ctx context.Context, rawURL, filename string) (ingest.Result, error) {
	if rawURL == "https://dup.example.com" {
		return ingest.Result{DocumentID: 1, Duplicate: true}, nil
	}
	return ingest.Result{}, errors.New("fetch failed")
}

func (m *mockKB) StageFile(r io.Reader, filename string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.stagedName = filename
	m.stagedBody = string(body)
	return "/data/" + filename, nil
}

func (m *mockKB) DeleteDocument(ctx context.Context, id int64) (bool, error) {
	return m.deleted[id], nil
}

func (m *mockKB) ClearAll(ctx context.Context) (bool, error) {
	m.cleared = true
	return true, nil
}

func (m *mockKB) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	return m.docs, nil
}

func run(t *testing.T, m *mockKB, args ...string) (string, error) {
	t.Helper()
	SetKnowledgeBase(m)
	askSession, askShowSources, ingestFilename, clearConfirmed = "", false, "", false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		SetKnowledgeBase(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ingest", "ask", "docs"} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestIngestFile_StagesCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# hello"), 0o600))

	m := &mockKB{}
	out, err := run(t, m, "ingest", "file", path)
	require.NoError(t, err)

	assert.Equal(t, "notes.md", m.stagedName)
	assert.Equal(t, "# hello", m.stagedBody)
	assert.Equal(t, "/data/notes.md", m.ingestPath)
	assert.Contains(t, out, "document 3")
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "original file must be left alone")
}

func TestIngestFile_Missing(t *testing.T) {
	_, err := run(t, &mockKB{}, "ingest", "file", "/does/not/exist.pdf")
	assert.Error(t, err)
}

func TestIngestURL(t *testing.T) {
	out, err := run(t, &mockKB{}, "ingest", "url", "https://dup.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "already ingested")

	_, err = run(t, &mockKB{}, "ingest", "url", "https://broken.example.com")
	assert.Error(t, err)
}

func TestAsk(t *testing.T) {
	m := &mockKB{askResponse: api.AskResponse{
		Answer:       "Forty two.",
		SourceChunks: []api.SourceChunk{{Score: 0.9, Metadata: map[string]any{"source": "guide.md"}}},
	}}
	out, err := run(t, m, "ask", "what", "is", "it?", "--session", "s1", "--sources")
	require.NoError(t, err)
	assert.Equal(t, "s1", m.askSession)
	assert.Contains(t, out, "Forty two.")
	assert.Contains(t, out, "guide.md")
}

func TestAsk_FlaggedErrorFails(t *testing.T) {
	m := &mockKB{askResponse: api.AskResponse{Answer: "Error processing question: boom", Error: true}}
	_, err := run(t, m, "ask", "hi?", "-s", "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestDocs(t *testing.T) {
	m := &mockKB{
		deleted: map[int64]bool{2: true},
		docs: []commonModels.Document{
			{ID: 2, Filename: "a.pdf", SourceType: commonModels.SourceFile, VectorIDs: []string{"v1"}},
		},
	}

	out, err := run(t, m, "docs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "a.pdf")
	assert.Contains(t, out, "Total: 1 documents")

	_, err = run(t, m, "docs", "delete", "2")
	assert.NoError(t, err)
	_, err = run(t, m, "docs", "delete", "9")
	assert.Error(t, err)
	_, err = run(t, m, "docs", "delete", "abc")
	assert.Error(t, err)

	_, err = run(t, m, "docs", "clear")
	assert.Error(t, err)
	assert.False(t, m.cleared)
	_, err = run(t, m, "docs", "clear", "--yes")
	require.NoError(t, err)
	assert.True(t, m.cleared)
}
