package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefault(t *testing.T) {
	tpl, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)

	out, err := tpl.Answer([]commonModels.ScoredChunk{{Text: "first"}, {Text: "second"}}, "what?")
	require.NoError(t, err)
	assert.Equal(t, "Use the following context to answer the question:\n\nContext:\nfirst\n\nsecond\n\nQuestion: what?\n\nAnswer:", out)
}

func TestLoad_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("CTX={context} Q={question}\n"), 0o644))

	tpl, err := Load(path)
	require.NoError(t, err)

	out, err := tpl.Answer([]commonModels.ScoredChunk{{Text: "a"}}, "b")
	require.NoError(t, err)
	assert.Equal(t, "CTX=a Q=b", out)
}

func TestNew_RequiresBothSlots(t *testing.T) {
	_, err := New("only {question}")
	assert.Error(t, err)
}

func TestAnswer_EmptyContext(t *testing.T) {
	tpl, err := New(DefaultAnswerTemplate)
	require.NoError(t, err)

	out, err := tpl.Answer(nil, "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "Context:\n\n\nQuestion: anything")
}

func TestCondense_IncludesHistory(t *testing.T) {
	tpl, err := New(DefaultAnswerTemplate)
	require.NoError(t, err)

	history := []commonModels.Message{
		{Role: commonModels.RoleUser, Content: "What is Qdrant?"},
		{Role: commonModels.RoleAssistant, Content: "A vector database."},
	}
	out, err := tpl.Condense(history, "How do I run it?")
	require.NoError(t, err)

	assert.Contains(t, out, "Human: What is Qdrant?\nAssistant: A vector database.")
	assert.Contains(t, out, "Follow Up Input: How do I run it?")
}
