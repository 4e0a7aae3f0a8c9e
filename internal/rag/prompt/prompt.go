package prompt

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"github.com/tmc/langchaingo/prompts"
)

const DefaultAnswerTemplate = "Use the following context to answer the question:\n\nContext:\n{context}\n\nQuestion: {question}\n\nAnswer:"

const condenseTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
{chat_history}
Follow Up Input: {question}
Standalone question:`

type Templates struct {
	answer   prompts.PromptTemplate
	condense prompts.PromptTemplate
}

// Load reads the answer template from path. A missing file falls back to the built-in template.
func Load(path string) (*Templates, error) {
	logger := logger_i.NewLogger("Prompt")

	text := DefaultAnswerTemplate
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		text = strings.TrimSpace(string(raw))
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("Prompt file not found, using default template", "path", path)
	default:
		return nil, fmt.Errorf("read prompt template %s: %w", path, err)
	}

	return New(text)
}

func New(answerTemplate string) (*Templates, error) {
	if !strings.Contains(answerTemplate, "{context}") || !strings.Contains(answerTemplate, "{question}") {
		return nil, fmt.Errorf("prompt template must contain {context} and {question}")
	}
	return &Templates{
		answer:   fstring(answerTemplate, "context", "question"),
		condense: fstring(condenseTemplate, "chat_history", "question"),
	}, nil
}

func fstring(template string, vars ...string) prompts.PromptTemplate {
	return prompts.PromptTemplate{
		Template:       template,
		InputVariables: vars,
		TemplateFormat: prompts.TemplateFormatFString,
	}
}

// Answer fills the answer template with the retrieved chunks separated by blank lines.
func (t *Templates) Answer(chunks []commonModels.ScoredChunk, question string) (string, error) {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	return t.answer.Format(map[string]any{
		"context":  strings.Join(texts, "\n\n"),
		"question": question,
	})
}

// Condense asks for a standalone rewrite of question given the conversation so far.
func (t *Templates) Condense(history []commonModels.Message, question string) (string, error) {
	return t.condense.Format(map[string]any{
		"chat_history": FormatHistory(history),
		"question":     question,
	})
}

func FormatHistory(history []commonModels.Message) string {
	var b strings.Builder
	for i, m := range history {
		if i > 0 {
			b.WriteString("\n")
		}
		switch m.Role {
		case commonModels.RoleUser:
			b.WriteString("Human: ")
		default:
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Content)
	}
	return b.String()
}
