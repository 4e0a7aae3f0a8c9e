package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/GoRAG/pkg/logger_i"
)

// Provider turns a fully rendered prompt into a completion.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Settings struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	BaseURL     string
	APIKey      string
}

type Factory func(ctx context.Context, settings Settings) (Provider, error)

type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported llm provider %q", e.Provider)
}

type MissingDependencyError struct {
	Provider   string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("llm provider %q is missing %s", e.Provider, e.Dependency)
}

var ErrEmptyCompletion = errors.New("llm returned an empty completion")

// New picks the factory registered for settings.Provider.
func New(ctx context.Context, settings Settings, factories map[string]Factory) (Provider, error) {
	factory, ok := factories[settings.Provider]
	if !ok {
		return nil, &UnsupportedProviderError{Provider: settings.Provider}
	}
	provider, err := factory(ctx, settings)
	if err != nil {
		return nil, err
	}
	logger_i.NewLogger("llm").Info("llm provider initialised", "provider", settings.Provider, "model", settings.Model)
	return provider, nil
}

const retryWait = time.Second

// Retry runs call up to attempts times, each under its own timeout.
// retryable decides whether a failure is worth another attempt; nil retries everything.
func Retry(ctx context.Context, attempts int, timeout time.Duration, retryable func(error) bool, call func(context.Context) (string, error)) (string, error) {
	attempts = max(attempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		var out string
		out, err = call(callCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if (retryable != nil && !retryable(err)) || attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryWait):
		}
	}
	return "", err
}
