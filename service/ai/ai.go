package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured is reported when no provider key is available
	ErrNotConfigured = errors.New("text generation is not configured: set GEMINI_API_KEY or OPENAI_API_KEY")
	// ErrEmptyResponse is reported when a provider answers without any text
	ErrEmptyResponse = errors.New("text generation returned no content")
)

// Result is the outcome of a generation request: either usable text or the reason there is none.
type Result struct {
	Text string
	Err  error
}

func Success(text string) Result {
	return Result{Text: text}
}

func Failure(err error) Result {
	return Result{Err: err}
}

// OK reports whether the result carries usable text
func (r Result) OK() bool {
	return r.Err == nil && strings.TrimSpace(r.Text) != ""
}

// Message is the text shown to the viewer when the result is not usable
func (r Result) Message() string {
	switch {
	case r.Err != nil:
		return "Error: " + r.Err.Error()
	case !r.OK():
		return "Error: " + ErrEmptyResponse.Error()
	default:
		return ""
	}
}

// Generator produces text for a prompt. Implementations are network bound and may be slow or
// fail; failures are reported in the Result, never as a panic.
type Generator interface {
	Generate(ctx context.Context, prompt string) Result
}

// GeneratorFunc adapts a function to the Generator interface
type GeneratorFunc func(ctx context.Context, prompt string) Result

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) Result {
	return f(ctx, prompt)
}

// Unconfigured fails every request with ErrNotConfigured
type Unconfigured struct{}

func (Unconfigured) Generate(context.Context, string) Result {
	return Failure(ErrNotConfigured)
}

// ErrProvider wraps an error returned by an upstream model provider
type ErrProvider struct {
	Provider string
	Err      error
}

func (e ErrProvider) Error() string {
	return fmt.Sprintf("error from %s: %s", e.Provider, e.Err)
}

func (e ErrProvider) Unwrap() error {
	return e.Err
}

func clean(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Failure(ErrEmptyResponse)
	}
	return Success(text)
}
