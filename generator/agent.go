package generator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// ErrEmptyTranscript rejects blank input before any model call.
var ErrEmptyTranscript = errors.New("transcript is empty")

// Summarizer turns a transcript into meeting minutes with one model call.
type Summarizer struct {
	llm    LLMClient
	opts   PromptOptions
	logger *slog.Logger
}

func NewSummarizer(llm LLMClient, opts PromptOptions, logger *slog.Logger) (*Summarizer, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{llm: llm, opts: opts, logger: logger}, nil
}

// Summarize sends transcript to the model and post-processes the answer.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (Summary, error) {
	if strings.TrimSpace(transcript) == "" {
		return Summary{}, ErrEmptyTranscript
	}

	start := time.Now()
	raw, err := s.llm.Complete(ctx, BuildSummaryPrompt(transcript, s.opts))
	if err != nil {
		return Summary{}, err
	}
	sum, err := PostProcess(raw)
	if err != nil {
		return Summary{}, err
	}
	s.logger.Info("summary generated", "chars", len(sum.Markdown), "title", sum.Title, "elapsed", time.Since(start))
	return sum, nil
}
