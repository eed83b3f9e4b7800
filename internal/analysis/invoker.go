package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"podwatch/internal/logging"
	"podwatch/internal/services"
	"podwatch/internal/services/llm"
)

const (
	defaultMaxInputWords = 20000
	defaultHeadRatio     = 0.8
	stage                = "analyze"
)

// Completer sends a conversation to the model and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// Config tunes prompt construction and schema repair.
type Config struct {
	MaxInputWords  int
	HeadRatio      float64
	RepairAttempts int
	Model          string
}

// Invoker builds prompts, calls the model, and validates its replies.
type Invoker struct {
	completer Completer
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes the invoker.
type Option func(*Invoker)

// WithClock overrides the analysis timestamp source.
func WithClock(now func() time.Time) Option {
	return func(i *Invoker) {
		if now != nil {
			i.now = now
		}
	}
}

// NewInvoker constructs an invoker around a model client.
func NewInvoker(completer Completer, cfg Config, logger *slog.Logger, opts ...Option) *Invoker {
	if cfg.MaxInputWords <= 0 {
		cfg.MaxInputWords = defaultMaxInputWords
	}
	if cfg.HeadRatio <= 0 || cfg.HeadRatio > 1 {
		cfg.HeadRatio = defaultHeadRatio
	}
	if cfg.RepairAttempts < 0 {
		cfg.RepairAttempts = 0
	}
	inv := &Invoker{
		completer: completer,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "analysis"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Analyze produces a validated Analysis for one episode. Schema violations are
// sent back to the model up to RepairAttempts times before failing with
// services.ErrAnalysisSchemaInvalid. Transport failures arrive already
// classified by the model client and are returned as-is.
func (i *Invoker) Analyze(ctx context.Context, in Input) (*Analysis, error) {
	if i.completer == nil {
		return nil, services.Wrap(services.ErrConfiguration, stage, "analyze", "no model client configured", nil)
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, services.Wrap(services.ErrValidation, stage, "analyze", "empty episode text", nil)
	}
	logger := logging.WithContext(ctx, i.logger)

	text, truncated := Truncate(body, i.cfg.MaxInputWords, i.cfg.HeadRatio)
	if truncated {
		logger.Debug("episode text truncated",
			logging.Int("max_words", i.cfg.MaxInputWords),
			logging.Float64("head_ratio", i.cfg.HeadRatio),
		)
	}

	messages := []llm.Message{
		llm.System(SystemPrompt),
		llm.User(BuildUserPrompt(in, text)),
	}

	var schemaErr *SchemaError
	for attempt := 0; attempt <= i.cfg.RepairAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reply, err := i.completer.Complete(ctx, messages)
		if err != nil {
			return nil, err
		}
		result, err := Validate(reply)
		if err == nil {
			result.AnalyzedAt = i.now().UTC()
			result.SourceKind = in.SourceKind
			result.Model = i.cfg.Model
			result.Truncated = truncated
			if attempt > 0 {
				logger.Info("analysis repaired", logging.Int("repair_attempts", attempt))
			}
			return &result, nil
		}
		if !errors.As(err, &schemaErr) {
			return nil, err
		}
		if attempt < i.cfg.RepairAttempts {
			logging.WarnWithContext(logger, "analysis reply failed schema validation; requesting repair", "analysis_repair",
				logging.Int("attempt", attempt+1),
				logging.String("problems", strings.Join(schemaErr.Problems, "; ")),
				logging.String(logging.FieldErrorHint, "model output drifted from the analysis schema"),
				logging.String(logging.FieldImpact, "one additional model call"),
			)
		}
		messages = append(messages, llm.Assistant(reply), llm.User(RepairPrompt(schemaErr.Problems)))
	}
	return nil, services.Wrap(services.ErrAnalysisSchemaInvalid, stage, "analyze", "reply still invalid after repair", schemaErr)
}
