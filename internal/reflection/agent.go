// Package reflection implements the generate-then-critique agent: one
// generation call followed by N revision passes over its own output.
package reflection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eduforge/eduforge/internal/llm"
	"github.com/eduforge/eduforge/internal/prompt"
)

const (
	defaultLevel         = "beginner"
	defaultLearningStyle = "visual"
	defaultModel         = "gpt-4o-mini"
	temperature          = 0.7
	maxOutputTokens      = 2000
)

// State is the agent's position in its run lifecycle.
type State int

const (
	StateIdle State = iota
	StateGenerating
	StateReflecting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateReflecting:
		return "reflecting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Completer abstracts the completion service.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// Config describes what the agent generates and refines.
type Config struct {
	Topics        []string
	Languages     []string
	Frameworks    []string
	Level         string // default "beginner"
	LearningStyle string // default "visual"
	Model         string // default "gpt-4o-mini"
}

// Result carries the final refined text and how many reflection steps
// completed before the run ended.
type Result struct {
	Content        string
	StepsCompleted int
}

// Agent runs the reflection loop. It tracks only the latest text; no
// intermediate drafts are retained. An Agent is single-use per Run and
// not safe for concurrent use.
type Agent struct {
	llm    Completer
	cfg    Config
	state  State
	step   int
	logger *slog.Logger
}

// NewAgent creates an Agent, filling in configuration defaults.
func NewAgent(completer Completer, cfg Config) *Agent {
	if cfg.Level == "" {
		cfg.Level = defaultLevel
	}
	if cfg.LearningStyle == "" {
		cfg.LearningStyle = defaultLearningStyle
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Agent{
		llm:    completer,
		cfg:    cfg,
		state:  StateIdle,
		logger: slog.Default(),
	}
}

// State returns the agent's current lifecycle state.
func (a *Agent) State() State {
	return a.state
}

// Step returns the reflection step the agent is on (0 while generating).
func (a *Agent) Step() int {
	return a.step
}

// Run performs one generation call followed by steps reflection calls,
// strictly in sequence. steps=0 means generation only. Any failure —
// a transport error or an empty response where content is required —
// moves the agent to StateFailed and aborts the remaining steps,
// propagating the original error. On success the agent is StateDone
// and the final text is returned.
func (a *Agent) Run(ctx context.Context, steps int) (Result, error) {
	a.state = StateGenerating
	a.step = 0

	content, err := a.llm.Complete(ctx, llm.CompletionRequest{
		Model:       a.cfg.Model,
		Prompt:      prompt.AgentGeneration(a.cfg.Topics, a.cfg.Languages, a.cfg.Frameworks, a.cfg.Level, a.cfg.LearningStyle),
		Temperature: temperature,
		MaxTokens:   maxOutputTokens,
	})
	if err != nil {
		a.state = StateFailed
		return Result{}, fmt.Errorf("generating initial content: %w", err)
	}
	if content == "" {
		a.state = StateFailed
		return Result{}, fmt.Errorf("generating initial content: %w", llm.ErrEmptyCompletion)
	}
	a.logger.Debug("initial content generated", "chars", len(content))

	for i := 1; i <= steps; i++ {
		a.state = StateReflecting
		a.step = i

		revised, err := a.llm.Complete(ctx, llm.CompletionRequest{
			Model:       a.cfg.Model,
			Prompt:      prompt.Reflection(content, a.cfg.Languages, a.cfg.Frameworks, a.cfg.Level, a.cfg.LearningStyle),
			Temperature: temperature,
			MaxTokens:   maxOutputTokens,
		})
		if err != nil {
			a.state = StateFailed
			return Result{Content: content, StepsCompleted: i - 1}, fmt.Errorf("reflection step %d: %w", i, err)
		}
		if revised == "" {
			a.state = StateFailed
			return Result{Content: content, StepsCompleted: i - 1}, fmt.Errorf("reflection step %d: %w", i, llm.ErrEmptyCompletion)
		}

		content = revised
		a.logger.Debug("reflection step complete", "step", i, "chars", len(content))
	}

	a.state = StateDone
	a.logger.Info("reflection run complete", "steps", steps, "chars", len(content))
	return Result{Content: content, StepsCompleted: steps}, nil
}
