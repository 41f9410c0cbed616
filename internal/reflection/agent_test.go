package reflection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/eduforge/eduforge/internal/llm"
)

// scriptedCompleter returns one scripted response (or error) per call,
// in order, and records every prompt it receives.
type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return fmt.Sprintf("draft %d", i), nil
}

func newTestAgent(c Completer) *Agent {
	return NewAgent(c, Config{
		Topics:     []string{"Web Development"},
		Languages:  []string{"JavaScript"},
		Frameworks: []string{"React"},
	})
}

func TestRun_ZeroSteps_GenerationOnly(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"initial draft"}}
	a := newTestAgent(c)

	res, err := a.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run(0) error = %v", err)
	}
	if c.calls != 1 {
		t.Errorf("completion calls = %d, want exactly 1", c.calls)
	}
	if a.State() != StateDone {
		t.Errorf("state = %s, want done", a.State())
	}
	if res.Content != "initial draft" || res.StepsCompleted != 0 {
		t.Errorf("Result = %+v, want initial draft with 0 steps", res)
	}
}

func TestRun_TwoSteps_ThreeSequentialCalls(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"v0", "v1", "v2"}}
	a := newTestAgent(c)

	res, err := a.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("Run(2) error = %v", err)
	}
	if c.calls != 3 {
		t.Errorf("completion calls = %d, want 3 (1 generation + 2 reflections)", c.calls)
	}
	if res.Content != "v2" || res.StepsCompleted != 2 {
		t.Errorf("Result = %+v, want final v2 after 2 steps", res)
	}

	// Each reflection prompt embeds the previous pass's output.
	if !strings.Contains(c.prompts[1], "v0") {
		t.Error("first reflection prompt does not embed the generated content")
	}
	if !strings.Contains(c.prompts[2], "v1") {
		t.Error("second reflection prompt does not embed the first revision")
	}
}

func TestRun_EmptyGenerationAbortsBeforeReflection(t *testing.T) {
	c := &scriptedCompleter{responses: []string{""}}
	a := newTestAgent(c)

	_, err := a.Run(context.Background(), 3)
	if err == nil {
		t.Fatal("Run() error = nil, want failure on empty generation")
	}
	if c.calls != 1 {
		t.Errorf("completion calls = %d, want 1 (no reflection after failed generation)", c.calls)
	}
	if a.State() != StateFailed {
		t.Errorf("state = %s, want failed", a.State())
	}
	if !strings.Contains(err.Error(), "generating initial content") {
		t.Errorf("error %q does not name the generation phase", err)
	}
	if !errors.Is(err, llm.ErrEmptyCompletion) {
		t.Errorf("error %q does not wrap ErrEmptyCompletion", err)
	}
}

func TestRun_EmptyStepTwoAbortsBeforeStepThree(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"v0", "v1", ""}}
	a := newTestAgent(c)

	res, err := a.Run(context.Background(), 3)
	if err == nil {
		t.Fatal("Run() error = nil, want failure at step 2")
	}
	if c.calls != 3 {
		t.Errorf("completion calls = %d, want 3 (step 3 never runs)", c.calls)
	}
	if !strings.Contains(err.Error(), "reflection step 2") {
		t.Errorf("error %q does not name the failing step", err)
	}
	if res.StepsCompleted != 1 {
		t.Errorf("StepsCompleted = %d, want 1", res.StepsCompleted)
	}
	if a.State() != StateFailed {
		t.Errorf("state = %s, want failed", a.State())
	}
}

func TestRun_TransportFailurePropagatesOriginalError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	c := &scriptedCompleter{responses: []string{"v0"}, errs: []error{nil, cause}}
	a := newTestAgent(c)

	_, err := a.Run(context.Background(), 1)
	if err == nil {
		t.Fatal("Run() error = nil, want transport failure")
	}
	if !errors.Is(err, cause) {
		t.Errorf("error %q does not surface the original error", err)
	}
	if a.State() != StateFailed {
		t.Errorf("state = %s, want failed", a.State())
	}
}

func TestRun_EndToEndSingleCombination(t *testing.T) {
	// Configuration from the reference scenario: one topic, one
	// language, one framework, steps=1 — exactly two completion calls.
	c := &scriptedCompleter{responses: []string{"draft", "refined"}}
	a := NewAgent(c, Config{
		Topics:     []string{"Web Development"},
		Languages:  []string{"JavaScript"},
		Frameworks: []string{"React"},
	})

	res, err := a.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run(1) error = %v", err)
	}
	if c.calls != 2 {
		t.Errorf("completion calls = %d, want 2", c.calls)
	}
	if a.State() != StateDone {
		t.Errorf("state = %s, want done", a.State())
	}
	if res.Content != "refined" {
		t.Errorf("Content = %q, want the refined text", res.Content)
	}
}

func TestNewAgent_Defaults(t *testing.T) {
	a := NewAgent(&scriptedCompleter{}, Config{})
	if a.cfg.Level != "beginner" {
		t.Errorf("default level = %q, want beginner", a.cfg.Level)
	}
	if a.cfg.LearningStyle != "visual" {
		t.Errorf("default learning style = %q, want visual", a.cfg.LearningStyle)
	}
	if a.cfg.Model != "gpt-4o-mini" {
		t.Errorf("default model = %q, want gpt-4o-mini", a.cfg.Model)
	}
	if a.State() != StateIdle {
		t.Errorf("initial state = %s, want idle", a.State())
	}
}
