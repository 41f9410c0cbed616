package prompt

import (
	"strings"
	"testing"

	"github.com/eduforge/eduforge/internal/catalog"
)

var combo = catalog.Combination{
	Topic:         "Web Development",
	Language:      "JavaScript",
	Framework:     "React",
	Level:         "beginner",
	Type:          "guide",
	LearningStyle: "visual",
}

func TestGeneration_EmbedsSelectorsAndOutline(t *testing.T) {
	p := Generation(combo)

	for _, want := range []string{
		"Web Development", "JavaScript", "React", "beginner", "guide", "visual",
		"Introduction and prerequisites",
		"Step-by-step instructions",
		"Code examples",
		"Best practices",
		"Common pitfalls",
		"Further resources",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("Generation() missing %q", want)
		}
	}
}

func TestAgentGeneration_SpansAllLists(t *testing.T) {
	p := AgentGeneration(
		[]string{"Databases", "Security"},
		[]string{"Go", "Rust"},
		[]string{"Gin"},
		"advanced", "reading",
	)
	for _, want := range []string{"Databases", "Security", "Go", "Rust", "Gin", "advanced", "reading"} {
		if !strings.Contains(p, want) {
			t.Errorf("AgentGeneration() missing %q", want)
		}
	}
}

func TestReflection_EmbedsContentAndCriteria(t *testing.T) {
	p := Reflection("current draft", []string{"Python"}, []string{"Django"}, "beginner", "visual")

	if !strings.Contains(p, "current draft") {
		t.Error("Reflection() missing current content")
	}
	for _, want := range []string{
		"Clarity and accuracy",
		"beginner level learner",
		"visual learning style",
		"Technical accuracy for Python",
		"best practices for Django",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("Reflection() missing criterion %q", want)
		}
	}
}

func TestLabel(t *testing.T) {
	got := Label(combo)
	want := "Generate a beginner guide about Web Development using JavaScript and React for visual learners"
	if got != want {
		t.Errorf("Label() = %q, want %q", got, want)
	}
}
