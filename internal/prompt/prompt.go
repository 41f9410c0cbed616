// Package prompt builds the text prompts sent to the completion
// service, and the user-facing labels stored next to generated content.
package prompt

import (
	"fmt"
	"strings"

	"github.com/eduforge/eduforge/internal/catalog"
)

const generationOutline = `Structure the content as follows:
1. Introduction and prerequisites
2. Step-by-step instructions
3. Code examples
4. Best practices
5. Common pitfalls
6. Further resources`

// Generation builds the prompt for one catalog combination. The five
// selectors and the six-part outline are embedded verbatim; the driver
// sends the result as a single user message.
func Generation(combo catalog.Combination) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a %s %s about %s for the %s programming language, focused on the %s framework.\n",
		combo.Level, combo.Type, combo.Topic, combo.Language, combo.Framework)
	fmt.Fprintf(&sb, "The content must suit a learner with a %s learning style.\n\n", combo.LearningStyle)
	sb.WriteString(generationOutline)
	return sb.String()
}

// AgentGeneration builds the reflection agent's initial prompt. Unlike
// the driver, the agent asks for a single piece of content spanning
// every configured topic, language, and framework.
func AgentGeneration(topics, languages, frameworks []string, level, learningStyle string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create educational content covering these topics: %s.\n", joinList(topics))
	fmt.Fprintf(&sb, "Programming languages: %s.\n", joinList(languages))
	fmt.Fprintf(&sb, "Frameworks: %s.\n", joinList(frameworks))
	fmt.Fprintf(&sb, "The content is for a %s level learner with a %s learning style.\n\n", level, learningStyle)
	sb.WriteString(generationOutline)
	return sb.String()
}

// Reflection builds one critique/revision prompt. The current content
// is embedded together with the five fixed review criteria; the model
// is asked to return the improved content only.
func Reflection(content string, languages, frameworks []string, level, learningStyle string) string {
	var sb strings.Builder
	sb.WriteString("Review the following educational content and produce an improved version.\n\n")
	sb.WriteString("Review criteria:\n")
	fmt.Fprintf(&sb, "1. Clarity and accuracy of the explanations\n")
	fmt.Fprintf(&sb, "2. Appropriateness for a %s level learner\n", level)
	fmt.Fprintf(&sb, "3. Fit for a %s learning style\n", learningStyle)
	fmt.Fprintf(&sb, "4. Technical accuracy for %s\n", joinList(languages))
	fmt.Fprintf(&sb, "5. Adherence to best practices for %s\n", joinList(frameworks))
	sb.WriteString("\nRespond with the improved content only, no commentary.\n\n")
	sb.WriteString("[Content]\n")
	sb.WriteString(content)
	return sb.String()
}

// Label builds the user-facing message stored with a generated record.
func Label(combo catalog.Combination) string {
	return fmt.Sprintf("Generate a %s %s about %s using %s and %s for %s learners",
		combo.Level, combo.Type, combo.Topic, combo.Language, combo.Framework, combo.LearningStyle)
}

func joinList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
