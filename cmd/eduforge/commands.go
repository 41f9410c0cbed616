package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eduforge/eduforge/internal/catalog"
	"github.com/eduforge/eduforge/internal/config"
	"github.com/eduforge/eduforge/internal/generator"
	"github.com/eduforge/eduforge/internal/llm"
	"github.com/eduforge/eduforge/internal/reflection"
	"github.com/eduforge/eduforge/internal/storage"
)

func newLLMClient(cfg config.Config) *llm.Client {
	if cfg.LLM.BaseURL != "" {
		return llm.NewClientWithBaseURL(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	}
	return llm.NewClient(cfg.LLM.APIKey)
}

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate learning content for every catalog combination",
	Long: `Generate learning content for every combination of topic, programming
language, framework, level, and learning style in the catalog. Content that
already exists is skipped, so interrupted runs can be resumed by running the
command again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		model := cfg.LLM.Model
		if m, _ := cmd.Flags().GetString("model"); m != "" {
			model = m
		}
		failOpen := cfg.Generator.FailOpen
		if cmd.Flags().Changed("fail-open") {
			failOpen, _ = cmd.Flags().GetBool("fail-open")
		}

		store, err := storage.Open(cfg.Database.URL, cfg.Database.ServiceKey)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cat := catalog.Default()
		printStep("Generating content for %d combinations with %s", cat.Size(), model)

		started := time.Now().UTC()
		driver := generator.NewDriver(store, newLLMClient(cfg), cat, model, failOpen)
		summary := driver.Run(ctx)

		run := storage.Run{
			ID:         uuid.New().String(),
			Model:      model,
			Generated:  summary.Generated,
			Skipped:    summary.Skipped,
			Errors:     summary.Errors,
			StartedAt:  started,
			FinishedAt: started.Add(summary.Elapsed),
		}
		if err := store.SaveRun(run); err != nil {
			printWarning("could not record run summary: %v", err)
		}

		printStatus("Generated", "%d", summary.Generated)
		printStatus("Skipped", "%d", summary.Skipped)
		printStatus("Errors", "%d", summary.Errors)
		printStatus("Elapsed", "%s", summary.Elapsed.Round(time.Second))

		if summary.Errors > 0 {
			printWarning("Run finished with %d errors; re-run to fill the gaps", summary.Errors)
		} else {
			printSuccess("Run complete")
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().String("model", "", "completion model (default from config)")
	generateCmd.Flags().Bool("fail-open", true, "generate when the existence check fails")
}

// --- reflect ---

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Generate one piece of content with iterative self-review",
	Long: `Generate a single piece of learning content, then run it through the
requested number of review-and-revise passes. The final revision is printed
to stdout.

Examples:
  eduforge reflect --topic "Web Development" --language JavaScript --framework React
  eduforge reflect --topic Databases --language Go --framework GORM --level advanced --steps 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, _ := cmd.Flags().GetStringSlice("topic")
		languages, _ := cmd.Flags().GetStringSlice("language")
		frameworks, _ := cmd.Flags().GetStringSlice("framework")
		level, _ := cmd.Flags().GetString("level")
		style, _ := cmd.Flags().GetString("style")
		steps, _ := cmd.Flags().GetInt("steps")

		if len(topics) == 0 || len(languages) == 0 || len(frameworks) == 0 {
			return fmt.Errorf("--topic, --language, and --framework are required")
		}
		if steps < 0 {
			return fmt.Errorf("--steps must be >= 0")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		model := cfg.LLM.Model
		if m, _ := cmd.Flags().GetString("model"); m != "" {
			model = m
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		agent := reflection.NewAgent(newLLMClient(cfg), reflection.Config{
			Topics:        topics,
			Languages:     languages,
			Frameworks:    frameworks,
			Level:         level,
			LearningStyle: style,
			Model:         model,
		})

		printStep("Generating with %s (%d reflection steps)", model, steps)
		res, err := agent.Run(ctx, steps)
		if err != nil {
			return err
		}

		fmt.Println(res.Content)
		printSuccess("Done after %d reflection steps", res.StepsCompleted)
		return nil
	},
}

func init() {
	reflectCmd.Flags().StringSlice("topic", nil, "topic (repeatable)")
	reflectCmd.Flags().StringSlice("language", nil, "programming language (repeatable)")
	reflectCmd.Flags().StringSlice("framework", nil, "framework (repeatable)")
	reflectCmd.Flags().String("level", "beginner", "skill level")
	reflectCmd.Flags().String("style", "visual", "learning style")
	reflectCmd.Flags().String("model", "", "completion model (default from config)")
	reflectCmd.Flags().Int("steps", 1, "number of review-and-revise passes")
}

// --- content ---

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Browse and manage stored content",
}

var contentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored content records",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/content?limit=%d&offset=%d", limit, offset)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var records []struct {
			ContentHash   string   `json:"content_hash"`
			Topics        []string `json:"topics"`
			Languages     []string `json:"programming_languages"`
			Frameworks    []string `json:"frameworks"`
			Level         string   `json:"level"`
			LearningStyle string   `json:"learning_style"`
			CreatedAt     string   `json:"created_at"`
		}
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No content found.")
			return nil
		}

		for _, rec := range records {
			fmt.Printf("%s  %s %s / %s / %s (%s)\n",
				colorize(colorCyan, rec.ContentHash[:12]),
				rec.Level,
				strings.Join(rec.Topics, ","),
				strings.Join(rec.Languages, ","),
				strings.Join(rec.Frameworks, ","),
				rec.LearningStyle,
			)
		}
		return nil
	},
}

var contentShowCmd = &cobra.Command{
	Use:   "show <hash>",
	Short: "Print a stored content record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/content/"+args[0])
		if err != nil {
			return err
		}

		var rec struct {
			Content     string `json:"content"`
			UserMessage string `json:"user_message"`
		}
		if err := decodeJSON(resp, &rec); err != nil {
			return err
		}

		fmt.Println(rec.Content)
		return nil
	},
}

var contentDeleteCmd = &cobra.Command{
	Use:   "delete <hash>",
	Short: "Delete a stored content record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/content/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted %s", args[0])
		return nil
	},
}

var contentFeedbackCmd = &cobra.Command{
	Use:   "feedback <hash>",
	Short: "Rate a stored content record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, _ := cmd.Flags().GetInt("rating")
		notes, _ := cmd.Flags().GetString("notes")

		if rating < 1 || rating > 5 {
			return fmt.Errorf("--rating must be between 1 and 5")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"rating": rating}
		if notes != "" {
			body["notes"] = notes
		}
		resp, err := client.post(cmd.Context(), "/content/"+args[0]+"/feedback", body)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Saved feedback %s", result["id"])
		return nil
	},
}

func init() {
	contentListCmd.Flags().Int("limit", 20, "maximum number of records to list")
	contentListCmd.Flags().Int("offset", 0, "number of records to skip")
	contentFeedbackCmd.Flags().Int("rating", 0, "rating from 1 to 5")
	contentFeedbackCmd.Flags().String("notes", "", "free-form notes")

	contentCmd.AddCommand(contentListCmd)
	contentCmd.AddCommand(contentShowCmd)
	contentCmd.AddCommand(contentDeleteCmd)
	contentCmd.AddCommand(contentFeedbackCmd)
}

// --- runs ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past generation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/runs?limit=%d", limit))
		if err != nil {
			return err
		}

		var runs []struct {
			ID        string `json:"id"`
			Model     string `json:"model"`
			Generated int    `json:"generated"`
			Skipped   int    `json:"skipped"`
			Errors    int    `json:"errors"`
			StartedAt string `json:"started_at"`
		}
		if err := decodeJSON(resp, &runs); err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs found.")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %s  %s  generated=%d skipped=%d errors=%d\n",
				colorize(colorCyan, r.ID[:8]),
				r.StartedAt,
				r.Model,
				r.Generated, r.Skipped, r.Errors,
			)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
