// Package generator walks the catalog's cartesian product and fills in
// missing content records via the completion service.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eduforge/eduforge/internal/catalog"
	"github.com/eduforge/eduforge/internal/contenthash"
	"github.com/eduforge/eduforge/internal/llm"
	"github.com/eduforge/eduforge/internal/prompt"
	"github.com/eduforge/eduforge/internal/storage"
)

const (
	temperature     = 0.7
	maxOutputTokens = 2000
)

// ContentStore abstracts the persistence operations the driver needs.
type ContentStore interface {
	ContentExists(sel storage.Selector) (bool, error)
	InsertContent(rec storage.ContentRecord) error
}

// Completer abstracts the completion service.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// Summary reports the outcome of one full driver run.
type Summary struct {
	Generated int
	Skipped   int
	Errors    int
	Elapsed   time.Duration
}

// Driver enumerates the catalog strictly sequentially, consulting the
// store before each generation. Per-combination failures are counted
// and logged; the run always visits the full product.
type Driver struct {
	store    ContentStore
	llm      Completer
	catalog  catalog.Catalog
	model    string
	failOpen bool
	logger   *slog.Logger
}

// NewDriver creates a Driver. When failOpen is true, an existence
// check failure is treated as "content does not exist" and generation
// proceeds — possible duplicate generation is preferred over blocking
// a long batch run on transient query errors. When false, the failure
// counts as the combination's error and the combination is skipped.
func NewDriver(store ContentStore, completer Completer, cat catalog.Catalog, model string, failOpen bool) *Driver {
	return &Driver{
		store:    store,
		llm:      completer,
		catalog:  cat,
		model:    model,
		failOpen: failOpen,
		logger:   slog.Default(),
	}
}

// Run visits every combination in catalog order: existence check, then
// on a miss one completion call and one insert. It returns after the
// full product is exhausted (or ctx is cancelled) with counts of
// generated, skipped, and errored combinations.
func (d *Driver) Run(ctx context.Context) Summary {
	start := time.Now()
	var sum Summary

	for combo := range d.catalog.Combinations() {
		if ctx.Err() != nil {
			d.logger.Warn("generation run cancelled", "generated", sum.Generated, "errors", sum.Errors)
			break
		}

		if err := d.processCombination(ctx, combo, &sum); err != nil {
			sum.Errors++
			d.logger.Error("combination failed",
				"topic", combo.Topic,
				"language", combo.Language,
				"framework", combo.Framework,
				"level", combo.Level,
				"style", combo.LearningStyle,
				"error", err,
			)
		}
	}

	sum.Elapsed = time.Since(start)
	d.logger.Info("generation run finished",
		"generated", sum.Generated,
		"skipped", sum.Skipped,
		"errors", sum.Errors,
		"elapsed", sum.Elapsed,
	)
	return sum
}

// processCombination handles a single point of the product. A nil
// return means the combination was generated or skipped; any error is
// counted against the combination by the caller.
func (d *Driver) processCombination(ctx context.Context, combo catalog.Combination, sum *Summary) error {
	sel := storage.Selector{
		Topic:         combo.Topic,
		Language:      combo.Language,
		Framework:     combo.Framework,
		Level:         combo.Level,
		LearningStyle: combo.LearningStyle,
	}

	exists, err := d.store.ContentExists(sel)
	if err != nil {
		if !d.failOpen {
			return fmt.Errorf("existence check: %w", err)
		}
		// Fail-open: a query failure must not stall the batch.
		d.logger.Warn("existence check failed, assuming content is absent",
			"topic", combo.Topic, "language", combo.Language, "framework", combo.Framework, "error", err)
		exists = false
	}
	if exists {
		sum.Skipped++
		return nil
	}

	text, err := d.llm.Complete(ctx, llm.CompletionRequest{
		Model:       d.model,
		Prompt:      prompt.Generation(combo),
		Temperature: temperature,
		MaxTokens:   maxOutputTokens,
	})
	if err != nil {
		return fmt.Errorf("generating content: %w", err)
	}
	if text == "" {
		return fmt.Errorf("generating content: %w", llm.ErrEmptyCompletion)
	}

	rec := storage.ContentRecord{
		ContentHash:   contenthash.Sum(text),
		Content:       text,
		UserMessage:   prompt.Label(combo),
		Topics:        []string{combo.Topic},
		Languages:     []string{combo.Language},
		Frameworks:    []string{combo.Framework},
		Level:         combo.Level,
		LearningStyle: combo.LearningStyle,
		Model:         d.model,
	}
	if err := d.store.InsertContent(rec); err != nil {
		if errors.Is(err, storage.ErrDuplicateHash) {
			// Identical completion text was already stored for another
			// combination. The content exists, so the run moves on.
			d.logger.Debug("duplicate content hash, already stored", "hash", rec.ContentHash)
			sum.Generated++
			return nil
		}
		return fmt.Errorf("storing content: %w", err)
	}

	sum.Generated++
	d.logger.Debug("content generated",
		"hash", rec.ContentHash,
		"topic", combo.Topic,
		"language", combo.Language,
		"framework", combo.Framework,
	)
	return nil
}
