package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aletheia-ng/pidginforge/internal/dataset"
	"github.com/aletheia-ng/pidginforge/internal/prompt"
	"github.com/aletheia-ng/pidginforge/internal/provider"
	"github.com/aletheia-ng/pidginforge/internal/runner"
	"github.com/aletheia-ng/pidginforge/internal/schema"
	"github.com/aletheia-ng/pidginforge/internal/sink"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate synthetic Pidgin records into JSONL files",
	Long: `Generate structured Nigerian Pidgin records.

This command:
- Expands the dimensional parameter space and samples combinations with a
  seeded shuffle (daily seed by default, so each day covers new ground)
- Renders each combination into a prompt bound to a fixed system prompt
- Submits prompts through the configured backend under a bounded worker
  pool with a global rate limit and bounded retries on 429s
- Appends validated records to data.jsonl and failed attempts to
  failed.jsonl, resuming past successful combinations on re-run

Examples:
  pidginforge generate --test                        # 5 examples, quick check
  pidginforge generate --num 1000 --workers 4        # daily batch
  pidginforge generate --provider anthropic --model claude-3-5-haiku-latest
  pidginforge generate --timestamp --no-resume       # fresh timestamped files`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd.Context())
	},
}

var (
	genProvider  string
	genModel     string
	genWorkers   int
	genNum       int
	genRateLimit time.Duration
	genSeed      int64
	genOutputDir string
	genTimestamp bool
	genNoResume  bool
	genTest      bool
	genRetries   int

	genLang         string
	genDocsPerReq   int
	genCommonWords  string
	genExclamations string
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&genProvider, "provider", "openrouter", "backend provider (openrouter, openai, anthropic)")
	generateCmd.Flags().StringVar(&genModel, "model", "", "backend model identifier (provider default if empty)")
	generateCmd.Flags().IntVar(&genWorkers, "workers", 1, "number of parallel workers")
	generateCmd.Flags().IntVar(&genNum, "num", 1000, "number of examples to generate")
	generateCmd.Flags().DurationVar(&genRateLimit, "rate-limit", 500*time.Millisecond, "minimum spacing between API calls across all workers")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "expansion seed (0 derives a daily YYYYMMDD seed)")
	generateCmd.Flags().StringVar(&genOutputDir, "output-dir", "pidgin_data/news", "output directory")
	generateCmd.Flags().BoolVar(&genTimestamp, "timestamp", false, "use timestamped output filenames")
	generateCmd.Flags().BoolVar(&genNoResume, "no-resume", false, "start fresh, ignore progress file")
	generateCmd.Flags().BoolVar(&genTest, "test", false, "generate 5 examples for testing")
	generateCmd.Flags().IntVar(&genRetries, "max-retries", 3, "attempt budget per task on rate-limit errors")

	generateCmd.Flags().StringVar(&genLang, "lang", "Pidgin", "language to generate")
	generateCmd.Flags().IntVar(&genDocsPerReq, "n-docs", 15, "documents per request")
	generateCmd.Flags().StringVar(&genCommonWords, "common-words", "", "comma-separated vocabulary the model should use naturally")
	generateCmd.Flags().StringVar(&genExclamations, "exclamations", "", "comma-separated exclamations for informal registers")
}

func runGenerate(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := provider.NewRegistry()
	if err := registerProvider(registry, genProvider); err != nil {
		return err
	}
	defer func() { _ = registry.Close() }()

	p, err := registry.Get(genProvider)
	if err != nil {
		return err
	}
	model := resolveModel(genProvider, genModel)

	seed := genSeed
	if seed == 0 {
		// Daily seed: same expansion all day, different tomorrow.
		seed = dailySeed(time.Now())
	}

	space := dataset.NewsSpace()
	exp, err := dataset.ExpandAll(space, seed, dataset.NewsFilter)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(genOutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Progress tracking only makes sense for stable filenames.
	var progress *sink.Progress
	if !genTimestamp && !genNoResume {
		progress, err = sink.LoadProgress(genOutputDir)
		if err != nil {
			return err
		}
		if progress.Count() > 0 {
			if progress.Seed != seed {
				log.Warn().
					Int64("progress_seed", progress.Seed).
					Int64("seed", seed).
					Msg("Progress file was written under a different seed; indices refer to a different shuffle")
			}
			if !quiet {
				fmt.Printf("Resuming: %d already successful\n", progress.Count())
			}
		}
		progress.Seed = seed
		progress.Total = exp.Len()
	}

	tasks, err := buildTasks(exp, progress, model)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No unprocessed combinations to generate!")
		return nil
	}

	writer, err := sink.New(genOutputDir, genTimestamp, time.Now())
	if err != nil {
		return err
	}
	defer func() { _ = writer.Close() }()

	if !quiet {
		fmt.Printf("Total valid combinations: %d\n", exp.Len())
		fmt.Printf("Seed: %d\n", seed)
		fmt.Printf("Generating %d examples with %d workers...\n\n", len(tasks), genWorkers)
	}

	var spin *spinner.Spinner
	if !quiet {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		spin.Suffix = fmt.Sprintf(" 0/%d", len(tasks))
		spin.Start()
		defer spin.Stop()
	}

	run := runner.New(p, runner.Options{
		Workers:   genWorkers,
		RateLimit: genRateLimit,
		Retry:     runner.RetryConfig{MaxAttempts: genRetries},
	})

	summary := run.Run(ctx, tasks, func(result runner.Result) {
		if result.Succeeded() {
			if err := writer.WriteRecord(result.Record); err != nil {
				log.Error().Err(err).Msg("Failed to write record")
			} else if progress != nil {
				if err := progress.MarkDone(result.Task.Index); err != nil {
					log.Error().Err(err).Msg("Failed to save progress")
				}
			}
		} else {
			if err := writer.WriteFailure(result.Task.Combination, string(result.Reason)); err != nil {
				log.Error().Err(err).Msg("Failed to write failure")
			}
		}
		if spin != nil {
			updateSpinner(spin, run.Completed(), len(tasks), result.Task.Combination)
		}
	})

	if spin != nil {
		spin.Stop()
	}

	printSummary(summary, writer, progress, exp.Len())
	return nil
}

// buildTasks renders prompts for every combination not already completed,
// capped at the requested count. Combinations decode lazily so the full
// multi-million product never lives in memory as maps.
func buildTasks(exp *dataset.Expansion, progress *sink.Progress, model string) ([]runner.Task, error) {
	limit := genNum
	if genTest {
		limit = 5
	}

	opts := prompt.Options{
		Language:       genLang,
		DocsPerRequest: genDocsPerReq,
		CommonWords:    genCommonWords,
		Exclamations:   genExclamations,
	}
	template := prompt.NewsTemplate(opts)
	systemPrompt := prompt.NewsSystemPrompt(opts)
	recordSchema := schema.PidginText()

	tasks := make([]runner.Task, 0, limit)
	for i := 0; i < exp.Len() && len(tasks) < limit; i++ {
		if progress != nil && progress.Done(i) {
			continue
		}
		combo := exp.At(i)

		rendered, err := prompt.Render(template, combo)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, runner.Task{
			Index:       i,
			Combination: combo,
			Request: &provider.Request{
				Model:        model,
				Prompt:       rendered,
				SystemPrompt: systemPrompt,
				Schema:       recordSchema,
			},
		})
	}
	return tasks, nil
}

// updateSpinner refreshes the progress suffix. Workers report results
// concurrently and the spinner's render goroutine reads Suffix, so the
// assignment happens under the spinner's own lock.
func updateSpinner(spin *spinner.Spinner, completed, total int, combo dataset.Combination) {
	spin.Lock()
	spin.Suffix = fmt.Sprintf(" %d/%d %s - %s", completed, total, combo["topic"], combo["genre"])
	spin.Unlock()
}

func printSummary(summary runner.Summary, writer *sink.Writer, progress *sink.Progress, totalCombos int) {
	fmt.Printf("\nValid: %d/%d\n", summary.Succeeded, summary.Attempted)
	fmt.Printf("Failed: %d/%d\n", summary.Failed, summary.Attempted)
	fmt.Printf("Records: %s\n", writer.RecordsPath())
	if summary.Failed > 0 {
		fmt.Printf("Failures: %s\n", writer.FailuresPath())
		fmt.Println("Failed combinations will be retried on the next run")
	}
	if progress != nil {
		fmt.Printf("Progress: %d/%d successfully completed\n", progress.Count(), totalCombos)
	}

	if summary.Succeeded > 0 {
		if sample, err := firstLine(writer.RecordsPath()); err == nil && sample != nil {
			pretty, _ := json.MarshalIndent(sample, "", "  ")
			fmt.Printf("\nSample output:\n%s\n", pretty)
		}
	}
}

// firstLine reads the first record of a JSONL file.
func firstLine(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var record map[string]interface{}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&record); err != nil {
		return nil, err
	}
	return record, nil
}

// dailySeed derives the expansion seed from the wall-clock date, YYYYMMDD.
func dailySeed(now time.Time) int64 {
	seed, _ := strconv.ParseInt(now.Format("20060102"), 10, 64)
	return seed
}
