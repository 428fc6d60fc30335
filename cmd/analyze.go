package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/ai/gemini"
	"github.com/spigell/resume-matcher/internal/archive"
	"github.com/spigell/resume-matcher/internal/extract"
	"github.com/spigell/resume-matcher/internal/pipeline"
	"github.com/spigell/resume-matcher/internal/report"
	"github.com/spigell/resume-matcher/internal/secrets"
)

const (
	PromptFullReport  = "Show full report"
	PromptSkills      = "Show skills"
	PromptExperience  = "Show experience and education"
	PromptSuggestions = "Show suggestions"
	PromptArchive     = "Save to archive"
	PromptDump        = "Dump report to file"
	PromptQuit        = "Quit"
)

var errExit = errors.New("exit requested")

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Assess a resume against a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		logger := newLogger()
		if err := runAnalyze(cmd, logger); err != nil {
			exitWith(logger, err)
		}
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("resume", "r", "", "resume file (text, markdown, json or html)")
	analyzeCmd.Flags().String("job", "", "job description file")
	analyzeCmd.Flags().String("job-url", "", "job posting URL to download")
	analyzeCmd.Flags().StringP("output", "o", "", "write the report as JSON to this file")
	analyzeCmd.Flags().BoolP("auto-approve", "y", false, "print the report and exit without the interactive menu")

	analyzeCmd.MarkFlagRequired("resume")
	analyzeCmd.MarkFlagsMutuallyExclusive("job", "job-url")
	analyzeCmd.MarkFlagsOneRequired("job", "job-url")
}

func runAnalyze(cmd *cobra.Command, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	return analyze(ctx, cmd, config, logger)
}

func analyze(ctx context.Context, cmd *cobra.Command, config *Config, logger *zap.Logger) error {
	logger.Info("starting the resume-matcher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	completer, err := newCompleter(ctx, config.AI, logger)
	if err != nil {
		return withHint(fmt.Errorf("building completion service: %w", err),
			"set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file")
	}

	p, err := pipeline.New(completer, *config.Analysis, pipeline.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	in, err := loadInput(ctx, cmd, config, logger)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	result, err := p.Run(ctx, in)
	if err != nil {
		return err
	}

	if output := cmd.Flag("output").Value.String(); output != "" {
		if err := writeReport(result.Report, output); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		logger.Info("report written", zap.String("filename", output))
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		fmt.Println(result.Report.Summary())
		if config.Archive.Path != "" {
			if err := saveToArchive(ctx, config.Archive.Path, result, logger); err != nil {
				return fmt.Errorf("saving to archive: %w", err)
			}
		}
		return nil
	}

	menu := promptui.Select{
		Label: fmt.Sprintf("Overall fit %d/100 (%s). What next?", result.Report.Score().Overall, report.BandOf(result.Report.Score().Overall)),
		Items: menuItems(config),
	}

	for {
		_, action, err := menu.Run()
		if err != nil {
			return fmt.Errorf("menu: %w", err)
		}

		if err := handleAction(ctx, action, config, result, logger); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			return err
		}
	}
}

func menuItems(config *Config) []string {
	items := []string{PromptFullReport, PromptSkills, PromptExperience, PromptSuggestions}
	if config.Archive.Path != "" {
		items = append(items, PromptArchive)
	}
	return append(items, PromptDump, PromptQuit)
}

func handleAction(ctx context.Context, action string, config *Config, result *pipeline.Result, logger *zap.Logger) error {
	switch action {
	case PromptFullReport:
		fmt.Println(result.Report.Summary())
	case PromptSkills:
		fmt.Println(result.Report.SkillsSection())
	case PromptExperience:
		fmt.Println(result.Report.ExperienceSection())
	case PromptSuggestions:
		fmt.Println(result.Report.SuggestionsSection())
	case PromptArchive:
		return saveToArchive(ctx, config.Archive.Path, result, logger)
	case PromptDump:
		filename, err := dumpToTmpFile(result.Report)
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
	case PromptQuit:
		logger.Info("exiting", zap.String("reason", "got quit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
	return nil
}

func loadInput(ctx context.Context, cmd *cobra.Command, config *Config, logger *zap.Logger) (pipeline.Input, error) {
	resume, err := readDocument(cmd.Flag("resume").Value.String())
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("resume: %w", err)
	}

	if jobURL := cmd.Flag("job-url").Value.String(); jobURL != "" {
		fetcher := extract.NewFetcher(logger)
		if config.UserAgent != "" {
			fetcher.UserAgent = config.UserAgent
		}
		job, err := fetcher.Fetch(ctx, jobURL)
		if err != nil {
			return pipeline.Input{}, fmt.Errorf("job posting: %w", err)
		}
		return pipeline.Input{Resume: resume, Job: job}, nil
	}

	job, err := readDocument(cmd.Flag("job").Value.String())
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("job description: %w", err)
	}
	return pipeline.Input{Resume: resume, Job: job}, nil
}

// readDocument loads a file, leaving MIME detection to the pipeline.
func readDocument(path string) (extract.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Document{}, err
	}
	return extract.Document{Name: filepath.Base(path), Data: data}, nil
}

func newCompleter(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Completer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:             cfg.Gemini.Model,
		RequestsPerSecond: cfg.Gemini.RequestsPerSecond,
		MaxLogLength:      cfg.Gemini.MaxLogLength,
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}

	return generator, nil
}

func saveToArchive(ctx context.Context, path string, result *pipeline.Result, logger *zap.Logger) error {
	store, err := archive.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, result.RunID, result.Report); err != nil {
		return err
	}
	logger.Info("report archived", zap.String("run_id", result.RunID), zap.String("archive", path))
	return nil
}

func writeReport(r *report.Report, filename string) error {
	data, err := r.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

func dumpToTmpFile(r *report.Report) (string, error) {
	data, err := r.Encode()
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", app+"-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// redacted returns a copy of config that is safe to log.
func redacted(config *Config) *Config {
	out := *config
	if config.AI != nil && config.AI.Gemini != nil && config.AI.Gemini.APIKey != "" {
		gem := *config.AI.Gemini
		gem.APIKey = "***"
		aiCfg := *config.AI
		aiCfg.Gemini = &gem
		out.AI = &aiCfg
	}
	return &out
}
