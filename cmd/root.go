package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-matcher/internal/pipeline"
)

const (
	app       = "resume-matcher"
	envPrefix = "RESUME_MATCHER"
)

type Config struct {
	UserAgent string             `mapstructure:"user-agent"`
	AI        *AIConfig          `mapstructure:"ai"`
	Analysis  *pipeline.Settings `mapstructure:"analysis"`
	Archive   *ArchiveConfig     `mapstructure:"archive"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey            string  `mapstructure:"api-key"`
	APIKeyFile        string  `mapstructure:"api-key-file"`
	Model             string  `mapstructure:"model"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	MaxLogLength      int     `mapstructure:"max-log-length"`
}

type ArchiveConfig struct {
	// Path of the sqlite file. Empty disables the archive.
	Path string `mapstructure:"path"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-matcher assesses how well a resume fits a job description",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// A missing .env is fine, the environment may be set up already.
	_ = godotenv.Load()

	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if err := readConfig(viper.GetViper(), cfgFile); err != nil {
		log.Fatal(err)
	}
}

// readConfig loads an explicit config file, or resume-matcher.yaml from the
// current directory when it exists, and sets defaults and env bindings.
func readConfig(v *viper.Viper, file string) error {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(app)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	defaults := pipeline.DefaultSettings()

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.requests-per-second", 0.0)
	v.SetDefault("ai.gemini.max-log-length", 0)

	v.SetDefault("analysis.weights.skills", defaults.Weights.Skills)
	v.SetDefault("analysis.weights.experience", defaults.Weights.Experience)
	v.SetDefault("analysis.weights.education", defaults.Weights.Education)
	v.SetDefault("analysis.max-suggestions", defaults.MaxSuggestions)
	v.SetDefault("analysis.stage-timeout", defaults.StageTimeout.String())
	v.SetDefault("analysis.perfect-score", defaults.PerfectScore)
	v.SetDefault("analysis.retry-backoff", defaults.RetryBackoff.String())

	v.SetDefault("archive.path", "")
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

// decodeConfig unmarshals and validates the configuration.
func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Analysis == nil {
		settings := pipeline.DefaultSettings()
		config.Analysis = &settings
	}
	if config.Archive == nil {
		config.Archive = &ArchiveConfig{}
	}

	if err := config.Analysis.Validate(); err != nil {
		return nil, fmt.Errorf("analysis settings: %w", err)
	}
	if config.AI.Gemini.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("ai.gemini.requests-per-second must not be negative")
	}

	return config, nil
}
