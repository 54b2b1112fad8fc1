package cmd

import (
	"errors"
	"log"
	"strings"

	"github.com/spigell/cv-matcher/internal/classifier"
	"github.com/spigell/cv-matcher/internal/dataset"
	"github.com/spigell/cv-matcher/internal/scoring"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "cv-matcher"

	envPrefix        = "CV_MATCHER"
	defaultModelPath = "model.json.gz"
)

type Config struct {
	ModelPath       string             `mapstructure:"model-path"`
	MinimumFitScore float64            `mapstructure:"minimum-fit-score"`
	Classifier      classifier.Options `mapstructure:"classifier"`
	Training        *TrainingConfig    `mapstructure:"training"`
	Ranking         *RankingConfig     `mapstructure:"ranking"`
	AI              *AIConfig          `mapstructure:"ai"`
}

type TrainingConfig struct {
	Columns     dataset.Columns `mapstructure:"columns"`
	MetricsFile string          `mapstructure:"metrics-file"`
}

type RankingConfig struct {
	MinScore       float64  `mapstructure:"min-score"`
	RequiredSkills []string `mapstructure:"required-skills"`
	Workers        int      `mapstructure:"workers"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-matcher trains a resume/job match model and scores candidates with it",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("model-path", defaultModelPath)
	viper.SetDefault("minimum-fit-score", scoring.DefaultMinimumFitScore)
	viper.SetDefault("ai.provider", "model")

	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("model", "m", "", "path to the model artifact (default is model.json.gz)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("model-path", rootCmd.PersistentFlags().Lookup("model"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless it was requested explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		ModelPath:       defaultModelPath,
		MinimumFitScore: scoring.DefaultMinimumFitScore,
		Classifier:      classifier.DefaultOptions(),
		Training: &TrainingConfig{
			Columns: dataset.DefaultColumns(),
		},
		Ranking: &RankingConfig{
			MinScore: defaultMinScore,
		},
		AI: &AIConfig{
			Provider: "model",
			Gemini:   &GeminiConfig{},
		},
	}
}

// getConfig decodes the configuration over the defaults, so keys missing
// from the file keep their default values.
func getConfig() (*Config, error) {
	config := defaultConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	if config.Training == nil {
		config.Training = defaultConfig().Training
	}
	if config.Ranking == nil {
		config.Ranking = defaultConfig().Ranking
	}
	if config.AI == nil {
		config.AI = defaultConfig().AI
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	if err := config.Classifier.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) scoring() scoring.Config {
	return scoring.Config{
		ModelPath:       c.ModelPath,
		MinimumFitScore: c.MinimumFitScore,
		Classifier:      c.Classifier,
	}
}
