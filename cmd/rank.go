package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/ranking"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultMinScore = 60

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a directory of resumes against a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().String("job", "", "file with the job description text")
	rankCmd.Flags().String("resumes", "", "directory with *.txt or *.md resumes")
	rankCmd.Flags().StringP("provider", "p", "", "matcher to use: model or gemini (default is ai.provider from the config)")
	rankCmd.Flags().Float64("min-score", defaultMinScore, "minimum match percentage (0-100) to keep a resume")
	rankCmd.Flags().StringSlice("require-skill", nil, "skill every kept resume must mention (repeatable)")
	rankCmd.Flags().Int("workers", 0, "concurrent evaluations (default is GOMAXPROCS)")
	rankCmd.Flags().StringSlice("skip-step", nil, "ranking step to turn off: blank_resume, required_skills or match_score (repeatable)")

	rankCmd.MarkFlagRequired("job")
	rankCmd.MarkFlagRequired("resumes")

	viper.BindPFlag("ranking.min-score", rankCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("ranking.required-skills", rankCmd.Flags().Lookup("require-skill"))
	viper.BindPFlag("ranking.workers", rankCmd.Flags().Lookup("workers"))
}

func rank(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	jobPath, _ := cmd.Flags().GetString("job")
	dir, _ := cmd.Flags().GetString("resumes")
	provider, _ := cmd.Flags().GetString("provider")
	skipped, _ := cmd.Flags().GetStringSlice("skip-step")

	job, err := readText(jobPath)
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err))
	}

	apps, err := ranking.LoadDir(dir)
	if err != nil {
		logger.Fatal("loading resumes", zap.Error(err))
	}
	if apps.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no resumes found"), zap.String("dir", dir))
		return
	}
	logger.Info("resumes loaded", zap.Int("count", apps.Len()))

	matcher, err := newMatcher(ctx, config, provider, logger)
	if err != nil {
		logger.Fatal("creating a matcher", zap.Error(err))
	}

	steps := []ranking.Filter{
		ranking.NewBlankResume(),
		ranking.NewRequiredSkills(config.Ranking.RequiredSkills),
		ranking.NewMatchScore(config.Ranking.MinScore, config.Ranking.Workers),
	}
	if err := skipSteps(steps, skipped); err != nil {
		logger.Fatal("configuring ranking steps", zap.Error(err))
	}
	ranker := ranking.New(steps, logger)

	for _, status := range ranking.Describe(ranker.Steps()) {
		logger.Debug("ranking step",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	ranked, err := ranker.Rank(ctx, matcher, job, apps)
	if err != nil {
		logger.Fatal("ranking failed", zap.Error(err))
	}

	if viper.GetBool("json") {
		pretty, err := json.MarshalIndent(ranked.Items, "", "  ")
		if err != nil {
			logger.Fatal("encoding the result", zap.Error(err))
		}
		fmt.Println(string(pretty))
		return
	}

	if ranked.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no resumes left after ranking"))
		return
	}

	for i, app := range ranked.Items {
		line := fmt.Sprintf("%2d. %-30s %6.2f%%", i+1, app.ID, app.Percentage)
		if app.Error != "" {
			line += "  error: " + app.Error
		} else if app.Assessment != nil && app.Assessment.Reason != "" {
			line += "  " + app.Assessment.Reason
		}
		fmt.Println(line)
	}
}

// skipSteps disables every named step and rejects names no step carries.
func skipSteps(steps []ranking.Filter, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !ranking.DisableByName(steps, name, "skipped with --skip-step") {
			return fmt.Errorf("unknown ranking step %q", name)
		}
	}
	return nil
}
