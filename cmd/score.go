package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spigell/cv-matcher/internal/ai"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/scoring"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type scoreOutput struct {
	Provider string  `json:"provider"`
	ModelID  string  `json:"model_id,omitempty"`
	Outcome  string  `json:"outcome,omitempty"`
	Score    float64 `json:"score"`
	*ai.FitAssessment
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score how well a resume matches a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("resume", "r", "", "file with the resume text")
	scoreCmd.Flags().String("job", "", "file with the job description text")
	scoreCmd.Flags().StringP("provider", "p", "", "matcher to use: model or gemini (default is ai.provider from the config)")

	scoreCmd.MarkFlagRequired("resume")
	scoreCmd.MarkFlagRequired("job")
}

func score(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	resumePath, _ := cmd.Flags().GetString("resume")
	jobPath, _ := cmd.Flags().GetString("job")
	provider, _ := cmd.Flags().GetString("provider")

	resume, err := readText(resumePath)
	if err != nil {
		logger.Fatal("reading the resume", zap.Error(err))
	}
	job, err := readText(jobPath)
	if err != nil {
		logger.Fatal("reading the job description", zap.Error(err))
	}

	matcher, err := newMatcher(ctx, config, provider, logger)
	if err != nil {
		logger.Fatal("creating a matcher", zap.Error(err))
	}

	out, err := assess(ctx, matcher, resume, job)
	if err != nil {
		logger.Fatal("evaluating the resume", zap.Error(err))
	}

	// --json switches the result to json as well; logs stay on stderr.
	if viper.GetBool("json") {
		pretty, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			logger.Fatal("encoding the result", zap.Error(err))
		}
		fmt.Println(string(pretty))
		return
	}

	fmt.Printf("provider: %s\n", out.Provider)
	if out.ModelID != "" {
		fmt.Printf("model: %s\n", out.ModelID)
	}
	if out.Outcome != "" {
		fmt.Printf("outcome: %s\n", out.Outcome)
	}
	fmt.Printf("score: %.4f (%.1f%%)\n", out.Score, out.Score*100)
	fmt.Printf("fit: %t\n", out.Fit)
	if out.Reason != "" {
		fmt.Printf("reason: %s\n", out.Reason)
	}
}

// assess evaluates one pair and tags the result with the matcher that made it.
func assess(ctx context.Context, matcher ai.Matcher, resume, job string) (scoreOutput, error) {
	assessment, err := matcher.Evaluate(ctx, resume, job)
	if err != nil {
		return scoreOutput{}, err
	}

	out := scoreOutput{Provider: ai.ProviderGemini, Score: assessment.Score, FitAssessment: assessment}
	if service, ok := matcher.(*scoring.Service); ok {
		out.Provider = ai.ProviderModel
		out.ModelID = service.ModelID()
		out.Outcome = assessment.Message
	}
	return out, nil
}
