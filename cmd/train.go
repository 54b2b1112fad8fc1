package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/training"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var overwritePrompt = promptui.Select{
	Label: "Model artifact already exists. Replace it?",
	Items: []string{PromptYes, PromptNo},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the match model on a labeled CSV dataset",
	Run: func(cmd *cobra.Command, _ []string) {
		train(cmd)
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("dataset", "", "CSV file with resume, job description and label columns")
	trainCmd.Flags().StringP("out", "o", "", "where to write the model artifact (default is the configured model path)")
	trainCmd.Flags().String("metrics-file", "", "write training metrics in the Prometheus text format to this file")
	trainCmd.Flags().BoolP("yes", "y", false, "replace an existing model artifact without asking")

	trainCmd.MarkFlagRequired("dataset")

	viper.BindPFlag("training.metrics-file", trainCmd.Flags().Lookup("metrics-file"))
}

func train(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the training", zap.String("version", version))

	datasetPath, _ := cmd.Flags().GetString("dataset")
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = config.ModelPath
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if err := confirmOverwrite(out, yes); err != nil {
		if errors.Is(err, errExit) {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
		logger.Fatal("exiting", zap.Error(err))
	}

	pipeline := training.NewPipeline(training.Config{
		Columns:     config.Training.Columns,
		Classifier:  config.Classifier,
		MetricsFile: config.Training.MetricsFile,
	}, logger)

	report, err := pipeline.Run(ctx, datasetPath, out)
	if err != nil {
		var stageErr *training.StageError
		if errors.As(err, &stageErr) {
			logger.Fatal("training failed", zap.String("stage", string(stageErr.Stage)), zap.Error(stageErr.Err))
		}
		logger.Fatal("training failed", zap.Error(err))
	}

	fmt.Printf("model %s saved to %s\n", report.ModelID, report.ModelPath)
	fmt.Printf("examples: %d positive, %d negative (train %d, test %d)\n",
		report.Positives, report.Negatives, report.Metrics.TrainRows, report.Metrics.TestRows)
	fmt.Printf("accuracy %.3f  precision %.3f  recall %.3f  f1 %.3f\n",
		report.Metrics.Accuracy, report.Metrics.Precision, report.Metrics.Recall, report.Metrics.F1)
}

// confirmOverwrite asks before an existing artifact at path is replaced.
func confirmOverwrite(path string, yes bool) error {
	if yes {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	_, action, err := overwritePrompt.Run()
	if err != nil {
		return err
	}
	if action != PromptYes {
		return errExit
	}
	return nil
}
