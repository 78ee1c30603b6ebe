package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one candidate against one position",
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("candidate", "c", "", "candidate id")
	scoreCmd.Flags().StringP("position", "p", "", "position id")
	scoreCmd.MarkFlagRequired("candidate")
	scoreCmd.MarkFlagRequired("position")
}

func score(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	d, err := newDeps(ctx, logger)
	if err != nil {
		logger.Fatal("preparing dependencies", zap.Error(err))
	}
	defer d.Close()

	candidateID, _ := cmd.Flags().GetString("candidate")
	positionID, _ := cmd.Flags().GetString("position")

	result, err := d.service.ScorePair(ctx, candidateID, positionID)
	if err != nil {
		logger.Fatal("scoring pair", zap.Error(err),
			zap.String("candidate_id", candidateID),
			zap.String("position_id", positionID),
		)
	}

	pretty, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(pretty))
}
