package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/filtering"
	"github.com/spigell/hr-matcher/internal/matching"
	"github.com/spigell/hr-matcher/internal/matchmaker"
)

const (
	PromptShow                = "Show matches"
	PromptReportByEmployers   = "Report by employers"
	PromptMatchesToFile       = "Dump matches to file"
	PromptAppendToExcludeFile = "Append all positions to exclude file"
	PromptExit                = "Exit"
)

var errExit = errors.New("exit requested")

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank positions for a candidate or candidates for a position",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringP("candidate", "c", "", "rank active positions for this candidate id")
	rankCmd.Flags().StringP("position", "p", "", "rank candidates for this position id")
	rankCmd.Flags().IntP("limit", "n", 20, "max matches to keep, 0 keeps everything")
	rankCmd.Flags().Float64("min-score", 0, "drop matches scoring below this value")
	rankCmd.Flags().BoolP("yes", "y", false, "print matches and exit without the interactive menu")
	rankCmd.Flags().BoolP("include-applied", "f", false, "do not exclude positions the candidate already applied to")
	rankCmd.Flags().StringP("exclude-file", "e", "", "special file with positions to exclude. Default is unset.")
	rankCmd.MarkFlagsMutuallyExclusive("candidate", "position")
	rankCmd.MarkFlagsOneRequired("candidate", "position")

	viper.BindPFlag("filters.exclude-file", rankCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("filters.include-applied", rankCmd.Flags().Lookup("include-applied"))
}

func rank(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	logger.Info("starting the hr-matcher", zap.String("version", version))

	d, err := newDeps(ctx, logger)
	if err != nil {
		logger.Fatal("preparing dependencies", zap.Error(err))
	}
	defer d.Close()

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(d.config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	limit, _ := cmd.Flags().GetInt("limit")
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	q := matchmaker.Query{Limit: limit, MinScore: minScore}

	candidateID, _ := cmd.Flags().GetString("candidate")
	positionID, _ := cmd.Flags().GetString("position")

	var results matching.Results
	if candidateID != "" {
		logger.Info("filters", zap.Any("pipeline", d.service.Filters()))
		results, err = d.service.RankPositionsForCandidate(ctx, candidateID, q)
	} else {
		results, err = d.service.RankCandidatesForPosition(ctx, positionID, q)
	}
	if err != nil {
		logger.Fatal("ranking", zap.Error(err))
	}

	if results.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no matches found"))
		return
	}

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		printMatches(results)
		return
	}

	for {
		_, action, err := actionPrompt(candidateID != "").Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		logger.Info("current list of matches", zap.Int("count", results.Len()))

		results, err = handleAction(action, logger, results)
		if err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func actionPrompt(positions bool) *promptui.Select {
	items := []string{PromptShow, PromptReportByEmployers, PromptMatchesToFile}
	if positions && viper.GetString("filters.exclude-file") != "" {
		items = append(items, PromptAppendToExcludeFile)
	}

	return &promptui.Select{
		Label: "What next?",
		Items: append(items, PromptExit),
	}
}

func handleAction(action string, logger *zap.Logger, results matching.Results) (matching.Results, error) {
	switch action {
	case PromptShow:
		printMatches(results)
		return results, nil
	case PromptReportByEmployers:
		pretty, _ := json.MarshalIndent(results.ReportByEmployer(), "", "  ")
		logger.Info(string(pretty), zap.Int("matches count", results.Len()))
		return results, nil
	case PromptMatchesToFile:
		filename, err := results.DumpToTmpFile()
		if err != nil {
			return results, fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return results, nil
	case PromptAppendToExcludeFile:
		return appendToExcludeFile(logger, results)
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return results, errExit
	default:
		return results, fmt.Errorf("invalid action: %s", action)
	}
}

// appendToExcludeFile stores every ranked position in the exclude file and returns nothing left to act on.
func appendToExcludeFile(logger *zap.Logger, results matching.Results) (matching.Results, error) {
	excludeFile := viper.GetString("filters.exclude-file")

	excluded, err := filtering.LoadExcludedPositions(excludeFile)
	if err != nil {
		return results, err
	}

	excluded.Append(filtering.ToExcluded(results, time.Now()))

	if err := excluded.ToFile(excludeFile); err != nil {
		return results, err
	}

	logger.Info("appended to exclude file", zap.String("filename", excludeFile), zap.Int("count", results.Len()))
	return nil, errExit
}

func printMatches(results matching.Results) {
	for i, r := range results {
		name := r.PositionTitle
		if r.EmployerName != "" {
			name += " / " + r.EmployerName
		}
		fmt.Printf("%2d. %5.1f  %-28s candidate=%s position=%s  %s\n",
			i+1, r.Score, r.Recommendation, r.CandidateID, r.PositionID, name)
	}
}
