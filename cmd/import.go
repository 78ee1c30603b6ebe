package cmd

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/hr-matcher/internal/crm"
	"github.com/spigell/hr-matcher/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load employers, candidates, positions and applications from a YAML file into the store",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		importDataset(args[0])
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func importDataset(path string) {
	ctx := context.Background()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	ds, err := readDataset(path)
	if err != nil {
		logger.Fatal("reading dataset", zap.Error(err), zap.String("file", path))
	}

	backend, err := store.Open(ctx, config.Database, logger)
	if err != nil {
		logger.Fatal("opening store", zap.Error(err))
	}
	defer backend.Close()

	if err := backend.Import(ctx, ds); err != nil {
		logger.Fatal("importing dataset", zap.Error(err))
	}

	logger.Info("dataset imported",
		zap.String("file", path),
		zap.Int("employers", len(ds.Employers)),
		zap.Int("candidates", len(ds.Candidates)),
		zap.Int("positions", len(ds.Positions)),
		zap.Int("applications", len(ds.Applications)),
	)
}

func readDataset(path string) (*crm.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ds crm.Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}
