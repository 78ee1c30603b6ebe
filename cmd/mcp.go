package cmd

import (
	"context"
	stdlog "log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/logger"
	"github.com/spigell/hr-matcher/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve matching tools to MCP clients over stdio",
	Run: func(_ *cobra.Command, _ []string) {
		serveMCP()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func serveMCP() {
	ctx := context.Background()

	// stdout carries the protocol, so logs go to stderr.
	log, err := logger.Build(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Stderr: true,
	})
	if err != nil {
		stdlog.Fatalf("creating a logger: %s", err)
	}

	d, err := newDeps(ctx, log)
	if err != nil {
		log.Fatal("preparing dependencies", zap.Error(err))
	}
	defer d.Close()

	log.Info("serving mcp tools on stdio", zap.String("version", version))

	if err := mcpserver.Serve(mcpserver.New(app, version, d.service, log)); err != nil {
		log.Fatal("mcp server", zap.Error(err))
	}
}
