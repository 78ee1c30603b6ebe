package cmd

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/hr-matcher/internal/filtering"
	"github.com/spigell/hr-matcher/internal/matching"
	"github.com/spigell/hr-matcher/internal/server"
	"github.com/spigell/hr-matcher/internal/store"
)

const (
	app = "hr-matcher"

	geminiKeyFileEnv = "GEMINI_API_KEY_FILE"
)

type Config struct {
	Database store.Config     `mapstructure:"database"`
	Matching matching.Config  `mapstructure:"matching"`
	Regions  any              `mapstructure:"regions"`
	Filters  filtering.Config `mapstructure:"filters"`
	AI       *AIConfig        `mapstructure:"ai"`
	Server   server.Config    `mapstructure:"server"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key" json:"-"`
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
		Short: "hr-matcher scores and ranks CRM candidates against job positions",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("database.dsn-file", store.DSNFileEnv); err != nil {
		log.Fatalf("binding %s environment variable: %v", store.DSNFileEnv, err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", geminiKeyFileEnv); err != nil {
		log.Fatalf("binding %s environment variable: %v", geminiKeyFileEnv, err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hr-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// A missing .env is fine, the variables may come from the real environment.
	_ = godotenv.Load()

	// version does not need a config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Running with defaults is allowed only without an explicit --config.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{
		Matching: matching.DefaultConfig(),
		Server:   server.DefaultConfig(),
	}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}
	return config, nil
}
