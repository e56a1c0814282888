package main

import (
	"fmt"
	"os"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/config"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/logger"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	_ "github.com/LexiconIndonesia/crypto-news-crawler/docs"
)

// @title          Crypto News Crawler API
// @version        1.0
// @description    Incremental crypto news ingestion: run triggers, run status and ingested records.

// @contact.name  Lexicon Engineering
// @contact.url   https://lexicon.id

// @host     localhost:8080
// @BasePath /v1
// @schemes  http https

// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       X-API-KEY

var (
	cfg     config.Config
	counter = logger.NewLevelCounter()
)

var rootCmd = &cobra.Command{
	Use:   common.AppName,
	Short: "Incremental crypto news scraper",
	Long: `Scrapes the cryptopanic listing with a headless browser, keeps only articles newer
than the latest stored publication time and writes them to the data_source table.
When the database cannot be reached the batch is written to a JSON report instead.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		cfg = config.DefaultConfig()
		cfg.LoadFromEnv()

		logger.Setup(cfg.Log.Level, cfg.App.IsProduction())
		counter.Attach()

		if err := cfg.Validate(); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	// INITIATE CONFIGURATION
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded, using environment variables")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
