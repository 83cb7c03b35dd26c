package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"examscraper/pkg/auth"
	"examscraper/pkg/config"
	"examscraper/pkg/logger"
	"examscraper/pkg/manifest"
	"examscraper/pkg/models"
	"examscraper/pkg/portal"
	"examscraper/pkg/ratelimit"
	"examscraper/pkg/scraper"
	"examscraper/pkg/storage"
	"examscraper/pkg/ui"
)

var (
	// Scrape command flags
	outputDir   string
	concurrent  int
	rateLimit   int
	yearFrom    int
	yearTo      int
	accountName string
	anonymous   bool
	noManifest  bool
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape <course code> [course code...]",
	Short: "Download past papers for one or more course codes",
	Long: `Download all past exam papers for the given course codes.

The portal requires a library account. Credentials are looked up in this
order: the account named with --account, the EXAMSCRAPER_USERNAME and
EXAMSCRAPER_PASSWORD environment variables, then the first stored account
(use 'examscraper auth login' to store one).

Papers are written to <output>/<COURSE>/<course>-<year>-<title>.pdf and a
papers.json manifest records what was downloaded. Re-running skips papers
that are already on disk.`,
	Example: `  # Download papers for one course
  examscraper scrape CS101

  # Several courses, custom output directory and concurrency
  examscraper scrape CS101 EE304 --output ./papers --concurrent 5

  # Only papers from a year range
  examscraper scrape CS101 --year-from 2020 --year-to 2024

  # Use a specific stored account
  examscraper scrape CS101 --account jbloggs`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runScrape(args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads (default: ./papers)")
	scrapeCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent downloads")
	scrapeCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute")
	scrapeCmd.Flags().IntVar(&yearFrom, "year-from", 0, "oldest paper year to download")
	scrapeCmd.Flags().IntVar(&yearTo, "year-to", 0, "newest paper year to download")
	scrapeCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	scrapeCmd.Flags().BoolVar(&anonymous, "anonymous", false, "skip login (for portals with public listings)")
	scrapeCmd.Flags().BoolVar(&noManifest, "no-manifest", false, "do not write papers.json")
}

func runScrape(args []string) {
	var courses []string
	for _, arg := range args {
		courses = append(courses, strings.TrimSpace(arg))
	}

	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if concurrent > 0 {
		flags["concurrent"] = concurrent
	}
	if rateLimit > 0 {
		flags["rate-limit"] = rateLimit
	}
	if yearFrom > 0 {
		flags["year-from"] = yearFrom
	}
	if yearTo > 0 {
		flags["year-to"] = yearTo
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("examscraper starting")

	var creds *auth.Credentials
	if !anonymous {
		creds = resolveCredentials()
	}

	client, err := portal.NewClient(&cfg.Portal, &cfg.Retry, log)
	if err != nil {
		ui.PrintError("Failed to create portal client", err.Error())
		os.Exit(1)
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.CreateCourseFolders, log)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}

	opts := []scraper.Option{
		scraper.WithLogger(log),
		scraper.WithRateLimiter(ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)),
	}
	if creds != nil {
		opts = append(opts, scraper.WithCredentials(creds))
	}
	if cfg.Output.WriteManifest && !noManifest {
		w, err := manifest.NewWriter(cfg.Output.BaseDirectory)
		if err != nil {
			ui.PrintError("Failed to open manifest", err.Error())
			os.Exit(1)
		}
		opts = append(opts, scraper.WithManifest(w))
	}

	s := scraper.New(client, store, cfg, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintInfo("Output", cfg.Output.BaseDirectory)

	summary, runErr := ui.RenderEvents(s.Start(ctx, models.ScrapeJob{
		CourseCodes:    courses,
		DestinationDir: cfg.Output.BaseDirectory,
	}))

	ui.PrintSummary(summary)

	if runErr != nil {
		log.WithError(runErr).Error("scrape failed")
		ui.PrintError("Scrape failed", runErr.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Done")
}

// resolveCredentials finds portal credentials: named account, environment,
// then the default stored account. Exits with guidance when none are found.
func resolveCredentials() *auth.Credentials {
	credManager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if accountName != "" {
		creds, err := credManager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Available accounts", "use 'examscraper auth list' to see stored accounts")
			os.Exit(1)
		}
		ui.PrintInfo("Using account", creds.Username)
		return creds
	}

	creds, err := credManager.RetrieveDefault()
	if err != nil {
		ui.PrintError("No portal credentials found", "")
		ui.PrintDim("To store credentials securely, run:")
		ui.PrintDim("  examscraper auth login")
		ui.PrintDim("Or set environment variables:")
		ui.PrintDim("  export EXAMSCRAPER_USERNAME=your_username")
		ui.PrintDim("  export EXAMSCRAPER_PASSWORD=your_password")
		os.Exit(1)
	}

	ui.PrintInfo("Using account", creds.Username)
	return creds
}
