package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/brogergvhs/mangapdf/internal/config"
	"github.com/brogergvhs/mangapdf/internal/downloader"
	"github.com/brogergvhs/mangapdf/internal/providers/generic"
	"github.com/brogergvhs/mangapdf/internal/ui"
	"github.com/brogergvhs/mangapdf/internal/util"
	"github.com/brogergvhs/mangapdf/internal/walker"

	"github.com/spf13/cobra"
)

var (
	flagURL         string
	flagOutput      string
	flagConcurrency int
	flagQuality     int
	flagDryRun      bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
	flagCloudflare bool
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Walk the chapter chain from the start URL and write one PDF per chapter. Uses the selected config, overwritten by CLI flags",
		RunE:  runDownload,
	}

	downloadCmd.Flags().StringVar(&flagURL, "url", "", "URL of the first chapter to download")
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "output folder for PDF files")
	downloadCmd.Flags().IntVar(&flagConcurrency, "concurrency", config.DefaultConcurrency, "parallel image downloads per chapter")
	downloadCmd.Flags().IntVar(&flagQuality, "quality", config.DefaultQuality, "JPEG quality for recompression, 100 keeps images untouched")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "follow the chapter chain without downloading images")

	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
	downloadCmd.Flags().BoolVar(&flagCloudflare, "cloudflare", false, "use the Cloudflare bypass transport")

	rootCmd.AddCommand(downloadCmd)
}

func downloadOptions(cmd *cobra.Command) (config.Options, error) {
	opts := config.Options{
		IgnoreConfig:     flagIgnoreConfig,
		Debug:            flagDebug,
		StartURL:         flagURL,
		Output:           flagOutput,
		Cookie:           flagCookie,
		CookieFile:       flagCookieFile,
		UserAgent:        flagUserAgent,
		CloudflareBypass: flagCloudflare,
	}

	if cmd.Flags().Changed("concurrency") {
		if flagConcurrency < 1 {
			return opts, fmt.Errorf("--concurrency must be positive")
		}
		opts.Concurrency = flagConcurrency
	}
	if cmd.Flags().Changed("quality") {
		if flagQuality < 1 || flagQuality > 100 {
			return opts, fmt.Errorf("--quality must be between 1 and 100")
		}
		opts.Quality = flagQuality
	}

	return opts, nil
}

func runDownload(cmd *cobra.Command, _ []string) error {
	opts, err := downloadOptions(cmd)
	if err != nil {
		return err
	}

	cfg, usedPath, err := config.LoadMerged(config.DefaultStore(), opts)
	if err != nil {
		return err
	}

	logSvc := ui.NewLogger(cfg.Debug)
	fmt.Printf("Config file: %s\n", usedPath)
	fmt.Println("Full config:")
	cfg.Print(os.Stdout)
	fmt.Println()

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          cfg.Timeout(),
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      logSvc,
	})
	if err != nil {
		return err
	}
	fetcher := util.NewFetcher(client)

	dl, err := downloader.New(fetcher, downloader.Options{
		Concurrency: cfg.Concurrency,
		Quality:     cfg.Quality,
	}, logSvc)
	if err != nil {
		return err
	}

	scr := generic.NewScraper(fetcher, generic.Selectors{
		Content:  cfg.ContentSelector,
		Image:    cfg.ImageSelector,
		Next:     cfg.NextSelector,
		NextLink: cfg.NextLinkSelector,
	}, logSvc)

	pm := ui.NewProgressManager()
	defer pm.Close()

	util.SetupInterruptHandler(cfg.Output)

	bars := func(title string) walker.ChapterProgress {
		return pm.Register(title)
	}
	w := walker.New(scr, dl, walker.Options{
		Output:   cfg.Output,
		DryRun:   flagDryRun,
		Progress: bars,
	}, logSvc)

	start := time.Now()
	runErr := w.Run(cmd.Context(), cfg.StartURL)
	pm.Close()

	fmt.Println()
	w.Stats().Print(os.Stdout, time.Since(start))

	return runErr
}
