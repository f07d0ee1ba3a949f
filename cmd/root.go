package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"splitget/downloader"
	"splitget/internal"
	"splitget/utils"
)

// rootOptions holds flag values and the configuration resolved from them
type rootOptions struct {
	connections int
	dir         string
	timeout     time.Duration
	proxyURL    string
	userAgent   string
	quiet       bool
	debug       bool
	logLevel    string
	logFile     string
	configPath  string

	config *internal.Config
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&rootOptions{config: internal.DefaultConfig()})
}

func buildRootCmd(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "splitget [OPTIONS] [URL]",
		Short:   "Download a file over HTTP using parallel range requests",
		Version: "v1.0.0",
		Long: `splitget downloads a single file over HTTP by splitting it into up to 8
byte ranges fetched in parallel. Interrupted downloads resume from the
segments kept in the parts directory.

Examples:
  splitget
  splitget https://example.com/image.iso
  splitget -c 4 --dir /tmp https://example.com/image.iso
  splitget --proxy socks5://127.0.0.1:1080 https://example.com/image.iso
  splitget clean image.iso

Environment Variables:
  SPLITGET_CONFIG       Path to a YAML config file
  SPLITGET_CONNECTIONS  Default number of connections (1-8)
  SPLITGET_TIMEOUT      HTTP timeout (e.g. 30s, 0 for none)
  SPLITGET_PROXY        Proxy URL
  SPLITGET_USER_AGENT   User-Agent header
  SPLITGET_PARTS_DIR    Directory for segments and ledgers`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.loadConfiguration(cmd); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if err := internal.InitLogger(opts.config); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			internal.LogDebug("Configuration loaded: connections=%d, timeout=%s, parts=%s, debug=%v, quiet=%v",
				opts.config.DefaultConnections, opts.config.Timeout, opts.config.PartsDir,
				opts.config.EnableDebug, opts.config.QuietMode)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runDownload(cmd, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.IntVarP(&opts.connections, "connections", "c", 0, "Maximum parallel connections, 1-8; asked interactively when unset (env: SPLITGET_CONNECTIONS)")
	flags.StringVar(&opts.dir, "dir", ".", "Directory for the output file and the parts folder")
	flags.DurationVar(&opts.timeout, "timeout", 0, "HTTP timeout per request, 0 for none (env: SPLITGET_TIMEOUT)")
	flags.StringVar(&opts.proxyURL, "proxy", "", "HTTP/SOCKS5 proxy URL (env: SPLITGET_PROXY)")
	flags.StringVar(&opts.userAgent, "user-agent", "", "User-Agent header (env: SPLITGET_USER_AGENT)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Suppress progress bars and status lines")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging with file and line information (env: SPLITGET_DEBUG)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Set log level (debug, info, warn, error) (env: SPLITGET_LOG_LEVEL)")
	flags.StringVar(&opts.logFile, "log-file", "", "Write logs to file instead of stderr (env: SPLITGET_LOG_FILE)")
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file (env: SPLITGET_CONFIG)")

	rootCmd.AddCommand(newCleanCmd(opts))
	return rootCmd
}

// Execute runs the command line
func Execute() error {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	if err != nil {
		reportError(rootCmd.ErrOrStderr(), err)
	}
	return err
}

// reportError prints err for the user and logs the details of typed errors
func reportError(w io.Writer, err error) {
	utils.NewPrinter(w, false).Error("%v", err)

	var downloadErr *internal.DownloadError
	var validationErr *internal.ValidationError
	switch {
	case errors.As(err, &downloadErr):
		internal.LogDownloadError(downloadErr)
	case errors.As(err, &validationErr):
		internal.LogValidationError(validationErr)
	default:
		internal.LogError("%v", err)
	}
}

// loadConfiguration applies defaults, then the config file, then the
// environment, then any flag set on the command line
func (o *rootOptions) loadConfiguration(cmd *cobra.Command) error {
	o.config = internal.DefaultConfig()

	configPath := o.configPath
	if configPath == "" {
		configPath = os.Getenv("SPLITGET_CONFIG")
	}
	if configPath != "" {
		if err := o.config.LoadFromFile(configPath); err != nil {
			return err
		}
	}

	o.config.LoadFromEnv()

	flags := cmd.Flags()
	if flags.Changed("connections") {
		o.config.DefaultConnections = o.connections
	}
	if flags.Changed("timeout") {
		o.config.Timeout = o.timeout
	}
	if flags.Changed("proxy") {
		o.config.ProxyURL = o.proxyURL
	}
	if flags.Changed("user-agent") {
		o.config.UserAgent = o.userAgent
	}
	if o.debug {
		o.config.EnableDebug = true
		o.config.LogLevel = "debug"
	}
	if o.quiet {
		o.config.QuietMode = true
	}
	if o.logLevel != "" {
		o.config.LogLevel = o.logLevel
	}
	if o.logFile != "" {
		o.config.LogFile = o.logFile
	}

	return o.config.ValidateConfig()
}

func (o *rootOptions) runDownload(cmd *cobra.Command, args []string) error {
	printer := utils.NewPrinter(cmd.OutOrStdout(), o.config.QuietMode)
	prompter := utils.NewPrompter(cmd.InOrStdin(), printer)

	var url string
	if len(args) > 0 {
		url = args[0]
	} else {
		answer, err := prompter.AskURL()
		if err != nil {
			return err
		}
		url = answer
	}

	connections := o.config.DefaultConnections
	if connections > 0 {
		connections = internal.ClampConnections(connections)
	} else {
		answer, err := prompter.AskConnections()
		if err != nil {
			return err
		}
		connections = answer
	}

	retry := utils.DefaultRetryConfig()
	retry.MaxAttempts = o.config.ProbeRetries
	client, err := utils.NewHTTPClientWithConfig(&utils.HTTPClientConfig{
		Timeout:     o.config.Timeout,
		ProxyURL:    o.config.ProxyURL,
		UserAgent:   o.config.UserAgent,
		RetryConfig: retry,
	})
	if err != nil {
		return err
	}

	tracker := utils.NewProgressTracker(o.config.QuietMode || !isTerminal(cmd.OutOrStdout()))
	tracker.SetOutput(cmd.OutOrStdout())

	session, err := downloader.NewSession(&internal.DownloadConfig{
		URL:            url,
		Dir:            o.dir,
		PartsDir:       o.config.PartsDir,
		MaxConnections: connections,
	}, client, tracker)
	if err != nil {
		return err
	}
	session.SetPrinter(printer)
	internal.LogDebug("Session %s: url=%s connections=%d dir=%s", session.ID, url, connections, o.dir)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			internal.LogInfo("Received signal %v, stopping downloads", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	result, err := session.Run(ctx)
	if result != nil && result.Status == downloader.StatusCompleted {
		tracker.SetFilename(result.OutputPath)
		tracker.Finish(result.Fetched())
	}
	if err != nil {
		if ctx.Err() != nil {
			printer.Warning("Download interrupted, run the same command again to resume")
			return fmt.Errorf("download cancelled: %w", err)
		}
		return err
	}

	if result.Truncated() {
		printer.Warning("Merged %s but the server advertised %s; %d part(s) failed",
			utils.FormatBytes(result.Merged), utils.FormatBytes(result.Length), len(result.Failed()))
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && utils.IsTerminal(f)
}
