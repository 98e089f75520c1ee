// Package main implements the pacfetch command-line tool for locating,
// downloading, and verifying pacman packages.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pacfetch/pacfetch/internal/alpm"
	"github.com/pacfetch/pacfetch/internal/fetch"
)

var (
	// Build information - can be set via build flags
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	// Command-line flags
	configPath     string
	rootDir        string
	dbPath         string
	cacheDir       string
	fileDB         bool
	refresh        int
	localOnly      bool
	quiet          bool
	logLevel       string
	verboseErrors  bool
	verifySigLevel []string
)

var rootCmd = &cobra.Command{
	Use:   "pacfetch",
	Short: "Locate, download, and verify pacman packages",
	Long: `pacfetch resolves package targets against configured pacman repositories,
downloads the matching archives into a cache, and verifies their PGP
signatures, all without touching the installed system.

Targets accept an optional repository pin and version constraint:

  pacfetch download linux
  pacfetch download core/linux "glibc>=2.39"
  pacfetch url extra/tmux`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var downloadCmd = &cobra.Command{
	Use:   "download <target...>",
	Short: "Download package archives into the cache",
	Long: `Download the archive for each target into the package cache and print its
cached location, one path per line.

Usage:
  # Download a package, refreshing the sync databases first
  pacfetch download -y linux

  # Force a full database re-download before fetching
  pacfetch download -yy linux

  # Resolve against the installed-package database only
  pacfetch download --local linux

Already-cached archives are not downloaded again.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runDownload,
}

var urlCmd = &cobra.Command{
	Use:   "url <target...>",
	Short: "Print the download URL for each target",
	Long: `Resolve each target and print the URL its archive would be fetched from,
without downloading anything.

Examples:
  pacfetch url linux
  pacfetch url core/linux extra/tmux`,
	Args: cobra.MinimumNArgs(1),
	Run:  runURL,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file...>",
	Short: "Verify the detached PGP signature of package archives",
	Long: `Check each package archive against its detached ".sig" companion using
the configured keyring. Verification stops at the first failure.

Examples:
  pacfetch verify /var/cache/pacman/pkg/linux-6.10.arch1-1-x86_64.pkg.tar.zst
  pacfetch verify --siglevel Required *.pkg.tar.zst`,
	Args: cobra.MinimumNArgs(1),
	Run:  runVerify,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long:  `Validate the configuration file and report any issues.`,
	Run:   runValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information including build details",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("pacfetch %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", buildDate)
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "configuration file path")
	pf.StringVar(&rootDir, "root", "", "override the installation root directory")
	pf.StringVar(&dbPath, "dbpath", "", "override the database directory")
	pf.StringVar(&cacheDir, "cachedir", "", "override the package cache directory")
	pf.BoolVar(&fileDB, "filedb", false, "use the .files database extension")
	pf.CountVarP(&refresh, "refresh", "y", "refresh sync databases before resolving (twice to force)")
	pf.BoolVar(&localOnly, "local", false, "resolve targets against the installed-package database only")
	pf.BoolVarP(&quiet, "quiet", "q", false, "disable progress bars")
	pf.StringVarP(&logLevel, "log-level", "l", "", "override log level (debug, info, warn, error)")
	pf.BoolVar(&verboseErrors, "verbose-errors", false, "show detailed error information including stack traces")

	verifyCmd.Flags().StringSliceVar(&verifySigLevel, "siglevel", nil, "signature level directives for verification")
}

// formatError returns a human-friendly error message, optionally with
// stack trace.
func formatError(err error, verbose bool) string {
	if verbose {
		return fmt.Sprintf("%+v", err)
	}
	if flattened := errors.FlattenDetails(err); flattened != "" {
		return flattened
	}
	return err.Error()
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %s\n", formatError(err, verboseErrors))
	if !verboseErrors {
		slog.Info("run with --verbose-errors for detailed stack traces")
	}
	os.Exit(1)
}

func initOptions() fetch.InitOptions {
	return fetch.InitOptions{
		ConfigPath: configPath,
		RootDir:    rootDir,
		DBPath:     dbPath,
		CacheDir:   cacheDir,
		FileDB:     fileDB,
		Refresh:    refresh,
		Quiet:      quiet,
		LogLevel:   logLevel,
	}
}

func runDownload(cmd *cobra.Command, args []string) {
	h, err := fetch.Init(cmd.Context(), initOptions())
	if err != nil {
		fail(err)
	}
	defer h.Close()

	if err := fetch.Run(cmd.Context(), h, args, localOnly, os.Stdout); err != nil {
		fail(err)
	}
}

func runURL(cmd *cobra.Command, args []string) {
	h, err := fetch.Init(cmd.Context(), initOptions())
	if err != nil {
		fail(err)
	}
	defer h.Close()

	urls, err := fetch.URLs(h, args, localOnly)
	if err != nil {
		fail(err)
	}
	for _, u := range urls {
		fmt.Println(u)
	}
}

func runVerify(cmd *cobra.Command, args []string) {
	h, err := fetch.Init(cmd.Context(), initOptions())
	if err != nil {
		fail(err)
	}
	defer h.Close()

	level := h.LocalFileSigLevel()
	if len(verifySigLevel) > 0 {
		level, err = alpm.ParseSigLevel(verifySigLevel, h.DefaultSigLevel())
		if err != nil {
			fail(err)
		}
	}
	if err := fetch.VerifyPackages(h, level, args); err != nil {
		fail(err)
	}
}

func runValidate(_ *cobra.Command, _ []string) {
	path := configPath
	if path == "" {
		path = fetch.DefaultConfigPath
	}
	config, err := fetch.LoadConfig(path)
	if err != nil {
		fail(err)
	}
	if err := config.Log.Apply(); err != nil {
		fail(errors.Wrap(err, "log config"))
	}
	slog.Info("the toml configuration file passes validation checks", "path", path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", formatError(err, verboseErrors))
		os.Exit(1)
	}
}
