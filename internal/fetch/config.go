package fetch

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

const (
	defaultRootDir  = "/"
	defaultDBPath   = "/var/lib/pacman"
	defaultParallel = 5
)

// Config is the top-level TOML configuration.
type Config struct {
	Options OptionsConfig `toml:"options"`
	Log     LogConfig     `toml:"log"`
	Repos   []*RepoConfig `toml:"repos"`
}

// OptionsConfig mirrors the [options] section of pacman.conf. Signature
// levels use pacman's directive words ("Required", "Optional", "Never",
// "TrustedOnly", "TrustAll", optionally scoped with a "Package" or
// "Database" prefix).
type OptionsConfig struct {
	RootDir            string   `toml:"root_dir"`
	DBPath             string   `toml:"db_path"`
	CacheDirs          []string `toml:"cache_dirs"`
	Architecture       string   `toml:"architecture"`
	IgnorePkgs         []string `toml:"ignore_pkgs"`
	SigLevel           []string `toml:"sig_level"`
	LocalFileSigLevel  []string `toml:"local_file_sig_level"`
	RemoteFileSigLevel []string `toml:"remote_file_sig_level"`
	KeyringPaths       []string `toml:"keyring_paths"`
	ParallelDownloads  int      `toml:"parallel_downloads"`
}

// RepoConfig declares one sync repository. The order of [[repos]]
// entries in the configuration file sets the search precedence. Server
// URLs may use $repo and $arch placeholders.
type RepoConfig struct {
	Name     string   `toml:"name"`
	Servers  []string `toml:"servers"`
	SigLevel []string `toml:"sig_level"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		Options: OptionsConfig{
			RootDir:           defaultRootDir,
			DBPath:            defaultDBPath,
			Architecture:      "auto",
			ParallelDownloads: defaultParallel,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var validRepoName = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Check validates the configuration.
func (c *Config) Check() error {
	if !filepath.IsAbs(c.Options.RootDir) {
		return errors.Newf("root_dir must be an absolute path: %s", c.Options.RootDir)
	}
	if !filepath.IsAbs(c.Options.DBPath) {
		return errors.Newf("db_path must be an absolute path: %s", c.Options.DBPath)
	}
	for _, dir := range c.Options.CacheDirs {
		if !filepath.IsAbs(dir) {
			return errors.Newf("cache dir must be an absolute path: %s", dir)
		}
	}
	if c.Options.ParallelDownloads < 1 {
		return errors.New("parallel_downloads must be at least 1")
	}
	seen := make(map[string]bool)
	for _, repo := range c.Repos {
		if repo == nil {
			return errors.New("empty repository entry")
		}
		if !validRepoName.MatchString(repo.Name) {
			return errors.Newf("invalid repository name: %q", repo.Name)
		}
		if seen[repo.Name] {
			return errors.Newf("duplicate repository: %s", repo.Name)
		}
		seen[repo.Name] = true
		if len(repo.Servers) == 0 {
			return errors.Newf("repository %s has no servers", repo.Name)
		}
	}
	return nil
}

// ApplyEnvironment overlays PACFETCH_* environment variables onto the
// configuration.
func (c *Config) ApplyEnvironment() error {
	if v := os.Getenv("PACFETCH_ROOT_DIR"); v != "" {
		c.Options.RootDir = v
	}
	if v := os.Getenv("PACFETCH_DB_PATH"); v != "" {
		c.Options.DBPath = v
	}
	if v := os.Getenv("PACFETCH_CACHE_DIR"); v != "" {
		c.Options.CacheDirs = []string{v}
	}
	if v := os.Getenv("PACFETCH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PACFETCH_PARALLEL_DOWNLOADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return errors.Newf("invalid PACFETCH_PARALLEL_DOWNLOADS: %q", v)
		}
		c.Options.ParallelDownloads = n
	}
	return nil
}

// LoadConfig reads a TOML configuration file, overlays environment
// variables, and validates the result. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	config := NewConfig()
	meta, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load configuration %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		msg := "unknown configuration keys in " + path + ": " + strings.Join(keys, ", ")
		if hint := configHint(undecoded); hint != "" {
			return nil, errors.Newf("%s (%s)", msg, hint)
		}
		return nil, errors.New(msg)
	}
	if err := config.ApplyEnvironment(); err != nil {
		return nil, err
	}
	if err := config.Check(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration %s", path)
	}
	return config, nil
}

// configHint suggests a fix for common section misspellings.
func configHint(undecoded []toml.Key) string {
	for _, k := range undecoded {
		s := k.String()
		switch {
		case s == "repo" || strings.HasPrefix(s, "repo."):
			return "repositories are declared as [[repos]] entries"
		case s == "option" || strings.HasPrefix(s, "option."):
			return "did you mean [options]?"
		}
	}
	return ""
}

// goarchAliases maps GOARCH names to pacman architecture names.
var goarchAliases = map[string]string{
	"amd64":   "x86_64",
	"386":     "i686",
	"arm64":   "aarch64",
	"arm":     "armv7h",
	"riscv64": "riscv64",
}

// resolveArchitecture maps the "auto" architecture to the host
// architecture.
func resolveArchitecture(arch string) string {
	if arch != "" && arch != "auto" {
		return arch
	}
	if alias, ok := goarchAliases[runtime.GOARCH]; ok {
		return alias
	}
	return runtime.GOARCH
}

// LogConfig configures the process-wide structured logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Apply installs the configured handler as the slog default. Log output
// goes to stderr so stdout stays reserved for results.
func (lc *LogConfig) Apply() error {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "", "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return errors.Newf("invalid log level: %s", lc.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(lc.Format) {
	case "", "text", "plain":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return errors.Newf("invalid log format: %s", lc.Format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}
