// Package fetch wires configuration, target resolution, signature
// policy, and transfers into the pacfetch command workflows.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pacfetch/pacfetch/internal/alpm"
)

// DefaultConfigPath is consulted when no configuration path is given.
const DefaultConfigPath = "/etc/pacfetch/pacfetch.toml"

// InitOptions carries command-line overrides applied on top of the
// configuration file. Refresh counts like pacman's -y flag: 0 skips the
// database refresh, 1 fetches changed databases, 2 or more forces a full
// re-download.
type InitOptions struct {
	ConfigPath string
	RootDir    string
	DBPath     string
	CacheDir   string
	FileDB     bool
	Refresh    int
	Quiet      bool
	LogLevel   string
}

// Init loads the configuration, opens a database handle, attaches the
// stderr reporter, optionally refreshes the sync databases, and checks
// that every registered database is usable. The caller owns the returned
// handle and must close it.
func Init(ctx context.Context, opts InitOptions) (*alpm.Handle, error) {
	path := opts.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		config.Log.Level = opts.LogLevel
	}
	if err := config.Log.Apply(); err != nil {
		return nil, err
	}

	root := config.Options.RootDir
	if opts.RootDir != "" {
		root = opts.RootDir
	}
	dbPath := config.Options.DBPath
	if opts.DBPath != "" {
		dbPath = opts.DBPath
	}

	h, err := alpm.New(root, dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to initialize alpm (root: %s, dbpath: %s)", root, dbPath)
	}
	if opts.FileDB {
		h.SetDBExt(".files")
	}
	if opts.Quiet {
		h.SetProgress(false)
	}

	reporter := NewReporter(os.Stderr)
	h.SetLogCallback(reporter.OnLog)
	h.SetDownloadCallback(reporter.OnDownload)
	h.SetEventCallback(reporter.OnEvent)

	if err := configureHandle(h, config); err != nil {
		h.Close()
		return nil, err
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "pacfetch")
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			h.Close()
			return nil, errors.Wrap(err, "cannot create cache directory")
		}
	}
	if err := h.AddCacheDir(cacheDir); err != nil {
		h.Close()
		return nil, err
	}

	if err := refreshSyncDBs(ctx, os.Stderr, h.SyncDBs(), opts.Refresh); err != nil {
		h.Close()
		return nil, err
	}

	for _, db := range h.SyncDBs() {
		if err := db.IsValid(); err != nil {
			h.Close()
			return nil, errors.Wrapf(err, "database %s%s is not valid", db.Name(), h.DBExt())
		}
	}
	return h, nil
}

// configureHandle applies the configuration file to a fresh handle:
// architecture, signature policies, keyring, cache directories, and the
// sync repositories in file order.
func configureHandle(h *alpm.Handle, config *Config) error {
	h.SetArchitecture(resolveArchitecture(config.Options.Architecture))
	h.SetIgnorePkgs(config.Options.IgnorePkgs)
	h.SetParallelDownloads(config.Options.ParallelDownloads)

	defLevel, err := alpm.ParseSigLevel(config.Options.SigLevel, alpm.DefaultSigLevel)
	if err != nil {
		return errors.Wrap(err, "options.sig_level")
	}
	h.SetDefaultSigLevel(defLevel)

	localLevel := alpm.SigUseDefault
	if len(config.Options.LocalFileSigLevel) > 0 {
		localLevel, err = alpm.ParseSigLevel(config.Options.LocalFileSigLevel, defLevel)
		if err != nil {
			return errors.Wrap(err, "options.local_file_sig_level")
		}
	}
	h.SetLocalFileSigLevel(localLevel)

	remoteLevel := alpm.SigUseDefault
	if len(config.Options.RemoteFileSigLevel) > 0 {
		remoteLevel, err = alpm.ParseSigLevel(config.Options.RemoteFileSigLevel, defLevel)
		if err != nil {
			return errors.Wrap(err, "options.remote_file_sig_level")
		}
	}
	h.SetRemoteFileSigLevel(remoteLevel)

	if len(config.Options.KeyringPaths) > 0 {
		kr, err := alpm.LoadKeyring(config.Options.KeyringPaths)
		if err != nil {
			return err
		}
		h.SetKeyring(kr)
	}

	for _, dir := range config.Options.CacheDirs {
		if err := h.AddCacheDir(dir); err != nil {
			return err
		}
	}

	arch := h.Architecture()
	for _, repo := range config.Repos {
		level := alpm.SigUseDefault
		if len(repo.SigLevel) > 0 {
			level, err = alpm.ParseSigLevel(repo.SigLevel, defLevel)
			if err != nil {
				return errors.Wrapf(err, "repos.%s.sig_level", repo.Name)
			}
		}
		db, err := h.RegisterSyncDB(repo.Name, level)
		if err != nil {
			return err
		}
		replacer := strings.NewReplacer("$repo", repo.Name, "$arch", arch)
		for _, server := range repo.Servers {
			db.AddServer(strings.TrimRight(replacer.Replace(server), "/"))
		}
	}
	return nil
}

// dbUpdater refreshes a set of sync databases.
type dbUpdater interface {
	Update(ctx context.Context, force bool) error
}

// refreshSyncDBs performs the requested database refresh: 0 does
// nothing, 1 fetches databases newer than the local copies, 2 or more
// forces a full re-download. The notice line goes to w before any
// network activity.
func refreshSyncDBs(ctx context.Context, w io.Writer, dbs dbUpdater, refresh int) error {
	if refresh <= 0 {
		return nil
	}
	fmt.Fprintln(w, "synchronising package databases...")
	if err := dbs.Update(ctx, refresh > 1); err != nil {
		return errors.Wrap(err, "failed to synchronise package databases")
	}
	return nil
}

// FindPackage resolves a target string to a database package. With
// localOnly set, only the installed-package database is consulted and
// the target must match a package name exactly; otherwise the sync
// databases are searched in registration order with full
// dependency-style matching.
func FindPackage(h *alpm.Handle, target string, localOnly bool) (*alpm.Package, error) {
	var pkg *alpm.Package
	if localOnly {
		pkg, _ = h.LocalDB().Pkg(target)
	} else {
		pkg = h.SyncDBs().FindSatisfier(alpm.ParseTarget(target))
	}
	if pkg == nil {
		return nil, errors.Wrapf(alpm.ErrPkgNotFound, "could not find package: %s", target)
	}
	return pkg, nil
}

// VerifyPackages checks the detached signature of each archive under the
// given policy. When the policy does not check package signatures the
// files are not touched at all. Verification stops at the first failure;
// a missing signature is tolerated only when the policy marks package
// signatures optional.
func VerifyPackages(h *alpm.Handle, level alpm.SigLevel, files []string) error {
	if level&alpm.SigPackage == 0 {
		return nil
	}
	for _, file := range files {
		pkg, err := h.LoadPackage(file, false)
		if err != nil {
			return err
		}
		if err := pkg.CheckSignature(); err != nil {
			if errors.Is(err, alpm.ErrSigMissing) && level&alpm.SigPackageOptional != 0 {
				continue
			}
			return errors.Wrapf(err, "failed to verify package %s", file)
		}
	}
	return nil
}

// DownloadURL returns the remote location of a package archive: the
// first configured server of its database joined with the published
// file name.
func DownloadURL(pkg *alpm.Package) (string, error) {
	db := pkg.DB()
	if db == nil {
		return "", errors.Newf("package %s has no originating database", pkg.Name())
	}
	servers := db.Servers()
	if len(servers) == 0 {
		return "", errors.Wrap(alpm.ErrServerNone, db.Name())
	}
	if pkg.Filename() == "" {
		return "", errors.Newf("package %s has no archive file name", pkg.Name())
	}
	return servers[0] + "/" + pkg.Filename(), nil
}
