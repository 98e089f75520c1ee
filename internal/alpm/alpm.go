// Package alpm implements read-only access to pacman (ALPM) package
// databases and archives: parsing sync and local databases, resolving
// dependency-style targets, downloading package files from mirrors, and
// verifying detached PGP signatures. It covers the subset of libalpm
// behaviour needed to locate and fetch packages without modifying an
// installation.
package alpm

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const userAgent = "pacfetch"

// Handle is an open session against a pacman database tree. It owns the
// local and sync databases, the trust configuration, and the HTTP client
// used for downloads. A Handle is not safe for concurrent use.
type Handle struct {
	root   string
	dbPath string
	dbExt  string

	local *DB
	syncs DBList

	cacheDirs []string
	arch      string
	ignored   map[string]struct{}

	defaultSigLevel    SigLevel
	localFileSigLevel  SigLevel
	remoteFileSigLevel SigLevel

	keyring *Keyring

	logCB LogCallback
	dlCB  DownloadCallback
	evCB  EventCallback

	client       *http.Client
	maxParallel  int
	showProgress bool

	released bool
}

// New opens a handle rooted at root with databases under dbPath. Both
// paths must be absolute. The handle starts with pacman's default
// signature policy, the ".db" sync database extension, and no sync
// databases registered.
func New(root, dbPath string) (*Handle, error) {
	if !filepath.IsAbs(root) {
		return nil, errors.Newf("root is not an absolute path: %s", root)
	}
	if !filepath.IsAbs(dbPath) {
		return nil, errors.Newf("dbpath is not an absolute path: %s", dbPath)
	}
	h := &Handle{
		root:               root,
		dbPath:             dbPath,
		dbExt:              ".db",
		defaultSigLevel:    DefaultSigLevel,
		localFileSigLevel:  SigUseDefault,
		remoteFileSigLevel: SigUseDefault,
		client:             &http.Client{Timeout: 0}, // no timeout; timeout is controlled by context
		maxParallel:        5,
		showProgress:       true,
	}
	h.local = &DB{handle: h, name: "local", local: true, sigLevel: SigUseDefault}
	return h, nil
}

// Close releases the handle. Databases and packages obtained from it
// must not be used afterwards.
func (h *Handle) Close() error {
	if h.released {
		return errors.New("handle already released")
	}
	h.released = true
	h.client.CloseIdleConnections()
	return nil
}

func (h *Handle) Root() string   { return h.root }
func (h *Handle) DBPath() string { return h.dbPath }

// DBExt returns the sync database file extension, ".db" by default.
func (h *Handle) DBExt() string { return h.dbExt }

// SetDBExt switches the sync database extension, e.g. to ".files" for
// databases that carry file lists.
func (h *Handle) SetDBExt(ext string) { h.dbExt = ext }

// LocalDB returns the installed-package database.
func (h *Handle) LocalDB() *DB { return h.local }

// SyncDBs returns the registered sync databases in registration order.
func (h *Handle) SyncDBs() DBList { return h.syncs }

// RegisterSyncDB registers a sync database by name. Its archive is
// expected under <dbpath>/sync once present. The level may be
// SigUseDefault to inherit the handle-wide policy.
func (h *Handle) RegisterSyncDB(name string, level SigLevel) (*DB, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return nil, errors.Newf("invalid database name: %q", name)
	}
	for _, db := range h.syncs {
		if db.name == name {
			return nil, errors.Newf("database already registered: %s", name)
		}
	}
	db := &DB{handle: h, name: name, sigLevel: level}
	h.syncs = append(h.syncs, db)
	return db, nil
}

// AddCacheDir appends a package cache directory. The first writable
// directory in the list receives new downloads; all of them are
// consulted for already-cached files.
func (h *Handle) AddCacheDir(dir string) error {
	if !filepath.IsAbs(dir) {
		return errors.Newf("cache dir is not an absolute path: %s", dir)
	}
	h.cacheDirs = append(h.cacheDirs, dir)
	return nil
}

// CacheDirs returns the configured cache directories.
func (h *Handle) CacheDirs() []string { return h.cacheDirs }

// SetArchitecture sets the package architecture used in mirror URL
// templates.
func (h *Handle) SetArchitecture(arch string) { h.arch = arch }

func (h *Handle) Architecture() string { return h.arch }

// SetIgnorePkgs replaces the set of package names skipped when searching
// for providers.
func (h *Handle) SetIgnorePkgs(names []string) {
	h.ignored = make(map[string]struct{}, len(names))
	for _, n := range names {
		h.ignored[n] = struct{}{}
	}
}

func (h *Handle) isIgnored(name string) bool {
	_, ok := h.ignored[name]
	return ok
}

// SetDefaultSigLevel sets the handle-wide signature policy inherited by
// databases and file levels that use SigUseDefault.
func (h *Handle) SetDefaultSigLevel(level SigLevel) { h.defaultSigLevel = level }

func (h *Handle) DefaultSigLevel() SigLevel { return h.defaultSigLevel }

// SetLocalFileSigLevel sets the policy applied to package archives
// already present on disk.
func (h *Handle) SetLocalFileSigLevel(level SigLevel) { h.localFileSigLevel = level }

// LocalFileSigLevel returns the effective local archive policy,
// resolving SigUseDefault.
func (h *Handle) LocalFileSigLevel() SigLevel {
	if h.localFileSigLevel&SigUseDefault != 0 {
		return h.defaultSigLevel
	}
	return h.localFileSigLevel
}

// SetRemoteFileSigLevel sets the policy applied to package archives
// fetched from mirrors.
func (h *Handle) SetRemoteFileSigLevel(level SigLevel) { h.remoteFileSigLevel = level }

// RemoteFileSigLevel returns the effective remote archive policy,
// resolving SigUseDefault.
func (h *Handle) RemoteFileSigLevel() SigLevel {
	if h.remoteFileSigLevel&SigUseDefault != 0 {
		return h.defaultSigLevel
	}
	return h.remoteFileSigLevel
}

// SetKeyring installs the PGP keyring used to verify detached
// signatures.
func (h *Handle) SetKeyring(kr *Keyring) { h.keyring = kr }

func (h *Handle) Keyring() *Keyring { return h.keyring }

func (h *Handle) SetLogCallback(cb LogCallback)           { h.logCB = cb }
func (h *Handle) SetDownloadCallback(cb DownloadCallback) { h.dlCB = cb }
func (h *Handle) SetEventCallback(cb EventCallback)       { h.evCB = cb }

// SetParallelDownloads bounds the number of concurrent transfers.
// Values below one are ignored.
func (h *Handle) SetParallelDownloads(n int) {
	if n > 0 {
		h.maxParallel = n
	}
}

// SetProgress toggles terminal progress bars for package downloads.
func (h *Handle) SetProgress(show bool) { h.showProgress = show }

func (h *Handle) emitLog(level LogLevel, message string) {
	if h.logCB != nil {
		h.logCB(level, message)
	}
}

func (h *Handle) emitDownload(filename string, ev DownloadEvent) {
	if h.dlCB != nil {
		h.dlCB(filename, ev)
	}
}

func (h *Handle) emitEvent(ev Event) {
	if h.evCB != nil {
		h.evCB(ev)
	}
}
