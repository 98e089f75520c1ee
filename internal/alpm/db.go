package alpm

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

const localDBVersion = "9"

// DB is one package database: either the single local database that
// records installed packages, or a registered sync database backed by an
// archive file under <dbpath>/sync.
type DB struct {
	handle   *Handle
	name     string
	servers  []string
	sigLevel SigLevel
	local    bool

	loaded bool
	pkgs   []*Package
	byName map[string]*Package
}

// Name returns the database name, such as "core" or "local".
func (db *DB) Name() string { return db.name }

// Servers returns the mirror URLs registered for this database.
func (db *DB) Servers() []string { return db.servers }

// SetServers replaces the mirror list.
func (db *DB) SetServers(servers []string) { db.servers = servers }

// AddServer appends one mirror URL.
func (db *DB) AddServer(server string) { db.servers = append(db.servers, server) }

// SigLevel returns the signature policy for this database, resolving
// SigUseDefault against the handle-wide default.
func (db *DB) SigLevel() SigLevel {
	if db.sigLevel&SigUseDefault != 0 {
		return db.handle.defaultSigLevel
	}
	return db.sigLevel
}

// filePath returns the on-disk location: a directory for the local
// database, an archive file for sync databases.
func (db *DB) filePath() string {
	if db.local {
		return filepath.Join(db.handle.dbPath, "local")
	}
	return filepath.Join(db.handle.dbPath, "sync", db.name+db.handle.dbExt)
}

// load reads the database contents once per handle lifetime. A missing
// sync database file emits DatabaseMissingEvent and yields an empty
// database.
func (db *DB) load() error {
	if db.loaded {
		return nil
	}
	path := db.filePath()

	var (
		pkgs []*Package
		err  error
	)
	if db.local {
		pkgs, err = readLocalDB(db, path)
	} else {
		if _, statErr := os.Stat(path); statErr != nil {
			if os.IsNotExist(statErr) {
				db.handle.emitEvent(DatabaseMissingEvent{DBName: db.name})
				db.loaded = true
				db.byName = map[string]*Package{}
				return nil
			}
			return errors.Wrapf(statErr, "cannot access database %s", db.name)
		}
		pkgs, err = readSyncDB(db, path)
	}
	if err != nil {
		return err
	}

	db.pkgs = pkgs
	db.byName = make(map[string]*Package, len(pkgs))
	for _, p := range pkgs {
		db.byName[p.name] = p
	}
	db.loaded = true
	return nil
}

// invalidate drops cached contents so the next read sees the current
// on-disk state.
func (db *DB) invalidate() {
	db.loaded = false
	db.pkgs = nil
	db.byName = nil
}

// IsValid checks that the database is usable. A missing sync database
// file is acceptable and leaves the database empty, but an existing file
// must parse and must satisfy the database signature policy.
func (db *DB) IsValid() error {
	if db.local {
		return db.validLocal()
	}
	path := db.filePath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "cannot access database %s", db.name)
	}
	if err := db.load(); err != nil {
		return errors.Wrapf(ErrDBInvalid, "%s: %v", db.name, err)
	}
	return db.checkDBSignature()
}

// validLocal accepts a missing local database directory as an empty
// database; an existing one must carry a supported version marker.
func (db *DB) validLocal() error {
	path := db.filePath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "cannot access database %s", db.name)
	}
	raw, err := os.ReadFile(filepath.Join(path, "ALPM_DB_VERSION"))
	if err != nil {
		if os.IsNotExist(err) {
			entries, readErr := os.ReadDir(path)
			if readErr == nil && len(entries) == 0 {
				return nil
			}
			return errors.Wrapf(ErrDBInvalid, "%s: missing ALPM_DB_VERSION", db.name)
		}
		return errors.Wrapf(err, "cannot access database %s", db.name)
	}
	if v := strings.TrimSpace(string(raw)); v != localDBVersion {
		return errors.Wrapf(ErrDBInvalid, "%s: unsupported database version %s", db.name, v)
	}
	return nil
}

// checkDBSignature enforces the database part of the signature policy
// against the archive's detached ".sig" companion.
func (db *DB) checkDBSignature() error {
	level := db.SigLevel()
	if level&SigDatabase == 0 {
		return nil
	}
	path := db.filePath()
	err := db.handle.verifyDetachedFile(path, path+".sig")
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSigMissing) && level&SigDatabaseOptional != 0 {
		return nil
	}
	return errors.Wrapf(err, "database %s", db.name)
}

// Pkg returns the package with the exact given name.
func (db *DB) Pkg(name string) (*Package, error) {
	if err := db.load(); err != nil {
		return nil, err
	}
	p, ok := db.byName[name]
	if !ok {
		return nil, errors.Wrap(ErrPkgNotFound, name)
	}
	return p, nil
}

// Pkgs returns every package in the database in file order.
func (db *DB) Pkgs() ([]*Package, error) {
	if err := db.load(); err != nil {
		return nil, err
	}
	return db.pkgs, nil
}

// Search returns the packages whose name or description matches every
// given term. Terms are case-insensitive regular expressions.
func (db *DB) Search(terms []string) ([]*Package, error) {
	if err := db.load(); err != nil {
		return nil, err
	}
	patterns := make([]*regexp.Regexp, 0, len(terms))
	for _, term := range terms {
		re, err := regexp.Compile("(?i)" + term)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid search term %q", term)
		}
		patterns = append(patterns, re)
	}
	var matched []*Package
	for _, p := range db.pkgs {
		ok := true
		for _, re := range patterns {
			if !re.MatchString(p.name) && !re.MatchString(p.desc) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// findSatisfier returns the first package satisfying dep. An exact name
// match wins over providers; provider candidates honour the handle's
// ignored-package set.
func (db *DB) findSatisfier(dep Depend) *Package {
	if err := db.load(); err != nil {
		db.handle.emitLog(LogWarning, fmt.Sprintf("could not load database %s: %s\n", db.name, err))
		return nil
	}
	if p, ok := db.byName[dep.Name]; ok && dep.matchesVersion(p.version) {
		return p
	}
	for _, p := range db.pkgs {
		if p.name != dep.Name && db.handle.isIgnored(p.name) {
			continue
		}
		if p.satisfies(dep) {
			return p
		}
	}
	return nil
}

// DBList is an ordered collection of sync databases. The order follows
// registration order and determines search precedence.
type DBList []*DB

// FindSatisfier returns the first package among the databases that
// satisfies the target, honouring the target's repository pin. It
// returns nil when nothing matches.
func (dbs DBList) FindSatisfier(t Target) *Package {
	for _, db := range dbs {
		if t.Repo != "" && db.name != t.Repo {
			continue
		}
		if p := db.findSatisfier(t.Dep); p != nil {
			return p
		}
	}
	return nil
}
