package alpm

import "time"

// Package is one database entry. Packages are owned by the database that
// loaded them and stay valid for the lifetime of the handle.
type Package struct {
	db *DB

	name      string
	base      string
	version   string
	desc      string
	url       string
	packager  string
	arch      string
	filename  string
	csize     int64
	isize     int64
	buildDate time.Time
	sha256    string
	pgpSig    string

	licenses []string
	groups   []string

	provides   []Depend
	depends    []Depend
	optDepends []Depend
	conflicts  []Depend
	replaces   []Depend

	files []string
}

// DB returns the database this package was loaded from, or nil for
// packages read directly from archive files.
func (p *Package) DB() *DB { return p.db }

func (p *Package) Name() string         { return p.name }
func (p *Package) Base() string         { return p.base }
func (p *Package) Version() string      { return p.version }
func (p *Package) Description() string  { return p.desc }
func (p *Package) URL() string          { return p.url }
func (p *Package) Packager() string     { return p.packager }
func (p *Package) Architecture() string { return p.arch }

// Filename returns the archive file name published by the repository.
// It is empty for installed packages.
func (p *Package) Filename() string { return p.filename }

// Size returns the compressed archive size in bytes.
func (p *Package) Size() int64 { return p.csize }

// InstalledSize returns the unpacked size in bytes.
func (p *Package) InstalledSize() int64 { return p.isize }

func (p *Package) BuildDate() time.Time { return p.buildDate }

// SHA256Sum returns the hex-encoded checksum of the package archive, or
// "" when the database does not record one.
func (p *Package) SHA256Sum() string { return p.sha256 }

// PGPSig returns the base64-encoded detached signature recorded in the
// database, or "" when absent.
func (p *Package) PGPSig() string { return p.pgpSig }

func (p *Package) Licenses() []string { return p.licenses }
func (p *Package) Groups() []string   { return p.groups }

func (p *Package) Provides() []Depend   { return p.provides }
func (p *Package) Depends() []Depend    { return p.depends }
func (p *Package) OptDepends() []Depend { return p.optDepends }
func (p *Package) Conflicts() []Depend  { return p.conflicts }
func (p *Package) Replaces() []Depend   { return p.replaces }

// Files returns the file list. Sync databases carry file lists only when
// the handle uses the ".files" database extension.
func (p *Package) Files() []string { return p.files }

// satisfies reports whether this package satisfies dep, either directly
// by name and version or through one of its provisions. An unversioned
// provision never satisfies a versioned constraint.
func (p *Package) satisfies(dep Depend) bool {
	if p.name == dep.Name && dep.matchesVersion(p.version) {
		return true
	}
	for _, prov := range p.provides {
		if prov.Name != dep.Name {
			continue
		}
		if dep.Mod == DepModAny {
			return true
		}
		if prov.Version != "" && dep.matchesVersion(prov.Version) {
			return true
		}
	}
	return false
}
