package alpm

import "strings"

// DepMod is the comparison operator attached to a dependency version.
type DepMod int

const (
	DepModAny DepMod = iota
	DepModEQ
	DepModGE
	DepModLE
	DepModGT
	DepModLT
)

func (m DepMod) String() string {
	switch m {
	case DepModEQ:
		return "="
	case DepModGE:
		return ">="
	case DepModLE:
		return "<="
	case DepModGT:
		return ">"
	case DepModLT:
		return "<"
	}
	return ""
}

// depOps lists operators in scan order. Two-character operators come
// first so ">=" is never read as ">" followed by "=".
var depOps = []struct {
	token string
	mod   DepMod
}{
	{">=", DepModGE},
	{"<=", DepModLE},
	{"=", DepModEQ},
	{">", DepModGT},
	{"<", DepModLT},
}

// Depend is a parsed dependency or provision specification.
type Depend struct {
	Name    string
	Mod     DepMod
	Version string
}

// ParseDepend parses a dependency string such as "zlib", "zlib=1.3-2",
// or "gcc-libs>=12". A string without an operator matches any version.
func ParseDepend(s string) Depend {
	for _, op := range depOps {
		if i := strings.Index(s, op.token); i > 0 {
			return Depend{
				Name:    s[:i],
				Mod:     op.mod,
				Version: s[i+len(op.token):],
			}
		}
	}
	return Depend{Name: s}
}

func (d Depend) String() string {
	if d.Mod == DepModAny {
		return d.Name
	}
	return d.Name + d.Mod.String() + d.Version
}

// matchesVersion reports whether a concrete package version satisfies
// the constraint. A constraint version without a release component
// matches any release of that version.
func (d Depend) matchesVersion(pkgver string) bool {
	if d.Mod == DepModAny {
		return true
	}
	v := pkgver
	if !strings.Contains(d.Version, "-") {
		v = stripRelease(v)
	}
	cmp := VerCmp(v, d.Version)
	switch d.Mod {
	case DepModEQ:
		return cmp == 0
	case DepModGE:
		return cmp >= 0
	case DepModLE:
		return cmp <= 0
	case DepModGT:
		return cmp > 0
	case DepModLT:
		return cmp < 0
	}
	return false
}
