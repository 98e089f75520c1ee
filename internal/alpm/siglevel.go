package alpm

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// SigLevel is a bitmask describing how PGP signatures are enforced for
// packages and databases.
type SigLevel uint32

const (
	// SigPackage requires package signatures to verify.
	SigPackage SigLevel = 1 << iota
	// SigPackageOptional tolerates a missing package signature.
	SigPackageOptional
	SigPackageMarginalOK
	SigPackageUnknownOK

	// SigDatabase requires database signatures to verify.
	SigDatabase
	// SigDatabaseOptional tolerates a missing database signature.
	SigDatabaseOptional
	SigDatabaseMarginalOK
	SigDatabaseUnknownOK
)

// SigUseDefault selects the handle-wide default signature level.
const SigUseDefault SigLevel = 1 << 31

// DefaultSigLevel is pacman's stock policy: signatures are checked when
// present, may be absent, and only fully trusted keys are accepted.
const DefaultSigLevel = SigPackage | SigPackageOptional | SigDatabase | SigDatabaseOptional

// ParseSigLevel interprets pacman-style signature level directives such
// as "Required", "Optional", "Never", "TrustedOnly", and "TrustAll",
// layering them over base. A "Package" or "Database" prefix restricts a
// directive to that scope; unprefixed directives apply to both.
func ParseSigLevel(directives []string, base SigLevel) (SigLevel, error) {
	level := base
	for _, directive := range directives {
		pkg, db := true, true
		word := directive
		if strings.HasPrefix(word, "Package") {
			db = false
			word = strings.TrimPrefix(word, "Package")
		} else if strings.HasPrefix(word, "Database") {
			pkg = false
			word = strings.TrimPrefix(word, "Database")
		}
		switch word {
		case "Never":
			if pkg {
				level &^= SigPackage | SigPackageOptional
			}
			if db {
				level &^= SigDatabase | SigDatabaseOptional
			}
		case "Optional":
			if pkg {
				level |= SigPackage | SigPackageOptional
			}
			if db {
				level |= SigDatabase | SigDatabaseOptional
			}
		case "Required":
			if pkg {
				level |= SigPackage
				level &^= SigPackageOptional
			}
			if db {
				level |= SigDatabase
				level &^= SigDatabaseOptional
			}
		case "TrustedOnly":
			if pkg {
				level &^= SigPackageMarginalOK | SigPackageUnknownOK
			}
			if db {
				level &^= SigDatabaseMarginalOK | SigDatabaseUnknownOK
			}
		case "TrustAll":
			if pkg {
				level |= SigPackageMarginalOK | SigPackageUnknownOK
			}
			if db {
				level |= SigDatabaseMarginalOK | SigDatabaseUnknownOK
			}
		default:
			return 0, errors.Newf("invalid signature level directive: %q", directive)
		}
	}
	return level, nil
}
