package alpm

import (
	"strings"

	debver "github.com/knqyf263/go-deb-version"
)

// VerCmp compares two pacman version strings of the form
// [epoch:]version[-release]. It returns a negative value when a is older
// than b, zero when they are equal, and a positive value when a is
// newer. Strings that do not parse as versions fall back to a plain
// string comparison.
func VerCmp(a, b string) int {
	if a == b {
		return 0
	}
	va, errA := debver.NewVersion(a)
	vb, errB := debver.NewVersion(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}

// stripRelease drops the pkgrel component from a full version string.
func stripRelease(version string) string {
	if i := strings.LastIndex(version, "-"); i >= 0 {
		return version[:i]
	}
	return version
}
