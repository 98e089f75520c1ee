package alpm

import "strings"

// Target is a package request, optionally pinned to one repository and
// constrained to a version range: "linux", "core/linux", "linux>=6.1",
// or "core/linux=6.10.arch1-1".
type Target struct {
	Repo string
	Dep  Depend
}

// ParseTarget splits an optional "repo/" prefix off a target string and
// parses the remainder as a dependency specification.
func ParseTarget(s string) Target {
	var t Target
	if repo, rest, ok := strings.Cut(s, "/"); ok {
		t.Repo = repo
		s = rest
	}
	t.Dep = ParseDepend(s)
	return t
}

func (t Target) String() string {
	if t.Repo == "" {
		return t.Dep.String()
	}
	return t.Repo + "/" + t.Dep.String()
}
