package alpm

import "testing"

func TestParseDepend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Depend
	}{
		{"zlib", Depend{Name: "zlib"}},
		{"zlib=1.3-2", Depend{Name: "zlib", Mod: DepModEQ, Version: "1.3-2"}},
		{"gcc-libs>=12", Depend{Name: "gcc-libs", Mod: DepModGE, Version: "12"}},
		{"linux<6.11", Depend{Name: "linux", Mod: DepModLT, Version: "6.11"}},
		{"linux<=6.10", Depend{Name: "linux", Mod: DepModLE, Version: "6.10"}},
		{"linux>6.9", Depend{Name: "linux", Mod: DepModGT, Version: "6.9"}},
	}

	for _, tt := range tests {
		got := ParseDepend(tt.in)
		if got != tt.want {
			t.Errorf("ParseDepend(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if got.String() != tt.in {
			t.Errorf("ParseDepend(%q).String() = %q", tt.in, got.String())
		}
	}
}

func TestDependMatchesVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dep    string
		pkgver string
		want   bool
	}{
		{"pacman", "6.1.0-3", true},
		{"pacman=6.1.0", "6.1.0-3", true},
		{"pacman=6.1.0-1", "6.1.0-3", false},
		{"pacman>=6", "6.1.0-3", true},
		{"pacman>=7", "6.1.0-3", false},
		{"pacman<=6.1.0", "6.1.0-3", true},
		{"pacman<6.1.0", "6.1.0-3", false},
		{"pacman>6.1.0", "6.1.0-3", false},
		{"pacman=1:5.0", "6.1.0-3", false},
		{"pacman>=1:5.0", "2:1.0-1", true},
	}

	for _, tt := range tests {
		dep := ParseDepend(tt.dep)
		if got := dep.matchesVersion(tt.pkgver); got != tt.want {
			t.Errorf("%q matchesVersion(%q) = %v, want %v", tt.dep, tt.pkgver, got, tt.want)
		}
	}
}

func TestPackageSatisfies(t *testing.T) {
	t.Parallel()

	pkg := &Package{
		name:    "postfix",
		version: "3.9.1-1",
		provides: []Depend{
			ParseDepend("smtp-server"),
			ParseDepend("smtp-forwarder=3.9.1"),
		},
	}

	tests := []struct {
		dep  string
		want bool
	}{
		{"postfix", true},
		{"postfix>=3.9", true},
		{"postfix<3.9", false},
		{"smtp-server", true},
		{"smtp-server>=1", false},
		{"smtp-forwarder", true},
		{"smtp-forwarder>=3.9", true},
		{"smtp-forwarder>=4", false},
		{"exim", false},
	}

	for _, tt := range tests {
		if got := pkg.satisfies(ParseDepend(tt.dep)); got != tt.want {
			t.Errorf("satisfies(%q) = %v, want %v", tt.dep, got, tt.want)
		}
	}
}
