package alpm

import "testing"

func TestParseSigLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		directives []string
		base       SigLevel
		want       SigLevel
	}{
		{
			name: "empty keeps base",
			base: DefaultSigLevel,
			want: DefaultSigLevel,
		},
		{
			name:       "never clears everything",
			directives: []string{"Never"},
			base:       DefaultSigLevel,
			want:       0,
		},
		{
			name:       "required drops optional",
			directives: []string{"Required"},
			base:       DefaultSigLevel,
			want:       SigPackage | SigDatabase,
		},
		{
			name:       "optional from nothing",
			directives: []string{"Optional"},
			base:       0,
			want:       DefaultSigLevel,
		},
		{
			name:       "package scope only",
			directives: []string{"PackageRequired"},
			base:       DefaultSigLevel,
			want:       SigPackage | SigDatabase | SigDatabaseOptional,
		},
		{
			name:       "database scope only",
			directives: []string{"DatabaseNever"},
			base:       DefaultSigLevel,
			want:       SigPackage | SigPackageOptional,
		},
		{
			name:       "trust all adds marginal and unknown",
			directives: []string{"TrustAll"},
			base:       DefaultSigLevel,
			want: DefaultSigLevel | SigPackageMarginalOK | SigPackageUnknownOK |
				SigDatabaseMarginalOK | SigDatabaseUnknownOK,
		},
		{
			name: "trusted only undoes trust all",
			directives: []string{"TrustAll", "TrustedOnly"},
			base:       DefaultSigLevel,
			want:       DefaultSigLevel,
		},
		{
			name:       "later directives win",
			directives: []string{"Never", "PackageOptional"},
			base:       DefaultSigLevel,
			want:       SigPackage | SigPackageOptional,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSigLevel(tt.directives, tt.base)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseSigLevel(%v) = %#x, want %#x", tt.directives, got, tt.want)
			}
		})
	}
}

func TestParseSigLevelInvalid(t *testing.T) {
	t.Parallel()

	for _, directive := range []string{"Sometimes", "packagerequired", "Package"} {
		if _, err := ParseSigLevel([]string{directive}, DefaultSigLevel); err == nil {
			t.Errorf("ParseSigLevel(%q) should fail", directive)
		}
	}
}
