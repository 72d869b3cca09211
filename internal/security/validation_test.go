package security

import (
	"strings"
	"testing"
)

func TestValidateModName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple name", "Texture Overhaul", false},
		{"with version suffix", "Foo-2.1_final", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("a", 256), true},
		{"path separator", "foo/bar", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
		{"shell metachar", "foo;rm", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateModName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty is allowed", "", false},
		{"semver", "1.2.3", false},
		{"with build", "2.0.0+build.5", false},
		{"prerelease", "1.0.0-rc.1", false},
		{"too long", strings.Repeat("1", 100), true},
		{"spaces", "1 0", true},
		{"slash", "1/0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDestination(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain relative", "data/tex.pak", false},
		{"nested", "data/textures/hd/stone.dds", false},
		{"top level", "readme.txt", false},
		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"windows absolute", "C:\\game\\tex.pak", true},
		{"backslash absolute", "\\game\\tex.pak", true},
		{"parent escape", "../outside.pak", true},
		{"hidden escape", "data/../../outside.pak", true},
		{"dot only", ".", true},
		{"null byte", "data/\x00.pak", true},
		{"too long", strings.Repeat("a/", 2048) + "f", true},
		{"internal dotdot resolving inside", "data/sub/../tex.pak", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDestination(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDestination(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSource(t *testing.T) {
	if err := ValidateSource("files/tex.pak"); err != nil {
		t.Errorf("ValidateSource() unexpected error: %v", err)
	}
	if err := ValidateSource("../escape.pak"); err == nil {
		t.Error("ValidateSource() expected error for escaping path")
	}
}
