// Package security validates the untrusted strings a mod package supplies:
// names, versions, and above all payload destination paths, which are
// written under the game directory and must never escape it.
package security

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var (
	// ValidModNameRegex allows printable names without path separators or
	// shell metacharacters.
	ValidModNameRegex = regexp.MustCompile(`^[^/\\\x00;|&` + "`" + `$]+$`)

	// ValidVersionRegex allows standard version formats.
	ValidVersionRegex = regexp.MustCompile(`^[a-zA-Z0-9._+-]+$`)
)

// ValidateModName validates a mod display name.
func ValidateModName(name string) error {
	if name == "" {
		return fmt.Errorf("mod name cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("mod name too long (max 255 characters)")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("mod name cannot be blank")
	}
	if !ValidModNameRegex.MatchString(name) {
		return fmt.Errorf("invalid mod name: contains path separators or control characters")
	}
	return nil
}

// ValidateVersion validates a version string.
func ValidateVersion(version string) error {
	if version == "" {
		return nil // local mods often have no version
	}
	if len(version) >= 100 {
		return fmt.Errorf("version string too long (max 100 characters)")
	}
	if !ValidVersionRegex.MatchString(version) {
		return fmt.Errorf("invalid version format: must be alphanumeric with dots, dashes, or plus signs")
	}
	return nil
}

// ValidateDestination validates a payload destination path. Destinations
// are slash-separated paths relative to the game directory; anything that
// could resolve outside it is rejected.
func ValidateDestination(dest string) error {
	if dest == "" {
		return fmt.Errorf("destination path cannot be empty")
	}
	if len(dest) >= 4096 {
		return fmt.Errorf("destination path too long (max 4096 characters)")
	}
	if strings.Contains(dest, "\x00") {
		return fmt.Errorf("destination path contains null byte")
	}
	if strings.HasPrefix(dest, "/") || strings.HasPrefix(dest, "\\") {
		return fmt.Errorf("destination path must be relative: %s", dest)
	}
	if len(dest) > 1 && dest[1] == ':' {
		return fmt.Errorf("destination path must be relative: %s", dest)
	}

	cleaned := path.Clean(strings.ReplaceAll(dest, "\\", "/"))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("destination path escapes the game directory: %s", dest)
	}
	if cleaned == "." {
		return fmt.Errorf("destination path resolves to the game directory itself: %s", dest)
	}
	return nil
}

// ValidateSource validates a payload source path relative to the package
// store. Same traversal rules as destinations.
func ValidateSource(src string) error {
	if err := ValidateDestination(src); err != nil {
		return fmt.Errorf("source %s", strings.TrimPrefix(err.Error(), "destination "))
	}
	return nil
}
