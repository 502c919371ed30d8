package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidatePartName validates a sub-part file reference before it is resolved
// against a search path. It rejects names that could escape the library
// directories.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No parent directory references
//   - Maximum length of 256 characters
//
// Backslashes are allowed because LDraw references use them as separators
// ("s\3001s01.dat"); callers normalise them with [NormalizePartName].
func ValidatePartName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "part name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "part name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "part name contains invalid control characters")
		}
	}

	norm := NormalizePartName(name)
	if strings.HasPrefix(norm, "/") {
		return New(ErrCodeInvalidInput, "part name must be relative: %q", name)
	}
	for _, seg := range strings.Split(norm, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidInput, "part name contains path traversal: %q", name)
		}
	}

	return nil
}

// NormalizePartName lower-cases a part reference and converts backslash
// separators to forward slashes. LDraw file names are case-insensitive.
func NormalizePartName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
}

// ValidateDocumentPath validates a document path given on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - Extension must be one of the allowed extensions (if any are given)
func ValidateDocumentPath(path string, allowedExt ...string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if len(allowedExt) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowedExt {
		if ext == a {
			return nil
		}
	}
	return New(ErrCodeInvalidPath, "unsupported file extension %q (want one of %s)", ext, strings.Join(allowedExt, ", "))
}
