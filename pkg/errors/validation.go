package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// pep508Name matches a valid distribution name: ASCII letters and digits,
// with ".", "-" and "_" allowed between them.
var pep508Name = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)

// ValidatePackageName validates a Python distribution name.
// It rejects empty and overlong names, control characters and anything that
// is not a PEP 508 name, which also rules out path traversal when the name is
// used to build index URLs or cache keys.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	if !pep508Name.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid package name: %q", name)
	}

	return nil
}

// ValidateFilename validates an artifact filename requested over the network.
// It must be a plain basename: no separators, no parent references, not hidden.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidPath, "filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\\x00") {
		return New(ErrCodeInvalidPath, "filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidPath, "filename cannot be a hidden file")
	}

	return nil
}
