package local

import (
	"strings"
	"unicode"
)

// ParseFilename derives the project name and version from a distribution
// filename. ext is the matched archive extension.
//
// Wheels and eggs use the first two dash-separated fields:
//
//	requests-2.31.0-py3-none-any.whl -> requests, 2.31.0
//
// For source distributions the name runs up to the first field that starts
// with a digit and the rest is the version:
//
//	python-dateutil-2.8.2.tar.gz -> python-dateutil, 2.8.2
//
// ok is false when no version can be found.
func ParseFilename(filename, ext string) (name, version string, ok bool) {
	stem := filename[:len(filename)-len(ext)]
	parts := strings.Split(stem, "-")

	switch strings.ToLower(ext) {
	case ".whl", ".egg":
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return "", "", false
		}
		return parts[0], parts[1], true
	}

	for i := 1; i < len(parts); i++ {
		if parts[i] != "" && unicode.IsDigit(rune(parts[i][0])) {
			name = strings.Join(parts[:i], "-")
			if name == "" {
				return "", "", false
			}
			return name, strings.Join(parts[i:], "-"), true
		}
	}
	return "", "", false
}

// matchExtension returns the extension of filename found in exts, preferring
// the longest match so that ".tar.gz" wins over ".gz".
func matchExtension(filename string, exts []string) (string, bool) {
	lower := strings.ToLower(filename)
	best := ""
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) && len(ext) > len(best) {
			best = ext
		}
	}
	if best == "" || len(best) >= len(filename) {
		return "", false
	}
	return filename[len(filename)-len(best):], true
}
