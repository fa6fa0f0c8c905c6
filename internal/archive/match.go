package archive

import (
	"path"
	"regexp"
	"strings"
)

// Match reports whether relPath matches any of the given glob patterns.
//
// The dialect is deliberately small: '*' matches any run of characters except
// the path separator, '?' matches exactly one non-separator character, and
// everything else is literal. Both the path and the patterns are normalized
// to forward slashes before matching, so patterns written with either host
// separator behave the same. A pattern that contains no separator is matched
// against the path's base name; a pattern with separators must match the
// whole relative path. Matches are always anchored, never substring.
//
// An empty pattern list matches nothing.
func Match(relPath string, patterns []string) bool {
	normalized := normalizePath(relPath)

	for _, pattern := range patterns {
		pattern = normalizePath(pattern)
		if pattern == "" {
			continue
		}

		subject := normalized
		if !strings.Contains(pattern, "/") {
			subject = path.Base(normalized)
		}

		re, err := compilePattern(pattern)
		if err != nil {
			// Malformed patterns never match rather than failing the walk.
			continue
		}

		if re.MatchString(subject) {
			return true
		}
	}

	return false
}

// Admitted applies the exclude/include filter rule to a relative path.
// Exclude is checked first and short-circuits; an unset include list admits
// every path that was not excluded.
func Admitted(relPath string, include, exclude []string) bool {
	if Match(relPath, exclude) {
		return false
	}
	if len(include) > 0 && !Match(relPath, include) {
		return false
	}
	return true
}

// compilePattern translates a glob pattern into an anchored regular expression.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	b.WriteString("$")
	return regexp.Compile(b.String())
}

// normalizePath rewrites backslash separators to forward slashes.
func normalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
