// Package classname turns archive entry paths into dotted class names and
// simple identifiers, and compares identifiers against a search target.
//
// An entry path such as "com/example/Logger.class" normalizes to the dotted
// name "com.example.Logger" whose identifier is "Logger". A class in the
// unnamed package ("Main.class") has the identifier "Main", equal to its
// whole dotted name.
package classname

import "strings"

// Suffix marks an entry as class-like. Matching is case-insensitive.
const Suffix = ".class"

// Separator joins the components of a dotted name.
const Separator = '.'

// Normalize converts an entry path into its dotted name. Both '/' and '\'
// become '.', and the trailing class suffix is dropped. ok is false for
// entries that are not class-like.
func Normalize(entryPath string) (dotted string, ok bool) {
	name := strings.TrimSpace(entryPath)
	if !hasSuffixFold(name, Suffix) {
		return "", false
	}
	name = name[:len(name)-len(Suffix)]
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return Separator
		}
		return r
	}, name), true
}

// Identifier returns the simple name of a dotted name: the text after the
// last separator, or the whole name when it has none.
func Identifier(dotted string) string {
	if i := strings.LastIndexByte(dotted, Separator); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

// Matches reports whether identifier equals target under Unicode case folding.
func Matches(identifier, target string) bool {
	return strings.EqualFold(identifier, target)
}

// Entry is the result of classifying one archive entry path.
type Entry struct {
	Path       string // trimmed entry path as stored in the archive
	Dotted     string // fully qualified dotted name
	Identifier string // simple name used for matching
}

// Parse classifies an entry path. ok is false for non-class entries.
func Parse(entryPath string) (Entry, bool) {
	dotted, ok := Normalize(entryPath)
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Path:       strings.TrimSpace(entryPath),
		Dotted:     dotted,
		Identifier: Identifier(dotted),
	}, true
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}
