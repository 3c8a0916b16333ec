package classifier

import (
	"path"
	"strings"
)

// sourceExtensions is the attachment allow-list: source code in the major
// languages plus markup and configuration formats.
var sourceExtensions = map[string]struct{}{
	"py": {}, "js": {}, "ts": {}, "jsx": {}, "tsx": {}, "java": {}, "kt": {}, "kts": {},
	"c": {}, "h": {}, "cpp": {}, "cc": {}, "hpp": {}, "cs": {}, "go": {}, "rs": {},
	"rb": {}, "php": {}, "swift": {}, "scala": {}, "dart": {}, "lua": {}, "r": {},
	"m": {}, "pl": {}, "hs": {}, "ex": {}, "exs": {}, "clj": {}, "sql": {},
	"sh": {}, "bash": {}, "ps1": {}, "html": {}, "css": {}, "scss": {}, "vue": {},
	"svelte": {}, "json": {}, "yaml": {}, "yml": {}, "toml": {}, "xml": {}, "ini": {},
	"ipynb": {}, "md": {}, "dockerfile": {},
}

// IsSourceFile reports whether filename has an allow-listed extension. A
// bare "Dockerfile" or "Makefile" also counts.
func IsSourceFile(filename string) bool {
	base := strings.ToLower(path.Base(filename))
	if base == "dockerfile" || base == "makefile" {
		return true
	}
	ext := strings.TrimPrefix(path.Ext(base), ".")
	if ext == "" {
		return false
	}
	_, ok := sourceExtensions[ext]
	return ok
}
