package shellexec

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// LookPath resolves a command token to an executable path. A token containing
// a path separator is accepted only if it is directly executable; otherwise
// each directory of the colon-separated searchPath is tried in order. An
// unresolved command yields "".
func LookPath(fs afero.Fs, searchPath, name string) string {
	if name == "" {
		return ""
	}
	if strings.Contains(name, "/") {
		if isExecutable(fs, name) {
			return name
		}
		return ""
	}
	for _, dir := range strings.Split(searchPath, ":") {
		candidate := filepath.Join(dir, name)
		if isExecutable(fs, candidate) {
			return candidate
		}
	}
	return ""
}

func isExecutable(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}
