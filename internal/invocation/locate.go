package invocation

import (
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultEngine is the engine executable name.
const DefaultEngine = "jscodeshift"

// LocateEngine returns the path of the engine executable. It checks
// node_modules/.bin in dir and each of its parents first, then PATH. If
// neither has it, name is returned unchanged so the launch fails with a
// clear error later.
func LocateEngine(name, dir string) string {
	if name == "" {
		name = DefaultEngine
	}
	if filepath.IsAbs(name) {
		return name
	}

	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			for d := abs; ; d = filepath.Dir(d) {
				candidate := filepath.Join(d, "node_modules", ".bin", name)
				if isExecutable(candidate) {
					return candidate
				}
				if filepath.Dir(d) == d {
					break
				}
			}
		}
	}

	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	return name
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode()&0o111 != 0
}
