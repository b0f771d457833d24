// Package fileset turns path and glob arguments into the list of files
// handed to the engine.
package fileset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// WildcardMarker switches a batch of inputs to glob expansion.
const WildcardMarker = "*"

// ErrNoFiles is returned when glob expansion matched nothing.
var ErrNoFiles = errors.New("no files found")

// Resolver expands inputs relative to Dir (the process working directory
// when empty).
type Resolver struct {
	Dir string
}

// HasWildcard reports whether any input needs glob expansion.
func HasWildcard(inputs []string) bool {
	for _, in := range inputs {
		if strings.Contains(in, WildcardMarker) {
			return true
		}
	}
	return false
}

// Resolve returns inputs unchanged when none carries a wildcard; directories
// are then left for the engine to walk. Otherwise every input is expanded
// against the filesystem and the matching files are returned deduplicated,
// in input order.
func (r *Resolver) Resolve(inputs []string) ([]string, error) {
	if !HasWildcard(inputs) {
		if len(inputs) == 0 {
			return nil, ErrNoFiles
		}
		return append([]string(nil), inputs...), nil
	}

	seen := make(map[string]struct{})
	var files []string
	for _, in := range inputs {
		matches, err := r.expand(in)
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", in, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return files, nil
}

func (r *Resolver) expand(input string) ([]string, error) {
	base := r.Dir
	if base == "" {
		base = "."
	}

	pat := filepath.FromSlash(input)
	abs := filepath.IsAbs(pat)
	if !abs {
		pat = filepath.Join(base, pat)
	}

	// A plain directory stands for everything below it.
	if !strings.Contains(input, WildcardMarker) {
		if fi, err := os.Stat(pat); err == nil && fi.IsDir() {
			pat = filepath.Join(pat, "**")
		}
	}

	matches, err := doublestar.FilepathGlob(pat, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if hidden(pat, m) {
			continue
		}
		if abs || base == "." {
			out = append(out, m)
			continue
		}
		rel, err := filepath.Rel(base, m)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

// hidden reports whether a wildcard in pat matched a dot-prefixed segment of
// match. Wildcards skip dotfiles and dot-directories; a pattern segment that
// itself starts with a dot may match them.
func hidden(pat, match string) bool {
	ps := strings.Split(filepath.ToSlash(pat), "/")
	ms := strings.Split(filepath.ToSlash(match), "/")

	// Segments before the first ** line up from the front.
	i := 0
	for ; i < len(ps) && i < len(ms) && ps[i] != "**"; i++ {
		if wildDot(ps[i], ms[i]) {
			return true
		}
	}
	if i == len(ps) {
		return false
	}

	// Segments after the last ** line up from the back.
	last := i
	for k := i; k < len(ps); k++ {
		if ps[k] == "**" {
			last = k
		}
	}
	j := len(ms) - 1
	for k := len(ps) - 1; k > last && j >= i; k, j = k-1, j-1 {
		if wildDot(ps[k], ms[j]) {
			return true
		}
	}

	// The rest was spanned by **.
	for _, seg := range ms[i : j+1] {
		if strings.HasPrefix(seg, ".") && !namedDot(ps[i:last+1], seg) {
			return true
		}
	}
	return false
}

func wildDot(patSeg, seg string) bool {
	return strings.HasPrefix(seg, ".") &&
		!strings.HasPrefix(patSeg, ".") &&
		strings.ContainsAny(patSeg, "*?[{")
}

// namedDot reports whether one of segs explicitly asks for the dot segment.
func namedDot(segs []string, seg string) bool {
	for _, p := range segs {
		if !strings.HasPrefix(p, ".") {
			continue
		}
		if ok, _ := doublestar.Match(p, seg); ok {
			return true
		}
	}
	return false
}
