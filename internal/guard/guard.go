// Package guard decides whether the working tree may be rewritten.
package guard

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"
)

// Reasons reported when the tree is not known to be clean.
const (
	ReasonDirty   = "Git directory is not clean"
	ReasonUnknown = "Unable to determine if git directory is clean"
)

// State is the cleanliness of a working tree.
type State int

const (
	Clean State = iota
	Dirty
	Unknown
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a safety check.
type Decision struct {
	State  State
	Safe   bool   // true when the run may proceed
	Forced bool   // true when the tree is not clean but force was set
	Reason string // empty when State is Clean
}

// Guard inspects the git repository enclosing Dir.
type Guard struct {
	Dir    string
	Logger *zap.Logger
}

// New returns a Guard rooted at dir.
func New(dir string, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{Dir: dir, Logger: logger}
}

// Check reports whether mutating the tree is safe. A missing repository
// counts as clean. Any other failure to read the status is treated like a
// dirty tree.
func (g *Guard) Check(force bool) Decision {
	state, err := g.State()
	if err != nil {
		g.logger().Debug("git status unavailable", zap.String("dir", g.Dir), zap.Error(err))
	}
	return Decide(state, force)
}

// State returns the cleanliness of the working tree. Linked worktrees and
// the user's global and system excludes are honoured like git status does.
func (g *Guard) State() (State, error) {
	repo, err := git.PlainOpenWithOptions(g.Dir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Clean, nil
	}
	if err != nil {
		return Unknown, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return Unknown, err
	}
	wt.Excludes = append(wt.Excludes, g.excludes()...)
	status, err := wt.Status()
	if err != nil {
		return Unknown, err
	}
	if status.IsClean() {
		return Clean, nil
	}
	return Dirty, nil
}

// Decide applies the force policy to a tree state.
func Decide(state State, force bool) Decision {
	d := Decision{State: state}
	switch state {
	case Clean:
		d.Safe = true
		return d
	case Dirty:
		d.Reason = ReasonDirty
	default:
		d.Reason = ReasonUnknown
	}
	d.Safe = force
	d.Forced = force
	return d
}

// excludes loads the ignore patterns that live outside the repository:
// /etc/gitconfig and ~/.gitconfig core.excludesFile, or git's default
// global ignore file when ~/.gitconfig declares none.
func (g *Guard) excludes() []gitignore.Pattern {
	root := osfs.New("/")
	var ps []gitignore.Pattern

	system, err := gitignore.LoadSystemPatterns(root)
	if err != nil {
		g.logger().Debug("reading system excludes", zap.Error(err))
	}
	ps = append(ps, system...)

	global, err := gitignore.LoadGlobalPatterns(root)
	if err != nil {
		g.logger().Debug("reading global excludes", zap.Error(err))
	}
	if len(global) == 0 {
		global = defaultGlobalPatterns()
	}
	return append(ps, global...)
}

// defaultGlobalPatterns reads $XDG_CONFIG_HOME/git/ignore, falling back to
// ~/.config/git/ignore.
func defaultGlobalPatterns() []gitignore.Pattern {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		dir = filepath.Join(home, ".config")
	}

	f, err := os.Open(filepath.Join(dir, "git", "ignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var ps []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(line, nil))
	}
	return ps
}

func (g *Guard) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}
