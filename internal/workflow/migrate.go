package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/codemod/internal/fileset"
	"github.com/deixis/codemod/internal/invocation"
	"github.com/deixis/codemod/internal/prompt"
	"github.com/deixis/codemod/internal/runner"
	"github.com/deixis/codemod/internal/transform"
	"go.uber.org/zap"
)

// State is a stage of a run.
type State int

const (
	ParsingFlags State = iota
	GuardingRepo
	ResolvingChoice
	ResolvingFiles
	BuildingInvocation
	Running
	Done
	NoFiles // terminal: nothing matched, not an error
)

var stateNames = [...]string{
	ParsingFlags:       "parsing-flags",
	GuardingRepo:       "guarding-repo",
	ResolvingChoice:    "resolving-choice",
	ResolvingFiles:     "resolving-files",
	BuildingInvocation: "building-invocation",
	Running:            "running",
	Done:               "done",
	NoFiles:            "no-files",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome records how far a run got and what the engine reported.
type Outcome struct {
	State      State
	Transform  transform.Descriptor
	Inputs     []string
	Files      []string
	Invocation *invocation.Invocation
	Result     *runner.Result // nil unless the engine ran
	Forced     bool           // the guard was overridden with --force
}

// Succeeded reports whether the run ended without error: either the engine
// exited 0 or there was nothing to do.
func (o *Outcome) Succeeded() bool {
	switch o.State {
	case NoFiles:
		return true
	case Done:
		return o.Result.Succeeded()
	}
	return false
}

// Migrate runs one transform. The returned Outcome is never nil; its State
// is the stage the run stopped in. Every halting condition is returned as
// an error except an empty file set, which ends in the NoFiles state.
func (e *Engine) Migrate(ctx context.Context, req Request) (*Outcome, error) {
	out := &Outcome{State: ParsingFlags}
	log := e.logger()

	if !req.Flags.Dry {
		out.State = GuardingRepo
		d := e.Guard.Check(req.Flags.Force)
		log.Debug("repository checked", zap.Stringer("state", d.State), zap.Bool("safe", d.Safe))
		if !d.Safe {
			return out, &UnsafeTreeError{Reason: d.Reason}
		}
		if d.Forced {
			out.Forced = true
			e.printf("WARNING: %s. Forcibly continuing.\n", d.Reason)
		}
	}

	out.State = ResolvingChoice
	desc, inputs, err := e.resolveChoice(ctx, req)
	if err != nil {
		return out, err
	}
	out.Transform = desc
	out.Inputs = inputs

	out.State = ResolvingFiles
	files, err := e.Files.Resolve(inputs)
	if errors.Is(err, fileset.ErrNoFiles) {
		out.State = NoFiles
		e.printf("No files found matching %s\n", strings.Join(inputs, " "))
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("resolving files: %w", err)
	}
	out.Files = files
	log.Debug("files resolved", zap.Int("count", len(files)))

	out.State = BuildingInvocation
	inv := e.Builder.Build(desc, files, req.Flags)
	out.Invocation = &inv

	out.State = Running
	res, err := e.Runner.Run(ctx, inv)
	out.Result = res
	if err != nil {
		return out, err
	}

	out.State = Done
	return out, nil
}

// resolveChoice validates the given transform, then prompts for whatever
// is missing: the path first, then the transform.
func (e *Engine) resolveChoice(ctx context.Context, req Request) (transform.Descriptor, []string, error) {
	if req.Transform != "" {
		if _, err := e.Catalog.Resolve(req.Transform); err != nil {
			return transform.Descriptor{}, nil, err
		}
	}

	missingPath := len(req.Paths) == 0
	missingTransform := req.Transform == ""
	if (missingPath || missingTransform) && e.Prompter == nil {
		return transform.Descriptor{}, nil, ErrMissingInput
	}

	inputs := append([]string(nil), req.Paths...)
	if missingPath {
		p, err := e.Prompter.Input(ctx, FilesQuestion, DefaultPath)
		if err != nil {
			return transform.Descriptor{}, nil, err
		}
		inputs = []string{p}
	}

	id := req.Transform
	if missingTransform {
		choices := make([]prompt.Choice, 0, e.Catalog.Len())
		for _, d := range e.Catalog.All() {
			choices = append(choices, prompt.Choice{Name: d.DisplayName, Value: d.ID})
		}
		picked, err := e.Prompter.Select(ctx, TransformQuestion, choices)
		if err != nil {
			return transform.Descriptor{}, nil, err
		}
		id = picked
	}

	desc, err := e.Catalog.Resolve(id)
	if err != nil {
		return transform.Descriptor{}, nil, err
	}
	return desc, inputs, nil
}
