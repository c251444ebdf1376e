// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// NpmOutputDir is the deploy subdirectory receiving isolated npm bundles.
const NpmOutputDir = "npm"

// ErrNpmFileNotFound is returned when an npm file vanished after the scan.
var ErrNpmFileNotFound = errors.New("npm source file not found")

type (
	// PlanInput carries everything BuildPlan needs.
	PlanInput struct {
		// BaseDir is the invocation directory, used for display paths and
		// the npm source map prefix.
		BaseDir string
		// RootPath is the package root (directory holding the manifest).
		RootPath string
		// DeployDir is the absolute output directory.
		DeployDir string
		// Entries are the resolved manifest entry points.
		Entries []*ResolvedEntry
		// NpmFiles are the files found below <root>/npm.
		NpmFiles []string
	}

	// Plan is the full set of bundle entries for one package.
	Plan struct {
		// BaseDir, RootPath and DeployDir echo the PlanInput.
		BaseDir   string
		RootPath  string
		DeployDir string

		entries  []*Entry
		external []string

		mu         sync.Mutex
		watchFiles []string
		watchSet   map[string]struct{}
	}

	// NpmFileError reports an npm file missing at plan time.
	NpmFileError struct {
		Path string
	}
)

// Error implements the error interface.
func (e *NpmFileError) Error() string {
	return "could not find npm source file: " + e.Path
}

// Unwrap returns ErrNpmFileNotFound for errors.Is compatibility.
func (e *NpmFileError) Unwrap() error { return ErrNpmFileNotFound }

// BuildPlan creates main entries for in.Entries and isolated npm entries for
// in.NpmFiles. Each npm entry adds an escaped "/npm/<file>" pattern to the
// plan's externals. Any failure returns no plan.
func BuildPlan(in PlanInput) (*Plan, error) {
	p := &Plan{
		BaseDir:   in.BaseDir,
		RootPath:  in.RootPath,
		DeployDir: in.DeployDir,
		watchSet:  map[string]struct{}{},
	}

	mainReverse, err := filepath.Rel(in.DeployDir, in.RootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to relate deploy dir %s to package root %s: %w", in.DeployDir, in.RootPath, err)
	}

	baseNames := make(map[string]int, len(in.Entries))
	for _, r := range in.Entries {
		baseNames[r.BaseName]++
	}
	for _, r := range in.Entries {
		// Stylesheets go to the deploy root unless another entry shares the
		// base name; then they stay next to their bundle.
		cssName := r.BaseName + ".css"
		if baseNames[r.BaseName] > 1 {
			cssName = path.Join(path.Dir(r.Output), cssName)
		}
		p.entries = append(p.entries, &Entry{
			Kind:                KindMain,
			InputPath:           r.Path,
			InputPathRelative:   relOrAbs(in.BaseDir, r.Path),
			InputExt:            r.Ext,
			InputBaseName:       r.BaseName,
			InputType:           r.Type,
			OutputPath:          filepath.Join(in.DeployDir, filepath.FromSlash(r.Output)),
			OutputCSSFilename:   cssName,
			ReverseRelativePath: mainReverse,
			plannedCSS:          filepath.Join(in.DeployDir, filepath.FromSlash(cssName)),
		})
	}

	if len(in.NpmFiles) > 0 {
		baseRel, err := filepath.Rel(in.DeployDir, in.BaseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to relate deploy dir %s to base dir %s: %w", in.DeployDir, in.BaseDir, err)
		}
		// Sources of npm entries resolve one directory deeper (deploy/npm),
		// hence the extra "..".
		npmReverse := filepath.Join("..", baseRel)

		for _, file := range in.NpmFiles {
			if _, err := os.Stat(file); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil, &NpmFileError{Path: file}
				}
				return nil, fmt.Errorf("failed to stat npm file %s: %w", file, err)
			}

			name := filepath.Base(file)
			ext := filepath.Ext(name)
			p.entries = append(p.entries, &Entry{
				Kind:                KindNpm,
				InputPath:           file,
				InputPathRelative:   relOrAbs(in.BaseDir, file),
				InputExt:            ext,
				InputBaseName:       strings.TrimSuffix(name, ext),
				InputType:           InputTypeOf(ext),
				OutputPath:          filepath.Join(in.DeployDir, NpmOutputDir, name),
				ReverseRelativePath: npmReverse,
			})
			p.external = append(p.external, regexp.QuoteMeta("/"+NpmOutputDir+"/"+name))
		}
	}

	if err := p.checkOutputs(); err != nil {
		return nil, err
	}
	return p, nil
}

// checkOutputs rejects plans where two entries write the same bundle or
// stylesheet.
func (p *Plan) checkOutputs() error {
	seen := make(map[string]string, 2*len(p.entries))
	for _, e := range p.entries {
		for _, out := range []string{e.OutputPath, e.plannedCSS} {
			if out == "" {
				continue
			}
			if prev, dup := seen[out]; dup {
				return fmt.Errorf("bundle entries %s and %s both write %s", prev, e.InputPath, out)
			}
			seen[out] = e.InputPath
		}
	}
	return nil
}

// Entries returns all entries, main entries first.
func (p *Plan) Entries() []*Entry { return slices.Clone(p.entries) }

// MainEntries returns the manifest-declared entries.
func (p *Plan) MainEntries() []*Entry { return p.byKind(KindMain) }

// NpmEntries returns the isolated npm entries.
func (p *Plan) NpmEntries() []*Entry { return p.byKind(KindNpm) }

func (p *Plan) byKind(k Kind) []*Entry {
	var out []*Entry
	for _, e := range p.entries {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// NpmExternal returns the escaped regular expressions that keep main bundles
// from inlining npm entries.
func (p *Plan) NpmExternal() []string { return slices.Clone(p.external) }

// AddWatchFiles records files read while bundling e, both on e and in the
// plan-wide union.
func (p *Plan) AddWatchFiles(e *Entry, files ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range e.addWatchFiles(files) {
		if _, ok := p.watchSet[f]; ok {
			continue
		}
		p.watchSet[f] = struct{}{}
		p.watchFiles = append(p.watchFiles, f)
	}
}

// AllWatchFiles returns the deduplicated union of watch files in insertion order.
func (p *Plan) AllWatchFiles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.watchFiles)
}

// IsWatched reports whether any entry read path.
func (p *Plan) IsWatched(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.watchSet[path]
	return ok
}

// ResetPass clears watch files and emitted stylesheets from a previous pass.
func (p *Plan) ResetPass() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		e.resetPass()
	}
	p.watchFiles = nil
	p.watchSet = map[string]struct{}{}
}

func relOrAbs(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}
