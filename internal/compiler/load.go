package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/arbor/internal/view"
)

// LoadViewFile compiles a single CUE file. The description is read from its
// top-level `view` field when present, otherwise the whole file is the
// description.
func LoadViewFile(path string) (*view.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load view: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if vv := v.LookupPath(cue.ParsePath("view")); vv.Exists() {
		return CompileView(vv)
	}
	return CompileView(v)
}

// LoadViewDir loads the CUE package in dir and compiles every field of its
// top-level `views` struct, keyed by field name.
func LoadViewDir(dir string) (map[string]*view.Node, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("load views: not a directory: %s", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("load views: no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load views: no CUE instances loaded")
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load views: %w", inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	viewsVal := value.LookupPath(cue.ParsePath("views"))
	if !viewsVal.Exists() {
		return nil, &CompileError{Field: "views", Message: "views struct is required", Pos: value.Pos()}
	}
	iter, err := viewsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := make(map[string]*view.Node)
	for iter.Next() {
		n, err := CompileView(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("views.%s: %w", iter.Label(), err)
		}
		out[iter.Label()] = n
	}
	return out, nil
}

// ViewNames returns the keys of a LoadViewDir result in sorted order.
func ViewNames(views map[string]*view.Node) []string {
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
