package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/pyxgo/internal/ctxlog"
)

// DefaultPattern selects the configuration files loaded when none are named.
const DefaultPattern = "pyxis*.hcl"

// Assignment is one variable assignment read from a file. Namespace is empty
// for the global Context.
type Assignment struct {
	Namespace string
	Name      string
	Value     any
	Range     hcl.Range
}

// Target returns the dotted name of the assigned variable.
func (a Assignment) Target() string {
	if a.Namespace == "" {
		return a.Name
	}
	return a.Namespace + "." + a.Name
}

// Variables is the state visible to expressions: global values and the
// values of each namespace.
type Variables struct {
	Globals    map[string]any
	Namespaces map[string]map[string]any
}

// namespaceBlockType is the only block allowed at the top level.
const namespaceBlockType = "namespace"

// fileRoot decodes the top-level structure of a configuration file. Remain
// absorbs the top-level attributes; they are read by topAttributes.
type fileRoot struct {
	Namespaces []*namespaceBlock `hcl:"namespace,block"`
	Remain     hcl.Body          `hcl:",remain"`
}

type namespaceBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// Loader reads configuration files from a filesystem.
type Loader struct {
	fs afero.Fs
}

// NewLoader creates a loader reading from fs.
func NewLoader(fs afero.Fs) *Loader {
	return &Loader{fs: fs}
}

// Discover returns the files in dir matching pattern, sorted. A missing
// directory yields no files.
func (l *Loader) Discover(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !filepath.IsAbs(dir) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config directory %s: %w", dir, err)
		}
		dir = abs
	}
	if ok, _ := afero.DirExists(l.fs, dir); !ok {
		return nil, nil
	}
	matches, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(l.fs, dir)), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to match %q in %s: %w", pattern, dir, err)
	}
	sort.Strings(matches)
	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = filepath.Join(dir, filepath.FromSlash(m))
	}
	return files, nil
}

// Load parses one file and evaluates its attributes against vars. The
// returned assignments are in source order, top-level attributes first.
func (l *Loader) Load(ctx context.Context, path string, vars Variables) ([]Assignment, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading configuration file.", "path", path)

	src, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	file, diags := hclparse.NewParser().ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	st := newEvalState(vars)
	var out []Assignment

	attrs, diags := topAttributes(file.Body, root.Remain)
	if diags.HasErrors() {
		return nil, fmt.Errorf("in config file %s: %w", path, diags)
	}
	top, err := st.evalAttributes(attrs, "")
	if err != nil {
		return nil, fmt.Errorf("in config file %s: %w", path, err)
	}
	out = append(out, top...)

	for _, block := range root.Namespaces {
		if block.Name == "" {
			return nil, fmt.Errorf("in config file %s: namespace block needs a non-empty name", path)
		}
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("in config file %s, namespace %q: %w", path, block.Name, diags)
		}
		assigned, err := st.evalAttributes(attrs, block.Name)
		if err != nil {
			return nil, fmt.Errorf("in config file %s, namespace %q: %w", path, block.Name, err)
		}
		out = append(out, assigned...)
	}

	logger.Debug("Configuration file loaded.", "path", path, "assignments", len(out))
	return out, nil
}

// evalState is the evaluation context of one file. It accumulates values as
// attributes are assigned.
type evalState struct {
	globals    map[string]cty.Value
	namespaces map[string]map[string]cty.Value
}

func newEvalState(vars Variables) *evalState {
	st := &evalState{
		globals:    toCtyMap(vars.Globals),
		namespaces: make(map[string]map[string]cty.Value, len(vars.Namespaces)),
	}
	for name, values := range vars.Namespaces {
		st.namespaces[name] = toCtyMap(values)
	}
	return st
}

func (st *evalState) context() *hcl.EvalContext {
	variables := make(map[string]cty.Value, len(st.globals)+len(st.namespaces))
	for name, v := range st.globals {
		variables[name] = v
	}
	for name, values := range st.namespaces {
		variables[name] = cty.ObjectVal(values)
	}
	return &hcl.EvalContext{Variables: variables, Functions: functions()}
}

// topAttributes returns the top-level attributes of a file. A native syntax
// body still lists the namespace blocks gohcl consumed, so its attributes are
// read directly and any other block is rejected.
func topAttributes(body, remain hcl.Body) (hcl.Attributes, hcl.Diagnostics) {
	sb, ok := body.(*hclsyntax.Body)
	if !ok {
		return remain.JustAttributes()
	}
	var diags hcl.Diagnostics
	for _, block := range sb.Blocks {
		if block.Type == namespaceBlockType {
			continue
		}
		rng := block.DefRange()
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Unexpected %q block", block.Type),
			Detail:   "Only namespace blocks are allowed at the top level.",
			Subject:  &rng,
		})
	}
	attrs := make(hcl.Attributes, len(sb.Attributes))
	for name, attr := range sb.Attributes {
		attrs[name] = attr.AsHCLAttribute()
	}
	return attrs, diags
}

func (st *evalState) evalAttributes(attrs hcl.Attributes, namespace string) ([]Assignment, error) {
	ordered := make([]*hcl.Attribute, 0, len(attrs))
	for _, attr := range attrs {
		ordered = append(ordered, attr)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Range.Start.Byte < ordered[j].Range.Start.Byte
	})

	out := make([]Assignment, 0, len(ordered))
	for _, attr := range ordered {
		val, diags := attr.Expr.Value(st.context())
		if diags.HasErrors() {
			return nil, diags
		}
		goVal, err := FromCty(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q at %s: %w", attr.Name, attr.Range, err)
		}
		st.assign(namespace, attr.Name, val)
		out = append(out, Assignment{Namespace: namespace, Name: attr.Name, Value: goVal, Range: attr.Range})
	}
	return out, nil
}

func (st *evalState) assign(namespace, name string, val cty.Value) {
	if namespace == "" {
		st.globals[name] = val
		return
	}
	values, ok := st.namespaces[namespace]
	if !ok {
		values = make(map[string]cty.Value)
		st.namespaces[namespace] = values
	}
	values[name] = val
}
