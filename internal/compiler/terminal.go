// Package compiler turns CUE terminal master data into the snapshot the
// validator reads and the checklist catalog the ledger is seeded from.
//
// A configuration directory holds one or more .cue files of a single package
// defining a top-level `terminal` struct:
//
//	terminal: {
//		tanks: "T1": {capacity: 1000, current: 900}
//		authorizations: [{customer: "Acme", product: "Diesel", tanks: ["T1"]}]
//		infrastructure: "Wharf 1": ["T1"]
//		product_groups: Diesel: "Distillates"
//	}
//
// The struct is unified with the embedded #Terminal schema, so unknown fields
// and ill-typed values are rejected before decoding.
package compiler

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/terminalops/internal/checklist"
	"github.com/roach88/terminalops/internal/model"
)

//go:embed schema.cue
var schemaSource string

// TerminalSpec is the decoded configuration document, before it is indexed
// into a TerminalConfig.
type TerminalSpec struct {
	Tanks            map[string]model.TankState     `json:"tanks"`
	Authorizations   []AuthorizationSpec            `json:"authorizations"`
	Infrastructure   map[string][]string            `json:"infrastructure"`
	ProductGroups    map[string]string              `json:"product_groups"`
	Compatibility    []CompatibilitySpec            `json:"compatibility"`
	Docklines        map[string]string              `json:"docklines"`
	Checklists       map[string]checklist.Checklist `json:"checklists"`
	SharedChecklists map[string]checklist.Checklist `json:"shared_checklists"`
}

// AuthorizationSpec is one row of the authorization matrix.
type AuthorizationSpec struct {
	Customer string   `json:"customer"`
	Product  string   `json:"product"`
	Tanks    []string `json:"tanks"`
}

// CompatibilitySpec is one verdict of the compatibility matrix.
type CompatibilitySpec struct {
	Last    string              `json:"last"`
	Next    string              `json:"next"`
	Verdict model.Compatibility `json:"verdict"`
}

// Terminal is a compiled configuration.
type Terminal struct {
	Spec    TerminalSpec
	Config  *model.TerminalConfig
	Catalog *checklist.Catalog
}

// CompileTerminal compiles the `terminal` struct v.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	term, err := CompileTerminal(v.LookupPath(cue.ParsePath("terminal")))
func CompileTerminal(v cue.Value) (*Terminal, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "terminal", Message: "terminal is required"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compiling embedded schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Terminal")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var spec TerminalSpec
	if err := unified.Decode(&spec); err != nil {
		return nil, formatCUEError(err)
	}
	return Build(spec), nil
}

// CompileString compiles CUE source containing a `terminal` struct.
func CompileString(src string) (*Terminal, error) {
	v := cuecontext.New().CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileTerminal(v.LookupPath(cue.ParsePath("terminal")))
}

// LoadDir loads and compiles every .cue file in dir as one package.
func LoadDir(dir string) (*Terminal, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("config directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCUEFiles, dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCUEFiles, dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileTerminal(value.LookupPath(cue.ParsePath("terminal")))
}

// Build indexes a decoded document. Checklists in the document replace the
// stock checklist of their modality; other modalities keep the default.
func Build(spec TerminalSpec) *Terminal {
	cfg := model.NewTerminalConfig()
	for id, tank := range spec.Tanks {
		cfg.Tanks[id] = tank
	}
	for _, a := range spec.Authorizations {
		cfg.Authorize(a.Customer, a.Product, a.Tanks...)
	}
	for id, tanks := range spec.Infrastructure {
		cfg.Infrastructure[id] = append([]string(nil), tanks...)
	}
	for product, group := range spec.ProductGroups {
		cfg.ProductGroups[product] = group
	}
	for _, c := range spec.Compatibility {
		cfg.SetCompatibility(c.Last, c.Next, c.Verdict)
	}
	for id, product := range spec.Docklines {
		cfg.Docklines[id] = product
	}

	cat := checklist.DefaultCatalog()
	for m, cl := range spec.Checklists {
		cat.Set(checklist.Modality(m), cl)
	}
	for m, cl := range spec.SharedChecklists {
		cat.SetShared(checklist.Modality(m), cl)
	}

	return &Terminal{Spec: spec, Config: cfg, Catalog: cat}
}
