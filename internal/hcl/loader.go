package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/ctxlog"
	"github.com/vk/fieldengine/internal/fsutil"
	"github.com/vk/fieldengine/internal/schema"
)

// DefaultRegionName names the region when no model file sets one.
const DefaultRegionName = "model"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	converter *Converter
}

// NewLoader creates a new HCL model loader.
func NewLoader() *Loader {
	return &Loader{converter: NewConverter()}
}

// Load parses every .hcl file under the given paths and merges their blocks
// into one model. Identifiers must be unique across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	if len(hclFiles) == 0 {
		return nil, nil, fmt.Errorf("no .hcl model files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	model := &config.Model{Region: DefaultRegionName}
	seen := newIdentifierSet()
	var errs *multierror.Error
	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root schema.ModelFile
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if root.Region != "" {
			model.Region = root.Region
		}
		for _, s := range root.Nodes {
			node, err := l.translateNode(ctx, s)
			if err == nil {
				err = seen.add("node", s.ID)
			}
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", file, err))
				continue
			}
			model.Nodes = append(model.Nodes, node)
		}
		for _, s := range root.Elements {
			element, err := translateElement(s)
			if err == nil {
				err = seen.add("element", s.ID)
			}
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", file, err))
				continue
			}
			model.Elements = append(model.Elements, element)
		}
		for _, s := range root.Nodesets {
			if err := seen.add("nodeset", s.Name); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", file, err))
				continue
			}
			model.Nodesets = append(model.Nodesets, translateNodeset(s))
		}
		for _, s := range root.Fields {
			def, err := translateField(s)
			if err == nil {
				err = seen.add("field", s.Name)
			}
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", file, err))
				continue
			}
			model.Fields = append(model.Fields, def)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, nil, err
	}

	logger.Debug("HCL loading complete.", "region", model.Region, "nodes", len(model.Nodes), "elements", len(model.Elements), "nodesets", len(model.Nodesets), "fields", len(model.Fields))
	return model, l.converter, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found, each once.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing model path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) != ".hcl" {
				return nil, fmt.Errorf("model file %s does not have the .hcl extension", path)
			}
			add(path)
			continue
		}
		files, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(f)
		}
	}
	return allFiles, nil
}

// identifierSet tracks block identifiers per kind across files.
type identifierSet map[string]map[string]struct{}

func newIdentifierSet() identifierSet {
	return make(identifierSet)
}

func (s identifierSet) add(kind, id string) error {
	ids, ok := s[kind]
	if !ok {
		ids = make(map[string]struct{})
		s[kind] = ids
	}
	if _, dup := ids[id]; dup {
		return fmt.Errorf("duplicate %s %q", kind, id)
	}
	ids[id] = struct{}{}
	return nil
}
