package builder

import (
	"context"
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/ctxlog"
	"github.com/vk/fieldengine/internal/dag"
)

// fieldVariable is the root name under which expressions see other fields.
const fieldVariable = "field"

// parseFieldTraversal extracts the referenced field name from a traversal
// such as `field.coordinates` or `field.coordinates[1]`.
func parseFieldTraversal(traversal hcl.Traversal) (string, bool) {
	if len(traversal) < 2 || traversal.RootName() != fieldVariable {
		return "", false
	}
	attr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return "", false
	}
	return attr.Name, true
}

// fieldReferences returns the names of the fields a definition refers to, in
// sorted order and without duplicates.
func fieldReferences(def *config.FieldDefinition) []string {
	var names []string
	for _, expr := range def.Arguments {
		for _, traversal := range expr.Variables() {
			if name, ok := parseFieldTraversal(traversal); ok {
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// fieldOrder links every field to the fields its arguments refer to and
// returns the field names in creation order.
func fieldOrder(ctx context.Context, model *config.Model) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	graph := dag.New()
	for _, def := range model.Fields {
		graph.AddNode(def.Name)
	}

	var errs *multierror.Error
	for _, def := range model.Fields {
		for _, name := range fieldReferences(def) {
			if name == def.Name {
				errs = multierror.Append(errs, fmt.Errorf("%s: field %q refers to itself", def.DefRange, def.Name))
				continue
			}
			if model.FindField(name) == nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: field %q refers to undefined field %q", def.DefRange, def.Name, name))
				continue
			}
			if err := graph.AddEdge(name, def.Name); err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			logger.Debug("Linked field dependency.", "field", def.Name, "dependency", name)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return graph.TopologicalSort()
}
