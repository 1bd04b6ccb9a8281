// This file contains the logic for translating HCL schema structs into the
// format-agnostic model defined in the config package.

package hcl

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/ctxlog"
	"github.com/vk/fieldengine/internal/schema"
)

// parseIdentifier parses a block label holding a positive integer identifier.
func parseIdentifier(kind, label string) (int, error) {
	id, err := strconv.Atoi(label)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%s identifier %q must be a positive integer", kind, label)
	}
	return id, nil
}

// translateNode converts a node block, decoding its stored values.
func (l *Loader) translateNode(ctx context.Context, s *schema.Node) (*config.Node, error) {
	id, err := parseIdentifier("node", s.ID)
	if err != nil {
		return nil, err
	}
	node := &config.Node{ID: id}
	if isExprDefined(ctx, s.Values, "values") {
		if err := l.decodeStatic(ctx, s.Values, &node.Values); err != nil {
			return nil, fmt.Errorf("node %d values: %w", id, err)
		}
	}
	if isExprDefined(ctx, s.MeshLocations, "mesh_locations") {
		if err := l.decodeStatic(ctx, s.MeshLocations, &node.MeshLocations); err != nil {
			return nil, fmt.Errorf("node %d mesh_locations: %w", id, err)
		}
	}
	return node, nil
}

// decodeStatic evaluates an expression without variables into target.
func (l *Loader) decodeStatic(ctx context.Context, expr hcl.Expression, target any) error {
	val, err := l.converter.Value(ctx, expr, nil)
	if err != nil {
		return err
	}
	return l.converter.Decode(ctx, val, target)
}

func translateElement(s *schema.Element) (*config.Element, error) {
	id, err := parseIdentifier("element", s.ID)
	if err != nil {
		return nil, err
	}
	return &config.Element{ID: id, Shape: s.Shape, Nodes: s.Nodes}, nil
}

func translateNodeset(s *schema.Nodeset) *config.Nodeset {
	return &config.Nodeset{Name: s.Name, Nodes: s.Nodes}
}

// translateField converts a field block. Its remaining attributes become the
// unevaluated operator arguments.
func translateField(s *schema.Field) (*config.FieldDefinition, error) {
	args, err := extractBodyAttributes(s.Body)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", s.Name, err)
	}
	return &config.FieldDefinition{
		Name:      s.Name,
		Type:      s.Type,
		Arguments: args,
		DefRange:  s.DefRange,
	}, nil
}

// extractBodyAttributes converts a block body into a map of expressions.
// Nested blocks are rejected.
func extractBodyAttributes(body hcl.Body) (map[string]hcl.Expression, error) {
	if body == nil {
		return nil, nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	exprMap := make(map[string]hcl.Expression, len(attrs))
	for name, attr := range attrs {
		exprMap[name] = attr.Expr
	}
	return exprMap, nil
}

// isExprDefined checks if an HCL expression was actually present in the
// source. The decoder populates omitted optional attributes with zero-width
// expressions, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}
