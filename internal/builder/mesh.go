package builder

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/ctxlog"
	"github.com/vk/fieldengine/internal/mesh"
)

// buildRegion creates the region holding the model's nodes, elements and
// nodesets. Every inconsistency is reported, not only the first.
func buildRegion(ctx context.Context, model *config.Model) (*mesh.Region, error) {
	logger := ctxlog.FromContext(ctx)
	region := mesh.NewRegion(model.Region)
	var errs *multierror.Error

	for _, n := range model.Nodes {
		if _, err := region.CreateNode(n.ID); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("node %d: %w", n.ID, err))
		}
	}

	for _, e := range model.Elements {
		shape, err := mesh.ParseShape(e.Shape)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("element %d: %w", e.ID, err))
			continue
		}
		if _, err := region.CreateElement(e.ID, shape, e.Nodes); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("element %d: %w", e.ID, err))
		}
	}

	for _, ns := range model.Nodesets {
		group, err := region.CreateNodesetGroup(ns.Name)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("nodeset %q: %w", ns.Name, err))
			continue
		}
		for _, id := range ns.Nodes {
			node := region.FindNodeByID(id)
			if node == nil {
				errs = multierror.Append(errs, fmt.Errorf("nodeset %q: unknown node %d", ns.Name, id))
				continue
			}
			if err := group.AddNode(node); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("nodeset %q: %w", ns.Name, err))
			}
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	logger.Debug("Mesh created.",
		"nodes", region.Nodes().Size(),
		"elements", len(model.Elements),
		"nodesets", len(model.Nodesets),
	)
	return region, nil
}
