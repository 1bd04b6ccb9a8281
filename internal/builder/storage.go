package builder

import (
	"context"
	"cmp"
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/vk/fieldengine/internal/config"
	"github.com/vk/fieldengine/internal/ctxlog"
	"github.com/vk/fieldengine/internal/field"
)

// assignStoredValues assigns the values and mesh locations given in node
// blocks. Listeners see a single change notification for the whole batch.
func assignStoredValues(ctx context.Context, module *field.Module, model *config.Model) (err error) {
	logger := ctxlog.FromContext(ctx)
	region := module.Region()
	c := module.CreateCache()
	defer c.Release()

	module.BeginChange()
	defer func() {
		if endErr := module.EndChange(); err == nil {
			err = endErr
		}
	}()

	var errs *multierror.Error
	assigned := 0
	for _, n := range model.Nodes {
		if len(n.Values) == 0 && len(n.MeshLocations) == 0 {
			continue
		}
		node := region.FindNodeByID(n.ID)
		if err := c.SetNode(node, nil); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("node %d: %w", n.ID, err))
			continue
		}

		for _, name := range sortedKeys(n.Values) {
			f, err := storedField(module, name, field.KindNodeValue)
			if err == nil {
				_, err = f.Assign(c, n.Values[name])
			}
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("node %d values: %w", n.ID, err))
				continue
			}
			assigned++
		}

		for _, name := range sortedKeys(n.MeshLocations) {
			loc := n.MeshLocations[name]
			f, err := storedField(module, name, field.KindStoredMeshLocation)
			if err == nil {
				err = assignMeshLocation(c, f, loc)
			}
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("node %d mesh_locations: %w", n.ID, err))
				continue
			}
			assigned++
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	logger.Debug("Stored values assigned.", "assignments", assigned)
	return nil
}

// storedField finds the field named in a node block and checks that it
// stores values of the expected kind.
func storedField(module *field.Module, name string, kind field.Kind) (*field.Field, error) {
	f := module.FindFieldByName(name)
	if f == nil {
		return nil, fmt.Errorf("unknown field %q", name)
	}
	if f.Kind() != kind {
		return nil, fmt.Errorf("field %q is a %s field, not %s", name, f.Kind(), kind)
	}
	return f, nil
}

func assignMeshLocation(c *field.Cache, f *field.Field, loc config.MeshLocation) error {
	element := f.HostMesh().FindElementByID(loc.Element)
	if element == nil {
		return fmt.Errorf("field %q: no element %d in %d-D mesh", f.Name(), loc.Element, f.HostMesh().Dimension())
	}
	_, err := f.AssignMeshLocation(c, element, loc.Xi)
	if err != nil {
		return fmt.Errorf("field %q: %w", f.Name(), err)
	}
	return nil
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
