package field

import (
	"fmt"
	"strconv"

	"github.com/vk/fieldengine/internal/mesh"
)

type timeValueOperator struct {
	baseOperator
}

func (timeValueOperator) kind() Kind { return KindTimeValue }

func (timeValueOperator) TypeName() string { return KindTimeValue.String() }

func (timeValueOperator) Evaluate(c *Cache, f *Field, vc ValueCache) error {
	vc.(*RealValueCache).Values[0] = c.location.time
	return nil
}

// EvaluateDerivative is zero: time varies with neither xi nor parameters.
func (timeValueOperator) EvaluateDerivative(c *Cache, f *Field, dvc *DerivativeValueCache, d *Derivative) error {
	clear(dvc.Values)
	return nil
}

func (timeValueOperator) IsDefinedAtLocation(*Cache, *Field) bool { return true }

func (timeValueOperator) CommandString(*Field) string { return "" }

// CreateTimeValue creates a scalar field giving the time of the location.
func (m *Module) CreateTimeValue(name string) (*Field, error) {
	return m.addField(name, 1, nil, nil, timeValueOperator{})
}

type stringConstantOperator struct {
	baseOperator
	value string
}

func (op *stringConstantOperator) kind() Kind { return KindStringConstant }

func (op *stringConstantOperator) TypeName() string { return KindStringConstant.String() }

func (op *stringConstantOperator) ValueType() ValueType { return ValueTypeString }

func (op *stringConstantOperator) Evaluate(c *Cache, f *Field, vc ValueCache) error {
	vc.(*StringValueCache).Value = op.value
	return nil
}

func (op *stringConstantOperator) IsDefinedAtLocation(*Cache, *Field) bool { return true }

func (op *stringConstantOperator) Assign(c *Cache, f *Field, vc ValueCache) AssignResult {
	if !c.assignInCacheOnly {
		if value := vc.(*StringValueCache).Value; value != op.value {
			op.value = value
			f.module.setChanged(f, ChangeResult)
		}
	}
	return AssignAll
}

func (op *stringConstantOperator) CommandString(*Field) string {
	return strconv.Quote(op.value)
}

// CreateStringConstant creates a field with a constant string value.
func (m *Module) CreateStringConstant(name, value string) (*Field, error) {
	return m.addField(name, 1, nil, nil, &stringConstantOperator{value: value})
}

// storedMeshLocationOperator holds an element and xi per node, in elements of
// one host mesh.
type storedMeshLocationOperator struct {
	baseOperator
	storedData
	hostMesh *mesh.Mesh
}

func (op *storedMeshLocationOperator) kind() Kind { return KindStoredMeshLocation }

func (op *storedMeshLocationOperator) TypeName() string { return KindStoredMeshLocation.String() }

func (op *storedMeshLocationOperator) ValueType() ValueType { return ValueTypeMeshLocation }

func (op *storedMeshLocationOperator) Evaluate(c *Cache, f *Field, vc ValueCache) error {
	if c.location.kind != LocationNode {
		return fmt.Errorf("%w: stored mesh location at %s location", ErrNotDefined, c.location.kind)
	}
	stored, ok := f.module.region.Store().MeshLocation(op.storeName, c.location.node)
	if !ok {
		return fmt.Errorf("%w: no mesh location at node %d", ErrNotDefined, c.location.node.ID())
	}
	mvc := vc.(*MeshLocationValueCache)
	mvc.Element = stored.Element
	mvc.Xi = append(mvc.Xi[:0], stored.Xi...)
	return nil
}

func (op *storedMeshLocationOperator) IsDefinedAtLocation(c *Cache, f *Field) bool {
	if c.location.kind != LocationNode {
		return false
	}
	_, ok := f.module.region.Store().MeshLocation(op.storeName, c.location.node)
	return ok
}

func (op *storedMeshLocationOperator) Assign(c *Cache, f *Field, vc ValueCache) AssignResult {
	mvc := vc.(*MeshLocationValueCache)
	if c.location.kind != LocationNode || mvc.Element.Mesh() != op.hostMesh {
		return AssignFail
	}
	if c.assignInCacheOnly {
		return AssignAll
	}
	if err := f.module.region.Store().SetMeshLocation(op.storeName, c.location.node, mvc.Element, mvc.Xi); err != nil {
		f.module.logger.Debug("Mesh location assignment failed.", "field", f.name, "error", err)
		return AssignFail
	}
	f.module.setChanged(f, ChangeResult)
	return AssignAll
}

func (op *storedMeshLocationOperator) CommandString(*Field) string {
	return fmt.Sprintf("mesh %dd", op.hostMesh.Dimension())
}

// HostMesh returns the mesh of a stored mesh location field, otherwise nil.
func (f *Field) HostMesh() *mesh.Mesh {
	if op, ok := f.op.(*storedMeshLocationOperator); ok {
		return op.hostMesh
	}
	return nil
}

// CreateStoredMeshLocation creates a field storing a location in hostMesh
// per node.
func (m *Module) CreateStoredMeshLocation(name string, hostMesh *mesh.Mesh) (*Field, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: stored_mesh_location fields need a name", ErrArgument)
	}
	if hostMesh == nil || m.region.Mesh(hostMesh.Dimension()) != hostMesh {
		return nil, fmt.Errorf("%w: host mesh is not in the module region", ErrArgument)
	}
	if _, exists := m.fields[name]; exists {
		return nil, fmt.Errorf("%w: field %q already exists", ErrArgument, name)
	}
	if err := m.region.Store().DefineField(name, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArgument, err)
	}
	return m.addField(name, 1, nil, nil, &storedMeshLocationOperator{storedData: storedData{storeName: name}, hostMesh: hostMesh})
}
