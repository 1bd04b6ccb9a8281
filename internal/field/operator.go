package field

import (
	"fmt"
	"strings"

	"github.com/vk/fieldengine/internal/mesh"
)

// Kind is the operator variant of a field.
type Kind int

const (
	KindCustom Kind = iota
	KindComposite
	KindIdentity
	KindComponent
	KindConcatenate
	KindConstant
	KindNodesetSum
	KindNodesetMean
	KindNodesetSumSquares
	KindNodesetMeanSquares
	KindNodesetMinimum
	KindNodesetMaximum
	KindNodeValue
	KindTimeValue
	KindStringConstant
	KindStoredMeshLocation
)

var kindNames = map[Kind]string{
	KindCustom:             "custom",
	KindComposite:          "composite",
	KindIdentity:           "identity",
	KindComponent:          "component",
	KindConcatenate:        "concatenate",
	KindConstant:           "constant",
	KindNodesetSum:         "nodeset_sum",
	KindNodesetMean:        "nodeset_mean",
	KindNodesetSumSquares:  "nodeset_sum_squares",
	KindNodesetMeanSquares: "nodeset_mean_squares",
	KindNodesetMinimum:     "nodeset_minimum",
	KindNodesetMaximum:     "nodeset_maximum",
	KindNodeValue:          "node_value",
	KindTimeValue:          "time_value",
	KindStringConstant:     "string_constant",
	KindStoredMeshLocation: "stored_mesh_location",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ValueType is the type of value a field produces.
type ValueType int

const (
	ValueTypeReal ValueType = iota
	ValueTypeString
	ValueTypeMeshLocation
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeString:
		return "string"
	case ValueTypeMeshLocation:
		return "mesh_location"
	default:
		return "real"
	}
}

// CoordinateSystem tags how the components of a numeric field are interpreted.
type CoordinateSystem int

const (
	RectangularCartesian CoordinateSystem = iota
	CylindricalPolar
	SphericalPolar
	NotApplicable
)

var coordinateSystemNames = []string{
	RectangularCartesian: "rectangular_cartesian",
	CylindricalPolar:     "cylindrical_polar",
	SphericalPolar:       "spherical_polar",
	NotApplicable:        "not_applicable",
}

func (cs CoordinateSystem) String() string {
	if int(cs) >= 0 && int(cs) < len(coordinateSystemNames) {
		return coordinateSystemNames[cs]
	}
	return fmt.Sprintf("CoordinateSystem(%d)", int(cs))
}

// ParseCoordinateSystem returns the coordinate system with the given name.
func ParseCoordinateSystem(name string) (CoordinateSystem, error) {
	for cs, n := range coordinateSystemNames {
		if strings.EqualFold(n, name) {
			return CoordinateSystem(cs), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown coordinate system %q", ErrArgument, name)
}

// Operator computes a field's values. Built-in operators cover the closed set
// of kinds; other implementations are accepted by Module.CreateFieldCustom.
//
// Operators must not change the location of the cache they are given. To
// evaluate sources elsewhere they use Cache.WorkingCache or a child cache.
type Operator interface {
	// TypeName is the command name of the operator.
	TypeName() string
	ValueType() ValueType
	// Evaluate fills vc, which has the concrete type matching ValueType.
	Evaluate(c *Cache, f *Field, vc ValueCache) error
	// EvaluateDerivative fills dvc, already sized for the location.
	EvaluateDerivative(c *Cache, f *Field, dvc *DerivativeValueCache, d *Derivative) error
	IsDefinedAtLocation(c *Cache, f *Field) bool
	// Assign pushes the values held in vc down to the field's sources.
	Assign(c *Cache, f *Field, vc ValueCache) AssignResult
	// CommandString returns the arguments that follow the type name.
	CommandString(f *Field) string
}

type kinded interface {
	kind() Kind
}

// storedData is embedded by operators keeping per-node data in the region
// store. The store entry follows the field name and lives as long as the
// field.
type storedData struct {
	storeName string
}

func (d *storedData) renameStorage(store *mesh.Store, name string) error {
	if err := store.RenameField(d.storeName, name); err != nil {
		return err
	}
	d.storeName = name
	return nil
}

func (d *storedData) dropStorage(store *mesh.Store) {
	store.RemoveField(d.storeName)
}

type storageOwner interface {
	renameStorage(store *mesh.Store, name string) error
	dropStorage(store *mesh.Store)
}

// baseOperator provides the defaults of operators that are not assignable
// and have no derivatives.
type baseOperator struct{}

func (baseOperator) ValueType() ValueType { return ValueTypeReal }

func (baseOperator) EvaluateDerivative(*Cache, *Field, *DerivativeValueCache, *Derivative) error {
	return fmt.Errorf("%w: derivative", ErrNotDefined)
}

func (baseOperator) Assign(*Cache, *Field, ValueCache) AssignResult {
	return AssignFail
}
