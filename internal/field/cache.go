package field

import (
	"fmt"
	"math"
	"slices"

	"github.com/vk/fieldengine/internal/mesh"
)

// Cache holds one active location and the value caches of every field
// evaluated through it. A Cache is owned by one call chain at a time and is
// not safe for concurrent use.
type Cache struct {
	module            *Module
	location          Location
	locationCounter   int
	counterLimit      int
	modifyCounter     int
	valueCaches       []ValueCache
	assignInCacheOnly bool
	shared            *Cache
	children          map[any]*Cache
	indexedBasis      map[int]*basisState
	released          bool
}

func newCache(m *Module) *Cache {
	return &Cache{
		module:        m,
		location:      Location{kind: LocationTime},
		counterLimit:  math.MaxInt32,
		modifyCounter: m.region.ModifyCounter(),
	}
}

// Module returns the module the cache evaluates fields of.
func (c *Cache) Module() *Module { return c.module }

// Location returns the active location.
func (c *Cache) Location() *Location { return &c.location }

// LocationCounter returns the generation stamp of the active location.
func (c *Cache) LocationCounter() int { return c.locationCounter }

// AssignInCacheOnly reports whether assignments stop at this cache's value
// caches instead of writing through to stored values.
func (c *Cache) AssignInCacheOnly() bool { return c.assignInCacheOnly }

// SetAssignInCacheOnly sets whether assignments stop at this cache. The
// working and child caches follow it when they are next handed out.
func (c *Cache) SetAssignInCacheOnly(v bool) {
	c.assignInCacheOnly = v
}

// SetTime changes the time of the active location. Setting the current time
// keeps every value cache valid.
func (c *Cache) SetTime(t float64) {
	if c.location.time == t {
		return
	}
	c.location.time = t
	c.locationChanged()
}

// ClearLocation resets to a time-only location at time 0.
func (c *Cache) ClearLocation() {
	c.setKind(LocationTime)
	c.location.time = 0
	c.locationChanged()
}

// SetElement sets an element location at the xi origin.
func (c *Cache) SetElement(element *mesh.Element) error {
	if element == nil {
		return fmt.Errorf("%w: nil element", ErrArgument)
	}
	return c.SetMeshLocation(element, make([]float64, element.Dimension()), nil)
}

// SetMeshLocation sets an element location at chart coordinates xi, with an
// optional top-level element the element is a face or line of.
func (c *Cache) SetMeshLocation(element *mesh.Element, xi []float64, topLevel *mesh.Element) error {
	if err := c.checkElement(element, xi, topLevel); err != nil {
		return err
	}
	c.setElementXi(element, xi, topLevel, newBasisState(element.Shape(), xi))
	return nil
}

// SetIndexedMeshLocation is SetMeshLocation for loops that revisit the same
// sequence of xi locations. Basis values computed for an index are reused
// while the shape and xi at that index repeat.
func (c *Cache) SetIndexedMeshLocation(index int, element *mesh.Element, xi []float64, topLevel *mesh.Element) error {
	if index < 0 {
		return fmt.Errorf("%w: negative location index %d", ErrArgument, index)
	}
	if err := c.checkElement(element, xi, topLevel); err != nil {
		return err
	}
	if c.indexedBasis == nil {
		c.indexedBasis = make(map[int]*basisState)
	}
	state := c.indexedBasis[index]
	if state == nil || !state.matches(element.Shape(), xi) {
		state = newBasisState(element.Shape(), xi)
		c.indexedBasis[index] = state
	}
	c.setElementXi(element, xi, topLevel, state)
	return nil
}

// SetNode sets a node location with an optional host element.
func (c *Cache) SetNode(node *mesh.Node, host *mesh.Element) error {
	if node == nil {
		return fmt.Errorf("%w: nil node", ErrArgument)
	}
	if !c.module.region.Nodes().Contains(node) {
		return fmt.Errorf("%w: node %d is not in the module region", ErrArgument, node.ID())
	}
	if host != nil && !c.ownsElement(host) {
		return fmt.Errorf("%w: host element %d is not in the module region", ErrArgument, host.ID())
	}
	c.setKind(LocationNode)
	c.location.node = node
	c.location.element = host
	c.locationChanged()
	return nil
}

// SetFieldReal substitutes values for a real field. Evaluating that field
// returns the values, and fields depending on it compute from them.
func (c *Cache) SetFieldReal(f *Field, values []float64) error {
	if f == nil || f.module != c.module {
		return fmt.Errorf("%w: field is not from this module", ErrArgument)
	}
	if f.ValueType() != ValueTypeReal {
		return fmt.Errorf("%w: field %q is not real-valued", ErrArgument, f.name)
	}
	if len(values) != f.componentCount {
		return fmt.Errorf("%w: field %q has %d components, got %d values", ErrArgument, f.name, f.componentCount, len(values))
	}
	c.setKind(LocationFieldValues)
	c.location.field = f
	c.location.values = append(c.location.values[:0], values...)
	c.locationChanged()
	return nil
}

// WorkingCache returns the shared working cache, creating it on first use.
// It has the same time as c and is owned by c.
func (c *Cache) WorkingCache() *Cache {
	if c.shared == nil {
		c.shared = newCache(c.module)
	}
	c.shared.assignInCacheOnly = c.assignInCacheOnly
	c.shared.SetTime(c.location.time)
	return c.shared
}

// ChildCache returns the child cache for key, creating it on first use. It
// has the same time as c and is owned by c.
func (c *Cache) ChildCache(key any) *Cache {
	child := c.children[key]
	if child == nil {
		if c.children == nil {
			c.children = make(map[any]*Cache)
		}
		child = newCache(c.module)
		c.children[key] = child
	}
	child.assignInCacheOnly = c.assignInCacheOnly
	child.SetTime(c.location.time)
	return child
}

// Release drops every value cache and every child cache.
func (c *Cache) Release() {
	if c.released {
		return
	}
	for _, child := range c.children {
		child.Release()
	}
	if c.shared != nil {
		c.shared.Release()
	}
	c.children = nil
	c.shared = nil
	c.valueCaches = nil
	c.indexedBasis = nil
	c.released = true
}

func (c *Cache) checkElement(element *mesh.Element, xi []float64, topLevel *mesh.Element) error {
	if element == nil {
		return fmt.Errorf("%w: nil element", ErrArgument)
	}
	if !c.ownsElement(element) {
		return fmt.Errorf("%w: element %d is not in the module region", ErrArgument, element.ID())
	}
	if len(xi) != element.Dimension() {
		return fmt.Errorf("%w: element %d needs %d xi, got %d", ErrArgument, element.ID(), element.Dimension(), len(xi))
	}
	if topLevel != nil && !c.ownsElement(topLevel) {
		return fmt.Errorf("%w: top-level element %d is not in the module region", ErrArgument, topLevel.ID())
	}
	return nil
}

func (c *Cache) setKind(kind LocationKind) {
	time := c.location.time
	xi, values := c.location.xi[:0], c.location.values[:0]
	c.location = Location{kind: kind, time: time, xi: xi, values: values}
}

func (c *Cache) setElementXi(element *mesh.Element, xi []float64, topLevel *mesh.Element, basis *basisState) {
	c.setKind(LocationElementXi)
	c.location.element = element
	c.location.topLevelElement = topLevel
	c.location.xi = append(c.location.xi, xi...)
	c.location.basis = basis
	c.locationChanged()
}

func (c *Cache) ownsElement(e *mesh.Element) bool {
	return e.Mesh() == c.module.region.Mesh(e.Dimension())
}

// locationChanged is the single path that invalidates every value cache.
func (c *Cache) locationChanged() {
	if c.locationCounter >= c.counterLimit {
		c.locationCounter = 0
		for _, vc := range c.valueCaches {
			if vc != nil {
				vc.reset()
			}
		}
		return
	}
	c.locationCounter++
}

// syncRegion invalidates the cache if the region changed since last checked.
func (c *Cache) syncRegion() {
	if mc := c.module.region.ModifyCounter(); mc != c.modifyCounter {
		c.modifyCounter = mc
		c.locationChanged()
	}
}

func (c *Cache) valueCache(f *Field) ValueCache {
	if f.cacheIndex >= len(c.valueCaches) {
		c.valueCaches = slices.Grow(c.valueCaches, f.cacheIndex+1-len(c.valueCaches))
		c.valueCaches = c.valueCaches[:f.cacheIndex+1]
	}
	vc := c.valueCaches[f.cacheIndex]
	if vc == nil {
		switch f.ValueType() {
		case ValueTypeString:
			vc = &StringValueCache{evaluationStamp: evaluationStamp{evaluationCounter: invalidCounter}}
		case ValueTypeMeshLocation:
			vc = &MeshLocationValueCache{evaluationStamp: evaluationStamp{evaluationCounter: invalidCounter}}
		default:
			vc = newRealValueCache(f.componentCount)
		}
		c.valueCaches[f.cacheIndex] = vc
	}
	return vc
}

// existingValueCache returns f's value cache without creating one.
func (c *Cache) existingValueCache(f *Field) ValueCache {
	if f.cacheIndex < len(c.valueCaches) {
		return c.valueCaches[f.cacheIndex]
	}
	return nil
}

func (c *Cache) isValid(vc ValueCache) bool {
	return vc.EvaluationCounter() == c.locationCounter
}
