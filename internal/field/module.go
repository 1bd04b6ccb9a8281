package field

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/vk/fieldengine/internal/ctxlog"
	"github.com/vk/fieldengine/internal/mesh"
)

// ChangeFlag is a set of changes made to a field.
type ChangeFlag uint8

const (
	ChangeAdd ChangeFlag = 1 << iota
	ChangeRemove
	ChangeDefinition
	ChangeResult
)

func (cf ChangeFlag) String() string {
	if cf == 0 {
		return "none"
	}
	var names []string
	for _, n := range []struct {
		flag ChangeFlag
		name string
	}{{ChangeAdd, "add"}, {ChangeRemove, "remove"}, {ChangeDefinition, "definition"}, {ChangeResult, "result"}} {
		if cf&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ChangeEvent lists the fields changed since the last notification.
type ChangeEvent struct {
	fields []*Field
	flags  map[*Field]ChangeFlag
}

// Fields returns the changed fields in the order they first changed.
func (e ChangeEvent) Fields() []*Field { return slices.Clone(e.fields) }

// Flags returns the changes made to f, or 0.
func (e ChangeEvent) Flags(f *Field) ChangeFlag { return e.flags[f] }

// Summary returns the union of all change flags.
func (e ChangeEvent) Summary() ChangeFlag {
	var all ChangeFlag
	for _, flag := range e.flags {
		all |= flag
	}
	return all
}

// Module owns the fields defined over one region.
type Module struct {
	region               *mesh.Region
	logger               *slog.Logger
	fields               map[string]*Field
	ordered              []*Field
	nextCacheIndex       int
	nextTempNumber       int
	changeLevel          int
	changed              []*Field
	callbacks            map[int]func(ChangeEvent)
	nextCallbackID       int
	meshDerivatives      map[meshDerivativeKey]*Derivative
	parameterDerivatives map[*Field]*Derivative
	nextDerivativeIndex  int
}

// NewModule creates an empty field module for region. The logger is taken
// from ctx.
func NewModule(ctx context.Context, region *mesh.Region) (*Module, error) {
	if region == nil {
		return nil, fmt.Errorf("%w: nil region", ErrArgument)
	}
	return &Module{
		region:               region,
		logger:               ctxlog.FromContext(ctx).With("region", region.Name()),
		fields:               make(map[string]*Field),
		callbacks:            make(map[int]func(ChangeEvent)),
		meshDerivatives:      make(map[meshDerivativeKey]*Derivative),
		parameterDerivatives: make(map[*Field]*Derivative),
	}, nil
}

func (m *Module) Region() *mesh.Region { return m.region }

// CreateCache returns a new cache with a time-only location at time 0.
func (m *Module) CreateCache() *Cache {
	return newCache(m)
}

// FindFieldByName returns the field with the name or nil.
func (m *Module) FindFieldByName(name string) *Field {
	return m.fields[name]
}

// Fields returns every field in creation order.
func (m *Module) Fields() []*Field {
	return slices.Clone(m.ordered)
}

// BeginChange defers change notifications until the matching EndChange.
// Calls nest.
func (m *Module) BeginChange() {
	m.changeLevel++
}

// EndChange closes a BeginChange and notifies observers once the outermost
// one ends.
func (m *Module) EndChange() error {
	if m.changeLevel == 0 {
		return fmt.Errorf("%w: EndChange without BeginChange", ErrArgument)
	}
	m.changeLevel--
	if m.changeLevel == 0 {
		m.flush()
	}
	return nil
}

// AddCallback registers an observer of field changes. The returned function
// removes it.
func (m *Module) AddCallback(fn func(ChangeEvent)) (remove func()) {
	id := m.nextCallbackID
	m.nextCallbackID++
	m.callbacks[id] = fn
	return func() { delete(m.callbacks, id) }
}

// List writes the name, component count and command of every field.
func (m *Module) List(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCOMPONENTS\tCOMMAND")
	for _, f := range m.ordered {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", f.name, f.componentCount, f.CommandString())
	}
	return tw.Flush()
}

// CreateFieldCustom creates a field computed by a user-supplied operator.
// Sources are referenced by the new field.
func (m *Module) CreateFieldCustom(name string, components int, sources []*Field, values []float64, op Operator) (*Field, error) {
	if op == nil {
		return nil, fmt.Errorf("%w: nil operator", ErrArgument)
	}
	for i, src := range sources {
		if src == nil || src.module != m || src.removed {
			return nil, fmt.Errorf("%w: source %d is not a field of this module", ErrArgument, i)
		}
	}
	return m.addField(name, components, sources, values, op)
}

func (m *Module) addField(name string, components int, sources []*Field, values []float64, op Operator) (*Field, error) {
	if name == "" {
		name = m.temporaryName()
	} else if _, exists := m.fields[name]; exists {
		return nil, fmt.Errorf("%w: field %q already exists", ErrArgument, name)
	}
	if components < 1 {
		return nil, fmt.Errorf("%w: field %q needs at least one component", ErrArgument, name)
	}
	f := &Field{
		module:         m,
		name:           name,
		componentCount: components,
		sourceFields:   slices.Clone(sources),
		sourceValues:   slices.Clone(values),
		op:             op,
		cacheIndex:     m.nextCacheIndex,
		accessCount:    1,
	}
	if !f.IsNumerical() {
		f.coordinateSystem = NotApplicable
	}
	m.nextCacheIndex++
	for _, src := range f.sourceFields {
		src.Access()
	}
	m.fields[name] = f
	m.ordered = append(m.ordered, f)
	m.logger.Debug("Field created.", "field", name, "type", op.TypeName(), "components", components)
	m.setChanged(f, ChangeAdd)
	return f, nil
}

func (m *Module) temporaryName() string {
	for {
		m.nextTempNumber++
		name := fmt.Sprintf("temp%d", m.nextTempNumber)
		if _, exists := m.fields[name]; !exists {
			return name
		}
	}
}

func (m *Module) renameField(f *Field, name string) error {
	if f.removed {
		return fmt.Errorf("%w: field %q has been destroyed", ErrArgument, f.name)
	}
	if name == f.name {
		return nil
	}
	if name == "" {
		return fmt.Errorf("%w: empty field name", ErrArgument)
	}
	if _, exists := m.fields[name]; exists {
		return fmt.Errorf("%w: field %q already exists", ErrArgument, name)
	}
	if owner, ok := f.op.(storageOwner); ok {
		if err := owner.renameStorage(m.region.Store(), name); err != nil {
			return fmt.Errorf("%w: renaming %q: %w", ErrArgument, f.name, err)
		}
	}
	delete(m.fields, f.name)
	f.name = name
	m.fields[name] = f
	m.setChanged(f, ChangeDefinition)
	return nil
}

func (m *Module) removeField(f *Field) {
	f.removed = true
	delete(m.fields, f.name)
	m.ordered = slices.DeleteFunc(m.ordered, func(g *Field) bool { return g == f })
	delete(m.parameterDerivatives, f)
	if owner, ok := f.op.(storageOwner); ok {
		owner.dropStorage(m.region.Store())
	}
	m.logger.Debug("Field destroyed.", "field", f.name)
	m.setChanged(f, ChangeRemove)
	for _, src := range f.sourceFields {
		_ = src.Release()
	}
}

// setChanged records a change to f. Definition and result changes also mark
// the region modified so every cache recomputes.
func (m *Module) setChanged(f *Field, flag ChangeFlag) {
	if f.changeFlags == 0 {
		m.changed = append(m.changed, f)
	}
	f.changeFlags |= flag
	if flag&(ChangeDefinition|ChangeResult) != 0 {
		m.region.MarkModified()
	}
	if m.changeLevel == 0 {
		m.flush()
	}
}

func (m *Module) flush() {
	if len(m.changed) == 0 {
		return
	}
	var altered []*Field
	for _, f := range m.changed {
		if f.changeFlags&(ChangeDefinition|ChangeResult) != 0 {
			altered = append(altered, f)
		}
	}
	for _, g := range m.ordered {
		if g.changeFlags != 0 {
			continue
		}
		for _, f := range altered {
			if g.DependsOn(f) {
				g.changeFlags = ChangeResult
				m.changed = append(m.changed, g)
				break
			}
		}
	}
	event := ChangeEvent{fields: m.changed, flags: make(map[*Field]ChangeFlag, len(m.changed))}
	for _, f := range m.changed {
		event.flags[f] = f.changeFlags
		f.changeFlags = 0
	}
	m.changed = nil
	m.logger.Debug("Field changes flushed.", "fields", len(event.fields), "summary", event.Summary().String())
	ids := make([]int, 0, len(m.callbacks))
	for id := range m.callbacks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if fn, ok := m.callbacks[id]; ok {
			fn(event)
		}
	}
}

// invalidateDependents marks stale the value caches in c of every field
// computed from f.
func (m *Module) invalidateDependents(c *Cache, f *Field) {
	for _, g := range m.ordered {
		if g == f || !g.DependsOn(f) {
			continue
		}
		if vc := c.existingValueCache(g); vc != nil {
			vc.reset()
		}
	}
}

// checkSource validates a source field passed to a constructor.
func (m *Module) checkSource(src *Field, what string) error {
	if src == nil {
		return fmt.Errorf("%w: missing %s field", ErrArgument, what)
	}
	if src.module != m || src.removed {
		return fmt.Errorf("%w: %s field %q is not in this module", ErrArgument, what, src.name)
	}
	return nil
}
