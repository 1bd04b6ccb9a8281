package fieldref

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/hashicorp/go-multierror"
)

// Ref names a field, or one component of it.
type Ref struct {
	Name      string
	Component int // -1 refers to the whole field.
}

// Whole returns a reference to every component of the named field.
func Whole(name string) Ref {
	return Ref{Name: name, Component: -1}
}

// Component returns a reference to the 0-based component of the named field.
func Component(name string, component int) Ref {
	return Ref{Name: name, Component: component}
}

// HasComponent returns true if the reference selects a single component.
func (r Ref) HasComponent() bool {
	return r.Component != -1
}

// String serializes the reference into its canonical form.
func (r Ref) String() string {
	if !r.HasComponent() {
		return r.Name
	}
	return fmt.Sprintf("%s[%d]", r.Name, r.Component)
}

var refRegex = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)(?:\[(\d+)\])?$`)

// isValidName rejects names that are syntactically valid but confusing.
func isValidName(name string) bool {
	return name != "." && name != ".." && name != "-"
}

// Parse creates a Ref from its canonical string representation.
func Parse(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("field reference cannot be empty")
	}
	matches := refRegex.FindStringSubmatch(raw)
	if matches == nil {
		return Ref{}, fmt.Errorf("invalid field reference format: %q", raw)
	}
	name := matches[1]
	if !isValidName(name) {
		return Ref{}, fmt.Errorf("invalid field name: %q", name)
	}
	ref := Whole(name)
	if matches[2] != "" {
		index, err := strconv.Atoi(matches[2])
		if err != nil {
			return Ref{}, fmt.Errorf("invalid component index in %q: %w", raw, err)
		}
		ref.Component = index
	}
	return ref, nil
}

// ParseAll parses every raw reference, reporting all malformed ones at once.
func ParseAll(raws []string) ([]Ref, error) {
	var errs *multierror.Error
	refs := make([]Ref, 0, len(raws))
	for _, raw := range raws {
		ref, err := Parse(raw)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		refs = append(refs, ref)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return refs, nil
}
