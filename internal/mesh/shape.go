package mesh

import (
	"fmt"
	"strings"
)

// Shape is a tensor-product linear Lagrange element shape.
type Shape struct {
	dimension int
}

var (
	// ShapeLine is the 2-node line.
	ShapeLine = Shape{dimension: 1}
	// ShapeSquare is the 4-node square.
	ShapeSquare = Shape{dimension: 2}
	// ShapeCube is the 8-node cube.
	ShapeCube = Shape{dimension: 3}
)

var shapeNames = map[string]Shape{
	"line":   ShapeLine,
	"square": ShapeSquare,
	"cube":   ShapeCube,
}

// ParseShape returns the shape with the given name: "line", "square" or "cube".
func ParseShape(name string) (Shape, error) {
	shape, ok := shapeNames[strings.ToLower(name)]
	if !ok {
		return Shape{}, fmt.Errorf("%w: unknown element shape %q", ErrArgument, name)
	}
	return shape, nil
}

// Dimension returns the number of xi coordinates of the shape.
func (s Shape) Dimension() int {
	return s.dimension
}

// NodeCount returns the number of local nodes, 2^dimension.
func (s Shape) NodeCount() int {
	return 1 << s.dimension
}

// String returns the shape name.
func (s Shape) String() string {
	switch s.dimension {
	case 1:
		return "line"
	case 2:
		return "square"
	case 3:
		return "cube"
	}
	return "invalid"
}

// IsValid reports whether s is one of the supported shapes.
func (s Shape) IsValid() bool {
	return s.dimension >= 1 && s.dimension <= 3
}

// Basis writes the value of every local basis function at xi into weights.
// Local node n has coordinate bit k of n set when it sits at xi[k] = 1.
func (s Shape) Basis(xi, weights []float64) {
	s.BasisDerivative(xi, nil, weights)
}

// BasisDerivative writes the derivative of every local basis function at xi
// with respect to the xi directions listed in dirs into out. An empty dirs
// gives the basis values. Any repeated direction gives zero because the basis
// is linear in each direction.
func (s Shape) BasisDerivative(xi []float64, dirs []int, out []float64) {
	var differentiated [3]int
	for _, d := range dirs {
		differentiated[d]++
	}
	for n, end := 0, s.NodeCount(); n < end; n++ {
		value := 1.0
		for k := 0; k < s.dimension; k++ {
			atOne := n&(1<<k) != 0
			switch differentiated[k] {
			case 0:
				if atOne {
					value *= xi[k]
				} else {
					value *= 1.0 - xi[k]
				}
			case 1:
				if !atOne {
					value = -value
				}
			default:
				value = 0
			}
		}
		out[n] = value
	}
}
