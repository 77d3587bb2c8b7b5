package permute

import (
	"iter"
	"slices"
)

// Axis is a named, ordered set of legal values for one encoder option.
type Axis struct {
	Name   string
	Values []string
}

// NewAxis returns an axis holding a private copy of values.
func NewAxis(name string, values ...string) Axis {
	return Axis{Name: name, Values: slices.Clone(values)}
}

// Len returns the number of values on the axis.
func (a Axis) Len() int {
	return len(a.Values)
}

// Tuple is one element of the cartesian product, addressable by axis name.
type Tuple struct {
	axes   []Axis
	values []string
}

// Get returns the value chosen for the named axis, or "" when the tuple has
// no such axis.
func (t Tuple) Get(name string) string {
	for i, a := range t.axes {
		if a.Name == name {
			return t.values[i]
		}
	}
	return ""
}

// Values returns the chosen values in axis order.
func (t Tuple) Values() []string {
	return slices.Clone(t.values)
}

// Count returns the size of the product of axes.
func Count(axes []Axis) int {
	if len(axes) == 0 {
		return 0
	}
	n := 1
	for _, a := range axes {
		n *= a.Len()
	}
	return n
}

// Product lazily yields every combination of axes. The last axis varies
// fastest. The sequence is finite and can be ranged over any number of times;
// each pass yields the same tuples in the same order. An empty axis list or
// any empty axis yields nothing.
func Product(axes []Axis) iter.Seq[Tuple] {
	return func(yield func(Tuple) bool) {
		if Count(axes) == 0 {
			return
		}

		idx := make([]int, len(axes))
		for {
			values := make([]string, len(axes))
			for i, a := range axes {
				values[i] = a.Values[idx[i]]
			}
			if !yield(Tuple{axes: axes, values: values}) {
				return
			}

			// odometer step
			i := len(axes) - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < axes[i].Len() {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}
