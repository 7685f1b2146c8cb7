package lininvbox

import (
	"sort"
	"strconv"
)

// Label is a single observation label. A label is either a category name
// (station code, network, ...) or a numeric value (distance, depth, ...).
// Numeric labels are required wherever ordering and arithmetic matter, such
// as interpolation nodes.
type Label struct {
	text    string
	num     float64
	numeric bool
}

// Name returns a text label.
func Name(s string) Label {
	return Label{text: s}
}

// Value returns a numeric label.
func Value(v float64) Label {
	return Label{num: v, numeric: true}
}

// Names converts a slice of strings to text labels.
func Names(ss ...string) []Label {
	labels := make([]Label, len(ss))
	for i, s := range ss {
		labels[i] = Name(s)
	}
	return labels
}

// Values converts a slice of floats to numeric labels.
func Values(vs ...float64) []Label {
	labels := make([]Label, len(vs))
	for i, v := range vs {
		labels[i] = Value(v)
	}
	return labels
}

// IsNumeric reports whether the label holds a numeric value.
func (l Label) IsNumeric() bool {
	return l.numeric
}

// Float returns the numeric value of the label. It is only meaningful when
// IsNumeric reports true.
func (l Label) Float() float64 {
	return l.num
}

func (l Label) String() string {
	if l.numeric {
		return strconv.FormatFloat(l.num, 'g', -1, 64)
	}
	return l.text
}

// Less orders labels: numeric labels by value, text labels lexicographically,
// numeric before text when kinds are mixed.
func (l Label) Less(o Label) bool {
	if l.numeric != o.numeric {
		return l.numeric
	}
	if l.numeric {
		return l.num < o.num
	}
	return l.text < o.text
}

// uniqueSorted returns the sorted distinct values of labels.
func uniqueSorted(labels []Label) []Label {
	out := make([]Label, len(labels))
	copy(out, labels)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	distinct := out[:0]
	for i, l := range out {
		if i == 0 || out[i-1] != l {
			distinct = append(distinct, l)
		}
	}
	return distinct
}

// labelStrings renders labels for error messages and diagnostics.
func labelStrings(labels []Label) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.String()
	}
	return out
}
