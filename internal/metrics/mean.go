package metrics

import (
	"encoding/json"
	"fmt"
)

// Mean is an average that may be undefined (taken over an empty set). An
// undefined Mean is distinct from a zero one and renders as "n/a" / JSON null.
type Mean struct {
	value   float64
	defined bool
}

// MeanOf returns sum/n, or an undefined Mean when n is zero.
func MeanOf(sum float64, n int) Mean {
	if n <= 0 {
		return Mean{}
	}
	return Mean{value: sum / float64(n), defined: true}
}

func (m Mean) Defined() bool { return m.defined }

// Value returns the mean and whether it is defined.
func (m Mean) Value() (float64, bool) { return m.value, m.defined }

// Ptr returns nil for an undefined mean.
func (m Mean) Ptr() *float64 {
	if !m.defined {
		return nil
	}
	v := m.value
	return &v
}

// Text formats a defined mean with layout and returns "n/a" otherwise.
func (m Mean) Text(layout string) string {
	if !m.defined {
		return "n/a"
	}
	return fmt.Sprintf(layout, m.value)
}

func (m Mean) String() string { return m.Text("%g") }

func (m Mean) MarshalJSON() ([]byte, error) {
	if !m.defined {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}
