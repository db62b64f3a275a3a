package components

import (
	"encoding/json"
)

// JSON marshals v for use in attributes such as hx-headers and hx-vals,
// returning "{}" on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
