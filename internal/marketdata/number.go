package marketdata

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// number decodes a JSON number or a numeric string. Values that are
// neither set invalid instead of failing the whole response.
type number struct {
	value   float64
	present bool
	invalid bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	n.present = true
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			n.invalid = true
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			n.present = false
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			n.invalid = true
			return nil
		}
		n.value = v
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		n.invalid = true
		return nil
	}
	n.value = v
	return nil
}

func (n number) Float() float64 {
	if n.invalid {
		return 0
	}
	return n.value
}
