package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexFloat decodes a JSON number that vendors sometimes quote as a string
// ("42.5" vs 42.5). Empty or null values decode to zero.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal flex float: %w", err)
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse flex float %q: %w", s, err)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal flex float: %w", err)
	}
	*f = FlexFloat(v)
	return nil
}

// Float64 returns the plain float value.
func (f FlexFloat) Float64() float64 { return float64(f) }
