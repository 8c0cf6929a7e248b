package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// OptionValues maps an option name (e.g. "size") to the values a product offers.
// Stored as a JSON object.
type OptionValues map[string][]string

func (o *OptionValues) Scan(src any) error {
	if src == nil {
		*o = OptionValues{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("OptionValues: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*o = OptionValues{}
		return nil
	}

	parsed := OptionValues{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("OptionValues: decode: %w", err)
	}
	*o = parsed
	return nil
}

func (o OptionValues) Value() (driver.Value, error) {
	if o == nil {
		return "{}", nil
	}
	encoded, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// Allows reports whether value is one of the values offered for name.
func (o OptionValues) Allows(name, value string) bool {
	return slices.Contains(o[name], value)
}

// Names returns the option names in sorted order.
func (o OptionValues) Names() []string {
	return slices.Sorted(maps.Keys(o))
}
