package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// encodeColumn serialises one column's values to JSON TEXT. Floats are
// stored as shortest round-trip strings because JSON has no NaN; every
// other kind stores its natural JSON array.
func encodeColumn(c *table.Column) (string, error) {
	var payload any
	switch c.Kind {
	case table.Float:
		strs := make([]string, len(c.Floats))
		for i, v := range c.Floats {
			strs[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		payload = strs
	case table.Int:
		payload = c.Ints
	case table.String:
		payload = c.Strings
	case table.Bool:
		payload = c.Bools
	default:
		return "", fmt.Errorf("column %q: unknown kind %v", c.Name, c.Kind)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("column %q: %w", c.Name, err)
	}
	return string(data), nil
}

// decodeColumn parses a stored column back into a table column.
func decodeColumn(name, kind, data string, nrows int) (*table.Column, error) {
	c := &table.Column{Name: name}
	switch kind {
	case table.Float.String():
		c.Kind = table.Float
		var strs []string
		if err := json.Unmarshal([]byte(data), &strs); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		c.Floats = make([]float64, len(strs))
		for i, s := range strs {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
			}
			c.Floats[i] = v
		}
	case table.Int.String():
		c.Kind = table.Int
		if err := json.Unmarshal([]byte(data), &c.Ints); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
	case table.String.String():
		c.Kind = table.String
		if err := json.Unmarshal([]byte(data), &c.Strings); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
	case table.Bool.String():
		c.Kind = table.Bool
		if err := json.Unmarshal([]byte(data), &c.Bools); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("column %q: unknown kind %q", name, kind)
	}
	if got := columnLen(c); got != nrows {
		return nil, fmt.Errorf("column %q has %d rows, dataset says %d", name, got, nrows)
	}
	return c, nil
}

func columnLen(c *table.Column) int {
	switch c.Kind {
	case table.Float:
		return len(c.Floats)
	case table.Int:
		return len(c.Ints)
	case table.String:
		return len(c.Strings)
	case table.Bool:
		return len(c.Bools)
	}
	return 0
}
