// Package flexnum normalizes numeric fields that upstream APIs encode either as
// JSON numbers or as decimal strings. Parsing never consults the process locale:
// the only accepted decimal separator is '.', and digit grouping is rejected.
package flexnum

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalid is returned for values that are not a plain decimal number.
var ErrInvalid = errors.New("invalid number")

// Parse converts a raw upstream value into a decimal.
// Accepted inputs: string, json.Number, float32/64, the integer kinds and decimal.Decimal.
func Parse(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case string:
		return ParseString(n)
	case json.Number:
		return ParseString(n.String())
	case decimal.Decimal:
		return n, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case nil:
		return decimal.Zero, errors.Wrap(ErrInvalid, "null value")
	default:
		return decimal.Zero, errors.Wrapf(ErrInvalid, "unsupported type %T", v)
	}
}

// ParseString parses s with '.' as the only decimal separator.
func ParseString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.Wrap(ErrInvalid, "empty string")
	}
	if strings.ContainsAny(s, ", _") {
		return decimal.Zero, errors.Wrapf(ErrInvalid, "%q", s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(ErrInvalid, "%q: %v", s, err)
	}
	return d, nil
}

// Int64 parses an integral value such as a millisecond timestamp.
func Int64(v any) (int64, error) {
	d, err := Parse(v)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, errors.Wrapf(ErrInvalid, "%s is not an integer", d.String())
	}
	return d.IntPart(), nil
}

// Value is a JSON field that accepts 123.45, "123.45" and null.
type Value struct {
	decimal.Decimal
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	raw := string(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = s
	} else if len(data) > 0 && (data[0] == '{' || data[0] == '[' || data[0] == 't' || data[0] == 'f') {
		return fmt.Errorf("flexnum: cannot decode %s into a number", raw)
	}

	d, err := ParseString(raw)
	if err != nil {
		return err
	}
	*v = Value{Decimal: d, Valid: true}
	return nil
}
