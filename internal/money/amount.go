// Package money holds the canonical currency amount used for every price,
// cart total and order total the storefront handles.
package money

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a precision-safe currency value. The zero value is 0.
type Amount struct {
	d decimal.Decimal
}

// Zero returns an amount of 0.
func Zero() Amount {
	return Amount{}
}

// FromInt builds an amount from whole currency units.
func FromInt(n int64) Amount {
	return Amount{d: decimal.NewFromInt(n)}
}

// Bounds on what counts as a currency value. Anything outside them is
// malformed and becomes 0; rescaling such a value would not terminate.
const (
	maxExponent = 30
	maxDigits   = 38
)

// FromDecimal wraps an existing decimal value. Out-of-range values yield 0.
func FromDecimal(d decimal.Decimal) Amount {
	return bounded(d)
}

func bounded(d decimal.Decimal) Amount {
	exp := d.Exponent()
	if exp > maxExponent || exp < -maxExponent {
		return Zero()
	}
	if d.NumDigits() > maxDigits {
		return Zero()
	}
	return Amount{d: d}
}

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Mul multiplies the amount by a quantity.
func (a Amount) Mul(quantity int) Amount {
	return Amount{d: a.d.Mul(decimal.NewFromInt(int64(quantity)))}
}

// Equal compares magnitudes, so 1000 and 1000.00 are equal.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

func (a Amount) String() string {
	return a.d.String()
}

// MarshalJSON writes the amount as a JSON number literal.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// UnmarshalJSON accepts a number, a numeric string, null or a decimal object
// and never fails: anything it cannot read decodes to 0.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = normalizeJSON(data)
	return nil
}

// Normalize converts a raw price into an Amount. It is total: nil and
// malformed input yield 0.
func Normalize(raw any) Amount {
	switch v := raw.(type) {
	case nil:
		return Zero()
	case Amount:
		return v
	case *Amount:
		if v == nil {
			return Zero()
		}
		return *v
	case decimal.Decimal:
		return bounded(v)
	case *decimal.Decimal:
		if v == nil {
			return Zero()
		}
		return bounded(*v)
	case int:
		return FromInt(int64(v))
	case int32:
		return FromInt(int64(v))
	case int64:
		return FromInt(v)
	case uint:
		return parseString(strconv.FormatUint(uint64(v), 10))
	case uint32:
		return FromInt(int64(v))
	case uint64:
		return parseString(strconv.FormatUint(v, 10))
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	case json.Number:
		return parseString(v.String())
	case string:
		return parseString(v)
	case []byte:
		return normalizeJSON(v)
	case json.RawMessage:
		return normalizeJSON(v)
	case map[string]any:
		return fromObject(v)
	default:
		return Zero()
	}
}

func fromFloat(f float64) Amount {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero()
	}
	return bounded(decimal.NewFromFloat(f))
}

func parseString(s string) Amount {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return Zero()
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero()
	}
	return bounded(d)
}

// fromObject reads {"value": ...}, {"amount": ...} or an unscaled/scale pair.
func fromObject(m map[string]any) Amount {
	for _, key := range []string{"value", "amount"} {
		if v, ok := m[key]; ok {
			return Normalize(v)
		}
	}

	unscaled, ok := m["unscaledValue"]
	if !ok {
		unscaled, ok = m["unscaled"]
	}
	if !ok {
		return Zero()
	}
	base := Normalize(unscaled).d
	if !base.Equal(base.Truncate(0)) {
		return Zero()
	}
	scale := Normalize(m["scale"]).d
	if !scale.Equal(scale.Truncate(0)) {
		return Zero()
	}
	if scale.Abs().GreaterThan(decimal.NewFromInt(maxExponent)) {
		return Zero()
	}
	return bounded(base.Shift(-int32(scale.IntPart())))
}

func normalizeJSON(data []byte) Amount {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Zero()
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Zero()
		}
		return parseString(s)
	case '{':
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return Zero()
		}
		return fromObject(obj)
	default:
		return parseString(string(data))
	}
}
