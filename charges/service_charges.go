package charges

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when user or wire text cannot be read as a decimal amount.
var ErrInvalidAmount = errors.New("invalid amount")

// ServiceCharges maps a selected service name (e.g. "Transport", "Customs Clearance") to its charge.
type ServiceCharges map[string]decimal.Decimal

// NewServiceCharges returns the zero-initialized mapping for the given services.
func NewServiceCharges(serviceNames []string) ServiceCharges {
	sc := make(ServiceCharges, len(serviceNames))
	for _, name := range serviceNames {
		sc[name] = decimal.Zero
	}
	return sc
}

// ParseServiceCharges decodes the string-encoded mapping carried on the wire.
// Absent or malformed input yields the zero-initialized mapping; it never fails.
// Values may be JSON strings or numbers. Selected services missing from raw are added as zero.
// With a non-nil serviceNames, services that are not selected are dropped.
func ParseServiceCharges(raw string, serviceNames []string) ServiceCharges {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return NewServiceCharges(serviceNames)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var values map[string]interface{}
	if err := dec.Decode(&values); err != nil || values == nil {
		return NewServiceCharges(serviceNames)
	}

	sc := NewServiceCharges(serviceNames)
	for name, v := range values {
		if _, selected := sc[name]; serviceNames != nil && !selected {
			continue
		}
		switch val := v.(type) {
		case string:
			sc[name] = ParseAmount(val)
		case json.Number:
			sc[name] = ParseAmount(val.String())
		default:
			sc[name] = decimal.Zero
		}
	}
	return sc
}

// Encode renders the mapping in its wire form, e.g. {"Customs":"75","Transport":"200"}.
func (s ServiceCharges) Encode() string {
	if s == nil {
		return "{}"
	}
	b, err := json.Marshal(map[string]decimal.Decimal(s))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Sum adds every service charge.
func (s ServiceCharges) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s {
		total = total.Add(v)
	}
	return total
}

// Clone returns an independent copy; a nil mapping clones to an empty one.
func (s ServiceCharges) Clone() ServiceCharges {
	out := make(ServiceCharges, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// With returns a copy with one service charge replaced.
func (s ServiceCharges) With(service string, amount decimal.Decimal) ServiceCharges {
	out := s.Clone()
	out[service] = amount
	return out
}

// ParseAmount reads a charge typed as text. Blank and non-numeric input is zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := ParseAmountStrict(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAmountStrict reads a charge typed as text, treating blank as zero and
// rejecting anything else that is not a decimal number. Thousands separators are ignored.
func ParseAmountStrict(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
