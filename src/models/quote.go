package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyQuote is returned by DecodeQuote when the body holds no quote at all
// (JSON null or an empty list).
var ErrEmptyQuote = errors.New("price source returned no quote")

// RawQuote is a single, untrusted record returned by the price source.
type RawQuote struct {
	Name     string    `json:"name"`
	Exchange string    `json:"exchange,omitempty"`
	Updated  *float64  `json:"updated,omitempty"` // unix seconds
	Price    *RawPrice `json:"price,omitempty"`
}

// UpdatedAt returns the source timestamp. A missing or zero timestamp is
// reported as absent.
func (q RawQuote) UpdatedAt() (time.Time, bool) {
	if q.Updated == nil || *q.Updated == 0 || math.IsNaN(*q.Updated) || math.IsInf(*q.Updated, 0) {
		return time.Time{}, false
	}
	sec, frac := math.Modf(*q.Updated)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// RawPrice keeps the price exactly as it appeared on the wire. The source
// sends either a JSON number or a numeric string.
type RawPrice struct {
	raw json.RawMessage
}

// NumberPrice builds a RawPrice carrying a JSON number.
func NumberPrice(v float64) *RawPrice {
	return &RawPrice{raw: json.RawMessage(strconv.FormatFloat(v, 'g', -1, 64))}
}

// TextPrice builds a RawPrice carrying a JSON string.
func TextPrice(s string) *RawPrice {
	b, _ := json.Marshal(s)
	return &RawPrice{raw: b}
}

func (p *RawPrice) UnmarshalJSON(b []byte) error {
	p.raw = append(p.raw[:0], b...)
	return nil
}

func (p RawPrice) MarshalJSON() ([]byte, error) {
	if len(p.raw) == 0 {
		return []byte("null"), nil
	}
	return p.raw, nil
}

func (p RawPrice) String() string {
	return string(p.raw)
}

// Float64 returns the numeric value of the price. Non-numeric text, other JSON
// types and non-finite values report ok=false.
func (p *RawPrice) Float64() (float64, bool) {
	if p == nil || len(p.raw) == 0 {
		return 0, false
	}

	var v float64
	switch p.raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(p.raw, &s); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	default:
		if err := json.Unmarshal(p.raw, &v); err != nil {
			return 0, false
		}
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// DecodeQuote decodes a price source response body, which is either a single
// quote object or a list of them. Only the first element of a list is used.
func DecodeQuote(body []byte) (*RawQuote, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrEmptyQuote
	}

	if trimmed[0] == '[' {
		var list []*RawQuote
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("malformed quote list: %w", err)
		}
		if len(list) == 0 || list[0] == nil {
			return nil, ErrEmptyQuote
		}
		return list[0], nil
	}

	var quote RawQuote
	if err := json.Unmarshal(trimmed, &quote); err != nil {
		return nil, fmt.Errorf("malformed quote object: %w", err)
	}
	return &quote, nil
}
