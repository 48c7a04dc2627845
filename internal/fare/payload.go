package fare

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

type payloadShape int

const (
	shapeUnknown payloadShape = iota
	shapeRows
	shapeCells
)

// DecodePricePayload decodes a price submission. The payload must be a JSON
// array in exactly one of two shapes:
//
//	rows:  [[{"1": 5.4}, {"1": "7"}], [null, {"1": 2}]]
//	cells: [{"i": 0, "j": 1, "prices": {"1": "5.40"}}]
//
// Anything else, including a mix of both, is rejected as a whole.
func DecodePricePayload(raw []byte) ([]PriceCell, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, decodeErr(nil, "empty payload")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, decodeErr(err, "payload is not a JSON array")
	}
	if items == nil {
		return nil, decodeErr(nil, "payload is null, send [] to clear prices")
	}

	shape := shapeUnknown
	for idx, item := range items {
		s := shapeOf(item)
		if s == shapeUnknown {
			return nil, decodeErr(nil, "element %d is neither a row nor a cell object", idx)
		}
		if shape != shapeUnknown && s != shape {
			return nil, decodeErr(nil, "element %d mixes row and cell shapes", idx)
		}
		shape = s
	}

	if shape == shapeCells {
		return decodeCells(items)
	}
	return decodeRows(items)
}

func shapeOf(item json.RawMessage) payloadShape {
	item = bytes.TrimSpace(item)
	if len(item) == 0 {
		return shapeUnknown
	}
	switch item[0] {
	case '[':
		return shapeRows
	case '{':
		return shapeCells
	}
	return shapeUnknown
}

func decodeRows(rows []json.RawMessage) ([]PriceCell, error) {
	var out []PriceCell
	for i, rawRow := range rows {
		var row []json.RawMessage
		if err := json.Unmarshal(rawRow, &row); err != nil {
			return nil, decodeErr(err, "row %d", i)
		}
		for j, rawCell := range row {
			prices, err := decodePrices(rawCell)
			if err != nil {
				return nil, decodeErr(err, "cell (%d,%d)", i, j)
			}
			if len(prices) == 0 {
				continue
			}
			out = append(out, PriceCell{I: i, J: j, Prices: prices})
		}
	}
	return out, nil
}

type cellObject struct {
	I      *int            `json:"i"`
	J      *int            `json:"j"`
	Prices json.RawMessage `json:"prices"`
}

func decodeCells(items []json.RawMessage) ([]PriceCell, error) {
	out := make([]PriceCell, 0, len(items))
	seen := make(map[Cell]bool, len(items))
	for idx, item := range items {
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.DisallowUnknownFields()
		var obj cellObject
		if err := dec.Decode(&obj); err != nil {
			return nil, decodeErr(err, "cell %d", idx)
		}
		if obj.I == nil || obj.J == nil {
			return nil, decodeErr(nil, "cell %d: both i and j are required", idx)
		}
		key := Cell{I: *obj.I, J: *obj.J}
		if seen[key] {
			return nil, decodeErr(nil, "cell (%d,%d) is declared twice", key.I, key.J)
		}
		seen[key] = true
		prices, err := decodePrices(obj.Prices)
		if err != nil {
			return nil, decodeErr(err, "cell (%d,%d)", key.I, key.J)
		}
		out = append(out, PriceCell{I: key.I, J: key.J, Prices: prices})
	}
	return out, nil
}

// decodePrices reads a {"<tab>": price} object. null, {} and "" entries
// are empty; everything else must be a non-negative decimal.
func decodePrices(raw json.RawMessage) (map[int]decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.New("prices must be an object keyed by tab number")
	}
	prices := make(map[int]decimal.Decimal, len(entries))
	for key, rawPrice := range entries {
		tab, err := strconv.Atoi(key)
		if err != nil || strconv.Itoa(tab) != key {
			return nil, errors.New("tab key " + strconv.Quote(key) + " is not a plain tab number")
		}
		rawPrice = bytes.TrimSpace(rawPrice)
		if string(rawPrice) == "null" || string(rawPrice) == `""` {
			continue
		}
		var p decimal.Decimal
		if err := p.UnmarshalJSON(rawPrice); err != nil {
			return nil, errors.New("price for tab " + key + " is not a number")
		}
		if p.IsNegative() {
			return nil, errors.New("price for tab " + key + " is negative")
		}
		prices[tab] = p
	}
	return prices, nil
}
