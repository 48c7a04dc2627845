package fare

import (
	"encoding/json"
	"maps"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// Cell addresses a zone pair with I <= J.
type Cell struct {
	I, J int
}

// PriceCell carries the prices of one zone pair keyed by tab number.
type PriceCell struct {
	I      int                     `json:"i"`
	J      int                     `json:"j"`
	Prices map[int]decimal.Decimal `json:"prices"`
}

// PriceMatrix is the sparse upper-triangular price table of a route.
// A missing cell or tab entry means a price of zero.
type PriceMatrix map[Cell]map[int]decimal.Decimal

// Price returns the price of tab between zones i and j.
func (m PriceMatrix) Price(i, j, tab int) decimal.Decimal {
	return m[Cell{I: i, J: j}][tab]
}

func (m PriceMatrix) Set(i, j, tab int, price decimal.Decimal) {
	c := Cell{I: i, J: j}
	if m[c] == nil {
		m[c] = make(map[int]decimal.Decimal)
	}
	m[c][tab] = price
}

func (m PriceMatrix) Clone() PriceMatrix {
	if m == nil {
		return nil
	}
	c := make(PriceMatrix, len(m))
	for k, v := range m {
		c[k] = maps.Clone(v)
	}
	return c
}

// Cells lists the stored cells in row-major order.
func (m PriceMatrix) Cells() []PriceCell {
	out := make([]PriceCell, 0, len(m))
	for c, prices := range m {
		out = append(out, PriceCell{I: c.I, J: c.J, Prices: maps.Clone(prices)})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].I != out[b].I {
			return out[a].I < out[b].I
		}
		return out[a].J < out[b].J
	})
	return out
}

// Rows renders the matrix in the row shape the editor posts back: rows[i][j]
// maps tab numbers to prices for j >= i and is nil below the diagonal.
func (m PriceMatrix) Rows(stopCount int) [][]map[string]string {
	rows := make([][]map[string]string, stopCount)
	for i := range rows {
		rows[i] = make([]map[string]string, stopCount)
		for j := i; j < stopCount; j++ {
			cell := map[string]string{}
			for tab, p := range m[Cell{I: i, J: j}] {
				cell[strconv.Itoa(tab)] = p.String()
			}
			rows[i][j] = cell
		}
	}
	return rows
}

// MarshalJSON stores the matrix in the cell shape.
func (m PriceMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Cells())
}

// UnmarshalJSON reads either payload shape accepted by DecodePricePayload.
func (m *PriceMatrix) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = PriceMatrix{}
		return nil
	}
	cells, err := DecodePricePayload(data)
	if err != nil {
		return err
	}
	out := make(PriceMatrix, len(cells))
	for _, c := range cells {
		for tab, p := range c.Prices {
			out.Set(c.I, c.J, tab, p)
		}
	}
	*m = out
	return nil
}
