package contracts

import (
	"net/url"
	"strings"
	"time"
)

// Row is one CSV record keyed by original header name.
// Rows are never mutated after load; Index is the row's position in the
// upload and is how downstream stages refer back to it.
type Row struct {
	Index  int               `json:"index"`
	Fields map[string]string `json:"fields"`
}

// Get returns the raw cell for header, or "" when the header is empty or absent.
func (r Row) Get(header string) string {
	if header == "" {
		return ""
	}
	return r.Fields[header]
}

// Dataset is one upload: the original header list and all rows.
// ⭐ SSOT: loaders build it, the screening session owns it
type Dataset struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Headers  []string  `json:"headers"`
	Rows     []Row     `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// IsEmpty reports whether the dataset has no rows
func (d *Dataset) IsEmpty() bool {
	return d.Len() == 0
}

// Label marks the chosen long/short row of a screening run
type Label string

const (
	LabelNone Label = ""
	LabelBuy  Label = "BUY"
	LabelSell Label = "SELL"
)

// LabelHeader is the column name used when a label is displayed or exported
const LabelHeader = "Label"

// LabeledRow is an output record: the original row plus its label.
// A fresh slice of these is built on every screening run.
type LabeledRow struct {
	Row
	Label Label `json:"label"`
}

// Unlabeled wraps rows into a view with no labels (the cleared view)
func Unlabeled(rows []Row) []LabeledRow {
	out := make([]LabeledRow, len(rows))
	for i, r := range rows {
		out[i] = LabeledRow{Row: r}
	}
	return out
}

// ChartURL returns the TradingView chart link for a symbol.
// Symbols without an exchange prefix are assumed to be NSE listings.
func ChartURL(symbol string) string {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, ":") {
		s = "NSE:" + s
	}
	return "https://www.tradingview.com/chart/?symbol=" + url.QueryEscape(s)
}
