package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/openscreen/internal/contracts"
	"github.com/wonny/openscreen/internal/headers"
	"github.com/wonny/openscreen/pkg/logger"
)

// newDataset builds a dataset from a header line and positional records
func newDataset(hdr []string, records ...[]string) *contracts.Dataset {
	rows := make([]contracts.Row, len(records))
	for i, rec := range records {
		fields := make(map[string]string, len(hdr))
		for j, h := range hdr {
			if j < len(rec) {
				fields[h] = rec[j]
			}
		}
		rows[i] = contracts.Row{Index: i, Fields: fields}
	}
	return &contracts.Dataset{ID: "test", Name: "test.csv", Headers: hdr, Rows: rows}
}

var ohlcvHeaders = []string{"Symbol", "Date", "Time", "Open", "High", "Low", "Close", "Volume"}

func mixedDataset() *contracts.Dataset {
	return newDataset(ohlcvHeaders,
		[]string{"AAA", "2024-01-15", "09:15", "100", "105", "100", "104", "5000"},   // open=low
		[]string{"BBB", "2024-01-15", "09:15", "100", "100", "95", "96", "8000"},     // open=high
		[]string{"CCC", "2024-01-15", "09:15", "50", "50", "50", "50", "100"},        // open=high=low
		[]string{"DDD", "2024-01-15", "09:15", "10", "12", "9", "11", "9000"},        // neither
		[]string{"EEE", "2024-01-15", "09:15", "abc", "12", "9", "11", "9000"},       // unparsable open
		[]string{"FFF", "2024-01-15", "09:15", "1,200", "1,250", "1,200", "", "700"}, // open=low, commas
	)
}

func newTestScreener() *Screener {
	return NewScreener(DefaultScreenerConfig(), logger.Nop())
}

func symbols(rows []contracts.LabeledRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Get("Symbol")
	}
	return out
}

func TestScreen_Modes(t *testing.T) {
	tests := []struct {
		mode     contracts.Mode
		want     []string
		wantBuy  string
		wantSell string
	}{
		{contracts.ModeOpenLow, []string{"AAA", "CCC", "FFF"}, "AAA", "CCC"},
		{contracts.ModeOpenHigh, []string{"BBB", "CCC"}, "CCC", "BBB"},
		{contracts.ModeOpenHighLow, []string{"CCC"}, "CCC", "CCC"},
		{contracts.Mode("sideways"), []string{}, "None", "None"},
	}

	s := newTestScreener()
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			res, err := s.Screen(context.Background(), mixedDataset(), contracts.ScreenRequest{Mode: tt.mode})
			require.NoError(t, err)

			assert.Equal(t, tt.want, symbols(res.Rows))
			assert.Equal(t, tt.wantBuy, res.LongSymbol())
			assert.Equal(t, tt.wantSell, res.ShortSymbol())
			assert.Equal(t, 6, res.InputCount)
			assert.Equal(t, len(tt.want), res.OutputCount)
			assert.NotEmpty(t, res.RunID)
		})
	}
}

func TestScreen_OpenLowPicksHighestVolume(t *testing.T) {
	// openLow keeps AAA (5000), CCC (100), FFF (700); AAA has the most volume.
	// CCC is both open≈low and open≈high, so it is the only short.
	res, err := newTestScreener().Screen(context.Background(), mixedDataset(), contracts.ScreenRequest{Mode: contracts.ModeOpenLow})
	require.NoError(t, err)

	require.NotNil(t, res.Long)
	assert.Equal(t, "AAA", res.Long.Symbol)
	assert.Equal(t, 5000.0, res.Long.Volume)
	assert.Equal(t, 0, res.Long.Row.Index)

	labels := map[string]contracts.Label{}
	for _, r := range res.Rows {
		labels[r.Get("Symbol")] = r.Label
	}
	assert.Equal(t, contracts.LabelBuy, labels["AAA"])
	assert.Equal(t, contracts.LabelSell, labels["CCC"])
	assert.Equal(t, contracts.LabelNone, labels["FFF"])
}

func TestScreen_SubsetAndIndexIdentity(t *testing.T) {
	ds := mixedDataset()
	s := newTestScreener()

	for _, mode := range contracts.AllModes() {
		res, err := s.Screen(context.Background(), ds, contracts.ScreenRequest{Mode: mode})
		if errors.Is(err, ErrMissingFullColumns) {
			continue
		}
		require.NoError(t, err, mode)

		for _, r := range res.Rows {
			require.GreaterOrEqual(t, r.Index, 0)
			require.Less(t, r.Index, ds.Len())
			assert.Equal(t, ds.Rows[r.Index].Fields, r.Fields, "row %d must be the original record", r.Index)
		}
		assert.LessOrEqual(t, res.CountLabel(contracts.LabelBuy), 1)
		assert.LessOrEqual(t, res.CountLabel(contracts.LabelSell), 1)
	}
}

func TestScreen_OpenHighLowIsIntersection(t *testing.T) {
	ds := mixedDataset()
	s := newTestScreener()
	ctx := context.Background()

	hi, err := s.Screen(ctx, ds, contracts.ScreenRequest{Mode: contracts.ModeOpenHigh})
	require.NoError(t, err)
	lo, err := s.Screen(ctx, ds, contracts.ScreenRequest{Mode: contracts.ModeOpenLow})
	require.NoError(t, err)
	both, err := s.Screen(ctx, ds, contracts.ScreenRequest{Mode: contracts.ModeOpenHighLow})
	require.NoError(t, err)

	inHi := map[int]bool{}
	for _, r := range hi.Rows {
		inHi[r.Index] = true
	}
	inLo := map[int]bool{}
	for _, r := range lo.Rows {
		inLo[r.Index] = true
	}
	for _, r := range both.Rows {
		assert.True(t, inHi[r.Index] && inLo[r.Index], "row %d", r.Index)
	}
}

func TestScreen_Preconditions(t *testing.T) {
	s := newTestScreener()
	ctx := context.Background()

	t.Run("empty dataset", func(t *testing.T) {
		_, err := s.Screen(ctx, newDataset(ohlcvHeaders), contracts.ScreenRequest{Mode: contracts.ModeOpenLow})
		assert.ErrorIs(t, err, ErrEmptyDataset)
		assert.True(t, IsPrecondition(err))
	})

	t.Run("nil dataset", func(t *testing.T) {
		_, err := s.Screen(ctx, nil, contracts.ScreenRequest{Mode: contracts.ModeOpenLow})
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})

	t.Run("missing open and low", func(t *testing.T) {
		ds := newDataset([]string{"Symbol", "High", "Close"}, []string{"AAA", "10", "9"})
		_, err := s.Screen(ctx, ds, contracts.ScreenRequest{Mode: contracts.ModeOpenHigh})
		require.ErrorIs(t, err, ErrMissingColumns)

		var mce *MissingColumnsError
		require.True(t, errors.As(err, &mce))
		assert.Equal(t, []headers.Role{headers.RoleOpen, headers.RoleLow}, mce.Roles)
		assert.Contains(t, err.Error(), "Open, Low")
	})

	t.Run("full mode needs volume columns", func(t *testing.T) {
		_, err := s.Screen(ctx, mixedDataset(), contracts.ScreenRequest{Mode: contracts.ModeFull})
		require.ErrorIs(t, err, ErrMissingFullColumns)
		assert.NotErrorIs(t, err, ErrMissingColumns)

		var mce *MissingColumnsError
		require.True(t, errors.As(err, &mce))
		assert.Equal(t, []headers.Role{headers.RoleAvgVolume, headers.RoleMarketCap}, mce.Roles)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Screen(cctx, mixedDataset(), contracts.ScreenRequest{Mode: contracts.ModeOpenLow})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, IsPrecondition(err))
	})
}

var fullHeaders = []string{"Symbol", "Open", "High", "Low", "Close", "Volume", "Avg Volume (5d)", "Market Cap"}

func TestScreen_FullGates(t *testing.T) {
	ds := newDataset(fullHeaders,
		[]string{"PASSLOW", "500", "520", "500", "515", "30000", "10000", "15,000 Cr"},
		[]string{"PASSHIGH", "800", "800", "760", "770", "40000", "10000", "150 bn"},
		[]string{"NOSURGE", "500", "520", "500", "515", "15000", "10000", "15000"},
		[]string{"CHEAP", "150", "160", "150", "155", "30000", "10000", "15000"},
		[]string{"SMALLCAP", "500", "520", "500", "515", "30000", "10000", "50 lakh"},
		[]string{"NOCAP", "500", "520", "500", "515", "30000", "10000", "n/a"},
		[]string{"NOVOL", "500", "520", "500", "515", "", "10000", "15000"},
		[]string{"FLAT", "500", "520", "490", "515", "30000", "10000", "15000"},
	)

	res, err := newTestScreener().Screen(context.Background(), ds, contracts.ScreenRequest{Mode: contracts.ModeFull})
	require.NoError(t, err)

	assert.Equal(t, []string{"PASSLOW", "PASSHIGH"}, symbols(res.Rows))
	assert.Equal(t, "PASSLOW", res.LongSymbol())
	assert.Equal(t, "PASSHIGH", res.ShortSymbol())
	assert.Equal(t, map[string]int{
		"pattern":      1,
		"volume_surge": 1,
		"min_close":    1,
		"market_cap":   2,
		"volume_parse": 1,
	}, res.Filtered)
}

func TestScreen_MinGainGate(t *testing.T) {
	ds := newDataset(fullHeaders,
		[]string{"WEAK", "500", "520", "500", "505", "30000", "10000", "15000"},
		[]string{"STRONG", "500", "520", "500", "515", "30000", "10000", "15000"},
		[]string{"SHORTWEAK", "500", "500", "480", "495", "30000", "10000", "15000"},
		[]string{"SHORTSTRONG", "500", "500", "480", "485", "30000", "10000", "15000"},
	)
	s := newTestScreener()

	t.Run("two percent", func(t *testing.T) {
		res, err := s.Screen(context.Background(), ds, contracts.ScreenRequest{Mode: contracts.ModeFull, MinGainPct: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"STRONG", "SHORTSTRONG"}, symbols(res.Rows))
		assert.Equal(t, 2, res.Filtered["min_gain"])
	})

	t.Run("disabled", func(t *testing.T) {
		res, err := s.Screen(context.Background(), ds, contracts.ScreenRequest{Mode: contracts.ModeFull})
		require.NoError(t, err)
		assert.Len(t, res.Rows, 4)
	})

	t.Run("ignored outside full mode", func(t *testing.T) {
		res, err := s.Screen(context.Background(), ds, contracts.ScreenRequest{Mode: contracts.ModeOpenLow, MinGainPct: 50})
		require.NoError(t, err)
		assert.Equal(t, []string{"WEAK", "STRONG"}, symbols(res.Rows))
	})
}

func TestScreen_SameRowLongAndShortBecomesSell(t *testing.T) {
	ds := newDataset(ohlcvHeaders,
		[]string{"FLAT", "2024-01-15", "09:15", "50", "50", "50", "50", "100"},
	)
	res, err := newTestScreener().Screen(context.Background(), ds, contracts.ScreenRequest{Mode: contracts.ModeOpenHighLow})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, contracts.LabelSell, res.Rows[0].Label)
	assert.Equal(t, "FLAT", res.LongSymbol())
	assert.Equal(t, "FLAT", res.ShortSymbol())
	assert.Equal(t, 0, res.CountLabel(contracts.LabelBuy))
}

func TestScreen_DoesNotMutateInput(t *testing.T) {
	ds := mixedDataset()
	before := len(ds.Rows[0].Fields)

	_, err := newTestScreener().Screen(context.Background(), ds, contracts.ScreenRequest{Mode: contracts.ModeOpenLow})
	require.NoError(t, err)

	assert.Len(t, ds.Rows[0].Fields, before)
	_, hasLabel := ds.Rows[0].Fields[contracts.LabelHeader]
	assert.False(t, hasLabel)
}

func TestScreen_Summary(t *testing.T) {
	res, err := newTestScreener().Screen(context.Background(), mixedDataset(), contracts.ScreenRequest{Mode: contracts.ModeOpenHigh})
	require.NoError(t, err)
	assert.Equal(t, "Filter: openHigh — results 2. Selected BUY: CCC | SELL: BBB", res.Summary())
}
