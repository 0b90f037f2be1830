package contracts

import (
	"context"
	"io"

	"github.com/wonny/openscreen/internal/headers"
)

// DatasetLoader reads an upload into a Dataset (P0)
// ⭐ SSOT: upload parsing interface
type DatasetLoader interface {
	Load(ctx context.Context, r io.Reader, name string) (*Dataset, error)
}

// Screener produces the filtered, labeled view for one run (P2-P3)
// ⭐ SSOT: screening interface
type Screener interface {
	Screen(ctx context.Context, ds *Dataset, req ScreenRequest) (*ScreenResult, error)
}

// TradePlanner derives trade plans from a run's chosen candidates (P4)
// ⭐ SSOT: trade planning interface
type TradePlanner interface {
	PlanPair(ctx context.Context, ds *Dataset, roles headers.Roles, long, short *Candidate) ([]TradePlan, bool)
}
