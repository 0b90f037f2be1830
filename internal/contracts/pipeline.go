package contracts

// Pipeline stage names (SSOT).
// Every log line and run summary uses these constants.
//
// Flow:
//   Load → Resolve → Screen → Select → Plan
//   csvio   headers  selection selection execution

// Stage represents a pipeline stage
type Stage string

const (
	// StageLoad reads the upload into a Dataset (internal/csvio)
	StageLoad Stage = "P0_LOAD"

	// StageResolve maps free-form headers to semantic roles (internal/headers)
	StageResolve Stage = "P1_RESOLVE"

	// StageScreen applies the mode predicate and the full-screener gates
	// (internal/selection/screener.go)
	StageScreen Stage = "P2_SCREEN"

	// StageSelect picks each symbol's representative candle and the best
	// long/short candidate by volume (internal/selection/selector.go)
	StageSelect Stage = "P3_SELECT"

	// StagePlan derives entry/stop/target from the chosen candles
	// (internal/execution/planner.go)
	StagePlan Stage = "P4_PLAN"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "P0", "P1")
func (s Stage) ShortName() string {
	switch s {
	case StageLoad:
		return "P0"
	case StageResolve:
		return "P1"
	case StageScreen:
		return "P2"
	case StageSelect:
		return "P3"
	case StagePlan:
		return "P4"
	default:
		return "UNKNOWN"
	}
}

// Description returns a human-readable description of the stage
func (s Stage) Description() string {
	switch s {
	case StageLoad:
		return "CSV load"
	case StageResolve:
		return "header role resolution"
	case StageScreen:
		return "open-extreme screening"
	case StageSelect:
		return "candidate selection"
	case StagePlan:
		return "trade planning"
	default:
		return "unknown"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageLoad,
		StageResolve,
		StageScreen,
		StageSelect,
		StagePlan,
	}
}
