package domain

// OutcomeKind classifies one upstream position query.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeNoData
	OutcomeRateLimited
	OutcomeUnavailable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeNoData:
		return "no_data"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of an upstream query. Position is set only
// for OutcomeOK; Err carries the cause for diagnostics and is never surfaced
// past the resolver.
type Outcome struct {
	Kind     OutcomeKind
	Position Position
	Err      error
}

func OK(p Position) Outcome { return Outcome{Kind: OutcomeOK, Position: p} }

func NoData(err error) Outcome { return Outcome{Kind: OutcomeNoData, Err: err} }

func RateLimited(err error) Outcome { return Outcome{Kind: OutcomeRateLimited, Err: err} }

func Unavailable(err error) Outcome { return Outcome{Kind: OutcomeUnavailable, Err: err} }
