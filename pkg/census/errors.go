package census

import "errors"

var (
	// ErrProbeTimeout is recorded as a per-tenant "down" outcome when the
	// probe exceeds its bounded timeout. It never aborts the overall run.
	ErrProbeTimeout = errors.New("tenant probe timed out")

	// ErrRunInProgress is returned when Run is called while another run is
	// still iterating.
	ErrRunInProgress = errors.New("census run already in progress")
)
