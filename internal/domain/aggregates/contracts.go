package aggregates

// Contract states how an aggregate's writes are bounded.
type Contract struct {
	Name string
	// AggregateOwnsTx is true when write methods open their own transaction
	// and callers must not pass one in.
	AggregateOwnsTx bool
	// LockScope names the row set a single write serializes on.
	LockScope string
	Notes     string
}

const (
	LockScopeUserDay = "user_day"
	LockScopeRow     = "row"
)

type Aggregate interface {
	Contract() Contract
}
