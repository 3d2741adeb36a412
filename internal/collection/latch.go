package collection

// SyncState is the reconciliation latch. It only moves forward:
// Uninitialized → Syncing → Synced. A mutation may jump straight to Synced,
// which cancels any reconciliation that has not run yet.
type SyncState int32

const (
	Uninitialized SyncState = iota
	Syncing
	Synced
)

func (s SyncState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Syncing:
		return "syncing"
	case Synced:
		return "synced"
	}
	return "unknown"
}

// MarshalText lets the state appear by name in JSON responses and logs.
func (s SyncState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
