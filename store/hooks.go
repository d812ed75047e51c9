package store

// Self-heal reasons.
const (
	ReasonCorrupt     = "corrupt"
	ReasonGenMismatch = "gen_mismatch"
	ReasonValueDecode = "value_decode"
)

// Batch rejection reasons.
const (
	ReasonBatchDecode   = "decode_error"
	ReasonBatchStale    = "invalid_or_stale"
	ReasonBatchSnapshot = "snapshot_error"
)

// Hooks are callbacks for high-signal events. They run on hot paths and
// must not block; wrap slow sinks with hooks/async.
type Hooks interface {
	// The store deleted a record on read. reason is one of the Reason*
	// self-heal constants.
	SelfHealRecord(storageKey, reason string)

	// A batch read was dropped and fell back to records.
	BatchRejected(namespace string, requested int, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string, isBatch bool)

	// count is 1 for Snapshot and N for SnapshotMany.
	GenSnapshotError(count int, err error)
	GenBumpError(storageKey string, err error)

	// Both the generation bump and the delete failed during Invalidate.
	InvalidateOutage(key string, bumpErr, delErr error)

	// Batches are enabled over an in-process GenStore, so other replicas
	// may serve stale batches.
	LocalGenWithBatch()
}

type NopHooks struct{}

func (NopHooks) SelfHealRecord(string, string)         {}
func (NopHooks) BatchRejected(string, int, string)     {}
func (NopHooks) ProviderSetRejected(string, bool)      {}
func (NopHooks) GenSnapshotError(int, error)           {}
func (NopHooks) GenBumpError(string, error)            {}
func (NopHooks) InvalidateOutage(string, error, error) {}
func (NopHooks) LocalGenWithBatch()                    {}
