package tidy

// Journal records applied batches and reverses them.
// The log is append-only; rollback rewrites it without the rolled-back record.
type Journal interface {
	// Apply performs every move in order and appends one BatchRecord.
	// On failure the completed prefix is still logged and the batch id returned.
	Apply(moves *MoveMap, mode Mode) (string, error)

	// Read returns all batches, most recent first.
	Read() ([]BatchRecord, error)

	// RollbackBatch reverses one batch and drops it from the log.
	// Returns the number of files restored.
	RollbackBatch(batchID string) (int, error)

	// RollbackRecent reverses the count most recent batches (count <= 0: all).
	RollbackRecent(count int) (int, error)
}
