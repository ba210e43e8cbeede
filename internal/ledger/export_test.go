package ledger

// NewMemStore exposes the in-memory repository to external tests.
func NewMemStore() Repository { return newMemRepo() }
