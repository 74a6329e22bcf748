package index

// DocumentIndex defines the interface for index operations. Consumers depend
// on this rather than the concrete *DB type to facilitate testing with mocks.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, secs []SectionRow) error
	DeleteDocument(path string) error
	ListDocuments(limit, offset int) ([]DocumentRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies DocumentIndex at compile time.
var _ DocumentIndex = (*DB)(nil)
