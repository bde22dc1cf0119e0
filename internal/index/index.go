package index

import "github.com/starford/nomencurator/internal/models"

// UsageIndex is the queryable mirror of usage nodes and annotation links.
// Consumers should depend on this interface rather than the concrete *DB.
type UsageIndex interface {
	ReplaceSource(src SourceRow, usages []UsageRow, links []models.Link) error
	DeleteSource(path string) error
	UpsertUsage(u UsageRow) error
	DeleteUsage(id string) error
	InsertLinks(origin string, links []models.Link) error
	DeleteAnnotation(id string) error
	GetUsage(id string) (*UsageRow, error)
	ListUsages(limit, offset int, literal string) ([]UsageRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []models.Link, error)
	Referrers(id string) ([]string, error)
	SourceChecksums() (map[string]string, error)
	Reset() error
	Close() error
}

// Verify *DB satisfies UsageIndex at compile time.
var _ UsageIndex = (*DB)(nil)
