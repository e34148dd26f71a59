package sqlite

import "github.com/seclark/intact/internal/catalog"

// provider implements catalog.Provider for a fixed catalog path.
type provider struct {
	path string
}

// NewProvider returns a catalog.Provider backed by a SQLite file at
// path.
func NewProvider(path string) catalog.Provider {
	return provider{path: path}
}

func (p provider) Create(meta *catalog.Meta) (catalog.Store, error) {
	return Create(p.path, meta)
}

func (p provider) Open() (catalog.Store, error) {
	return Open(p.path)
}
