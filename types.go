package condascan

import "github.com/jward/condascan/internal/store"

// Public surface of the internal store package. The aliases are Go type
// aliases (=), identical to the internal types at compile time, so external
// consumers never import internal/store directly.

type Store = store.Store
type Environment = store.Environment
type Version = store.Version

// InMemory is the store path for a private in-memory index.
const InMemory = store.InMemory

// NewStore opens a result store at path with its schema prepared. Use
// [InMemory] for an index scoped to one scan. Callers own the store and
// must Close it.
func NewStore(path string) (*Store, error) {
	st, err := store.NewStore(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
