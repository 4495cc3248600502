package condascan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jward/condascan/internal/store"
)

// DefaultPruneNames are directory names never descended into: version
// control metadata, shell version managers, and conda's own package cache,
// all of which are large and cannot contain environments worth reporting.
var DefaultPruneNames = []string{".git", ".rbenv", "pkgs"}

// Scanner discovers conda environments beneath starting directories. All
// lookups go through one Cache, so start directories that overlap or alias
// each other via symlinks share their analysis work.
type Scanner struct {
	cache    *Cache
	prune    map[string]bool
	packages []string
	store    *store.Store
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithPruneNames replaces the default set of directory names that are
// pruned without being reported.
func WithPruneNames(names ...string) Option {
	return func(s *Scanner) {
		s.prune = make(map[string]bool, len(names))
		for _, name := range names {
			s.prune[name] = true
		}
	}
}

// WithPackages replaces the default set of package names tracked for
// version extraction.
func WithPackages(names ...string) Option {
	return func(s *Scanner) {
		s.packages = names
	}
}

// WithStore attaches a result store, enabling Index and Query.
func WithStore(st *store.Store) Option {
	return func(s *Scanner) {
		s.store = st
	}
}

// New creates a Scanner with a fresh Cache.
func New(opts ...Option) *Scanner {
	s := &Scanner{packages: DefaultPackages}
	for _, opt := range opts {
		opt(s)
	}
	if s.prune == nil {
		s.prune = make(map[string]bool, len(DefaultPruneNames))
		for _, name := range DefaultPruneNames {
			s.prune[name] = true
		}
	}
	s.cache = NewCache(s.packages...)
	return s
}

// Cache returns the Scanner's guess cache.
func (s *Scanner) Cache() *Cache { return s.cache }

// Lookup returns the memoized Guess for dir.
func (s *Scanner) Lookup(dir string) (*Guess, error) {
	return s.cache.Lookup(dir)
}

// Survey walks the tree rooted at root in pre-order and reports every conda
// environment through onMatch. Environments are leaves of interest: the
// walk never descends beneath one. Directories on the prune list are
// skipped silently. Either callback may be nil.
//
// Traversal I/O errors (unreadable directories and the like) go to onError
// and the walk continues. A *MetadataError aborts the walk and is returned:
// a corrupted environment must not produce a partial report.
func (s *Scanner) Survey(root string, onMatch func(*Guess), onError func(error)) error {
	// filepath.WalkDir lstats its root, so a start directory reached through
	// a symlink would look like a plain file and never be descended. Resolve
	// it up front and walk the real directory instead.
	if fi, err := os.Stat(root); err == nil && fi.IsDir() && isSymlink(root) {
		resolved, err := filepath.EvalSymlinks(root)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("resolve root %s: %w", root, err))
			}
			return nil
		}
		root = resolved
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("walk %s: %w", path, err))
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		g, err := s.cache.Lookup(path)
		if err != nil {
			var metaErr *MetadataError
			if errors.As(err, &metaErr) {
				return err
			}
			if onError != nil {
				onError(err)
			}
			return filepath.SkipDir
		}

		if g.IsEnvironment() {
			if onMatch != nil {
				onMatch(g)
			}
			return filepath.SkipDir
		}
		if s.prune[d.Name()] {
			return filepath.SkipDir
		}
		return nil
	})
}

// Index surveys each root in order and records every discovered environment
// in the attached store, skipping environments already recorded (roots may
// overlap). Traversal errors go to onError (may be nil); metadata parse
// failures and store failures abort.
func (s *Scanner) Index(roots []string, onError func(error)) error {
	if s.store == nil {
		return errors.New("scanner has no store")
	}
	for _, root := range roots {
		var recordErr error
		err := s.Survey(root, func(g *Guess) {
			if recordErr == nil {
				recordErr = s.record(g)
			}
		}, onError)
		if err != nil {
			return err
		}
		if recordErr != nil {
			return recordErr
		}
	}
	return nil
}

// record inserts one environment and its versions, once.
func (s *Scanner) record(g *Guess) error {
	existing, err := s.store.EnvironmentByPath(g.Path)
	if err != nil {
		return fmt.Errorf("record %s: %w", g.Path, err)
	}
	if existing != nil {
		return nil
	}

	var basePath string
	switch g.BaseKind {
	case BaseLinked:
		basePath = g.Base.Path
	case BaseUnresolved:
		basePath = g.BasePath
	}
	envID, err := s.store.InsertEnvironment(&store.Environment{
		Path:      g.Path,
		BaseKind:  g.BaseKind.String(),
		BasePath:  basePath,
		ScannedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", g.Path, err)
	}
	for pkg, ver := range g.Versions {
		if _, err := s.store.InsertVersion(&store.Version{EnvID: envID, Package: pkg, Version: ver}); err != nil {
			return fmt.Errorf("record %s: %w", g.Path, err)
		}
	}
	return nil
}

// Query returns a QueryBuilder over the attached store. Callers must have
// indexed first; querying an empty store simply yields empty results.
func (s *Scanner) Query() *QueryBuilder {
	return &QueryBuilder{store: s.store}
}
