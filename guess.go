package condascan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Fixed layout probed beneath every candidate directory.
const (
	metaDirName      = "conda-meta"
	historyFileName  = "history"
	binDirName       = "bin"
	activateFileName = "activate"
	metaFileExt      = ".json"
)

// DefaultPackages are the package names whose conda-meta sidecar files are
// consulted for version information.
var DefaultPackages = []string{"conda", "python"}

// BaseKind classifies how an environment relates to its base installation.
type BaseKind int

const (
	// BaseUnknown means the directory is not an environment, or carries no
	// activation marker to infer a base from.
	BaseUnknown BaseKind = iota
	// BaseSelf means the environment is itself a base installation.
	BaseSelf
	// BaseLinked means bin/activate is a symlink into another installation,
	// resolved to a Guess.
	BaseLinked
	// BaseUnresolved means a symlink cycle guard cut resolution short; only
	// the raw candidate path is known.
	BaseUnresolved
)

func (k BaseKind) String() string {
	switch k {
	case BaseSelf:
		return "self"
	case BaseLinked:
		return "linked"
	case BaseUnresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// MetadataError reports a conda-meta sidecar file that matched the tracked
// name filter but could not be parsed. It is fatal for the whole scan: a
// malformed metadata file means a corrupted environment, and skipping it
// would silently misreport versions.
type MetadataError struct {
	Path string
	Err  error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("parse package metadata %s: %v", e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// Guess is the inferred identity of one canonical directory: whether it is a
// conda environment, which installation it derives from, and which tracked
// package versions it carries. A Guess is fully populated at construction
// and never mutated afterwards; everything it records is a snapshot of the
// filesystem at construction time.
type Guess struct {
	// Path is the canonical absolute directory path, the identity key.
	Path string
	// MetaDir is Path/conda-meta.
	MetaDir string
	// HistoryFile is Path/conda-meta/history.
	HistoryFile string
	// BinDir is Path/bin.
	BinDir string
	// ActivateFile is Path/bin/activate.
	ActivateFile string

	// BaseKind tells how Base and BasePath are to be read.
	BaseKind BaseKind
	// Base is the resolved base installation. It is g itself for BaseSelf
	// and another cached Guess for BaseLinked. The pointed-to directory may
	// not exist when the activation link was broken; renderers must cope.
	Base *Guess
	// BasePath is the raw candidate base directory when BaseKind is
	// BaseUnresolved.
	BasePath string

	// Versions maps tracked package names to their versions. Populated only
	// for environments; empty otherwise.
	Versions map[string]string

	env bool
}

func (g *Guess) String() string { return g.Path }

// IsEnvironment reports whether the directory was a conda environment when
// the Guess was constructed.
func (g *Guess) IsEnvironment() bool { return g.env }

// IsEnvironment reports whether dir currently looks like a conda
// environment: conda-meta exists as a directory and conda-meta/history
// exists as a regular file. Purely a function of the filesystem snapshot.
func IsEnvironment(dir string) bool {
	return probeEnvironment(
		filepath.Join(dir, metaDirName),
		filepath.Join(dir, metaDirName, historyFileName),
	)
}

func probeEnvironment(metaDir, historyFile string) bool {
	fi, err := os.Stat(metaDir)
	if err != nil || !fi.IsDir() {
		return false
	}
	fi, err = os.Stat(historyFile)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	return true
}

// Cache memoizes one Guess per canonical absolute path, so a physical
// directory is analyzed at most once no matter how many traversal paths or
// symlink chains reach it. A Cache is scoped to one scan invocation; create
// a fresh one per scan rather than sharing across runs.
type Cache struct {
	guesses  map[string]*Guess
	packages []string
}

// NewCache returns an empty cache tracking versions for the given package
// names, or DefaultPackages when none are given.
func NewCache(packages ...string) *Cache {
	if len(packages) == 0 {
		packages = DefaultPackages
	}
	return &Cache{
		guesses:  make(map[string]*Guess),
		packages: packages,
	}
}

// Len returns the number of cached guesses.
func (c *Cache) Len() int { return len(c.guesses) }

// Lookup returns the Guess for dir's canonical absolute path, constructing
// and caching it on first encounter. Repeated lookups of the same physical
// directory return the identical pointer. A *MetadataError from version
// extraction is returned as-is so callers can treat it as fatal.
func (c *Cache) Lookup(dir string) (*Guess, error) {
	return c.lookup(dir, nil)
}

// lookup threads the visited set of the current base-resolution chain so
// cyclic activation links terminate.
func (c *Cache) lookup(dir string, visited map[string]bool) (*Guess, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("canonicalize %s: %w", dir, err)
	}
	if g, ok := c.guesses[abs]; ok {
		return g, nil
	}

	g := newGuess(abs)
	// Insert before base resolution runs: a resolution chain that loops
	// back here must find the in-progress Guess instead of recursing.
	c.guesses[abs] = g

	// On failure the half-built Guess must not stay behind, or a retried
	// lookup would return it with no error and empty versions.
	if err := g.resolveBase(c, visited); err != nil {
		delete(c.guesses, abs)
		return nil, err
	}
	if err := g.loadVersions(c.packages); err != nil {
		delete(c.guesses, abs)
		return nil, err
	}
	return g, nil
}

func newGuess(abs string) *Guess {
	g := &Guess{
		Path:     abs,
		MetaDir:  filepath.Join(abs, metaDirName),
		BinDir:   filepath.Join(abs, binDirName),
		Versions: make(map[string]string),
	}
	g.HistoryFile = filepath.Join(g.MetaDir, historyFileName)
	g.ActivateFile = filepath.Join(g.BinDir, activateFileName)
	g.env = probeEnvironment(g.MetaDir, g.HistoryFile)
	return g
}

// resolveBase infers which installation the environment derives from:
//
//   - bin/activate is a symlink: the target's grandparent directory is the
//     candidate base. When the target is itself a symlink, or the candidate
//     is already on the current resolution chain, the chain is a cycle and
//     resolution stops with the raw candidate path.
//   - bin/activate is a regular file: the environment is its own base.
//   - otherwise: unknown.
//
// Whether bin/activate's link target exists is not checked; a broken link
// still resolves to a Guess for a possibly-nonexistent directory.
func (g *Guess) resolveBase(c *Cache, visited map[string]bool) error {
	if !g.env {
		return nil
	}
	fi, err := os.Lstat(g.ActivateFile)
	if err != nil {
		// Absent activation file: base stays unknown.
		return nil
	}

	switch {
	case fi.Mode()&os.ModeSymlink != 0:
		target, err := resolveLink(g.ActivateFile)
		if err != nil {
			return fmt.Errorf("resolve activation link %s: %w", g.ActivateFile, err)
		}
		baseDir := filepath.Dir(filepath.Dir(target))
		if visited == nil {
			visited = make(map[string]bool)
		}
		visited[g.Path] = true
		if isSymlink(target) || visited[baseDir] {
			// Activation links that chain onward, or loop back onto the
			// resolution path, are never chased further.
			g.BaseKind = BaseUnresolved
			g.BasePath = baseDir
			return nil
		}
		base, err := c.lookup(baseDir, visited)
		if err != nil {
			return err
		}
		g.BaseKind = BaseLinked
		g.Base = base
	case fi.Mode().IsRegular():
		g.BaseKind = BaseSelf
		g.Base = g
	}
	return nil
}

// loadVersions extracts tracked package versions from conda-meta sidecar
// files. Only entries named <package>*.json for a tracked package are read;
// each is a JSON object whose name and version fields, when both present,
// contribute one Versions entry.
func (g *Guess) loadVersions(packages []string) error {
	if !g.env {
		return nil
	}
	entries, err := os.ReadDir(g.MetaDir)
	if err != nil {
		return fmt.Errorf("list %s: %w", g.MetaDir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, metaFileExt) {
			continue
		}
		if !hasTrackedPrefix(name, packages) {
			continue
		}
		metaFile := filepath.Join(g.MetaDir, name)
		data, err := os.ReadFile(metaFile)
		if err != nil {
			return fmt.Errorf("read %s: %w", metaFile, err)
		}
		var meta struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		}
		if err := json.Unmarshal(data, &meta); err != nil {
			return &MetadataError{Path: metaFile, Err: err}
		}
		if meta.Name != "" && meta.Version != "" {
			g.Versions[meta.Name] = meta.Version
		}
	}
	return nil
}

func hasTrackedPrefix(name string, packages []string) bool {
	for _, pkg := range packages {
		if strings.HasPrefix(name, pkg) {
			return true
		}
	}
	return false
}
