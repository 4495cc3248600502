package condascan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := NewStore(InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// collectMatches surveys root and returns the matched environment paths in
// discovery order.
func collectMatches(t *testing.T, s *Scanner, root string) []string {
	t.Helper()
	var matches []string
	err := s.Survey(root, func(g *Guess) {
		matches = append(matches, g.Path)
	}, func(err error) {
		t.Errorf("unexpected traversal error: %v", err)
	})
	require.NoError(t, err)
	return matches
}

func TestSurvey_EndToEnd(t *testing.T) {
	tmp := t.TempDir()

	// An environment hidden inside .git must never be seen.
	gitEnv := filepath.Join(tmp, ".git", "env")
	writeEnv(t, gitEnv, nil)

	envA := filepath.Join(tmp, "envA")
	writeEnv(t, envA, map[string]string{
		"conda-4.9.0-py38.json": `{"name": "conda", "version": "4.9.0"}`,
		"python-3.9.0-h.json":   `{"name": "python", "version": "3.9.0"}`,
	})
	writeActivate(t, envA)

	envB := filepath.Join(tmp, "envB")
	writeEnv(t, envB, nil)
	linkActivate(t, envB, filepath.Join(envA, "bin", "activate"))

	s := New()
	matches := collectMatches(t, s, tmp)
	assert.ElementsMatch(t, []string{envA, envB}, matches)

	a, err := s.Lookup(envA)
	require.NoError(t, err)
	assert.Equal(t, BaseSelf, a.BaseKind)
	assert.Equal(t, "4.9.0", a.Versions["conda"])
	assert.Equal(t, "3.9.0", a.Versions["python"])

	b, err := s.Lookup(envB)
	require.NoError(t, err)
	require.Equal(t, BaseLinked, b.BaseKind)
	assert.Same(t, a, b.Base)
}

func TestSurvey_EnvironmentsAreLeaves(t *testing.T) {
	tmp := t.TempDir()
	outer := filepath.Join(tmp, "outer")
	writeEnv(t, outer, nil)
	// A nested environment below a match must not be reported.
	inner := filepath.Join(outer, "envs", "inner")
	writeEnv(t, inner, nil)

	matches := collectMatches(t, New(), tmp)
	assert.Equal(t, []string{outer}, matches)
}

func TestSurvey_PruneNamesAreSkippedSilently(t *testing.T) {
	tmp := t.TempDir()
	for _, name := range []string{".git", ".rbenv", "pkgs"} {
		writeEnv(t, filepath.Join(tmp, name, "env"), nil)
	}
	keep := filepath.Join(tmp, "keep", "env")
	writeEnv(t, keep, nil)

	matches := collectMatches(t, New(), tmp)
	assert.Equal(t, []string{keep}, matches)
}

func TestSurvey_CustomPruneNames(t *testing.T) {
	tmp := t.TempDir()
	writeEnv(t, filepath.Join(tmp, "node_modules", "env"), nil)
	// With a custom denylist the defaults no longer apply.
	gitEnv := filepath.Join(tmp, ".git", "env")
	writeEnv(t, gitEnv, nil)

	s := New(WithPruneNames("node_modules"))
	matches := collectMatches(t, s, tmp)
	assert.Equal(t, []string{gitEnv}, matches)
}

func TestSurvey_PrunedNameAsEnvironmentStillReported(t *testing.T) {
	// The environment test wins over the denylist: a directory named pkgs
	// that IS an environment is reported, not pruned.
	tmp := t.TempDir()
	env := filepath.Join(tmp, "pkgs")
	writeEnv(t, env, nil)

	matches := collectMatches(t, New(), tmp)
	assert.Equal(t, []string{env}, matches)
}

func TestSurvey_SymlinkedRootIsFollowed(t *testing.T) {
	tmp := t.TempDir()
	real := filepath.Join(tmp, "real")
	env := filepath.Join(real, "env")
	writeEnv(t, env, nil)
	link := filepath.Join(tmp, "link")
	require.NoError(t, os.Symlink(real, link))

	matches := collectMatches(t, New(), link)
	require.Len(t, matches, 1)
	assert.True(t, IsEnvironment(matches[0]))
	assert.Equal(t, "env", filepath.Base(matches[0]))
}

func TestSurvey_MissingRootReportsError(t *testing.T) {
	var errs []error
	err := New().Survey(filepath.Join(t.TempDir(), "missing"), nil, func(e error) {
		errs = append(errs, e)
	})
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "missing")
}

func TestSurvey_MalformedMetadataAborts(t *testing.T) {
	tmp := t.TempDir()
	writeEnv(t, filepath.Join(tmp, "env"), map[string]string{
		"python-3.8.10-h.json": "{broken",
	})

	err := New().Survey(tmp, nil, nil)
	require.Error(t, err)
	var metaErr *MetadataError
	require.ErrorAs(t, err, &metaErr)
	assert.Equal(t, filepath.Join(tmp, "env", "conda-meta", "python-3.8.10-h.json"), metaErr.Path)
}

func TestSurvey_CustomPackages(t *testing.T) {
	tmp := t.TempDir()
	env := filepath.Join(tmp, "env")
	writeEnv(t, env, map[string]string{
		"numpy-1.20.0-h.json": `{"name": "numpy", "version": "1.20.0"}`,
		"conda-4.9.0.json":    `{"name": "conda", "version": "4.9.0"}`,
	})

	s := New(WithPackages("numpy"))
	g, err := s.Lookup(env)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"numpy": "1.20.0"}, g.Versions)
}

func TestSurvey_SharedCacheAcrossRoots(t *testing.T) {
	tmp := t.TempDir()
	env := filepath.Join(tmp, "envs", "a")
	writeEnv(t, env, nil)

	s := New()
	first := collectMatches(t, s, filepath.Join(tmp, "envs"))
	second := collectMatches(t, s, tmp)
	require.Len(t, first, 1)
	require.Len(t, second, 1)

	g1, err := s.Cache().Lookup(first[0])
	require.NoError(t, err)
	g2, err := s.Cache().Lookup(second[0])
	require.NoError(t, err)
	assert.Same(t, g1, g2)
}

func TestIndex_RecordsEnvironments(t *testing.T) {
	tmp := t.TempDir()
	envA := filepath.Join(tmp, "envA")
	writeEnv(t, envA, map[string]string{
		"conda-4.9.0.json":   `{"name": "conda", "version": "4.9.0"}`,
		"python-2.7.18.json": `{"name": "python", "version": "2.7.18"}`,
	})
	writeActivate(t, envA)
	envB := filepath.Join(tmp, "envB")
	writeEnv(t, envB, nil)
	linkActivate(t, envB, filepath.Join(envA, "bin", "activate"))

	st := newTestStore(t)
	s := New(WithStore(st))
	require.NoError(t, s.Index([]string{tmp}, nil))

	a, err := st.EnvironmentByPath(envA)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "self", a.BaseKind)
	assert.Empty(t, a.BasePath)

	versions, err := st.VersionsByEnv(a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"conda": "4.9.0", "python": "2.7.18"}, versions)

	b, err := st.EnvironmentByPath(envB)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "linked", b.BaseKind)
	assert.Equal(t, envA, b.BasePath)
}

func TestIndex_OverlappingRootsDeduplicate(t *testing.T) {
	tmp := t.TempDir()
	env := filepath.Join(tmp, "envs", "a")
	writeEnv(t, env, nil)

	st := newTestStore(t)
	s := New(WithStore(st))
	require.NoError(t, s.Index([]string{tmp, filepath.Join(tmp, "envs")}, nil))

	n, err := st.CountEnvironments()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndex_WithoutStore(t *testing.T) {
	err := New().Index([]string{t.TempDir()}, nil)
	require.Error(t, err)
}

func TestSurvey_StartDirIsEnvironment(t *testing.T) {
	tmp := t.TempDir()
	writeEnv(t, tmp, nil)

	matches := collectMatches(t, New(), tmp)
	abs, err := filepath.Abs(tmp)
	require.NoError(t, err)
	assert.Equal(t, []string{abs}, matches)
}

func TestSurvey_FilesAreIgnored(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "stray"), []byte("x"), 0o644))
	env := filepath.Join(tmp, "env")
	writeEnv(t, env, nil)

	matches := collectMatches(t, New(), tmp)
	assert.Equal(t, []string{env}, matches)
}
