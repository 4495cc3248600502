package condascan

import (
	"fmt"
	"strings"

	"github.com/jward/condascan/internal/store"
)

// QueryBuilder provides a read API over an indexed scan.
type QueryBuilder struct {
	store *store.Store
}

// NewQuery returns a QueryBuilder over an existing store, for callers that
// manage the store themselves.
func NewQuery(st *store.Store) *QueryBuilder {
	return &QueryBuilder{store: st}
}

// Pagination controls offset+limit paging on list results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByPath     SortField = "path"
	SortByBaseKind SortField = "base_kind"
	SortByScanTime SortField = "scanned_at"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// EnvironmentFilter specifies which environments to include. All fields are
// optional.
type EnvironmentFilter struct {
	BaseKinds     []string // match any of these base kinds
	Package       string   // environment must carry this tracked package
	VersionPrefix string   // with Package, its version must start with this
	PathPrefix    string   // restrict to environments under this directory
}

// EnvironmentResult extends a stored environment with its version map.
type EnvironmentResult struct {
	store.Environment
	Versions map[string]string
}

// PagedResult wraps a page of results with the total count before paging.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int
}

// environmentSortColumn returns the ORDER BY expression for environment
// queries, falling back to path for unknown fields.
func environmentSortColumn(field SortField) string {
	switch field {
	case SortByBaseKind:
		return "base_kind"
	case SortByScanTime:
		return "scanned_at"
	default:
		return "path"
	}
}

// sortDirection returns "ASC" or "DESC".
func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

// Environments is the listing/filtering endpoint over an indexed scan.
func (q *QueryBuilder) Environments(filter EnvironmentFilter, sort Sort, page Pagination) (*PagedResult[EnvironmentResult], error) {
	page = page.normalize()

	var where []string
	var args []any

	if len(filter.BaseKinds) > 0 {
		where = append(where, "e.base_kind IN ("+store.PlaceholderList(len(filter.BaseKinds))+")")
		args = append(args, store.StringsToArgs(filter.BaseKinds)...)
	}
	if filter.Package != "" {
		clause := "EXISTS (SELECT 1 FROM env_versions v WHERE v.env_id = e.id AND v.package = ?"
		args = append(args, filter.Package)
		if filter.VersionPrefix != "" {
			clause += " AND v.version LIKE ?"
			args = append(args, filter.VersionPrefix+"%")
		}
		where = append(where, clause+")")
	}
	if filter.PathPrefix != "" {
		prefix := filter.PathPrefix
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		where = append(where, "e.path LIKE ?")
		args = append(args, prefix+"%")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countSQL := "SELECT COUNT(*) FROM environments e " + whereClause
	var totalCount int
	if err := q.store.DB().QueryRow(countSQL, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("environments: count: %w", err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT e.id, e.path, e.base_kind, e.base_path, e.scanned_at
		 FROM environments e
		 %s
		 ORDER BY %s %s
		 LIMIT ? OFFSET ?`,
		whereClause, environmentSortColumn(sort.Field), sortDirection(sort.Order),
	)
	dataArgs := append(append([]any{}, args...), page.Limit, page.Offset)

	rows, err := q.store.DB().Query(dataSQL, dataArgs...)
	if err != nil {
		return nil, fmt.Errorf("environments: query: %w", err)
	}
	defer rows.Close()

	var items []EnvironmentResult
	for rows.Next() {
		var er EnvironmentResult
		if err := rows.Scan(&er.ID, &er.Path, &er.BaseKind, &er.BasePath, &er.ScannedAt); err != nil {
			return nil, fmt.Errorf("environments: scan: %w", err)
		}
		items = append(items, er)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("environments: rows: %w", err)
	}

	for i := range items {
		versions, err := q.store.VersionsByEnv(items[i].ID)
		if err != nil {
			return nil, fmt.Errorf("environments: versions: %w", err)
		}
		items[i].Versions = versions
	}

	return &PagedResult[EnvironmentResult]{Items: items, TotalCount: totalCount}, nil
}

// Summary aggregates one indexed scan.
type Summary struct {
	// Environments is the total number of discovered environments.
	Environments int
	// ByBaseKind counts environments per base kind.
	ByBaseKind map[string]int
	// VersionCounts maps package -> version -> environment count.
	VersionCounts map[string]map[string]int
	// LegacyPython counts environments whose python version starts "2.".
	LegacyPython int
}

// Summarize computes aggregate counts over the indexed environments.
func (q *QueryBuilder) Summarize() (*Summary, error) {
	summary := &Summary{
		ByBaseKind:    make(map[string]int),
		VersionCounts: make(map[string]map[string]int),
	}

	total, err := q.store.CountEnvironments()
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	summary.Environments = total

	rows, err := q.store.DB().Query(
		"SELECT base_kind, COUNT(*) FROM environments GROUP BY base_kind",
	)
	if err != nil {
		return nil, fmt.Errorf("summarize: base kinds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("summarize: scan base kind: %w", err)
		}
		summary.ByBaseKind[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summarize: base kind rows: %w", err)
	}

	vrows, err := q.store.DB().Query(
		"SELECT package, version, COUNT(*) FROM env_versions GROUP BY package, version",
	)
	if err != nil {
		return nil, fmt.Errorf("summarize: versions: %w", err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var pkg, ver string
		var n int
		if err := vrows.Scan(&pkg, &ver, &n); err != nil {
			return nil, fmt.Errorf("summarize: scan version: %w", err)
		}
		if summary.VersionCounts[pkg] == nil {
			summary.VersionCounts[pkg] = make(map[string]int)
		}
		summary.VersionCounts[pkg][ver] = n
		if pkg == "python" && strings.HasPrefix(ver, "2.") {
			summary.LegacyPython += n
		}
	}
	if err := vrows.Err(); err != nil {
		return nil, fmt.Errorf("summarize: version rows: %w", err)
	}

	return summary, nil
}
