// Package backend wraps the hosted backend's query, mutation, RPC and
// auth APIs behind small interfaces the SDK consumes. The REST
// implementations speak the backend's PostgREST-style wire conventions;
// the in-memory implementations back the test suite.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Cond is a single column condition, e.g. {Column: "shop_id", Op: "eq"}.
// Supported operators: eq, neq, gt, gte, lt, lte, ilike. For ilike the
// value is the raw search term; the substring wildcards are added by the
// implementation.
type Cond struct {
	Column string
	Op     string
	Value  any
}

// Order describes result ordering on a single column.
type Order struct {
	Column     string
	Descending bool
}

// QuerySpec describes a table read: projection, filters, ordering, range
// and count behavior.
type QuerySpec struct {
	// Select is the projection, defaulting to "*". Embedded relations use
	// the backend's syntax, e.g. "*, shops(name, velmo_id)".
	Select string

	// Conds are AND-combined conditions.
	Conds []Cond

	// Or is an OR-combined condition group, applied in addition to Conds.
	// Used for free-text search across several columns.
	Or []Cond

	OrderBy *Order

	// Limit of 0 means no limit. Offset is only meaningful with a Limit.
	Limit  int
	Offset int

	// Count requests an exact total row count ignoring the range.
	Count bool

	// Head skips row retrieval entirely; only the count is returned.
	Head bool
}

// Result carries the rows of a query as raw JSON (a JSON array) plus the
// exact count when it was requested.
type Result struct {
	Rows  json.RawMessage
	Count int
}

// Querier is the remote data client: table reads, single-row mutations
// and privileged RPCs. Implementations do not retry; retry policy belongs
// to the caller.
type Querier interface {
	// Query runs a table read described by spec.
	Query(ctx context.Context, table string, spec QuerySpec) (Result, error)

	// Mutate patches the rows matched by the equality conditions in match
	// and returns the updated row as a raw JSON object.
	Mutate(ctx context.Context, table string, match map[string]any, patch map[string]any) (json.RawMessage, error)

	// RPC invokes a named server-side function with the given arguments
	// and returns its raw JSON result.
	RPC(ctx context.Context, fn string, args map[string]any) (json.RawMessage, error)
}

// RejectionError is a completed call the backend refused: constraint
// violation, permission denial, missing view or table. Distinct from
// transport errors, which surface as wrapped network errors.
type RejectionError struct {
	Status  int
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: rejected (status %d, code %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend: rejected (status %d): %s", e.Status, e.Message)
}

// IsRejection reports whether err (or anything it wraps) is a backend
// rejection, and returns it.
func IsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
