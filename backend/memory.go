package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory implements Querier against seeded in-memory tables.
// This is useful for testing but not recommended for production: it
// evaluates filters, search, ordering, ranges and counts the way the
// hosted backend does, and records call counts so tests can assert on
// de-duplication and gating behavior.
type Memory struct {
	mu          sync.Mutex
	tables      map[string][]map[string]any
	rpcs        map[string]func(args map[string]any) (any, error)
	tableErrs   map[string]error
	mutateErrs  map[string]error
	queryCalls  map[string]int
	mutateCalls map[string]int
	queryDelay  time.Duration
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		tables:      make(map[string][]map[string]any),
		rpcs:        make(map[string]func(args map[string]any) (any, error)),
		tableErrs:   make(map[string]error),
		mutateErrs:  make(map[string]error),
		queryCalls:  make(map[string]int),
		mutateCalls: make(map[string]int),
	}
}

// Seed replaces the rows of a table.
func (m *Memory) Seed(table string, rows []map[string]any) {
	m.mu.Lock()
	m.tables[table] = rows
	m.mu.Unlock()
}

// OnRPC registers a handler for a named server-side function.
func (m *Memory) OnRPC(fn string, handler func(args map[string]any) (any, error)) {
	m.mu.Lock()
	m.rpcs[fn] = handler
	m.mu.Unlock()
}

// FailQueries makes every query against table fail with err (nil clears).
func (m *Memory) FailQueries(table string, err error) {
	m.mu.Lock()
	if err == nil {
		delete(m.tableErrs, table)
	} else {
		m.tableErrs[table] = err
	}
	m.mu.Unlock()
}

// FailMutations makes every mutation against table fail with err (nil clears).
func (m *Memory) FailMutations(table string, err error) {
	m.mu.Lock()
	if err == nil {
		delete(m.mutateErrs, table)
	} else {
		m.mutateErrs[table] = err
	}
	m.mu.Unlock()
}

// SetQueryDelay makes each query sleep before returning, widening the
// in-flight window so tests can overlap concurrent requests.
func (m *Memory) SetQueryDelay(d time.Duration) {
	m.mu.Lock()
	m.queryDelay = d
	m.mu.Unlock()
}

// QueryCalls returns how many queries ran against table.
func (m *Memory) QueryCalls(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryCalls[table]
}

// MutateCalls returns how many mutations ran against table.
func (m *Memory) MutateCalls(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateCalls[table]
}

// Query runs a table read against the seeded rows.
func (m *Memory) Query(_ context.Context, table string, spec QuerySpec) (Result, error) {
	m.mu.Lock()
	m.queryCalls[table]++
	forced := m.tableErrs[table]
	rows := m.tables[table]
	delay := m.queryDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if forced != nil {
		return Result{}, forced
	}

	filtered := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if matchesConds(row, spec.Conds) && matchesOr(row, spec.Or) {
			filtered = append(filtered, row)
		}
	}

	if spec.OrderBy != nil {
		col, desc := spec.OrderBy.Column, spec.OrderBy.Descending
		sort.SliceStable(filtered, func(i, j int) bool {
			less := lessValue(filtered[i][col], filtered[j][col])
			if desc {
				return !less && !equalValue(filtered[i][col], filtered[j][col])
			}
			return less
		})
	}

	res := Result{Count: -1}
	if spec.Count || spec.Head {
		res.Count = len(filtered)
	}
	if spec.Head {
		return res, nil
	}

	if spec.Limit > 0 {
		start := spec.Offset
		if start > len(filtered) {
			start = len(filtered)
		}
		end := start + spec.Limit
		if end > len(filtered) {
			end = len(filtered)
		}
		filtered = filtered[start:end]
	}

	raw, err := json.Marshal(filtered)
	if err != nil {
		return Result{}, fmt.Errorf("backend: failed to encode rows: %w", err)
	}
	res.Rows = raw
	return res, nil
}

// Mutate patches the rows matched by the equality conditions in match.
func (m *Memory) Mutate(_ context.Context, table string, match map[string]any, patch map[string]any) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mutateCalls[table]++
	if err := m.mutateErrs[table]; err != nil {
		return nil, err
	}

	var updated map[string]any
	for _, row := range m.tables[table] {
		ok := true
		for col, v := range match {
			if !equalValue(row[col], v) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for col, v := range patch {
			row[col] = v
		}
		updated = row
		break
	}

	if updated == nil {
		return nil, &RejectionError{Status: 406, Message: "no rows matched"}
	}

	raw, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to encode row: %w", err)
	}
	return raw, nil
}

// RPC invokes a registered function.
func (m *Memory) RPC(_ context.Context, fn string, args map[string]any) (json.RawMessage, error) {
	m.mu.Lock()
	handler := m.rpcs[fn]
	m.mu.Unlock()

	if handler == nil {
		return nil, &RejectionError{Status: 404, Message: "function " + fn + " does not exist"}
	}
	out, err := handler(args)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to encode rpc result: %w", err)
	}
	return raw, nil
}

func matchesConds(row map[string]any, conds []Cond) bool {
	for _, c := range conds {
		if !matchCond(row, c) {
			return false
		}
	}
	return true
}

func matchesOr(row map[string]any, or []Cond) bool {
	if len(or) == 0 {
		return true
	}
	for _, c := range or {
		if matchCond(row, c) {
			return true
		}
	}
	return false
}

func matchCond(row map[string]any, c Cond) bool {
	v := row[c.Column]
	switch c.Op {
	case "eq":
		return equalValue(v, c.Value)
	case "neq":
		return !equalValue(v, c.Value)
	case "gt":
		return lessValue(c.Value, v)
	case "gte":
		return !lessValue(v, c.Value)
	case "lt":
		return lessValue(v, c.Value)
	case "lte":
		return !lessValue(c.Value, v)
	case "ilike":
		s, ok := v.(string)
		if !ok {
			return false
		}
		term := fmt.Sprintf("%v", c.Value)
		return strings.Contains(strings.ToLower(s), strings.ToLower(term))
	}
	return false
}

func equalValue(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func lessValue(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af < bf
		}
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// MemoryAuth implements AuthClient in memory for tests.
type MemoryAuth struct {
	mu        sync.Mutex
	session   *AuthSession
	listeners map[int]AuthStateFunc
	nextID    int
	creds     map[string]string // email -> password
	userIDs   map[string]string // email -> user id
	signOuts  int
}

// NewMemoryAuth creates an in-memory auth client with no session.
func NewMemoryAuth() *MemoryAuth {
	return &MemoryAuth{
		listeners: make(map[int]AuthStateFunc),
		creds:     make(map[string]string),
		userIDs:   make(map[string]string),
	}
}

// RegisterUser seeds an account usable with SignInWithPassword.
func (a *MemoryAuth) RegisterUser(email, password, userID string) {
	a.mu.Lock()
	a.creds[email] = password
	a.userIDs[email] = userID
	a.mu.Unlock()
}

// SetSession installs a session directly and fires the state listeners,
// simulating an auth state transition from the provider.
func (a *MemoryAuth) SetSession(s *AuthSession) {
	a.mu.Lock()
	a.session = s
	fns := a.snapshotListeners()
	a.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// Session returns the current session.
func (a *MemoryAuth) Session(_ context.Context) (*AuthSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return nil, nil
	}
	s := *a.session
	return &s, nil
}

// SignInWithPassword authenticates against the registered accounts.
func (a *MemoryAuth) SignInWithPassword(_ context.Context, email, password string) (*AuthSession, error) {
	a.mu.Lock()
	want, ok := a.creds[email]
	if !ok || want != password {
		a.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	s := &AuthSession{
		AccessToken: "token-" + a.userIDs[email],
		UserID:      a.userIDs[email],
		Email:       email,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	a.session = s
	fns := a.snapshotListeners()
	a.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
	return s, nil
}

// SignUp registers a new account and signs it in.
func (a *MemoryAuth) SignUp(ctx context.Context, email, password string) (*AuthSession, error) {
	a.mu.Lock()
	if _, exists := a.creds[email]; exists {
		a.mu.Unlock()
		return nil, &RejectionError{Status: 422, Message: "user already registered"}
	}
	a.creds[email] = password
	a.userIDs[email] = "user-" + email
	a.mu.Unlock()
	return a.SignInWithPassword(ctx, email, password)
}

// SignOut clears the session and fires the state listeners.
func (a *MemoryAuth) SignOut(_ context.Context) error {
	a.mu.Lock()
	a.session = nil
	a.signOuts++
	fns := a.snapshotListeners()
	a.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}
	return nil
}

// SignOutCount returns how many sign-outs were performed.
func (a *MemoryAuth) SignOutCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.signOuts
}

// OnAuthStateChange registers fn for session transitions.
func (a *MemoryAuth) OnAuthStateChange(fn AuthStateFunc) func() {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.listeners[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *MemoryAuth) snapshotListeners() []AuthStateFunc {
	fns := make([]AuthStateFunc, 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	return fns
}
