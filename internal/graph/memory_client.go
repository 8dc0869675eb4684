package graph

import (
	"context"
	"sync"
)

// MemoryClient is an in-memory Client used to exercise the service and
// HTTP layers without a running database.
type MemoryClient struct {
	mu           sync.Mutex
	flavor       Flavor
	calls        []ExecutedQuery
	byQuery      map[string]Result
	errByQuery   map[string]error
	queued       []Result
	err          error
	connectivity error
	closed       bool
}

// ExecutedQuery captures a statement and its parameters.
type ExecutedQuery struct {
	Query  string
	Params []any
}

// NewMemoryClient instantiates the in-memory client for the given flavor.
func NewMemoryClient(flavor Flavor) *MemoryClient {
	return &MemoryClient{
		flavor:     flavor,
		byQuery:    make(map[string]Result),
		errByQuery: make(map[string]error),
	}
}

// WithError configures the client to return the provided error for every Execute call.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces Ping to return the supplied error.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// SetResult answers every execution of query with res.
func (m *MemoryClient) SetResult(query string, res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byQuery[query] = res
}

// SetQueryError fails every execution of query with err.
func (m *MemoryClient) SetQueryError(query string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errByQuery[query] = err
}

// PushResult appends a result returned by the next Execute call that has
// no per-query answer.
func (m *MemoryClient) PushResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, res)
}

func (m *MemoryClient) Flavor() Flavor { return m.flavor }

func (m *MemoryClient) Execute(_ context.Context, query string, params ...any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Result{}, m.err
	}

	m.calls = append(m.calls, ExecutedQuery{
		Query:  query,
		Params: append([]any(nil), params...),
	})

	if err, ok := m.errByQuery[query]; ok {
		return Result{}, err
	}
	if res, ok := m.byQuery[query]; ok {
		return res, nil
	}
	if len(m.queued) == 0 {
		return Result{}, nil
	}

	res := m.queued[0]
	m.queued = m.queued[1:]
	return res, nil
}

func (m *MemoryClient) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Calls returns a snapshot of executed statements.
func (m *MemoryClient) Calls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.calls...)
}
