package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// mockResult replays a fixed list of records.
type mockResult struct {
	records []*neo4j.Record
	pos     int
}

func newMockResult(records ...*neo4j.Record) *mockResult {
	return &mockResult{records: records}
}

func (r *mockResult) Next(_ context.Context) bool {
	if r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

func (r *mockResult) Record() *neo4j.Record {
	if r.pos == 0 || r.pos > len(r.records) {
		return nil
	}
	return r.records[r.pos-1]
}

// newRecord builds a record from parallel keys and values. Values may be
// plain property maps; the store reads them either way.
func newRecord(keys []string, values ...any) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

// makeNodeRecord wraps node properties in a record under key "n".
func makeNodeRecord(props map[string]any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"n"},
		Values: []any{dbtype.Node{Props: props}},
	}
}

// mockSession records run calls and returns canned results.
type mockSession struct {
	runResult *mockResult
	runErr    error
	writeErr  error
	cyphers   []string
	params    []map[string]any
	closed    bool
}

func (s *mockSession) Run(_ context.Context, cypher string, params map[string]any) (Result, error) {
	s.cyphers = append(s.cyphers, cypher)
	s.params = append(s.params, params)
	if s.runErr != nil {
		return nil, s.runErr
	}
	if s.runResult != nil {
		return s.runResult, nil
	}
	return newMockResult(), nil
}

func (s *mockSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	return work(s)
}

func (s *mockSession) Close(_ context.Context) error {
	s.closed = true
	return nil
}

type mockOpener struct {
	session CypherSession
}

func (o *mockOpener) OpenSession(_ context.Context) CypherSession {
	return o.session
}

// txErrorSession fails the nth Run call inside a write transaction.
type txErrorSession struct {
	failAt int
	count  *int
	closed bool
}

func (s *txErrorSession) Run(_ context.Context, _ string, _ map[string]any) (Result, error) {
	n := *s.count
	*s.count = n + 1
	if n == s.failAt {
		return nil, errTxRun
	}
	return newMockResult(), nil
}

func (s *txErrorSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return work(s)
}

func (s *txErrorSession) Close(_ context.Context) error {
	s.closed = true
	return nil
}
