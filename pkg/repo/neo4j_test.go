package repo

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestNewNeo4jRepoDefaults(t *testing.T) {
	r := NewNeo4jRepo[map[string]any, string](
		nil,
		"Valuation",
		func(m map[string]any) map[string]any { return m },
		nil,
		WithIDKey[map[string]any, string]("record_id"),
	)
	if r.idKey != "record_id" {
		t.Fatalf("expected idKey=record_id, got %s", r.idKey)
	}
	if r.label != "Valuation" {
		t.Fatalf("expected label=Valuation, got %s", r.label)
	}
}

func TestNewNeo4jRepoDefaultIDKey(t *testing.T) {
	r := NewNeo4jRepo[map[string]any, string](nil, "Make", nil, nil)
	if r.idKey != "id" {
		t.Fatalf("expected default idKey=id, got %s", r.idKey)
	}
}

type fakeDriver struct {
	neo4j.DriverWithContext
	sessionCreated bool
}

type fakeSession struct {
	neo4j.SessionWithContext
}

func (d *fakeDriver) NewSession(_ context.Context, _ neo4j.SessionConfig) neo4j.SessionWithContext {
	d.sessionCreated = true
	return &fakeSession{}
}

// The repo falls back to driver.NewSession when no session factory is
// injected; the result must be wrapped in the adapter so both the injected
// and real paths satisfy the same runner interface.
func TestSession_DriverFallback(t *testing.T) {
	fd := &fakeDriver{}
	r := &Neo4jRepo[string, string]{driver: fd}

	sess := r.session(context.Background())
	if sess == nil {
		t.Fatal("expected non-nil session")
	}
	if !fd.sessionCreated {
		t.Fatal("expected driver.NewSession to be called")
	}
	if _, ok := sess.(*neo4jSessionAdapter); !ok {
		t.Fatal("expected neo4jSessionAdapter")
	}
}

func TestNeo4jSessionAdapter_SatisfiesRunner(t *testing.T) {
	var _ runner = (*neo4jSessionAdapter)(nil)
}
