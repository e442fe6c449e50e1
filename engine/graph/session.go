package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Result is the minimal slice of a neo4j result the store reads. The real
// driver result satisfies it; mock results in tests implement it directly.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// CypherRunner runs a single Cypher statement. Both sessions and managed
// transactions satisfy it.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

// CypherSession is the slice of neo4j.SessionWithContext the store needs.
type CypherSession interface {
	CypherRunner
	ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// SessionOpener opens sessions on demand. The production opener wraps a
// Neo4j driver; tests inject their own.
type SessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

// driverOpener adapts neo4j.DriverWithContext to SessionOpener.
type driverOpener struct {
	driver neo4j.DriverWithContext
}

func (o *driverOpener) OpenSession(ctx context.Context) CypherSession {
	return &driverSession{sess: o.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

type driverSession struct {
	sess neo4j.SessionWithContext
}

func (s *driverSession) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := s.sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *driverSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&txRunner{tx: tx})
	})
}

func (s *driverSession) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

// txRunner adapts a managed transaction to CypherRunner.
type txRunner struct {
	tx neo4j.ManagedTransaction
}

func (r *txRunner) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := r.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}
