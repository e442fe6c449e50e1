package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LossLensAI/losslens-engine/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// GraphStore provides valuation graph operations on top of the generic
// Neo4j repository.
type GraphStore struct {
	opener     SessionOpener
	valuations *repo.Neo4jRepo[Valuation, string]
}

// New creates a GraphStore backed by a Neo4j driver.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return &GraphStore{
		opener:     &driverOpener{driver: driver},
		valuations: newValuationRepo(driver),
	}
}

// NewWithOpener creates a GraphStore on a custom session opener. Used by
// tests; list/get operations fall back to raw Cypher through the opener.
func NewWithOpener(opener SessionOpener) *GraphStore {
	return &GraphStore{opener: opener}
}

// SaveValuation persists a resolved record and, when the vehicle identity is
// known, links it to its ModelYear node in one write transaction.
func (g *GraphStore) SaveValuation(ctx context.Context, v Valuation) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		cypher := `MERGE (n:Valuation {id: $id}) SET n += $props`
		if _, err := tx.Run(ctx, cypher, map[string]any{
			"id":    v.ID,
			"props": valuationToMap(v),
		}); err != nil {
			return nil, err
		}
		if !v.HasVehicle() {
			return nil, nil
		}
		cypher = `MATCH (n:Valuation {id: $id}), (my:ModelYear {id: $myID})
		          MERGE (n)-[:OF_VEHICLE]->(my)`
		if _, err := tx.Run(ctx, cypher, map[string]any{
			"id":   v.ID,
			"myID": modelYearID(v.Vehicle()),
		}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// GetValuation returns a valuation by ID.
func (g *GraphStore) GetValuation(ctx context.Context, id string) (Valuation, error) {
	if g.valuations != nil {
		return g.valuations.Get(ctx, id)
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Valuation {id: $id}) RETURN n`
	result, err := sess.Run(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return Valuation{}, err
	}
	items, err := collectValuations(ctx, result)
	if err != nil {
		return Valuation{}, err
	}
	if len(items) == 0 {
		return Valuation{}, fmt.Errorf("valuation %s: %w", id, repo.ErrNotFound)
	}
	return items[0], nil
}

// ListValuations returns valuations ordered by creation time, newest first.
func (g *GraphStore) ListValuations(ctx context.Context, opts repo.ListOpts) ([]Valuation, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	cypher := `MATCH (n:Valuation) RETURN n ORDER BY n.created_at DESC SKIP $offset LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"offset": opts.Offset, "limit": limit})
	if err != nil {
		return nil, err
	}
	return collectValuations(ctx, result)
}

// FindByVIN returns all valuations recorded for an identifier code.
func (g *GraphStore) FindByVIN(ctx context.Context, vin string) ([]Valuation, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Valuation {vin: $vin}) RETURN n ORDER BY n.created_at DESC`
	result, err := sess.Run(ctx, cypher, map[string]any{"vin": vin})
	if err != nil {
		return nil, err
	}
	return collectValuations(ctx, result)
}

// FindByVehicle returns valuations linked to a specific make/model/year.
func (g *GraphStore) FindByVehicle(ctx context.Context, vi VehicleInfo) ([]Valuation, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Valuation)-[:OF_VEHICLE]->(my:ModelYear {id: $myID})
	           RETURN n ORDER BY n.created_at DESC`
	result, err := sess.Run(ctx, cypher, map[string]any{"myID": modelYearID(vi)})
	if err != nil {
		return nil, err
	}
	return collectValuations(ctx, result)
}

// DeleteValuation removes a valuation node and its relationships.
func (g *GraphStore) DeleteValuation(ctx context.Context, id string) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n:Valuation {id: $id}) DETACH DELETE n`
	_, err := sess.Run(ctx, cypher, map[string]any{"id": id})
	return err
}

// collectValuations reads all Valuation nodes from a result set.
func collectValuations(ctx context.Context, result Result) ([]Valuation, error) {
	var items []Valuation
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "n")
		if err != nil {
			return nil, err
		}
		items = append(items, valuationFromProps(node.Props))
	}
	return items, nil
}

// valuationToMap flattens a Valuation into node properties. Warnings are
// joined because Neo4j property values must be primitives or arrays of one
// primitive type; a joined string keeps reads simple.
func valuationToMap(v Valuation) map[string]any {
	return map[string]any{
		"id":               v.ID,
		"doc_id":           v.DocID,
		"vin":              v.VIN,
		"model_year":       v.ModelYear,
		"make":             v.Make,
		"model":            v.Model,
		"odometer":         v.Odometer,
		"location":         v.Location,
		"market_value":     v.MarketValue,
		"settlement_value": v.SettlementValue,
		"dialect":          v.Dialect,
		"confidence":       v.Confidence,
		"warnings":         strings.Join(v.Warnings, "\n"),
		"created_at":       v.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// valuationFromProps rebuilds a Valuation from node properties.
func valuationFromProps(props map[string]any) Valuation {
	v := Valuation{
		ID:              strProp(props, "id"),
		DocID:           strProp(props, "doc_id"),
		VIN:             strProp(props, "vin"),
		ModelYear:       intProp(props, "model_year"),
		Make:            strProp(props, "make"),
		Model:           strProp(props, "model"),
		Odometer:        intProp(props, "odometer"),
		Location:        strProp(props, "location"),
		MarketValue:     floatProp(props, "market_value"),
		SettlementValue: floatProp(props, "settlement_value"),
		Dialect:         strProp(props, "dialect"),
		Confidence:      floatProp(props, "confidence"),
	}
	if w := strProp(props, "warnings"); w != "" {
		v.Warnings = strings.Split(w, "\n")
	}
	if at := strProp(props, "created_at"); at != "" {
		if t, err := time.Parse(time.RFC3339Nano, at); err == nil {
			v.CreatedAt = t
		}
	}
	return v
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intProp(props map[string]any, key string) int {
	switch v := props[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatProp(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}
