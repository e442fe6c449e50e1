package graph

import (
	"context"
)

// MakeStats holds valuation statistics for a vehicle make.
type MakeStats struct {
	Name       string `json:"name"`
	Models     int64  `json:"models"`
	Valuations int64  `json:"valuations"`
}

// ConfidenceStats summarizes how well resolution is doing across the graph.
type ConfidenceStats struct {
	Count       int64   `json:"count"`
	Mean        float64 `json:"mean"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	BelowReview int64   `json:"below_review"`
}

// NodeCounts returns node counts grouped by label.
func (g *GraphStore) NodeCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n) RETURN labels(n)[0] AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts, nil
}

// TopMakes returns the makes with the most stored valuations.
func (g *GraphStore) TopMakes(ctx context.Context, limit int) ([]MakeStats, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (mk:Make)
		OPTIONAL MATCH (mk)-[:HAS_MODEL]->(m)
		OPTIONAL MATCH (v:Valuation)-[:OF_VEHICLE]->(:ModelYear)-[:OF_MODEL]->(m)
		RETURN mk.name AS name, count(DISTINCT m) AS models, count(DISTINCT v) AS valuations
		ORDER BY valuations DESC LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	var stats []MakeStats
	for result.Next(ctx) {
		rec := result.Record()
		name, _ := rec.Get("name")
		models, _ := rec.Get("models")
		vals, _ := rec.Get("valuations")
		s := MakeStats{}
		if n, ok := name.(string); ok {
			s.Name = n
		}
		if m, ok := models.(int64); ok {
			s.Models = m
		}
		if v, ok := vals.(int64); ok {
			s.Valuations = v
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// ConfidenceSummary aggregates confidence over all stored valuations.
// reviewThreshold counts how many records fall under the manual-review bar.
func (g *GraphStore) ConfidenceSummary(ctx context.Context, reviewThreshold float64) (ConfidenceStats, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (v:Valuation)
		RETURN count(v) AS count, avg(v.confidence) AS mean,
		       min(v.confidence) AS min, max(v.confidence) AS max,
		       count(CASE WHEN v.confidence < $threshold THEN 1 END) AS below`
	result, err := sess.Run(ctx, cypher, map[string]any{"threshold": reviewThreshold})
	if err != nil {
		return ConfidenceStats{}, err
	}
	var stats ConfidenceStats
	if result.Next(ctx) {
		rec := result.Record()
		if c, ok := recInt64(rec.Get("count")); ok {
			stats.Count = c
		}
		if m, ok := recFloat(rec.Get("mean")); ok {
			stats.Mean = m
		}
		if m, ok := recFloat(rec.Get("min")); ok {
			stats.Min = m
		}
		if m, ok := recFloat(rec.Get("max")); ok {
			stats.Max = m
		}
		if b, ok := recInt64(rec.Get("below")); ok {
			stats.BelowReview = b
		}
	}
	return stats, nil
}

func recInt64(v any, found bool) (int64, bool) {
	if !found {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}

func recFloat(v any, found bool) (float64, bool) {
	if !found {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}
