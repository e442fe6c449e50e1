package graph

import (
	"github.com/LossLensAI/losslens-engine/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// newValuationRepo creates a Neo4j-backed repository for Valuation nodes.
func newValuationRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[Valuation, string] {
	return repo.NewNeo4jRepo[Valuation, string](
		driver,
		"Valuation",
		valuationToMap,
		valuationFromRecord,
	)
}

func valuationFromRecord(rec *neo4j.Record) (Valuation, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Valuation{}, err
	}
	return valuationFromProps(node.Props), nil
}
