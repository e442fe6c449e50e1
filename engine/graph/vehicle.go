package graph

import (
	"context"
	"fmt"
	"strings"
)

// makeID derives a stable node ID from a make name.
func makeID(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

// vehicleModelID derives a stable node ID for a model under a make.
func vehicleModelID(makeName, model string) string {
	return fmt.Sprintf("%s-%s", makeID(makeName), strings.ToLower(strings.ReplaceAll(model, " ", "-")))
}

// modelYearID derives a stable node ID for a make/model/year triple.
func modelYearID(vi VehicleInfo) string {
	return fmt.Sprintf("%s-%d", vehicleModelID(vi.Make, vi.Model), vi.Year)
}

// SaveMake creates or updates a Make node.
func (g *GraphStore) SaveMake(ctx context.Context, m Make) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (n:Make {id: $id}) SET n.name = $name`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id":   m.ID,
		"name": m.Name,
	})
	return err
}

// SaveVehicleModel creates or updates a VehicleModel node and links it to its Make.
func (g *GraphStore) SaveVehicleModel(ctx context.Context, m VehicleModel) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (n:VehicleModel {id: $id}) SET n.name = $name, n.make_id = $makeID
	           WITH n
	           MATCH (mk:Make {id: $makeID})
	           MERGE (mk)-[:HAS_MODEL]->(n)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id":     m.ID,
		"name":   m.Name,
		"makeID": m.MakeID,
	})
	return err
}

// SaveModelYear creates or updates a ModelYear node and links it to its VehicleModel.
func (g *GraphStore) SaveModelYear(ctx context.Context, my ModelYear) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (n:ModelYear {id: $id})
	           SET n.year = $year, n.make = $make, n.model = $model
	           WITH n
	           MATCH (m:VehicleModel {id: $modelID})
	           MERGE (n)-[:OF_MODEL]->(m)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"id":      my.ID,
		"year":    my.Year,
		"make":    my.Make,
		"model":   my.Model,
		"modelID": vehicleModelID(my.Make, my.Model),
	})
	return err
}

// EnsureVehicleHierarchy creates Make→VehicleModel→ModelYear in a single
// transaction. Safe to call repeatedly; everything is MERGEd.
func (g *GraphStore) EnsureVehicleHierarchy(ctx context.Context, vi VehicleInfo) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	mkID := makeID(vi.Make)
	modelID := vehicleModelID(vi.Make, vi.Model)
	myID := modelYearID(vi)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		cypher := `MERGE (mk:Make {id: $id}) SET mk.name = $name`
		if _, err := tx.Run(ctx, cypher, map[string]any{"id": mkID, "name": vi.Make}); err != nil {
			return nil, err
		}

		cypher = `MERGE (m:VehicleModel {id: $id}) SET m.name = $name, m.make_id = $makeID
		          WITH m
		          MATCH (mk:Make {id: $makeID})
		          MERGE (mk)-[:HAS_MODEL]->(m)`
		if _, err := tx.Run(ctx, cypher, map[string]any{"id": modelID, "name": vi.Model, "makeID": mkID}); err != nil {
			return nil, err
		}

		cypher = `MERGE (my:ModelYear {id: $id}) SET my.year = $year, my.make = $make, my.model = $model
		          WITH my
		          MATCH (m:VehicleModel {id: $modelID})
		          MERGE (my)-[:OF_MODEL]->(m)`
		if _, err := tx.Run(ctx, cypher, map[string]any{
			"id": myID, "year": vi.Year, "make": vi.Make, "model": vi.Model, "modelID": modelID,
		}); err != nil {
			return nil, err
		}

		return nil, nil
	})
	return err
}

// GetVehicleHierarchy returns the Make, VehicleModel, and ModelYear nodes
// for a vehicle.
func (g *GraphStore) GetVehicleHierarchy(ctx context.Context, vi VehicleInfo) (Make, VehicleModel, ModelYear, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	mkID := makeID(vi.Make)
	modelID := vehicleModelID(vi.Make, vi.Model)
	myID := modelYearID(vi)

	cypher := `MATCH (mk:Make {id: $makeID})-[:HAS_MODEL]->(m:VehicleModel {id: $modelID})<-[:OF_MODEL]-(my:ModelYear {id: $myID})
	           RETURN mk, m, my`
	result, err := sess.Run(ctx, cypher, map[string]any{
		"makeID":  mkID,
		"modelID": modelID,
		"myID":    myID,
	})
	if err != nil {
		return Make{}, VehicleModel{}, ModelYear{}, err
	}
	if !result.Next(ctx) {
		return Make{}, VehicleModel{}, ModelYear{}, fmt.Errorf("vehicle hierarchy not found for %s %s %d", vi.Make, vi.Model, vi.Year)
	}

	rec := result.Record()
	mkVal, _ := rec.Get("mk")
	mVal, _ := rec.Get("m")
	myVal, _ := rec.Get("my")

	mk := Make{
		ID:   strFromNode(mkVal, "id"),
		Name: strFromNode(mkVal, "name"),
	}
	vm := VehicleModel{
		ID:     strFromNode(mVal, "id"),
		Name:   strFromNode(mVal, "name"),
		MakeID: strFromNode(mVal, "make_id"),
	}
	my := ModelYear{
		ID:    strFromNode(myVal, "id"),
		Year:  intFromNode(myVal, "year"),
		Make:  strFromNode(myVal, "make"),
		Model: strFromNode(myVal, "model"),
	}

	return mk, vm, my, nil
}

// strFromNode extracts a string property from a node-like value.
func strFromNode(val any, key string) string {
	type propsHolder interface {
		GetProperties() map[string]any
	}
	if ph, ok := val.(propsHolder); ok {
		return strProp(ph.GetProperties(), key)
	}
	// Try map directly for test mocks.
	if m, ok := val.(map[string]any); ok {
		return strProp(m, key)
	}
	return ""
}

// intFromNode extracts an int property from a node-like value.
func intFromNode(val any, key string) int {
	type propsHolder interface {
		GetProperties() map[string]any
	}
	if ph, ok := val.(propsHolder); ok {
		return intProp(ph.GetProperties(), key)
	}
	if m, ok := val.(map[string]any); ok {
		return intProp(m, key)
	}
	return 0
}
