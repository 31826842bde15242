// Package introspect exposes a read-only GraphQL schema over a
// StorageManager's operational statistics: container ids, page counts, and
// cumulative read/write counters. There is no document layer in this
// system, so unlike the teacher's schema there is no mutation type here -
// only introspection.
package introspect

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/mnohosten/laura-db/pkg/storage"
)

// Schema builds the GraphQL schema over sm's container statistics.
func Schema(sm *storage.StorageManager) (graphql.Schema, error) {
	containerStatsType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "ContainerStats",
		Description: "Page count and cumulative I/O counters for one container",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Container id",
			},
			"numPages": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Number of pages currently written to the container's heap file",
			},
			"reads": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Cumulative page reads (advisory)",
			},
			"writes": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Cumulative page writes (advisory)",
			},
		},
	})

	resolveContainerStats := func(sm *storage.StorageManager, id uint16) (map[string]interface{}, error) {
		numPages, reads, writes, err := sm.ContainerStats(id)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"id":       int(id),
			"numPages": numPages,
			"reads":    reads,
			"writes":   writes,
		}, nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"containers": &graphql.Field{
				Type:        graphql.NewList(graphql.NewNonNull(containerStatsType)),
				Description: "Statistics for every known container",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ids := sm.ContainerIDs()
					out := make([]map[string]interface{}, 0, len(ids))
					for _, id := range ids {
						stats, err := resolveContainerStats(sm, id)
						if err != nil {
							return nil, fmt.Errorf("introspect: container %d: %w", id, err)
						}
						out = append(out, stats)
					}
					return out, nil
				},
			},
			"container": &graphql.Field{
				Type:        containerStatsType,
				Description: "Statistics for a single container by id",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(int)
					return resolveContainerStats(sm, uint16(id))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}
