// Package graphql exposes the built diagram and risk summary through a
// fixed GraphQL schema, for frontends that prefer one round trip over the
// REST endpoints.
package graphql

import (
	"fmt"
	"sort"

	"github.com/graphql-go/graphql"
	"golang.org/x/exp/maps"

	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/diagram"
)

// Provider supplies the data the resolvers read. The API server implements
// it over its current table and cache.
type Provider interface {
	CurrentGraph(opts diagram.Options) *diagram.Graph
	CurrentSummary() bowtie.Summary
}

var nodeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Node",
	Fields: graphql.Fields{
		"id":       &graphql.Field{Type: graphql.Int},
		"label":    &graphql.Field{Type: graphql.String},
		"group":    &graphql.Field{Type: graphql.String},
		"color":    &graphql.Field{Type: graphql.String},
		"shape":    &graphql.Field{Type: graphql.String},
		"size":     &graphql.Field{Type: graphql.Int},
		"fontSize": &graphql.Field{Type: graphql.Int},
	},
})

var edgeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Edge",
	Fields: graphql.Fields{
		"from":   &graphql.Field{Type: graphql.Int},
		"to":     &graphql.Field{Type: graphql.Int},
		"arrows": &graphql.Field{Type: graphql.String},
		"color":  &graphql.Field{Type: graphql.String},
		"width":  &graphql.Field{Type: graphql.Int},
		"dashes": &graphql.Field{Type: graphql.Boolean},
	},
})

var graphType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Graph",
	Fields: graphql.Fields{
		"nodes": &graphql.Field{Type: graphql.NewList(nodeType)},
		"edges": &graphql.Field{Type: graphql.NewList(edgeType)},
	},
})

var levelCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "LevelCount",
	Fields: graphql.Fields{
		"level": &graphql.Field{Type: graphql.String},
		"count": &graphql.Field{Type: graphql.Int},
	},
})

var summaryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "RiskSummary",
	Fields: graphql.Fields{
		"rows":            &graphql.Field{Type: graphql.Int},
		"byLevel":         &graphql.Field{Type: graphql.NewList(levelCountType)},
		"centralProblems": &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

type levelCount struct {
	Level string `json:"level"`
	Count int    `json:"count"`
}

type graphView struct {
	Nodes []nodeView `json:"nodes"`
	Edges []edgeView `json:"edges"`
}

type nodeView struct {
	ID       int    `json:"id"`
	Label    string `json:"label"`
	Group    string `json:"group"`
	Color    string `json:"color"`
	Shape    string `json:"shape"`
	Size     int    `json:"size"`
	FontSize int    `json:"fontSize"`
}

type edgeView struct {
	From   int    `json:"from"`
	To     int    `json:"to"`
	Arrows string `json:"arrows"`
	Color  string `json:"color"`
	Width  int    `json:"width"`
	Dashes bool   `json:"dashes"`
}

type summaryView struct {
	Rows            int          `json:"rows"`
	ByLevel         []levelCount `json:"byLevel"`
	CentralProblems []string     `json:"centralProblems"`
}

// NewSchema builds the query schema over the provider.
func NewSchema(provider Provider) (graphql.Schema, error) {
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return "ok", nil
				},
			},
			"graph": &graphql.Field{
				Type: graphType,
				Args: graphql.FieldConfigArgument{
					"showIntermediate": &graphql.ArgumentConfig{
						Type:         graphql.Boolean,
						DefaultValue: true,
					},
					"showRiskColors": &graphql.ArgumentConfig{
						Type:         graphql.Boolean,
						DefaultValue: false,
					},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					opts := diagram.Options{
						ShowIntermediate: p.Args["showIntermediate"].(bool),
						ShowRiskColors:   p.Args["showRiskColors"].(bool),
					}
					g := provider.CurrentGraph(opts)
					if g == nil {
						return nil, fmt.Errorf("no table loaded")
					}
					return toGraphView(g), nil
				},
			},
			"riskSummary": &graphql.Field{
				Type: summaryType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return toSummaryView(provider.CurrentSummary()), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
}

func toGraphView(g *diagram.Graph) graphView {
	view := graphView{
		Nodes: make([]nodeView, len(g.Nodes)),
		Edges: make([]edgeView, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		view.Nodes[i] = nodeView{
			ID: n.ID, Label: n.Label, Group: n.Group, Color: n.Color,
			Shape: n.Shape, Size: n.Size, FontSize: n.FontSize,
		}
	}
	for i, e := range g.Edges {
		view.Edges[i] = edgeView{
			From: e.From, To: e.To, Arrows: e.Arrows, Color: e.Color,
			Width: e.Width, Dashes: e.Dashes,
		}
	}
	return view
}

func toSummaryView(s bowtie.Summary) summaryView {
	levels := maps.Keys(s.ByLevel)
	sort.Strings(levels)

	byLevel := make([]levelCount, 0, len(levels))
	for _, level := range levels {
		byLevel = append(byLevel, levelCount{Level: level, Count: s.ByLevel[level]})
	}
	return summaryView{
		Rows:            s.Rows,
		ByLevel:         byLevel,
		CentralProblems: s.Problems,
	}
}
