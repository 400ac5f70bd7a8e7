package diagram

import (
	"github.com/ecorisk/bowtie/pkg/bowtie"
)

// Node is the renderer-facing vertex record. Field names follow the
// network-widget contract the frontend consumes.
type Node struct {
	ID       int    `json:"id"`
	Label    string `json:"label"`
	Group    string `json:"group"`
	Color    string `json:"color"`
	Shape    string `json:"shape"`
	Size     int    `json:"size"`
	FontSize int    `json:"font_size"`
}

// Edge is the renderer-facing directed connection record. Dashed edges mark
// barrier effects (control bypass, risk reduction) as opposed to direct
// causal links.
type Edge struct {
	From   int    `json:"from"`
	To     int    `json:"to"`
	Arrows string `json:"arrows"`
	Color  string `json:"color"`
	Width  int    `json:"width"`
	Dashes bool   `json:"dashes"`
}

// Graph is one build result: the complete node and edge sets for a render.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Options control one build request.
type Options struct {
	// CentralProblem overrides the table's central problem label. Empty
	// means use the first one found in the data.
	CentralProblem string
	// NodeSize rescales the category base sizes. Zero keeps the defaults.
	NodeSize int
	// ShowRiskColors colors activity, pressure and consequence nodes by
	// their first row's risk level instead of the category palette.
	ShowRiskColors bool
	// ShowIntermediate includes the barrier layers (controls, escalation
	// factors, mitigations). When false the chain collapses to
	// activity -> pressure -> central problem -> consequence.
	ShowIntermediate bool
}

// Edge styling constants.
const (
	edgeArrows      = "to"
	causalColor     = "#848484"
	bypassColor     = "#DC143C"
	mitigationColor = "#4169E1"
	causalWidth     = 2
	barrierWidth    = 2
)

// baseNodeSize is the category size the NodeSize option scales against.
const baseNodeSize = 25

func styleFor(cat bowtie.Category, opts Options) (shape, color string, size, fontSize int) {
	st := cat.Style()
	size = st.Size
	if opts.NodeSize > 0 {
		size = st.Size * opts.NodeSize / baseNodeSize
		if size < 1 {
			size = 1
		}
	}
	return st.Shape, st.Color, size, st.FontSize
}
