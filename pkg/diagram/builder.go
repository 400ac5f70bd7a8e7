package diagram

import (
	"strings"

	"github.com/ecorisk/bowtie/pkg/bowtie"
	"github.com/ecorisk/bowtie/pkg/logging"
)

// Builder turns a bowtie table into renderable node and edge sets. A
// Builder is cheap; construct one per request.
type Builder struct {
	logger logging.Logger
}

// NewBuilder creates a Builder. A nil logger disables logging.
func NewBuilder(logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Builder{logger: logger}
}

// index assigns node ids per category from the category's disjoint range,
// in first-seen order.
type index struct {
	ids map[bowtie.Category]map[string]int
}

func newIndex() *index {
	return &index{ids: make(map[bowtie.Category]map[string]int)}
}

func (ix *index) assign(cat bowtie.Category, label string) (int, bool) {
	byLabel, ok := ix.ids[cat]
	if !ok {
		byLabel = make(map[string]int)
		ix.ids[cat] = byLabel
	}
	if id, ok := byLabel[label]; ok {
		return id, false
	}
	if len(byLabel) >= bowtie.IDRangeWidth {
		// Range exhausted; drop the label so ids from the next category
		// are never reused. Edges to it fall away via lookup.
		return 0, false
	}
	id := cat.IDBase() + len(byLabel)
	byLabel[label] = id
	return id, true
}

func (ix *index) lookup(cat bowtie.Category, label string) (int, bool) {
	id, ok := ix.ids[cat][label]
	return id, ok
}

// Build produces the complete graph for one render request.
func (b *Builder) Build(table *bowtie.Table, opts Options) *Graph {
	timer := logging.StartTimer(b.logger, "graph build",
		logging.RowCount(len(table.Rows)),
		logging.Bool("intermediate", opts.ShowIntermediate))

	ix := newIndex()
	nodes := b.buildNodes(table, opts, ix)
	edges := b.buildEdges(table, opts, ix)

	timer.End()
	return &Graph{Nodes: nodes, Edges: edges}
}

// BuildNodes produces the node set alone, for callers that manage their own
// edge construction.
func (b *Builder) BuildNodes(table *bowtie.Table, opts Options) []Node {
	return b.buildNodes(table, opts, newIndex())
}

func (b *Builder) buildNodes(table *bowtie.Table, opts Options, ix *index) []Node {
	var nodes []Node

	problem := strings.TrimSpace(opts.CentralProblem)
	if problem == "" {
		if problems := table.CentralProblems(); len(problems) > 0 {
			problem = problems[0]
		} else {
			problem = "Central Problem"
		}
	}

	// Exactly one central problem node, always first.
	id, _ := ix.assign(bowtie.CategoryCentralProblem, problem)
	shape, color, size, fontSize := styleFor(bowtie.CategoryCentralProblem, opts)
	nodes = append(nodes, Node{
		ID: id, Label: problem, Group: bowtie.CategoryCentralProblem.String(),
		Color: color, Shape: shape, Size: size, FontSize: fontSize,
	})

	// firstLevel remembers the first-seen risk level per label within the
	// risk-colorable categories. First row wins; this mirrors the original
	// tool and is a documented simplification, not an aggregate.
	firstLevel := make(map[bowtie.Category]map[string]string)

	type column struct {
		cat     bowtie.Category
		extract func(r bowtie.Row) string
		riskCol bool
	}
	columns := []column{
		{bowtie.CategoryActivity, func(r bowtie.Row) string { return r.Activity }, true},
		{bowtie.CategoryPressure, func(r bowtie.Row) string { return r.Pressure }, true},
	}
	if opts.ShowIntermediate {
		columns = append(columns,
			column{bowtie.CategoryPreventiveControl, func(r bowtie.Row) string { return r.PreventiveControl }, false},
			column{bowtie.CategoryEscalationFactor, func(r bowtie.Row) string { return r.EscalationFactor }, false},
			column{
				bowtie.CategoryProtectiveMitigation,
				// Placeholder mitigations never get a node.
				func(r bowtie.Row) string {
					if !r.QualifyingMitigation() {
						return ""
					}
					return r.ProtectiveMitigation
				},
				false,
			},
		)
	}
	columns = append(columns,
		column{bowtie.CategoryConsequence, func(r bowtie.Row) string { return r.Consequence }, true})

	for _, col := range columns {
		for _, row := range table.Rows {
			label := strings.TrimSpace(col.extract(row))
			if label == "" {
				continue
			}
			if col.riskCol {
				if firstLevel[col.cat] == nil {
					firstLevel[col.cat] = make(map[string]string)
				}
				if _, seen := firstLevel[col.cat][label]; !seen {
					firstLevel[col.cat][label] = row.RiskLevel.String()
				}
			}
			nodeID, created := ix.assign(col.cat, label)
			if !created {
				continue
			}
			shape, color, size, fontSize := styleFor(col.cat, opts)
			if opts.ShowRiskColors && col.riskCol {
				if c, ok := bowtie.RiskColor[firstLevel[col.cat][label]]; ok {
					color = c
				}
			}
			nodes = append(nodes, Node{
				ID: nodeID, Label: label, Group: col.cat.String(),
				Color: color, Shape: shape, Size: size, FontSize: fontSize,
			})
		}
	}

	return nodes
}

func (b *Builder) buildEdges(table *bowtie.Table, opts Options, ix *index) []Edge {
	es := newEdgeSet()

	problemID, ok := b.centralProblemID(ix)
	if !ok {
		b.logger.Warn("no central problem node; edge set will be empty")
		return nil
	}

	// Activity -> pressure for every observed pairing, both modes.
	for _, row := range table.Rows {
		b.connect(es, ix, bowtie.CategoryActivity, row.Activity,
			bowtie.CategoryPressure, row.Pressure, causalColor, false)
	}

	if !opts.ShowIntermediate {
		// Collapsed 3-hop chain: pressure -> problem -> consequence.
		for _, row := range table.Rows {
			b.connectTo(es, ix, bowtie.CategoryPressure, row.Pressure,
				problemID, causalColor, false)
			b.connectFrom(es, ix, problemID,
				bowtie.CategoryConsequence, row.Consequence, causalColor, false)
		}
		return es.list()
	}

	b.buildThreatSide(table, es, ix, problemID)
	b.buildConsequenceSide(table, es, ix, problemID)
	return es.list()
}

// buildThreatSide wires the left half: pressures through controls and
// escalation factors into the central problem.
func (b *Builder) buildThreatSide(table *bowtie.Table, es *edgeSet, ix *index, problemID int) {
	seen := make(map[string]bool)
	for _, row := range table.Rows {
		pressure := strings.TrimSpace(row.Pressure)
		if pressure == "" || seen[pressure] {
			continue
		}
		seen[pressure] = true

		control := b.firstFor(table, pressure, func(r bowtie.Row) string { return r.PreventiveControl })
		if control == "" {
			// No barrier at all: the pressure feeds the problem directly.
			b.connectTo(es, ix, bowtie.CategoryPressure, pressure, problemID, causalColor, false)
			continue
		}

		b.connect(es, ix, bowtie.CategoryPressure, pressure,
			bowtie.CategoryPreventiveControl, control, causalColor, false)

		escalation := b.firstFor(table, pressure, func(r bowtie.Row) string { return r.EscalationFactor })
		if escalation != "" {
			// Control failure leads to escalation, escalation to the problem.
			b.connect(es, ix, bowtie.CategoryPreventiveControl, control,
				bowtie.CategoryEscalationFactor, escalation, causalColor, false)
			b.connectTo(es, ix, bowtie.CategoryEscalationFactor, escalation,
				problemID, causalColor, false)
		} else {
			// Dashed: residual risk of the control being bypassed.
			b.connectTo(es, ix, bowtie.CategoryPreventiveControl, control,
				problemID, bypassColor, true)
		}
	}
}

// buildConsequenceSide wires the right half: the central problem through
// protective mitigations into consequences. The consequence-mitigation
// pairing is per row and exact; a generic mitigation is never wired to an
// unrelated consequence just because both exist in the table.
func (b *Builder) buildConsequenceSide(table *bowtie.Table, es *edgeSet, ix *index, problemID int) {
	mitigated := make(map[string]bool)
	for _, row := range table.Rows {
		consequence := strings.TrimSpace(row.Consequence)
		if consequence == "" || !row.QualifyingMitigation() {
			continue
		}
		mitigation := strings.TrimSpace(row.ProtectiveMitigation)
		b.connectFrom(es, ix, problemID,
			bowtie.CategoryProtectiveMitigation, mitigation, causalColor, false)
		// Dashed second hop: the mitigation reduces, not causes, the impact.
		b.connect(es, ix, bowtie.CategoryProtectiveMitigation, mitigation,
			bowtie.CategoryConsequence, consequence, mitigationColor, true)
		mitigated[consequence] = true
	}

	for _, row := range table.Rows {
		consequence := strings.TrimSpace(row.Consequence)
		if consequence == "" || mitigated[consequence] {
			continue
		}
		b.connectFrom(es, ix, problemID,
			bowtie.CategoryConsequence, consequence, causalColor, false)
	}
}

// firstFor returns the first non-empty extracted value among rows with the
// given pressure. First matching row wins.
func (b *Builder) firstFor(table *bowtie.Table, pressure string, extract func(bowtie.Row) string) string {
	for _, row := range table.Rows {
		if strings.TrimSpace(row.Pressure) != pressure {
			continue
		}
		if v := strings.TrimSpace(extract(row)); v != "" {
			return v
		}
	}
	return ""
}

func (b *Builder) centralProblemID(ix *index) (int, bool) {
	byLabel := ix.ids[bowtie.CategoryCentralProblem]
	for _, id := range byLabel {
		return id, true
	}
	return 0, false
}

// connect emits an edge between two labeled nodes. Either endpoint failing
// to resolve skips the edge: a partial graph beats a hard failure.
func (b *Builder) connect(es *edgeSet, ix *index, fromCat bowtie.Category, fromLabel string,
	toCat bowtie.Category, toLabel string, color string, dashed bool) {

	fromID, ok := ix.lookup(fromCat, strings.TrimSpace(fromLabel))
	if !ok {
		return
	}
	toID, ok := ix.lookup(toCat, strings.TrimSpace(toLabel))
	if !ok {
		return
	}
	es.add(fromID, toID, color, dashed)
}

func (b *Builder) connectTo(es *edgeSet, ix *index, fromCat bowtie.Category, fromLabel string,
	toID int, color string, dashed bool) {

	fromID, ok := ix.lookup(fromCat, strings.TrimSpace(fromLabel))
	if !ok {
		return
	}
	es.add(fromID, toID, color, dashed)
}

func (b *Builder) connectFrom(es *edgeSet, ix *index, fromID int,
	toCat bowtie.Category, toLabel string, color string, dashed bool) {

	toID, ok := ix.lookup(toCat, strings.TrimSpace(toLabel))
	if !ok {
		return
	}
	es.add(fromID, toID, color, dashed)
}

// edgeSet deduplicates edges while preserving insertion order.
type edgeSet struct {
	edges []Edge
	seen  map[[3]int]bool
}

func newEdgeSet() *edgeSet {
	return &edgeSet{seen: make(map[[3]int]bool)}
}

func (es *edgeSet) add(from, to int, color string, dashed bool) {
	dash := 0
	if dashed {
		dash = 1
	}
	key := [3]int{from, to, dash}
	if es.seen[key] {
		return
	}
	es.seen[key] = true

	width := causalWidth
	if dashed {
		width = barrierWidth
	}
	es.edges = append(es.edges, Edge{
		From: from, To: to, Arrows: edgeArrows,
		Color: color, Width: width, Dashes: dashed,
	})
}

func (es *edgeSet) list() []Edge {
	return es.edges
}
