package bowtie

// Category identifies the seven node kinds of a bowtie diagram.
type Category int

const (
	CategoryCentralProblem Category = iota
	CategoryActivity
	CategoryPressure
	CategoryPreventiveControl
	CategoryEscalationFactor
	CategoryProtectiveMitigation
	CategoryConsequence
)

// Categories lists every category in diagram order, left to right.
var Categories = []Category{
	CategoryCentralProblem,
	CategoryActivity,
	CategoryPressure,
	CategoryPreventiveControl,
	CategoryEscalationFactor,
	CategoryProtectiveMitigation,
	CategoryConsequence,
}

// String returns the stable identifier used in exports and the renderer
// "group" attribute.
func (c Category) String() string {
	switch c {
	case CategoryCentralProblem:
		return "central_problem"
	case CategoryActivity:
		return "activity"
	case CategoryPressure:
		return "pressure"
	case CategoryPreventiveControl:
		return "preventive_control"
	case CategoryEscalationFactor:
		return "escalation_factor"
	case CategoryProtectiveMitigation:
		return "protective_mitigation"
	case CategoryConsequence:
		return "consequence"
	default:
		return "unknown"
	}
}

// Style carries the fixed visual attributes of one category.
type Style struct {
	Shape    string
	Color    string
	Size     int
	FontSize int
}

// categoryStyles is the fixed palette. Node ids are also allocated from the
// Base ranges below, one disjoint range per category, so ids stay stable
// across incremental rebuilds within one render.
var categoryStyles = map[Category]Style{
	CategoryCentralProblem:       {Shape: "diamond", Color: "#8B0000", Size: 40, FontSize: 18},
	CategoryActivity:             {Shape: "box", Color: "#9370DB", Size: 25, FontSize: 14},
	CategoryPressure:             {Shape: "box", Color: "#DC143C", Size: 25, FontSize: 14},
	CategoryPreventiveControl:    {Shape: "square", Color: "#2E8B57", Size: 20, FontSize: 12},
	CategoryEscalationFactor:     {Shape: "triangle", Color: "#FF8C00", Size: 20, FontSize: 12},
	CategoryProtectiveMitigation: {Shape: "square", Color: "#4169E1", Size: 20, FontSize: 12},
	CategoryConsequence:          {Shape: "box", Color: "#D2691E", Size: 25, FontSize: 14},
}

// IDRangeWidth is the size of each category's node-id range. The ranges
// are disjoint, so ids never collide across categories; labels past the
// range end are dropped rather than wrapped.
const IDRangeWidth = 10000

// idBase maps each category to the start of its node-id range.
var idBase = map[Category]int{
	CategoryCentralProblem:       1,
	CategoryActivity:             1 * IDRangeWidth,
	CategoryPressure:             2 * IDRangeWidth,
	CategoryPreventiveControl:    3 * IDRangeWidth,
	CategoryEscalationFactor:     4 * IDRangeWidth,
	CategoryProtectiveMitigation: 5 * IDRangeWidth,
	CategoryConsequence:          6 * IDRangeWidth,
}

// Style returns the visual attributes for the category.
func (c Category) Style() Style {
	return categoryStyles[c]
}

// IDBase returns the first node id of the category's range.
func (c Category) IDBase() int {
	return idBase[c]
}

// RiskColor maps a risk level name onto the traffic-light palette used when
// risk coloring is enabled.
var RiskColor = map[string]string{
	"Low":    "#90EE90",
	"Medium": "#FFD700",
	"High":   "#FF6B6B",
}
