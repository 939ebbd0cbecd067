// Package domain provides core business rules for the customers bounded context.
package domain

const (
	StageNew         = "NEW"
	StageContacted   = "CONTACTED"
	StageQualified   = "QUALIFIED"
	StageHot         = "HOT"
	StageProposal    = "PROPOSAL"
	StageNegotiation = "NEGOTIATION"
	StageClosedWon   = "CLOSED_WON"
	StageClosedLost  = "CLOSED_LOST"
)

const (
	LabelHot         = "HOT"
	LabelWarm        = "WARM"
	LabelCold        = "COLD"
	LabelUnqualified = "UNQUALIFIED"
)

const (
	TypeIndividual = "INDIVIDUAL"
	TypeBusiness   = "BUSINESS"
	TypeWholesale  = "WHOLESALE"
	TypeRetail     = "RETAIL"
	TypeLead       = "LEAD"
)

// Initial lead state for a freshly created customer. Every audit fold
// starts from this state.
const (
	InitialStage = StageNew
	InitialLabel = LabelCold
	InitialType  = TypeIndividual
	InitialScore = 0
)

var knownStages = map[string]struct{}{
	StageNew:         {},
	StageContacted:   {},
	StageQualified:   {},
	StageHot:         {},
	StageProposal:    {},
	StageNegotiation: {},
	StageClosedWon:   {},
	StageClosedLost:  {},
}

var knownLabels = map[string]struct{}{
	LabelHot:         {},
	LabelWarm:        {},
	LabelCold:        {},
	LabelUnqualified: {},
}

var knownTypes = map[string]struct{}{
	TypeIndividual: {},
	TypeBusiness:   {},
	TypeWholesale:  {},
	TypeRetail:     {},
	TypeLead:       {},
}

// terminalStages are stages with no outgoing stage transitions. Label and
// score edits remain possible for customers parked here.
var terminalStages = map[string]bool{
	StageClosedWon:  true,
	StageClosedLost: true,
}

func IsKnownStage(stage string) bool {
	_, ok := knownStages[stage]
	return ok
}

func IsKnownLabel(label string) bool {
	_, ok := knownLabels[label]
	return ok
}

func IsKnownType(customerType string) bool {
	_, ok := knownTypes[customerType]
	return ok
}

// IsTerminalStage returns true if no stage transition may leave the stage.
func IsTerminalStage(stage string) bool {
	return terminalStages[stage]
}
