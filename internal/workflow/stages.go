package workflow

// Workflow names. A deal carries one stage from each vocabulary; the two
// advance independently.
const (
	WorkflowSales      = "sales"
	WorkflowBackOffice = "backoffice"
)

// Sales pipeline stages, in pipeline order.
const (
	StageInitialContact     = "initial-contact"
	StagePriceNegotiated    = "price-negotiated"
	StageInspectionSched    = "inspection-scheduled"
	StageInspectionComplete = "inspection-complete"
	StagePurchased          = "purchased"
	StageTitleProcessing    = "title-processing"
	StageTitleReceived      = "title-received"
	StageReadyToList        = "ready-to-list"
	StageListed             = "listed"
	StageSold               = "sold"
	StageDelivered          = "delivered"
)

// Back-office documentation stages, in workflow order.
const (
	StageDocumentation = "documentation"
	StageVerification  = "verification"
	StageProcessing    = "processing"
	StageCompletion    = "completion"
)

// Vocabulary is an ordered, closed set of stage names for one workflow.
type Vocabulary struct {
	Name   string
	stages []string
	index  map[string]int
}

func newVocabulary(name string, stages ...string) Vocabulary {
	index := make(map[string]int, len(stages))
	for i, s := range stages {
		index[s] = i
	}
	return Vocabulary{Name: name, stages: stages, index: index}
}

var (
	salesVocabulary = newVocabulary(WorkflowSales,
		StageInitialContact,
		StagePriceNegotiated,
		StageInspectionSched,
		StageInspectionComplete,
		StagePurchased,
		StageTitleProcessing,
		StageTitleReceived,
		StageReadyToList,
		StageListed,
		StageSold,
		StageDelivered,
	)

	backOfficeVocabulary = newVocabulary(WorkflowBackOffice,
		StageDocumentation,
		StageVerification,
		StageProcessing,
		StageCompletion,
	)
)

// Sales returns the sales pipeline vocabulary.
func Sales() Vocabulary { return salesVocabulary }

// BackOffice returns the documentation workflow vocabulary.
func BackOffice() Vocabulary { return backOfficeVocabulary }

// Lookup resolves a workflow name to its vocabulary.
func Lookup(name string) (Vocabulary, bool) {
	switch name {
	case WorkflowSales:
		return salesVocabulary, true
	case WorkflowBackOffice:
		return backOfficeVocabulary, true
	}
	return Vocabulary{}, false
}

// First returns the entry stage of the vocabulary.
func (v Vocabulary) First() string {
	if len(v.stages) == 0 {
		return ""
	}
	return v.stages[0]
}

// Contains reports whether stage belongs to the vocabulary.
func (v Vocabulary) Contains(stage string) bool {
	_, ok := v.index[stage]
	return ok
}

// Stages returns the ordered stage list.
func (v Vocabulary) Stages() []string {
	out := make([]string, len(v.stages))
	copy(out, v.stages)
	return out
}

// Position returns the zero-based order of stage, or -1 when unknown.
func (v Vocabulary) Position(stage string) int {
	i, ok := v.index[stage]
	if !ok {
		return -1
	}
	return i
}

// IsForward reports whether moving from one stage to another advances the
// vocabulary. Used when stage-order enforcement is enabled; transitions to
// the same stage are not forward.
func (v Vocabulary) IsForward(from, to string) bool {
	fi, fok := v.index[from]
	ti, tok := v.index[to]
	return fok && tok && ti > fi
}
