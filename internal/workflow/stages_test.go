package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVocabulariesAreDisjoint(t *testing.T) {
	for _, stage := range Sales().Stages() {
		require.False(t, BackOffice().Contains(stage), "stage %q appears in both vocabularies", stage)
	}
}

func TestLookup(t *testing.T) {
	v, ok := Lookup(WorkflowSales)
	require.True(t, ok)
	require.Equal(t, StageInitialContact, v.First())

	v, ok = Lookup(WorkflowBackOffice)
	require.True(t, ok)
	require.Equal(t, StageDocumentation, v.First())

	_, ok = Lookup("shipping")
	require.False(t, ok)
}

func TestContainsRejectsForeignStages(t *testing.T) {
	require.True(t, Sales().Contains(StageSold))
	require.False(t, Sales().Contains(StageVerification))
	require.True(t, BackOffice().Contains(StageCompletion))
	require.False(t, BackOffice().Contains(StageListed))
	require.False(t, BackOffice().Contains(""))
}

func TestIsForward(t *testing.T) {
	sales := Sales()
	require.True(t, sales.IsForward(StageInitialContact, StagePriceNegotiated))
	require.True(t, sales.IsForward(StagePurchased, StageDelivered))
	require.False(t, sales.IsForward(StageSold, StagePurchased))
	require.False(t, sales.IsForward(StageSold, StageSold))
	require.False(t, sales.IsForward(StageSold, "unknown"))
}

func TestPosition(t *testing.T) {
	require.Equal(t, 0, BackOffice().Position(StageDocumentation))
	require.Equal(t, 3, BackOffice().Position(StageCompletion))
	require.Equal(t, -1, BackOffice().Position("archived"))
}
