package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressStep_RankIsForwardOrdered(t *testing.T) {
	steps := []ProgressStep{
		StepStarting,
		StepScraping,
		StepDeduplicating,
		StepCategorizing,
		StepMatchingOrganizers,
		StepImporting,
		StepCompleted,
	}

	for i := 1; i < len(steps); i++ {
		assert.Greater(t, steps[i].Rank(), steps[i-1].Rank(), "%s should come after %s", steps[i], steps[i-1])
	}
	assert.Equal(t, StepCompleted.Rank(), StepFailed.Rank())
	assert.Equal(t, -1, ProgressStep("bogus").Rank())
}

func TestProgressStep_IsTerminal(t *testing.T) {
	assert.True(t, StepCompleted.IsTerminal())
	assert.True(t, StepFailed.IsTerminal())
	assert.False(t, StepImporting.IsTerminal())
}

func TestRunStatus_IsTerminal(t *testing.T) {
	assert.False(t, RunStatusRunning.IsTerminal())
	assert.False(t, RunStatus("").IsTerminal())
	for _, s := range []RunStatus{RunStatusSuccess, RunStatusPartial, RunStatusFailed, RunStatusCancelled} {
		assert.True(t, s.IsTerminal(), string(s))
	}
}

func TestCategorization_Top(t *testing.T) {
	c := Categorization{
		Categories: []string{"Musik", "Festival"},
		Scores:     map[string]float64{"Musik": 0.9, "Festival": 0.4},
	}
	name, score := c.Top()
	assert.Equal(t, "Musik", name)
	assert.Equal(t, 0.9, score)
	assert.False(t, c.IsUncategorized())

	fallback := Categorization{
		Categories: []string{UncategorizedCategory},
		Scores:     map[string]float64{UncategorizedCategory: 1.0},
	}
	assert.True(t, fallback.IsUncategorized())

	name, score = Categorization{}.Top()
	assert.Empty(t, name)
	assert.Zero(t, score)
}
