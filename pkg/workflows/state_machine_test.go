package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	sm := NewStateMachine(map[string][]string{
		"open":      {"filled", "closed"},
		"filled":    {"disbursed"},
		"disbursed": {},
	})

	assert.True(t, sm.CanTransition("open", "filled"))
	assert.True(t, sm.CanTransition("open", "closed"))
	assert.False(t, sm.CanTransition("open", "disbursed"))
	assert.False(t, sm.CanTransition("disbursed", "open"))
	assert.False(t, sm.CanTransition("unknown", "open"))
}

func TestTerminal(t *testing.T) {
	sm := NewStateMachine(map[string][]string{
		"open":   {"closed"},
		"closed": {},
	})

	assert.False(t, sm.Terminal("open"))
	assert.True(t, sm.Terminal("closed"))
	assert.True(t, sm.Terminal("unknown"))
}

func TestGetAllowedTransitions(t *testing.T) {
	sm := NewStateMachine(map[string][]string{
		"open": {"filled", "closed"},
	})

	assert.ElementsMatch(t, []string{"filled", "closed"}, sm.GetAllowedTransitions("open"))
	assert.Empty(t, sm.GetAllowedTransitions("unknown"))
}
