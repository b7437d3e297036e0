package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	got, ok := Parse("  Add   Call the bank ")
	require.True(t, ok)
	assert.Equal(t, CommandMsg{Name: "add", Arg: "Call the bank"}, got)

	got, ok = Parse("done")
	require.True(t, ok)
	assert.Equal(t, CommandMsg{Name: "done"}, got)

	_, ok = Parse("   ")
	assert.False(t, ok)
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New(60, 10)
	for _, r := range "skip" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg{Name: "skip"}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "input was reset")
}
