package wizard

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func pressEnter(t *testing.T, m tea.Model) tea.Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next
}

func TestWizardStartsAtWelcome(t *testing.T) {
	m := New()
	if m.state != StateWelcome {
		t.Errorf("state = %v, want StateWelcome", m.state)
	}
}

func TestEnterAdvancesThroughStates(t *testing.T) {
	var m tea.Model = New()

	m = pressEnter(t, m)
	if got := m.(WizardModel).state; got != StateDatabaseType {
		t.Fatalf("state after welcome = %v, want StateDatabaseType", got)
	}

	m = pressEnter(t, m)
	wm := m.(WizardModel)
	if wm.state != StateDetails {
		t.Fatalf("state after type selection = %v, want StateDetails", wm.state)
	}
	if wm.env.DatabaseType != DatabaseTypes[0].ID {
		t.Errorf("DatabaseType = %q, want first option", wm.env.DatabaseType)
	}
	if len(wm.inputs) != inputCount {
		t.Errorf("inputs = %d, want %d", len(wm.inputs), inputCount)
	}
}

func TestDatabaseTypeSelectionWraps(t *testing.T) {
	var m tea.Model = New()
	m = pressEnter(t, m) // to StateDatabaseType

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := m.(WizardModel).dbTypeIndex; got != len(DatabaseTypes)-1 {
		t.Errorf("dbTypeIndex after up from 0 = %d, want %d", got, len(DatabaseTypes)-1)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := m.(WizardModel).dbTypeIndex; got != 0 {
		t.Errorf("dbTypeIndex after wrap down = %d, want 0", got)
	}
}

func TestDetailsValidationBlocksAdvance(t *testing.T) {
	var m tea.Model = New()
	m = pressEnter(t, m) // welcome -> type
	m = pressEnter(t, m) // type -> details (postgres selected)

	// Walk focus to the last field, then submit with an empty database URL.
	// The postgres placeholder is a valid URL, so force a bad value first.
	wm := m.(WizardModel)
	wm.inputs[inputDatabaseURL].SetValue("file:not-postgres.db")
	wm.focusIndex = len(wm.inputs) - 1
	m = pressEnter(t, wm)

	wm = m.(WizardModel)
	if wm.state != StateDetails {
		t.Fatalf("state = %v, want StateDetails (invalid URL must not advance)", wm.state)
	}
	if wm.errors["database_url"] == "" {
		t.Error("no validation error recorded for database_url")
	}
}

func TestCreationErrorMovesToErrorState(t *testing.T) {
	m := New()
	m.state = StateCreating

	next, _ := m.Update(fileCreationResultMsg{err: errFake})
	if got := next.(WizardModel).state; got != StateError {
		t.Errorf("state = %v, want StateError", got)
	}
}

var errFake = &fakeError{}

type fakeError struct{}

func (*fakeError) Error() string { return "disk full" }
