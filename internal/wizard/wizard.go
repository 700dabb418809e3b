// Package wizard implements the interactive "schemaguard init" flow.
package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// New creates a new wizard model
func New() WizardModel {
	return WizardModel{
		state:  StateWelcome,
		errors: make(map[string]string),
		inputs: []textinput.Model{},
	}
}

// Init initializes the wizard (Bubble Tea Init)
func (m WizardModel) Init() tea.Cmd {
	return nil
}

// Update handles state transitions (Bubble Tea Update)
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up", "shift+tab":
			return m.moveFocus(-1)

		case "down", "tab":
			return m.moveFocus(1)

		default:
			return m.handleTextInput(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case fileCreationResultMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = StateError
			return m, nil
		}
		m.result = msg.result
		m.state = StateDone
		return m, tea.Quit
	}

	return m, nil
}

// View renders the wizard UI (Bubble Tea View)
func (m WizardModel) View() string {
	switch m.state {
	case StateWelcome:
		return m.renderWelcome()
	case StateDatabaseType:
		return m.renderDatabaseType()
	case StateDetails:
		return m.renderDetails()
	case StateSummary:
		return m.renderSummary()
	case StateCreating:
		return renderHeader("Writing configuration...")
	case StateDone:
		return m.renderDone()
	case StateError:
		return renderError("Setup failed: "+m.err.Error()) + "\n" + renderStatusBar("press ctrl+c to exit")
	default:
		return "Unknown state"
	}
}

// Result returns the wizard outcome after the program finishes.
func (m WizardModel) Result() (*InitResult, error) {
	return m.result, m.err
}

// State transition handlers

func (m WizardModel) handleEnter() (tea.Model, tea.Cmd) {
	switch m.state {
	case StateWelcome:
		m.state = StateDatabaseType
		return m, nil

	case StateDatabaseType:
		m.env.DatabaseType = DatabaseTypes[m.dbTypeIndex].ID
		m.state = StateDetails
		m.initializeInputs()
		return m, textinput.Blink

	case StateDetails:
		if m.focusIndex < len(m.inputs)-1 {
			return m.moveFocus(1)
		}
		if !m.collectInputValues() {
			return m, nil
		}
		m.state = StateSummary
		return m, nil

	case StateSummary:
		m.state = StateCreating
		env := m.env
		return m, func() tea.Msg {
			result, err := GenerateFiles(env)
			return fileCreationResultMsg{result: result, err: err}
		}

	case StateDone:
		return m, tea.Quit
	}
	return m, nil
}

func (m WizardModel) moveFocus(delta int) (tea.Model, tea.Cmd) {
	switch m.state {
	case StateDatabaseType:
		m.dbTypeIndex = (m.dbTypeIndex + delta + len(DatabaseTypes)) % len(DatabaseTypes)
		return m, nil

	case StateDetails:
		m.focusIndex = (m.focusIndex + delta + len(m.inputs)) % len(m.inputs)
		var cmds []tea.Cmd
		for i := range m.inputs {
			if i == m.focusIndex {
				cmds = append(cmds, m.inputs[i].Focus())
			} else {
				m.inputs[i].Blur()
			}
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m WizardModel) handleTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state != StateDetails || m.focusIndex >= len(m.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

// Input field order in StateDetails.
const (
	inputEnvName = iota
	inputDatabaseURL
	inputSchemaPath
	inputMicroserviceID
	inputCount
)

func (m *WizardModel) initializeInputs() {
	m.inputs = make([]textinput.Model, inputCount)
	m.focusIndex = 0

	name := textinput.New()
	name.Placeholder = "local"
	name.Focus()
	m.inputs[inputEnvName] = name

	url := textinput.New()
	url.Placeholder = DatabaseTypes[m.dbTypeIndex].Placeholder
	m.inputs[inputDatabaseURL] = url

	schema := textinput.New()
	schema.Placeholder = "prisma/schema.prisma"
	m.inputs[inputSchemaPath] = schema

	ms := textinput.New()
	ms.Placeholder = "leave empty to generate"
	m.inputs[inputMicroserviceID] = ms
}

// collectInputValues validates and stores the detail inputs. It returns false
// and populates m.errors when any field is invalid.
func (m *WizardModel) collectInputValues() bool {
	m.errors = make(map[string]string)

	name := strings.TrimSpace(m.inputs[inputEnvName].Value())
	if name == "" {
		name = "local"
	}
	if err := validateEnvironmentName(name); err != nil {
		m.errors["name"] = err.Error()
	}

	url := strings.TrimSpace(m.inputs[inputDatabaseURL].Value())
	if url == "" {
		url = DatabaseTypes[m.dbTypeIndex].Placeholder
	}
	if err := validateDatabaseURL(m.env.DatabaseType, url); err != nil {
		m.errors["database_url"] = err.Error()
	}

	msID := strings.TrimSpace(m.inputs[inputMicroserviceID].Value())
	if err := validateMicroserviceID(msID); err != nil {
		m.errors["microservice_id"] = err.Error()
	}

	if len(m.errors) > 0 {
		return false
	}

	m.env.Name = name
	m.env.DatabaseURL = url
	m.env.SchemaPath = strings.TrimSpace(m.inputs[inputSchemaPath].Value())
	m.env.MicroserviceID = msID
	return true
}

// Messages

type fileCreationResultMsg struct {
	result *InitResult
	err    error
}

// Views

func (m WizardModel) renderWelcome() string {
	var b strings.Builder
	b.WriteString(renderHeader("schemaguard setup"))
	b.WriteString("\n\n")
	b.WriteString("This wizard writes schemaguard.toml and a .env file for one environment.\n")
	b.WriteString(renderInfo("You can re-run init later to adjust the configuration."))
	b.WriteString("\n")
	b.WriteString(renderStatusBar("enter to continue, ctrl+c to quit"))
	return b.String()
}

func (m WizardModel) renderDatabaseType() string {
	var b strings.Builder
	b.WriteString(renderHeader("Where does field metadata live?"))
	b.WriteString("\n\n")
	for i, dbType := range DatabaseTypes {
		line := fmt.Sprintf("%s (%s)", dbType.DisplayName, dbType.Description)
		b.WriteString(renderOption(i == m.dbTypeIndex, line))
		b.WriteString("\n")
	}
	b.WriteString(renderStatusBar("up/down to select, enter to confirm"))
	return b.String()
}

func (m WizardModel) renderDetails() string {
	labels := []string{"Environment name", "Database URL", "Schema path", "Microservice ID"}
	var b strings.Builder
	b.WriteString(renderHeader("Environment details"))
	b.WriteString("\n\n")
	for i, input := range m.inputs {
		b.WriteString(labelStyle.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	for _, msg := range m.errors {
		b.WriteString(renderError(msg))
		b.WriteString("\n")
	}
	b.WriteString(renderStatusBar("tab to move between fields, enter on the last field to continue"))
	return b.String()
}

func (m WizardModel) renderSummary() string {
	var b strings.Builder
	b.WriteString(renderHeader("Review"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  environment:  %s\n", m.env.Name))
	b.WriteString(fmt.Sprintf("  database:     %s (%s)\n", m.env.DatabaseURL, m.env.DatabaseType))
	if m.env.SchemaPath != "" {
		b.WriteString(fmt.Sprintf("  schema path:  %s\n", m.env.SchemaPath))
	}
	if m.env.MicroserviceID != "" {
		b.WriteString(fmt.Sprintf("  microservice: %s\n", m.env.MicroserviceID))
	}
	b.WriteString(renderStatusBar("enter to write files, ctrl+c to abort"))
	return b.String()
}

func (m WizardModel) renderDone() string {
	var b strings.Builder
	b.WriteString(renderSuccess("Configuration written"))
	b.WriteString("\n\n")
	if m.result != nil {
		verb := "created"
		if m.result.ConfigUpdated {
			verb = "updated"
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", verb, m.result.ConfigPath))
		if m.result.EnvFile != "" {
			b.WriteString(fmt.Sprintf("  created %s\n", m.result.EnvFile))
		}
		if m.result.GitignoreUpdated {
			b.WriteString("  updated .gitignore\n")
		}
	}
	return b.String()
}
