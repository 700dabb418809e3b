package wizard

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pullstream/schemaguard/internal/config"
)

// Run starts the interactive setup. Unless force is set, an existing
// schemaguard.toml in the current directory aborts before the UI starts.
func Run(force bool) error {
	if !force {
		if _, err := os.Stat(config.ConfigFileName); err == nil {
			return fmt.Errorf("%s already exists, re-run with --force to update it", config.ConfigFileName)
		}
	}

	program := tea.NewProgram(New())
	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("wizard failed: %w", err)
	}

	m, ok := final.(WizardModel)
	if !ok {
		return nil
	}
	if _, err := m.Result(); err != nil {
		return err
	}
	return nil
}
