package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/recommit/pkg/recommit"
)

func TestPickScenarios_Named(t *testing.T) {
	scenarios, err := pickScenarios([]string{"deposits"})
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "deposits", scenarios[0].Name)
}

func TestPickScenarios_All(t *testing.T) {
	scenarios, err := pickScenarios([]string{"all"})
	require.NoError(t, err)
	assert.Len(t, scenarios, 3)
}

func TestPickScenarios_Unknown(t *testing.T) {
	_, err := pickScenarios([]string{"nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, recommit.ErrUnknownScenario)
}

func TestPickScenarios_NoArgsNonInteractive(t *testing.T) {
	// Under the test runner stdin is not a terminal, so the menu is skipped
	// and every scenario runs.
	t.Setenv("RECOMMIT_NON_INTERACTIVE", "1")

	scenarios, err := pickScenarios(nil)
	require.NoError(t, err)
	assert.Len(t, scenarios, 3)
}

func TestDemoCommand_Registered(t *testing.T) {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "demo" {
			assert.NotEmpty(t, cmd.Short)
			flag := cmd.Flags().Lookup("url")
			require.NotNil(t, flag)
			return
		}
	}
	t.Fatal("demo command not registered on root")
}

func TestVersionCommand_Registered(t *testing.T) {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "version" {
			return
		}
	}
	t.Fatal("version command not registered on root")
}
