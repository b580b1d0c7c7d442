package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/recommit/internal/db"
	"github.com/vvka-141/recommit/internal/demo"
	"github.com/vvka-141/recommit/internal/logging"
	"github.com/vvka-141/recommit/internal/tui"
	"github.com/vvka-141/recommit/pkg/recommit"
)

const runAll = "all"

func init() {
	flags := &connFlags{}

	demoCmd := &cobra.Command{
		Use:   "demo [scenario]",
		Short: "Run contention scenarios against a live cluster",
		Long: `Runs hot-row contention scenarios against CockroachDB or PostgreSQL and
shows the retry executor absorbing every serialization conflict.

Without an argument an interactive menu lists the scenarios; in scripts and
CI all scenarios run in order. Pass "all" to run every scenario explicitly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, args, flags)
		},
	}

	demoCmd.Flags().StringVar(&flags.url, "url", "", "Connection string (postgresql://...)")
	demoCmd.Flags().StringVar(&flags.host, "host", "", "Database host")
	demoCmd.Flags().IntVar(&flags.port, "port", 0, "Database port (26257 for CockroachDB)")
	demoCmd.Flags().StringVarP(&flags.database, "database", "d", "", "Database name")
	demoCmd.Flags().StringVarP(&flags.user, "user", "u", "", "Database user")
	demoCmd.Flags().StringVar(&flags.password, "password", "", "Database password (prefer $PGPASSWORD)")
	demoCmd.Flags().StringVar(&flags.sslMode, "sslmode", "", "SSL mode (disable, require, verify-full)")
	demoCmd.Flags().StringVar(&flags.authMethod, "auth-method", "", "Authentication method: standard, aws-iam, google-iam, azure-entra-id")
	demoCmd.Flags().StringVar(&flags.awsRegion, "aws-region", "", "AWS region for IAM authentication")
	demoCmd.Flags().StringVar(&flags.azureTenantID, "azure-tenant-id", "", "Azure tenant ID for Entra ID authentication")
	demoCmd.Flags().StringVar(&flags.azureClientID, "azure-client-id", "", "Azure client ID for Entra ID authentication")
	demoCmd.Flags().StringVar(&flags.googleInstance, "google-instance", "", "Cloud SQL instance connection name (project:region:instance)")

	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string, flags *connFlags) error {
	_ = godotenv.Load()

	verbose := getVerboseFlag(cmd)
	logger := logging.NewConsoleLogger(verbose)

	projectConfig, err := loadProjectConfig()
	if err != nil {
		return err
	}

	connConfig, err := resolveConnection(*flags, projectConfig)
	if err != nil {
		return err
	}

	policy := recommit.DefaultPolicy()
	if projectConfig != nil {
		policy, err = projectConfig.Retry.Policy()
		if err != nil {
			return err
		}
	}

	scenarios, err := pickScenarios(args)
	if err != nil {
		return err
	}
	if len(scenarios) == 0 {
		logger.Info("no scenario chosen")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connector, err := db.NewConnector(connConfig)
	if err != nil {
		return err
	}
	logger.Verbose("connecting to %s:%d/%s (%s auth)",
		connConfig.Host, connConfig.Port, connConfig.Database, connConfig.AuthMethod)

	pool, err := connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", recommit.ErrConnectionFailed, err)
	}
	defer pool.Close()
	if closer, ok := connector.(io.Closer); ok {
		defer closer.Close()
	}

	deps := demo.Deps{Pool: pool, Policy: policy, Logger: logger}
	for _, scenario := range scenarios {
		logger.Info("")
		logger.Info("=== %s: %s ===", scenario.Name, scenario.Description)
		if err := scenario.Run(ctx, deps); err != nil {
			return fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}
	return nil
}

// pickScenarios decides what to run: the named scenario, everything, or
// whatever the user chooses from the interactive menu.
func pickScenarios(args []string) ([]demo.Scenario, error) {
	if len(args) == 1 && args[0] != runAll {
		scenario, err := demo.Lookup(args[0])
		if err != nil {
			return nil, err
		}
		return []demo.Scenario{scenario}, nil
	}

	if len(args) == 1 || !tui.IsInteractive() {
		return demo.Scenarios(), nil
	}

	options := make([]tui.MenuOption, 0, len(demo.Scenarios())+1)
	for _, s := range demo.Scenarios() {
		options = append(options, tui.MenuOption{Label: s.Name, Description: s.Description, Value: s.Name})
	}
	options = append(options, tui.MenuOption{Label: runAll, Description: "Run every scenario in order", Value: runAll})

	choice, chosen, err := tui.RunMenu("recommit scenarios", options)
	if err != nil {
		return nil, err
	}
	if !chosen {
		return nil, nil
	}
	if choice == runAll {
		return demo.Scenarios(), nil
	}

	scenario, err := demo.Lookup(choice)
	if err != nil {
		return nil, err
	}
	return []demo.Scenario{scenario}, nil
}
