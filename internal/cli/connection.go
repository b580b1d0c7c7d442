package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/recommit/internal/config"
	"github.com/vvka-141/recommit/internal/db"
	"github.com/vvka-141/recommit/pkg/recommit"
)

// connFlags holds the connection-related command line flags.
type connFlags struct {
	url        string
	host       string
	port       int
	database   string
	user       string
	password   string
	sslMode    string
	authMethod string

	awsRegion         string
	azureTenantID     string
	azureClientID     string
	azureClientSecret string
	googleInstance    string
}

// connectionStringFromEnv returns the first non-empty connection string from
// RECOMMIT_URL or DATABASE_URL environment variables.
func connectionStringFromEnv() string {
	if s := os.Getenv("RECOMMIT_URL"); s != "" {
		return s
	}
	return os.Getenv("DATABASE_URL")
}

// resolveConnection builds the final ConnectionConfig from, in order of
// precedence: command line flags, environment variables (RECOMMIT_URL,
// DATABASE_URL, then the libpq PG* family), and the project config file.
func resolveConnection(flags connFlags, projectConfig *config.ProjectConfig) (*recommit.ConnectionConfig, error) {
	connString := flags.url
	if connString == "" {
		connString = connectionStringFromEnv()
	}

	var connConfig *recommit.ConnectionConfig
	if connString != "" {
		parsed, err := db.ParseConnectionString(connString)
		if err != nil {
			return nil, err
		}
		connConfig = parsed
	} else {
		connConfig = &recommit.ConnectionConfig{
			Host:       "localhost",
			Port:       26257,
			Database:   "defaultdb",
			SSLMode:    "prefer",
			AuthMethod: recommit.AuthMethodStandard,
		}
		applyProjectConfig(connConfig, projectConfig)
		applyPgEnv(connConfig)
	}

	applyFlagOverrides(connConfig, flags)

	authName := flags.authMethod
	if authName == "" && projectConfig != nil {
		authName = projectConfig.Connection.AuthMethod
	}
	if authName != "" {
		method, err := recommit.ParseAuthMethod(authName)
		if err != nil {
			return nil, err
		}
		connConfig.AuthMethod = method
	}

	if connConfig.AppName == "" {
		connConfig.AppName = "recommit"
	}
	return connConfig, nil
}

func applyProjectConfig(connConfig *recommit.ConnectionConfig, projectConfig *config.ProjectConfig) {
	if projectConfig == nil {
		return
	}
	fileConn := projectConfig.Connection
	if fileConn.Host != "" {
		connConfig.Host = fileConn.Host
	}
	if fileConn.Port != 0 {
		connConfig.Port = fileConn.Port
	}
	if fileConn.Database != "" {
		connConfig.Database = fileConn.Database
	}
	if fileConn.Username != "" {
		connConfig.Username = fileConn.Username
	}
	if fileConn.SSLMode != "" {
		connConfig.SSLMode = fileConn.SSLMode
	}
	if fileConn.AWSRegion != "" {
		connConfig.AWSRegion = fileConn.AWSRegion
	}
	if fileConn.AzureTenantID != "" {
		connConfig.AzureTenantID = fileConn.AzureTenantID
	}
	if fileConn.AzureClientID != "" {
		connConfig.AzureClientID = fileConn.AzureClientID
	}
	if fileConn.GoogleInstance != "" {
		connConfig.GoogleInstance = fileConn.GoogleInstance
	}
}

func applyPgEnv(connConfig *recommit.ConnectionConfig) {
	if v := os.Getenv("PGHOST"); v != "" {
		connConfig.Host = v
	}
	if v := os.Getenv("PGPORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			connConfig.Port = port
		}
	}
	if v := os.Getenv("PGDATABASE"); v != "" {
		connConfig.Database = v
	}
	if v := os.Getenv("PGUSER"); v != "" {
		connConfig.Username = v
	}
	if v := os.Getenv("PGPASSWORD"); v != "" {
		connConfig.Password = v
	}
	if v := os.Getenv("PGSSLMODE"); v != "" {
		connConfig.SSLMode = v
	}
}

func applyFlagOverrides(connConfig *recommit.ConnectionConfig, flags connFlags) {
	if flags.host != "" {
		connConfig.Host = flags.host
	}
	if flags.port != 0 {
		connConfig.Port = flags.port
	}
	if flags.database != "" {
		connConfig.Database = flags.database
	}
	if flags.user != "" {
		connConfig.Username = flags.user
	}
	if flags.password != "" {
		connConfig.Password = flags.password
	}
	if flags.sslMode != "" {
		connConfig.SSLMode = flags.sslMode
	}
	if flags.awsRegion != "" {
		connConfig.AWSRegion = flags.awsRegion
	}
	if flags.azureTenantID != "" {
		connConfig.AzureTenantID = flags.azureTenantID
	}
	if flags.azureClientID != "" {
		connConfig.AzureClientID = flags.azureClientID
	}
	if flags.azureClientSecret != "" {
		connConfig.AzureClientSecret = flags.azureClientSecret
	} else if v := os.Getenv("AZURE_CLIENT_SECRET"); v != "" {
		connConfig.AzureClientSecret = v
	}
	if flags.googleInstance != "" {
		connConfig.GoogleInstance = flags.googleInstance
	}
}

// loadProjectConfig loads .env and the optional recommit.yaml from the
// working directory. A missing config file is not an error.
func loadProjectConfig() (*config.ProjectConfig, error) {
	projectConfig, err := config.Load(".")
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return projectConfig, nil
}
