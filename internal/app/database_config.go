package app

import (
	"strings"

	"github.com/eventdeskhq/eventdesk/internal/database"
)

// DatabaseSettings converts DatabaseConfig to the database package
// representation, preferring an explicit DSN over host based parameters.
func (c DatabaseConfig) DatabaseSettings() database.Config {
	cfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		Path:   c.Path,
		DSN:    c.DSN,
	}

	switch cfg.Driver {
	case "postgres", "postgresql":
		if c.Postgres.Enabled {
			cfg.Host = c.Postgres.Host
			cfg.Port = c.Postgres.Port
			cfg.Name = c.Postgres.Database
			cfg.User = c.Postgres.Username
			cfg.Password = c.Postgres.Password
		}
	case "mysql":
		if c.MySQL.Enabled {
			cfg.Host = c.MySQL.Host
			cfg.Port = c.MySQL.Port
			cfg.Name = c.MySQL.Database
			cfg.User = c.MySQL.Username
			cfg.Password = c.MySQL.Password
		}
	}

	return cfg
}
