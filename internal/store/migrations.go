package store

import (
	"fmt"
	"strings"
)

// dialect captures the differences between the supported backends: the
// database/sql driver name, column types, and a few syntax variations.
type dialect struct {
	name   string
	driver string
	types  *strings.Replacer
}

var dialects = map[string]*dialect{
	"sqlite": {
		name:   "sqlite",
		driver: "sqlite",
		types: strings.NewReplacer(
			"{id}", "TEXT", "{str}", "TEXT", "{text}", "TEXT",
			"{bool}", "INTEGER", "{int}", "INTEGER", "{bigint}", "INTEGER",
			"{time}", "DATETIME",
		),
	},
	"postgres": {
		name:   "postgres",
		driver: "pgx",
		types: strings.NewReplacer(
			"{id}", "VARCHAR(64)", "{str}", "VARCHAR(255)", "{text}", "TEXT",
			"{bool}", "BOOLEAN", "{int}", "INTEGER", "{bigint}", "BIGINT",
			"{time}", "TIMESTAMPTZ",
		),
	},
	"mysql": {
		name:   "mysql",
		driver: "mysql",
		types: strings.NewReplacer(
			"{id}", "VARCHAR(64)", "{str}", "VARCHAR(255)", "{text}", "TEXT",
			"{bool}", "BOOLEAN", "{int}", "INT", "{bigint}", "BIGINT",
			"{time}", "DATETIME(6)",
		),
	},
	"mssql": {
		name:   "mssql",
		driver: "sqlserver",
		types: strings.NewReplacer(
			"{id}", "NVARCHAR(64)", "{str}", "NVARCHAR(255)", "{text}", "NVARCHAR(MAX)",
			"{bool}", "BIT", "{int}", "INT", "{bigint}", "BIGINT",
			"{time}", "DATETIME2",
		),
	},
}

func lookupDialect(name string) (*dialect, error) {
	switch name {
	case "", "sqlite3":
		name = "sqlite"
	case "postgresql", "pgx":
		name = "postgres"
	case "sqlserver":
		name = "mssql"
	}
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q (want sqlite, postgres, mysql or mssql)", name)
	}
	return d, nil
}

// createTable renders a CREATE TABLE statement that is a no-op when the
// table already exists.
func (d *dialect) createTable(table, body string) string {
	body = d.types.Replace(body)
	if d.name == "mssql" {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)", table, table, body)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, body)
}

// limit appends a row limit to an ordered query.
func (d *dialect) limit(q string, n int) string {
	if n <= 0 {
		return q
	}
	if d.name == "mssql" {
		return fmt.Sprintf("%s OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", q, n)
	}
	return fmt.Sprintf("%s LIMIT %d", q, n)
}

func (s *Store) migrate() error {
	d := s.dialect
	migrations := []string{
		d.createTable("services", `
			name {id} NOT NULL PRIMARY KEY,
			label {str} NOT NULL,
			odyssey {bool} NOT NULL`),

		d.createTable("carriers", `
			id {id} NOT NULL PRIMARY KEY,
			name {str} NOT NULL,
			callsign {id} NOT NULL UNIQUE,
			current_location {str} NOT NULL,
			previous_location {str} NULL,
			docking_access {id} NOT NULL,
			allow_notorious {bool} NOT NULL,
			owner {str} NOT NULL,
			owner_external_id {str} NULL,
			image_url {text} NULL,
			category {id} NOT NULL,
			fuel_level {int} NOT NULL,
			cargo_space {int} NOT NULL,
			cargo_used {int} NOT NULL,
			balance {bigint} NOT NULL,
			reserve_balance {bigint} NOT NULL,
			version {bigint} NOT NULL,
			created_at {time} NOT NULL,
			updated_at {time} NOT NULL`),

		d.createTable("carrier_services", `
			carrier_id {id} NOT NULL,
			service_name {id} NOT NULL,
			PRIMARY KEY (carrier_id, service_name),
			FOREIGN KEY (carrier_id) REFERENCES carriers(id) ON DELETE CASCADE,
			FOREIGN KEY (service_name) REFERENCES services(name) ON DELETE CASCADE`),

		d.createTable("api_keys", `
			id {id} NOT NULL PRIMARY KEY,
			key_hash {id} NOT NULL UNIQUE,
			key_prefix {id} NOT NULL,
			label {str} NOT NULL,
			can_read_all {bool} NOT NULL,
			can_write_all {bool} NOT NULL,
			expires_at {time} NULL,
			created_at {time} NOT NULL,
			last_used {time} NULL`),

		d.createTable("api_key_grants", `
			key_id {id} NOT NULL,
			carrier_id {id} NOT NULL,
			mode {id} NOT NULL,
			PRIMARY KEY (key_id, carrier_id, mode),
			FOREIGN KEY (key_id) REFERENCES api_keys(id) ON DELETE CASCADE,
			FOREIGN KEY (carrier_id) REFERENCES carriers(id) ON DELETE CASCADE`),

		d.createTable("admins", `
			id {id} NOT NULL PRIMARY KEY,
			email {str} NOT NULL UNIQUE,
			password_hash {str} NOT NULL,
			name {str} NOT NULL,
			is_active {bool} NOT NULL,
			is_super_admin {bool} NOT NULL,
			last_login_at {time} NULL,
			created_at {time} NOT NULL,
			updated_at {time} NOT NULL`),

		// No foreign keys: entries outlive the carrier or key they mention.
		d.createTable("audit_log", `
			id {id} NOT NULL PRIMARY KEY,
			key_id {id} NOT NULL,
			carrier_id {id} NOT NULL,
			created_at {time} NOT NULL,
			entry_type {id} NOT NULL,
			source {id} NOT NULL,
			old_value {text} NOT NULL,
			new_value {text} NOT NULL,
			external_actor {str} NULL`),

		`CREATE INDEX idx_audit_log_carrier ON audit_log (carrier_id, created_at)`,
		`CREATE INDEX idx_api_key_grants_carrier ON api_key_grants (carrier_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Index creation has no portable IF NOT EXISTS; tolerate
			// re-runs against an existing schema.
			msg := err.Error()
			if strings.Contains(msg, "already exists") || strings.Contains(msg, "Duplicate key name") {
				continue
			}
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
