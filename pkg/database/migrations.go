package database

import (
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator handles database migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

func (m *Migrator) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := m.db.Exec(query)
	return err
}

func (m *Migrator) getAppliedMigrations() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// RunMigrations applies all pending migrations from the embedded set
func (m *Migrator) RunMigrations() error {
	m.logger.Info("Starting database migrations")

	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	migrations := make([]Migration, len(schema))
	copy(migrations, schema)
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if applied[migration.Version] {
			m.logger.Debug("Skipping applied migration",
				zap.Int("version", migration.Version),
				zap.String("name", migration.Name))
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))

		if err := m.applyMigration(migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	m.logger.Info("Database migrations completed successfully")
	return nil
}

func (m *Migrator) applyMigration(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := execMigration(tx, migration); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("Failed to rollback migration", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func execMigration(tx *sql.Tx, migration Migration) error {
	if _, err := tx.Exec(migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	_, err := tx.Exec(
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		migration.Version,
		migration.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return nil
}

// schema holds the embedded migration set. Nested structures (line items,
// tax details, factor breakdowns, reasons) are stored as JSON text columns.
var schema = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		SQL: `
			CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				doc_type TEXT NOT NULL,
				document_name TEXT NOT NULL DEFAULT '',
				number TEXT NOT NULL DEFAULT '',
				vendor TEXT NOT NULL DEFAULT '',
				vendor_normalized TEXT NOT NULL DEFAULT '',
				currency TEXT NOT NULL DEFAULT 'USD',
				subtotal REAL NOT NULL DEFAULT 0,
				total_tax REAL NOT NULL DEFAULT 0,
				amount REAL NOT NULL DEFAULT 0,
				issue_date TEXT,
				due_date TEXT,
				delivery_date TEXT,
				received_date TEXT,
				received_by TEXT,
				po_reference TEXT,
				original_invoice_ref TEXT,
				payment_terms TEXT,
				notes TEXT,
				status TEXT NOT NULL DEFAULT 'pending',
				confidence REAL NOT NULL DEFAULT 0,
				confidence_factors TEXT NOT NULL DEFAULT '{}',
				extraction_source TEXT NOT NULL DEFAULT 'unknown',
				extracted_at DATETIME NOT NULL,
				line_items TEXT NOT NULL DEFAULT '[]',
				tax_details TEXT NOT NULL DEFAULT '[]',
				pricing_terms TEXT NOT NULL DEFAULT '[]',
				contract_terms TEXT NOT NULL DEFAULT '{}',
				parties TEXT NOT NULL DEFAULT '[]',
				early_payment_discount TEXT,
				uploaded_file TEXT NOT NULL DEFAULT '',
				manually_verified INTEGER NOT NULL DEFAULT 0,
				verified_at DATETIME,
				edit_history TEXT NOT NULL DEFAULT '[]'
			);
			CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(doc_type);
			CREATE INDEX IF NOT EXISTS idx_documents_vendor ON documents(vendor_normalized);
			CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

			CREATE TABLE IF NOT EXISTS matches (
				id TEXT PRIMARY KEY,
				invoice_id TEXT NOT NULL,
				invoice_number TEXT NOT NULL DEFAULT '',
				invoice_amount REAL NOT NULL DEFAULT 0,
				invoice_subtotal REAL NOT NULL DEFAULT 0,
				vendor TEXT NOT NULL DEFAULT '',
				po_id TEXT NOT NULL,
				po_number TEXT NOT NULL DEFAULT '',
				po_amount REAL NOT NULL DEFAULT 0,
				match_score REAL NOT NULL DEFAULT 0,
				signals TEXT NOT NULL DEFAULT '[]',
				amount_difference REAL NOT NULL DEFAULT 0,
				status TEXT NOT NULL DEFAULT 'review_needed',
				po_already_invoiced REAL NOT NULL DEFAULT 0,
				po_remaining REAL NOT NULL DEFAULT 0,
				po_invoice_count INTEGER NOT NULL DEFAULT 0,
				over_invoiced INTEGER NOT NULL DEFAULT 0,
				match_type TEXT NOT NULL DEFAULT 'two_way',
				grn_status TEXT NOT NULL DEFAULT 'no_grn',
				grn_ids TEXT NOT NULL DEFAULT '[]',
				grn_numbers TEXT NOT NULL DEFAULT '[]',
				total_received REAL NOT NULL DEFAULT 0,
				grn_line_items TEXT NOT NULL DEFAULT '[]',
				received_date TEXT,
				matched_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_matches_invoice ON matches(invoice_id);
			CREATE INDEX IF NOT EXISTS idx_matches_po ON matches(po_id);

			CREATE TABLE IF NOT EXISTS anomalies (
				id TEXT PRIMARY KEY,
				document_id TEXT NOT NULL,
				document_number TEXT NOT NULL DEFAULT '',
				vendor TEXT NOT NULL DEFAULT '',
				currency TEXT NOT NULL DEFAULT 'USD',
				type TEXT NOT NULL,
				severity TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				amount_at_risk REAL NOT NULL DEFAULT 0,
				contract_clause TEXT,
				recommendation TEXT,
				status TEXT NOT NULL DEFAULT 'open',
				detected_at DATETIME NOT NULL,
				resolved_at DATETIME,
				dismissed_at DATETIME
			);
			CREATE INDEX IF NOT EXISTS idx_anomalies_document ON anomalies(document_id);
			CREATE INDEX IF NOT EXISTS idx_anomalies_status ON anomalies(status);

			CREATE TABLE IF NOT EXISTS triage_decisions (
				id TEXT PRIMARY KEY,
				invoice_id TEXT NOT NULL UNIQUE,
				lane TEXT NOT NULL,
				reasons TEXT NOT NULL DEFAULT '[]',
				confidence REAL NOT NULL DEFAULT 0,
				vendor_risk TEXT NOT NULL DEFAULT '{}',
				anomaly_summary TEXT NOT NULL DEFAULT '{}',
				match_quality REAL NOT NULL DEFAULT 0,
				auto_action TEXT NOT NULL DEFAULT '',
				active_role TEXT NOT NULL DEFAULT 'analyst',
				required_approver TEXT NOT NULL DEFAULT '{}',
				overridden INTEGER NOT NULL DEFAULT 0,
				override_reason TEXT,
				override_actor TEXT,
				overridden_at DATETIME,
				decided_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS vendor_profiles (
				vendor_normalized TEXT PRIMARY KEY,
				vendor TEXT NOT NULL DEFAULT '',
				risk_score REAL NOT NULL DEFAULT 0,
				risk_level TEXT NOT NULL DEFAULT 'low',
				risk_trend TEXT NOT NULL DEFAULT 'stable',
				factors TEXT NOT NULL DEFAULT '{}',
				invoice_count INTEGER NOT NULL DEFAULT 0,
				total_spend REAL NOT NULL DEFAULT 0,
				open_anomaly_count INTEGER NOT NULL DEFAULT 0,
				total_anomaly_count INTEGER NOT NULL DEFAULT 0,
				updated_at DATETIME NOT NULL
			);

			CREATE TABLE IF NOT EXISTS activity_log (
				id TEXT PRIMARY KEY,
				action TEXT NOT NULL,
				document_id TEXT NOT NULL DEFAULT '',
				document_number TEXT NOT NULL DEFAULT '',
				vendor TEXT NOT NULL DEFAULT '',
				detail TEXT NOT NULL DEFAULT '{}',
				performed_by TEXT NOT NULL DEFAULT 'System',
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_activity_created ON activity_log(created_at);

			CREATE TABLE IF NOT EXISTS correction_patterns (
				id TEXT PRIMARY KEY,
				vendor TEXT NOT NULL DEFAULT '',
				vendor_normalized TEXT NOT NULL DEFAULT '',
				document_type TEXT NOT NULL DEFAULT '',
				field TEXT NOT NULL,
				extracted_value TEXT NOT NULL DEFAULT '',
				corrected_value TEXT NOT NULL DEFAULT '',
				note TEXT NOT NULL DEFAULT '',
				document_id TEXT NOT NULL DEFAULT '',
				correction_count INTEGER NOT NULL DEFAULT 1,
				learned_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_corrections_vendor ON correction_patterns(vendor_normalized);
		`,
	},
}
