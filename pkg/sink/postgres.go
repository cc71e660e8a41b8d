// pkg/sink/postgres.go
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/sheetops/sheet-ingress/pkg/model"
)

// PostgresSink persists valid records into the target tables and sets
// invalid records aside in the migration_audit quarantine table. Upserts are
// keyed by primary identifier; the foreign-key constraint on orders backstops
// the transform-time referential check.
type PostgresSink struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresSink creates the sink and ensures the target tables exist.
func NewPostgresSink(ctx context.Context, db *sqlx.DB, logger *zap.Logger) (*PostgresSink, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	s := &PostgresSink{
		db:     db,
		logger: logger.Named("postgres-sink"),
	}

	if err := s.ensureTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure target tables: %w", err)
	}

	return s, nil
}

func (s *PostgresSink) ensureTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			customer_id       TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			email             TEXT NOT NULL,
			phone             TEXT,
			city              TEXT,
			state             TEXT,
			registration_date DATE NOT NULL,
			status            TEXT NOT NULL CHECK (status IN ('Active', 'Inactive', 'Pending'))
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id     TEXT PRIMARY KEY,
			customer_id  TEXT NOT NULL REFERENCES customers (customer_id),
			product_name TEXT NOT NULL,
			quantity     INTEGER NOT NULL CHECK (quantity > 0),
			unit_price   NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
			order_date   DATE NOT NULL,
			status       TEXT NOT NULL CHECK (status IN ('Pending', 'Processing', 'Shipped', 'Delivered', 'Cancelled'))
		)`,
		`CREATE TABLE IF NOT EXISTS migration_audit (
			id          SERIAL PRIMARY KEY,
			entity_type TEXT NOT NULL,
			row_index   INTEGER NOT NULL,
			field_name  TEXT,
			reason      TEXT NOT NULL,
			recorded_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	s.logger.Info("Ensured target tables exist")
	return nil
}

// Load upserts a batch of valid records keyed by primary identifier.
// Records arriving without an identifier (deferred at transform time) get
// the next sequential identifier from the persisted store. Individual
// record failures are reported in the summary and do not abort the batch.
func (s *PostgresSink) Load(ctx context.Context, entity model.EntityType, records []model.CandidateRecord) (model.LoadSummary, error) {
	summary := model.LoadSummary{}
	if len(records) == 0 {
		return summary, nil
	}

	idField, prefix, query, err := loadPlan(entity)
	if err != nil {
		return summary, err
	}

	next, err := s.nextIdentifierSuffix(ctx, entity, prefix)
	if err != nil {
		return summary, fmt.Errorf("failed to determine next %s identifier: %w", entity, err)
	}

	for _, record := range records {
		args := make(map[string]any, len(record.Fields))
		for k, v := range record.Fields {
			args[k] = v
		}

		if args[idField] == nil {
			args[idField] = fmt.Sprintf("%s%03d", prefix, next)
			next++
			summary.GeneratedIDs++
		}

		if _, err := s.db.NamedExecContext(ctx, query, args); err != nil {
			summary.Failures = append(summary.Failures, model.LoadFailure{
				RowIndex: record.RowIndex,
				Reason:   err.Error(),
			})
			s.logger.Warn("Failed to persist record",
				zap.String("entity", string(entity)),
				zap.Int("row", record.RowIndex),
				zap.Error(err))
			continue
		}
		summary.Loaded++
	}

	s.logger.Info("Loaded records",
		zap.String("entity", string(entity)),
		zap.Int("loaded", summary.Loaded),
		zap.Int("generatedIDs", summary.GeneratedIDs),
		zap.Int("failed", len(summary.Failures)))

	return summary, nil
}

// Quarantine records every invalid record's fatal reasons in the audit
// table. Quarantined records are never written to the target tables.
func (s *PostgresSink) Quarantine(ctx context.Context, entity model.EntityType, records []model.CandidateRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO migration_audit (entity_type, row_index, field_name, reason)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, record := range records {
		for _, issue := range record.Fatals {
			if _, err = stmt.ExecContext(ctx, string(entity), issue.RowIndex, issue.Field, issue.Reason); err != nil {
				return fmt.Errorf("failed to insert audit entry: %w", err)
			}
			count++
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Quarantined invalid records",
		zap.String("entity", string(entity)),
		zap.Int("records", len(records)),
		zap.Int("reasons", count))

	return nil
}

// nextIdentifierSuffix returns one past the highest numeric identifier
// suffix already persisted for the entity. Assignment is always-append;
// gaps in the sequence are never refilled.
func (s *PostgresSink) nextIdentifierSuffix(ctx context.Context, entity model.EntityType, prefix string) (int, error) {
	table, idColumn := targetTable(entity)
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(CAST(SUBSTRING(%s FROM %d) AS INTEGER)), 0)
		FROM %s
		WHERE %s ~ '^%s[0-9]+$'
	`, idColumn, len(prefix)+1, table, idColumn, prefix)

	var max int
	if err := s.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, err
	}
	return max + 1, nil
}

func targetTable(entity model.EntityType) (table, idColumn string) {
	switch entity {
	case model.EntityCustomer:
		return "customers", "customer_id"
	case model.EntityOrder:
		return "orders", "order_id"
	default:
		return "", ""
	}
}

// loadPlan returns the identifier field, identifier prefix, and upsert
// statement for an entity type.
func loadPlan(entity model.EntityType) (idField, prefix, query string, err error) {
	switch entity {
	case model.EntityCustomer:
		return model.FieldCustomerID, "C", `
			INSERT INTO customers
				(customer_id, name, email, phone, city, state, registration_date, status)
			VALUES
				(:customer_id, :name, :email, :phone, :city, :state, :registration_date, :status)
			ON CONFLICT (customer_id) DO UPDATE SET
				name = EXCLUDED.name,
				email = EXCLUDED.email,
				phone = EXCLUDED.phone,
				city = EXCLUDED.city,
				state = EXCLUDED.state,
				registration_date = EXCLUDED.registration_date,
				status = EXCLUDED.status
		`, nil
	case model.EntityOrder:
		return model.FieldOrderID, "ORD", `
			INSERT INTO orders
				(order_id, customer_id, product_name, quantity, unit_price, order_date, status)
			VALUES
				(:order_id, :customer_id, :product_name, :quantity, :unit_price, :order_date, :status)
			ON CONFLICT (order_id) DO UPDATE SET
				customer_id = EXCLUDED.customer_id,
				product_name = EXCLUDED.product_name,
				quantity = EXCLUDED.quantity,
				unit_price = EXCLUDED.unit_price,
				order_date = EXCLUDED.order_date,
				status = EXCLUDED.status
		`, nil
	default:
		return "", "", "", fmt.Errorf("unknown entity type %q", entity)
	}
}
