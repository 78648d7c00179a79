/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists the payroll reference data (legal parameters, novelty types,
  concepts), employees, novelty records, payroll periods and pay-slip
  documents. The same schema runs on PostgreSQL through store/postgres.

INTERFACES IMPLEMENTED:
  legal.Store, legal.Writer:           Dated legal constants
  novelty.Store, novelty.Locker:       Novelty records and their types
  concept.Store, concept.Writer:       Concept catalog
  liquidation.EmployeeStore:           Employees
  liquidation.PeriodStore:             Periods and documents
  generic.Transactor:                  Context-carried transactions

KEY TABLES:
  legal_parameters:  One row per regime; seq is the insertion order used
                     to break ties between rows with the same valid_from
  novelties:         Absences and hour-based entries, locked_by set when
                     a period closes
  payroll_documents: One pay slip per employee and period, lines as JSON

INDEXES:
  - idx_legal_parameters_key: Resolver lookups
  - idx_novelties_employee_dates: Overlap checks and period loads (hot path)
  - idx_documents_period_employee: One document per employee per run

CONCURRENCY:
  The pool holds a single connection. A transaction owns it until it
  commits, so every call inside WithTx must use the context handed to fn.
  Calls made with another context while a transaction is open wait for it.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Transactor contract
  - store/postgres: Same surface on pgx
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/concept"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/legal"
	"github.com/warp/payroll-engine/liquidation"
	"github.com/warp/payroll-engine/novelty"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS legal_parameters (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_legal_parameters_key
		ON legal_parameters(key, valid_from);

	CREATE TABLE IF NOT EXISTS novelty_types (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		external_code TEXT NOT NULL DEFAULT '',
		payment_percentage TEXT NOT NULL,
		blocks_transport INTEGER NOT NULL DEFAULT 0,
		credits_health INTEGER NOT NULL DEFAULT 0,
		credits_pension INTEGER NOT NULL DEFAULT 0,
		credits_work_risk INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS concepts (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		external_code TEXT NOT NULL DEFAULT '',
		salarial INTEGER NOT NULL DEFAULT 0,
		factor TEXT NOT NULL DEFAULT '0',
		variant TEXT NOT NULL
	);

	-- Employees are owned by HR; the engine keeps a read copy.
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		contract_type TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT,
		base_salary TEXT NOT NULL,
		transport_eligible INTEGER NOT NULL DEFAULT 0,
		risk_class INTEGER NOT NULL DEFAULT 1,
		integral_salary INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS novelties (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		type_code TEXT NOT NULL REFERENCES novelty_types(code),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		day_count INTEGER NOT NULL CHECK (day_count > 0),
		hours TEXT NOT NULL DEFAULT '0',
		locked_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_novelties_employee_dates
		ON novelties(employee_id, start_date, end_date);

	CREATE TABLE IF NOT EXISTS payroll_periods (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		payment_date TEXT,
		status TEXT NOT NULL DEFAULT 'DRAFT'
	);

	CREATE TABLE IF NOT EXISTS payroll_documents (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL REFERENCES payroll_periods(id) ON DELETE CASCADE,
		employee_id TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		totals_json TEXT NOT NULL,
		ibc TEXT NOT NULL,
		contributions_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_period_employee
		ON payroll_documents(period_id, employee_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS (generic.Transactor)
// =============================================================================

type txKey struct{}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or the pool.
func (s *Store) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// WithTx executes fn within a database transaction. A nested call joins
// the transaction already carried by ctx.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, sqlTx)); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// LEGAL PARAMETERS
// =============================================================================

// SaveParameter appends a parameter row; seq is assigned by the database.
func (s *Store) SaveParameter(ctx context.Context, p legal.Parameter) error {
	if err := p.Validate(); err != nil {
		return err
	}

	_, err := s.conn(ctx).ExecContext(ctx,
		"INSERT INTO legal_parameters (key, value, valid_from, valid_to) VALUES (?, ?, ?, ?)",
		string(p.Key), p.Value.String(), p.ValidFrom.String(), nullDate(p.ValidTo),
	)
	if err != nil {
		return fmt.Errorf("failed to save legal parameter %s: %w", p.Key, err)
	}
	return nil
}

// ParametersByKey returns every row for key.
func (s *Store) ParametersByKey(ctx context.Context, key legal.Key) ([]legal.Parameter, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		"SELECT seq, key, value, valid_from, valid_to FROM legal_parameters WHERE key = ? ORDER BY seq",
		string(key),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query legal parameters: %w", err)
	}
	defer rows.Close()

	var params []legal.Parameter
	for rows.Next() {
		var (
			p         legal.Parameter
			k         string
			validFrom string
			validTo   sql.NullString
		)
		if err := rows.Scan(&p.Seq, &k, &p.Value, &validFrom, &validTo); err != nil {
			return nil, fmt.Errorf("failed to scan legal parameter: %w", err)
		}
		p.Key = legal.Key(k)
		if p.ValidFrom, err = generic.ParseDate(validFrom); err != nil {
			return nil, err
		}
		if p.ValidTo, err = parseNullDate(validTo); err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

// =============================================================================
// NOVELTY TYPES AND CONCEPTS
// =============================================================================

// SaveType inserts or replaces a novelty type.
func (s *Store) SaveType(ctx context.Context, t novelty.TypeDefinition) error {
	if err := t.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO novelty_types
		(code, name, external_code, payment_percentage, blocks_transport,
		 credits_health, credits_pension, credits_work_risk)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			external_code = excluded.external_code,
			payment_percentage = excluded.payment_percentage,
			blocks_transport = excluded.blocks_transport,
			credits_health = excluded.credits_health,
			credits_pension = excluded.credits_pension,
			credits_work_risk = excluded.credits_work_risk
	`

	_, err := s.conn(ctx).ExecContext(ctx, query,
		t.Code, t.Name, t.ExternalCode, t.PaymentPercentage.String(),
		t.BlocksTransportAllowance, t.CreditsHealth, t.CreditsPension, t.CreditsWorkRisk,
	)
	if err != nil {
		return fmt.Errorf("failed to save novelty type %s: %w", t.Code, err)
	}
	return nil
}

// TypeByCode returns a novelty type.
func (s *Store) TypeByCode(ctx context.Context, code string) (*novelty.TypeDefinition, error) {
	var t novelty.TypeDefinition
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT code, name, external_code, payment_percentage, blocks_transport,
		       credits_health, credits_pension, credits_work_risk
		FROM novelty_types WHERE code = ?`,
		code,
	).Scan(&t.Code, &t.Name, &t.ExternalCode, &t.PaymentPercentage, &t.BlocksTransportAllowance,
		&t.CreditsHealth, &t.CreditsPension, &t.CreditsWorkRisk)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "novelty type", ID: code}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load novelty type %s: %w", code, err)
	}
	return &t, nil
}

// SaveConcept inserts or replaces a catalog entry.
func (s *Store) SaveConcept(ctx context.Context, c concept.Concept) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c = c.Normalized()

	query := `
		INSERT INTO concepts (code, name, kind, external_code, salarial, factor, variant)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			external_code = excluded.external_code,
			salarial = excluded.salarial,
			factor = excluded.factor,
			variant = excluded.variant
	`

	_, err := s.conn(ctx).ExecContext(ctx, query,
		c.Code, c.Name, string(c.Kind), c.ExternalCode, c.Salarial, c.Factor.String(), string(c.Variant),
	)
	if err != nil {
		return fmt.Errorf("failed to save concept %s: %w", c.Code, err)
	}
	return nil
}

// ConceptByCode returns a catalog entry.
func (s *Store) ConceptByCode(ctx context.Context, code string) (*concept.Concept, error) {
	var (
		c       concept.Concept
		kind    string
		variant string
	)
	err := s.conn(ctx).QueryRowContext(ctx,
		"SELECT code, name, kind, external_code, salarial, factor, variant FROM concepts WHERE code = ?",
		code,
	).Scan(&c.Code, &c.Name, &kind, &c.ExternalCode, &c.Salarial, &c.Factor, &variant)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "concept", ID: code}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load concept %s: %w", code, err)
	}
	c.Kind = concept.Kind(kind)
	c.Variant = concept.Variant(variant)
	return &c, nil
}

// =============================================================================
// NOVELTY RECORDS
// =============================================================================

const noveltyColumns = `id, employee_id, type_code, start_date, end_date, day_count, hours, locked_by, created_at`

// SaveRecord inserts or replaces a novelty by ID.
func (s *Store) SaveRecord(ctx context.Context, r novelty.Record) error {
	if r.ID == "" {
		return &generic.ValidationError{Field: "id", Message: "is required"}
	}

	query := `
		INSERT INTO novelties (` + noveltyColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			type_code = excluded.type_code,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			day_count = excluded.day_count,
			hours = excluded.hours,
			locked_by = excluded.locked_by
	`

	_, err := s.conn(ctx).ExecContext(ctx, query,
		r.ID, r.EmployeeID, r.TypeCode,
		r.StartDate.String(), r.EndDate.String(),
		r.DayCount, r.Hours.String(),
		nullString(r.LockedBy),
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintError(err, sqlite3.ErrConstraintForeignKey) {
			return &generic.ValidationError{Field: "type_code", Message: fmt.Sprintf("unknown novelty type %q", r.TypeCode)}
		}
		return fmt.Errorf("failed to save novelty %s: %w", r.ID, err)
	}
	return nil
}

// GetRecord returns a novelty by ID.
func (s *Store) GetRecord(ctx context.Context, id string) (*novelty.Record, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		"SELECT "+noveltyColumns+" FROM novelties WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query novelty: %w", err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &generic.NotFoundError{Kind: "novelty", ID: id}
	}
	return &records[0], nil
}

// Overlapping returns the employee's records that intersect span.
func (s *Store) Overlapping(ctx context.Context, employeeID string, span generic.Period, excludeID string) ([]novelty.Record, error) {
	query := `
		SELECT ` + noveltyColumns + `
		FROM novelties
		WHERE employee_id = ? AND id != ?
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date, id
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query,
		employeeID, excludeID, span.End.String(), span.Start.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping novelties: %w", err)
	}
	return scanRecords(rows)
}

// RecordsWithin returns the employee's records lying fully inside span.
func (s *Store) RecordsWithin(ctx context.Context, employeeID string, span generic.Period) ([]novelty.Record, error) {
	query := `
		SELECT ` + noveltyColumns + `
		FROM novelties
		WHERE employee_id = ?
		  AND start_date >= ? AND end_date <= ?
		ORDER BY start_date, id
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query,
		employeeID, span.Start.String(), span.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query novelties: %w", err)
	}
	return scanRecords(rows)
}

// LockRecords stamps every unlocked record inside span with periodID.
func (s *Store) LockRecords(ctx context.Context, span generic.Period, periodID string) (int, error) {
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE novelties SET locked_by = ?
		WHERE locked_by IS NULL AND start_date >= ? AND end_date <= ?`,
		periodID, span.Start.String(), span.End.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to lock novelties: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanRecords(rows *sql.Rows) ([]novelty.Record, error) {
	defer rows.Close()

	var records []novelty.Record
	for rows.Next() {
		var (
			r          novelty.Record
			start, end string
			lockedBy   sql.NullString
			createdAt  string
			err        error
		)
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.TypeCode, &start, &end,
			&r.DayCount, &r.Hours, &lockedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan novelty: %w", err)
		}
		if r.StartDate, err = generic.ParseDate(start); err != nil {
			return nil, err
		}
		if r.EndDate, err = generic.ParseDate(end); err != nil {
			return nil, err
		}
		r.LockedBy = lockedBy.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, name, contract_type, start_date, end_date, base_salary,
	transport_eligible, risk_class, integral_salary, active`

// SaveEmployee inserts or replaces an employee.
func (s *Store) SaveEmployee(ctx context.Context, e liquidation.Employee) error {
	if err := e.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			contract_type = excluded.contract_type,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			base_salary = excluded.base_salary,
			transport_eligible = excluded.transport_eligible,
			risk_class = excluded.risk_class,
			integral_salary = excluded.integral_salary,
			active = excluded.active
	`

	_, err := s.conn(ctx).ExecContext(ctx, query,
		e.ID, e.Name, e.ContractType, e.StartDate.String(), nullDate(e.EndDate),
		e.BaseSalary.String(), e.TransportAllowanceEligible, e.RiskClass,
		e.IntegralSalary, e.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save employee %s: %w", e.ID, err)
	}
	return nil
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (*liquidation.Employee, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee: %w", err)
	}
	employees, err := scanEmployees(rows)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, &generic.NotFoundError{Kind: "employee", ID: id}
	}
	return &employees[0], nil
}

// ListEmployees returns all employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]liquidation.Employee, error) {
	rows, err := s.conn(ctx).QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	return scanEmployees(rows)
}

func scanEmployees(rows *sql.Rows) ([]liquidation.Employee, error) {
	defer rows.Close()

	var employees []liquidation.Employee
	for rows.Next() {
		var (
			e     liquidation.Employee
			start string
			end   sql.NullString
			err   error
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.ContractType, &start, &end, &e.BaseSalary,
			&e.TransportAllowanceEligible, &e.RiskClass, &e.IntegralSalary, &e.Active); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		if e.StartDate, err = generic.ParseDate(start); err != nil {
			return nil, err
		}
		if e.EndDate, err = parseNullDate(end); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// =============================================================================
// PAYROLL PERIODS
// =============================================================================

// SavePeriod inserts or replaces a payroll period.
func (s *Store) SavePeriod(ctx context.Context, p liquidation.PayrollPeriod) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = liquidation.StatusDraft
	}

	query := `
		INSERT INTO payroll_periods (id, name, start_date, end_date, payment_date, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			payment_date = excluded.payment_date,
			status = excluded.status
	`

	var payment *generic.Date
	if !p.PaymentDate.IsZero() {
		payment = &p.PaymentDate
	}
	_, err := s.conn(ctx).ExecContext(ctx, query,
		p.ID, p.Name, p.Start.String(), p.End.String(), nullDate(payment), string(p.Status))
	if err != nil {
		return fmt.Errorf("failed to save payroll period %s: %w", p.ID, err)
	}
	return nil
}

// GetPeriod returns a payroll period.
func (s *Store) GetPeriod(ctx context.Context, id string) (*liquidation.PayrollPeriod, error) {
	var (
		p          liquidation.PayrollPeriod
		start, end string
		payment    sql.NullString
		status     string
	)
	err := s.conn(ctx).QueryRowContext(ctx,
		"SELECT id, name, start_date, end_date, payment_date, status FROM payroll_periods WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &start, &end, &payment, &status)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "payroll period", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payroll period %s: %w", id, err)
	}

	if p.Start, err = generic.ParseDate(start); err != nil {
		return nil, err
	}
	if p.End, err = generic.ParseDate(end); err != nil {
		return nil, err
	}
	if pd, err := parseNullDate(payment); err != nil {
		return nil, err
	} else if pd != nil {
		p.PaymentDate = *pd
	}
	if p.Status, err = liquidation.ParseStatus(status); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// DeleteDocuments removes the period's documents.
func (s *Store) DeleteDocuments(ctx context.Context, periodID string) (int, error) {
	res, err := s.conn(ctx).ExecContext(ctx,
		"DELETE FROM payroll_documents WHERE period_id = ?", periodID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// SaveDocument inserts a pay slip.
func (s *Store) SaveDocument(ctx context.Context, d liquidation.Document) error {
	lines, err := json.Marshal(d.Lines)
	if err != nil {
		return fmt.Errorf("failed to encode lines: %w", err)
	}
	totals, err := json.Marshal(d.Totals)
	if err != nil {
		return fmt.Errorf("failed to encode totals: %w", err)
	}
	contributions, err := json.Marshal(d.Contributions)
	if err != nil {
		return fmt.Errorf("failed to encode contributions: %w", err)
	}

	query := `
		INSERT INTO payroll_documents
		(id, period_id, employee_id, lines_json, totals_json, ibc, contributions_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.conn(ctx).ExecContext(ctx, query,
		d.ID, d.PeriodID, d.EmployeeID,
		string(lines), string(totals), d.IBC.String(), string(contributions),
		d.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	switch {
	case err == nil:
		return nil
	case isConstraintError(err, sqlite3.ErrConstraintForeignKey):
		return fmt.Errorf("failed to save document: %w", &generic.NotFoundError{Kind: "payroll period", ID: d.PeriodID})
	case isConstraintError(err, sqlite3.ErrConstraintUnique), isConstraintError(err, sqlite3.ErrConstraintPrimaryKey):
		return fmt.Errorf("%w: document for %s in period %s already exists", generic.ErrConflict, d.EmployeeID, d.PeriodID)
	default:
		return fmt.Errorf("failed to save document: %w", err)
	}
}

// DocumentsByPeriod returns the period's documents ordered by employee.
func (s *Store) DocumentsByPeriod(ctx context.Context, periodID string) ([]liquidation.Document, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, period_id, employee_id, lines_json, totals_json, ibc, contributions_json, created_at
		FROM payroll_documents
		WHERE period_id = ?
		ORDER BY employee_id`,
		periodID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []liquidation.Document
	for rows.Next() {
		var (
			d                            liquidation.Document
			lines, totals, contributions string
			createdAt                    string
		)
		if err := rows.Scan(&d.ID, &d.PeriodID, &d.EmployeeID, &lines, &totals,
			&d.IBC, &contributions, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal([]byte(lines), &d.Lines); err != nil {
			return nil, fmt.Errorf("failed to decode lines of %s: %w", d.ID, err)
		}
		if err := json.Unmarshal([]byte(totals), &d.Totals); err != nil {
			return nil, fmt.Errorf("failed to decode totals of %s: %w", d.ID, err)
		}
		if err := json.Unmarshal([]byte(contributions), &d.Contributions); err != nil {
			return nil, fmt.Errorf("failed to decode contributions of %s: %w", d.ID, err)
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (*generic.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := generic.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func isConstraintError(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}
