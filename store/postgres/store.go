/*
Package postgres provides a PostgreSQL implementation of the storage interfaces.

PURPOSE:
  Same surface and table layout as store/sqlite, on a pgx/v5 pool. Used
  when several engine processes share one database.

TYPES:
  Money, rates and hours are NUMERIC. They are selected as ::text and
  scanned through decimal.Decimal's sql.Scanner so no value passes
  through float64. Calendar days are DATE; document lines are JSONB.

TRANSACTIONS:
  The active pgx.Tx travels in the context (see tx.go). Every method
  picks it up through conn(ctx).

ERRORS:
  23503 (foreign key) on novelties:         ValidationError on type_code
  23503 (foreign key) on payroll_documents: NotFoundError for the period
  23505 (unique) on payroll_documents:      generic.ErrConflict

USAGE:
  pool, err := postgres.NewPool(ctx, cfg.Database)
  store := postgres.New(pool)
  if err := store.Migrate(ctx); err != nil { ... }

SEE ALSO:
  - store/sqlite/sqlite.go: Embedded variant
  - generic/store.go: Transactor contract
*/
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/warp/payroll-engine/concept"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/legal"
	"github.com/warp/payroll-engine/liquidation"
	"github.com/warp/payroll-engine/novelty"
)

const (
	foreignKeyViolationCode = "23503"
	uniqueViolationCode     = "23505"

	noveltyTypeFK    = "novelties_type_code_fkey"
	documentPeriodFK = "payroll_documents_period_id_fkey"
)

// Store implements all storage interfaces on PostgreSQL.
type Store struct {
	db DB
}

// New wraps a pool. The caller owns the pool and closes it.
func New(db DB) *Store {
	return &Store{db: db}
}

// Schema is applied by Migrate. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS legal_parameters (
	seq        BIGSERIAL PRIMARY KEY,
	key        TEXT NOT NULL,
	value      NUMERIC NOT NULL,
	valid_from DATE NOT NULL,
	valid_to   DATE
);
CREATE INDEX IF NOT EXISTS idx_legal_parameters_key ON legal_parameters (key, valid_from);

CREATE TABLE IF NOT EXISTS novelty_types (
	code               TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	external_code      TEXT NOT NULL DEFAULT '',
	payment_percentage NUMERIC NOT NULL,
	blocks_transport   BOOLEAN NOT NULL DEFAULT FALSE,
	credits_health     BOOLEAN NOT NULL DEFAULT FALSE,
	credits_pension    BOOLEAN NOT NULL DEFAULT FALSE,
	credits_work_risk  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS concepts (
	code          TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	kind          TEXT NOT NULL,
	external_code TEXT NOT NULL DEFAULT '',
	salarial      BOOLEAN NOT NULL DEFAULT FALSE,
	factor        NUMERIC NOT NULL DEFAULT 0,
	variant       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS employees (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	contract_type      TEXT NOT NULL DEFAULT '',
	start_date         DATE NOT NULL,
	end_date           DATE,
	base_salary        NUMERIC NOT NULL,
	transport_eligible BOOLEAN NOT NULL DEFAULT FALSE,
	risk_class         INTEGER NOT NULL DEFAULT 1,
	integral_salary    BOOLEAN NOT NULL DEFAULT FALSE,
	active             BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS novelties (
	id          TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL,
	type_code   TEXT NOT NULL,
	start_date  DATE NOT NULL,
	end_date    DATE NOT NULL,
	day_count   INTEGER NOT NULL CHECK (day_count > 0),
	hours       NUMERIC NOT NULL DEFAULT 0,
	locked_by   TEXT,
	created_at  TIMESTAMPTZ NOT NULL,
	CONSTRAINT novelties_type_code_fkey FOREIGN KEY (type_code) REFERENCES novelty_types (code)
);
CREATE INDEX IF NOT EXISTS idx_novelties_employee_dates ON novelties (employee_id, start_date, end_date);

CREATE TABLE IF NOT EXISTS payroll_periods (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL DEFAULT '',
	start_date   DATE NOT NULL,
	end_date     DATE NOT NULL,
	payment_date DATE,
	status       TEXT NOT NULL DEFAULT 'DRAFT'
);

CREATE TABLE IF NOT EXISTS payroll_documents (
	id            TEXT PRIMARY KEY,
	period_id     TEXT NOT NULL,
	employee_id   TEXT NOT NULL,
	lines         JSONB NOT NULL,
	totals        JSONB NOT NULL,
	ibc           NUMERIC NOT NULL,
	contributions JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	CONSTRAINT payroll_documents_period_id_fkey FOREIGN KEY (period_id)
		REFERENCES payroll_periods (id) ON DELETE CASCADE
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_period_employee ON payroll_documents (period_id, employee_id);
`

// Migrate creates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// =============================================================================
// LEGAL PARAMETERS
// =============================================================================

const (
	insertParameterSQL = `INSERT INTO legal_parameters (key, value, valid_from, valid_to) VALUES ($1, $2::numeric, $3, $4)`

	selectParametersSQL = `
		SELECT seq, key, value::text, valid_from, valid_to
		  FROM legal_parameters
		 WHERE key = $1
		 ORDER BY seq`
)

// SaveParameter appends a parameter row; seq comes from the sequence.
func (s *Store) SaveParameter(ctx context.Context, p legal.Parameter) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := s.conn(ctx).Exec(ctx, insertParameterSQL,
		string(p.Key), p.Value.String(), p.ValidFrom.Time, nullDate(p.ValidTo))
	if err != nil {
		return fmt.Errorf("postgres: save legal parameter %s: %w", p.Key, err)
	}
	return nil
}

// ParametersByKey returns every row for key in insertion order.
func (s *Store) ParametersByKey(ctx context.Context, key legal.Key) ([]legal.Parameter, error) {
	rows, err := s.conn(ctx).Query(ctx, selectParametersSQL, string(key))
	if err != nil {
		return nil, fmt.Errorf("postgres: query legal parameters: %w", err)
	}
	defer rows.Close()

	var params []legal.Parameter
	for rows.Next() {
		var (
			p         legal.Parameter
			k         string
			validFrom time.Time
			validTo   sql.NullTime
		)
		if err := rows.Scan(&p.Seq, &k, &p.Value, &validFrom, &validTo); err != nil {
			return nil, fmt.Errorf("postgres: scan legal parameter: %w", err)
		}
		p.Key = legal.Key(k)
		p.ValidFrom = generic.DateOf(validFrom)
		p.ValidTo = dateFromNull(validTo)
		params = append(params, p)
	}
	return params, rows.Err()
}

// =============================================================================
// NOVELTY TYPES AND CONCEPTS
// =============================================================================

const (
	upsertTypeSQL = `
		INSERT INTO novelty_types
		       (code, name, external_code, payment_percentage, blocks_transport,
		        credits_health, credits_pension, credits_work_risk)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
		ON CONFLICT (code) DO UPDATE SET
		       name = EXCLUDED.name,
		       external_code = EXCLUDED.external_code,
		       payment_percentage = EXCLUDED.payment_percentage,
		       blocks_transport = EXCLUDED.blocks_transport,
		       credits_health = EXCLUDED.credits_health,
		       credits_pension = EXCLUDED.credits_pension,
		       credits_work_risk = EXCLUDED.credits_work_risk`

	selectTypeSQL = `
		SELECT code, name, external_code, payment_percentage::text, blocks_transport,
		       credits_health, credits_pension, credits_work_risk
		  FROM novelty_types
		 WHERE code = $1`

	upsertConceptSQL = `
		INSERT INTO concepts (code, name, kind, external_code, salarial, factor, variant)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
		ON CONFLICT (code) DO UPDATE SET
		       name = EXCLUDED.name,
		       kind = EXCLUDED.kind,
		       external_code = EXCLUDED.external_code,
		       salarial = EXCLUDED.salarial,
		       factor = EXCLUDED.factor,
		       variant = EXCLUDED.variant`

	selectConceptSQL = `
		SELECT code, name, kind, external_code, salarial, factor::text, variant
		  FROM concepts
		 WHERE code = $1`
)

func (s *Store) SaveType(ctx context.Context, t novelty.TypeDefinition) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := s.conn(ctx).Exec(ctx, upsertTypeSQL,
		t.Code, t.Name, t.ExternalCode, t.PaymentPercentage.String(),
		t.BlocksTransportAllowance, t.CreditsHealth, t.CreditsPension, t.CreditsWorkRisk)
	if err != nil {
		return fmt.Errorf("postgres: save novelty type %s: %w", t.Code, err)
	}
	return nil
}

func (s *Store) TypeByCode(ctx context.Context, code string) (*novelty.TypeDefinition, error) {
	var t novelty.TypeDefinition
	err := s.conn(ctx).QueryRow(ctx, selectTypeSQL, code).Scan(
		&t.Code, &t.Name, &t.ExternalCode, &t.PaymentPercentage, &t.BlocksTransportAllowance,
		&t.CreditsHealth, &t.CreditsPension, &t.CreditsWorkRisk)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "novelty type", ID: code}
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load novelty type %s: %w", code, err)
	}
	return &t, nil
}

func (s *Store) SaveConcept(ctx context.Context, c concept.Concept) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c = c.Normalized()
	_, err := s.conn(ctx).Exec(ctx, upsertConceptSQL,
		c.Code, c.Name, string(c.Kind), c.ExternalCode, c.Salarial, c.Factor.String(), string(c.Variant))
	if err != nil {
		return fmt.Errorf("postgres: save concept %s: %w", c.Code, err)
	}
	return nil
}

func (s *Store) ConceptByCode(ctx context.Context, code string) (*concept.Concept, error) {
	var (
		c             concept.Concept
		kind, variant string
	)
	err := s.conn(ctx).QueryRow(ctx, selectConceptSQL, code).Scan(
		&c.Code, &c.Name, &kind, &c.ExternalCode, &c.Salarial, &c.Factor, &variant)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "concept", ID: code}
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load concept %s: %w", code, err)
	}
	c.Kind = concept.Kind(kind)
	c.Variant = concept.Variant(variant)
	return &c, nil
}

// =============================================================================
// NOVELTY RECORDS
// =============================================================================

const (
	selectRecordColumns = `id, employee_id, type_code, start_date, end_date, day_count, hours::text, locked_by, created_at`

	upsertRecordSQL = `
		INSERT INTO novelties
		       (id, employee_id, type_code, start_date, end_date, day_count, hours, locked_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
		       employee_id = EXCLUDED.employee_id,
		       type_code = EXCLUDED.type_code,
		       start_date = EXCLUDED.start_date,
		       end_date = EXCLUDED.end_date,
		       day_count = EXCLUDED.day_count,
		       hours = EXCLUDED.hours,
		       locked_by = EXCLUDED.locked_by`

	selectRecordSQL = `SELECT ` + selectRecordColumns + ` FROM novelties WHERE id = $1`

	// Serializes overlap checks per employee until the transaction ends.
	lockEmployeeNoveltiesSQL = `SELECT pg_advisory_xact_lock(hashtext('novelties'), hashtext($1))`

	selectOverlappingSQL = `
		SELECT ` + selectRecordColumns + `
		  FROM novelties
		 WHERE employee_id = $1 AND id <> $2
		   AND start_date <= $3 AND end_date >= $4
		 ORDER BY start_date, id`

	selectWithinSQL = `
		SELECT ` + selectRecordColumns + `
		  FROM novelties
		 WHERE employee_id = $1
		   AND start_date >= $2 AND end_date <= $3
		 ORDER BY start_date, id`

	lockRecordsSQL = `
		UPDATE novelties
		   SET locked_by = $1
		 WHERE locked_by IS NULL AND start_date >= $2 AND end_date <= $3`
)

// SaveRecord inserts or replaces a novelty by ID.
func (s *Store) SaveRecord(ctx context.Context, r novelty.Record) error {
	if r.ID == "" {
		return &generic.ValidationError{Field: "id", Message: "is required"}
	}
	_, err := s.conn(ctx).Exec(ctx, upsertRecordSQL,
		r.ID, r.EmployeeID, r.TypeCode, r.StartDate.Time, r.EndDate.Time,
		r.DayCount, r.Hours.String(), nullString(r.LockedBy), r.CreatedAt.UTC())
	if err != nil {
		if isPgError(err, foreignKeyViolationCode, noveltyTypeFK) {
			return &generic.ValidationError{Field: "type_code", Message: fmt.Sprintf("unknown novelty type %q", r.TypeCode)}
		}
		return fmt.Errorf("postgres: save novelty %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (*novelty.Record, error) {
	rows, err := s.conn(ctx).Query(ctx, selectRecordSQL, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: query novelty: %w", err)
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

// Overlapping returns the employee's records intersecting span. Inside a
// transaction it first takes a per-employee advisory lock, so two
// concurrent writers cannot both pass the check and insert overlapping
// rows. The lock is released on commit or rollback.
func (s *Store) Overlapping(ctx context.Context, employeeID string, span generic.Period, excludeID string) ([]novelty.Record, error) {
	if tx, ok := txFromContext(ctx); ok {
		if _, err := tx.Exec(ctx, lockEmployeeNoveltiesSQL, employeeID); err != nil {
			return nil, fmt.Errorf("postgres: lock novelties of %s: %w", employeeID, err)
		}
	}
	rows, err := s.conn(ctx).Query(ctx, selectOverlappingSQL,
		employeeID, excludeID, span.End.Time, span.Start.Time)
	if err != nil {
		return nil, fmt.Errorf("postgres: query overlapping novelties: %w", err)
	}
	return scanRecords(rows)
}

func (s *Store) RecordsWithin(ctx context.Context, employeeID string, span generic.Period) ([]novelty.Record, error) {
	rows, err := s.conn(ctx).Query(ctx, selectWithinSQL,
		employeeID, span.Start.Time, span.End.Time)
	if err != nil {
		return nil, fmt.Errorf("postgres: query novelties: %w", err)
	}
	return scanRecords(rows)
}

func (s *Store) LockRecords(ctx context.Context, span generic.Period, periodID string) (int, error) {
	tag, err := s.conn(ctx).Exec(ctx, lockRecordsSQL, periodID, span.Start.Time, span.End.Time)
	if err != nil {
		return 0, fmt.Errorf("postgres: lock novelties: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanRecords(rows pgx.Rows) ([]novelty.Record, error) {
	defer rows.Close()

	var records []novelty.Record
	for rows.Next() {
		var (
			r          novelty.Record
			start, end time.Time
			lockedBy   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.EmployeeID, &r.TypeCode, &start, &end,
			&r.DayCount, &r.Hours, &lockedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan novelty: %w", err)
		}
		r.StartDate = generic.DateOf(start)
		r.EndDate = generic.DateOf(end)
		r.LockedBy = lockedBy.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// EMPLOYEES
// =============================================================================

const (
	upsertEmployeeSQL = `
		INSERT INTO employees
		       (id, name, contract_type, start_date, end_date, base_salary,
		        transport_eligible, risk_class, integral_salary, active)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
		       name = EXCLUDED.name,
		       contract_type = EXCLUDED.contract_type,
		       start_date = EXCLUDED.start_date,
		       end_date = EXCLUDED.end_date,
		       base_salary = EXCLUDED.base_salary,
		       transport_eligible = EXCLUDED.transport_eligible,
		       risk_class = EXCLUDED.risk_class,
		       integral_salary = EXCLUDED.integral_salary,
		       active = EXCLUDED.active`

	selectEmployeeColumns = `id, name, contract_type, start_date, end_date, base_salary::text,
		       transport_eligible, risk_class, integral_salary, active`

	selectEmployeeSQL  = `SELECT ` + selectEmployeeColumns + ` FROM employees WHERE id = $1`
	selectEmployeesSQL = `SELECT ` + selectEmployeeColumns + ` FROM employees ORDER BY id`
)

func (s *Store) SaveEmployee(ctx context.Context, e liquidation.Employee) error {
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := s.conn(ctx).Exec(ctx, upsertEmployeeSQL,
		e.ID, e.Name, e.ContractType, e.StartDate.Time, nullDate(e.EndDate), e.BaseSalary.String(),
		e.TransportAllowanceEligible, e.RiskClass, e.IntegralSalary, e.Active)
	if err != nil {
		return fmt.Errorf("postgres: save employee %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) GetEmployee(ctx context.Context, id string) (*liquidation.Employee, error) {
	rows, err := s.conn(ctx).Query(ctx, selectEmployeeSQL, id)
	if err != nil {
		return nil, fmt.Errorf("postgres: query employee: %w", err)
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

func (s *Store) ListEmployees(ctx context.Context) ([]liquidation.Employee, error) {
	rows, err := s.conn(ctx).Query(ctx, selectEmployeesSQL)
	if err != nil {
		return nil, fmt.Errorf("postgres: query employees: %w", err)
	}
	return scanEmployees(rows)
}

func scanEmployees(rows pgx.Rows) ([]liquidation.Employee, error) {
	defer rows.Close()

	var employees []liquidation.Employee
	for rows.Next() {
		var (
			e     liquidation.Employee
			start time.Time
			end   sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.ContractType, &start, &end, &e.BaseSalary,
			&e.TransportAllowanceEligible, &e.RiskClass, &e.IntegralSalary, &e.Active); err != nil {
			return nil, fmt.Errorf("postgres: scan employee: %w", err)
		}
		e.StartDate = generic.DateOf(start)
		e.EndDate = dateFromNull(end)
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// =============================================================================
// PAYROLL PERIODS
// =============================================================================

const (
	upsertPeriodSQL = `
		INSERT INTO payroll_periods (id, name, start_date, end_date, payment_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		       name = EXCLUDED.name,
		       start_date = EXCLUDED.start_date,
		       end_date = EXCLUDED.end_date,
		       payment_date = EXCLUDED.payment_date,
		       status = EXCLUDED.status`

	selectPeriodSQL = `
		SELECT id, name, start_date, end_date, payment_date, status
		  FROM payroll_periods
		 WHERE id = $1`
)

func (s *Store) SavePeriod(ctx context.Context, p liquidation.PayrollPeriod) error {
	if p.Status == "" {
		p.Status = liquidation.StatusDraft
	}
	if err := p.Validate(); err != nil {
		return err
	}

	var payment *generic.Date
	if !p.PaymentDate.IsZero() {
		payment = &p.PaymentDate
	}
	_, err := s.conn(ctx).Exec(ctx, upsertPeriodSQL,
		p.ID, p.Name, p.Start.Time, p.End.Time, nullDate(payment), string(p.Status))
	if err != nil {
		return fmt.Errorf("postgres: save payroll period %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetPeriod(ctx context.Context, id string) (*liquidation.PayrollPeriod, error) {
	var (
		p          liquidation.PayrollPeriod
		start, end time.Time
		payment    sql.NullTime
		status     string
	)
	err := s.conn(ctx).QueryRow(ctx, selectPeriodSQL, id).Scan(
		&p.ID, &p.Name, &start, &end, &payment, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &generic.NotFoundError{Kind: "payroll period", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load payroll period %s: %w", id, err)
	}

	p.Start = generic.DateOf(start)
	p.End = generic.DateOf(end)
	if pd := dateFromNull(payment); pd != nil {
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

const (
	deleteDocumentsSQL = `DELETE FROM payroll_documents WHERE period_id = $1`

	insertDocumentSQL = `
		INSERT INTO payroll_documents
		       (id, period_id, employee_id, lines, totals, ibc, contributions, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::numeric, $7::jsonb, $8)`

	selectDocumentsSQL = `
		SELECT id, period_id, employee_id, lines::text, totals::text, ibc::text, contributions::text, created_at
		  FROM payroll_documents
		 WHERE period_id = $1
		 ORDER BY employee_id`
)

func (s *Store) DeleteDocuments(ctx context.Context, periodID string) (int, error) {
	tag, err := s.conn(ctx).Exec(ctx, deleteDocumentsSQL, periodID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete documents: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) SaveDocument(ctx context.Context, d liquidation.Document) error {
	lines, err := json.Marshal(d.Lines)
	if err != nil {
		return fmt.Errorf("postgres: encode lines: %w", err)
	}
	totals, err := json.Marshal(d.Totals)
	if err != nil {
		return fmt.Errorf("postgres: encode totals: %w", err)
	}
	contributions, err := json.Marshal(d.Contributions)
	if err != nil {
		return fmt.Errorf("postgres: encode contributions: %w", err)
	}

	_, err = s.conn(ctx).Exec(ctx, insertDocumentSQL,
		d.ID, d.PeriodID, d.EmployeeID, string(lines), string(totals),
		d.IBC.String(), string(contributions), d.CreatedAt.UTC())
	switch {
	case err == nil:
		return nil
	case isPgError(err, foreignKeyViolationCode, documentPeriodFK):
		return fmt.Errorf("postgres: save document: %w", &generic.NotFoundError{Kind: "payroll period", ID: d.PeriodID})
	case isPgError(err, uniqueViolationCode, ""):
		return fmt.Errorf("%w: document for %s in period %s already exists", generic.ErrConflict, d.EmployeeID, d.PeriodID)
	default:
		return fmt.Errorf("postgres: save document: %w", err)
	}
}

func (s *Store) DocumentsByPeriod(ctx context.Context, periodID string) ([]liquidation.Document, error) {
	rows, err := s.conn(ctx).Query(ctx, selectDocumentsSQL, periodID)
	if err != nil {
		return nil, fmt.Errorf("postgres: query documents: %w", err)
	}
	defer rows.Close()

	var docs []liquidation.Document
	for rows.Next() {
		var (
			d                            liquidation.Document
			lines, totals, contributions string
		)
		if err := rows.Scan(&d.ID, &d.PeriodID, &d.EmployeeID, &lines, &totals,
			&d.IBC, &contributions, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan document: %w", err)
		}
		if err := json.Unmarshal([]byte(lines), &d.Lines); err != nil {
			return nil, fmt.Errorf("postgres: decode lines of %s: %w", d.ID, err)
		}
		if err := json.Unmarshal([]byte(totals), &d.Totals); err != nil {
			return nil, fmt.Errorf("postgres: decode totals of %s: %w", d.ID, err)
		}
		if err := json.Unmarshal([]byte(contributions), &d.Contributions); err != nil {
			return nil, fmt.Errorf("postgres: decode contributions of %s: %w", d.ID, err)
		}
		d.CreatedAt = d.CreatedAt.UTC()
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Helper functions

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDate(d *generic.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.Time
}

func dateFromNull(t sql.NullTime) *generic.Date {
	if !t.Valid {
		return nil
	}
	d := generic.DateOf(t.Time)
	return &d
}

// isPgError matches a server error by SQLSTATE and, when constraint is not
// empty, by constraint name.
func isPgError(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
