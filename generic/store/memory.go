// Package store provides an in-memory implementation of every store
// interface, for tests and dry runs.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/concept"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/legal"
	"github.com/warp/payroll-engine/liquidation"
	"github.com/warp/payroll-engine/novelty"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	txMu sync.Mutex // serializes WithTx

	seq       int64
	params    map[legal.Key][]legal.Parameter
	types     map[string]novelty.TypeDefinition
	concepts  map[string]concept.Concept
	records   map[string]novelty.Record
	employees map[string]liquidation.Employee
	periods   map[string]liquidation.PayrollPeriod
	documents map[string][]liquidation.Document // by period ID
}

func NewMemory() *Memory {
	return &Memory{
		params:    make(map[legal.Key][]legal.Parameter),
		types:     make(map[string]novelty.TypeDefinition),
		concepts:  make(map[string]concept.Concept),
		records:   make(map[string]novelty.Record),
		employees: make(map[string]liquidation.Employee),
		periods:   make(map[string]liquidation.PayrollPeriod),
		documents: make(map[string][]liquidation.Document),
	}
}

// =============================================================================
// LEGAL PARAMETERS
// =============================================================================

func (m *Memory) SaveParameter(_ context.Context, p legal.Parameter) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.Seq = m.seq
	m.params[p.Key] = append(m.params[p.Key], p)
	return nil
}

func (m *Memory) ParametersByKey(_ context.Context, key legal.Key) ([]legal.Parameter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]legal.Parameter(nil), m.params[key]...), nil
}

// =============================================================================
// CATALOGS
// =============================================================================

func (m *Memory) SaveType(_ context.Context, t novelty.TypeDefinition) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.types[t.Code] = t
	return nil
}

func (m *Memory) TypeByCode(_ context.Context, code string) (*novelty.TypeDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.types[code]
	if !ok {
		return nil, &generic.NotFoundError{Kind: "novelty type", ID: code}
	}
	return &t, nil
}

func (m *Memory) SaveConcept(_ context.Context, c concept.Concept) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.concepts[c.Code] = c.Normalized()
	return nil
}

func (m *Memory) ConceptByCode(_ context.Context, code string) (*concept.Concept, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.concepts[code]
	if !ok {
		return nil, &generic.NotFoundError{Kind: "concept", ID: code}
	}
	return &c, nil
}

// =============================================================================
// NOVELTY RECORDS
// =============================================================================

func (m *Memory) SaveRecord(_ context.Context, r novelty.Record) error {
	if r.ID == "" {
		return &generic.ValidationError{Field: "id", Message: "is required"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
	return nil
}

func (m *Memory) GetRecord(_ context.Context, id string) (*novelty.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, &generic.NotFoundError{Kind: "novelty", ID: id}
	}
	return &r, nil
}

func (m *Memory) Overlapping(_ context.Context, employeeID string, span generic.Period, excludeID string) ([]novelty.Record, error) {
	return m.filterRecords(func(r novelty.Record) bool {
		return r.EmployeeID == employeeID && r.ID != excludeID && r.Span().Overlaps(span)
	}), nil
}

func (m *Memory) RecordsWithin(_ context.Context, employeeID string, span generic.Period) ([]novelty.Record, error) {
	return m.filterRecords(func(r novelty.Record) bool {
		return r.EmployeeID == employeeID && span.ContainsPeriod(r.Span())
	}), nil
}

func (m *Memory) LockRecords(_ context.Context, span generic.Period, periodID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	locked := 0
	for id, r := range m.records {
		if !r.Locked() && span.ContainsPeriod(r.Span()) {
			r.LockedBy = periodID
			m.records[id] = r
			locked++
		}
	}
	return locked, nil
}

// filterRecords returns matches ordered by start date then ID.
func (m *Memory) filterRecords(match func(novelty.Record) bool) []novelty.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []novelty.Record
	for _, r := range m.records {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, e liquidation.Employee) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id string) (*liquidation.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, &generic.NotFoundError{Kind: "employee", ID: id}
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]liquidation.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]liquidation.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// PERIODS AND DOCUMENTS
// =============================================================================

func (m *Memory) SavePeriod(_ context.Context, p liquidation.PayrollPeriod) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = liquidation.StatusDraft
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.periods[p.ID] = p
	return nil
}

func (m *Memory) GetPeriod(_ context.Context, id string) (*liquidation.PayrollPeriod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.periods[id]
	if !ok {
		return nil, &generic.NotFoundError{Kind: "payroll period", ID: id}
	}
	return &p, nil
}

func (m *Memory) DeleteDocuments(_ context.Context, periodID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.documents[periodID])
	delete(m.documents, periodID)
	return n, nil
}

func (m *Memory) SaveDocument(_ context.Context, d liquidation.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.periods[d.PeriodID]; !ok {
		return fmt.Errorf("save document: %w", &generic.NotFoundError{Kind: "payroll period", ID: d.PeriodID})
	}
	m.documents[d.PeriodID] = append(m.documents[d.PeriodID], d)
	return nil
}

func (m *Memory) DocumentsByPeriod(_ context.Context, periodID string) ([]liquidation.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]liquidation.Document(nil), m.documents[periodID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type txKey struct{}

// WithTx executes fn within a transaction.
// For the memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	seq       int64
	params    map[legal.Key][]legal.Parameter
	types     map[string]novelty.TypeDefinition
	concepts  map[string]concept.Concept
	records   map[string]novelty.Record
	employees map[string]liquidation.Employee
	periods   map[string]liquidation.PayrollPeriod
	documents map[string][]liquidation.Document
}

func (m *Memory) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	params := make(map[legal.Key][]legal.Parameter, len(m.params))
	for k, v := range m.params {
		params[k] = append([]legal.Parameter(nil), v...)
	}
	documents := make(map[string][]liquidation.Document, len(m.documents))
	for k, v := range m.documents {
		documents[k] = append([]liquidation.Document(nil), v...)
	}
	return memorySnapshot{
		seq:       m.seq,
		params:    params,
		types:     copyMap(m.types),
		concepts:  copyMap(m.concepts),
		records:   copyMap(m.records),
		employees: copyMap(m.employees),
		periods:   copyMap(m.periods),
		documents: documents,
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq = s.seq
	m.params = s.params
	m.types = s.types
	m.concepts = s.concepts
	m.records = s.records
	m.employees = s.employees
	m.periods = s.periods
	m.documents = s.documents
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
