package concept

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// CATALOG - Lookup by code
// =============================================================================

// Catalog resolves concept codes. A miss is (nil, false, nil).
type Catalog interface {
	FindByCode(ctx context.Context, code string) (*Concept, bool, error)
}

// Store is the persistence surface behind StoreCatalog.
type Store interface {
	// ConceptByCode returns generic.ErrNotFound (wrapped) for unknown codes.
	ConceptByCode(ctx context.Context, code string) (*Concept, error)
}

// Writer persists catalog entries.
type Writer interface {
	SaveConcept(ctx context.Context, c Concept) error
}

// StaticCatalog is an immutable in-memory catalog.
type StaticCatalog struct {
	byCode map[string]Concept
}

// NewStaticCatalog validates entries and rejects duplicate codes.
func NewStaticCatalog(concepts []Concept) (*StaticCatalog, error) {
	byCode := make(map[string]Concept, len(concepts))
	for _, c := range concepts {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("concept %s: %w", c.Code, err)
		}
		c = c.Normalized()
		if _, dup := byCode[c.Code]; dup {
			return nil, &generic.ValidationError{Field: "code", Message: fmt.Sprintf("duplicate concept code %q", c.Code)}
		}
		byCode[c.Code] = c
	}
	return &StaticCatalog{byCode: byCode}, nil
}

func (s *StaticCatalog) FindByCode(_ context.Context, code string) (*Concept, bool, error) {
	c, ok := s.byCode[code]
	if !ok {
		return nil, false, nil
	}
	return &c, true, nil
}

// All returns the entries sorted by code.
func (s *StaticCatalog) All() []Concept {
	out := make([]Concept, 0, len(s.byCode))
	for _, c := range s.byCode {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// StoreCatalog reads through to a Store.
type StoreCatalog struct {
	store Store
}

func NewStoreCatalog(store Store) *StoreCatalog {
	return &StoreCatalog{store: store}
}

func (s *StoreCatalog) FindByCode(ctx context.Context, code string) (*Concept, bool, error) {
	c, err := s.store.ConceptByCode(ctx, code)
	if errors.Is(err, generic.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find concept %s: %w", code, err)
	}
	return c, true, nil
}
