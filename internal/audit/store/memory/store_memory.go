// Package memory provides the in-memory Store used by tests and local
// development. Semantics mirror the PostgreSQL implementation, including
// field-level patch merging.
package memory

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vulnreport/internal/audit"
	"vulnreport/internal/audit/store"
)

// Store keeps audits in a map guarded by a single RWMutex. Reads hand out
// deep copies so callers can never mutate stored state behind the lock.
type Store struct {
	mu     sync.RWMutex
	audits map[string]*audit.Audit
	order  []string
	now    func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		audits: make(map[string]*audit.Audit),
		now:    time.Now,
	}
}

func (s *Store) ListAll(ctx context.Context, filter audit.ListFilter) ([]audit.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]audit.Summary, 0, len(s.order))
	for _, id := range s.order {
		a := s.audits[id]
		if !matchesFilter(a, filter) {
			continue
		}
		summaries = append(summaries, toSummary(a))
	}
	return summaries, nil
}

func (s *Store) ListForUser(ctx context.Context, username string, filter audit.ListFilter) ([]audit.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]audit.Summary, 0)
	for _, id := range s.order {
		a := s.audits[id]
		access := audit.Access{Owner: a.Owner, Collaborators: a.General.Collaborators}
		if !access.Allows(username) {
			continue
		}
		if !matchesFilter(a, filter) {
			continue
		}
		summaries = append(summaries, toSummary(a))
	}
	return summaries, nil
}

func (s *Store) Create(ctx context.Context, general audit.General, owner string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	a := &audit.Audit{
		ID:        uuid.NewString(),
		Owner:     owner,
		General:   general,
		Findings:  []audit.Finding{},
		Sections:  []audit.Section{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.audits[a.ID] = a
	s.order = append(s.order, a.ID)
	return a.ID, nil
}

func (s *Store) Delete(ctx context.Context, auditID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.audits[auditID]; !ok {
		return store.ErrNotFound
	}
	delete(s.audits, auditID)
	for i, id := range s.order {
		if id == auditID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) GetAccess(ctx context.Context, auditID string) (audit.Access, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.Access{}, store.ErrNotFound
	}
	return audit.Access{
		Owner:         a.Owner,
		Collaborators: append([]string(nil), a.General.Collaborators...),
	}, nil
}

func (s *Store) GetAudit(ctx context.Context, auditID string) (audit.Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.Audit{}, store.ErrNotFound
	}
	return clone(*a), nil
}

func (s *Store) GetGeneral(ctx context.Context, auditID string) (audit.General, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.General{}, store.ErrNotFound
	}
	return clone(*a).General, nil
}

func (s *Store) UpdateGeneral(ctx context.Context, auditID string, patch audit.Patch) (audit.General, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.General{}, store.ErrNotFound
	}
	if err := audit.ApplyGeneral(&a.General, patch); err != nil {
		return audit.General{}, err
	}
	a.UpdatedAt = s.now()
	return clone(*a).General, nil
}

func (s *Store) GetNetwork(ctx context.Context, auditID string) (audit.Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.Network{}, store.ErrNotFound
	}
	return clone(*a).Network, nil
}

func (s *Store) UpdateNetwork(ctx context.Context, auditID string, patch audit.Patch) (audit.Network, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.Network{}, store.ErrNotFound
	}
	if err := audit.ApplyNetwork(&a.Network, patch); err != nil {
		return audit.Network{}, err
	}
	a.UpdatedAt = s.now()
	return clone(*a).Network, nil
}

func (s *Store) CreateFinding(ctx context.Context, auditID string, f audit.Finding) (audit.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.Finding{}, store.ErrNotFound
	}
	f.ID = uuid.NewString()
	a.Findings = append(a.Findings, f)
	a.UpdatedAt = s.now()
	return cloneValue(f), nil
}

func (s *Store) ListFindingTitles(ctx context.Context, auditID string) ([]audit.FindingTitle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.audits[auditID]
	if !ok {
		return nil, store.ErrNotFound
	}
	titles := make([]audit.FindingTitle, 0, len(a.Findings))
	for _, f := range a.Findings {
		titles = append(titles, audit.FindingTitle{ID: f.ID, Title: f.Title})
	}
	return titles, nil
}

func (s *Store) GetFinding(ctx context.Context, auditID, findingID string) (audit.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.Finding{}, store.ErrNotFound
	}
	for _, f := range a.Findings {
		if f.ID == findingID {
			return cloneValue(f), nil
		}
	}
	return audit.Finding{}, store.ErrFindingNotFound
}

func (s *Store) UpdateFinding(ctx context.Context, auditID, findingID string, patch audit.Patch) (audit.Finding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.Finding{}, store.ErrNotFound
	}
	for i := range a.Findings {
		if a.Findings[i].ID != findingID {
			continue
		}
		if err := audit.ApplyFinding(&a.Findings[i], patch); err != nil {
			return audit.Finding{}, err
		}
		a.UpdatedAt = s.now()
		return cloneValue(a.Findings[i]), nil
	}
	return audit.Finding{}, store.ErrFindingNotFound
}

func (s *Store) DeleteFinding(ctx context.Context, auditID, findingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[auditID]
	if !ok {
		return store.ErrNotFound
	}
	for i := range a.Findings {
		if a.Findings[i].ID == findingID {
			a.Findings = append(a.Findings[:i], a.Findings[i+1:]...)
			a.UpdatedAt = s.now()
			return nil
		}
	}
	return store.ErrFindingNotFound
}

func (s *Store) CreateSection(ctx context.Context, auditID string, sec audit.Section) (audit.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.Section{}, store.ErrNotFound
	}
	sec.ID = uuid.NewString()
	a.Sections = append(a.Sections, sec)
	a.UpdatedAt = s.now()
	return cloneValue(sec), nil
}

func (s *Store) GetSection(ctx context.Context, auditID, sectionID string) (audit.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.Section{}, store.ErrNotFound
	}
	for _, sec := range a.Sections {
		if sec.ID == sectionID {
			return cloneValue(sec), nil
		}
	}
	return audit.Section{}, store.ErrSectionNotFound
}

func (s *Store) UpdateSection(ctx context.Context, auditID, sectionID string, patch audit.Patch) (audit.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[auditID]
	if !ok {
		return audit.Section{}, store.ErrNotFound
	}
	for i := range a.Sections {
		if a.Sections[i].ID != sectionID {
			continue
		}
		if err := audit.ApplySection(&a.Sections[i], patch); err != nil {
			return audit.Section{}, err
		}
		a.UpdatedAt = s.now()
		return cloneValue(a.Sections[i]), nil
	}
	return audit.Section{}, store.ErrSectionNotFound
}

func (s *Store) DeleteSection(ctx context.Context, auditID, sectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[auditID]
	if !ok {
		return store.ErrNotFound
	}
	for i := range a.Sections {
		if a.Sections[i].ID == sectionID {
			a.Sections = append(a.Sections[:i], a.Sections[i+1:]...)
			a.UpdatedAt = s.now()
			return nil
		}
	}
	return store.ErrSectionNotFound
}

func (s *Store) GetSummary(ctx context.Context, auditID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.audits[auditID]
	if !ok {
		return "", store.ErrNotFound
	}
	return a.Summary, nil
}

func (s *Store) UpdateSummary(ctx context.Context, auditID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audits[auditID]
	if !ok {
		return store.ErrNotFound
	}
	a.Summary = summary
	a.UpdatedAt = s.now()
	return nil
}

func matchesFilter(a *audit.Audit, filter audit.ListFilter) bool {
	if filter.FindingTitle == "" {
		return true
	}
	needle := strings.ToLower(filter.FindingTitle)
	for _, f := range a.Findings {
		if strings.Contains(strings.ToLower(f.Title), needle) {
			return true
		}
	}
	return false
}

func toSummary(a *audit.Audit) audit.Summary {
	return audit.Summary{
		ID:            a.ID,
		Name:          a.General.Name,
		Language:      a.General.Language,
		AuditType:     a.General.AuditType,
		Owner:         a.Owner,
		Collaborators: append([]string(nil), a.General.Collaborators...),
		CreatedAt:     a.CreatedAt,
	}
}

// clone deep-copies via a JSON round trip. The aggregate is JSON-shaped
// end to end, so this stays faithful for nested slices and raw fields.
func clone(a audit.Audit) audit.Audit {
	return cloneValue(a)
}

func cloneValue[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
