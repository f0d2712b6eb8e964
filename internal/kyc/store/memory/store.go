// Package memory holds in-process case and fingerprint stores for tests and
// single-instance deployments.
package memory

import (
	"context"
	"slices"
	"sync"

	"onekyc/internal/kyc/dedupe"
	"onekyc/internal/kyc/models"
	id "onekyc/pkg/domain"
	"onekyc/pkg/platform/sentinel"
)

// CaseStore keeps cases by id with secondary indexes on applicant and UKN.
// Callers always receive clones.
type CaseStore struct {
	mu          sync.RWMutex
	cases       map[id.CaseID]*models.Case
	byApplicant map[id.ApplicantID]id.CaseID
	ukns        map[id.UKN]id.CaseID
}

func NewCaseStore() *CaseStore {
	return &CaseStore{
		cases:       make(map[id.CaseID]*models.Case),
		byApplicant: make(map[id.ApplicantID]id.CaseID),
		ukns:        make(map[id.UKN]id.CaseID),
	}
}

func (s *CaseStore) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byApplicant[c.ApplicantID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.cases[c.ID]; ok {
		return sentinel.ErrConflict
	}
	c.Version = 1
	s.cases[c.ID] = c.Clone()
	s.byApplicant[c.ApplicantID] = c.ID
	return nil
}

func (s *CaseStore) Get(_ context.Context, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *CaseStore) GetByApplicant(ctx context.Context, applicantID id.ApplicantID) (*models.Case, error) {
	s.mu.RLock()
	caseID, ok := s.byApplicant[applicantID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.Get(ctx, caseID)
}

// GetByUKN only finds committed numbers, not reservations.
func (s *CaseStore) GetByUKN(_ context.Context, ukn id.UKN) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	caseID, ok := s.ukns[ukn]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c, ok := s.cases[caseID]
	if !ok || c.UKN != ukn {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *CaseStore) Save(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cases[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != c.Version {
		return sentinel.ErrConflict
	}
	if !c.UKN.IsZero() && s.ukns[c.UKN] != c.ID {
		// A number must be reserved by this case before it is committed.
		return sentinel.ErrConflict
	}
	c.Version++
	s.cases[c.ID] = c.Clone()
	return nil
}

func (s *CaseStore) ReserveUKN(_ context.Context, ukn id.UKN, caseID id.CaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, ok := s.ukns[ukn]; ok && holder != caseID {
		return sentinel.ErrConflict
	}
	s.ukns[ukn] = caseID
	return nil
}

func (s *CaseStore) ReleaseUKN(_ context.Context, ukn id.UKN, caseID id.CaseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, ok := s.ukns[ukn]; !ok || holder != caseID {
		return nil
	}
	if c, ok := s.cases[caseID]; ok && c.UKN == ukn {
		return sentinel.ErrInvalidState
	}
	delete(s.ukns, ukn)
	return nil
}

func (s *CaseStore) Stats(_ context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*models.Case, 0, len(s.cases))
	for _, c := range s.cases {
		all = append(all, c)
	}
	return models.ComputeStats(all), nil
}

// FingerprintStore keeps verified fingerprints in insertion order, so
// duplicate ties resolve to the earliest verified case.
type FingerprintStore struct {
	mu      sync.RWMutex
	entries []dedupe.Candidate
	index   map[string]int
}

func NewFingerprintStore() *FingerprintStore {
	return &FingerprintStore{index: make(map[string]int)}
}

// Put replaces the entry for the same case.
func (s *FingerprintStore) Put(_ context.Context, c dedupe.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Fingerprint = slices.Clone(c.Fingerprint)
	if i, ok := s.index[c.CaseID]; ok {
		s.entries[i] = c
		return nil
	}
	s.index[c.CaseID] = len(s.entries)
	s.entries = append(s.entries, c)
	return nil
}

func (s *FingerprintStore) List(_ context.Context) ([]dedupe.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries), nil
}
