package testcase

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type ErrCaseNotFound struct {
	error
}

func NewErrCaseNotFound(id uuid.UUID) *ErrCaseNotFound {
	return &ErrCaseNotFound{fmt.Errorf("test case %s not found", id)}
}

type ErrDuplicateName struct {
	error
}

func NewErrDuplicateName(name string) *ErrDuplicateName {
	return &ErrDuplicateName{fmt.Errorf("duplicate test case name %q", name)}
}

// Suite is an ordered, concurrency-safe collection of test cases keyed by ID.
type Suite struct {
	mu     sync.RWMutex
	cases  []*TestCase
	byID   map[uuid.UUID]*TestCase
	byName map[string]uuid.UUID
}

func NewSuite(cases ...*TestCase) (*Suite, error) {
	s := &Suite{
		byID:   make(map[uuid.UUID]*TestCase),
		byName: make(map[string]uuid.UUID),
	}
	for _, tc := range cases {
		if err := s.Add(tc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends tc, assigning an ID when it has none.
func (s *Suite) Add(tc *TestCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[tc.Name]; ok {
		return NewErrDuplicateName(tc.Name)
	}
	if tc.ID == uuid.Nil {
		tc.ID = uuid.New()
	}
	if _, ok := s.byID[tc.ID]; ok {
		return fmt.Errorf("duplicate test case id %s", tc.ID)
	}
	s.cases = append(s.cases, tc)
	s.byID[tc.ID] = tc
	s.byName[tc.Name] = tc.ID
	return nil
}

// Cases returns copies of every case in suite order.
func (s *Suite) Cases() []*TestCase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*TestCase, 0, len(s.cases))
	for _, tc := range s.cases {
		out = append(out, tc.Clone())
	}
	return out
}

func (s *Suite) Get(id uuid.UUID) (*TestCase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tc, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return tc.Clone(), true
}

func (s *Suite) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cases)
}

// Update replaces the last run result of the case with the given ID.
func (s *Suite) Update(id uuid.UUID, result *RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, ok := s.byID[id]
	if !ok {
		return NewErrCaseNotFound(id)
	}
	tc.LastRunResult = result.Clone()
	return nil
}

type suiteFile struct {
	TestCases []*TestCase `yaml:"test_cases"`
}

func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}

	var f suiteFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse suite %s: %w", path, err)
	}
	return NewSuite(f.TestCases...)
}

func (s *Suite) Save(path string) error {
	data, err := yaml.Marshal(&suiteFile{TestCases: s.Cases()})
	if err != nil {
		return fmt.Errorf("failed to encode suite: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write suite: %w", err)
	}
	return nil
}
