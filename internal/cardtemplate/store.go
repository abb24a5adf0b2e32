package cardtemplate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrUnknownTemplate is returned by Store.Get for a missing key.
var ErrUnknownTemplate = errors.New("template not found")

// Load reads one template file. The format follows the extension: .yaml and
// .yml are YAML, anything else JSON.
func Load(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}
	var t Template
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &t)
	default:
		err = json.Unmarshal(data, &t)
	}
	if err != nil {
		return Template{}, fmt.Errorf("parse template %s: %w", path, err)
	}
	if t.ID == "" {
		t.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if probs := t.Problems(); len(probs) > 0 {
		return Template{}, fmt.Errorf("template %s: %s", t.ID, strings.Join(probs, "; "))
	}
	return t, nil
}

// Store keeps templates by ID. Values go in and come out as clones, so no
// caller can mutate a stored template or one handed to a running job.
type Store struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewStore() *Store {
	return &Store{templates: make(map[string]Template)}
}

// LoadDir loads every .json/.yaml/.yml file in dir.
func LoadDir(dir string) (*Store, error) {
	s := NewStore()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		t, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		s.Put(t)
	}
	return s, nil
}

func (s *Store) Put(t Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t.Clone()
}

func (s *Store) Get(id string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, id)
	}
	return t.Clone(), nil
}

func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, id)
}

// IDs lists stored template IDs in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.templates))
	for id := range s.templates {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
