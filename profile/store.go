package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/valyala/fastjson"

	"github.com/tailview/tailview/filter"
)

// Profile is one named filter configuration.
type Profile struct {
	ID           string
	Name         string
	ContextLines int
	Root         *filter.Node
}

// profileDoc is the on-disk shape of a profile.
type profileDoc struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ContextLines int      `json:"context_lines"`
	Root         *nodeDoc `json:"root,omitempty"`
}

type fileDoc struct {
	Profiles []profileDoc `json:"profiles"`
}

// Store handles persistence and in-memory management of filter profiles.
type Store struct {
	path string

	mu       sync.RWMutex
	profiles []*Profile
}

// NewStore creates a profile store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads all profiles from disk. A missing file is not an error; the
// store starts empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.profiles = nil
			return nil
		}
		return fmt.Errorf("profile: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		s.profiles = nil
		return nil
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("profile: parse %s: %w", s.path, err)
	}

	var profiles []*Profile
	for i, pv := range v.GetArray("profiles") {
		root, err := decodeNode(pv.Get("root"))
		if err != nil {
			return fmt.Errorf("profile: entry %d: %w", i, err)
		}
		prof := &Profile{
			ID:           string(pv.GetStringBytes("id")),
			Name:         string(pv.GetStringBytes("name")),
			ContextLines: pv.GetInt("context_lines"),
			Root:         root,
		}
		if prof.ID == "" {
			prof.ID = uuid.NewString()
		}
		profiles = append(profiles, prof)
	}

	s.profiles = profiles
	return nil
}

// Save writes all profiles to disk atomically (temp file + rename).
func (s *Store) Save() error {
	s.mu.RLock()
	doc := fileDoc{Profiles: make([]profileDoc, 0, len(s.profiles))}
	for _, p := range s.profiles {
		doc.Profiles = append(doc.Profiles, profileDoc{
			ID:           p.ID,
			Name:         p.Name,
			ContextLines: p.ContextLines,
			Root:         encodeNode(p.Root),
		})
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

// Put adds or replaces a profile, assigning an ID when absent. The stored
// tree is a clone; later edits to p.Root do not leak in until the next Put.
func (s *Store) Put(p Profile) Profile {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Root = p.Root.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.profiles {
		if existing.ID == p.ID {
			s.profiles[i] = &p
			return p
		}
	}
	s.profiles = append(s.profiles, &p)
	return p
}

// Get returns a copy of the profile with the given ID. The returned tree is
// a clone the caller may mutate freely.
func (s *Store) Get(id string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.ID == id {
			cp := *p
			cp.Root = p.Root.Clone()
			return cp, true
		}
	}
	return Profile{}, false
}

// Delete removes the profile with the given ID.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.profiles {
		if p.ID == id {
			s.profiles = append(s.profiles[:i], s.profiles[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the IDs and names of all stored profiles in order.
func (s *Store) List() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, Profile{ID: p.ID, Name: p.Name, ContextLines: p.ContextLines})
	}
	return out
}
