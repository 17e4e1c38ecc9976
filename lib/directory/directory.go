// Package directory maps states and districts to the base url of their
// district court portal.
package directory

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"

	devenv "ecourts-backend/dev/env"
)

type District struct {
	CourtUrl string `json:"court_url"`
	State    string `json:"state"`
}

type State struct {
	Url       string              `json:"url"`
	Districts map[string]District `json:"districts"`
}

// Directory is keyed by state name, it is read only once loaded.
type Directory map[string]State

// Load reads a directory written by Save. A missing file yields an empty
// directory.
func Load(path string) (Directory, error) {
	path, err := devenv.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Directory{}, nil
	}
	if err != nil {
		return nil, err
	}

	var dir Directory
	err = json.Unmarshal(contents, &dir)
	if err != nil {
		return nil, err
	}
	if dir == nil {
		dir = Directory{}
	}
	return dir, nil
}

func (d Directory) Save(path string) error {
	path, err := devenv.ResolvePath(path)
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(path), 0777)
	if err != nil {
		return err
	}
	contents, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, contents, 0644)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d Directory) States() []string {
	return sortedKeys(d)
}

// Districts returns the districts of a state, ok is false for an unknown
// state.
func (d Directory) Districts(state string) (districts []string, ok bool) {
	s, ok := d[state]
	if !ok {
		return nil, false
	}
	return sortedKeys(s.Districts), true
}

// CourtUrl returns the portal of a district.
func (d Directory) CourtUrl(state, district string) (string, bool) {
	s, ok := d[state]
	if !ok {
		return "", false
	}
	dist, ok := s.Districts[district]
	if !ok || dist.CourtUrl == "" {
		return "", false
	}
	return dist.CourtUrl, true
}

// Count returns the number of states and districts.
func (d Directory) Count() (states int, districts int) {
	for _, s := range d {
		districts += len(s.Districts)
	}
	return len(d), districts
}
