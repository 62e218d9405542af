// Package station provides the read-only station directory used to validate
// watch routes and to render station names in listings and notifications.
package station

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed stations.yaml
var defaultStations []byte

// Station is one directory entry.
type Station struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

type file struct {
	Stations []Station `yaml:"stations"`
}

// Directory maps station IDs to display names. It is built once and never
// mutated, so it is safe for concurrent use.
type Directory struct {
	byID map[string]string
	all  []Station
}

// Default returns the directory compiled into the binary.
func Default() (*Directory, error) {
	return LoadBytes(defaultStations)
}

// Load reads a directory from a YAML file. Since YAML is a superset of JSON,
// a JSON document with the same shape works too. An empty path returns the
// compiled-in directory.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stations file: %w", err)
	}
	defer f.Close()

	return LoadReader(f)
}

// LoadReader decodes a directory from r.
func LoadReader(r io.Reader) (*Directory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stations: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes decodes a directory from raw YAML or JSON.
func LoadBytes(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stations: %w", err)
	}
	return New(f.Stations)
}

// New builds a directory from entries. IDs must be non-empty and unique.
func New(entries []Station) (*Directory, error) {
	d := &Directory{byID: make(map[string]string, len(entries))}
	for i, s := range entries {
		s.ID = strings.TrimSpace(s.ID)
		s.Name = strings.TrimSpace(s.Name)
		if s.ID == "" {
			return nil, fmt.Errorf("station at index %d has no id", i)
		}
		if _, dup := d.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate station id %q", s.ID)
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		d.byID[s.ID] = s.Name
		d.all = append(d.all, s)
	}
	sort.Slice(d.all, func(i, j int) bool { return d.all[i].Name < d.all[j].Name })
	return d, nil
}

// NameOf returns the display name for id, or id itself when unknown.
func (d *Directory) NameOf(id string) string {
	if name, ok := d.byID[id]; ok {
		return name
	}
	return id
}

// Has reports whether id is a known station.
func (d *Directory) Has(id string) bool {
	_, ok := d.byID[id]
	return ok
}

// All returns every station ordered by name. The slice is a copy.
func (d *Directory) All() []Station {
	out := make([]Station, len(d.all))
	copy(out, d.all)
	return out
}

// Len returns the number of stations.
func (d *Directory) Len() int { return len(d.all) }

// Search returns stations whose name or ID contains q, case-insensitively.
func (d *Directory) Search(q string) []Station {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return d.All()
	}
	var out []Station
	for _, s := range d.all {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.ID), q) {
			out = append(out, s)
		}
	}
	return out
}
