package author

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/scholarlyreport/scholarly/internal/reference"
)

// Enrichment is one entry of the registry enrichment file. Absent fields are
// left unset on the author.
type Enrichment struct {
	Aliases       []string `yaml:"aliases,omitempty"`
	Name          string   `yaml:"name,omitempty"`
	Appointment   string   `yaml:"appointment,omitempty"`
	ResearchGroup string   `yaml:"research_group,omitempty"`
}

// LoadEnrichment reads a YAML mapping of author id to Enrichment.
// A missing file yields an empty mapping.
func LoadEnrichment(path string) (map[string]Enrichment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Enrichment{}, nil
		}
		return nil, fmt.Errorf("reading registry file: %w", err)
	}
	return ParseEnrichment(data)
}

// ParseEnrichment decodes the registry enrichment YAML document.
func ParseEnrichment(data []byte) (map[string]Enrichment, error) {
	entries := make(map[string]Enrichment)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing registry file: %w", err)
	}
	return entries, nil
}

// ApplyEnrichment merges entries into the registered authors and returns the
// ids that had no registered author, sorted.
func (r *Registry) ApplyEnrichment(entries map[string]Enrichment) []string {
	var unknown []string
	for id, e := range entries {
		a, ok := r.authors[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		r.authors[id] = enrich(a, e)
		r.index(r.authors[id])
	}
	sort.Strings(unknown)
	return unknown
}

func enrich(a reference.Author, e Enrichment) reference.Author {
	if len(e.Aliases) > 0 {
		a.Aliases = append(append([]string(nil), a.Aliases...), e.Aliases...)
	}
	if e.Name != "" {
		a.DisplayName = reference.StringPtr(e.Name)
	}
	if e.Appointment != "" {
		a.Role = reference.StringPtr(e.Appointment)
	}
	if e.ResearchGroup != "" {
		a.ResearchGroup = reference.StringPtr(e.ResearchGroup)
	}
	return a
}
