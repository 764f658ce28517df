// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// Column headers of the lab and company tables.
const (
	colLabKeywords     = "Institution_Keywords"
	colLabName         = "实验室名"
	colLabPeople       = "英文名"
	colLabSchool       = "学校"
	colCompanyKeywords = "English_Keywords"
	colCompanyName     = "公司名"
)

// ErrMissingColumn is returned when a table lacks a required header.
var ErrMissingColumn = errors.New("missing column")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadFiles builds an Index from the configured tables. Missing files are
// logged and skipped so a run with no tables still completes with an empty
// Index.
func LoadFiles(cfg types.RulesConfig, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b := NewBuilder()

	loaders := []struct {
		path string
		load func(io.Reader, *Builder) error
	}{
		{cfg.LabsFile, LoadLabs},
		{cfg.CompaniesFile, LoadCompanies},
		{cfg.YAMLFile, LoadYAML},
	}
	for _, l := range loaders {
		if l.path == "" {
			continue
		}
		f, err := os.Open(l.path)
		if err != nil {
			if os.IsNotExist(err) {
				logger.Warn("rule table not found, skipping", "path", l.path)
				continue
			}
			return nil, fmt.Errorf("opening rule table %s: %w", l.path, err)
		}
		err = l.load(f, b)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("loading rule table %s: %w", l.path, err)
		}
	}

	idx := b.Build()
	logger.Info("rule index built", "keywords", idx.Len(), "people", len(idx.people))
	return idx, nil
}

// LoadLabs reads the academic lab table into b.
func LoadLabs(r io.Reader, b *Builder) error {
	rows, err := readTable(r, colLabKeywords, colLabName)
	if err != nil {
		return err
	}
	for _, row := range rows {
		lab := row[colLabName]
		if lab == "" {
			continue
		}
		for _, kw := range splitList(row[colLabKeywords]) {
			b.Add(kw, lab)
		}
		for _, p := range splitList(row[colLabPeople]) {
			b.AddPerson(p)
		}
		b.SetParent(lab, row[colLabSchool])
	}
	return nil
}

// LoadCompanies reads the company table into b.
func LoadCompanies(r io.Reader, b *Builder) error {
	rows, err := readTable(r, colCompanyKeywords, colCompanyName)
	if err != nil {
		return err
	}
	for _, row := range rows {
		name := row[colCompanyName]
		if name == "" {
			continue
		}
		for _, kw := range splitList(row[colCompanyKeywords]) {
			b.Add(kw, name)
		}
	}
	return nil
}

// yamlRules is the on-disk shape of a YAML keyword table.
type yamlRules struct {
	Keywords map[string][]string `yaml:"keywords"`
	People   []string            `yaml:"people"`
	Parents  map[string]string   `yaml:"parents"`
}

// LoadYAML reads a keyword table written as YAML into b.
func LoadYAML(r io.Reader, b *Builder) error {
	var doc yamlRules
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parsing YAML rules: %w", err)
	}
	for kw, names := range doc.Keywords {
		for _, n := range names {
			b.Add(kw, n)
		}
	}
	for _, p := range doc.People {
		b.AddPerson(p)
	}
	for lab, school := range doc.Parents {
		b.SetParent(lab, school)
	}
	return nil
}

// readTable parses a CSV with a header row into column-keyed maps. Cells are
// trimmed. required names the headers that must be present.
func readTable(r io.Reader, required ...string) ([]map[string]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(cols))
		for name, i := range cols {
			if i < len(rec) {
				row[name] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
