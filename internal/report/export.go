// Package report renders dedup reports as text, CSV, JSON and YAML files.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/usecase"
)

// Format names accepted by Write
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
	FormatYAML = "yaml"
)

// timestampLayout is used in exported file names
const timestampLayout = "20060102-150405"

// Paths lists the files written by ExportAll
type Paths struct {
	Summary  string `json:"summary"`
	Matches  string `json:"matches"`
	Detailed string `json:"detailed"`
	Clusters string `json:"clusters"`
	YAML     string `json:"yaml,omitempty"`
}

// ContentType returns the HTTP content type for a format
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatYAML:
		return "application/yaml"
	}
	return "application/json; charset=utf-8"
}

// Write renders r in the named format
func Write(w io.Writer, r *usecase.Report, format string) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, r)
	case FormatCSV:
		return WriteMatchesCSV(w, r)
	case FormatText:
		return WriteSummary(w, r)
	case FormatYAML:
		return WriteYAML(w, r)
	}
	return fmt.Errorf("%w: unknown report format %q", domain.ErrInvalidRequest, format)
}

// ExportAll writes the summary, matches, detailed and clusters files into
// dir, plus a YAML copy when withYAML is set. File names carry the mode and
// ts so repeated runs never overwrite each other.
func ExportAll(dir string, r *usecase.Report, ts time.Time, withYAML bool) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create export directory: %w", err)
	}

	prefix := strings.ReplaceAll(string(r.Mode), "_", "-")
	stamp := ts.UTC().Format(timestampLayout)
	name := func(kind, ext string) string {
		return filepath.Join(dir, fmt.Sprintf("%s-%s-%s.%s", prefix, kind, stamp, ext))
	}

	paths := Paths{
		Summary:  name("summary", "txt"),
		Matches:  name("matches", "csv"),
		Detailed: name("detailed", "json"),
		Clusters: name("clusters", "json"),
	}
	files := []exportFile{
		{paths.Summary, func(w io.Writer) error { return WriteSummary(w, r) }},
		{paths.Matches, func(w io.Writer) error { return WriteMatchesCSV(w, r) }},
		{paths.Detailed, func(w io.Writer) error { return WriteJSON(w, r) }},
		{paths.Clusters, func(w io.Writer) error { return WriteJSON(w, r.Clusters) }},
	}
	if withYAML {
		paths.YAML = name("report", "yaml")
		files = append(files, exportFile{paths.YAML, func(w io.Writer) error { return WriteYAML(w, r) }})
	}

	for _, f := range files {
		if err := writeFile(f.path, f.write); err != nil {
			return Paths{}, err
		}
	}
	return paths, nil
}

type exportFile struct {
	path  string
	write func(io.Writer) error
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML writes the full report as YAML
func WriteYAML(w io.Writer, r *usecase.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

var csvHeader = []string{
	"Match ID", "Record 1", "Record 2", "Similarity", "Confidence", "Action",
	"Name Similarity", "Brand Match", "Age Match", "Type Match", "Price Compatible", "Pass",
}

// WriteMatchesCSV writes one row per match
func WriteMatchesCSV(w io.Writer, r *usecase.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range r.Matches {
		m := &r.Matches[i]
		row := []string{
			m.ID,
			m.A.DisplayName(),
			m.B.DisplayName(),
			percent(m.Similarity),
			string(m.Confidence),
			string(m.RecommendedAction),
			percent(m.Analysis.Name.Similarity),
			yesNo(m.Analysis.Brand.SameBrand),
			yesNo(m.Analysis.Attributes.Age.Match),
			yesNo(m.Analysis.Attributes.Type.Match),
			yesNo(m.Analysis.Price.Compatible),
			m.Pass,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
