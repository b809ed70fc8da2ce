// Package storage persists fit and prediction runs as a directory per run
// holding metadata.json and curve.csv, and reads measured h/m data files.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/preisach/internal/config"
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind"`
	Source     string             `json:"source,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Preset     string             `json:"preset,omitempty"`
	Model      config.ModelConfig `json:"model"`
	MeshPoints int                `json:"mesh_points"`
	Domain     [2]float64         `json:"domain"`
	Params     map[string]float64 `json:"params,omitempty"`
	Density    []float64          `json:"density,omitempty"`
	Loss       float64            `json:"loss"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// Curve is a field sequence with measured and predicted magnetization.
// Measured may be nil for pure predictions.
type Curve struct {
	H         []float64
	Measured  []float64
	Predicted []float64
}

func (c Curve) validate() error {
	if c.Measured != nil && len(c.Measured) != len(c.H) {
		return fmt.Errorf("measured has %d values for %d fields", len(c.Measured), len(c.H))
	}
	if len(c.Predicted) != len(c.H) {
		return fmt.Errorf("predicted has %d values for %d fields", len(c.Predicted), len(c.H))
	}
	return nil
}

// Save writes a new run and returns its generated ID. The ID and timestamp
// in meta are overwritten.
func (s *Store) Save(meta RunMetadata, curve Curve) (string, error) {
	if err := curve.validate(); err != nil {
		return "", err
	}

	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now().UTC()
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "curve.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"h", "m_measured", "m_predicted"}); err != nil {
		return "", err
	}
	for i, h := range curve.H {
		measured := ""
		if curve.Measured != nil {
			measured = formatFloat(curve.Measured[i])
		}
		if err := w.Write([]string{formatFloat(h), measured, formatFloat(curve.Predicted[i])}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns all readable runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("%w: %q is not a run id", ErrRunNotFound, runID)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadCurve(runID string) (*Curve, error) {
	if _, err := s.Load(runID); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.baseDir, runID, "curve.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	curve := &Curve{}
	hasMeasured := true
	for i, record := range records {
		if i == 0 {
			continue
		}
		if len(record) != 3 {
			return nil, fmt.Errorf("curve.csv line %d: expected 3 columns, got %d", i+1, len(record))
		}
		h, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, fmt.Errorf("curve.csv line %d: %w", i+1, err)
		}
		p, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return nil, fmt.Errorf("curve.csv line %d: %w", i+1, err)
		}
		curve.H = append(curve.H, h)
		curve.Predicted = append(curve.Predicted, p)

		if record[1] == "" {
			hasMeasured = false
			continue
		}
		m, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("curve.csv line %d: %w", i+1, err)
		}
		curve.Measured = append(curve.Measured, m)
	}
	if !hasMeasured {
		curve.Measured = nil
	}
	return curve, nil
}

// LoadCSV reads a two-column h,m data file. A first line that does not
// parse as numbers is treated as a header. A file with a single column
// yields fields only and nil m.
func LoadCSV(path string) (h, m []float64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	return ReadCSV(file)
}

func ReadCSV(r io.Reader) (h, m []float64, err error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("no data rows")
	}

	cols := len(records[0])
	if cols < 1 || cols > 2 {
		return nil, nil, fmt.Errorf("expected 1 or 2 columns, got %d", cols)
	}

	for i, record := range records {
		values := make([]float64, len(record))
		parsed := true
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				parsed = false
				break
			}
			values[j] = v
		}
		if !parsed {
			if i == 0 {
				continue
			}
			return nil, nil, fmt.Errorf("line %d: invalid number", i+1)
		}
		h = append(h, values[0])
		if cols == 2 {
			m = append(m, values[1])
		}
	}
	if len(h) == 0 {
		return nil, nil, errors.New("no data rows")
	}
	return h, m, nil
}

// ExportJSON writes the run metadata and curve as a single JSON document.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	curve, err := s.LoadCurve(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*RunMetadata
		H         []float64 `json:"h"`
		Measured  []float64 `json:"m_measured,omitempty"`
		Predicted []float64 `json:"m_predicted"`
	}{meta, curve.H, curve.Measured, curve.Predicted})
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
