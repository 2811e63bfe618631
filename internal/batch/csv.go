package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/samcharles93/tabpredict/internal/tabular"
)

// Cells holding one of these tokens are treated as missing values.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
}

// sheet is a parsed CSV file. Raw cells and the raw header are kept so the
// output reproduces the input text exactly; header holds the deduplicated
// names used as record keys.
type sheet struct {
	rawHeader []string
	header    []string
	rows      [][]string
}

func lookupEncoding(label string) (encoding.Encoding, error) {
	if strings.TrimSpace(label) == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrInputInvalid, label)
	}
	return enc, nil
}

func readSheet(path, encodingLabel string) (*sheet, error) {
	enc, err := lookupEncoding(encodingLabel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputMissing, path)
		}
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	// A byte order mark wins over the configured encoding.
	dec := unicode.BOMOverride(enc.NewDecoder())
	return parseSheet(transform.NewReader(f, dec))
}

func parseSheet(r io.Reader) (*sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &sheet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrInputInvalid, err)
	}
	s := &sheet{rawHeader: header, header: dedupeHeader(header)}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInputInvalid, err)
		}
		line, _ := cr.FieldPos(0)
		if len(row) > len(header) {
			return nil, fmt.Errorf("%w: record on line %d has %d fields, header has %d", ErrInputInvalid, line, len(row), len(header))
		}
		// Short rows are padded with empty cells, read back as missing.
		for len(row) < len(header) {
			row = append(row, "")
		}
		s.rows = append(s.rows, row)
	}
	return s, nil
}

// dedupeHeader renames repeated column names to name.1, name.2 and so on.
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[h] = true
	}
	for i, h := range header {
		n, dup := seen[h]
		seen[h] = n + 1
		if !dup {
			out[i] = h
			continue
		}
		name := h
		for k := n; ; k++ {
			name = h + "." + strconv.Itoa(k)
			if !taken[name] {
				break
			}
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

// batch converts the sheet to records. Missing tokens become nil; other
// cells stay strings and are converted by the model.
func (s *sheet) batch() tabular.Batch {
	out := make(tabular.Batch, len(s.rows))
	for i, row := range s.rows {
		var rec tabular.Record
		for j, name := range s.header {
			cell := row[j]
			if _, na := missingTokens[strings.TrimSpace(cell)]; na {
				rec.Set(name, nil)
				continue
			}
			rec.Set(name, cell)
		}
		out[i] = rec
	}
	return out
}

// writeSheet writes s to path through a temp file in the same directory so
// a failed run never leaves a partial output behind.
func writeSheet(path string, s *sheet) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(s.rawHeader); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := w.WriteAll(s.rows); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}

// setColumn writes values into the named column, appending it when absent.
// It reports whether an existing input column was overwritten.
func (s *sheet) setColumn(name string, values []string) bool {
	idx := -1
	for i, h := range s.header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.header = append(s.header, name)
		s.rawHeader = append(s.rawHeader, name)
		for i := range s.rows {
			s.rows[i] = append(s.rows[i], values[i])
		}
		return false
	}
	for i := range s.rows {
		s.rows[i][idx] = values[i]
	}
	return true
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(v)
	}
}
