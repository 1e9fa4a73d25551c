package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// MissingMarkers are the cell texts treated as missing besides the empty string.
var MissingMarkers = []string{"", "NA", "NaN", "N/A", "n/a", "null", "NULL", "None", "nan", "<NA>"}

// LoadOptions tunes file parsing.
type LoadOptions struct {
	// Delimiter for delimited text. Zero sniffs it from the header line.
	Delimiter rune
	// Sheet selects a workbook sheet by name. Empty means the first sheet.
	Sheet string
}

// Loader turns one file format into a frame.
type Loader interface {
	CanLoad(name string) bool
	Load(path string, opt LoadOptions) (dataframe.DataFrame, error)
}

var registry []Loader

// Register adds a loader. Later registrations do not override earlier ones.
func Register(l Loader) {
	registry = append(registry, l)
}

// Supported reports whether some loader accepts name.
func Supported(name string) bool {
	for _, l := range registry {
		if l.CanLoad(name) {
			return true
		}
	}
	return false
}

// Load reads the file at path into a Dataset named after the file.
func Load(path string, opt LoadOptions) (*Dataset, error) {
	return LoadAs(path, filepath.Base(path), opt)
}

// LoadAs is Load with an explicit display name; the name also picks the loader.
func LoadAs(path, name string, opt LoadOptions) (*Dataset, error) {
	for _, l := range registry {
		if !l.CanLoad(name) {
			continue
		}
		df, err := l.Load(path, opt)
		if err != nil {
			return nil, err
		}
		return FromFrame(name, df), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
}

func init() {
	Register(delimitedLoader{exts: []string{".csv", ".txt"}})
	Register(delimitedLoader{exts: []string{".tsv"}, delim: '\t'})
	Register(xlsxLoader{})
}

type delimitedLoader struct {
	exts  []string
	delim rune
}

func (l delimitedLoader) CanLoad(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range l.exts {
		if ext == e {
			return true
		}
	}
	return false
}

func (l delimitedLoader) Load(path string, opt LoadOptions) (dataframe.DataFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return dataframe.DataFrame{}, ErrEmptyInput
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = l.delim
	}
	if delim == 0 {
		delim = sniffDelimiter(data)
	}
	header, hasRows, err := peekHeader(data, delim)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load csv: %w", err)
	}
	if !hasRows {
		return emptyFrame(header), nil
	}
	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(MissingMarkers),
		dataframe.WithDelimiter(delim),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load csv: %w", df.Err)
	}
	return df, nil
}

// sniffDelimiter picks the candidate that occurs most often in the header line.
func sniffDelimiter(data []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	best, bestN := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

func peekHeader(data []byte, delim rune) ([]string, bool, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, false, ErrEmptyInput
		}
		return nil, false, err
	}
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return header, false, nil
		}
		return nil, false, err
	}
	return header, true, nil
}

// emptyFrame builds a zero-row frame with object columns.
func emptyFrame(header []string) dataframe.DataFrame {
	cols := make([]series.Series, 0, len(header))
	for _, h := range header {
		cols = append(cols, series.New([]string{}, series.String, h))
	}
	return dataframe.New(cols...)
}
