package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// WriteJSONFile pretty-prints v and writes it atomically to path.
func WriteJSONFile(path string, v any) error {
	b, err := PrettyJSON(v)
	if err != nil {
		return err
	}
	return SafeWriteFile(path, append(b, '\n'))
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFileStem turns an arbitrary label (column name, upload name) into a
// file-name stem made of letters, digits, '.', '_' and '-'.
func SafeFileStem(s string) string {
	s = strings.TrimSpace(s)
	s = unsafeFileChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "unnamed"
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}

// IsPlainFileName reports whether name is a bare file name with no directory
// components, so it can be joined under a trusted directory.
func IsPlainFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return filepath.Base(name) == name
}
