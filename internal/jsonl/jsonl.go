// Package jsonl reads and writes newline-delimited JSON files.
//
// A malformed line is a whole-run error, not a skipped row: the audit trail
// downstream assumes every input record was either processed or explicitly
// rejected with a reason, and silently dropping unparseable lines would
// break that accounting.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// maxLineSize bounds a single JSONL line (full_text fields can be large).
const maxLineSize = 16 * 1024 * 1024

// Read decodes every non-blank line of a JSONL file into T.
func Read[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "jsonl: open")
	}
	defer f.Close()

	var rows []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, eris.Wrapf(err, "jsonl: %s line %d", path, lineNo)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "jsonl: scan %s", path)
	}
	return rows, nil
}

// Write truncates path and writes one JSON document per row.
func Write[T any](path string, rows []T) error {
	return writeRows(path, rows, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
}

// Append appends one JSON document per row, creating the file and its parent
// directory if needed.
func Append[T any](path string, rows []T) error {
	return writeRows(path, rows, os.O_CREATE|os.O_WRONLY|os.O_APPEND)
}

func writeRows[T any](path string, rows []T, flag int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "jsonl: mkdir")
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return eris.Wrap(err, "jsonl: open for write")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, "jsonl: encode")
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "jsonl: flush")
	}
	return f.Close()
}
