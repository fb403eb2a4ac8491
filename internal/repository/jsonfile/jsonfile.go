// Package jsonfile implements the repository interfaces on top of flat JSON
// documents, read once at startup and rewritten wholesale on every mutation.
//
//   - Each store serializes access with a single mutex, so two handler
//     goroutines never interleave against the same in-memory state.
//   - Read methods return deep copies, nested slices included, so a caller
//     can keep using a result after the mutex is released while a writer
//     mutates the live record.
//   - Writes go through a temp file + rename, so a crash mid-write leaves
//     the previous document intact rather than a truncated one.
//   - A read-modify-write sequence spanning two HTTP requests can still
//     lose updates (last save wins). There are no versions or transactions.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// readDocument unmarshals the JSON document at path into v.
func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// writeDocument atomically replaces the document at path with the JSON
// encoding of v. Indented output keeps the files hand-readable, matching
// what the stores have always written.
func writeDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
