// Package tomlpatch rewrites parameter values inside TOML-style configuration
// files without touching any other byte of the file.
//
// The file is modelled as a sequence of line records (blank, comment, section
// header, assignment). A top-level key replaces the value of the first
// column-zero assignment with that key anywhere in the file. A
// dotted key "section.param" only searches the block that starts at the line
// reading exactly "[section]" and ends before the next line starting with "[".
// Only the value part of the matched line is regenerated, so applying the same
// overrides twice yields the same content.
package tomlpatch

import (
	"errors"
	"fmt"
	"os"

	"github.com/timzifer/fleetconf/overrides"
)

// Report lists which keys were found in the file.
type Report struct {
	// Applied holds keys whose assignment was located (whether or not the
	// value changed).
	Applied []overrides.Key
	// Changed holds the subset of Applied whose value was rewritten. A key
	// that shares its line with a later key is applied but never changed.
	Changed []overrides.Key
	// Missing holds keys whose assignment or section was not present.
	Missing []overrides.Key
	// Inserted holds missing keys that were appended because of
	// WithInsertMissing.
	Inserted []overrides.Key
}

type options struct {
	insertMissing bool
}

// Option customises patching.
type Option func(*options)

// WithInsertMissing appends assignments for keys that are not present instead
// of skipping them.
func WithInsertMissing() Option {
	return func(o *options) {
		if o == nil {
			return
		}
		o.insertMissing = true
	}
}

// Patch applies the override set to the content and returns the new content.
// Keys are processed in lexical order.
func Patch(content []byte, set overrides.Set, opts ...Option) ([]byte, Report) {
	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	records := parseRecords(content)
	var report Report
	// Keys are located against the unmodified records. When two keys land on
	// the same line the later key wins, as if they were applied in order.
	located := make(map[overrides.Key]int, len(set))
	winner := make(map[int]overrides.Key)
	var missing []overrides.Key
	for _, key := range set.Keys() {
		idx := locate(records, key)
		if idx < 0 {
			missing = append(missing, key)
			continue
		}
		report.Applied = append(report.Applied, key)
		located[key] = idx
		winner[idx] = key
	}
	for _, key := range report.Applied {
		idx := located[key]
		if winner[idx] != key {
			continue
		}
		if records[idx].setValue(set[key].Literal()) {
			report.Changed = append(report.Changed, key)
		}
	}
	for _, key := range missing {
		report.Missing = append(report.Missing, key)
		if cfg.insertMissing {
			records = insert(records, key, set[key].Literal())
			report.Inserted = append(report.Inserted, key)
		}
	}
	if len(report.Changed) == 0 && len(report.Inserted) == 0 {
		return content, report
	}
	return render(records), report
}

// PatchFile reads the file, applies the overrides and writes the whole file
// back. A missing file is reported as an error wrapping os.ErrNotExist and
// nothing is written.
func PatchFile(path string, set overrides.Set, opts ...Option) (Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Report{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Report{}, fmt.Errorf("patch %s: %w", path, errIsDirectory)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read %s: %w", path, err)
	}
	patched, report := Patch(content, set, opts...)
	if err := os.WriteFile(path, patched, info.Mode().Perm()); err != nil {
		return report, fmt.Errorf("write %s: %w", path, err)
	}
	return report, nil
}

var errIsDirectory = errors.New("target is a directory")

func locate(records []record, key overrides.Key) int {
	if !key.Scoped() {
		name := string(key)
		for i, rec := range records {
			if rec.kind == recordAssignment && !rec.indented && rec.key == name {
				return i
			}
		}
		return -1
	}
	section, param := key.Split()
	start := sectionStart(records, section)
	if start < 0 {
		return -1
	}
	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if rec.kind == recordHeader {
			break
		}
		if rec.kind == recordAssignment && rec.key == param {
			return i
		}
	}
	return -1
}

func sectionStart(records []record, section string) int {
	for i, rec := range records {
		if rec.isSection(section) {
			return i
		}
	}
	return -1
}

// insert adds an assignment for a missing key. Top-level keys go after the
// last top-level assignment (or at the top of the file); section keys go after
// the last assignment of the section, and a new section is appended at the end
// of the file when it does not exist.
func insert(records []record, key overrides.Key, literal string) []record {
	eol := lineEnding(records)
	section, param := key.Split()
	line := record{kind: recordAssignment, key: param, eol: eol}
	line.raw = param + " = " + literal
	line.valueStart = len(param) + 3

	if !key.Scoped() {
		at := 0
		for i, rec := range records {
			if rec.kind == recordHeader {
				break
			}
			if rec.kind == recordAssignment {
				at = i + 1
			}
		}
		return insertAt(records, at, line)
	}

	start := sectionStart(records, section)
	if start < 0 {
		if n := len(records); n > 0 && records[n-1].eol == "" {
			records[n-1].eol = eol
		}
		header := record{kind: recordHeader, raw: "[" + section + "]", eol: eol}
		if len(records) > 0 {
			records = append(records, record{kind: recordBlank, eol: eol})
		}
		return append(records, header, line)
	}
	at := start + 1
	for i := start + 1; i < len(records); i++ {
		if records[i].kind == recordHeader {
			break
		}
		if records[i].kind == recordAssignment {
			at = i + 1
		}
	}
	return insertAt(records, at, line)
}

func insertAt(records []record, at int, rec record) []record {
	if at == len(records) && at > 0 && records[at-1].eol == "" {
		records[at-1].eol = rec.eol
	}
	records = append(records, record{})
	copy(records[at+1:], records[at:])
	records[at] = rec
	return records
}
