package tomlpatch

import (
	"bytes"
	"strings"
)

type recordKind int

const (
	recordBlank recordKind = iota
	recordComment
	recordHeader
	recordAssignment
	recordOther
)

// record is one physical line of the file. raw never contains the line
// terminator, which is kept separately so it survives a value rewrite.
type record struct {
	kind recordKind
	raw  string
	eol  string

	// Assignment fields.
	key        string
	indented   bool
	valueStart int
}

func parseRecords(content []byte) []record {
	if len(content) == 0 {
		return nil
	}
	lines := bytes.SplitAfter(content, []byte("\n"))
	records := make([]record, 0, len(lines))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		text := string(line)
		eol := ""
		switch {
		case strings.HasSuffix(text, "\r\n"):
			eol = "\r\n"
		case strings.HasSuffix(text, "\n"):
			eol = "\n"
		}
		records = append(records, classify(strings.TrimSuffix(text, eol), eol))
	}
	return records
}

func classify(raw, eol string) record {
	rec := record{raw: raw, eol: eol}
	trimmed := strings.TrimLeft(raw, " \t")
	switch {
	case trimmed == "":
		rec.kind = recordBlank
	case strings.HasPrefix(trimmed, "#"):
		rec.kind = recordComment
	case strings.HasPrefix(raw, "["):
		rec.kind = recordHeader
	default:
		rec.kind = recordOther
		eq := strings.IndexByte(raw, '=')
		if eq < 0 {
			return rec
		}
		indent := len(raw) - len(trimmed)
		key := strings.TrimRight(raw[indent:eq], " \t")
		if key == "" || strings.ContainsAny(key, " \t") {
			return rec
		}
		start := eq + 1
		for start < len(raw) && (raw[start] == ' ' || raw[start] == '\t') {
			start++
		}
		rec.kind = recordAssignment
		rec.key = key
		rec.indented = indent > 0
		rec.valueStart = start
	}
	return rec
}

// isSection reports whether the record is the header line of the section.
func (r record) isSection(section string) bool {
	return r.kind == recordHeader && r.raw == "["+section+"]"
}

func (r *record) setValue(literal string) bool {
	updated := r.raw[:r.valueStart] + literal
	if updated == r.raw {
		return false
	}
	r.raw = updated
	return true
}

func render(records []record) []byte {
	size := 0
	for _, rec := range records {
		size += len(rec.raw) + len(rec.eol)
	}
	var buf bytes.Buffer
	buf.Grow(size)
	for _, rec := range records {
		buf.WriteString(rec.raw)
		buf.WriteString(rec.eol)
	}
	return buf.Bytes()
}

func lineEnding(records []record) string {
	for _, rec := range records {
		if rec.eol != "" {
			return rec.eol
		}
	}
	return "\n"
}
