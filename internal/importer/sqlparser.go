package importer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Column orders for the Voat MariaDB dump tables, taken from the dump's
// CREATE TABLE statements. Used when a dump carries bare VALUES tuples with
// no preamble to read them from.
var voatColumns = map[string][]string{
	"submission": {
		"submissionid", "archiveDate", "commentCount", "content",
		"creationDate", "domain", "downCount", "formattedContent", "isAdult",
		"isAnonymized", "isDeleted", "lastEditDate", "subverse", "sum",
		"thumbnail", "title", "type", "upCount", "url", "userName", "views",
		"archivedLink", "archivedDomain", "deletedMeaning", "fetchCount",
		"lastFetched", "flags",
	},
	"comment": {
		"commentid", "content", "creationDate", "downCount",
		"formattedContent", "isAnonymized", "isCollapsed", "isDeleted",
		"isDistinguished", "isOwner", "isSaved", "isSubmitter",
		"lastEditDate", "parentid", "submissionid", "subverse", "sum",
		"upCount", "userName", "vote", "fetchCount", "lastFetched",
	},
}

// MariaDB backslash escapes inside string literals.
var sqlEscapes = map[byte]byte{
	'\'': '\'',
	'"':  '"',
	'\\': '\\',
	'r':  '\r',
	'n':  '\n',
	't':  '\t',
	'0':  0x00,
	'b':  '\b',
	'Z':  0x1a,
}

const (
	// Longest line prefix inspected for an INSERT or CREATE TABLE header
	// before the rest of the line is skipped.
	maxHeaderBytes = 512
	// A single VALUES tuple larger than this is treated as malformed; an
	// unbalanced quote would otherwise swallow the rest of the dump.
	maxTupleBytes = 16 << 20
)

var (
	errEndOfStatement = errors.New("end of insert statement")
	errTupleTooLarge  = errors.New("values tuple exceeds size limit")
)

// SQLDumpScanner streams row tuples for one table out of a MariaDB dump. It
// never materializes a whole INSERT statement: bytes are consumed through a
// character state machine and each VALUES tuple is yielded as soon as its
// closing parenthesis arrives.
//
// Both dump shapes are handled: standard multi-row
// `INSERT INTO `tbl` VALUES (...),(...);` statements and split files that
// carry bare `(...)` tuple lines. When the dump includes the table's CREATE
// TABLE preamble, column names are read from it; otherwise the declared
// per-table column order applies.
type SQLDumpScanner struct {
	r       *bufio.Reader
	table   string
	columns []string

	insertHeader string // uppercased "INSERT INTO `tbl` VALUES"
	createHeader string // uppercased "CREATE TABLE `tbl`"

	inValues bool
	badRows  int64
}

// NewSQLDumpScanner creates a scanner for the named table. Column order
// defaults to the known Voat layout for that table; a CREATE TABLE preamble
// in the dump overrides it.
func NewSQLDumpScanner(r io.Reader, table string) (*SQLDumpScanner, error) {
	columns, ok := voatColumns[table]
	if !ok {
		return nil, fmt.Errorf("no column map for table %q", table)
	}
	return &SQLDumpScanner{
		r:            bufio.NewReaderSize(r, 256<<10),
		table:        table,
		columns:      columns,
		insertHeader: strings.ToUpper(fmt.Sprintf("INSERT INTO `%s` VALUES", table)),
		createHeader: strings.ToUpper(fmt.Sprintf("CREATE TABLE `%s`", table)),
	}, nil
}

// BadRows returns the number of malformed tuples skipped so far.
func (s *SQLDumpScanner) BadRows() int64 { return s.badRows }

// Next returns the next row as column-name-keyed values: nil for NULL,
// int64, float64, or string. It returns io.EOF when the dump is exhausted.
// Malformed tuples and column-count mismatches are skipped and counted, with
// scanning resynchronized at the next tuple boundary.
func (s *SQLDumpScanner) Next() (map[string]any, error) {
	for {
		if !s.inValues {
			if err := s.seekValues(); err != nil {
				return nil, err
			}
			s.inValues = true
		}

		values, err := s.readTuple()
		switch {
		case err == errEndOfStatement:
			s.inValues = false
			continue
		case err == errTupleTooLarge:
			s.badRows++
			s.inValues = false
			if err := s.skipLine(); err != nil {
				return nil, err
			}
			continue
		case err != nil:
			return nil, err
		}

		if len(values) != len(s.columns) {
			s.badRows++
			continue
		}
		row := make(map[string]any, len(values))
		for i, col := range s.columns {
			row[col] = values[i]
		}
		return row, nil
	}
}

// seekValues consumes input until positioned just before the first tuple of
// the next relevant statement. Lines are inspected only up to
// maxHeaderBytes; the body of other tables' INSERT statements is skipped
// without buffering.
func (s *SQLDumpScanner) seekValues() error {
	prefix := make([]byte, 0, maxHeaderBytes)
	skipping := false
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		if b == '\n' {
			prefix = prefix[:0]
			skipping = false
			continue
		}
		if skipping {
			continue
		}
		prefix = append(prefix, b)

		trimmed := bytes.TrimLeft(prefix, " \t\r")
		if len(trimmed) == 1 && trimmed[0] == '(' {
			// Split-format tuple line.
			if err := s.r.UnreadByte(); err != nil {
				return err
			}
			return nil
		}

		upper := strings.ToUpper(string(trimmed))
		if upper == s.insertHeader {
			return nil
		}
		if b == '(' && strings.TrimSpace(strings.TrimSuffix(upper, "(")) == s.insertHeader {
			// "VALUES(" with no separating space.
			if err := s.r.UnreadByte(); err != nil {
				return err
			}
			return nil
		}
		if strings.HasPrefix(upper, s.createHeader) && b == '(' {
			// Consumes through the closing line, leaving the reader at the
			// start of the next line.
			if err := s.readCreateColumns(); err != nil {
				return err
			}
			prefix = prefix[:0]
			continue
		}

		if len(prefix) >= maxHeaderBytes {
			skipping = true
		}
	}
}

// readCreateColumns parses the column list of a CREATE TABLE block, one
// short line per column, and replaces the scanner's column order.
func (s *SQLDumpScanner) readCreateColumns() error {
	var columns []string
	for {
		line, err := s.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "`") {
			end := strings.Index(trimmed[1:], "`")
			if end > 0 {
				columns = append(columns, trimmed[1:1+end])
			}
		}
		if strings.HasPrefix(trimmed, ")") || err == io.EOF {
			break
		}
	}
	if len(columns) > 0 {
		s.columns = columns
	}
	return nil
}

// skipLine discards input through the next newline, the resync point after
// an oversized tuple.
func (s *SQLDumpScanner) skipLine() error {
	_, err := s.r.ReadString('\n')
	if err == io.EOF {
		return nil
	}
	return err
}

// readTuple parses one parenthesized value list. The state machine mirrors
// MariaDB string syntax: backslash escapes and doubled single quotes inside
// literals, NULL and bare numerics outside them.
func (s *SQLDumpScanner) readTuple() ([]any, error) {
	// Position on the opening parenthesis, skipping inter-tuple separators.
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch b {
		case '(':
			goto parse
		case ';':
			return nil, errEndOfStatement
		case ',', ' ', '\t', '\r', '\n':
			continue
		default:
			return nil, errEndOfStatement
		}
	}

parse:
	var (
		values    []any
		current   strings.Builder
		inString  bool
		escaped   bool
		wasQuoted bool
		consumed  int
	)
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		consumed++
		if consumed > maxTupleBytes {
			return nil, errTupleTooLarge
		}

		switch {
		case escaped:
			if repl, ok := sqlEscapes[b]; ok {
				current.WriteByte(repl)
			} else {
				current.WriteByte(b)
			}
			escaped = false

		case inString:
			switch b {
			case '\\':
				escaped = true
			case '\'':
				// Doubled quote is an escaped quote.
				peek, err := s.r.Peek(1)
				if err == nil && peek[0] == '\'' {
					s.r.ReadByte()
					current.WriteByte('\'')
				} else {
					inString = false
				}
			default:
				current.WriteByte(b)
			}

		case b == '\'':
			inString = true
			wasQuoted = true

		case b == ',':
			values = append(values, parseSQLValue(current.String(), wasQuoted))
			current.Reset()
			wasQuoted = false

		case b == ')':
			values = append(values, parseSQLValue(current.String(), wasQuoted))
			return values, nil

		default:
			current.WriteByte(b)
		}
	}
}

// parseSQLValue types a raw field: unquoted NULL (or emptiness) is nil,
// numerics become int64/float64, everything else stays a string.
func parseSQLValue(raw string, wasQuoted bool) any {
	if wasQuoted {
		return raw
	}
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "NULL") || raw == "" {
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
