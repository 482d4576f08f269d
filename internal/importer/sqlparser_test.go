package importer_test

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"redarch/internal/importer"
)

// submissionDump wraps VALUES tuples in a four-column CREATE TABLE preamble
// so tests stay readable; the parser reads column order from the preamble.
func submissionDump(values string) string {
	return `-- MariaDB dump
/*!40101 SET NAMES utf8 */;
DROP TABLE IF EXISTS ` + "`submission`" + `;
CREATE TABLE ` + "`submission`" + ` (
  ` + "`submissionid`" + ` int(11) NOT NULL,
  ` + "`title`" + ` varchar(200) DEFAULT NULL,
  ` + "`upCount`" + ` int(11) DEFAULT NULL,
  ` + "`content`" + ` text
) ENGINE=InnoDB DEFAULT CHARSET=utf8;
INSERT INTO ` + "`submission`" + ` VALUES ` + values + `;
`
}

func scanAll(t *testing.T, dump, table string) ([]map[string]any, int64) {
	t.Helper()
	s, err := importer.NewSQLDumpScanner(strings.NewReader(dump), table)
	if err != nil {
		t.Fatalf("NewSQLDumpScanner() error = %v", err)
	}
	var rows []map[string]any
	for {
		row, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		rows = append(rows, row)
	}
	return rows, s.BadRows()
}

func TestSQLDumpScanner(t *testing.T) {
	t.Run("parses multi-row insert with types", func(t *testing.T) {
		dump := submissionDump(`(1,'first post',5,'body text'),(2,NULL,-3,12.5)`)
		rows, bad := scanAll(t, dump, "submission")
		if bad != 0 {
			t.Errorf("BadRows() = %d, want 0", bad)
		}
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(rows))
		}
		if got := rows[0]["submissionid"]; got != int64(1) {
			t.Errorf("submissionid = %v (%T), want int64(1)", got, got)
		}
		if got := rows[0]["title"]; got != "first post" {
			t.Errorf("title = %v, want %q", got, "first post")
		}
		if got := rows[1]["title"]; got != nil {
			t.Errorf("NULL title = %v, want nil", got)
		}
		if got := rows[1]["upCount"]; got != int64(-3) {
			t.Errorf("upCount = %v, want int64(-3)", got)
		}
		if got := rows[1]["content"]; got != 12.5 {
			t.Errorf("content = %v (%T), want float64(12.5)", got, got)
		}
	})

	t.Run("decodes mariadb escapes", func(t *testing.T) {
		dump := submissionDump(`(1,'it\'s a ''test''',0,'line1\nline2\ttabbed\\done')`)
		rows, _ := scanAll(t, dump, "submission")
		if len(rows) != 1 {
			t.Fatalf("rows = %d, want 1", len(rows))
		}
		if got := rows[0]["title"]; got != "it's a 'test'" {
			t.Errorf("title = %q, want %q", got, "it's a 'test'")
		}
		if got := rows[0]["content"]; got != "line1\nline2\ttabbed\\done" {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("keeps delimiters inside strings", func(t *testing.T) {
		dump := submissionDump(`(1,'commas, parens (like this), semicolons;',0,'a'),(2,'plain',1,'b')`)
		rows, _ := scanAll(t, dump, "submission")
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(rows))
		}
		if got := rows[0]["title"]; got != "commas, parens (like this), semicolons;" {
			t.Errorf("title = %q", got)
		}
	})

	t.Run("distinguishes empty string from null", func(t *testing.T) {
		dump := submissionDump(`(1,'',0,NULL)`)
		rows, _ := scanAll(t, dump, "submission")
		if got := rows[0]["title"]; got != "" {
			t.Errorf("quoted empty = %v, want \"\"", got)
		}
		if got := rows[0]["content"]; got != nil {
			t.Errorf("NULL = %v, want nil", got)
		}
	})

	t.Run("skips and counts arity mismatches", func(t *testing.T) {
		dump := submissionDump(`(1,'ok',0,'a'),(2,'short'),(3,'ok too',1,'b')`)
		rows, bad := scanAll(t, dump, "submission")
		if bad != 1 {
			t.Errorf("BadRows() = %d, want 1", bad)
		}
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(rows))
		}
		if rows[1]["submissionid"] != int64(3) {
			t.Errorf("resync row id = %v, want 3", rows[1]["submissionid"])
		}
	})

	t.Run("parses split format tuple lines", func(t *testing.T) {
		dump := `CREATE TABLE ` + "`comment`" + ` (
  ` + "`commentid`" + ` int(11) NOT NULL,
  ` + "`content`" + ` text,
  ` + "`subverse`" + ` varchar(50)
) ENGINE=InnoDB;
(10,'hello','news'),
(11,'world','news');
`
		rows, _ := scanAll(t, dump, "comment")
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(rows))
		}
		if rows[1]["commentid"] != int64(11) {
			t.Errorf("commentid = %v, want 11", rows[1]["commentid"])
		}
	})

	t.Run("ignores other tables", func(t *testing.T) {
		dump := submissionDump(`(1,'mine',0,'x')`) +
			"INSERT INTO `badge` VALUES (9,'other');\n"
		rows, bad := scanAll(t, dump, "submission")
		if bad != 0 {
			t.Errorf("BadRows() = %d, want 0", bad)
		}
		if len(rows) != 1 {
			t.Fatalf("rows = %d, want 1", len(rows))
		}
	})

	t.Run("uses default voat column order without preamble", func(t *testing.T) {
		// 27 positional values for the submission table.
		vals := make([]string, 27)
		for i := range vals {
			vals[i] = fmt.Sprintf("%d", i)
		}
		vals[12] = "'golang'" // subverse
		vals[15] = "'a title'"
		dump := "INSERT INTO `submission` VALUES (" + strings.Join(vals, ",") + ");\n"

		rows, _ := scanAll(t, dump, "submission")
		if len(rows) != 1 {
			t.Fatalf("rows = %d, want 1", len(rows))
		}
		if rows[0]["subverse"] != "golang" {
			t.Errorf("subverse = %v, want golang", rows[0]["subverse"])
		}
		if rows[0]["title"] != "a title" {
			t.Errorf("title = %v, want a title", rows[0]["title"])
		}
		if rows[0]["upCount"] != int64(17) {
			t.Errorf("upCount = %v, want 17", rows[0]["upCount"])
		}
	})

	t.Run("unknown table is an error", func(t *testing.T) {
		if _, err := importer.NewSQLDumpScanner(strings.NewReader(""), "users"); err == nil {
			t.Error("NewSQLDumpScanner() expected error for unknown table")
		}
	})

	t.Run("empty input yields eof", func(t *testing.T) {
		rows, bad := scanAll(t, "-- nothing here\n", "submission")
		if len(rows) != 0 || bad != 0 {
			t.Errorf("rows = %d, bad = %d, want 0, 0", len(rows), bad)
		}
	})
}
