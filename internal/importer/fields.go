package importer

import (
	"strconv"
	"strings"
)

// Pushshift archives are loose about types: numeric fields arrive as JSON
// numbers or as quoted strings depending on the dump's vintage. These
// helpers take the first present key and coerce.

func stringField(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			return t
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(t, 10)
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return ""
}

func int64Field(fields map[string]any, keys ...string) int64 {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return int64(t)
		case int64:
			return t
		case string:
			// "1506816000" and "1506816000.0" both occur.
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				return n
			}
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return int64(f)
			}
		case bool:
			if t {
				return 1
			}
		}
	}
	return 0
}

// trimThingPrefix strips a reddit fullname prefix ("t1_", "t3_") and
// reports which prefix was found.
func trimThingPrefix(fullname string) (id, prefix string) {
	if len(fullname) > 3 && fullname[0] == 't' && fullname[2] == '_' {
		return fullname[3:], fullname[:2]
	}
	return fullname, ""
}

// normalizeAuthor maps absent or deleted author markers to the display
// form the archives use.
func normalizeAuthor(author string) string {
	if strings.TrimSpace(author) == "" {
		return "[deleted]"
	}
	return author
}
