package sqlutil

import (
	"fmt"
	"strings"

	"github.com/0x5457/dill/internal/storage"
)

// JSONPath quotes a metadata key as an SQLite JSON path.
func JSONPath(key string) (string, error) {
	if strings.ContainsAny(key, "\"\\") {
		return "", fmt.Errorf("%w: key %q", storage.ErrUnsupportedPredicate, key)
	}
	return `$."` + key + `"`, nil
}

// WhereClause renders the collection filter and every predicate condition
// as an SQL boolean expression. Each condition checks the JSON type too, so
// the string "1" never matches the number 1.
func WhereClause(collection string, pred storage.Predicate) (string, []any, error) {
	pred, err := pred.Normalize()
	if err != nil {
		return "", nil, err
	}
	var sb strings.Builder
	sb.WriteString("collection = ?")
	args := []any{collection}
	for _, c := range pred {
		path, err := JSONPath(c.Field)
		if err != nil {
			return "", nil, err
		}
		switch v := c.Value.(type) {
		case bool:
			jsonType := "false"
			if v {
				jsonType = "true"
			}
			sb.WriteString(" AND json_type(metadata, ?) = ?")
			args = append(args, path, jsonType)
		case string:
			sb.WriteString(" AND json_type(metadata, ?) = 'text' AND json_extract(metadata, ?) = ?")
			args = append(args, path, path, v)
		default:
			sb.WriteString(" AND json_type(metadata, ?) IN ('integer', 'real') AND json_extract(metadata, ?) = ?")
			args = append(args, path, path, v)
		}
	}
	return sb.String(), args, nil
}
