package google

import (
	"fmt"
	"sort"
	"strings"

	ports "kharcha/internal/sheets"
)

// rowsWithID returns the zero-based indexes of rows whose id column equals
// id, highest first.
func rowsWithID(values [][]any, id string) []int {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	var out []int
	for i, row := range values {
		cols := toStrings(row)
		if safeGet(cols, ports.IDColumn) == id {
			out = append(out, i)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
