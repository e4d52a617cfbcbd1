package sheets

// UnionHeaders returns existing extended on the right by every local header
// not already present, in the order encountered. Comparison is exact string
// match. existing is never reordered or shortened.
func UnionHeaders(existing, local []string) []string {
	master := make([]string, 0, len(existing)+len(local))
	master = append(master, existing...)
	seen := make(map[string]struct{}, cap(master))
	for _, h := range existing {
		seen[h] = struct{}{}
	}
	for _, h := range local {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		master = append(master, h)
	}
	return master
}

// Reproject aligns one locally flattened row to master column order. Each
// master column takes the value at that header's first position in local, or
// "" when this row's data has no such column.
func Reproject(master, local []string, row []string) []string {
	pos := firstIndex(local)
	out := make([]string, len(master))
	for i, h := range master {
		if j, ok := pos[h]; ok && j < len(row) {
			out[i] = row[j]
		}
	}
	return out
}

// ReprojectAll applies Reproject to every row.
func ReprojectAll(master, local []string, rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = Reproject(master, local, r)
	}
	return out
}

func firstIndex(headers []string) map[string]int {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, ok := pos[h]; !ok {
			pos[h] = i
		}
	}
	return pos
}

func sameHeaders(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
