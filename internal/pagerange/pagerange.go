// Package pagerange turns a user-entered page specification such as "1,3-5,10"
// into the canonical zero-based page selection used by the rest of the pipeline.
package pagerange

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Selection is a strictly increasing list of unique zero-based page indices.
type Selection []int

// Parse resolves spec against a document with totalPages pages.
//
// A blank spec selects every page. Tokens are comma separated and are either a
// single 1-based page or an inclusive 1-based range "a-b". Out-of-range pages,
// reversed ranges and tokens that are not integers are dropped without error;
// a range whose upper bound overflows is clamped to the last page. The result
// may be empty and it is up to the caller to report that.
func Parse(spec string, totalPages int) Selection {
	if totalPages <= 0 {
		return Selection{}
	}
	if strings.TrimSpace(spec) == "" {
		all := make(Selection, totalPages)
		for i := range all {
			all[i] = i
		}
		return all
	}

	seen := make(map[int]struct{})
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if !strings.Contains(token, "-") {
			n, err := strconv.Atoi(token)
			if err != nil || n < 1 || n > totalPages {
				continue
			}
			seen[n-1] = struct{}{}
			continue
		}

		bounds := strings.Split(token, "-")
		if len(bounds) != 2 {
			continue
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			continue
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			continue
		}
		if start < 1 || start > end {
			continue
		}
		for p := start; p <= min(end, totalPages); p++ {
			seen[p-1] = struct{}{}
		}
	}

	sel := make(Selection, 0, len(seen))
	for idx := range seen {
		sel = append(sel, idx)
	}
	sort.Ints(sel)
	return sel
}

// OneBased returns the selection as 1-based page numbers.
func (s Selection) OneBased() []int {
	out := make([]int, len(s))
	for i, idx := range s {
		out[i] = idx + 1
	}
	return out
}

// String renders the selection as a compact 1-based spec, e.g. "1-5,10".
func (s Selection) String() string {
	var b strings.Builder
	for i := 0; i < len(s); {
		j := i
		for j+1 < len(s) && s[j+1] == s[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(s[i] + 1))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(s[j] + 1))
		}
		i = j + 1
	}
	return b.String()
}

// OutputFilename names the converted document: the source base name without
// its ".pdf" extension, suffixed with "_p" and the page spec when one was given.
// Whitespace is removed from the spec and commas become underscores.
func OutputFilename(sourceName, spec string) string {
	base := filepath.Base(strings.ReplaceAll(sourceName, "\\", "/"))
	if strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base = base[:len(base)-len(".pdf")]
	}
	if base == "" || base == "." || base == "/" {
		base = "document"
	}

	cleaned := strings.Join(strings.Fields(spec), "")
	if cleaned == "" {
		return base + ".docx"
	}
	return base + "_p" + strings.ReplaceAll(cleaned, ",", "_") + ".docx"
}
