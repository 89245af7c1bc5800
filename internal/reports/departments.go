package reports

import (
	"sort"
	"strings"

	"apdash/pkg/models"
)

// OrderedDepartments lists the departments present in the ledger: those in
// priority first, in priority order, then the rest alphabetically. The
// returned index points at the first priority department, or 0.
func OrderedDepartments(records []models.InvoiceRecord, priority []string) ([]string, int) {
	seen := make(map[string]struct{})
	for i := range records {
		if d := records[i].Department; d != "" {
			seen[d] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for d := range seen {
		names = append(names, d)
	}
	ordered := orderDepartments(names, priority)

	defaultIndex := 0
	if len(priority) > 0 {
		for i, d := range ordered {
			if d == priority[0] {
				defaultIndex = i
				break
			}
		}
	}
	return ordered, defaultIndex
}

func orderDepartments(names []string, priority []string) []string {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	out := make([]string, 0, len(names))
	placed := make(map[string]bool, len(priority))
	for _, p := range priority {
		if present[p] && !placed[p] {
			out = append(out, p)
			placed[p] = true
		}
	}

	var rest []string
	for _, n := range names {
		if !placed[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// VendorNames lists distinct non-blank vendor names, sorted without regard to case.
func VendorNames(records []models.InvoiceRecord) []string {
	seen := make(map[string]struct{})
	for i := range records {
		if v := strings.TrimSpace(records[i].VendorName); v != "" {
			seen[v] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out
}
