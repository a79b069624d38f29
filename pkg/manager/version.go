package manager

import (
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// CompareVersions orders two version strings. Strings that do not parse
// as versions compare lexically and sort before parsable ones.
func CompareVersions(a, b string) int {
	va, errA := goversion.NewVersion(a)
	vb, errB := goversion.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA != nil && errB == nil:
		return -1
	case errA == nil && errB != nil:
		return 1
	}
	return strings.Compare(a, b)
}

// SortVersionsDesc returns the distinct non-empty versions, newest first.
func SortVersionsDesc(versions []string) []string {
	seen := make(map[string]struct{}, len(versions))
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return CompareVersions(out[i], out[j]) > 0
	})
	return out
}
