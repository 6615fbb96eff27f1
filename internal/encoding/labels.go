package encoding

import (
	"fmt"
	"io"
	"sort"
)

// WriteLabels renders the label table as a two-column listing sorted by
// address, then name.
func WriteLabels(w io.Writer, labels map[string]int64) error {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if labels[names[i]] != labels[names[j]] {
			return labels[names[i]] < labels[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s\t0x%08x\n", name, labels[name]); err != nil {
			return err
		}
	}
	return nil
}
