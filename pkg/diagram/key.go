package diagram

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ecorisk/bowtie/pkg/bowtie"
)

// CacheKey fingerprints one build request. Edges depend on the content of
// the protective-mitigation text, not just its presence, so the mitigation
// strings are digested into the key; editing one invalidates the cached
// result even when the row count is unchanged.
func CacheKey(table *bowtie.Table, opts Options) string {
	h := sha256.New()

	fmt.Fprintf(h, "problem=%s\n", opts.CentralProblem)
	fmt.Fprintf(h, "size=%d risk=%t intermediate=%t\n",
		opts.NodeSize, opts.ShowRiskColors, opts.ShowIntermediate)
	fmt.Fprintf(h, "rows=%d\n", len(table.Rows))

	for _, row := range table.Rows {
		io.WriteString(h, row.ProtectiveMitigation)
		io.WriteString(h, "\x1f")
	}

	return hex.EncodeToString(h.Sum(nil))
}
