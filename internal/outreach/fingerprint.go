package outreach

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// rowFingerprint computes a deterministic SHA-256 key over every cell of a
// row, used for exact-duplicate removal.
//
// Canonicalization rules:
//   - Cells are concatenated in column order with the ASCII unit separator.
//   - Missing (nil) encodes as a single NUL byte so missing differs from
//     empty-string.
//   - Common scalar types are converted without fmt.Sprint.
//   - time.Time encodes as RFC3339Nano in UTC.
//
// Output is a lowercase hex string (length 64).
func rowFingerprint(row []any) string {
	var b strings.Builder
	b.Grow(len(row) * 20)

	for i, v := range row {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		appendCanonicalValue(&b, v)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func appendCanonicalValue(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteByte('\x00')
	case string:
		b.WriteString(t)
	case []byte:
		b.Write(t)
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case int:
		b.WriteString(strconv.Itoa(t))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case float64:
		b.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case time.Time:
		tt := t
		if !tt.IsZero() {
			tt = tt.UTC()
		}
		b.WriteString(tt.Format(time.RFC3339Nano))
	default:
		b.WriteString(fmt.Sprint(t))
	}
}
