package pdf

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const dateLayout = "02 Jan 2006"

// formatAmount renders whole currency units with dot thousand separators,
// e.g. "IDR 420.000".
func formatAmount(currency string, amount int64) string {
	return strings.TrimSpace(currency + " " + strings.ReplaceAll(humanize.Comma(amount), ",", "."))
}

func formatVolume(m3 int64) string {
	return strings.ReplaceAll(humanize.Comma(m3), ",", ".") + " m3"
}

func formatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format(dateLayout)
}

func formatMeter(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
