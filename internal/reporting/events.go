package reporting

import (
	"fmt"
	"time"

	"github.com/SprengerV/volume-analyzer/internal/domain"
)

// FormatEvent renders a monitor event as a single log line.
func FormatEvent(ev domain.Event) string {
	at := ev.OccurredAt().Format("15:04:05")

	switch e := ev.(type) {
	case domain.ActivityEvent:
		price := formatPrice(e.Swap.Price)
		if price == "" {
			price = "n/a"
		}
		return fmt.Sprintf("[%s] %s %s: %.6f %s -> %.6f %s (price %s) tx %s",
			at, e.Kind(), e.Address,
			e.Swap.AmountIn, e.Swap.InputMint,
			e.Swap.AmountOut, e.Swap.OutputMint,
			price, e.Swap.TxSignature)
	case domain.SilenceEvent:
		return fmt.Sprintf("[%s] %s %s: no swaps for %ds", at, e.Kind(), e.Address, e.SinceSeconds)
	case domain.ErrorEvent:
		return fmt.Sprintf("[%s] %s %s: %s", at, e.Kind(), e.Address, e.Message)
	}
	return fmt.Sprintf("[%s] %s %s", at, ev.Kind(), ev.MonitorAddress())
}

// ExportFileName returns "<prefix>_<YYYYmmdd_HHMMSS>.txt" for t.
func ExportFileName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.txt", prefix, t.Format("20060102_150405"))
}
