package alert

import (
	"fmt"
	"html"
	"strings"

	"sandwich-guard/internal/domain"
)

const explorerTxURL = "https://solscan.io/tx/"

var levelBadge = map[domain.RiskLevel]string{
	domain.RiskHigh:   "🔴 HIGH",
	domain.RiskMedium: "🟠 MEDIUM",
	domain.RiskLow:    "🟢 LOW",
}

// FormatHTML renders a verdict for Telegram's HTML parse mode.
func FormatHTML(v domain.RiskVerdict) string {
	var b strings.Builder
	if v.Kind == domain.VerdictInfo {
		b.WriteString("ℹ️ <b>Sandwich Guard</b>\n")
		b.WriteString(html.EscapeString(v.Reason))
		return b.String()
	}

	fmt.Fprintf(&b, "<b>%s risk</b>\n", levelBadge[v.Level])
	b.WriteString(html.EscapeString(v.Reason))
	if v.Pool != nil {
		fmt.Fprintf(&b, "\nPool: <code>%s</code>", html.EscapeString(*v.Pool))
	}
	if v.Signature != "" {
		fmt.Fprintf(&b, "\n<a href=\"%s%s\">View transaction</a>", explorerTxURL, html.EscapeString(v.Signature))
	}
	return b.String()
}
