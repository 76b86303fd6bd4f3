package services

import (
	"strconv"
	"strings"
)

// Placeholder is shown wherever an amount is unknown or unparsable.
const Placeholder = "—"

const weiDecimals = 18

// FormatWei renders a decimal wei string as ETH with up to 18 fractional
// digits. Trailing fraction zeros and leading integer zeros are trimmed.
// Empty or non-digit input yields Placeholder.
func FormatWei(wei string) string {
	if wei == "" || strings.TrimLeft(wei, "0123456789") != "" {
		return Placeholder
	}
	if len(wei) < weiDecimals+1 {
		wei = strings.Repeat("0", weiDecimals+1-len(wei)) + wei
	}
	split := len(wei) - weiDecimals
	whole := strings.TrimLeft(wei[:split], "0")
	if whole == "" {
		whole = "0"
	}
	frac := strings.TrimRight(wei[split:], "0")
	if frac == "" {
		return whole + " ETH"
	}
	return whole + "." + frac + " ETH"
}

// Display returns the amount shown to the requester: the quoted decimal
// amount when present, otherwise the quoted wei, otherwise Placeholder.
func (q Quote) Display() string {
	if q.Amount != nil {
		return strconv.FormatFloat(*q.Amount, 'f', -1, 64) + " ETH"
	}
	if q.AmountWei != nil {
		return FormatWei(*q.AmountWei)
	}
	return Placeholder
}
