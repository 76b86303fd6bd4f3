package handlers

import (
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/go-faucet-backend/internal/domain"
	"github.com/tbourn/go-faucet-backend/internal/services"
)

// Reply is the human-readable message the chat front end posts verbatim.
// Lines use the chat's markdown dialect.
type Reply struct {
	Title string   `json:"title" example:"✅ Transaction Sent!"`
	Lines []string `json:"lines"`
}

// Message catalog keys.
const (
	keyTitleSent       = "title.sent"
	keyTitleProcessing = "title.processing"
	keyTitleLast       = "title.last"
	keyTitleEligible   = "title.eligible"
	keyNoClaims        = "line.no_claims"
	keyAmount          = "line.amount"
	keyTo              = "line.to"
	keyTx              = "line.tx"
	keyTxProcessing    = "line.tx_processing"
	keyNext            = "line.next"
	keyNextNow         = "line.next_now"
	keyCooldown        = "error.cooldown"
)

// longDateTime mirrors the chat client's long date/time timestamp style.
const longDateTime = "Monday, January 2, 2006 15:04 MST"

var supportedLangs = []language.Tag{language.English}

var langMatcher = language.NewMatcher(supportedLangs)

func init() {
	en := map[string]string{
		keyTitleSent:       "✅ Transaction Sent!",
		keyTitleProcessing: "✅ Claim Submitted (processing)",
		keyTitleLast:       "Last successful claim",
		keyTitleEligible:   "✅ Eligible now.",
		keyNoClaims:        "No successful claims on record.",
		keyAmount:          "**Amount:** %s",
		keyTo:              "**To:** `%s`",
		keyTx:              "**Tx:** %s",
		keyTxProcessing:    "**Tx:** processing…",
		keyNext:            "**Next request available:** %s",
		keyNextNow:         "**Next request available:** now",
		keyCooldown:        "Cooldown. Next available: %s",
	}
	for k, v := range en {
		if err := message.SetString(language.English, k, v); err != nil {
			panic(err)
		}
	}
}

// Renderer turns claim outcomes into replies.
type Renderer struct {
	explorerTxURL string
}

// NewRenderer returns a Renderer. When explorerTxURL is set, transaction
// hashes are rendered as explorerTxURL+hash.
func NewRenderer(explorerTxURL string) *Renderer {
	return &Renderer{explorerTxURL: explorerTxURL}
}

// printer picks the best supported language for an Accept-Language value.
func (r *Renderer) printer(acceptLanguage string) *message.Printer {
	tags, _, _ := language.ParseAcceptLanguage(acceptLanguage)
	_, idx, _ := langMatcher.Match(tags...)
	return message.NewPrinter(supportedLangs[idx])
}

// Outcome renders a Confirmed or Unconfirmed evaluation.
func (r *Renderer) Outcome(acceptLanguage, address string, out services.Outcome) Reply {
	p := r.printer(acceptLanguage)

	if out.State != services.StateConfirmed {
		return Reply{
			Title: p.Sprintf(keyTitleProcessing),
			Lines: []string{
				p.Sprintf(keyAmount, out.Quote.Display()),
				p.Sprintf(keyTo, shortAddress(address)),
				p.Sprintf(keyTxProcessing),
			},
		}
	}

	lines := []string{
		p.Sprintf(keyAmount, out.Quote.Display()),
		p.Sprintf(keyTo, shortAddress(address)),
		p.Sprintf(keyTx, r.txRef(out.TransactionHash)),
	}
	if out.NextEligibleAt != nil {
		lines = append(lines, "", p.Sprintf(keyNext, formatTime(*out.NextEligibleAt)))
	}
	return Reply{Title: p.Sprintf(keyTitleSent), Lines: lines}
}

// Status renders the requester's last confirmed claim.
func (r *Renderer) Status(acceptLanguage string, view services.StatusView) Reply {
	p := r.printer(acceptLanguage)
	if view.Last == nil {
		return Reply{Title: p.Sprintf(keyTitleEligible), Lines: []string{p.Sprintf(keyNoClaims)}}
	}

	last := view.Last
	lines := []string{
		p.Sprintf(keyAmount, services.Quote{AmountWei: last.AmountWei}.Display()),
		p.Sprintf(keyTo, shortAddress(last.Address)),
		p.Sprintf(keyTx, r.txRef(last.TxHash)),
		"",
	}
	if view.CooldownActive && view.NextEligibleAt != nil {
		lines = append(lines, p.Sprintf(keyNext, formatTime(*view.NextEligibleAt)))
	} else {
		lines = append(lines, p.Sprintf(keyNextNow))
	}

	title := keyTitleLast
	if !view.CooldownActive {
		title = keyTitleEligible
	}
	return Reply{Title: p.Sprintf(title), Lines: lines}
}

// CooldownMessage is the rejection text for an active cooldown.
func (r *Renderer) CooldownMessage(acceptLanguage string, next time.Time) string {
	return r.printer(acceptLanguage).Sprintf(keyCooldown, next.UTC().Format(http.TimeFormat))
}

func (r *Renderer) txRef(hash string) string {
	switch {
	case hash == "":
		return services.Placeholder
	case r.explorerTxURL != "":
		return r.explorerTxURL + hash
	default:
		return hash
	}
}

// shortAddress keeps the first 6 and last 3 characters: 0x1234...abc.
func shortAddress(a string) string {
	if len(a) <= 9 {
		return a
	}
	return a[:6] + "..." + a[len(a)-3:]
}

func formatTime(t time.Time) string { return t.UTC().Format(longDateTime) }

// summary is the JSON view of a stored claim.
func summary(rec *domain.ClaimRecord) *ClaimSummary {
	if rec == nil {
		return nil
	}
	return &ClaimSummary{
		Address:         rec.Address,
		TransactionID:   rec.TransactionID,
		TransactionHash: rec.TxHash,
		Amount:          services.Quote{AmountWei: rec.AmountWei}.Display(),
		AmountWei:       rec.AmountWei,
		ClaimedAt:       time.Unix(rec.CreatedAt, 0).UTC(),
	}
}
