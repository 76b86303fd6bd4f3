// Claim HTTP handlers.
//
// This file exposes the faucet endpoints called by the chat front end:
//   - POST /claims         (request test funds to an address)
//   - GET  /claims/status  (last confirmed claim and cooldown)
//
// Handlers are transport-thin: they validate input, call the claim service,
// and translate outcomes into HTTP statuses plus a rendered Reply.
package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-faucet-backend/internal/domain"
	"github.com/tbourn/go-faucet-backend/internal/http/middleware"
	"github.com/tbourn/go-faucet-backend/internal/services"
)

// ClaimService is the claim orchestration contract consumed by the handlers.
// Implementations must honor ctx for cancellation.
type ClaimService interface {
	// Evaluate runs one claim to a terminal outcome.
	Evaluate(ctx context.Context, req services.ClaimRequest) (services.Outcome, error)
	// Status reports the requester's last confirmed claim.
	Status(ctx context.Context, requesterID string) (services.StatusView, error)
}

// Handlers groups the faucet HTTP endpoints.
type Handlers struct {
	claims ClaimService
	render *Renderer
	now    func() time.Time
}

// New constructs Handlers bound to the claim service. explorerTxURL may be
// empty.
func New(claims ClaimService, explorerTxURL string) *Handlers {
	return &Handlers{claims: claims, render: NewRenderer(explorerTxURL), now: time.Now}
}

//
// DTOs
//

// ClaimRequestBody is the JSON payload for requesting funds.
type ClaimRequestBody struct {
	// Address is the destination EVM address (0x + 40 hex).
	Address string `json:"address" binding:"required" example:"0x52908400098527886E0F7030069857D2E4169EE7"`
}

// ClaimResponse describes a Confirmed (200) or Unconfirmed (202) claim.
type ClaimResponse struct {
	State           string     `json:"state" example:"confirmed"`
	SubmissionID    string     `json:"submission_id" example:"b2c8d0e4"`
	TransactionHash string     `json:"transaction_hash,omitempty" example:"0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"`
	Amount          string     `json:"amount" example:"0.5 ETH"`
	NextEligibleAt  *time.Time `json:"next_eligible_at,omitempty"`
	Reply           Reply      `json:"reply"`
}

// ClaimSummary is a stored confirmed claim.
type ClaimSummary struct {
	Address         string    `json:"address"`
	TransactionID   string    `json:"transaction_id"`
	TransactionHash string    `json:"transaction_hash"`
	Amount          string    `json:"amount" example:"0.5 ETH"`
	AmountWei       *string   `json:"amount_wei,omitempty" example:"500000000000000000"`
	ClaimedAt       time.Time `json:"claimed_at"`
}

// StatusResponse is the requester's cooldown state.
type StatusResponse struct {
	CooldownActive bool          `json:"cooldown_active"`
	NextEligibleAt *time.Time    `json:"next_eligible_at,omitempty"`
	Last           *ClaimSummary `json:"last,omitempty"`
	Reply          Reply         `json:"reply"`
}

//
// Helpers
//

// requesterID reads the identity stored by middleware.Identity, falling back
// to the raw header when the middleware is not installed.
func requesterID(c *gin.Context) string {
	if s := c.GetString(middleware.CtxUserID); s != "" {
		return s
	}
	return strings.TrimSpace(c.GetHeader(middleware.HeaderUserID))
}

// validAddress accepts exactly "0x" followed by 40 hex digits.
func validAddress(a string) bool {
	return len(a) == 2+2*common.AddressLength && strings.HasPrefix(a, "0x") && common.IsHexAddress(a)
}

// retryAfter is the whole seconds until t, at least 1.
func retryAfter(now, t time.Time) string {
	secs := int64(math.Ceil(t.Sub(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

//
// Handlers
//

// CreateClaim godoc
// @ID          createClaim
// @Summary     Request test funds
// @Description Checks the requester's cooldown, asks the distribution service for eligibility, submits the transfer and waits briefly for an on-chain hash.
// @Tags        Claims
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID     header  string  true   "Requester id"        example(123456789012345678)
// @Param       X-Guild-ID    header  string  false  "Originating guild"
// @Param       X-Channel-ID  header  string  false  "Originating channel"
// @Param       X-User-Roles  header  string  false  "Comma separated role ids"
// @Param       body          body    handlers.ClaimRequestBody  true  "Claim payload"
//
// @Success     200  {object}  handlers.ClaimResponse  "Transaction sent"
// @Success     202  {object}  handlers.ClaimResponse  "Submitted, not yet confirmed"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid address or body"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing requester identity"
// @Failure     403  {object}  handlers.ErrorResponse  "Not allowed here, or remotely ineligible"
// @Failure     429  {object}  handlers.ErrorResponse  "Cooldown active or rate limited"
// @Header      429  {string}  Retry-After  "Seconds until the next claim is allowed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Failure     502  {object}  handlers.ErrorResponse  "Distribution service issue"
// @Router      /claims [post]
func (h *Handlers) CreateClaim(c *gin.Context) {
	uid := requesterID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, msgMissingUser)
		return
	}

	var body ClaimRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	address := strings.TrimSpace(body.Address)
	if !validAddress(address) {
		fail(c, http.StatusBadRequest, ErrCodeInvalidAddress, msgInvalidAddress)
		return
	}

	out, err := h.claims.Evaluate(c.Request.Context(), services.ClaimRequest{
		RequesterID: uid,
		Address:     address,
		Refs: domain.ContextRefs{
			GuildID:   c.GetString(middleware.CtxGuildID),
			ChannelID: c.GetString(middleware.CtxChannelID),
		},
	})
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("claim failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, msgInternal)
		return
	}

	lang := c.GetHeader("Accept-Language")
	switch out.State {
	case services.StateConfirmed, services.StateUnconfirmed:
		status := http.StatusOK
		if out.State == services.StateUnconfirmed {
			status = http.StatusAccepted
		}
		ok(c, status, ClaimResponse{
			State:           string(out.State),
			SubmissionID:    out.SubmissionID,
			TransactionHash: out.TransactionHash,
			Amount:          out.Quote.Display(),
			NextEligibleAt:  out.NextEligibleAt,
			Reply:           h.render.Outcome(lang, address, out),
		})

	case services.StateRejected:
		if out.Reason == services.ReasonCooldown && out.NextEligibleAt != nil {
			c.Header("Retry-After", retryAfter(h.now(), *out.NextEligibleAt))
			fail(c, http.StatusTooManyRequests, ErrCodeCooldownActive, h.render.CooldownMessage(lang, *out.NextEligibleAt))
			return
		}
		fail(c, http.StatusForbidden, ErrCodeRemoteIneligible, msgIneligible)

	default:
		middleware.LoggerFrom(c).Warn().Str("stage", string(out.Stage)).Msg("claim faulted")
		fail(c, http.StatusBadGateway, ErrCodeServiceIssue, msgServiceIssue)
	}
}

// ClaimStatus godoc
// @ID          claimStatus
// @Summary     Show the last confirmed claim
// @Description Returns the requester's most recent confirmed claim and whether the cooldown still applies.
// @Tags        Claims
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Requester id"  example(123456789012345678)
//
// @Success     200  {object}  handlers.StatusResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing requester identity"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /claims/status [get]
func (h *Handlers) ClaimStatus(c *gin.Context) {
	uid := requesterID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, msgMissingUser)
		return
	}

	view, err := h.claims.Status(c.Request.Context(), uid)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("claim status failed")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, msgInternal)
		return
	}

	resp := StatusResponse{
		CooldownActive: view.CooldownActive,
		Last:           summary(view.Last),
		Reply:          h.render.Status(c.GetHeader("Accept-Language"), view),
	}
	if view.CooldownActive {
		resp.NextEligibleAt = view.NextEligibleAt
	}
	ok(c, http.StatusOK, resp)
}
