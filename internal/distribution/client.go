// Package distribution is a thin typed client for the partner distribution
// API that moves testnet funds. It exposes the three calls the claim flow
// needs: an eligibility preflight, claim submission and a status snapshot.
//
// Every call is a single HTTP round trip. The client never retries, backs
// off or caches; any transport error, non-2xx status, non-JSON body or
// explicit success=false reply surfaces as a *Fault.
package distribution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-faucet-backend/internal/config"
)

// APIKeyHeader carries the static partner credential on every request.
const APIKeyHeader = "x-partner-api-key"

const (
	canClaimPath = "/partners/distributors/can-claim"
	claimPath    = "/partners/distributors/claim"

	opCanClaim = "can-claim"
	opClaim    = "claim"
	opStatus   = "claim-status"

	maxBodyBytes = 1 << 20
)

// Eligibility is the preflight answer for an address and requester.
type Eligibility struct {
	Eligible  bool
	Closed    bool     // tap closed by the operator
	Amount    *float64 // quoted display amount, when present
	AmountWei *string  // quoted amount in wei, when present
}

// Submission identifies an accepted transfer request. SubmissionID is empty
// when the remote replied without one; the caller decides what that means.
type Submission struct {
	SubmissionID string
	Message      string
}

// Status is a snapshot of a submission. TransactionHash is empty while the
// transfer is still processing.
type Status struct {
	Success         bool
	State           string
	TransactionHash string
	AmountWei       *string
	Error           string
}

// Failed reports whether the snapshot is terminal without a hash: the remote
// said success=false, reported an error, or a failure status.
func (s Status) Failed() bool {
	if !s.Success || strings.TrimSpace(s.Error) != "" {
		return true
	}
	switch strings.ToLower(s.State) {
	case "failed", "error", "rejected", "cancelled", "canceled":
		return true
	}
	return false
}

// Client talks to the distribution service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New builds a Client from cfg. cfg.Timeout bounds each round trip.
func New(cfg config.DistributorConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type claimRequest struct {
	Address   string `json:"address"`
	VisitorID string `json:"visitorId"`
}

type canClaimResponse struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
	Data    *struct {
		CanClaim    bool     `json:"canClaim"`
		Amount      *float64 `json:"amount"`
		AmountInWei *string  `json:"amountInWei"`
		IsTapClosed *bool    `json:"isTapClosed"`
	} `json:"data"`
}

type claimResponse struct {
	Success       *bool   `json:"success"`
	Message       *string `json:"message"`
	TransactionID *string `json:"transactionId"`
}

type claimStatusResponse struct {
	Success bool    `json:"success"`
	Message *string `json:"message"`
	Data    *struct {
		TransactionID   *string `json:"transactionId"`
		Status          *string `json:"status"`
		Amount          *string `json:"amount"`
		ToAddress       *string `json:"toAddress"`
		Error           *string `json:"error"`
		TransactionHash *string `json:"transactionHash"`
	} `json:"data"`
}

// CheckEligibility asks whether requesterID may claim to address right now.
// A well-formed negative answer is returned as Eligible=false, not a fault.
func (c *Client) CheckEligibility(ctx context.Context, address, requesterID string) (Eligibility, error) {
	ctx, span := c.start(ctx, "CheckEligibility", requesterID)
	defer span.End()

	var resp canClaimResponse
	if err := c.do(ctx, opCanClaim, http.MethodPost, c.baseURL+canClaimPath,
		claimRequest{Address: address, VisitorID: requesterID}, &resp); err != nil {
		return Eligibility{}, recordFault(span, err)
	}
	if !resp.Success || resp.Data == nil {
		return Eligibility{}, recordFault(span, &Fault{Op: opCanClaim, Message: deref(resp.Message), Err: errors.New("unsuccessful reply")})
	}

	out := Eligibility{
		Eligible:  resp.Data.CanClaim,
		Amount:    resp.Data.Amount,
		AmountWei: resp.Data.AmountInWei,
	}
	if resp.Data.IsTapClosed != nil {
		out.Closed = *resp.Data.IsTapClosed
	}
	span.SetAttributes(
		attribute.Bool("faucet.eligible", out.Eligible),
		attribute.Bool("faucet.tap_closed", out.Closed),
	)
	return out, nil
}

// Submit initiates a transfer and returns the tracking id assigned by the
// remote. The remote is the system of record for whether funds move.
func (c *Client) Submit(ctx context.Context, address, requesterID string) (Submission, error) {
	ctx, span := c.start(ctx, "Submit", requesterID)
	defer span.End()

	var resp claimResponse
	if err := c.do(ctx, opClaim, http.MethodPost, c.baseURL+claimPath,
		claimRequest{Address: address, VisitorID: requesterID}, &resp); err != nil {
		return Submission{}, recordFault(span, err)
	}
	if resp.Success != nil && !*resp.Success {
		return Submission{}, recordFault(span, &Fault{Op: opClaim, Message: deref(resp.Message), Err: errors.New("unsuccessful reply")})
	}

	out := Submission{
		SubmissionID: strings.TrimSpace(deref(resp.TransactionID)),
		Message:      deref(resp.Message),
	}
	span.SetAttributes(attribute.String("faucet.submission_id", out.SubmissionID))
	return out, nil
}

// PollStatus reads the current state of a submission. A reply with
// success=false is returned as a Status whose Failed method reports true,
// so the caller can stop polling.
func (c *Client) PollStatus(ctx context.Context, submissionID string) (Status, error) {
	ctx, span := otel.Tracer("distribution/Client").Start(ctx, "PollStatus",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("faucet.submission_id", submissionID)),
	)
	defer span.End()

	u := c.baseURL + claimPath + "?transactionId=" + url.QueryEscape(submissionID)
	var resp claimStatusResponse
	if err := c.do(ctx, opStatus, http.MethodGet, u, nil, &resp); err != nil {
		return Status{}, recordFault(span, err)
	}

	out := Status{Success: resp.Success}
	if resp.Data != nil {
		out.State = deref(resp.Data.Status)
		out.TransactionHash = strings.TrimSpace(deref(resp.Data.TransactionHash))
		out.AmountWei = resp.Data.Amount
		out.Error = deref(resp.Data.Error)
	} else if resp.Success {
		// success without data carries nothing to poll on
		out.Success = false
		out.Error = "missing status data"
	}
	if out.Error == "" && !out.Success {
		out.Error = deref(resp.Message)
	}
	span.SetAttributes(
		attribute.String("faucet.status", out.State),
		attribute.Bool("faucet.hash_known", out.TransactionHash != ""),
	)
	return out, nil
}

func (c *Client) start(ctx context.Context, name, requesterID string) (context.Context, trace.Span) {
	return otel.Tracer("distribution/Client").Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("faucet.requester_id", requesterID)),
	)
}

// do performs one round trip and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, op, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Fault{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &Fault{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(APIKeyHeader, c.apiKey)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Fault{Op: op, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Fault{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env struct {
			Message *string `json:"message"`
		}
		_ = json.Unmarshal(raw, &env)
		return &Fault{Op: op, StatusCode: resp.StatusCode, Message: deref(env.Message), Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Fault{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func recordFault(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "distribution fault")
	var f *Fault
	if errors.As(err, &f) && f.StatusCode != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", f.StatusCode))
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
