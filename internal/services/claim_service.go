// Package services – ClaimService
//
// This file implements the claim orchestrator. A single Evaluate call walks a
// request through
//
//	CooldownCheck -> PreflightCheck -> Submitting -> Confirming
//
// and ends in exactly one of Confirmed, Unconfirmed, Rejected or Faulted.
// Remote calls are never retried; only Confirming polls, and only until the
// configured deadline measured from submission. A cooldown record is written
// only once the distribution service reports a transaction hash.
//
// Observability: Evaluate and Status are OpenTelemetry-instrumented and every
// terminal state is counted in faucet_claim_outcomes_total.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-faucet-backend/internal/config"
	"github.com/tbourn/go-faucet-backend/internal/distribution"
	"github.com/tbourn/go-faucet-backend/internal/domain"
	"github.com/tbourn/go-faucet-backend/internal/repo"
)

// State is the terminal state of an evaluation.
type State string

const (
	StateConfirmed   State = "confirmed"
	StateUnconfirmed State = "unconfirmed"
	StateRejected    State = "rejected"
	StateFaulted     State = "faulted"
)

// Reason qualifies a Rejected outcome.
type Reason string

const (
	ReasonCooldown   Reason = "cooldown active"
	ReasonIneligible Reason = "remote ineligible"
)

// Stage names the step at which an evaluation terminated.
type Stage string

const (
	StageCooldownCheck  Stage = "cooldown_check"
	StagePreflightCheck Stage = "preflight_check"
	StageSubmitting     Stage = "submitting"
	StageConfirming     Stage = "confirming"
)

// Quote is the amount offered at preflight. It is the display amount for the
// whole evaluation since status polls may omit it.
type Quote struct {
	Amount    *float64
	AmountWei *string
}

// Outcome is the tagged result of Evaluate. Which fields are set depends on
// State:
//
//	Rejected:    Reason, NextEligibleAt (cooldown only)
//	Faulted:     nothing beyond Stage
//	Unconfirmed: SubmissionID, Quote
//	Confirmed:   SubmissionID, TransactionHash, Quote, NextEligibleAt
type Outcome struct {
	State           State
	Stage           Stage
	Reason          Reason
	NextEligibleAt  *time.Time
	SubmissionID    string
	TransactionHash string
	Quote           Quote
}

// ClaimRequest is the front end's input.
type ClaimRequest struct {
	RequesterID string
	Address     string
	Refs        domain.ContextRefs
}

// StatusView summarizes a requester's last confirmed claim.
type StatusView struct {
	Last           *domain.ClaimRecord
	CooldownActive bool
	NextEligibleAt *time.Time
}

// CooldownStore is the persistence contract. Lookups return repo.ErrNotFound
// when nothing matches; RecordConfirmed is an idempotent insert keyed by
// transaction id.
type CooldownStore interface {
	RecordConfirmed(ctx context.Context, rec *domain.ClaimRecord) (bool, error)
	LatestWithin(ctx context.Context, requesterID string, window time.Duration) (*domain.ClaimRecord, error)
	Latest(ctx context.Context, requesterID string) (*domain.ClaimRecord, error)
	ByTransactionID(ctx context.Context, transactionID string) (*domain.ClaimRecord, error)
}

// Distributor is the remote distribution contract.
type Distributor interface {
	CheckEligibility(ctx context.Context, address, requesterID string) (distribution.Eligibility, error)
	Submit(ctx context.Context, address, requesterID string) (distribution.Submission, error)
	PollStatus(ctx context.Context, submissionID string) (distribution.Status, error)
}

// ClaimService orchestrates claims against a cooldown store and the remote
// distribution service.
type ClaimService struct {
	Store  CooldownStore
	Remote Distributor
	Cfg    config.FaucetConfig

	// Now is the clock used for cooldown arithmetic and the poll deadline.
	Now func() time.Time
	Log zerolog.Logger
}

// NewClaimService constructs a ClaimService. cfg is copied and never mutated.
func NewClaimService(store CooldownStore, remote Distributor, cfg config.FaucetConfig) *ClaimService {
	return &ClaimService{
		Store:  store,
		Remote: remote,
		Cfg:    cfg,
		Now:    time.Now,
		Log:    log.Logger.With().Str("component", "claims").Logger(),
	}
}

// Evaluate runs one claim to a terminal state. A non-nil error means the
// request was invalid (ErrInvalidInput) or the cooldown store failed
// (ErrStorage); remote problems are reported as StateFaulted instead.
//
// Two concurrent evaluations for the same requester may both pass the
// cooldown check; the unique transaction id is the only cross-request guard.
func (s *ClaimService) Evaluate(ctx context.Context, req ClaimRequest) (Outcome, error) {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "Evaluate",
		trace.WithAttributes(attribute.String("faucet.requester_id", req.RequesterID)),
	)
	defer span.End()

	req.RequesterID = strings.TrimSpace(req.RequesterID)
	req.Address = strings.TrimSpace(req.Address)
	if req.RequesterID == "" || req.Address == "" {
		return Outcome{}, ErrInvalidInput
	}
	lg := s.Log.With().Str("requester_id", req.RequesterID).Logger()

	out, err := s.evaluate(ctx, req, lg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim evaluation failed")
		lg.Error().Err(err).Msg("claim evaluation failed")
		return Outcome{}, err
	}

	span.SetAttributes(
		attribute.String("faucet.state", string(out.State)),
		attribute.String("faucet.stage", string(out.Stage)),
	)
	claimOutcomes.WithLabelValues(string(out.State), string(out.Reason)).Inc()
	return out, nil
}

func (s *ClaimService) evaluate(ctx context.Context, req ClaimRequest, lg zerolog.Logger) (Outcome, error) {
	// CooldownCheck
	recent, err := s.Store.LatestWithin(ctx, req.RequesterID, s.Cfg.Cooldown)
	switch {
	case err == nil:
		next := time.Unix(recent.CreatedAt, 0).UTC().Add(s.Cfg.Cooldown)
		return Outcome{State: StateRejected, Stage: StageCooldownCheck, Reason: ReasonCooldown, NextEligibleAt: &next}, nil
	case !errors.Is(err, repo.ErrNotFound):
		return Outcome{}, fmt.Errorf("%w: cooldown lookup: %v", ErrStorage, err)
	}

	// PreflightCheck
	elig, err := s.Remote.CheckEligibility(ctx, req.Address, req.RequesterID)
	if err != nil {
		lg.Warn().Err(err).Msg("eligibility check failed")
		return Outcome{State: StateFaulted, Stage: StagePreflightCheck}, nil
	}
	if !elig.Eligible || elig.Closed {
		return Outcome{State: StateRejected, Stage: StagePreflightCheck, Reason: ReasonIneligible}, nil
	}
	quote := Quote{Amount: elig.Amount, AmountWei: elig.AmountWei}

	// Submitting
	sub, err := s.Remote.Submit(ctx, req.Address, req.RequesterID)
	if err != nil {
		lg.Warn().Err(err).Msg("claim submission failed")
		return Outcome{State: StateFaulted, Stage: StageSubmitting}, nil
	}
	if sub.SubmissionID == "" {
		lg.Warn().Str("message", sub.Message).Msg("claim submission returned no transaction id")
		return Outcome{State: StateFaulted, Stage: StageSubmitting}, nil
	}

	return s.confirm(ctx, req, sub.SubmissionID, quote, lg)
}

// confirm polls until a hash appears, the remote reports failure, or the
// deadline passes. Cancelling ctx ends polling as Unconfirmed.
func (s *ClaimService) confirm(ctx context.Context, req ClaimRequest, submissionID string, quote Quote, lg zerolog.Logger) (Outcome, error) {
	lg = lg.With().Str("submission_id", submissionID).Logger()
	out := Outcome{Stage: StageConfirming, SubmissionID: submissionID, Quote: quote}

	deadline := s.now().Add(s.Cfg.PollDeadline)
	attempts := 0
	defer func() { pollAttempts.Observe(float64(attempts)) }()

	timer := time.NewTimer(s.Cfg.PollInterval)
	defer timer.Stop()

	for s.now().Before(deadline) {
		select {
		case <-ctx.Done():
			lg.Info().Err(ctx.Err()).Msg("confirmation abandoned")
			out.State = StateUnconfirmed
			return out, nil
		case <-timer.C:
		}
		attempts++

		st, err := s.Remote.PollStatus(ctx, submissionID)
		if err != nil {
			if ctx.Err() != nil {
				out.State = StateUnconfirmed
				return out, nil
			}
			lg.Warn().Err(err).Int("attempt", attempts).Msg("status poll failed")
			out.State = StateFaulted
			return out, nil
		}
		if st.TransactionHash != "" {
			at, err := s.record(ctx, req, submissionID, st.TransactionHash, quote, lg)
			if err != nil {
				return Outcome{}, err
			}
			next := at.Add(s.Cfg.Cooldown)
			out.State = StateConfirmed
			out.TransactionHash = st.TransactionHash
			out.NextEligibleAt = &next
			return out, nil
		}
		if st.Failed() {
			lg.Warn().Str("status", st.State).Str("error", st.Error).Msg("distribution reported failure")
			out.State = StateFaulted
			return out, nil
		}
		timer.Reset(s.Cfg.PollInterval)
	}

	// No cooldown row is written here, so the requester may retry at once
	// even though funds may still arrive. Kept pending product review.
	lg.Info().Int("attempts", attempts).Msg("claim submitted but not confirmed before deadline")
	out.State = StateUnconfirmed
	return out, nil
}

// record persists a confirmed claim and returns its timestamp. The write
// survives cancellation of the request context because the transfer has
// already happened.
func (s *ClaimService) record(ctx context.Context, req ClaimRequest, submissionID, hash string, quote Quote, lg zerolog.Logger) (time.Time, error) {
	ctx = context.WithoutCancel(ctx)
	at := time.Unix(s.now().Unix(), 0).UTC()
	rec := &domain.ClaimRecord{
		CreatedAt:     at.Unix(),
		RequesterID:   req.RequesterID,
		GuildID:       domain.StrPtr(req.Refs.GuildID),
		ChannelID:     domain.StrPtr(req.Refs.ChannelID),
		Address:       req.Address,
		TransactionID: submissionID,
		TxHash:        hash,
		AmountWei:     quote.AmountWei,
	}
	inserted, err := s.Store.RecordConfirmed(ctx, rec)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: record confirmed claim: %v", ErrStorage, err)
	}
	if inserted {
		return at, nil
	}

	// The submission id is assumed unique per requester. A duplicate owned by
	// someone else means the remote reused an id.
	existing, err := s.Store.ByTransactionID(ctx, submissionID)
	if err != nil {
		lg.Warn().Err(err).Msg("duplicate transaction id could not be inspected")
		return at, nil
	}
	if existing.RequesterID != req.RequesterID {
		claimConflicts.Inc()
		lg.Warn().
			Str("transaction_id", submissionID).
			Str("owner_requester_id", existing.RequesterID).
			Msg("transaction id already recorded for a different requester")
	}
	return time.Unix(existing.CreatedAt, 0).UTC(), nil
}

// Status reports the requester's most recent confirmed claim, regardless of
// age, and whether it still blocks a new claim.
func (s *ClaimService) Status(ctx context.Context, requesterID string) (StatusView, error) {
	tr := otel.Tracer("services/ClaimService")
	ctx, span := tr.Start(ctx, "Status",
		trace.WithAttributes(attribute.String("faucet.requester_id", requesterID)),
	)
	defer span.End()

	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return StatusView{}, ErrInvalidInput
	}

	last, err := s.Store.Latest(ctx, requesterID)
	if errors.Is(err, repo.ErrNotFound) {
		return StatusView{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return StatusView{}, fmt.Errorf("%w: latest claim: %v", ErrStorage, err)
	}

	next := time.Unix(last.CreatedAt, 0).UTC().Add(s.Cfg.Cooldown)
	return StatusView{
		Last:           last,
		CooldownActive: !s.now().After(next),
		NextEligibleAt: &next,
	}, nil
}

func (s *ClaimService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
