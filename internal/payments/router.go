// Package payments is the routing core: it quotes a cost for a service
// call, picks a settlement method (prepaid credits, tier quota, or an x402
// micropayment), and executes it. Quotes are advisory; every settlement
// re-derives tier, cost, balance, and quota at payment time so a stale
// quote can never spend funds it shouldn't.
package payments

import (
	"context"
	"fmt"
	"strconv"

	"github.com/thisyearnofear/VOISSS-sub003/internal/credits"
	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
	"github.com/thisyearnofear/VOISSS-sub003/internal/tier"
	"github.com/thisyearnofear/VOISSS-sub003/internal/usage"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/clients/facilitator"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/kafka"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/x402"
)

// Verifier abstracts the facilitator calls the router needs; satisfied by
// *facilitator.Client and mockable in tests.
type Verifier interface {
	Verify(ctx context.Context, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*facilitator.VerifyResponse, error)
	Settle(ctx context.Context, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*facilitator.SettleResponse, error)
}

// Config wires the router's collaborators. Credits, Usage, Calculator, and
// Builder are required; Tiers, Facilitator, and Producer are optional and
// degrade gracefully (no tiers, no x402 settlement, no events).
type Config struct {
	Calculator  *pricing.Calculator
	Tiers       *tier.Resolver
	Usage       usage.Tracker
	Credits     credits.Store
	Facilitator Verifier
	Builder     *x402.Builder
	Producer    *kafka.Producer
	PayTo       string
	Preference  Preference
	Logger      logging.Logger
}

// Router is the payment state machine: quote, select, settle.
type Router struct {
	calc        *pricing.Calculator
	tiers       *tier.Resolver
	usage       usage.Tracker
	credits     credits.Store
	facilitator Verifier
	builder     *x402.Builder
	producer    *kafka.Producer
	payTo       string
	preference  Preference
	logger      logging.Logger
}

// NewRouter creates a Router from its collaborators.
func NewRouter(cfg Config) (*Router, error) {
	if cfg.Calculator == nil || cfg.Usage == nil || cfg.Credits == nil || cfg.Builder == nil {
		return nil, fmt.Errorf("router requires calculator, usage tracker, credit store, and requirements builder")
	}
	pref := cfg.Preference
	if pref == "" {
		pref = PreferCreditsFirst
	}
	if !ValidPreference(pref) {
		return nil, fmt.Errorf("unknown method preference %q", pref)
	}
	return &Router{
		calc:        cfg.Calculator,
		tiers:       cfg.Tiers,
		usage:       cfg.Usage,
		credits:     cfg.Credits,
		facilitator: cfg.Facilitator,
		builder:     cfg.Builder,
		producer:    cfg.Producer,
		payTo:       cfg.PayTo,
		preference:  pref,
		logger:      cfg.Logger,
	}, nil
}

// GetQuote computes the current cost and viable methods for a service call.
func (r *Router) GetQuote(ctx context.Context, address string, service pricing.ServiceType, quantity int64) (*Quote, error) {
	if !pricing.ValidService(service) {
		return nil, fmt.Errorf("%w: %s", pricing.ErrUnknownService, service)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	t := tier.TierNone
	if r.tiers != nil {
		t = r.tiers.Resolve(ctx, address)
	}

	breakdown, err := r.calc.Calculate(service, quantity, tier.DiscountPercent(t), address)
	if err != nil {
		return nil, err
	}

	account, err := r.credits.GetAccount(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to read credit account: %w", err)
	}
	var balance int64
	if account != nil {
		balance = account.Balance
	}

	covered := tier.Covers(t, service)
	tierAvailable := breakdown.DiscountedCost == 0
	if !tierAvailable && covered {
		exceeded, err := r.usage.WouldExceedLimit(ctx, address, service, quantity, tier.DailyLimit(t, service))
		if err != nil {
			return nil, fmt.Errorf("failed to check usage quota: %w", err)
		}
		tierAvailable = !exceeded
	}

	quote := &Quote{
		Address:          address,
		Service:          service,
		Quantity:         quantity,
		BaseCost:         breakdown.BaseCost,
		EstimatedCost:    breakdown.DiscountedCost,
		UnitCost:         breakdown.UnitCost,
		DiscountPercent:  breakdown.DiscountPercent,
		Tier:             t,
		TierCovers:       covered,
		CreditsAvailable: balance,
	}

	if balance >= breakdown.DiscountedCost {
		quote.AvailableMethods = append(quote.AvailableMethods, MethodCredits)
	}
	if tierAvailable {
		quote.AvailableMethods = append(quote.AvailableMethods, MethodTier)
	}
	quote.AvailableMethods = append(quote.AvailableMethods, MethodX402)

	quote.RecommendedMethod = r.recommend(quote, tierAvailable)
	return quote, nil
}

// recommend applies the configured preference. Zero-cost access always
// prefers tier so free calls never burn credits or trigger a micropayment.
func (r *Router) recommend(q *Quote, tierAvailable bool) Method {
	if q.EstimatedCost == 0 && tierAvailable {
		return MethodTier
	}

	switch r.preference {
	case PreferX402Only:
		return MethodX402
	case PreferTierIfAvailable:
		if tierAvailable {
			return MethodTier
		}
		if q.HasMethod(MethodCredits) {
			return MethodCredits
		}
	default: // credits_first
		if q.HasMethod(MethodCredits) {
			return MethodCredits
		}
		if tierAvailable {
			return MethodTier
		}
	}
	return MethodX402
}

// Process settles a request using the method the fresh quote recommends.
// x402 settlements need a signed payload and go through ProcessX402Payment;
// here the x402 branch reports FallbackAvailable so the caller can issue a
// 402 challenge.
func (r *Router) Process(ctx context.Context, req Request) (*Result, error) {
	quote, err := r.GetQuote(ctx, req.Address, req.Service, req.Quantity)
	if err != nil {
		return nil, err
	}

	switch quote.RecommendedMethod {
	case MethodTier:
		return r.settleTier(ctx, req, quote), nil
	case MethodCredits:
		return r.settleCredits(ctx, req, quote), nil
	case MethodX402:
		return &Result{
			Success:           false,
			Method:            MethodX402,
			BaseCost:          quote.BaseCost,
			Cost:              quote.EstimatedCost,
			DiscountApplied:   quote.DiscountPercent,
			Tier:              quote.Tier,
			Error:             "payment requires client-side signing",
			FallbackAvailable: true,
		}, nil
	}

	return &Result{
		Success: false,
		Method:  MethodNone,
		Tier:    quote.Tier,
		Error:   "no viable payment method",
	}, nil
}

func (r *Router) settleTier(ctx context.Context, req Request, quote *Quote) *Result {
	if _, err := r.usage.RecordUsage(ctx, req.Address, req.Service, req.Quantity); err != nil {
		r.logError(req, err, "Failed to record tier usage")
		return r.failure(req, quote, MethodTier, "failed to record usage", false)
	}

	result := &Result{
		Success:         true,
		Method:          MethodTier,
		BaseCost:        quote.BaseCost,
		Cost:            0,
		DiscountApplied: 100,
		Tier:            quote.Tier,
	}
	r.publishEvent(kafka.EventPaymentSucceeded, req, result)
	return result
}

func (r *Router) settleCredits(ctx context.Context, req Request, quote *Quote) *Result {
	ok, err := r.credits.DeductCredits(ctx, req.Address, quote.EstimatedCost)
	if err != nil {
		r.logError(req, err, "Credit deduction failed")
		return r.failure(req, quote, MethodCredits, "credit ledger unavailable", false)
	}
	if !ok {
		// Balance moved under us since the quote; offer x402 instead.
		return r.failure(req, quote, MethodCredits, "insufficient credits", true)
	}

	result := &Result{
		Success:         true,
		Method:          MethodCredits,
		BaseCost:        quote.BaseCost,
		Cost:            quote.EstimatedCost,
		DiscountApplied: quote.DiscountPercent,
		Tier:            quote.Tier,
	}
	if account, err := r.credits.GetAccount(ctx, req.Address); err == nil && account != nil {
		result.RemainingCredits = &account.Balance
	}
	r.publishEvent(kafka.EventPaymentSucceeded, req, result)
	return result
}

// Requirements builds the x402 payment requirements for a request at the
// current discounted cost.
func (r *Router) Requirements(ctx context.Context, address string, service pricing.ServiceType, quantity int64, resource string) (*x402.PaymentRequirements, error) {
	quote, err := r.GetQuote(ctx, address, service, quantity)
	if err != nil {
		return nil, err
	}

	amount := strconv.FormatInt(quote.EstimatedCost, 10)
	description := fmt.Sprintf("%s x%d", service, quantity)
	requirements, _, err := r.builder.CreateRequirements(resource, amount, r.payTo, description)
	if err != nil {
		return nil, err
	}
	return requirements, nil
}

// ProcessX402Payment verifies and settles a signed micropayment. Cost is
// recomputed; the facilitator checks the payload against the requirements
// and executes the transfer on-chain. Usage is recorded only after a
// successful settlement, for bookkeeping.
func (r *Router) ProcessX402Payment(ctx context.Context, req Request, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*Result, error) {
	quote, err := r.GetQuote(ctx, req.Address, req.Service, req.Quantity)
	if err != nil {
		return nil, err
	}

	if !payload.Valid() {
		return r.failure(req, quote, MethodX402, "malformed payment payload", false), nil
	}
	if r.facilitator == nil {
		return r.failure(req, quote, MethodX402, "x402 settlement not configured", false), nil
	}

	// Cheap local pre-check before the facilitator round trip.
	if err := x402.VerifyLocalSignature(payload, r.builder.Network()); err != nil {
		return r.failure(req, quote, MethodX402, fmt.Sprintf("signature verification failed: %v", err), false), nil
	}

	verdict, err := r.facilitator.Verify(ctx, payload, requirements)
	if err != nil {
		r.logError(req, err, "Facilitator verify call failed")
		return r.failure(req, quote, MethodX402, "payment verification unavailable", false), nil
	}
	if !verdict.IsValid {
		reason := verdict.InvalidReason
		if reason == "" {
			reason = "payment rejected"
		}
		return r.failure(req, quote, MethodX402, reason, false), nil
	}

	settlement, err := r.facilitator.Settle(ctx, payload, requirements)
	if err != nil {
		r.logError(req, err, "Facilitator settle call failed")
		return r.failure(req, quote, MethodX402, "payment settlement unavailable", false), nil
	}
	if !settlement.Success {
		reason := settlement.ErrorReason
		if reason == "" {
			reason = "settlement failed"
		}
		return r.failure(req, quote, MethodX402, reason, false), nil
	}

	if _, err := r.usage.RecordUsage(ctx, req.Address, req.Service, req.Quantity); err != nil {
		// Bookkeeping only; the payment already settled on-chain.
		r.logError(req, err, "Failed to record x402 usage")
	}

	result := &Result{
		Success:         true,
		Method:          MethodX402,
		BaseCost:        quote.BaseCost,
		Cost:            quote.EstimatedCost,
		DiscountApplied: quote.DiscountPercent,
		Tier:            quote.Tier,
		TxHash:          settlement.Transaction,
	}
	r.publishSettlement(req, result, settlement.Network)
	return result, nil
}

func (r *Router) failure(req Request, quote *Quote, method Method, reason string, fallback bool) *Result {
	result := &Result{
		Success:           false,
		Method:            method,
		BaseCost:          quote.BaseCost,
		Cost:              quote.EstimatedCost,
		DiscountApplied:   quote.DiscountPercent,
		Tier:              quote.Tier,
		Error:             reason,
		FallbackAvailable: fallback,
	}
	r.publishEvent(kafka.EventPaymentFailed, req, result)
	return result
}

func (r *Router) publishEvent(eventType string, req Request, result *Result) {
	r.producer.PublishPaymentEvent(&kafka.PaymentEvent{
		EventType:     eventType,
		WalletAddress: req.Address,
		Service:       string(req.Service),
		Method:        string(result.Method),
		AmountUnits:   strconv.FormatInt(result.Cost, 10),
		Reason:        result.Error,
	})
}

func (r *Router) publishSettlement(req Request, result *Result, network string) {
	r.producer.PublishPaymentEvent(&kafka.PaymentEvent{
		EventType:     kafka.EventSettlementConfirmed,
		WalletAddress: req.Address,
		Service:       string(req.Service),
		Method:        string(MethodX402),
		AmountUnits:   strconv.FormatInt(result.Cost, 10),
		Network:       network,
		Transaction:   result.TxHash,
	})
	r.publishEvent(kafka.EventPaymentSucceeded, req, result)
}

func (r *Router) logError(req Request, err error, msg string) {
	if r.logger == nil {
		return
	}
	r.logger.WithFields(logging.Fields{
		"address":  req.Address,
		"service":  req.Service,
		"quantity": req.Quantity,
		"error":    err,
	}).Error(msg)
}
