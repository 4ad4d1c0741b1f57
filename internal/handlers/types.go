package handlers

import (
	"github.com/thisyearnofear/VOISSS-sub003/internal/credits"
	"github.com/thisyearnofear/VOISSS-sub003/internal/payments"
	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
	"github.com/thisyearnofear/VOISSS-sub003/internal/tier"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/x402"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Money serializes a unit amount both raw and human-formatted.
type Money struct {
	Units     string `json:"units"`
	Formatted string `json:"formatted"`
}

func money(units int64) Money {
	return Money{
		Units:     formatInt(units),
		Formatted: pricing.FormatUnits(units),
	}
}

// QuoteResponse is the body of GET /quote.
type QuoteResponse struct {
	Address           string              `json:"address"`
	Service           pricing.ServiceType `json:"service"`
	Quantity          int64               `json:"quantity"`
	BaseCost          Money               `json:"base_cost"`
	EstimatedCost     Money               `json:"estimated_cost"`
	UnitCost          Money               `json:"unit_cost"`
	DiscountPercent   int                 `json:"discount_percent"`
	Tier              tier.Tier           `json:"tier"`
	TierCovers        bool                `json:"tier_covers"`
	CreditsAvailable  Money               `json:"credits_available"`
	AvailableMethods  []payments.Method   `json:"available_methods"`
	RecommendedMethod payments.Method     `json:"recommended_method"`
}

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	Address  string `json:"address"`
	Service  string `json:"service"`
	Quantity int64  `json:"quantity"`
}

// PaymentResponse is the body of a settlement attempt.
type PaymentResponse struct {
	Success           bool            `json:"success"`
	Method            payments.Method `json:"method"`
	BaseCost          Money           `json:"base_cost"`
	Cost              Money           `json:"cost"`
	DiscountApplied   int             `json:"discount_applied"`
	Tier              tier.Tier       `json:"tier,omitempty"`
	TxHash            string          `json:"tx_hash,omitempty"`
	RemainingCredits  *Money          `json:"remaining_credits,omitempty"`
	Error             string          `json:"error,omitempty"`
	FallbackAvailable bool            `json:"fallback_available,omitempty"`
}

// RequirementsResponse is the body of GET /requirements: everything a
// client needs to sign an x402 payment.
type RequirementsResponse struct {
	X402Version   int                       `json:"x402Version"`
	Requirements  *x402.PaymentRequirements `json:"requirements"`
	SigningData   *x402.TypedData           `json:"signing_data"`
	Authorization *x402.Authorization       `json:"authorization"`
}

// AccountResponse is the body of GET /accounts/:address.
type AccountResponse struct {
	Account *credits.Account `json:"account"`
	Balance Money            `json:"balance"`
	Tier    tier.Tier        `json:"tier"`
	Usage   []ServiceUsage   `json:"usage"`
}

// ServiceUsage reports one service's current-day consumption against its
// tier quota (limit 0 means the tier does not cover the service).
type ServiceUsage struct {
	Service pricing.ServiceType `json:"service"`
	Used    int64               `json:"used"`
	Limit   int64               `json:"limit"`
}

// DepositRequest is the body of POST /accounts/:address/deposit. Amount
// accepts a decimal or currency string ("5", "$5.00").
type DepositRequest struct {
	Amount string `json:"amount"`
}

// DepositResponse confirms a credit top-up.
type DepositResponse struct {
	Address   string `json:"address"`
	Deposited Money  `json:"deposited"`
	Balance   Money  `json:"balance"`
}

// UsageResponse is the body of GET /usage/:address.
type UsageResponse struct {
	Address string         `json:"address"`
	Date    string         `json:"date"`
	Tier    tier.Tier      `json:"tier"`
	Usage   []ServiceUsage `json:"usage"`
}
