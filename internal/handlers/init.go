package handlers

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thisyearnofear/VOISSS-sub003/internal/credits"
	"github.com/thisyearnofear/VOISSS-sub003/internal/payments"
	"github.com/thisyearnofear/VOISSS-sub003/internal/tier"
	"github.com/thisyearnofear/VOISSS-sub003/internal/usage"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/kafka"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/x402"
)

var (
	logger       logging.Logger
	metrics      *PaymasterMetrics
	router       *payments.Router
	creditStore  credits.Store
	usageTracker usage.Tracker
	tierResolver *tier.Resolver
	idempotency  IdempotencyStore
	producer     *kafka.Producer
	network      x402.NetworkConfig
)

// PaymasterMetrics holds all Prometheus metrics for Paymaster
type PaymasterMetrics struct {
	PaymentAttempts  *prometheus.CounterVec
	QuoteRequests    *prometheus.CounterVec
	FacilitatorCalls *prometheus.CounterVec
	CreditDeposits   *prometheus.CounterVec
	DBQueries        *prometheus.CounterVec
	DBDuration       *prometheus.HistogramVec
	DBConnections    *prometheus.GaugeVec
}

// Deps bundles everything the handlers need; built in main and passed to
// Init once before any route is registered.
type Deps struct {
	Logger      logging.Logger
	Metrics     *PaymasterMetrics
	Router      *payments.Router
	Credits     credits.Store
	Usage       usage.Tracker
	Tiers       *tier.Resolver
	Idempotency IdempotencyStore
	Producer    *kafka.Producer
	Network     x402.NetworkConfig
}

// Init initializes the handlers with their collaborators
func Init(deps Deps) {
	logger = deps.Logger
	metrics = deps.Metrics
	router = deps.Router
	creditStore = deps.Credits
	usageTracker = deps.Usage
	tierResolver = deps.Tiers
	idempotency = deps.Idempotency
	producer = deps.Producer
	network = deps.Network
}
