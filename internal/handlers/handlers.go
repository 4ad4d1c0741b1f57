package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/thisyearnofear/VOISSS-sub003/internal/payments"
	"github.com/thisyearnofear/VOISSS-sub003/internal/pricing"
	"github.com/thisyearnofear/VOISSS-sub003/internal/tier"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/auth"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/kafka"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/logging"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/middleware"
	"github.com/thisyearnofear/VOISSS-sub003/pkg/x402"
)

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// parseCallParams validates the address/service/quantity triple shared by
// the quote, requirements, and process endpoints.
func parseCallParams(address, service string, quantity int64) (string, pricing.ServiceType, error) {
	normalized, err := auth.NormalizeEthAddress(address)
	if err != nil {
		return "", "", err
	}
	svc := pricing.ServiceType(service)
	if !pricing.ValidService(svc) {
		return "", "", pricing.ErrUnknownService
	}
	if quantity <= 0 {
		return "", "", errQuantity
	}
	return normalized, svc, nil
}

var errQuantity = &paramError{"quantity must be a positive integer"}

type paramError struct{ msg string }

func (e *paramError) Error() string { return e.msg }

// GetQuote returns the current cost and viable payment methods for a call.
// GET /quote?address=0x..&service=voice_generation&quantity=1000
func GetQuote(c middleware.Context) {
	quantity, _ := strconv.ParseInt(c.Query("quantity"), 10, 64)
	address, service, err := parseCallParams(c.Query("address"), c.Query("service"), quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	quote, err := router.GetQuote(c.Request.Context(), address, service, quantity)
	if err != nil {
		logger.WithFields(logging.Fields{
			"address": address,
			"service": service,
			"error":   err,
		}).Error("Quote computation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to compute quote"})
		return
	}

	if metrics != nil {
		metrics.QuoteRequests.WithLabelValues(string(service), string(quote.RecommendedMethod)).Inc()
	}

	c.JSON(http.StatusOK, quoteResponse(quote))
}

func quoteResponse(q *payments.Quote) QuoteResponse {
	return QuoteResponse{
		Address:           q.Address,
		Service:           q.Service,
		Quantity:          q.Quantity,
		BaseCost:          money(q.BaseCost),
		EstimatedCost:     money(q.EstimatedCost),
		UnitCost:          money(q.UnitCost),
		DiscountPercent:   q.DiscountPercent,
		Tier:              q.Tier,
		TierCovers:        q.TierCovers,
		CreditsAvailable:  money(q.CreditsAvailable),
		AvailableMethods:  q.AvailableMethods,
		RecommendedMethod: q.RecommendedMethod,
	}
}

// GetRequirements returns x402 payment requirements plus the EIP-712
// envelope the caller's wallet signs.
// GET /requirements?address=0x..&service=dubbing&quantity=30
func GetRequirements(c middleware.Context) {
	quantity, _ := strconv.ParseInt(c.Query("quantity"), 10, 64)
	address, service, err := parseCallParams(c.Query("address"), c.Query("service"), quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	requirements, err := router.Requirements(c.Request.Context(), address, service, quantity, resourceURL(c, service))
	if err != nil {
		logger.WithError(err).Error("Failed to build payment requirements")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build payment requirements"})
		return
	}

	typed, authz, err := x402.SigningData(requirements, network, address, 0)
	if err != nil {
		logger.WithError(err).Error("Failed to build signing data")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to build signing data"})
		return
	}

	c.JSON(http.StatusOK, RequirementsResponse{
		X402Version:   x402.ProtocolVersion,
		Requirements:  requirements,
		SigningData:   typed,
		Authorization: authz,
	})
}

// ProcessPayment settles one service call.
// POST /process with {address, service, quantity}; optional X-PAYMENT and
// Idempotency-Key headers.
func ProcessPayment(c middleware.Context) {
	var body ProcessRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	address, service, err := parseCallParams(body.Address, body.Service, body.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	idemKey := c.GetHeader(IdempotencyKeyHeader)
	if idemKey != "" && idempotency != nil {
		if record, err := idempotency.Lookup(c.Request.Context(), idemKey); err == nil && record != nil {
			// Replay only for the caller that stored the record; the same key
			// from a different address or service must not leak its response.
			if record.Address != address || record.Service != string(service) {
				c.JSON(http.StatusConflict, ErrorResponse{Error: "Idempotency-Key already used by a different request"})
				return
			}
			c.Header(IdempotentReplayHeader, "true")
			c.Data(record.StatusCode, "application/json", record.Body)
			return
		}
	}

	req := payments.Request{
		Address:  address,
		Service:  service,
		Quantity: body.Quantity,
		Resource: resourceURL(c, service),
	}

	header := x402.HeaderFromRequest(c.Request)
	var result *payments.Result
	if header != "" {
		result, err = processWithPayload(c, req, header)
	} else {
		result, err = router.Process(c.Request.Context(), req)
	}
	if err != nil {
		logger.WithFields(logging.Fields{
			"address": address,
			"service": service,
			"error":   err,
		}).Error("Payment processing failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Payment processing failed"})
		return
	}
	if result == nil {
		return // response already written (bad payload)
	}

	if metrics != nil {
		status := "failed"
		if result.Success {
			status = "succeeded"
		}
		metrics.PaymentAttempts.WithLabelValues(string(result.Method), status).Inc()
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusPaymentRequired
		if result.FallbackAvailable {
			attachRequirements(c, req)
		}
	}

	response := paymentResponse(result)
	if idemKey != "" && idempotency != nil && result.Success {
		if encoded, err := json.Marshal(response); err == nil {
			storeErr := idempotency.Store(c.Request.Context(), &IdempotencyRecord{
				Key:        idemKey,
				Address:    address,
				Service:    string(service),
				StatusCode: status,
				Body:       encoded,
				CreatedAt:  time.Now().UTC(),
			})
			if storeErr != nil {
				logger.WithError(storeErr).Warn("Failed to store idempotency record")
			}
		}
	}

	c.JSON(status, response)
}

// processWithPayload handles a request carrying a signed X-PAYMENT header.
// A nil, nil return means the response was already written.
func processWithPayload(c middleware.Context, req payments.Request, header string) (*payments.Result, error) {
	payload, err := x402.ParsePaymentHeader(header)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Malformed payment header"})
		return nil, nil
	}

	requirements, err := router.Requirements(c.Request.Context(), req.Address, req.Service, req.Quantity, req.Resource)
	if err != nil {
		return nil, err
	}

	if metrics != nil {
		metrics.FacilitatorCalls.WithLabelValues("settle").Inc()
	}
	return router.ProcessX402Payment(c.Request.Context(), req, payload, requirements)
}

// attachRequirements puts the x402 challenge on a 402 response.
func attachRequirements(c middleware.Context, req payments.Request) {
	requirements, err := router.Requirements(c.Request.Context(), req.Address, req.Service, req.Quantity, req.Resource)
	if err != nil {
		logger.WithError(err).Warn("Failed to build 402 challenge requirements")
		return
	}
	encoded, err := json.Marshal(requirements)
	if err != nil {
		return
	}
	c.Header(x402.PaymentRequiredHeader, string(encoded))
}

func paymentResponse(r *payments.Result) PaymentResponse {
	resp := PaymentResponse{
		Success:           r.Success,
		Method:            r.Method,
		BaseCost:          money(r.BaseCost),
		Cost:              money(r.Cost),
		DiscountApplied:   r.DiscountApplied,
		Tier:              r.Tier,
		TxHash:            r.TxHash,
		Error:             r.Error,
		FallbackAvailable: r.FallbackAvailable,
	}
	if r.RemainingCredits != nil {
		m := money(*r.RemainingCredits)
		resp.RemainingCredits = &m
	}
	return resp
}

// GetAccount returns the credit account, tier, and current-day usage view.
// GET /accounts/:address
func GetAccount(c middleware.Context) {
	address, err := auth.NormalizeEthAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	account, err := creditStore.GetAccount(c.Request.Context(), address)
	if err != nil {
		logger.WithError(err).Error("Failed to read credit account")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to read account"})
		return
	}

	t := tier.TierNone
	if tierResolver != nil {
		t = tierResolver.Resolve(c.Request.Context(), address)
	}

	var balance int64
	if account != nil {
		balance = account.Balance
	}

	c.JSON(http.StatusOK, AccountResponse{
		Account: account,
		Balance: money(balance),
		Tier:    t,
		Usage:   usageView(c, address, t),
	})
}

// Deposit tops up an address's credit balance. Service-to-service only.
// POST /accounts/:address/deposit with {amount}
func Deposit(c middleware.Context) {
	address, err := auth.NormalizeEthAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	var body DepositRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}
	amount, err := pricing.ParseUnits(body.Amount)
	if err != nil || amount <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Amount must be a positive decimal string"})
		return
	}

	if err := creditStore.AddCredits(c.Request.Context(), address, amount); err != nil {
		logger.WithFields(logging.Fields{
			"address": address,
			"amount":  amount,
			"error":   err,
		}).Error("Credit deposit failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Deposit failed"})
		return
	}

	if metrics != nil {
		metrics.CreditDeposits.WithLabelValues("succeeded").Inc()
	}
	producer.PublishPaymentEvent(&kafka.PaymentEvent{
		EventType:     kafka.EventTopupCredited,
		WalletAddress: address,
		AmountUnits:   formatInt(amount),
	})

	account, err := creditStore.GetAccount(c.Request.Context(), address)
	if err != nil || account == nil {
		c.JSON(http.StatusOK, DepositResponse{Address: address, Deposited: money(amount), Balance: money(amount)})
		return
	}
	c.JSON(http.StatusOK, DepositResponse{
		Address:   address,
		Deposited: money(amount),
		Balance:   money(account.Balance),
	})
}

// GetUsage returns current-day counters for every service.
// GET /usage/:address
func GetUsage(c middleware.Context) {
	address, err := auth.NormalizeEthAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	t := tier.TierNone
	if tierResolver != nil {
		t = tierResolver.Resolve(c.Request.Context(), address)
	}

	c.JSON(http.StatusOK, UsageResponse{
		Address: address,
		Date:    time.Now().UTC().Format("2006-01-02"),
		Tier:    t,
		Usage:   usageView(c, address, t),
	})
}

// usageView collects per-service counters alongside the tier's limits.
func usageView(c middleware.Context, address string, t tier.Tier) []ServiceUsage {
	view := make([]ServiceUsage, 0, len(pricing.ServiceCosts))
	for _, service := range orderedServices() {
		used, err := usageTracker.GetUsage(c.Request.Context(), address, service)
		if err != nil {
			logger.WithFields(logging.Fields{
				"address": address,
				"service": service,
				"error":   err,
			}).Warn("Usage read failed")
			continue
		}
		view = append(view, ServiceUsage{
			Service: service,
			Used:    used,
			Limit:   tier.DailyLimit(t, service),
		})
	}
	return view
}

func orderedServices() []pricing.ServiceType {
	return []pricing.ServiceType{
		pricing.ServiceVoiceGeneration,
		pricing.ServiceVoiceTransformation,
		pricing.ServiceDubbing,
		pricing.ServiceTranscription,
		pricing.ServiceStorage,
		pricing.ServiceVideoExport,
		pricing.ServiceNFTMint,
		pricing.ServiceWhiteLabelExport,
	}
}

// resourceURL reconstructs the resource identifier payment requirements
// point at.
func resourceURL(c middleware.Context, service pricing.ServiceType) string {
	scheme := "https"
	if c.Request.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.Path + "?service=" + string(service)
}
