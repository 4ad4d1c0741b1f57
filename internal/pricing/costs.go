package pricing

import "fmt"

// ServiceType identifies a billable platform operation.
type ServiceType string

const (
	ServiceVoiceGeneration     ServiceType = "voice_generation"
	ServiceVoiceTransformation ServiceType = "voice_transformation"
	ServiceDubbing             ServiceType = "dubbing"
	ServiceTranscription       ServiceType = "transcription"
	ServiceStorage             ServiceType = "storage"
	ServiceVideoExport         ServiceType = "video_export"
	ServiceNFTMint             ServiceType = "nft_mint"
	ServiceWhiteLabelExport    ServiceType = "white_label_export"
)

// CostUnit describes how a service's cost scales with quantity.
type CostUnit string

const (
	UnitFixed        CostUnit = "fixed"
	UnitPerCharacter CostUnit = "per_character"
	UnitPerSecond    CostUnit = "per_second"
	UnitPerRequest   CostUnit = "per_request"
)

// ServiceCost is the static pricing descriptor for one service.
// All amounts are smallest currency units (6 decimals).
type ServiceCost struct {
	Service  ServiceType
	Unit     CostUnit
	BaseCost int64
	UnitCost int64 // per quantity unit; zero for fixed pricing
	MinCost  int64 // 0 = no lower bound
	MaxCost  int64 // 0 = no upper bound
}

// ServiceCosts is the pricing registry. Quantity semantics per unit:
// characters for per_character, seconds for per_second, calls for
// per_request.
var ServiceCosts = map[ServiceType]ServiceCost{
	ServiceVoiceGeneration: {
		Service:  ServiceVoiceGeneration,
		Unit:     UnitPerCharacter,
		BaseCost: 0,
		UnitCost: 1, // $0.000001 per character
		MinCost:  100,
		MaxCost:  100_000,
	},
	ServiceVoiceTransformation: {
		Service:  ServiceVoiceTransformation,
		Unit:     UnitPerSecond,
		BaseCost: 500,
		UnitCost: 50,
		MinCost:  500,
		MaxCost:  250_000,
	},
	ServiceDubbing: {
		Service:  ServiceDubbing,
		Unit:     UnitPerSecond,
		BaseCost: 1_000,
		UnitCost: 100,
		MinCost:  1_000,
		MaxCost:  500_000,
	},
	ServiceTranscription: {
		Service:  ServiceTranscription,
		Unit:     UnitPerSecond,
		BaseCost: 0,
		UnitCost: 10,
		MinCost:  100,
		MaxCost:  100_000,
	},
	ServiceStorage: {
		Service:  ServiceStorage,
		Unit:     UnitPerRequest,
		BaseCost: 0,
		UnitCost: 1_000,
		MinCost:  0,
		MaxCost:  0,
	},
	ServiceVideoExport: {
		Service:  ServiceVideoExport,
		Unit:     UnitFixed,
		BaseCost: 50_000,
	},
	ServiceNFTMint: {
		Service:  ServiceNFTMint,
		Unit:     UnitFixed,
		BaseCost: 100_000,
	},
	ServiceWhiteLabelExport: {
		Service:  ServiceWhiteLabelExport,
		Unit:     UnitFixed,
		BaseCost: 500_000,
	},
}

// ValidService reports whether s names a known billable service.
func ValidService(s ServiceType) bool {
	_, ok := ServiceCosts[s]
	return ok
}

// rawCost computes the pre-discount cost for a quantity, clamped to the
// descriptor's bounds.
func rawCost(desc ServiceCost, quantity int64) int64 {
	cost := desc.BaseCost
	if desc.Unit != UnitFixed {
		cost += desc.UnitCost * quantity
	}
	if desc.MinCost > 0 && cost < desc.MinCost {
		cost = desc.MinCost
	}
	if desc.MaxCost > 0 && cost > desc.MaxCost {
		cost = desc.MaxCost
	}
	return cost
}

// ErrUnknownService is returned for services missing from the registry. The
// cost reported alongside it is zero; callers must treat this as a
// configuration error, not free access.
var ErrUnknownService = fmt.Errorf("unknown service type")
