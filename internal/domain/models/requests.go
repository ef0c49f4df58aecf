package models

// Requests for the admin/read HTTP endpoints. Defined in domain for
// consistency and reuse.

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d"`
}

type ConsensusRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d"`
}

type TrackSymbolRequest struct {
	Symbol  string `json:"symbol" validate:"required"`
	Venue   string `json:"venue"`
	Tracked bool   `json:"tracked"`
}

type SyncRequest struct {
	AssetClass string `json:"asset_class" validate:"omitempty,oneof=CRYPTO EQUITY FOREX COMMODITY"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"200" validate:"gte=1,lte=5000"`
	TF     string `query:"tf" json:"tf" default:"1h" validate:"oneof=1m 5m 15m 1h 4h 1d"`
}
