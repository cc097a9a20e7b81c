package models

// Requests for the agent HTTP endpoints. Kept in the domain so handlers and tests share them.

type CheckSymbolRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,min=2,max=32"`
}

type ActiveSignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,max=32"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type TrendlinesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,max=32"`
}

type SignalIDRequest struct {
	ID string `param:"id" validate:"required"`
}

type UpdateStatusRequest struct {
	ID     string `param:"id" validate:"required"`
	Status string `json:"status" validate:"required,oneof=TRIGGERED EXPIRED INVALIDATED"`
}

type ConfigureAgentRequest struct {
	Enabled         *bool    `json:"enabled"`
	Symbols         []string `json:"symbols" validate:"omitempty,max=200,dive,required,max=32"`
	CheckIntervalMs *int64   `json:"checkIntervalMs" validate:"omitempty,gte=1000"`
	MinConfidence   *float64 `json:"minConfidence" validate:"omitempty,gte=0,lte=100"`
	MinVolumeUSD    *float64 `json:"minVolumeUSD" validate:"omitempty,gte=0"`
}
