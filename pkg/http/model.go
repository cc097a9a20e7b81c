package http

// APIResponse is the envelope every endpoint answers with. Exactly one of
// Data and Errors is set.
type APIResponse struct {
	Status    int         `json:"status" example:"200"`
	Message   string      `json:"message" example:"OK"`
	Data      interface{} `json:"data,omitempty"`
	Errors    interface{} `json:"errors,omitempty"`
	Timestamp int64       `json:"timestamp" example:"1700000000000"`
}

// ValidationError is one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"symbol"`
	Message string                 `json:"message,omitempty" example:"symbol is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ListDataResponse pages a collection: Rows holds Count items out of Total matches.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Count int         `json:"count"`
	Total int64       `json:"total"`
}
