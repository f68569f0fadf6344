package models

// InvestigateRequest triggers an on-demand scan and, if the score reaches
// the trigger threshold, a full investigation of one instrument.
type InvestigateRequest struct {
	Symbol string `json:"symbol" query:"symbol" validate:"required,min=1,max=12"`
	Window int    `json:"window" query:"window" default:"30" validate:"gte=0,lte=500"`
	Force  bool   `json:"force" query:"force"` // investigate even below the trigger threshold
}

// SignalsRequest lists recent anomaly signals.
type SignalsRequest struct {
	Symbol string `json:"symbol" query:"symbol" validate:"omitempty,min=1,max=12"`
	Limit  int    `json:"limit" query:"limit" default:"50" validate:"gte=1,lte=500"`
}

// InvestigationsRequest lists recent investigations.
type InvestigationsRequest struct {
	Symbol string `json:"symbol" query:"symbol" validate:"omitempty,min=1,max=12"`
	Status string `json:"status" query:"status" validate:"omitempty,oneof=PENDING SOLVED PARTIALLY_EXPLAINED UNSOLVED"`
	Limit  int    `json:"limit" query:"limit" default:"50" validate:"gte=1,lte=500"`
}
