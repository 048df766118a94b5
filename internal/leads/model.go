package leads

import (
	"time"
)

// StatusNew is the lifecycle value every lead starts with.
const StatusNew = "new"

// Priority levels accepted on intake.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Schema bounds, in Unicode code points unless noted.
const (
	MaxContactNameLen  = 100
	MaxEmailLen        = 255
	MaxPhoneLen        = 20
	MaxBusinessNameLen = 200
	MaxInterests       = 10
	MaxInterestLen     = 100
	MaxPainPointsLen   = 2000
	MaxSourceLen       = 50
	MinScore           = 0
	MaxScore           = 100
)

// Lead represents one prospective customer submission.
type Lead struct {
	ID                 string    `json:"id"`
	SessionID          string    `json:"session_id"`
	ContactName        string    `json:"contact_name"`
	Email              string    `json:"email,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	BusinessName       string    `json:"business_name,omitempty"`
	Interests          []string  `json:"interests"`
	PainPoints         string    `json:"pain_points,omitempty"`
	Source             string    `json:"source"`
	Priority           string    `json:"priority"`
	QualificationScore *float64  `json:"qualification_score,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
}

// CreateLeadRequest is a validated, normalized intake submission.
type CreateLeadRequest struct {
	ContactName        string
	Email              string
	Phone              string
	BusinessName       string
	Interests          []string
	PainPoints         string
	Source             string
	Priority           string
	QualificationScore *float64
}

// NewLead builds the record to persist for a validated request.
func (r *CreateLeadRequest) NewLead(sessionID string) *Lead {
	interests := r.Interests
	if interests == nil {
		interests = []string{}
	}
	return &Lead{
		SessionID:          sessionID,
		ContactName:        r.ContactName,
		Email:              r.Email,
		Phone:              r.Phone,
		BusinessName:       r.BusinessName,
		Interests:          interests,
		PainPoints:         r.PainPoints,
		Source:             r.Source,
		Priority:           r.Priority,
		QualificationScore: r.QualificationScore,
		Status:             StatusNew,
	}
}

// CreateLeadResponse is returned to the browser on success.
type CreateLeadResponse struct {
	Success   bool   `json:"success"`
	LeadID    string `json:"lead_id"`
	SessionID string `json:"session_id"`
}

// ValidationErrorResponse is returned with HTTP 400.
type ValidationErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details"`
}

// Config carries the intake tunables that are not part of the rate limiter.
type Config struct {
	DefaultSource   string
	DefaultPriority string
}

// DefaultConfig returns the stock intake defaults.
func DefaultConfig() Config {
	return Config{DefaultSource: "lead_form", DefaultPriority: PriorityMedium}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.DefaultSource == "" || runeLen(c.DefaultSource) > MaxSourceLen {
		c.DefaultSource = def.DefaultSource
	}
	if !validPriority(c.DefaultPriority) {
		c.DefaultPriority = def.DefaultPriority
	}
	return c
}

func validPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
