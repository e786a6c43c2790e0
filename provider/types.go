package provider

import (
	"slices"
	"time"
)

// Feature is a capability of a phone number.
type Feature string

// Known number features.
const (
	FeatureVoice Feature = "voice"
	FeatureSMS   Feature = "sms"
	FeatureMMS   Feature = "mms"
	FeatureFax   Feature = "fax"
)

// AvailableNumber is a number offered by a provider. Prices are integer
// minor currency units. Values are never mutated after an adapter returns
// them.
type AvailableNumber struct {
	PhoneNumber string    `json:"phone_number"`
	CountryCode string    `json:"country_code"`
	AreaCode    string    `json:"area_code,omitempty"`
	City        string    `json:"city,omitempty"`
	Region      string    `json:"region,omitempty"`
	MonthlyRate int64     `json:"monthly_rate"`
	SetupFee    int64     `json:"setup_fee"`
	Currency    string    `json:"currency,omitempty"`
	Features    []Feature `json:"features,omitempty"`
	Provider    string    `json:"provider"`
}

// HasFeature reports whether the number supports f.
func (n AvailableNumber) HasFeature(f Feature) bool {
	return slices.Contains(n.Features, f)
}

// TotalCost is the monthly rate plus the one-off setup fee.
func (n AvailableNumber) TotalCost() int64 {
	return n.MonthlyRate + n.SetupFee
}

// SearchRequest is the provider-facing form of a number search.
type SearchRequest struct {
	CountryCode string    `json:"country_code"`
	AreaCode    string    `json:"area_code,omitempty"`
	City        string    `json:"city,omitempty"`
	Region      string    `json:"region,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	Features    []Feature `json:"features,omitempty"`
	Limit       int       `json:"limit"`
}

// SearchResponse is one provider's complete answer to a search.
type SearchResponse struct {
	Numbers    []AvailableNumber `json:"numbers"`
	TotalCount int               `json:"total_count"`
	SearchID   string            `json:"search_id"`

	// Provider is the ID of the provider that answered. Set by the Manager.
	Provider string `json:"provider"`
}

// CustomerInfo identifies the end customer a number is provisioned for.
type CustomerInfo struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

// BillingInfo carries the payment reference for a purchase.
type BillingInfo struct {
	AccountID       string `json:"account_id"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
	AutoRenew       bool   `json:"auto_renew"`
}

// ReserveRequest holds a number for a customer for Duration.
type ReserveRequest struct {
	Provider    string        `json:"provider"`
	PhoneNumber string        `json:"phone_number"`
	Duration    time.Duration `json:"duration"`
	Customer    CustomerInfo  `json:"customer"`
}

// Reservation is a provider-side hold on a number.
type Reservation struct {
	ReservationID string    `json:"reservation_id"`
	PhoneNumber   string    `json:"phone_number"`
	Provider      string    `json:"provider"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// PurchaseRequest converts a reservation into an owned number.
type PurchaseRequest struct {
	Provider      string       `json:"provider"`
	ReservationID string       `json:"reservation_id"`
	PhoneNumber   string       `json:"phone_number,omitempty"`
	Customer      CustomerInfo `json:"customer"`
	Billing       BillingInfo  `json:"billing"`
}

// PurchaseStatus is the provider-reported state of a purchase.
type PurchaseStatus string

// Purchase states.
const (
	PurchasePending PurchaseStatus = "pending"
	PurchaseActive  PurchaseStatus = "active"
	PurchaseFailed  PurchaseStatus = "failed"
)

// Purchase is the result of a purchase.
type Purchase struct {
	PurchaseID     string         `json:"purchase_id"`
	PhoneNumber    string         `json:"phone_number,omitempty"`
	Provider       string         `json:"provider"`
	Status         PurchaseStatus `json:"status"`
	ActivationDate *time.Time     `json:"activation_date,omitempty"`
}

// PortRequest asks a provider to port a number in from another carrier.
type PortRequest struct {
	Provider       string       `json:"provider"`
	PhoneNumber    string       `json:"phone_number"`
	CurrentCarrier string       `json:"current_carrier"`
	AccountNumber  string       `json:"account_number"`
	PIN            string       `json:"pin,omitempty"`
	AuthorizedName string       `json:"authorized_name"`
	Customer       CustomerInfo `json:"customer"`
	RequestedDate  *time.Time   `json:"requested_date,omitempty"`
}

// PortStatus is the provider-reported state of a port-in.
type PortStatus string

// Port states.
const (
	PortSubmitted PortStatus = "submitted"
	PortPending   PortStatus = "pending"
	PortCompleted PortStatus = "completed"
	PortRejected  PortStatus = "rejected"
)

// PortResult is the result of a port request.
type PortResult struct {
	PortingID           string     `json:"porting_id"`
	PhoneNumber         string     `json:"phone_number"`
	Provider            string     `json:"provider"`
	Status              PortStatus `json:"status"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	RejectionReason     string     `json:"rejection_reason,omitempty"`
}
