package httpvendor

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aks-o/voxlink-sub005/provider"
)

// Vendor wire shapes.

type wireNumber struct {
	PhoneNumber string          `json:"phone_number"`
	CountryCode string          `json:"country_code"`
	AreaCode    string          `json:"area_code"`
	City        string          `json:"locality"`
	Region      string          `json:"region"`
	MonthlyRate decimal.Decimal `json:"monthly_rate"`
	SetupFee    decimal.Decimal `json:"setup_fee"`
	Currency    string          `json:"currency"`
	Features    []string        `json:"capabilities"`
}

type wireSearchResponse struct {
	Numbers    []wireNumber `json:"numbers"`
	TotalCount int          `json:"total_count"`
	SearchID   string       `json:"search_id"`
}

type wireAvailability struct {
	Available bool `json:"available"`
}

type wireCustomer struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Company   string `json:"company,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

func toWireCustomer(c provider.CustomerInfo) wireCustomer {
	return wireCustomer(c)
}

type wireReserveRequest struct {
	PhoneNumber     string       `json:"phone_number"`
	DurationMinutes int          `json:"duration_minutes"`
	Customer        wireCustomer `json:"customer"`
}

type wireReservation struct {
	ReservationID string    `json:"reservation_id"`
	PhoneNumber   string    `json:"phone_number"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type wirePurchaseRequest struct {
	ReservationID   string       `json:"reservation_id"`
	Customer        wireCustomer `json:"customer"`
	BillingAccount  string       `json:"billing_account_id"`
	PaymentMethodID string       `json:"payment_method_id,omitempty"`
	AutoRenew       bool         `json:"auto_renew"`
}

type wirePurchase struct {
	PurchaseID     string     `json:"purchase_id"`
	PhoneNumber    string     `json:"phone_number"`
	Status         string     `json:"status"`
	ActivationDate *time.Time `json:"activation_date"`
}

type wirePortRequest struct {
	PhoneNumber    string       `json:"phone_number"`
	CurrentCarrier string       `json:"current_carrier"`
	AccountNumber  string       `json:"account_number"`
	PIN            string       `json:"pin,omitempty"`
	AuthorizedName string       `json:"authorized_name"`
	Customer       wireCustomer `json:"customer"`
	RequestedDate  *time.Time   `json:"requested_date,omitempty"`
}

type wirePortResult struct {
	PortingID           string     `json:"porting_id"`
	Status              string     `json:"status"`
	EstimatedCompletion *time.Time `json:"estimated_completion"`
	RejectionReason     string     `json:"rejection_reason"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// minorDigits lists currencies whose minor unit is not 1/100.
var minorDigits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"BHD": 3,
	"KWD": 3,
}

// minorUnits converts a decimal amount to integer minor units of currency,
// rounding half away from zero.
func minorUnits(amount decimal.Decimal, currency string) int64 {
	digits, ok := minorDigits[strings.ToUpper(currency)]
	if !ok {
		digits = 2
	}
	return amount.Shift(digits).Round(0).IntPart()
}

func (n wireNumber) canonical(providerID, defaultCurrency string) provider.AvailableNumber {
	currency := strings.ToUpper(n.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	features := make([]provider.Feature, 0, len(n.Features))
	for _, f := range n.Features {
		features = append(features, provider.Feature(strings.ToLower(f)))
	}
	return provider.AvailableNumber{
		PhoneNumber: n.PhoneNumber,
		CountryCode: strings.ToUpper(n.CountryCode),
		AreaCode:    n.AreaCode,
		City:        n.City,
		Region:      n.Region,
		MonthlyRate: minorUnits(n.MonthlyRate, currency),
		SetupFee:    minorUnits(n.SetupFee, currency),
		Currency:    currency,
		Features:    features,
		Provider:    providerID,
	}
}

func purchaseStatus(s string) provider.PurchaseStatus {
	switch strings.ToLower(s) {
	case "active", "completed", "provisioned":
		return provider.PurchaseActive
	case "failed", "cancelled", "canceled":
		return provider.PurchaseFailed
	default:
		return provider.PurchasePending
	}
}

func portStatus(s string) provider.PortStatus {
	switch strings.ToLower(s) {
	case "completed", "ported":
		return provider.PortCompleted
	case "rejected", "failed":
		return provider.PortRejected
	case "pending", "in_progress", "foc_scheduled":
		return provider.PortPending
	default:
		return provider.PortSubmitted
	}
}
