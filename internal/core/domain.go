package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusActive   ClientStatus = "active"
	StatusInactive ClientStatus = "inactive"
	StatusPremium  ClientStatus = "premium"

	// DefaultPaymentMode is used when a transaction does not name one.
	DefaultPaymentMode = "card"

	// EmailDomain is appended to every derived client email.
	EmailDomain = "@datainsight.com"
)

type (
	ClientStatus string

	Client struct {
		ID           int64 // assigned by the record store
		LastName     string
		FirstName    string
		Country      string
		Age          int
		Profession   string
		Email        string
		RegisteredAt time.Time
		Status       ClientStatus
	}

	Transaction struct {
		ID          int64
		Date        time.Time // civil date, UTC midnight
		Amount      float64
		Category    string
		Description string
		PaymentMode string
		Reference   string
		CreatedAt   time.Time
		ClientID    int64 // owning client
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMissingOwner     = errors.New("transaction has no owning client")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyLastName    = errors.New("empty last name")
	ErrInvalidStatus    = errors.New("invalid client status")
	ErrEmptyCountry     = errors.New("empty country")
	ErrInvalidDate      = errors.New("invalid date")
	ErrClientNotFound   = errors.New("client not found")
	ErrRunInProgress    = errors.New("a generation run is already in progress")
	ErrUnsupportedField = errors.New("unsupported grouping field")
)

// NewClient builds a client registered at now with a derived email and the default status.
func NewClient(lastName, firstName, country string, age int, profession string, now time.Time) Client {
	return Client{
		LastName:     lastName,
		FirstName:    firstName,
		Country:      country,
		Age:          age,
		Profession:   profession,
		Email:        EmailFor(firstName, lastName),
		RegisteredAt: now,
		Status:       StatusActive,
	}
}

// EmailFor derives the client email from the name. It is a pure function of its inputs.
func EmailFor(firstName, lastName string) string {
	base := lastName
	if strings.TrimSpace(firstName) != "" {
		base = firstName + "." + lastName
	}
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || r == '.' {
			return r
		}
		return -1
	}, base)
	return base + EmailDomain
}

// FullName returns "First Last", or just the last name.
func (c Client) FullName() string {
	if strings.TrimSpace(c.FirstName) == "" {
		return c.LastName
	}
	return c.FirstName + " " + c.LastName
}

// Normalize fills the defaults a client must carry before persistence.
func (c Client) Normalize() Client {
	if c.Status == "" {
		c.Status = StatusActive
	}
	if c.Email == "" {
		c.Email = EmailFor(c.FirstName, c.LastName)
	}
	return c
}

func (s ClientStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPremium:
		return true
	default:
		return false
	}
}

// Validate checks the fields a store needs. Age is a generation policy, not an invariant.
func (c Client) Validate() error {
	if strings.TrimSpace(c.LastName) == "" {
		return ErrEmptyLastName
	}
	if strings.TrimSpace(c.Country) == "" {
		return ErrEmptyCountry
	}
	if c.Status != "" && !c.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Normalize fills the payment mode default and truncates the date to a civil day.
func (t Transaction) Normalize() Transaction {
	if t.PaymentMode == "" {
		t.PaymentMode = DefaultPaymentMode
	}
	if !t.Date.IsZero() {
		t.Date = CivilDate(t.Date)
	}
	return t
}

// Validate checks the transaction invariants. Category and payment mode are open-world.
func (t Transaction) Validate() error {
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if t.ClientID <= 0 {
		return ErrMissingOwner
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// CivilDate truncates t to midnight UTC of its calendar day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the storage and wire format of transaction dates.
const DateLayout = "2006-01-02"
