package http

import (
	"time"

	"datainsight/internal/core"
)

type clientView struct {
	ID           int64     `json:"id"`
	LastName     string    `json:"lastName"`
	FirstName    string    `json:"firstName"`
	FullName     string    `json:"fullName"`
	Country      string    `json:"country"`
	Age          int       `json:"age"`
	Profession   string    `json:"profession"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registeredAt"`
	Status       string    `json:"status"`
}

type transactionView struct {
	ID          int64     `json:"id"`
	ClientID    int64     `json:"clientId"`
	Date        string    `json:"date"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	PaymentMode string    `json:"paymentMode"`
	Reference   string    `json:"reference,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toClientView(c core.Client) clientView {
	return clientView{
		ID:           c.ID,
		LastName:     c.LastName,
		FirstName:    c.FirstName,
		FullName:     c.FullName(),
		Country:      c.Country,
		Age:          c.Age,
		Profession:   c.Profession,
		Email:        c.Email,
		RegisteredAt: c.RegisteredAt,
		Status:       string(c.Status),
	}
}

func toTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:          t.ID,
		ClientID:    t.ClientID,
		Date:        t.Date.Format(core.DateLayout),
		Amount:      t.Amount,
		Category:    t.Category,
		Description: t.Description,
		PaymentMode: t.PaymentMode,
		Reference:   t.Reference,
		CreatedAt:   t.CreatedAt,
	}
}

func mapViews[T, V any](items []T, fn func(T) V) []V {
	out := make([]V, len(items))
	for i, it := range items {
		out[i] = fn(it)
	}
	return out
}
