package cashregister

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type separates money in from money out.
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

// PaymentMethod is how a transaction was settled.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
)

func (t Type) valid() bool { return t == TypeIncome || t == TypeExpense }

func (m PaymentMethod) valid() bool {
	return m == PaymentCash || m == PaymentCreditCard || m == PaymentBankTransfer
}

// Transaction is a cash register entry.
type Transaction struct {
	ID              string        `json:"id"`
	AppointmentID   *string       `json:"appointmentId,omitempty"`
	ClientID        *string       `json:"clientId,omitempty"`
	Amount          float64       `json:"amount"`
	Type            Type          `json:"type"`
	PaymentMethod   PaymentMethod `json:"paymentMethod"`
	Description     string        `json:"description"`
	Category        *string       `json:"category,omitempty"`
	TransactionDate time.Time     `json:"transactionDate"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// ClientName is the client projection joined into listings.
type ClientName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// View is a transaction with its linked client, when any.
type View struct {
	Transaction
	Client *ClientName `json:"client,omitempty"`
}

// Amount accepts a JSON number or a numeric string.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// CreateRequest is the payload for recording a transaction.
type CreateRequest struct {
	Amount          Amount  `json:"amount"`
	Type            string  `json:"type"`
	PaymentMethod   string  `json:"paymentMethod"`
	Description     string  `json:"description"`
	Category        *string `json:"category,omitempty"`
	TransactionDate *string `json:"transactionDate,omitempty"`
	AppointmentID   *string `json:"appointmentId,omitempty"`
	ClientID        *string `json:"clientId,omitempty"`
}

// Filter scopes a listing. Empty fields do not filter.
type Filter struct {
	ClientID string
	Type     Type
	From     *time.Time
	To       *time.Time
}
