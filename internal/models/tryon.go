package models

import (
	"time"

	"github.com/google/uuid"
)

// Try-on request lifecycle. Transitions are one-way: processing is the
// initial state, completed and failed are terminal.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type TryOnRequest struct {
	ID            uuid.UUID `json:"id"`
	ShopID        string    `json:"shop_id"`
	ProductID     string    `json:"product_id"`
	ProductTitle  string    `json:"product_title"`
	ProductImage  string    `json:"product_image"`
	CustomerImage string    `json:"customer_image"`
	Status        string    `json:"status"`
	ResultImage   *string   `json:"result_image,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsTerminal reports whether no further status transitions can occur.
func (r *TryOnRequest) IsTerminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}
