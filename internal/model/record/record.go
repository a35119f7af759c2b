package record

import (
	"time"

	"github.com/google/uuid"
)

// Order is the durable result of a completed order transaction. Created
// exactly once, immutable afterwards. JSON shape matches the per-record files
// under orders/.
type Order struct {
	ID        string    `json:"id"`
	Product   string    `json:"product"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
}

// Meeting is the durable result of a booked meeting. Time keeps the staff
// member's original availability string that matched, not the normalized form.
type Meeting struct {
	ID        string    `json:"id"`
	Staff     string    `json:"staff"`
	Time      string    `json:"time"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOrder builds an order record for the given product and quantity.
func NewOrder(product string, quantity int) Order {
	return Order{
		ID:        uuid.NewString(),
		Product:   product,
		Quantity:  quantity,
		CreatedAt: time.Now(),
	}
}

// NewMeeting builds a meeting record for the given staff member and slot.
func NewMeeting(staff, slot string) Meeting {
	return Meeting{
		ID:        uuid.NewString(),
		Staff:     staff,
		Time:      slot,
		CreatedAt: time.Now(),
	}
}
