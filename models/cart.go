package models

import "github.com/shopspring/decimal"

// SessionStorageKey names the anonymous session token in the visitor's local store.
const SessionStorageKey = "cretan_guru_session_id"

type LineStatus string

const (
	LinePending   LineStatus = "pending"
	LineCommitted LineStatus = "committed"
	LineFailed    LineStatus = "failed"
)

// ProductRef is the product shape accepted by the cart. Name, image and price are
// copied into the line at add time and not refreshed afterwards.
type ProductRef struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CartLine struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	ImageURL    string          `json:"image_url"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	RemoteRowID string          `json:"remote_row_id,omitempty"`
	Status      LineStatus      `json:"status"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type CartState struct {
	Lines         []CartLine      `json:"lines"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalQuantity int             `json:"total_quantity"`
}

// NewCartState copies lines and derives both totals from them.
func NewCartState(lines []CartLine) CartState {
	state := CartState{
		Lines:       make([]CartLine, len(lines)),
		TotalAmount: decimal.Zero,
	}
	copy(state.Lines, lines)
	for _, line := range lines {
		state.TotalAmount = state.TotalAmount.Add(line.Subtotal())
		state.TotalQuantity += line.Quantity
	}
	return state
}

// Line returns the line for productID, if present.
func (s CartState) Line(productID string) (CartLine, bool) {
	for _, line := range s.Lines {
		if line.ProductID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

type OwnerKind string

const (
	OwnerSession OwnerKind = "session"
	OwnerUser    OwnerKind = "user"
)

// OwnerKey scopes persisted cart rows to either a session or a user, never both.
type OwnerKey struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id"`
}

func SessionOwner(id string) OwnerKey { return OwnerKey{Kind: OwnerSession, ID: id} }

func UserOwner(id string) OwnerKey { return OwnerKey{Kind: OwnerUser, ID: id} }

func (k OwnerKey) IsUser() bool { return k.Kind == OwnerUser }

func (k OwnerKey) String() string { return string(k.Kind) + ":" + k.ID }
