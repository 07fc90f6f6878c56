package types

// Address is the shipping address snapshot frozen onto an order at
// checkout. Stored as jsonb; later edits to the buyer's address book do not
// touch existing orders.
type Address struct {
	Recipient  string  `json:"recipient"`
	Phone      string  `json:"phone,omitempty"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}
