package types

import "strings"

// Address is the shipping address snapshot embedded into an order at creation
// time. It is copied by value so later edits to the address book never alter
// order history.
type Address struct {
	HouseNumber string `json:"house_number"`
	Street      string `json:"street"`
	City        string `json:"city"`
	Zipcode     string `json:"zipcode"`
	Country     string `json:"country"`
}

// IsZero reports whether no address fields are set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Oneline renders the snapshot for logs and documents.
func (a Address) Oneline() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.HouseNumber, a.Street, a.City, a.Zipcode, a.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
