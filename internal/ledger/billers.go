package ledger

// Biller is a payee offered to customers. PayBill accepts any name; the
// catalogue only drives what front-ends suggest.
type Biller struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Billers returns the default payee catalogue.
func Billers() []Biller {
	return []Biller{
		{Name: "Electricity Corp", Category: "Power"},
		{Name: "Global Internet", Category: "Internet"},
		{Name: "City Water Dept", Category: "Water"},
		{Name: "Mobile Services", Category: "Phone"},
	}
}
