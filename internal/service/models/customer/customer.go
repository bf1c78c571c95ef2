package customer

// Customer represents a buyer in the system. Inactive customers are kept for
// history but are invisible to every lookup.
type Customer struct {
	ID     int64  `json:"id"`
	Name   string `json:"nombre"`
	Email  string `json:"email"`
	Active bool   `json:"activo"`
}

// View is the customer projection returned to callers.
type View struct {
	Name  string `json:"nombre"`
	Email string `json:"email"`
}

// ToView converts a Customer to its projection.
func (c *Customer) ToView() View {
	return View{
		Name:  c.Name,
		Email: c.Email,
	}
}
