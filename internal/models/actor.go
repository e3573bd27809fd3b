package models

// Claims represents JWT claims identifying the actor behind a request.
// Actors are recorded for audit only; they grant no permissions.
type Claims struct {
	Subject string `json:"sub"`
	Name    string `json:"name"`
	Exp     int64  `json:"exp"`
}

// Actor returns the audit label for the claims.
func (c *Claims) Actor() string {
	if c == nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	return c.Subject
}
