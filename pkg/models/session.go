package models

// SessionContext identifies who drives an editor session. Hosts build it
// once per request or session and pass it in explicitly.
type SessionContext struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Anonymous reports whether no user was attached to the session.
func (s SessionContext) Anonymous() bool {
	return s.UserID == ""
}
