package domain

type Role string

const (
	RoleCustomer Role = "user"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID      string           `json:"_id"`
	Name    string           `json:"name"`
	Email   string           `json:"email"`
	Phone   string           `json:"phone,omitempty"`
	Role    Role             `json:"role"`
	Address *ShippingAddress `json:"address,omitempty"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Phone    string           `json:"phone,omitempty"`
	Address  *ShippingAddress `json:"address,omitempty"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
