package models

// Token is the login response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is a backend account
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt Time   `json:"created_at"`
}

// RegisterRequest is the account registration payload
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CarbonPrice is a carbon-market reference price (currency per tonne)
type CarbonPrice struct {
	ID        int64   `json:"id"`
	Price     float64 `json:"price"`
	Source    string  `json:"source"`
	Timestamp Time    `json:"timestamp"`
}
