package model

// User is what the identity service tells us about an account.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Credentials represents the signup and login forms
type Credentials struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// Session maps a browser session to the signed-in user.
type Session struct {
	ID    string `json:"id"`
	UID   string `json:"uid"`
	Email string `json:"email"`
}
