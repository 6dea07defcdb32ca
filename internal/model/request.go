package model

// BindRequest is the credential-verification payload for POST /auth.
type BindRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}
