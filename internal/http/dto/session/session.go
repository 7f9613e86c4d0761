// Package session define los DTOs de los endpoints de sesión.
package session

type SignInRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// PublicUser son los campos del usuario que viajan al cliente.
type PublicUser struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}

type SignInResponse struct {
	User      PublicUser `json:"user"`
	Token     string     `json:"token"`
	ExpiresIn int64      `json:"expiresIn"` // segundos
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}
