package identity

import "github.com/havenstay/authsession/session"

// Request bodies exchanged on POST /v1/auth/{method}.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type confirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type phoneRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code,omitempty"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type linkSocialRequest struct {
	Provider string `json:"provider"`
	AuthURL  string `json:"authUrl,omitempty"`
	State    string `json:"state,omitempty"`
}

type updateProfileRequest = session.ProfileUpdate

type errorResponse struct {
	Error string `json:"error"`
}
