package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxRequestBytes = 64 << 10

type handler struct {
	svc    Service
	logger *slog.Logger
}

// NewHandler exposes svc as the HTTP identity API consumed by [Client].
// Every method is served at POST /v1/auth/{method}.
func NewHandler(svc Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/register", h.register)
		r.Post("/logout", h.simple(MethodLogout, func(ctx context.Context, _ *http.Request) error {
			return svc.Logout(ctx)
		}))
		r.Post("/request-password-reset", h.simple(MethodRequestPasswordReset, func(ctx context.Context, req *http.Request) error {
			var body emailRequest
			if err := decodeBody(req, &body); err != nil {
				return err
			}
			return svc.RequestPasswordReset(ctx, body.Email)
		}))
		r.Post("/confirm-password-reset", h.simple(MethodConfirmPasswordReset, func(ctx context.Context, req *http.Request) error {
			var body confirmResetRequest
			if err := decodeBody(req, &body); err != nil {
				return err
			}
			return svc.ConfirmPasswordReset(ctx, body.Token, body.NewPassword)
		}))
		r.Post("/verify-email", h.simple(MethodVerifyEmail, func(ctx context.Context, req *http.Request) error {
			var body tokenRequest
			if err := decodeBody(req, &body); err != nil {
				return err
			}
			return svc.VerifyEmail(ctx, body.Token)
		}))
		r.Post("/verify-phone", h.simple(MethodVerifyPhone, func(ctx context.Context, req *http.Request) error {
			var body phoneRequest
			if err := decodeBody(req, &body); err != nil {
				return err
			}
			return svc.VerifyPhone(ctx, body.Phone, body.Code)
		}))
		r.Post("/send-verification-code", h.simple(MethodSendVerificationCode, func(ctx context.Context, req *http.Request) error {
			var body phoneRequest
			if err := decodeBody(req, &body); err != nil {
				return err
			}
			return svc.SendVerificationCode(ctx, body.Phone)
		}))
		r.Post("/link-social", h.simple(MethodLinkSocial, func(ctx context.Context, req *http.Request) error {
			var body linkSocialRequest
			if err := decodeBody(req, &body); err != nil {
				return err
			}
			return svc.LinkSocial(ctx, body.Provider)
		}))
		r.Post("/update-profile", h.simple(MethodUpdateProfile, func(ctx context.Context, req *http.Request) error {
			var body updateProfileRequest
			if err := decodeBody(req, &body); err != nil {
				return err
			}
			return svc.UpdateProfile(ctx, body)
		}))
		r.Post("/enable-two-factor", h.simple(MethodEnableTwoFactor, func(ctx context.Context, _ *http.Request) error {
			return svc.EnableTwoFactor(ctx)
		}))
		r.Post("/disable-two-factor", h.simple(MethodDisableTwoFactor, func(ctx context.Context, _ *http.Request) error {
			return svc.DisableTwoFactor(ctx)
		}))
		r.Post("/verify-two-factor", h.simple(MethodVerifyTwoFactor, func(ctx context.Context, req *http.Request) error {
			var body codeRequest
			if err := decodeBody(req, &body); err != nil {
				return err
			}
			return svc.VerifyTwoFactor(ctx, body.Code)
		}))
	})

	return r
}

type badRequestError struct {
	err error
}

func (e badRequestError) Error() string { return "bad request: " + e.err.Error() }

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return badRequestError{err: err}
	}
	return nil
}

// requestContext carries the caller's bearer token into the service call.
func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		ctx = WithAccessToken(ctx, strings.TrimPrefix(auth, "Bearer "))
	}
	return ctx
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeBody(r, &body); err != nil {
		h.fail(w, r, MethodLogin, err)
		return
	}
	sess, err := h.svc.Login(requestContext(r), body.Email, body.Password)
	if err != nil {
		h.fail(w, r, MethodLogin, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := decodeBody(r, &body); err != nil {
		h.fail(w, r, MethodRegister, err)
		return
	}
	sess, err := h.svc.Register(requestContext(r), body.Email, body.Password, body.Name)
	if err != nil {
		h.fail(w, r, MethodRegister, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *handler) simple(method Method, call func(context.Context, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := call(requestContext(r), r); err != nil {
			h.fail(w, r, method, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, method Method, err error) {
	status := http.StatusInternalServerError
	message := "operation failed"

	var bad badRequestError
	switch {
	case errors.As(err, &bad):
		status, message = http.StatusBadRequest, bad.Error()
	case KindOf(err) == KindInvalidCredentials:
		status, message = http.StatusUnauthorized, "invalid credentials"
	}

	h.logger.Info("identity call failed",
		"method", string(method),
		"status", status,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort write; the client may have gone away
	json.NewEncoder(w).Encode(v)
}
