package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neiios/dam-project-server/internal/api/middleware"
	"github.com/neiios/dam-project-server/internal/app/service"
	"github.com/neiios/dam-project-server/internal/common"
)

type UserHandler struct {
	authService *service.AuthService
	authn       func(http.Handler) http.Handler
}

func NewUserHandler(authService *service.AuthService, authn func(http.Handler) http.Handler) *UserHandler {
	return &UserHandler{authService: authService, authn: authn}
}

// RegisterRoutes mounts under /users.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(h.authn)
		r.Get("/profile", h.profile)
		r.Get("/verify", h.verify)
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	errs := fieldErrors{}
	errs.requiredText("name", req.Name)
	errs.email("email", req.Email)
	errs.password("password", req.Password)
	if errs.respond(w) {
		return
	}

	resp, err := h.authService.Register(r.Context(), service.RegisterRequest(req))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *UserHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	errs := fieldErrors{}
	errs.required("email", req.Email)
	errs.required("password", req.Password)
	if errs.respond(w) {
		return
	}

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Profile(r.Context(), middleware.PrincipalFromContext(r.Context()))
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

// verify only reaches here when the token was accepted.
func (h *UserHandler) verify(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Token is valid"})
}
