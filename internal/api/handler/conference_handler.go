package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neiios/dam-project-server/internal/api/middleware"
	"github.com/neiios/dam-project-server/internal/app/service"
	"github.com/neiios/dam-project-server/internal/common"
)

type ConferenceHandler struct {
	conferenceService *service.ConferenceService
	authn             func(http.Handler) http.Handler
}

func NewConferenceHandler(cs *service.ConferenceService, authn func(http.Handler) http.Handler) *ConferenceHandler {
	return &ConferenceHandler{conferenceService: cs, authn: authn}
}

// RegisterRoutes mounts under /conferences.
func (h *ConferenceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listConferences)
	r.Get("/{conferenceId}", h.getConference)
	r.Get("/{conferenceId}/location", h.getLocation)

	r.Group(func(r chi.Router) {
		r.Use(h.authn)
		r.Post("/", h.createConference)
		r.Patch("/{conferenceId}", h.updateConference)
		r.Delete("/{conferenceId}", h.deleteConference)
	})
}

type conferenceRequest struct {
	Name        string   `json:"name"`
	Location    *string  `json:"location"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Description string   `json:"description"`
	ImageURL    *string  `json:"image_url"`
}

func (req conferenceRequest) toInput(errs fieldErrors) service.ConferenceInput {
	errs.requiredText("name", req.Name)
	errs.optionalText("location", req.Location)
	errs.required("description", req.Description)
	return service.ConferenceInput{
		Name:        req.Name,
		Location:    req.Location,
		Latitude:    errs.coordinate("latitude", req.Latitude, 90),
		Longitude:   errs.coordinate("longitude", req.Longitude, 180),
		StartDate:   errs.timestamp("start_date", req.StartDate),
		EndDate:     errs.timestamp("end_date", req.EndDate),
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
}

func (h *ConferenceHandler) listConferences(w http.ResponseWriter, r *http.Request) {
	page, errs := ParsePagination(r.URL.Query())
	if errs.respond(w) {
		return
	}
	conferences, err := h.conferenceService.ListConferences(r.Context(), page.Page, page.PageSize)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, conferences)
}

func (h *ConferenceHandler) getConference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "conferenceId")
	if !ok {
		return
	}
	conf, err := h.conferenceService.GetConference(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, conf)
}

func (h *ConferenceHandler) getLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "conferenceId")
	if !ok {
		return
	}
	loc, err := h.conferenceService.GetConferenceLocation(r.Context(), id)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, loc)
}

func (h *ConferenceHandler) createConference(w http.ResponseWriter, r *http.Request) {
	var req conferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	errs := fieldErrors{}
	in := req.toInput(errs)
	if errs.respond(w) {
		return
	}

	conf, err := h.conferenceService.CreateConference(r.Context(), middleware.PrincipalFromContext(r.Context()), in)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, conf)
}

func (h *ConferenceHandler) updateConference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "conferenceId")
	if !ok {
		return
	}
	var req conferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	errs := fieldErrors{}
	in := req.toInput(errs)
	if errs.respond(w) {
		return
	}

	conf, err := h.conferenceService.UpdateConference(r.Context(), middleware.PrincipalFromContext(r.Context()), id, in)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, conf)
}

func (h *ConferenceHandler) deleteConference(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "conferenceId")
	if !ok {
		return
	}
	if err := h.conferenceService.DeleteConference(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondNoContent(w)
}
