package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neiios/dam-project-server/internal/api/middleware"
	"github.com/neiios/dam-project-server/internal/app/service"
	"github.com/neiios/dam-project-server/internal/common"
)

type TrackHandler struct {
	trackService   *service.TrackService
	articleService *service.ArticleService
	authn          func(http.Handler) http.Handler
}

func NewTrackHandler(ts *service.TrackService, as *service.ArticleService, authn func(http.Handler) http.Handler) *TrackHandler {
	return &TrackHandler{trackService: ts, articleService: as, authn: authn}
}

// RegisterRoutes mounts under /conferences/{conferenceId}/tracks.
func (h *TrackHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listTracks)
	r.Get("/{trackId}", h.getTrack)
	r.Get("/{trackId}/schedule", h.getSchedule)
	r.Get("/{trackId}/articles", h.listTrackArticles)

	r.Group(func(r chi.Router) {
		r.Use(h.authn)
		r.Post("/", h.createTrack)
		r.Patch("/{trackId}", h.updateTrack)
		r.Delete("/{trackId}", h.deleteTrack)
		r.Post("/{trackId}/articles", h.createArticle)
	})
}

type trackRequest struct {
	Name        string  `json:"name"`
	Room        *string `json:"room"`
	Description string  `json:"description"`
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
}

func (req trackRequest) toInput(errs fieldErrors) service.TrackInput {
	errs.requiredText("name", req.Name)
	errs.optionalText("room", req.Room)
	return service.TrackInput{
		Name:        req.Name,
		Room:        req.Room,
		Description: req.Description,
		StartDate:   errs.optionalTimestamp("start_date", req.StartDate),
		EndDate:     errs.optionalTimestamp("end_date", req.EndDate),
	}
}

// trackPath reads both ids of a track route.
func trackPath(w http.ResponseWriter, r *http.Request) (conferenceID, trackID int64, ok bool) {
	if conferenceID, ok = pathID(w, r, "conferenceId"); !ok {
		return 0, 0, false
	}
	if trackID, ok = pathID(w, r, "trackId"); !ok {
		return 0, 0, false
	}
	return conferenceID, trackID, true
}

func (h *TrackHandler) listTracks(w http.ResponseWriter, r *http.Request) {
	conferenceID, ok := pathID(w, r, "conferenceId")
	if !ok {
		return
	}
	tracks, err := h.trackService.ListTracks(r.Context(), conferenceID)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, tracks)
}

func (h *TrackHandler) getTrack(w http.ResponseWriter, r *http.Request) {
	conferenceID, trackID, ok := trackPath(w, r)
	if !ok {
		return
	}
	track, err := h.trackService.GetTrack(r.Context(), conferenceID, trackID)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, track)
}

func (h *TrackHandler) getSchedule(w http.ResponseWriter, r *http.Request) {
	conferenceID, trackID, ok := trackPath(w, r)
	if !ok {
		return
	}
	schedule, err := h.trackService.GetSchedule(r.Context(), conferenceID, trackID)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, schedule)
}

func (h *TrackHandler) createTrack(w http.ResponseWriter, r *http.Request) {
	conferenceID, ok := pathID(w, r, "conferenceId")
	if !ok {
		return
	}
	var req trackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	errs := fieldErrors{}
	in := req.toInput(errs)
	if errs.respond(w) {
		return
	}

	track, err := h.trackService.CreateTrack(r.Context(), middleware.PrincipalFromContext(r.Context()), conferenceID, in)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, track)
}

func (h *TrackHandler) updateTrack(w http.ResponseWriter, r *http.Request) {
	conferenceID, trackID, ok := trackPath(w, r)
	if !ok {
		return
	}
	var req trackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	errs := fieldErrors{}
	in := req.toInput(errs)
	if errs.respond(w) {
		return
	}

	track, err := h.trackService.UpdateTrack(r.Context(), middleware.PrincipalFromContext(r.Context()), conferenceID, trackID, in)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, track)
}

func (h *TrackHandler) deleteTrack(w http.ResponseWriter, r *http.Request) {
	conferenceID, trackID, ok := trackPath(w, r)
	if !ok {
		return
	}
	if err := h.trackService.DeleteTrack(r.Context(), middleware.PrincipalFromContext(r.Context()), conferenceID, trackID); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondNoContent(w)
}

func (h *TrackHandler) listTrackArticles(w http.ResponseWriter, r *http.Request) {
	conferenceID, trackID, ok := trackPath(w, r)
	if !ok {
		return
	}
	articles, err := h.articleService.ListTrackArticles(r.Context(), conferenceID, trackID)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, articles)
}

func (h *TrackHandler) createArticle(w http.ResponseWriter, r *http.Request) {
	conferenceID, trackID, ok := trackPath(w, r)
	if !ok {
		return
	}
	var req articleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	errs := fieldErrors{}
	in := req.toInput(errs)
	if errs.respond(w) {
		return
	}

	article, err := h.articleService.CreateArticle(r.Context(), middleware.PrincipalFromContext(r.Context()), conferenceID, trackID, in)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, article)
}
