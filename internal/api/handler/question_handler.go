package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neiios/dam-project-server/internal/api/middleware"
	"github.com/neiios/dam-project-server/internal/app/service"
	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/domain/model"
)

// QuestionHandler serves both conference requests and article questions.
type QuestionHandler struct {
	questionService *service.QuestionService
	authn           func(http.Handler) http.Handler
}

func NewQuestionHandler(qs *service.QuestionService, authn func(http.Handler) http.Handler) *QuestionHandler {
	return &QuestionHandler{questionService: qs, authn: authn}
}

// RegisterConferenceRoutes mounts under /conferences/{conferenceId}/requests.
func (h *QuestionHandler) RegisterConferenceRoutes(r chi.Router) {
	r.Use(h.authn)
	r.Post("/", h.ask(model.KindConference, "conferenceId"))
	r.Get("/", h.listForTarget(model.KindConference, "conferenceId"))
	r.Get("/{requestId}", h.getUnderTarget(model.KindConference, "conferenceId", "requestId"))
}

// RegisterRequestRoutes mounts the admin view of conference requests at /requests.
func (h *QuestionHandler) RegisterRequestRoutes(r chi.Router) {
	h.registerKindRoutes(r, model.KindConference, "requestId")
}

// RegisterArticleRoutes mounts under /articles/{articleId}/questions.
func (h *QuestionHandler) RegisterArticleRoutes(r chi.Router) {
	r.Get("/", h.listAnswered)
	r.Get("/count", h.countAnswered)

	r.Group(func(r chi.Router) {
		r.Use(h.authn)
		r.Post("/", h.ask(model.KindArticle, "articleId"))
		r.Get("/mine", h.listForTarget(model.KindArticle, "articleId"))
	})
}

// RegisterQuestionRoutes mounts the admin view of article questions at /questions.
func (h *QuestionHandler) RegisterQuestionRoutes(r chi.Router) {
	h.registerKindRoutes(r, model.KindArticle, "questionId")
}

func (h *QuestionHandler) registerKindRoutes(r chi.Router, kind model.QuestionKind, idParam string) {
	r.Use(h.authn)
	r.Get("/", h.listAll(kind))
	r.Get("/{"+idParam+"}", h.getUnderTarget(kind, "", idParam))
	r.Patch("/{"+idParam+"}", h.answer(kind, idParam))
	r.Delete("/{"+idParam+"}", h.delete(kind, idParam))
}

type askRequest struct {
	Question string `json:"question"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *QuestionHandler) ask(kind model.QuestionKind, targetParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID, ok := pathID(w, r, targetParam)
		if !ok {
			return
		}
		var req askRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		errs := fieldErrors{}
		errs.requiredText("question", req.Question)
		if errs.respond(w) {
			return
		}

		q, err := h.questionService.Ask(r.Context(), middleware.PrincipalFromContext(r.Context()), kind, targetID, req.Question)
		if err != nil {
			common.RespondWithDomainError(w, r, err)
			return
		}
		common.RespondWithJSON(w, http.StatusCreated, q)
	}
}

func (h *QuestionHandler) listForTarget(kind model.QuestionKind, targetParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID, ok := pathID(w, r, targetParam)
		if !ok {
			return
		}
		questions, err := h.questionService.List(r.Context(), middleware.PrincipalFromContext(r.Context()), kind, targetID)
		if err != nil {
			common.RespondWithDomainError(w, r, err)
			return
		}
		common.RespondWithJSON(w, http.StatusOK, questions)
	}
}

func (h *QuestionHandler) listAll(kind model.QuestionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := h.questionService.ListAll(r.Context(), middleware.PrincipalFromContext(r.Context()), kind)
		if err != nil {
			common.RespondWithDomainError(w, r, err)
			return
		}
		common.RespondWithJSON(w, http.StatusOK, questions)
	}
}

// getUnderTarget scopes the lookup to the target when targetParam is set.
func (h *QuestionHandler) getUnderTarget(kind model.QuestionKind, targetParam, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var target *int64
		if targetParam != "" {
			targetID, ok := pathID(w, r, targetParam)
			if !ok {
				return
			}
			target = &targetID
		}
		id, ok := pathID(w, r, idParam)
		if !ok {
			return
		}

		q, err := h.questionService.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), kind, id, target)
		if err != nil {
			common.RespondWithDomainError(w, r, err)
			return
		}
		common.RespondWithJSON(w, http.StatusOK, q)
	}
}

func (h *QuestionHandler) answer(kind model.QuestionKind, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, idParam)
		if !ok {
			return
		}
		var req answerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		errs := fieldErrors{}
		errs.requiredText("answer", req.Answer)
		if errs.respond(w) {
			return
		}

		q, err := h.questionService.Answer(r.Context(), middleware.PrincipalFromContext(r.Context()), kind, id, req.Answer)
		if err != nil {
			common.RespondWithDomainError(w, r, err)
			return
		}
		common.RespondWithJSON(w, http.StatusOK, q)
	}
}

func (h *QuestionHandler) delete(kind model.QuestionKind, idParam string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, idParam)
		if !ok {
			return
		}
		if err := h.questionService.Delete(r.Context(), middleware.PrincipalFromContext(r.Context()), kind, id); err != nil {
			common.RespondWithDomainError(w, r, err)
			return
		}
		common.RespondNoContent(w)
	}
}

func (h *QuestionHandler) listAnswered(w http.ResponseWriter, r *http.Request) {
	articleID, ok := pathID(w, r, "articleId")
	if !ok {
		return
	}
	questions, err := h.questionService.ListAnswered(r.Context(), articleID)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, questions)
}

type countResponse struct {
	Count int64 `json:"count"`
}

func (h *QuestionHandler) countAnswered(w http.ResponseWriter, r *http.Request) {
	articleID, ok := pathID(w, r, "articleId")
	if !ok {
		return
	}
	n, err := h.questionService.CountAnswered(r.Context(), articleID)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, countResponse{Count: n})
}
