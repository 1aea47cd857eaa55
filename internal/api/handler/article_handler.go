package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/neiios/dam-project-server/internal/api/middleware"
	"github.com/neiios/dam-project-server/internal/app/service"
	"github.com/neiios/dam-project-server/internal/common"
)

type ArticleHandler struct {
	articleService *service.ArticleService
	authn          func(http.Handler) http.Handler
}

func NewArticleHandler(as *service.ArticleService, authn func(http.Handler) http.Handler) *ArticleHandler {
	return &ArticleHandler{articleService: as, authn: authn}
}

// RegisterRoutes mounts under /conferences/{conferenceId}/articles.
// Articles are created through their track.
func (h *ArticleHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listArticles)
	r.Get("/{articleId}", h.getArticle)

	r.Group(func(r chi.Router) {
		r.Use(h.authn)
		r.Patch("/{articleId}", h.updateArticle)
		r.Delete("/{articleId}", h.deleteArticle)
	})
}

type articleRequest struct {
	Title     string `json:"title"`
	Authors   string `json:"authors"`
	Abstract  string `json:"abstract"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (req articleRequest) toInput(errs fieldErrors) service.ArticleInput {
	errs.requiredText("title", req.Title)
	errs.requiredText("authors", req.Authors)
	errs.required("abstract", req.Abstract)
	return service.ArticleInput{
		Title:     req.Title,
		Authors:   req.Authors,
		Abstract:  req.Abstract,
		StartDate: errs.timestamp("start_date", req.StartDate),
		EndDate:   errs.timestamp("end_date", req.EndDate),
	}
}

func articlePath(w http.ResponseWriter, r *http.Request) (conferenceID, articleID int64, ok bool) {
	if conferenceID, ok = pathID(w, r, "conferenceId"); !ok {
		return 0, 0, false
	}
	if articleID, ok = pathID(w, r, "articleId"); !ok {
		return 0, 0, false
	}
	return conferenceID, articleID, true
}

// listArticles paginates only when both page and pageSize are present.
func (h *ArticleHandler) listArticles(w http.ResponseWriter, r *http.Request) {
	conferenceID, ok := pathID(w, r, "conferenceId")
	if !ok {
		return
	}
	q := r.URL.Query()
	page, errs := ParsePagination(q)
	if errs.respond(w) {
		return
	}

	query := service.ListArticlesQuery{SearchTerm: q.Get("searchTerm")}
	if q.Get("page") != "" && q.Get("pageSize") != "" {
		query.Page = &page.Page
		query.PageSize = &page.PageSize
	}

	articles, err := h.articleService.ListArticles(r.Context(), conferenceID, query)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, articles)
}

func (h *ArticleHandler) getArticle(w http.ResponseWriter, r *http.Request) {
	conferenceID, articleID, ok := articlePath(w, r)
	if !ok {
		return
	}
	article, err := h.articleService.GetArticle(r.Context(), conferenceID, articleID)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, article)
}

func (h *ArticleHandler) updateArticle(w http.ResponseWriter, r *http.Request) {
	conferenceID, articleID, ok := articlePath(w, r)
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

	article, err := h.articleService.UpdateArticle(r.Context(), middleware.PrincipalFromContext(r.Context()), conferenceID, articleID, in)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, article)
}

func (h *ArticleHandler) deleteArticle(w http.ResponseWriter, r *http.Request) {
	conferenceID, articleID, ok := articlePath(w, r)
	if !ok {
		return
	}
	if err := h.articleService.DeleteArticle(r.Context(), middleware.PrincipalFromContext(r.Context()), conferenceID, articleID); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondNoContent(w)
}
