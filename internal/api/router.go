package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"github.com/neiios/dam-project-server/internal/api/handler"
	"github.com/neiios/dam-project-server/internal/api/middleware"
	"github.com/neiios/dam-project-server/internal/app/service"
	"github.com/neiios/dam-project-server/internal/common/security"
	"github.com/neiios/dam-project-server/internal/platform/metrics"
)

// Services groups what the HTTP layer needs.
type Services struct {
	Auth       *service.AuthService
	Conference *service.ConferenceService
	Track      *service.TrackService
	Article    *service.ArticleService
	Question   *service.QuestionService
}

func NewRouter(tokens *security.TokenAuth, svc Services, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifier only parses the bearer token; Authenticator enforces it per route.
	r.Use(jwtauth.Verifier(tokens.JWTAuth()))
	authn := middleware.Authenticator(svc.Auth)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	if m != nil {
		r.Handle("/metrics", m.Handler())
	}

	userHandler := handler.NewUserHandler(svc.Auth, authn)
	conferenceHandler := handler.NewConferenceHandler(svc.Conference, authn)
	trackHandler := handler.NewTrackHandler(svc.Track, svc.Article, authn)
	articleHandler := handler.NewArticleHandler(svc.Article, authn)
	questionHandler := handler.NewQuestionHandler(svc.Question, authn)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/users", userHandler.RegisterRoutes)

		v1.Route("/conferences", func(cr chi.Router) {
			conferenceHandler.RegisterRoutes(cr)
			cr.Route("/{conferenceId}/tracks", trackHandler.RegisterRoutes)
			cr.Route("/{conferenceId}/articles", articleHandler.RegisterRoutes)
			cr.Route("/{conferenceId}/requests", questionHandler.RegisterConferenceRoutes)
		})

		v1.Route("/requests", questionHandler.RegisterRequestRoutes)
		v1.Route("/articles/{articleId}/questions", questionHandler.RegisterArticleRoutes)
		v1.Route("/questions", questionHandler.RegisterQuestionRoutes)
	})

	return r
}
