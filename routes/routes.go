package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Dosada05/sports-competitions/handlers"
	"github.com/Dosada05/sports-competitions/middleware"
	"github.com/Dosada05/sports-competitions/models"
)

// Handlers собирает все HTTP-обработчики приложения.
type Handlers struct {
	Auth          *handlers.AuthHandler
	User          *handlers.UserHandler
	Admin         *handlers.AdminUserHandler
	Competition   *handlers.CompetitionHandler
	Participation *handlers.ParticipationHandler
	Team          *handlers.TeamHandler
	Player        *handlers.PlayerHandler
	Match         *handlers.MatchHandler
	Group         *handlers.GroupHandler
	Notification  *handlers.NotificationHandler
	Dashboard     *handlers.DashboardHandler
	WebSocket     *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(requestLogger(opts.Logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(opts.JWTSecret)
	organizerOnly := middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// WebSocket живёт вне таймаута запросов.
	router.With(authenticate).Get("/ws/notifications", h.WebSocket.ServeNotifications)

	router.Group(func(r chi.Router) {
		r.Use(chiMiddleware.Timeout(opts.RequestTimeout))

		r.Get("/health", h.Dashboard.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Auth.Register)
			r.Post("/signin", h.Auth.Login)
			r.Get("/confirm", h.Auth.ConfirmEmail)
			r.With(authenticate).Put("/password", h.Auth.ChangePassword)
		})

		r.Route("/competitions", func(r chi.Router) {
			// Публичный каталог
			r.Get("/", h.Competition.ListPublic)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.With(organizerOnly).Post("/", h.Competition.Create)
				r.Get("/code/{code}", h.Competition.GetByCode)

				r.Route("/{competitionID}", func(r chi.Router) {
					r.Get("/", h.Competition.GetByID)
					r.Patch("/", h.Competition.Update)
					r.Delete("/", h.Competition.Delete)
					r.Put("/status", h.Competition.UpdateStatus)
					r.Post("/logo", h.Competition.UploadLogo)

					r.Post("/participations", h.Participation.Apply)
					r.Get("/participations", h.Participation.ListByCompetition)

					r.Post("/teams", h.Team.CreateTeam)
					r.Get("/teams", h.Team.ListByCompetition)

					r.Post("/groups", h.Group.CreateGroups)
					r.Get("/groups", h.Group.ListByCompetition)

					r.Post("/matches", h.Match.CreateMatch)
					r.Get("/matches", h.Match.ListByCompetition)
					r.Post("/matches/generate", h.Match.GenerateFixtures)
					r.Get("/standings", h.Match.GetStandings)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/search", h.Dashboard.Search)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", h.User.GetMe)
				r.Patch("/me", h.User.UpdateMe)
				r.Post("/me/avatar", h.User.UploadAvatar)
				r.Get("/me/competitions", h.Competition.ListMine)
				r.Get("/me/participations", h.Participation.ListMine)
				r.Get("/me/teams", h.Team.ListMine)
				r.Get("/{userID}", h.User.GetUserByID)
			})

			r.Route("/participations/{participationID}", func(r chi.Router) {
				r.Post("/approve", h.Participation.Approve)
				r.Post("/reject", h.Participation.Reject)
				r.Post("/withdraw", h.Participation.Withdraw)
			})

			r.Route("/teams/{teamID}", func(r chi.Router) {
				r.Get("/", h.Team.GetTeamByID)
				r.Patch("/", h.Team.UpdateTeamDetails)
				r.Delete("/", h.Team.DeleteTeam)
				r.Put("/group", h.Team.AssignGroup)
				r.Post("/logo", h.Team.UploadLogo)
				r.Get("/record", h.Team.GetRecord)
				r.Get("/matches/upcoming", h.Team.GetUpcomingMatches)

				r.Get("/players", h.Player.ListByTeam)
				r.Post("/players", h.Player.AddPlayer)
				r.Get("/players/next-jersey", h.Player.NextJerseyNumber)
			})

			r.Route("/players/{playerID}", func(r chi.Router) {
				r.Patch("/", h.Player.UpdatePlayer)
				r.Post("/captain", h.Player.SetCaptain)
				r.Post("/deactivate", h.Player.Deactivate)
			})

			r.Route("/matches/{matchID}", func(r chi.Router) {
				r.Get("/", h.Match.GetMatchByID)
				r.Patch("/", h.Match.UpdateMatch)
				r.Post("/start", h.Match.StartMatch)
				r.Put("/score", h.Match.UpdateScore)
				r.Post("/cancel", h.Match.CancelMatch)
				r.Post("/postpone", h.Match.PostponeMatch)
			})

			r.Delete("/groups/{groupID}", h.Group.DeleteGroup)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/stats", h.Notification.Stats)
				r.Post("/read-all", h.Notification.MarkAllAsRead)
				r.Post("/{notificationID}/read", h.Notification.MarkAsRead)
				r.Delete("/{notificationID}", h.Notification.Delete)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/stats", h.Dashboard.Stats)
				r.Post("/cleanup", h.Dashboard.Cleanup)
				r.Post("/competitions/refresh-statuses", h.Competition.AutoUpdateStatuses)
				r.Post("/notifications", h.Notification.Broadcast)
				r.Get("/users", h.Admin.ListUsers)
				r.Put("/users/{userID}/role", h.Admin.SetRole)
				r.Delete("/users/{userID}", h.Admin.DeleteUser)
			})
		})
	})
}

// requestLogger пишет одну строку slog на запрос.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("requestId", chiMiddleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
