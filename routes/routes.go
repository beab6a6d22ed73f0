package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/courtline/tournament-engine/handlers"
	"github.com/courtline/tournament-engine/middleware"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Tournament  *handlers.TournamentHandler
	Participant *handlers.ParticipantHandler
	Match       *handlers.MatchHandler
	Standings   *handlers.StandingsHandler
	WebSocket   *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authenticate := middleware.Authenticate(jwtSecret)
	organizerOnly := middleware.Authorize("organizer", "admin")

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.ListTournamentsHandler)
		r.Get("/{tournamentID}", h.Tournament.GetTournamentHandler)
		r.Get("/{tournamentID}/matches", h.Match.ListTournamentMatchesHandler)
		r.Get("/{tournamentID}/participants", h.Participant.ListHandler)
		r.Get("/{tournamentID}/standings", h.Standings.TournamentStandingsHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{tournamentID}/participants", h.Participant.RegisterHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)
			r.Post("/", h.Tournament.CreateTournamentHandler)
			r.Post("/{tournamentID}/cancel", h.Tournament.CancelTournamentHandler)
			r.Post("/{tournamentID}/groups", h.Tournament.GenerateGroupsHandler)
			r.Post("/{tournamentID}/start", h.Tournament.StartKnockoutHandler)
		})
	})

	router.Route("/participants", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Delete("/{participantID}", h.Participant.WithdrawHandler)
		})
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)
			r.Post("/{participantID}/disqualify", h.Participant.DisqualifyHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetMatchHandler)
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{matchID}/result", h.Match.SubmitResultHandler)
		})
	})

	router.Get("/groups/{groupID}/standings", h.Standings.GroupStandingsHandler)
	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	return router
}
