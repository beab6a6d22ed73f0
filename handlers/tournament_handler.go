package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/courtline/tournament-engine/middleware"
	"github.com/courtline/tournament-engine/models"
	"github.com/courtline/tournament-engine/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	stageService      services.StageService
}

func NewTournamentHandler(tournamentService services.TournamentService, stageService services.StageService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		stageService:      stageService,
	}
}

type createTournamentRequest struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	Format          string  `json:"format"`
	StartDate       string  `json:"start_date"`
	AdvancePerGroup int     `json:"advance_per_group"`
	AllowWithdrawal bool    `json:"allow_withdrawal"`
	VirtualByes     bool    `json:"virtual_byes"`
}

func (h *TournamentHandler) CreateTournamentHandler(w http.ResponseWriter, r *http.Request) {
	var input createTournamentRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	format := services.TournamentFormat(input.Format)
	if format != services.FormatGroupsKnockout && format != services.FormatKnockout {
		format = services.FormatGroupsKnockout
	}

	startDate := time.Now()
	if input.StartDate != "" {
		parsed, err := time.Parse(time.RFC3339, input.StartDate)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		startDate = parsed
	}

	actorID := middleware.ActorIDFromContext(r.Context())
	tournament := &models.Tournament{
		Name:            input.Name,
		Description:     input.Description,
		StartDate:       startDate,
		AdvancePerGroup: input.AdvancePerGroup,
		AllowWithdrawal: input.AllowWithdrawal,
		VirtualByes:     input.VirtualByes,
	}
	if actorID != nil {
		tournament.OrganizerID = *actorID
	}

	created, err := h.tournamentService.Create(r.Context(), tournament, format, actorID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": created}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetTournamentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetFullData(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ListTournamentsHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	tournaments, err := h.tournamentService.List(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) CancelTournamentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.Cancel(r.Context(), id, middleware.ActorIDFromContext(r.Context())); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": models.TournamentStatusCanceled}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type generateGroupsRequest struct {
	GroupCount int `json:"group_count"`
}

func (h *TournamentHandler) GenerateGroupsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input generateGroupsRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	groups, err := h.stageService.GenerateGroups(r.Context(), id, input.GroupCount, middleware.ActorIDFromContext(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"groups": groups}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) StartKnockoutHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.stageService.StartKnockout(r.Context(), id, middleware.ActorIDFromContext(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
