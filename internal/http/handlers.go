package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/catch-league/internal/league"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/pubsub"
	"github.com/mauv0809/catch-league/internal/ranking"
	"github.com/mauv0809/catch-league/internal/remote"
	"github.com/slack-go/slack"
)

const maxPhotoBytes = 10 << 20

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// LeaderboardHandler serves the ranking of one tournament, or of every catch
// when no tournament is given.
func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tournamentID := r.URL.Query().Get("tournament")
		policy := ranking.ParsePolicy(r.URL.Query().Get("policy"))
		board, err := s.League.Leaderboard(tournamentID, policy)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		if userID == "" {
			userID = s.userFromRequest(r).ID
		}
		writeJSON(w, http.StatusOK, s.League.UserStats(userID))
	}
}

// SyncHandler drains the pending queues now.
func (s *Server) SyncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		log.Info("Starting manual sync...")
		report, err := s.Reconciler.SyncLocalData(r.Context())
		if err != nil {
			log.Error("Manual sync failed", "error", err)
			writeError(w, err)
			return
		}
		log.Info("Manual sync finished.", "skipped", report.Skipped, "failed", report.Failed)
		writeJSON(w, http.StatusOK, report)
	}
}

func (s *Server) SyncStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := syncStatusResponse{StatusReport: s.Reconciler.Status()}
		if s.Counters != nil {
			counters, err := s.Counters.GetAll()
			if err != nil {
				log.Warn("Failed to read lifetime counters", "error", err)
			} else {
				resp.Counters = counters
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ConnectivityHandler flips the connectivity signal with ?online=true|false.
func (s *Server) ConnectivityHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		online, err := strconv.ParseBool(r.URL.Query().Get("online"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "online must be true or false"})
			return
		}
		s.Reconciler.SetOnline(online)
		writeJSON(w, http.StatusOK, s.Reconciler.Status())
	}
}

// CatchesHandler lists the catches mirror or registers a catch. A catch may
// be posted as JSON or as a multipart form with a "catch" JSON field and an
// optional "photo" file.
func (s *Server) CatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, s.Reconciler.Catches())
		case http.MethodPost:
			in, photo, err := decodeCatch(r)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
				return
			}
			c, err := s.League.RegisterCatch(r.Context(), s.userFromRequest(r), in, photo)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, createdStatus(c.Pending), c)
		default:
			methodNotAllowed(w)
		}
	}
}

func decodeCatch(r *http.Request) (model.CatchInput, []byte, error) {
	var in model.CatchInput
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, nil, fmt.Errorf("invalid catch body: %w", err)
		}
		return in, nil, nil
	}

	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		return in, nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	if err := json.Unmarshal([]byte(r.FormValue("catch")), &in); err != nil {
		return in, nil, fmt.Errorf("invalid catch field: %w", err)
	}
	file, _, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, nil
	}
	if err != nil {
		return in, nil, fmt.Errorf("invalid photo: %w", err)
	}
	defer file.Close()
	photo, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		return in, nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return in, photo, nil
}

func (s *Server) TournamentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, s.League.Tournaments())
		case http.MethodPost:
			var in model.TournamentInput
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tournament body"})
				return
			}
			t, err := s.League.CreateTournament(r.Context(), s.userFromRequest(r), in)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, createdStatus(t.Pending), t)
		default:
			methodNotAllowed(w)
		}
	}
}

// TournamentActionHandler runs join, leave, cancel or finish on a tournament.
func (s *Server) TournamentActionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req tournamentActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TournamentID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tournamentId and action are required"})
			return
		}
		user := s.userFromRequest(r)
		ctx := r.Context()

		var (
			t   model.Tournament
			err error
		)
		switch strings.ToLower(req.Action) {
		case "join":
			t, err = s.League.JoinTournament(ctx, user, req.TournamentID)
		case "leave":
			t, err = s.League.LeaveTournament(ctx, user, req.TournamentID)
		case "cancel":
			t, err = s.League.CancelTournament(ctx, user, req.TournamentID)
		case "finish":
			t, err = s.League.FinishTournament(ctx, user, req.TournamentID)
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown action " + req.Action})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		log.Info("Tournament action applied", "action", req.Action, "tournamentId", req.TournamentID, "user", user.ID)
		writeJSON(w, http.StatusOK, t)
	}
}

func (s *Server) InvitesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, s.Reconciler.Invites())
		case http.MethodPost:
			var req inviteRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TournamentID == "" || req.ToUserID == "" {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tournamentId and toUserId are required"})
				return
			}
			inv, err := s.League.InviteUser(r.Context(), s.userFromRequest(r), req.TournamentID, req.ToUserID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, inv)
		default:
			methodNotAllowed(w)
		}
	}
}

func (s *Server) InviteRespondHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req inviteResponseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InviteID == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "inviteId is required"})
			return
		}
		update, err := s.League.RespondToInvite(r.Context(), s.userFromRequest(r), req.InviteID, req.Accept)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, update)
	}
}

// TournamentFinishedHandler receives the tournament-finished push
// subscription and announces the result on Slack.
func (s *Server) TournamentFinishedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received tournament finished message", "body", string(bodyBytes))
		rawData, err := pubsub.UnwrapPush(bodyBytes)
		if err != nil {
			log.Error("Failed to unwrap push message", "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var event pubsub.TournamentFinished
		if err := s.pubsub.ProcessMessage(rawData, &event); err != nil {
			log.Error("Failed to decode tournament finished event", "error", err)
			http.Error(w, "Invalid message payload", http.StatusBadRequest)
			return
		}
		if err := s.Notifier.SendTournamentFinished(event, isDryRunFromContext(r)); err != nil {
			log.Error("Failed to notify tournament finished", "error", err, "tournamentId", event.TournamentID)
			http.Error(w, "Failed to notify tournament finished", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

// PostLeaderboardHandler posts a leaderboard to the Slack channel.
func (s *Server) PostLeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		board, err := s.League.Leaderboard(r.URL.Query().Get("tournament"), ranking.ParsePolicy(r.URL.Query().Get("policy")))
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.Notifier.SendLeaderboard(board.Name, board.Policy, board.Entries, isDryRunFromContext(r)); err != nil {
			http.Error(w, "Failed to post leaderboard", http.StatusBadGateway)
			return
		}
		w.Write([]byte("OK"))
	}
}

// PostStatsHandler posts a user's stats to the Slack channel.
func (s *Server) PostStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		userID := r.URL.Query().Get("user")
		if userID == "" {
			userID = s.userFromRequest(r).ID
		}
		if err := s.Notifier.SendUserStats(s.League.UserStats(userID), isDryRunFromContext(r)); err != nil {
			http.Error(w, "Failed to post stats", http.StatusBadGateway)
			return
		}
		w.Write([]byte("OK"))
	}
}

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

func respondWithSlackText(w http.ResponseWriter, text string) {
	respondWithSlackMsg(w, slack.Message{Msg: slack.Msg{ResponseType: "ephemeral", Text: text}})
}

// LeaderboardCommandHandler returns a handler for the /leaderboard Slack
// command. The text may name a policy and a tournament by id or name, in
// any order.
func (s *Server) LeaderboardCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		query, policy := parseLeaderboardText(r.FormValue("text"))
		tournamentID := ""
		if query != "" {
			t, ok := s.findTournament(query)
			if !ok {
				respondWithSlackText(w, fmt.Sprintf("Sorry, I couldn't find a tournament matching *%s*.", query))
				return
			}
			tournamentID = t.ID
		}

		board, err := s.League.Leaderboard(tournamentID, policy)
		if err != nil {
			http.Error(w, "Failed to compute leaderboard", http.StatusInternalServerError)
			log.Error("Failed to compute leaderboard", "error", err)
			return
		}

		msg, err := s.Notifier.FormatLeaderboardResponse(board.Name, board.Policy, board.Entries)
		if err != nil {
			http.Error(w, "Failed to format leaderboard", http.StatusInternalServerError)
			log.Error("Failed to format leaderboard", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}

		respondWithSlackMsg(w, slackMsg)
	}
}

// StatsCommandHandler returns a handler for the /stats Slack command. The
// text names a user by id or by display name.
func (s *Server) StatsCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		query := strings.TrimSpace(r.FormValue("text"))
		if query == "" {
			http.Error(w, "User name is required.", http.StatusBadRequest)
			return
		}

		log.Info("Received stats command", "user", query)
		stats := s.League.UserStats(s.findUserID(query))
		if stats.TotalCatches == 0 {
			respondWithSlackText(w, fmt.Sprintf("Sorry, I couldn't find catches for *%s*.", query))
			return
		}

		msg, err := s.Notifier.FormatUserStatsResponse(stats)
		if err != nil {
			http.Error(w, "Failed to format stats", http.StatusInternalServerError)
			log.Error("Failed to format stats", "error", err)
			return
		}
		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}
		respondWithSlackMsg(w, slackMsg)
	}
}

// parseLeaderboardText splits slash command text into a tournament query
// and a policy. Words naming a policy are consumed; the rest is the query.
func parseLeaderboardText(text string) (string, ranking.Policy) {
	policy := ranking.PolicyScore
	var rest []string
	for _, word := range strings.Fields(text) {
		if p := ranking.ParsePolicy(word); string(p) == strings.ToLower(word) {
			policy = p
			continue
		}
		rest = append(rest, word)
	}
	return strings.Join(rest, " "), policy
}

func (s *Server) findTournament(query string) (model.Tournament, bool) {
	for _, t := range s.League.Tournaments() {
		if t.Matches(query) || strings.EqualFold(t.Name, query) {
			return t, true
		}
	}
	return model.Tournament{}, false
}

func (s *Server) findUserID(query string) string {
	for _, c := range s.Reconciler.Catches() {
		if c.UserID == query || strings.EqualFold(c.UserName, query) {
			return c.UserID
		}
	}
	return query
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

// writeError maps domain and store failures onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, league.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, league.ErrNotOwner),
		errors.Is(err, league.ErrOwnerCannotLeave),
		errors.Is(err, league.ErrNotParticipant),
		errors.Is(err, league.ErrNotInvitee):
		return http.StatusForbidden
	case errors.Is(err, league.ErrTournamentFull),
		errors.Is(err, league.ErrTournamentClosed),
		errors.Is(err, league.ErrAlreadyJoined),
		errors.Is(err, league.ErrAlreadyInvited):
		return http.StatusConflict
	case errors.Is(err, league.ErrEarlyFinish):
		return http.StatusUnprocessableEntity
	case errors.Is(err, league.ErrRequiresConnection):
		return http.StatusServiceUnavailable
	}
	switch remote.KindOf(err) {
	case remote.KindNotFound:
		return http.StatusNotFound
	case remote.KindValidation:
		return http.StatusBadRequest
	case remote.KindNetworkUnavailable, remote.KindPermissionDenied, remote.KindFailedPrecondition:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// createdStatus is 202 for writes that were queued and 201 otherwise.
func createdStatus(pending bool) int {
	if pending {
		return http.StatusAccepted
	}
	return http.StatusCreated
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		methodNotAllowed(w)
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
}
