package http

import (
	"encoding/json"
	"net/http"

	"goaltrack/internal/log"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleAPIRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Financial Goal Tracker API",
	})
}

type createGoalRequest struct {
	OwnerID      string `json:"owner_id"`
	Name         string `json:"name"`
	TargetAmount any    `json:"target_amount"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	target, err := parseAmount(req.TargetAmount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "target_amount must be a positive amount")
		return
	}

	goal, err := s.goals.CreateGoal(r.Context(), sanitizeInput(req.OwnerID), sanitizeInput(req.Name), target)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toGoalResponse(goal))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	ownerID := sanitizeInput(r.URL.Query().Get("owner_id"))

	goals, err := s.goals.ListGoals(r.Context(), ownerID)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "List goals failed",
			log.FieldOwnerID, ownerID,
			"error", err)
		writeDomainError(w, err)
		return
	}

	resp := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		resp = append(resp, toGoalResponse(g))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.goals.GetGoal(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGoalResponse(goal))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")

	if err := s.goals.DeleteGoal(r.Context(), goalID); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateProgress(goalID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Goal deleted successfully",
	})
}

func (s *Server) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("id")

	if cached, ok := s.progressCache.Get(goalID); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	goal, progress, err := s.goals.Progress(r.Context(), goalID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := toProgressResponse(goal, progress)
	s.progressCache.Set(goalID, resp)
	writeJSON(w, http.StatusOK, resp)
}

type createTransactionRequest struct {
	GoalID      string `json:"goal_id"`
	Amount      any    `json:"amount"`
	Description string `json:"description"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "amount must be a positive amount")
		return
	}

	goal, tx, err := s.goals.Deposit(r.Context(), req.GoalID, amount, sanitizeInput(req.Description))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateProgress(goal.ID)

	writeJSON(w, http.StatusCreated, struct {
		Transaction transactionResponse `json:"transaction"`
		Goal        goalResponse        `json:"goal"`
	}{
		Transaction: toTransactionResponse(tx),
		Goal:        toGoalResponse(goal),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.goals.ListTransactions(r.Context(), r.PathValue("goalID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}
