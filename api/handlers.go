package api

import (
	"net/http"

	"drawpool/domain/entities"
	"drawpool/domain/interfaces"

	"github.com/gorilla/mux"
)

type allocateRequest struct {
	SharesCount int    `json:"sharesCount"`
	Kind        string `json:"kind"`
}

type createRoundRequest struct {
	ProductID   string `json:"productId"`
	TotalShares int    `json:"totalShares"`
	SharePrice  int64  `json:"sharePrice"`
}

type drawRequest struct {
	Forced bool   `json:"forced"`
	Reason string `json:"reason"`
}

type voidRequest struct {
	Reason string `json:"reason"`
}

type correctionRequest struct {
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
	Field      string `json:"field"`
	NewValue   string `json:"newValue"`
	Reason     string `json:"reason"`
	DryRun     bool   `json:"dryRun"`
}

type openAccountRequest struct {
	UserID         string `json:"userId"`
	InitialBalance int64  `json:"initialBalance"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	round, err := s.rounds.GetRound(r.Context(), mux.Vars(r)["roundId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoundView(round))
}

func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		badRequest(w, "missing "+UserIDHeader)
		return
	}

	var body allocateRequest
	if err := readJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}

	kind := entities.ParticipationKind(body.Kind)
	if body.Kind == "" {
		kind = entities.ParticipationKindPaid
	}

	result, err := s.participations.Allocate(r.Context(), interfaces.AllocationRequest{
		RoundID:     mux.Vars(r)["roundId"],
		UserID:      userID,
		SharesCount: body.SharesCount,
		Kind:        kind,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAllocationView(result))
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	verification, err := s.draws.VerifyDraw(r.Context(), mux.Vars(r)["roundId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, verification)
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		badRequest(w, "missing "+UserIDHeader)
		return
	}
	status, err := s.participations.AllowanceStatus(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var body openAccountRequest
	if err := readJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	user, err := s.participations.OpenAccount(r.Context(), r.Header.Get(OperatorIDHeader), body.UserID, body.InitialBalance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userView{
		ID:                  user.ID,
		Balance:             user.Balance,
		FreeClaimsRemaining: user.FreeClaimsRemaining,
		CreatedAt:           user.CreatedAt,
	})
}

func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	var body createRoundRequest
	if err := readJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	round, err := s.rounds.CreateRound(r.Context(), interfaces.CreateRoundRequest{
		ProductID:   body.ProductID,
		TotalShares: body.TotalShares,
		SharePrice:  body.SharePrice,
		OperatorID:  r.Header.Get(OperatorIDHeader),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRoundView(round))
}

func (s *Server) handleListParticipations(w http.ResponseWriter, r *http.Request) {
	participations, err := s.rounds.ListParticipations(r.Context(), mux.Vars(r)["roundId"])
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]participationView, 0, len(participations))
	for _, p := range participations {
		views = append(views, newParticipationView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	var body drawRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &body); err != nil {
			badRequest(w, err.Error())
			return
		}
	}

	trigger := entities.DrawTriggerManual
	if body.Forced {
		trigger = entities.DrawTriggerForced
	}

	res, err := s.draws.TriggerDraw(r.Context(), interfaces.DrawRequest{
		RoundID:    mux.Vars(r)["roundId"],
		Trigger:    trigger,
		Forced:     body.Forced,
		OperatorID: r.Header.Get(OperatorIDHeader),
		Reason:     body.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDrawView(res))
}

func (s *Server) handleVoid(w http.ResponseWriter, r *http.Request) {
	var body voidRequest
	if err := readJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := s.rounds.VoidRound(r.Context(), interfaces.VoidRoundRequest{
		RoundID:    mux.Vars(r)["roundId"],
		OperatorID: r.Header.Get(OperatorIDHeader),
		Reason:     body.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voidView{
		Round:          newRoundView(res.Round),
		RefundedCount:  res.RefundedCount,
		RefundedAmount: res.RefundedAmount,
	})
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := s.consistency.Report(r.Context(), r.URL.Query().Get("roundId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleApplyCorrection(w http.ResponseWriter, r *http.Request) {
	var body correctionRequest
	if err := readJSON(w, r, &body); err != nil {
		badRequest(w, err.Error())
		return
	}
	record, err := s.corrections.ApplyCorrection(r.Context(), entities.CorrectionRequest{
		TargetType: entities.CorrectionTarget(body.TargetType),
		TargetID:   body.TargetID,
		Field:      body.Field,
		NewValue:   body.NewValue,
		OperatorID: r.Header.Get(OperatorIDHeader),
		Reason:     body.Reason,
		DryRun:     body.DryRun,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if record.DryRun {
		writeJSON(w, http.StatusOK, record)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleCorrectionHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	targetType := query.Get("targetType")
	targetID := query.Get("targetId")
	if targetType == "" || targetID == "" {
		badRequest(w, "targetType and targetId are required")
		return
	}
	records, err := s.corrections.History(r.Context(), entities.CorrectionTarget(targetType), targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []*entities.CorrectionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
