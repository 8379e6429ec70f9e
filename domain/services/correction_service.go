package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"drawpool/domain/entities"
	"drawpool/domain/events"
	"drawpool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// correctionService applies one whitelisted overwrite per call, always with a
// before/after audit record. It is the only write path of the consistency monitor.
type correctionService struct {
	roundRepo           interfaces.RoundRepository
	participationRepo   interfaces.ParticipationRepository
	correctionAuditRepo interfaces.CorrectionAuditRepository
	gate                interfaces.AuthorizationGate
	eventPublisher      interfaces.EventPublisher
	now                 func() time.Time
}

// NewCorrectionService creates a new correction service
func NewCorrectionService(
	roundRepo interfaces.RoundRepository,
	participationRepo interfaces.ParticipationRepository,
	correctionAuditRepo interfaces.CorrectionAuditRepository,
	gate interfaces.AuthorizationGate,
	eventPublisher interfaces.EventPublisher,
) interfaces.CorrectionService {
	return &correctionService{
		roundRepo:           roundRepo,
		participationRepo:   participationRepo,
		correctionAuditRepo: correctionAuditRepo,
		gate:                gate,
		eventPublisher:      eventPublisher,
		now:                 time.Now,
	}
}

// ApplyCorrection overwrites req.Field on the target and records the change.
// A dry run returns the record that would be written and touches nothing.
func (s *correctionService) ApplyCorrection(ctx context.Context, req entities.CorrectionRequest) (*entities.CorrectionRecord, error) {
	if err := validateCorrection(req); err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(ctx, req.OperatorID, interfaces.ActionApplyCorrection); err != nil {
		return nil, err
	}

	var (
		oldValue, newValue string
		err                error
	)
	switch req.TargetType {
	case entities.CorrectionTargetRound:
		oldValue, newValue, err = s.correctRound(ctx, req)
	case entities.CorrectionTargetParticipation:
		oldValue, newValue, err = s.correctParticipation(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	record := &entities.CorrectionRecord{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Field:      req.Field,
		OldValue:   oldValue,
		NewValue:   newValue,
		OperatorID: req.OperatorID,
		Reason:     req.Reason,
		CreatedAt:  s.now(),
		DryRun:     req.DryRun,
	}
	if req.DryRun {
		log.WithFields(log.Fields{
			"targetType": req.TargetType,
			"targetID":   req.TargetID,
			"field":      req.Field,
			"oldValue":   oldValue,
			"newValue":   newValue,
			"operatorID": req.OperatorID,
		}).Info("Correction dry run")
		return record, nil
	}

	if err := s.correctionAuditRepo.Record(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record correction audit: %w", err)
	}

	if err := s.eventPublisher.Publish(events.CorrectionAppliedEvent{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Field:      req.Field,
		OldValue:   oldValue,
		NewValue:   newValue,
		OperatorID: req.OperatorID,
	}); err != nil {
		log.WithError(err).Error("Failed to publish correction applied event")
	}

	log.WithFields(log.Fields{
		"targetType": req.TargetType,
		"targetID":   req.TargetID,
		"field":      req.Field,
		"oldValue":   oldValue,
		"newValue":   newValue,
		"operatorID": req.OperatorID,
		"reason":     req.Reason,
	}).Warn("Correction applied")

	return record, nil
}

func validateCorrection(req entities.CorrectionRequest) error {
	if req.TargetType != entities.CorrectionTargetRound && req.TargetType != entities.CorrectionTargetParticipation {
		return fmt.Errorf("%w: unknown target type %q", ErrValidation, req.TargetType)
	}
	if req.TargetID == "" {
		return fmt.Errorf("%w: target id is required", ErrValidation)
	}
	if strings.TrimSpace(req.Reason) == "" {
		return fmt.Errorf("%w: a correction requires a reason", ErrValidation)
	}
	if !entities.IsCorrectable(req.TargetType, req.Field) {
		return fmt.Errorf("%w: field %q cannot be corrected on a %s", ErrInvalidCorrection, req.Field, req.TargetType)
	}
	return nil
}

func (s *correctionService) correctRound(ctx context.Context, req entities.CorrectionRequest) (string, string, error) {
	round, err := s.roundRepo.GetByIDForUpdate(ctx, req.TargetID)
	if err != nil {
		return "", "", fmt.Errorf("failed to get round: %w", err)
	}
	if round == nil {
		return "", "", ErrRoundNotFound
	}

	oldValue := roundFieldValue(round, req.Field)
	raw := strings.TrimSpace(req.NewValue)

	var value any
	switch req.Field {
	case entities.FieldSoldShares:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > round.TotalShares {
			return "", "", fmt.Errorf("%w: sold_shares must be an integer in [0, %d]", ErrInvalidCorrection, round.TotalShares)
		}
		value = n
	case entities.FieldParticipantCount:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return "", "", fmt.Errorf("%w: participant_count must be a non-negative integer", ErrInvalidCorrection)
		}
		value = n
	case entities.FieldStatus:
		next := entities.RoundStatus(raw)
		if !next.IsValid() {
			return "", "", fmt.Errorf("%w: unknown status %q", ErrInvalidCorrection, raw)
		}
		if !round.Status.CanTransitionTo(next) {
			return "", "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, round.Status, next)
		}
		value = string(next)
	case entities.FieldWinnerParticipationID:
		if raw != "" {
			p, err := s.participationRepo.GetByID(ctx, raw)
			if err != nil {
				return "", "", fmt.Errorf("failed to get participation: %w", err)
			}
			if p == nil || p.RoundID != round.ID {
				return "", "", fmt.Errorf("%w: participation %s does not belong to round %s", ErrInvalidCorrection, raw, round.ID)
			}
			value = raw
		}
	case entities.FieldWinningNumber:
		if raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || !round.InRange(n) {
				return "", "", fmt.Errorf("%w: winning_number must be in [%d, %d]", ErrInvalidCorrection, round.MinNumber(), round.MaxNumber())
			}
			value = n
		}
	}

	newValue := formatCorrectionValue(value)
	if newValue == oldValue {
		return "", "", fmt.Errorf("%w: %s is already %q", ErrInvalidCorrection, req.Field, oldValue)
	}
	if req.DryRun {
		return oldValue, newValue, nil
	}

	if err := s.roundRepo.ApplyCorrection(ctx, round.ID, req.Field, value); err != nil {
		return "", "", fmt.Errorf("failed to apply correction: %w", err)
	}
	return oldValue, newValue, nil
}

func (s *correctionService) correctParticipation(ctx context.Context, req entities.CorrectionRequest) (string, string, error) {
	p, err := s.participationRepo.GetByIDForUpdate(ctx, req.TargetID)
	if err != nil {
		return "", "", fmt.Errorf("failed to get participation: %w", err)
	}
	if p == nil {
		return "", "", ErrParticipationNotFound
	}

	isWinner, err := strconv.ParseBool(strings.TrimSpace(req.NewValue))
	if err != nil {
		return "", "", fmt.Errorf("%w: is_winner must be a boolean", ErrInvalidCorrection)
	}
	if isWinner == p.IsWinner {
		return "", "", fmt.Errorf("%w: is_winner is already %t", ErrInvalidCorrection, isWinner)
	}
	if req.DryRun {
		return strconv.FormatBool(p.IsWinner), strconv.FormatBool(isWinner), nil
	}

	if err := s.participationRepo.SetWinner(ctx, p.ID, isWinner); err != nil {
		return "", "", fmt.Errorf("failed to apply correction: %w", err)
	}
	return strconv.FormatBool(p.IsWinner), strconv.FormatBool(isWinner), nil
}

func roundFieldValue(r *entities.Round, field string) string {
	switch field {
	case entities.FieldSoldShares:
		return strconv.Itoa(r.SoldShares)
	case entities.FieldParticipantCount:
		return strconv.Itoa(r.ParticipantCount)
	case entities.FieldStatus:
		return string(r.Status)
	case entities.FieldWinnerParticipationID:
		if r.WinnerParticipationID != nil {
			return *r.WinnerParticipationID
		}
	case entities.FieldWinningNumber:
		if r.WinningNumber != nil {
			return strconv.FormatInt(*r.WinningNumber, 10)
		}
	}
	return ""
}

func formatCorrectionValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case string:
		return val
	}
	return fmt.Sprint(v)
}
