package services

import (
	"context"
	"fmt"
	"strings"

	"drawpool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// operatorGate authorizes a fixed set of operator ids for every privileged action
type operatorGate struct {
	operators map[string]struct{}
}

// NewOperatorGate creates a gate that admits the given operator ids
func NewOperatorGate(operatorIDs []string) interfaces.AuthorizationGate {
	operators := make(map[string]struct{}, len(operatorIDs))
	for _, id := range operatorIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			operators[id] = struct{}{}
		}
	}
	return &operatorGate{operators: operators}
}

func (g *operatorGate) Authorize(ctx context.Context, operatorID string, action interfaces.OperatorAction) error {
	if operatorID == "" {
		return fmt.Errorf("%w: operator id is required for %s", ErrUnauthorized, action)
	}
	if _, ok := g.operators[operatorID]; !ok {
		log.WithFields(log.Fields{
			"operatorID": operatorID,
			"action":     action,
		}).Warn("Rejected unauthorized operator action")
		return fmt.Errorf("%w: %s may not %s", ErrUnauthorized, operatorID, action)
	}
	return nil
}
