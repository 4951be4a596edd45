package notifications

import "github.com/branchwatch/social-listening-bot/internal/models"

// Notifier is the contract for alert delivery. Delivery failure is
// reported to the caller but must never abort a run.
type Notifier interface {
	SendAlert(decision *models.AlertDecision) error
}
