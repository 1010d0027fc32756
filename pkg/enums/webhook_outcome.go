package enums

import "fmt"

// WebhookOutcome is the terminal state of one webhook delivery.
type WebhookOutcome string

const (
	WebhookOutcomeApplied WebhookOutcome = "applied"
	WebhookOutcomeSkipped WebhookOutcome = "skipped"
	WebhookOutcomeFailed  WebhookOutcome = "failed"
)

var validWebhookOutcomes = []WebhookOutcome{
	WebhookOutcomeApplied,
	WebhookOutcomeSkipped,
	WebhookOutcomeFailed,
}

// IsValid reports whether the value matches a terminal webhook outcome.
func (o WebhookOutcome) IsValid() bool {
	for _, candidate := range validWebhookOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseWebhookOutcome converts the raw string to WebhookOutcome.
func ParseWebhookOutcome(value string) (WebhookOutcome, error) {
	for _, candidate := range validWebhookOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid webhook outcome %q", value)
}
