package customers

import (
	"strings"
	"time"
)

// Customer is keyed by normalized phone number.
type Customer struct {
	Phone       string    `dynamodbav:"phone" json:"phone"` // PK, E.164
	Name        string    `dynamodbav:"name" json:"name"`
	Email       string    `dynamodbav:"email,omitempty" json:"email,omitempty"`
	IsDubious   bool      `dynamodbav:"is_dubious" json:"isDubious"`
	TotalOrders int       `dynamodbav:"total_orders" json:"totalOrders"`
	TotalSpent  float64   `dynamodbav:"total_spent" json:"totalSpent"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// AgeDays is the number of whole days since the customer was created.
func (c *Customer) AgeDays(now time.Time) int {
	if now.Before(c.CreatedAt) {
		return 0
	}
	return int(now.Sub(c.CreatedAt) / (24 * time.Hour))
}

// NormalizePhone reduces a phone number to E.164. Bare Indian numbers (10
// digits, optionally 0- or 91-prefixed) get +91; numbers already carrying
// a + keep their country code. Returns "" when nothing usable is left.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	international := strings.HasPrefix(raw, "+")

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case digits == "":
		return ""
	case international:
		return "+" + digits
	case len(digits) == 10:
		return "+91" + digits
	case len(digits) == 11 && digits[0] == '0':
		return "+91" + digits[1:]
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		return "+" + digits
	default:
		return "+" + digits
	}
}
