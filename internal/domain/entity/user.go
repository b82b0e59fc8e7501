package entity

import "time"

// User carries the per-provider generation quota counters. The rest of the
// user record (auth, billing) is owned by other services; the generation
// pipeline only reads and mutates the quota fields, always under a row lock.
type User struct {
	ID                 string
	QuotaClaudeMonthly int
	QuotaClaudeUsed    int
	QuotaGPTMonthly    int
	QuotaGPTUsed       int
	PlanRenewsAt       *time.Time
}

// QuotaRemaining returns the remaining units for the given provider,
// floored at zero.
func (u *User) QuotaRemaining(provider Provider) int {
	var monthly, used int
	switch provider {
	case ProviderOpenAI:
		monthly, used = u.QuotaGPTMonthly, u.QuotaGPTUsed
	default:
		monthly, used = u.QuotaClaudeMonthly, u.QuotaClaudeUsed
	}
	if used >= monthly {
		return 0
	}
	return monthly - used
}

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// ParseProvider maps a provider-name string to a known Provider.
// Unknown names default to Anthropic, mirroring the router behavior.
func ParseProvider(name string) Provider {
	switch name {
	case "openai", "gpt", "gpt5", "chatgpt":
		return ProviderOpenAI
	default:
		return ProviderAnthropic
	}
}
