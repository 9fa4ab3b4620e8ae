package billing

import (
	"github.com/cyder-hub/cyder-gateway/model"
)

const (
	usageTypePrompt     = "PROMPT"
	usageTypeCompletion = "COMPLETION"
	usageTypeInvocation = "INVOCATION"
)

// CalculateCost prices one relayed request's Usage against a plan's
// PriceRules. For each of PROMPT, COMPLETION, and INVOCATION it picks the
// rule with the latest effective_from that is currently active (effective_from
// <= nowMs < effective_until, or no effective_until at all), the way
// calculate_cost selects "the best-matching active price rule" per usage
// type. The result is in the plan's micro-units.
func CalculateCost(usage Usage, rules []model.PriceRule, nowMs int64) int64 {
	var total int64

	if rule, ok := bestRule(rules, usageTypePrompt, nowMs); ok && usage.InputTokens > 0 {
		total += int64(usage.InputTokens) * priceOf(rule)
	}
	if rule, ok := bestRule(rules, usageTypeCompletion, nowMs); ok && usage.OutputTokens > 0 {
		total += int64(usage.OutputTokens) * priceOf(rule)
	}
	if rule, ok := bestRule(rules, usageTypeInvocation, nowMs); ok {
		total += priceOf(rule)
	}

	return total
}

func priceOf(rule model.PriceRule) int64 {
	if rule.PriceInMicroUnits == nil {
		return 0
	}
	return *rule.PriceInMicroUnits
}

func bestRule(rules []model.PriceRule, usageType string, nowMs int64) (model.PriceRule, bool) {
	var best model.PriceRule
	found := false

	for _, r := range rules {
		if r.UsageType != usageType {
			continue
		}
		if r.EffectiveFrom > nowMs {
			continue
		}
		if r.EffectiveUntil != nil && nowMs >= *r.EffectiveUntil {
			continue
		}
		if !found || r.EffectiveFrom > best.EffectiveFrom {
			best = r
			found = true
		}
	}

	return best, found
}
