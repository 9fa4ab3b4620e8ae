// Package accessgate evaluates an AccessControlPolicy's ordered rules
// against a (provider, model) pair, the same gate used both on the hot
// path and by the models-listing endpoint to filter the advertised catalog.
package accessgate

import (
	"sort"

	"github.com/cyder-hub/cyder-gateway/model"
)

// Verdict is the outcome of evaluating a policy.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Evaluate sorts the policy's enabled rules by descending priority and
// returns the first applying rule's verdict, falling back to the policy's
// default_action when no rule applies.
func Evaluate(policy model.AccessControlPolicy, providerID, modelID int64) Verdict {
	rules := make([]model.AccessControlRule, len(policy.Rules))
	copy(rules, policy.Rules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })

	for _, rule := range rules {
		if !applies(rule, providerID, modelID) {
			continue
		}
		return verdictFor(rule.RuleType, "rule "+ruleLabel(rule))
	}

	return verdictFor(policy.DefaultAction, "default_action")
}

func applies(rule model.AccessControlRule, providerID, modelID int64) bool {
	if !rule.Enabled {
		return false
	}
	switch rule.Scope {
	case model.RuleScopeModel:
		return rule.ModelID != nil && *rule.ModelID == modelID
	case model.RuleScopeProvider:
		return rule.ProviderID != nil && *rule.ProviderID == providerID
	default:
		return false
	}
}

func verdictFor(action model.Action, reason string) Verdict {
	if action == model.ActionAllow {
		return Verdict{Allowed: true}
	}
	return Verdict{Allowed: false, Reason: reason}
}

func ruleLabel(rule model.AccessControlRule) string {
	if rule.Scope == model.RuleScopeModel && rule.ModelID != nil {
		return "model match"
	}
	return "provider match"
}
