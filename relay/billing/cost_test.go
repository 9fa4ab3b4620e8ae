package billing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cyder-hub/cyder-gateway/model"
)

func micro(v int64) *int64 { return &v }

func TestCalculateCost_PromptAndCompletionAndInvocation(t *testing.T) {
	rules := []model.PriceRule{
		{UsageType: "PROMPT", EffectiveFrom: 0, PriceInMicroUnits: micro(10)},
		{UsageType: "COMPLETION", EffectiveFrom: 0, PriceInMicroUnits: micro(20)},
		{UsageType: "INVOCATION", EffectiveFrom: 0, PriceInMicroUnits: micro(500)},
	}

	usage := Usage{InputTokens: 3, OutputTokens: 2}
	cost := CalculateCost(usage, rules, 1000)

	require.Equal(t, int64(3*10+2*20+500), cost)
}

func TestCalculateCost_PicksLatestEffectiveFrom(t *testing.T) {
	rules := []model.PriceRule{
		{UsageType: "PROMPT", EffectiveFrom: 0, PriceInMicroUnits: micro(10)},
		{UsageType: "PROMPT", EffectiveFrom: 500, PriceInMicroUnits: micro(99)},
	}

	cost := CalculateCost(Usage{InputTokens: 1}, rules, 1000)
	require.Equal(t, int64(99), cost)
}

func TestCalculateCost_ExpiredRuleIgnored(t *testing.T) {
	until := int64(500)
	rules := []model.PriceRule{
		{UsageType: "PROMPT", EffectiveFrom: 0, EffectiveUntil: &until, PriceInMicroUnits: micro(10)},
	}

	cost := CalculateCost(Usage{InputTokens: 1}, rules, 1000)
	require.Equal(t, int64(0), cost)
}

func TestCalculateCost_FutureRuleIgnored(t *testing.T) {
	rules := []model.PriceRule{
		{UsageType: "PROMPT", EffectiveFrom: 2000, PriceInMicroUnits: micro(10)},
	}

	cost := CalculateCost(Usage{InputTokens: 1}, rules, 1000)
	require.Equal(t, int64(0), cost)
}
