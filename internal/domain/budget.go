package domain

// PerCallBudget divides a run's token cap evenly across the participating
// agent calls plus the review and consolidation calls, after clamping the
// cap to MaxTokenCeiling. The consolidation call uses double this value.
func PerCallBudget(maxTokens, agentCount int) int {
	if maxTokens > MaxTokenCeiling {
		maxTokens = MaxTokenCeiling
	}
	if agentCount < 0 {
		agentCount = 0
	}
	return maxTokens / (agentCount + 2)
}
