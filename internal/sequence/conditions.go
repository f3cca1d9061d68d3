package sequence

import (
	"strconv"
	"strings"
)

// ConditionState is the lead state a touch condition is evaluated against.
// It is read from storage immediately before dispatch; the planner never
// caches it.
type ConditionState struct {
	HasReplied bool
	ALSScore   int
}

// EvalCondition evaluates a touch condition predicate against the current
// lead state. The grammar is closed: terms joined by "AND", where a term is
// either "no_reply" or "als_score>=N". An empty condition is true. An
// unrecognized term evaluates to false so that a malformed predicate
// withholds the touch rather than sending it.
func EvalCondition(condition string, state ConditionState) bool {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" {
		return true
	}

	for _, term := range strings.Split(trimmed, " AND ") {
		if !evalTerm(strings.TrimSpace(term), state) {
			return false
		}
	}
	return true
}

func evalTerm(term string, state ConditionState) bool {
	if term == conditionNoReply {
		return !state.HasReplied
	}

	if threshold, ok := strings.CutPrefix(term, "als_score>="); ok {
		value, err := strconv.Atoi(strings.TrimSpace(threshold))
		if err != nil {
			return false
		}
		return state.ALSScore >= value
	}

	return false
}
