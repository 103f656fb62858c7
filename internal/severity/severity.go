// internal/severity/severity.go
package severity

// Score turns situation features into a severity in [0, 1]. Additive and
// capped: high confidence, any strong anomaly, and multi-zone spread each
// contribute independently. Consumes the prompt-JSON shape produced by the
// situation package.
func Score(state map[string]any) float64 {
	score := 0.0

	if confidence, ok := state["confidence"].(float64); ok && confidence > 0.8 {
		score += 0.3
	}

	if scores, ok := state["anomaly_scores"].([]float64); ok {
		for _, s := range scores {
			if s > 2.5 {
				score += 0.4
				break
			}
		}
	} else if scores, ok := state["anomaly_scores"].([]any); ok {
		for _, raw := range scores {
			if s, ok := raw.(float64); ok && s > 2.5 {
				score += 0.4
				break
			}
		}
	}

	if zones, ok := state["zones"].([]string); ok && len(zones) > 1 {
		score += 0.2
	} else if zones, ok := state["zones"].([]any); ok && len(zones) > 1 {
		score += 0.2
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// routeThreshold splits routine narration from situations worth the
// expensive synthesis tier.
const routeThreshold = 0.7

// SelectModel picks the model tier for a given severity score.
func SelectModel(score float64, classifierModel, synthesisModel string) string {
	if score > routeThreshold {
		return synthesisModel
	}
	return classifierModel
}
