package engine

// Normalize maps one source's raw scores onto [0,1], preserving the
// source's rank order. Scaling is batch-local: the best score in the batch
// becomes 1.0 and nothing carries over between requests.
//
// Similarity-style scores divide by the batch maximum. L2 distances invert
// via 1/(1+distance) first, so nearer means higher, then scale the same way.
func Normalize(candidates []Candidate, metric MetricHint) []NormalizedResult {
	if len(candidates) == 0 {
		return []NormalizedResult{}
	}

	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.RawScore
		if metric == MetricL2 {
			scores[i] = 1.0 / (1.0 + c.RawScore)
		}
	}

	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	// A batch whose best score is not positive carries no ranking signal.
	// Report zeros rather than dividing by it.
	results := make([]NormalizedResult, len(candidates))
	for i, c := range candidates {
		score := 0.0
		if maxScore > 0 {
			score = clamp01(scores[i] / maxScore)
		}
		results[i] = NormalizedResult{DocID: c.DocID, Score: score, Source: c.Source}
	}
	return results
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
