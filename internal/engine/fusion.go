package engine

import "sort"

// Weights sets the fusion split between the two sources. They are expected
// to sum to 1.0; config validation enforces that upstream.
type Weights struct {
	Vector  float64
	Keyword float64
}

// DefaultWeights returns the standard 60/40 vector/keyword split.
func DefaultWeights() Weights {
	return Weights{Vector: 0.6, Keyword: 0.4}
}

// IsZero reports whether no weight is set at all. Explicit zeros paired
// with a nonzero counterpart are a valid way to mute one source.
func (w Weights) IsZero() bool { return w.Vector == 0 && w.Keyword == 0 }

// Fuser merges normalized per-source results into one ranked list.
type Fuser struct {
	weights Weights
}

// NewFuser creates a fuser with the given weights. A zero Weights value
// falls back to the defaults.
func NewFuser(w Weights) *Fuser {
	if w.IsZero() {
		w = DefaultWeights()
	}
	return &Fuser{weights: w}
}

// Weights returns the fuser's weight split.
func (f *Fuser) Weights() Weights { return f.weights }

// Fuse combines both sources' normalized results. Each document present in
// either list appears exactly once, scored
//
//	combined = w_v*vector + w_k*keyword
//
// with a missing source contributing 0. Results sort by combined score
// descending; ties prefer documents both sources agreed on, then ascending
// document ID, so identical inputs always produce identical output.
func (f *Fuser) Fuse(vector, keyword []NormalizedResult, topK int) []*FusedResult {
	if len(vector) == 0 && len(keyword) == 0 {
		return []*FusedResult{}
	}

	merged := make(map[string]*FusedResult, len(vector)+len(keyword))

	for _, r := range vector {
		fr := getOrCreate(merged, r.DocID)
		if fr.FromVector() {
			continue // duplicate hit, the higher-ranked one already landed
		}
		fr.VectorScore = r.Score
		fr.Sources = append(fr.Sources, SourceVector)
	}

	for _, r := range keyword {
		fr := getOrCreate(merged, r.DocID)
		if fr.FromKeyword() {
			continue
		}
		fr.KeywordScore = r.Score
		fr.Sources = append(fr.Sources, SourceKeyword)
	}

	results := make([]*FusedResult, 0, len(merged))
	for _, fr := range merged {
		fr.CombinedScore = f.weights.Vector*fr.VectorScore + f.weights.Keyword*fr.KeywordScore
		results = append(results, fr)
	}

	sortResults(results)
	return truncate(results, topK)
}

// FuseSingle ranks results from the one source that survived. The combined
// score is the normalized source score itself, unweighted, so a degraded
// response still spans [0,1].
func (f *Fuser) FuseSingle(results []NormalizedResult, topK int) []*FusedResult {
	if len(results) == 0 {
		return []*FusedResult{}
	}

	merged := make(map[string]*FusedResult, len(results))
	for _, r := range results {
		fr := getOrCreate(merged, r.DocID)
		if fr.hasSource(r.Source) {
			continue
		}
		fr.Sources = append(fr.Sources, r.Source)
		fr.CombinedScore = r.Score
		switch r.Source {
		case SourceVector:
			fr.VectorScore = r.Score
		case SourceKeyword:
			fr.KeywordScore = r.Score
		}
	}

	out := make([]*FusedResult, 0, len(merged))
	for _, fr := range merged {
		out = append(out, fr)
	}

	sortResults(out)
	return truncate(out, topK)
}

func getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if fr, ok := m[id]; ok {
		return fr
	}
	fr := &FusedResult{DocID: id}
	m[id] = fr
	return fr
}

// sortResults orders by combined score descending, then both-sources first,
// then ascending document ID.
func sortResults(results []*FusedResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		aBoth := len(a.Sources) == 2
		bBoth := len(b.Sources) == 2
		if aBoth != bBoth {
			return aBoth
		}
		return a.DocID < b.DocID
	})
}

func truncate(results []*FusedResult, topK int) []*FusedResult {
	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}
