package persist

// OrderByIDs reorders entities to match the order of ids. Identifiers
// without entity are skipped, so the result may be shorter than ids.
func OrderByIDs[K comparable, E any](ids []K, entities []E, idOf func(E) K) []E {
	lookup := make(map[K]E, len(entities))
	for _, e := range entities {
		lookup[idOf(e)] = e
	}
	out := make([]E, 0, len(ids))
	for _, id := range ids {
		if e, ok := lookup[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// MergeByID folds root entities sharing an identifier into the first one
// with that identifier, calling merge(first, other) for every other one.
// It turns the one entity per row of a one-to-many join into one entity per
// identifier, in order of first appearance.
func MergeByID[K comparable, E any](entities []E, idOf func(E) K, merge func(dst, src E)) []E {
	first := make(map[K]int, len(entities))
	out := make([]E, 0, len(entities))
	for _, e := range entities {
		id := idOf(e)
		if i, ok := first[id]; ok {
			merge(out[i], e)
			continue
		}
		first[id] = len(out)
		out = append(out, e)
	}
	return out
}
