package chatter

// Dedupe filters new entries against the existing set and against the
// batch itself, preserving generation order. Only exact matches under
// the normalized-key relation are duplicates; partial overlap keeps
// the entry.
func Dedupe(newEntries, existing []Entry) (kept []Entry, skipped int) {
	seen := make(map[string]struct{}, len(existing)+len(newEntries))
	for _, e := range existing {
		seen[e.Key()] = struct{}{}
	}
	for _, e := range newEntries {
		k := e.Key()
		if _, dup := seen[k]; dup {
			skipped++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, e)
	}
	return kept, skipped
}
