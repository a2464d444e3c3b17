package urlclass

// Entry is one ranked URL after normalization and classification.
type Entry struct {
	Rank  int    // 1-based position among the partitioned inputs
	Raw   string // URL as returned by the search provider
	URL   string // normalized URL, or Raw when unresolvable
	Class Classification
	// Resolvable is false for inputs Normalize rejected. Such entries sit in
	// the Unknown bucket for the audit trail but are never assessed.
	Resolvable bool
}

// Buckets partitions a ranked URL list by classification. Each bucket keeps
// ranking order and every distinct URL appears in exactly one bucket.
type Buckets struct {
	Listing    []Entry
	Detail     []Entry
	Irrelevant []Entry
	Unknown    []Entry
}

// Partition normalizes and classifies urls in ranking order. Duplicates after
// normalization are suppressed: the first occurrence decides the bucket.
func (pc PathConfig) Partition(urls []string, known KnownSet) Buckets {
	var b Buckets
	seen := make(map[string]struct{}, len(urls))

	for i, raw := range urls {
		u, ok := pc.Normalize(raw)
		key := u
		if !ok {
			key = "\x00" + raw
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		e := Entry{Rank: i + 1, Raw: raw, URL: u, Resolvable: ok}
		if !ok {
			e.URL = raw
			e.Class = Unknown
		} else {
			e.Class = pc.Classify(u, known)
		}
		b.add(e)
	}
	return b
}

func (b *Buckets) add(e Entry) {
	switch e.Class {
	case KnownListing:
		b.Listing = append(b.Listing, e)
	case KnownDetail:
		b.Detail = append(b.Detail, e)
	case Irrelevant:
		b.Irrelevant = append(b.Irrelevant, e)
	default:
		b.Unknown = append(b.Unknown, e)
	}
}

// Get returns the bucket for c.
func (b Buckets) Get(c Classification) []Entry {
	switch c {
	case KnownListing:
		return b.Listing
	case KnownDetail:
		return b.Detail
	case Irrelevant:
		return b.Irrelevant
	default:
		return b.Unknown
	}
}

// Len is the number of distinct URLs across all buckets.
func (b Buckets) Len() int {
	return len(b.Listing) + len(b.Detail) + len(b.Irrelevant) + len(b.Unknown)
}

// Counts returns the size of each bucket keyed by classification.
func (b Buckets) Counts() map[Classification]int {
	return map[Classification]int{
		KnownListing: len(b.Listing),
		KnownDetail:  len(b.Detail),
		Irrelevant:   len(b.Irrelevant),
		Unknown:      len(b.Unknown),
	}
}

// URLs returns the URLs of each bucket keyed by classification; empty buckets
// map to empty, non-nil slices.
func (b Buckets) URLs() map[Classification][]string {
	out := make(map[Classification][]string, len(Classifications))
	for _, c := range Classifications {
		entries := b.Get(c)
		list := make([]string, 0, len(entries))
		for _, e := range entries {
			list = append(list, e.URL)
		}
		out[c] = list
	}
	return out
}
