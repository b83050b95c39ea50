package catalog

import "math/rand"

// OptionCount is the number of choices shown for a multiple-choice item.
const OptionCount = 4

// Options builds the choice list for target: its label plus up to three
// distractors drawn uniformly from pool, shuffled. Distractors whose label
// equals the target's are skipped so the correct answer appears exactly once.
func Options[T Entry](rnd *rand.Rand, target T, pool []T, label func(T) string) []string {
	want := label(target)
	seen := map[string]struct{}{want: {}}
	out := []string{want}
	for _, i := range rnd.Perm(len(pool)) {
		if len(out) == OptionCount {
			break
		}
		cand := pool[i]
		if cand.EntryID() == target.EntryID() {
			continue
		}
		l := label(cand)
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return Shuffle(rnd, out)
}

// Shuffle returns a shuffled copy of in.
func Shuffle[T any](rnd *rand.Rand, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
