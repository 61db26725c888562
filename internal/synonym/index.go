// Package synonym implements the in-memory synonym dictionary: an index of
// equivalence classes of words. Each class ("group") holds words that are
// mutually synonymous; adding a pair that bridges two groups merges them.
//
// The index keeps two maps that must stay mutually consistent: word -> group
// id and group id -> member set. Concurrent maps are not enough here because
// every mutation touches multiple entries across both maps, so the whole
// structure is guarded by a single read-write lock. Writers hold the
// exclusive lock for the full multi-step mutation; readers copy results out
// under the shared lock so callers never alias live internal storage.
package synonym

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/lexgrid/synonymd/pkg/errors"
)

// Outcome describes what a mutation did to the partition.
type Outcome string

const (
	// OutcomeInsert means both words were new and a fresh group was created.
	OutcomeInsert Outcome = "insert"
	// OutcomeLink means one unknown word joined the other's existing group.
	OutcomeLink Outcome = "link"
	// OutcomeMerge means two existing groups were combined into a new one.
	OutcomeMerge Outcome = "merge"
	// OutcomeNoop means the pair was already synonymous.
	OutcomeNoop Outcome = "noop"
)

// Index is a thread-safe synonym dictionary. The zero value is not usable;
// construct with New. Any number of independent Index instances may coexist.
type Index struct {
	mu     sync.RWMutex
	words  map[string]uint64
	groups map[uint64]map[string]struct{}

	// seq hands out group ids. Only ever bumped under the write lock, and
	// never reset, so a merged-away or cleared-out id can never collide with
	// a fresh one.
	seq uint64
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		words:  make(map[string]uint64),
		groups: make(map[uint64]map[string]struct{}),
	}
}

// AddPair records word1 and word2 as synonyms. Words are case-insensitive
// and trimmed; the canonical lowercase form is what gets stored. It returns
// the mutation outcome and an ErrInvalidInput error when either word is
// blank or the two canonical forms are equal.
//
// The returned partition is the same no matter the order pairs are added in
// or how calls interleave across goroutines: merging is commutative and
// associative, and each call is one atomic critical section.
func (idx *Index) AddPair(word1, word2 string) (Outcome, error) {
	w1, err := canonical(word1)
	if err != nil {
		return "", err
	}
	w2, err := canonical(word2)
	if err != nil {
		return "", err
	}
	if w1 == w2 {
		return "", fmt.Errorf("%w: a word cannot be a synonym of itself", apperrors.ErrInvalidInput)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.addPairLocked(w1, w2), nil
}

// Add records all words as mutually synonymous by chaining consecutive
// pairs: (w0,w1), (w1,w2), and so on. At least two words are required and
// the canonical forms must be pairwise distinct. The whole argument list is
// validated before the first pair is added, so a failed call never mutates
// the index. Returns one outcome per consecutive pair.
func (idx *Index) Add(words ...string) ([]Outcome, error) {
	if len(words) < 2 {
		return nil, fmt.Errorf("%w: at least two words must be passed", apperrors.ErrInvalidInput)
	}
	canon := make([]string, len(words))
	seen := make(map[string]struct{}, len(words))
	for i, w := range words {
		cw, err := canonical(w)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[cw]; dup {
			return nil, fmt.Errorf("%w: words contain duplicates", apperrors.ErrInvalidInput)
		}
		seen[cw] = struct{}{}
		canon[i] = cw
	}

	outcomes := make([]Outcome, 0, len(canon)-1)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i := 0; i < len(canon)-1; i++ {
		outcomes = append(outcomes, idx.addPairLocked(canon[i], canon[i+1]))
	}
	return outcomes, nil
}

// addPairLocked applies one pair under the already-held write lock.
func (idx *Index) addPairLocked(w1, w2 string) Outcome {
	g1, ok1 := idx.words[w1]
	g2, ok2 := idx.words[w2]

	switch {
	case !ok1 && !ok2:
		// Neither word is known yet: start a fresh group.
		gid := idx.nextID()
		idx.link(gid, w1)
		idx.link(gid, w2)
		return OutcomeInsert
	case ok1 && !ok2:
		idx.link(g1, w2)
		return OutcomeLink
	case !ok1:
		idx.link(g2, w1)
		return OutcomeLink
	case g1 == g2:
		// Already synonymous.
		return OutcomeNoop
	default:
		idx.merge(g1, g2)
		return OutcomeMerge
	}
}

// link assigns word to the group gid in both directions.
func (idx *Index) link(gid uint64, word string) {
	idx.words[word] = gid
	members, ok := idx.groups[gid]
	if !ok {
		members = make(map[string]struct{})
		idx.groups[gid] = members
	}
	members[word] = struct{}{}
}

// merge dissolves both groups and reassigns the union of their members to a
// freshly allocated id. Reusing g1 or g2 would let a reader that cached one
// of the old ids observe a half-merged group; a fresh id makes the old ones
// permanently dead.
func (idx *Index) merge(g1, g2 uint64) {
	members1 := idx.groups[g1]
	members2 := idx.groups[g2]
	delete(idx.groups, g1)
	delete(idx.groups, g2)

	for w := range members2 {
		members1[w] = struct{}{}
	}
	gid := idx.nextID()
	for w := range members1 {
		idx.words[w] = gid
	}
	idx.groups[gid] = members1
}

func (idx *Index) nextID() uint64 {
	idx.seq++
	return idx.seq
}

// Get returns the words synonymous with word, excluding word itself, sorted.
// Unknown (or blank) words yield an empty, non-nil slice. The result is a
// snapshot copy: later mutations never affect it.
func (idx *Index) Get(word string) []string {
	w := strings.ToLower(strings.TrimSpace(word))

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	gid, ok := idx.words[w]
	if !ok {
		return []string{}
	}
	members := idx.groups[gid]
	out := make([]string, 0, len(members)-1)
	for m := range members {
		if m != w {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// GetAll returns every synonym group as a slice of its members, each sorted.
// Group order is unspecified. Every group has at least two members by
// construction. All returned slices are snapshot copies.
func (idx *Index) GetAll() [][]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([][]string, 0, len(idx.groups))
	for _, members := range idx.groups {
		group := make([]string, 0, len(members))
		for m := range members {
			group = append(group, m)
		}
		sort.Strings(group)
		out = append(out, group)
	}
	return out
}

// Clear empties the dictionary. The id sequence keeps increasing across
// clears so ids from before a clear can never collide with ids after it.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.words = make(map[string]uint64)
	idx.groups = make(map[uint64]map[string]struct{})
}

// Len returns the number of distinct words in the dictionary.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.words)
}

// GroupCount returns the number of synonym groups.
func (idx *Index) GroupCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.groups)
}

// canonical trims and lowercases a word, rejecting blanks.
func canonical(word string) (string, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return "", fmt.Errorf("%w: words cannot be blank", apperrors.ErrInvalidInput)
	}
	return w, nil
}
