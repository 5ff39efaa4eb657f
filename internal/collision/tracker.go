package collision

// Tracker buckets string table entries by hash and detects hash collisions.
//
// Entries are filed in insertion order under their hash. The first string seen
// for a hash is remembered; any later string with the same hash but different
// content counts as a collision, so lookups must compare the strings behind a
// bucket instead of trusting the hash alone.
type Tracker struct {
	names      map[uint64]string // hash → first string seen
	buckets    map[uint64][]int  // hash → entry ids, insertion ordered
	collisions int
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{
		names:   make(map[uint64]string),
		buckets: make(map[uint64][]int),
	}
}

// Track files entry id holding name under hash.
//
// Returns true if a different string already occupies the same hash.
func (t *Tracker) Track(name string, hash uint64, id int) bool {
	collided := false
	if existing, exists := t.names[hash]; exists {
		if existing != name {
			collided = true
			t.collisions++
		}
	} else {
		t.names[hash] = name
	}

	t.buckets[hash] = append(t.buckets[hash], id)

	return collided
}

// Bucket returns the entry ids filed under hash, oldest first.
// The returned slice must not be modified.
func (t *Tracker) Bucket(hash uint64) []int {
	return t.buckets[hash]
}

// Collisions returns the number of entries tracked under a hash already owned
// by a different string.
func (t *Tracker) Collisions() int {
	return t.collisions
}
