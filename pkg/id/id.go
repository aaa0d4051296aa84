package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Monotonic entropy keeps IDs from the same millisecond in order.
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a fresh trade ID. IDs are ULIDs, so ledger rows sort by
// creation time when sorted by ID.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns an ID stamped with t.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// Only happens when entropy is exhausted within one millisecond.
		panic(err)
	}
	return id.String()
}

// Valid reports whether s is a well formed ID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// Time returns the creation time encoded in s.
func Time(s string) (time.Time, bool) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()), true
}
