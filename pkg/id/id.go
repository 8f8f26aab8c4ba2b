// Package id generates identifiers for hedge relationships, regression
// batches and journal events.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"strings"
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

	// Monotonic keeps IDs minted in the same millisecond ordered.
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string. IDs sort by creation time, so SQLite listings
// ordered by id come out oldest first.
func New() string {
	return NewAt(time.Now())
}

// NewAt returns a ULID stamped with t.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// only on entropy failure or a timestamp past year 10889
		panic(err)
	}
	return id.String()
}

// Prefixed returns prefix-ULID, e.g. "HR-01HZY...".
func Prefixed(prefix string) string {
	return strings.ToUpper(prefix) + "-" + New()
}

// Time extracts the creation time of a ULID, with or without prefix.
func Time(s string) (time.Time, error) {
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		s = s[i+1:]
	}
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}
