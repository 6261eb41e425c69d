package order

import (
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"
)

// Expected order volume for the collision filter. Far above anything a demo
// store will see; keeps the false-positive rate negligible.
const (
	numberFilterCapacity = 1_000_000
	numberFilterFPR      = 0.001
)

// NumberGenerator produces order numbers of the form
//
//	"RC" + (unix seconds mod 100000) + random 3-digit suffix
//
// The format gives no uniqueness guarantee: two orders in the same second
// have a ~1/900 chance of colliding, and the time component wraps daily.
// Issued numbers are tracked in a bloom filter so probable collisions get
// logged, but a colliding number is still handed out unchanged — the weak
// guarantee is part of the store's observed behavior.
type NumberGenerator struct {
	lg      *zap.Logger
	now     func() time.Time
	randInt func(n int) int

	mu     sync.Mutex
	issued *bloom.BloomFilter
}

// NewNumberGenerator returns a generator using the wall clock and math/rand.
func NewNumberGenerator(lg *zap.Logger) *NumberGenerator {
	return &NumberGenerator{
		lg:      lg,
		now:     time.Now,
		randInt: rand.IntN,
		issued:  bloom.NewWithEstimates(numberFilterCapacity, numberFilterFPR),
	}
}

// Next issues the next order number.
func (g *NumberGenerator) Next() string {
	ts := g.now().Unix() % 100000
	suffix := 100 + g.randInt(900)
	number := "RC" + strconv.FormatInt(ts, 10) + strconv.Itoa(suffix)

	g.mu.Lock()
	seen := g.issued.TestAndAddString(number)
	g.mu.Unlock()

	if seen {
		g.lg.Warn("probable order number collision",
			zap.String("order_number", number),
		)
	}
	return number
}
