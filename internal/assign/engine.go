// Package assign picks which source image of a category pool goes into each
// output folder, keeping recently used images on cooldown.
package assign

import (
	"errors"
	"math/rand"
	"time"

	"github.com/electronjoe/sitestamp/internal/pool"
)

// DefaultSuffix is the ledger suffix for single-stream categories.
const DefaultSuffix = "default"

// ErrEmptyPool is returned when a category has no candidate images.
var ErrEmptyPool = errors.New("category pool is empty")

// Key identifies one ledger entry.
type Key struct {
	Category string
	File     string
	Suffix   string
}

// Ledger records the output-folder index at which each (category, file,
// suffix) was last assigned. Entries are only ever added or overwritten.
type Ledger struct {
	last map[Key]int
}

func NewLedger() *Ledger {
	return &Ledger{last: make(map[Key]int)}
}

// LastUsed returns the last index for k, or -gap-1 when k was never used so
// that it is always eligible.
func (l *Ledger) LastUsed(k Key, gap int) int {
	if idx, ok := l.last[k]; ok {
		return idx
	}
	return -gap - 1
}

// Record stores idx as the last use of k.
func (l *Ledger) Record(k Key, idx int) {
	l.last[k] = idx
}

func (l *Ledger) Len() int { return len(l.last) }

// Assignment is the chosen source for one (output folder, category, suffix).
type Assignment struct {
	Folder   string
	Index    int
	Category string
	Suffix   string // empty for single-stream categories
	Source   string // full source path
	Dest     string // destination file name inside the output folder
	Base     time.Time
}

// Engine selects images from category pools. It is not safe for concurrent use.
type Engine struct {
	ledger *Ledger
	rng    *rand.Rand
}

// NewEngine returns an Engine drawing from rng.
func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{ledger: NewLedger(), rng: rng}
}

func (e *Engine) Ledger() *Ledger { return e.ledger }

// Eligible returns the files of p whose cooldown has expired at idx for suffix:
// idx - lastUsed > gap.
func (e *Engine) Eligible(p pool.CategoryPool, idx int, suffix string) []string {
	var eligible []string
	for _, f := range p.Files {
		last := e.ledger.LastUsed(Key{p.Category, f, suffix}, p.Gap)
		if idx-last > p.Gap {
			eligible = append(eligible, f)
		}
	}
	return eligible
}

// Pick selects one file of p for output folder idx. When every file is still
// on cooldown it falls back to the whole pool.
func (e *Engine) Pick(p pool.CategoryPool, idx int, suffix string) (string, error) {
	if p.Empty() {
		return "", ErrEmptyPool
	}
	chosen := e.choose(e.Eligible(p, idx, suffix), p.Files)
	e.ledger.Record(Key{p.Category, chosen, suffix}, idx)
	return chosen, nil
}

// PickPair selects files for two parallel streams of p at idx. The second
// stream never repeats the first stream's choice unless the pool has only one file.
func (e *Engine) PickPair(p pool.CategoryPool, idx int, first, second string) (string, string, error) {
	if p.Empty() {
		return "", "", ErrEmptyPool
	}
	eligibleFirst := e.Eligible(p, idx, first)
	eligibleSecond := e.Eligible(p, idx, second)

	a := e.choose(eligibleFirst, p.Files)
	eligibleSecond = without(eligibleSecond, a)

	var b string
	switch {
	case len(eligibleSecond) > 0:
		b = e.choose(eligibleSecond, nil)
	case len(p.Files) > 1:
		b = e.choose(without(p.Files, a), nil)
	default:
		b = a
	}

	e.ledger.Record(Key{p.Category, a, first}, idx)
	e.ledger.Record(Key{p.Category, b, second}, idx)
	return a, b, nil
}

func (e *Engine) choose(eligible, fallback []string) string {
	if len(eligible) == 0 {
		eligible = fallback
	}
	return eligible[e.rng.Intn(len(eligible))]
}

func without(files []string, drop string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f != drop {
			out = append(out, f)
		}
	}
	return out
}

// DestName is the file name a selection gets in its output folder:
// "<category><ext>" or "<category> (<suffix>)<ext>".
func DestName(category, suffix, ext string) string {
	if suffix == "" || suffix == DefaultSuffix {
		return category + ext
	}
	return category + " (" + suffix + ")" + ext
}
