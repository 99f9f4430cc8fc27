package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Record is a single ranked item: a sort key (for example a usage count) and
// its rendered label.
type Record struct {
	Key   int
	Label string
}

// Accumulate applies the seal-before-overflow rule to one unit. When appending
// unit to a non-empty buf would reach maxSize, buf is returned as sealed and
// next holds only unit. Otherwise sealed is empty and next is buf+unit.
func Accumulate(buf, unit string, maxSize int) (sealed, next string) {
	if buf != "" && size(buf)+size(unit) >= maxSize {
		return buf, unit
	}
	return "", buf + unit
}

// Rank orders records for a usage ranking. Unused records come first, then the
// used ones, and the whole sequence is stably sorted by key so that a used
// record with key 0 still lands in the same group as the unused ones.
func Rank(unused, used []Record) []Record {
	out := make([]Record, 0, len(unused)+len(used))
	out = append(out, unused...)
	out = append(out, used...)
	slices.SortStableFunc(out, func(a, b Record) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// Group collapses runs of adjacent records sharing a key into one formatted
// unit per run. A run starts with "\n{key} : {label}" and each further label in
// the run is appended after sep.
func Group(records []Record, sep string) []string {
	if len(records) == 0 {
		return nil
	}
	var (
		groups []string
		cur    strings.Builder
		last   int
	)
	for i, r := range records {
		if i > 0 && r.Key == last {
			cur.WriteString(sep)
			cur.WriteString(r.Label)
			continue
		}
		if i > 0 {
			groups = append(groups, cur.String())
			cur.Reset()
		}
		fmt.Fprintf(&cur, "\n%d : %s", r.Key, r.Label)
		last = r.Key
	}
	return append(groups, cur.String())
}

// Option configures a [Packer].
type Option func(*Packer)

// WithCeiling stops the packer from accepting units once the total emitted
// length would exceed n. Units past the ceiling are dropped, not deferred.
// Zero disables the ceiling.
func WithCeiling(n int) Option {
	return func(p *Packer) { p.ceiling = n }
}

// WithPreamble seeds the first chunk with a header. The preamble counts
// towards the chunk size and the ceiling like any other text.
func WithPreamble(s string) Option {
	return func(p *Packer) {
		p.buf = s
		p.total = size(s)
	}
}

// Packer accumulates units into size-capped chunks.
type Packer struct {
	maxSize   int
	ceiling   int
	buf       string
	total     int
	truncated bool
}

// NewPacker returns a Packer sealing chunks at maxSize runes. maxSize is
// supplied by the caller; there is no default.
func NewPacker(maxSize int, opts ...Option) *Packer {
	p := &Packer{maxSize: maxSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Add feeds one unit and returns the chunk it sealed, if any.
func (p *Packer) Add(unit string) (sealed string, ok bool) {
	if p.truncated {
		return "", false
	}
	n := size(unit)
	if p.ceiling > 0 && p.total+n > p.ceiling {
		p.truncated = true
		return "", false
	}
	p.total += n
	sealed, p.buf = Accumulate(p.buf, unit, p.maxSize)
	return sealed, sealed != ""
}

// Flush returns the open chunk and resets it. It returns "" when nothing is
// pending.
func (p *Packer) Flush() string {
	out := p.buf
	p.buf = ""
	return out
}

// Truncated reports whether units were dropped because of the ceiling.
func (p *Packer) Truncated() bool { return p.truncated }

// PackGroups groups ranked records and packs the groups into chunks. It
// returns the sealed chunks and the still-open remainder.
func PackGroups(records []Record, maxSize int, sep string, opts ...Option) (sealed []string, open string) {
	return PackBlocks(Group(records, sep), maxSize, opts...)
}

// PackBlocks packs pre-rendered blocks into chunks without any grouping.
func PackBlocks(blocks []string, maxSize int, opts ...Option) (sealed []string, open string) {
	p := NewPacker(maxSize, opts...)
	for _, b := range blocks {
		if chunk, ok := p.Add(b); ok {
			sealed = append(sealed, chunk)
		}
	}
	return sealed, p.Flush()
}

// Chunks appends open to sealed when it is non-empty, for callers that send
// everything.
func Chunks(sealed []string, open string) []string {
	if open == "" {
		return sealed
	}
	return append(sealed, open)
}

func size(s string) int { return utf8.RuneCountInString(s) }
