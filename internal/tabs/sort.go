package tabs

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/runnerr0/tubesort/internal/settings"
)

type valueKind int

const (
	kindMissing valueKind = iota
	kindString
	kindNumber
	kindTime
)

type value struct {
	kind valueKind
	str  string
	num  int64
	at   time.Time
}

// field resolves a sort attribute on an entry. The "duration" attribute reads
// LiveDuration. Unknown attributes resolve to a missing value.
func (e Entry) field(attr string) value {
	switch strings.ToLower(attr) {
	case "title":
		return stringValue(e.Title)
	case "author":
		return stringValue(e.Author)
	case "views":
		if !e.Cached {
			return value{}
		}
		return value{kind: kindNumber, num: e.Views}
	case "uploaddate":
		if e.UploadDate.IsZero() {
			return value{}
		}
		return value{kind: kindTime, at: e.UploadDate}
	case "duration", "liveduration":
		if e.LiveDuration == nil {
			return value{}
		}
		return value{kind: kindNumber, num: *e.LiveDuration}
	default:
		return value{}
	}
}

func stringValue(s string) value {
	if s == "" {
		return value{}
	}
	return value{kind: kindString, str: s}
}

// comparer compares values for one sort pass. It owns a collator, which is
// not safe for concurrent use.
type comparer struct {
	coll *collate.Collator
}

func newComparer() *comparer {
	return &comparer{
		coll: collate.New(language.Und, collate.IgnoreCase, collate.Numeric),
	}
}

// compare orders two values naturally. Missing values sort after present
// ones. Values of different kinds compare by kind.
func (c *comparer) compare(a, b value) int {
	switch {
	case a.kind == kindMissing && b.kind == kindMissing:
		return 0
	case a.kind == kindMissing:
		return 1
	case b.kind == kindMissing:
		return -1
	case a.kind != b.kind:
		return cmp.Compare(a.kind, b.kind)
	}

	switch a.kind {
	case kindString:
		return c.coll.CompareString(a.str, b.str)
	case kindNumber:
		return cmp.Compare(a.num, b.num)
	case kindTime:
		return a.at.Compare(b.at)
	}
	return 0
}

// Sort returns entries ordered by rules, position 0 being the primary key.
// Each rule's Asc flag inverts that key only. Entries equal on every key keep
// their input order. The input slice is not modified.
func Sort(entries []Entry, rules []settings.SortRule) []Entry {
	out := slices.Clone(entries)
	c := newComparer()

	slices.SortStableFunc(out, func(a, b Entry) int {
		for _, r := range rules {
			res := c.compare(a.field(r.Attr), b.field(r.Attr))
			if r.Asc {
				res = -res
			}
			if res != 0 {
				return res
			}
		}
		return 0
	})
	return out
}
