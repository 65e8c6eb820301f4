package browse

import (
	"regexp"
	"strings"

	"github.com/sahilm/fuzzy"

	"comicweek/internal/releases"
)

// FilterConfig bundles tuning parameters for the fuzzy title filter.
type FilterConfig struct {
	MinCoverage float64 // minimal share of the query that must match
	MaxSpread   int     // maximal distance between first and last match index
	MaxResults  int     // upper limit of returned results
}

// DefaultFilterConfig keeps matches tight enough for short comic titles.
var DefaultFilterConfig = FilterConfig{
	MinCoverage: 0.6,
	MaxSpread:   40,
	MaxResults:  200,
}

// Projection is the local view filter applied to the visible page. It never
// changes what was fetched.
type Projection struct {
	SingleIssues bool
	Query        string
	Config       FilterConfig
}

// Active reports whether the projection hides anything.
func (p Projection) Active() bool {
	return p.SingleIssues || strings.TrimSpace(p.Query) != ""
}

// Apply runs the enabled predicates over items.
func (p Projection) Apply(items []releases.Release) []releases.Release {
	out := items
	if p.SingleIssues {
		out = Filter(out, SingleIssuesOnly)
	}
	if q := strings.TrimSpace(p.Query); q != "" {
		cfg := p.Config
		if cfg.MaxResults == 0 {
			cfg = DefaultFilterConfig
		}
		out = FuzzyTitle(out, q, cfg)
	}
	return out
}

// Filter returns the items for which keep reports true, in order.
func Filter(items []releases.Release, keep func(releases.Release) bool) []releases.Release {
	out := make([]releases.Release, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

var issueNumber = regexp.MustCompile(`#\s*\d+`)

var collectedFormats = []string{"trade paperback", "tpb", "hardcover", "omnibus", "graphic novel", "collection", "digest"}

// SingleIssuesOnly keeps single comic issues and drops collected editions.
func SingleIssuesOnly(r releases.Release) bool {
	format := strings.ToLower(strings.TrimSpace(r.Format))
	for _, c := range collectedFormats {
		if strings.Contains(format, c) {
			return false
		}
	}
	return format == "" || format == "comic" || issueNumber.MatchString(r.Title)
}

// FuzzyTitle matches q against titles and prunes matches by coverage and
// spread thresholds. If nothing survives pruning, the best raw matches are kept.
// Results come in match order, best first.
func FuzzyTitle(items []releases.Release, q string, cfg FilterConfig) []releases.Release {
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = strings.ToLower(it.DisplayTitle())
	}
	q = strings.ToLower(q)
	matches := fuzzy.Find(q, titles)

	pruned := make([]releases.Release, 0, len(matches))
	for _, mt := range matches {
		if matchCoverage(q, mt) < cfg.MinCoverage {
			continue
		}
		if matchSpread(mt) > cfg.MaxSpread {
			continue
		}
		pruned = append(pruned, items[mt.Index])
		if len(pruned) >= cfg.MaxResults {
			break
		}
	}
	if len(pruned) == 0 {
		for i := 0; i < len(matches) && i < cfg.MaxResults; i++ {
			pruned = append(pruned, items[matches[i].Index])
		}
	}
	return pruned
}

// matchCoverage returns the ratio of matched characters to the query length.
func matchCoverage(q string, m fuzzy.Match) float64 {
	if len(q) == 0 {
		return 1
	}
	return float64(len(m.MatchedIndexes)) / float64(len(q))
}

// matchSpread returns the distance between the first and last matched index.
func matchSpread(m fuzzy.Match) int {
	if len(m.MatchedIndexes) == 0 {
		return 0
	}
	return m.MatchedIndexes[len(m.MatchedIndexes)-1] - m.MatchedIndexes[0]
}
