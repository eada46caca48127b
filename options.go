package readably

import (
	"regexp"
	"time"

	"golang.org/x/net/html"
)

const (
	// Max number of elements the lenient parser will build. Default: 0 (no limit).
	defaultMaxElemsToParse = 0
	// The number of top candidates to consider when analysing how
	// tight the competition is among candidates.
	defaultNTopCandidates = 5
	// The default number of chars an article must have in order to return a result.
	defaultCharThreshold = 500
	// Wall-clock budget for a single run. Generous for real pages,
	// bounded for adversarial ones.
	defaultBudget = 10 * time.Second
)

// Options is the per-run configuration. It is consumed once at the start of
// a run and never mutated afterwards.
type Options struct {
	maxElemsToParse     int
	nbTopCandidates     int
	charThreshold       int
	classesToPreserve   []string
	keepClasses         bool
	disableJSONLD       bool
	linkDensityModifier float64
	debug               bool
	budget              time.Duration
	serializer          func(string) string
	allowedVideoRegex   *regexp.Regexp
	minContentLength    int
	minScore            float64
	visibilityChecker   func(*html.Node) bool
}

type Option func(*Options)

func defaultOpts() *Options {
	return &Options{
		maxElemsToParse:   defaultMaxElemsToParse,
		nbTopCandidates:   defaultNTopCandidates,
		charThreshold:     defaultCharThreshold,
		classesToPreserve: preservedClasses,
		allowedVideoRegex: videos,
		budget:            defaultBudget,
		minScore:          20,
		minContentLength:  140,
		visibilityChecker: isNodeVisible,
	}
}

// MaxElemsToParse caps how many elements the parser builds; once the cap is
// hit, parsing stops and extraction proceeds on the truncated tree.
// Zero means unbounded.
func MaxElemsToParse(n int) Option {
	return func(o *Options) {
		o.maxElemsToParse = n
	}
}

// NTopCandidates sets the breadth of the candidate search.
func NTopCandidates(n int) Option {
	return func(o *Options) {
		o.nbTopCandidates = n
	}
}

// CharThreshold sets the minimum accepted body text length, in runes.
func CharThreshold(n int) Option {
	return func(o *Options) {
		o.charThreshold = n
	}
}

// ClassesToPreserve adds class names that survive class stripping when
// KeepClasses is off.
func ClassesToPreserve(classes ...string) Option {
	return func(o *Options) {
		o.classesToPreserve = append(o.classesToPreserve, classes...)
	}
}

// KeepClasses keeps all CSS classes on the emitted markup.
func KeepClasses(b bool) Option {
	return func(o *Options) {
		o.keepClasses = b
	}
}

// DisableJSONLD skips structured-data metadata parsing.
func DisableJSONLD(b bool) Option {
	return func(o *Options) {
		o.disableJSONLD = b
	}
}

// LinkDensityModifier is added to the link-density ceilings used while
// conditionally cleaning the article. Positive values tolerate more links.
func LinkDensityModifier(f float64) Option {
	return func(o *Options) {
		o.linkDensityModifier = f
	}
}

// Debug enables verbose diagnostics on stderr. It changes no behavior.
func Debug(b bool) Option {
	return func(o *Options) {
		o.debug = b
	}
}

// Budget sets the wall-clock budget for one run. Zero disables the check.
func Budget(d time.Duration) Option {
	return func(o *Options) {
		o.budget = d
	}
}

// Serializer post-processes the article HTML before it lands in the
// result, e.g. to pretty-print or minify it. The default emits the
// markup as-is.
func Serializer(fn func(html string) string) Option {
	return func(o *Options) {
		o.serializer = fn
	}
}

// AllowedVideoRegex overrides the allow-list used to keep video embeds.
func AllowedVideoRegex(rgx *regexp.Regexp) Option {
	return func(o *Options) {
		o.allowedVideoRegex = rgx
	}
}

// MinContentLength sets the minimum node content length the pre-check
// counts toward its score.
func MinContentLength(n int) Option {
	return func(o *Options) {
		o.minContentLength = n
	}
}

// MinScore sets the cumulated score at which the pre-check accepts.
func MinScore(score float64) Option {
	return func(o *Options) {
		o.minScore = score
	}
}

// VisibilityChecker overrides how the pre-check decides a node is visible.
func VisibilityChecker(f func(*html.Node) bool) Option {
	return func(o *Options) {
		o.visibilityChecker = f
	}
}
