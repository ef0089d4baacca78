// Package identity synthesizes believable browser identities for outgoing
// requests, or a well-known crawler identity when the caller would rather
// announce itself.
package identity

import (
	"fmt"

	random "github.com/mazen160/go-random"
)

// Identity is an immutable client identity. Referrer may be empty.
type Identity struct {
	UserAgent string
	Referrer  string
}

type Kind int

const (
	// KindRandom draws a plausible browser identity from the configured pools.
	KindRandom Kind = iota
	// KindCrawler announces automated access with a fixed, well-behaved bot string.
	KindCrawler
	// KindExplicit returns the configured agent unchanged.
	KindExplicit
)

// CrawlerAgent is the fixed self-identifying bot string used by KindCrawler.
const CrawlerAgent = "Mozilla/5.0 AppleWebKit/537.36 (KHTML, like Gecko; " +
	"compatible; Googlebot/2.1; +http://www.google.com/bot.html) Safari/537.36"

// DefaultAgent is used whenever the pools cannot produce an identity.
const DefaultAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// ReferrerAuto asks Headers to draw a referrer from the configured pool.
const ReferrerAuto = "auto"

var defaultSoftwares = []string{"chrome", "firefox"}

var defaultSystems = []string{"linux", "windows", "macos"}

var defaultReferrers = []string{
	"https://www.google.com",
	"https://duckduckgo.com",
	"https://www.bing.com",
	"https://www.yahoo.com",
}

var platformTokens = map[string]string{
	"linux":   "X11; Linux x86_64",
	"windows": "Windows NT 10.0; Win64; x64",
	"macos":   "Macintosh; Intel Mac OS X 10_15_7",
}

var chromeVersions = []string{"121.0.0.0", "122.0.0.0", "123.0.0.0", "124.0.0.0"}

var firefoxVersions = []string{"122.0", "123.0", "124.0", "125.0"}

// Config is read once at construction and never mutated afterwards.
// Zero values fall back to the built-in pools.
type Config struct {
	// Softwares and Systems name the (browser, OS) pools user agents are
	// synthesized from. Recognized softwares: chrome, firefox. Recognized
	// systems: linux, windows, macos.
	Softwares []string
	Systems   []string
	Referrers []string
	// Agent is the identity returned unchanged by KindExplicit.
	Agent string
	// Pick returns an index in [0, n). Defaults to a crypto-backed source.
	Pick func(n int) int
}

type Generator struct {
	softwares []string
	systems   []string
	referrers []string
	agent     string
	pick      func(n int) int
}

func defaultPick(n int) int {
	if n <= 1 {
		return 0
	}
	i, err := random.IntRange(0, n)
	if err != nil {
		return 0
	}
	return i
}

func NewGenerator(cfg Config) Generator {
	g := Generator{
		softwares: cfg.Softwares,
		systems:   cfg.Systems,
		referrers: cfg.Referrers,
		agent:     cfg.Agent,
		pick:      cfg.Pick,
	}
	if len(g.softwares) == 0 {
		g.softwares = defaultSoftwares
	}
	if len(g.systems) == 0 {
		g.systems = defaultSystems
	}
	if len(g.referrers) == 0 {
		g.referrers = defaultReferrers
	}
	if g.agent == "" {
		g.agent = DefaultAgent
	}
	if g.pick == nil {
		g.pick = defaultPick
	}
	return g
}

func (g Generator) choose(pool []string) string {
	return pool[g.pick(len(pool))%len(pool)]
}

func (g Generator) randomAgent() string {
	software := g.choose(g.softwares)
	platform, ok := platformTokens[g.choose(g.systems)]
	if !ok {
		return DefaultAgent
	}
	switch software {
	case "chrome":
		return fmt.Sprintf(
			"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36",
			platform, g.choose(chromeVersions),
		)
	case "firefox":
		version := g.choose(firefoxVersions)
		return fmt.Sprintf(
			"Mozilla/5.0 (%s; rv:%s) Gecko/20100101 Firefox/%s",
			platform, version, version,
		)
	default:
		return DefaultAgent
	}
}

// Identity produces a client identity of the given kind. It never fails:
// unrecognized pool entries degrade to DefaultAgent.
func (g Generator) Identity(kind Kind) Identity {
	switch kind {
	case KindCrawler:
		return Identity{UserAgent: CrawlerAgent}
	case KindExplicit:
		return Identity{UserAgent: g.agent}
	default:
		return Identity{UserAgent: g.randomAgent()}
	}
}

// Referrer draws one referrer uniformly from the configured pool.
func (g Generator) Referrer() string {
	return g.choose(g.referrers)
}

// Headers builds the request headers for an identity of the given kind.
// referrer may be empty (omitted), ReferrerAuto (drawn from the pool),
// or a verbatim URL.
func (g Generator) Headers(kind Kind, referrer string) map[string]string {
	h := map[string]string{
		"User-Agent": g.Identity(kind).UserAgent,
	}
	switch referrer {
	case "":
	case ReferrerAuto:
		h["Referer"] = g.Referrer()
	default:
		h["Referer"] = referrer
	}
	return h
}
