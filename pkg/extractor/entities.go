package extractor

import (
	"regexp"
	"strings"

	"github.com/engramdev/engram/pkg/memory"
)

// commonFirstNames is the allowlist for single-word people detection.
// Open-ended capitalized-word matching produces too many false people.
var commonFirstNames = []string{
	"John", "Mary", "David", "Sarah", "Michael", "Jennifer", "Robert", "Linda",
	"William", "Elizabeth", "James", "Patricia", "Richard", "Barbara", "Joseph",
	"Jessica", "Thomas", "Susan", "Charles", "Karen", "Tim", "Tom", "Jane",
	"Bob", "Alice", "Emily", "Chris",
}

// excludedFullNames are capitalized two-word sequences that look like
// people but are not.
var excludedFullNames = map[string]bool{
	"San Francisco":     true,
	"New York":          true,
	"Los Angeles":       true,
	"Stanford Hospital": true,
	"Mary Jane":         true,
}

var (
	twoWordNamePattern = regexp.MustCompile(`\b([A-Z][a-z]+)\s+([A-Z][a-z]+)\b`)
	// a two-word match followed by one of these reads as subject+verb or
	// place+preposition, not a full name
	nameStopSuffix = regexp.MustCompile(`^\s+(?:works|lives|is|was|are|were|the|in|on)\b`)
	sentenceEnd    = regexp.MustCompile(`^\.(?:\s|$)`)

	pronounPattern   = regexp.MustCompile(`(?i)\b(he|she|they)\b`)
	firstNamePattern = regexp.MustCompile(`(?i)\b(` + strings.Join(commonFirstNames, "|") + `)\b`)

	orgSuffixPattern    = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s+(?:Inc|Corp|LLC|Ltd|Company|Corporation)\b\.?`)
	knownOrgPattern     = regexp.MustCompile(`(?i)\b(Apple|Microsoft|Google|Amazon|Facebook|Tesla|IBM|Oracle|Samsung|Sony|Intel|Cisco|Adobe|Salesforce|Uber|Airbnb|Netflix|Spotify|Twitter|Instagram|LinkedIn|PayPal|Stripe|Dropbox|Slack|Zoom|Shopify)\b`)
	placeSuffixPattern  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s+(?:City|Town|Village|State|Province|Country)\b`)
	knownCityPattern    = regexp.MustCompile(`(?i)\b(Mountain View|San Francisco|New York|Los Angeles|Chicago|Houston|Phoenix|Philadelphia|San Antonio|San Diego|Dallas|San Jose|Austin|Seattle|Denver|Washington|Boston|Detroit|Portland|Memphis|Las Vegas|Nashville|Milwaukee|Sacramento|Atlanta|Raleigh|Kansas City|Miami|Oakland|Minneapolis|New Orleans|Cleveland|Tampa|Baltimore|Arlington)\b`)
	knownWorldCityPattern = regexp.MustCompile(`(?i)\b(Paris|London|Tokyo|Beijing|Sydney|Toronto|Berlin|Rome|Madrid|Barcelona|Milan|Amsterdam|Stockholm|Copenhagen|Helsinki|Vienna|Prague|Warsaw|Budapest|Athens|Istanbul|Dubai|Singapore|Hong Kong|Seoul|Mumbai|Bangkok|Jakarta|Manila|Cairo|Lagos|Buenos Aires|Lima|Santiago|Mexico City|Montreal|Vancouver|Calgary)\b`)

	dateNumericPattern   = regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{4}\b`)
	dateISOPattern       = regexp.MustCompile(`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b`)
	dateMonthDayPattern  = regexp.MustCompile(`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},?\s+\d{4}\b`)
	dateDayMonthPattern  = regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4}\b`)

	moneySymbolPattern  = regexp.MustCompile(`[$€£]\d+(?:,\d{3})*(?:\.\d{2})?(?:[KMBkmb])?`)
	moneyWordPattern    = regexp.MustCompile(`(?i)\b\d+(?:,\d{3})*(?:\.\d{2})?\s*(?:dollars?|USD)\b`)
	percentPattern      = regexp.MustCompile(`(?i)\b\d+\s*(?:%|percent)`)
	bareNumberPattern   = regexp.MustCompile(`\b\d+\b`)
)

// Entities recognizes people, places, organizations, dates, money,
// percentages and numbers in text.
func (e *Extractor) Entities(text string) memory.Entities {
	return memory.Entities{
		People:        extractPeople(text),
		Places:        collect(text, placeSuffixPattern, knownCityPattern, knownWorldCityPattern),
		Organizations: collect(text, orgSuffixPattern, knownOrgPattern),
		Dates:         collect(text, dateNumericPattern, dateISOPattern, dateMonthDayPattern, dateDayMonthPattern),
		Money:         collect(text, moneySymbolPattern, moneyWordPattern),
		Percentages:   collect(text, percentPattern),
		Numbers:       collect(text, bareNumberPattern),
	}
}

func extractPeople(text string) []memory.Mention {
	var people []memory.Mention
	seen := map[string]bool{}

	// Two-word full names first so "John Smith" isn't also detected as a
	// bare "John". The first word must be an allowlisted first name.
	for _, m := range twoWordNamePattern.FindAllStringSubmatchIndex(text, -1) {
		full := text[m[0]:m[1]]
		first := text[m[2]:m[3]]
		rest := text[m[1]:]
		if nameStopSuffix.MatchString(rest) || sentenceEnd.MatchString(rest) {
			continue
		}
		if !isCommonFirstName(first) || excludedFullNames[full] || len(full) <= 6 || seen[full] {
			continue
		}
		people = append(people, memory.Mention{Name: full, Position: m[0]})
		seen[full] = true
		seen[first] = true
	}

	// Pronouns participate so relationship mapping can resolve them later
	for _, m := range pronounPattern.FindAllStringIndex(text, -1) {
		name := text[m[0]:m[1]]
		if seen[name] {
			continue
		}
		people = append(people, memory.Mention{Name: name, Position: m[0]})
		seen[name] = true
	}

	for _, m := range firstNamePattern.FindAllStringIndex(text, -1) {
		name := text[m[0]:m[1]]
		if seen[name] {
			continue
		}
		people = append(people, memory.Mention{Name: name, Position: m[0]})
		seen[name] = true
	}

	return people
}

func isCommonFirstName(name string) bool {
	for _, n := range commonFirstNames {
		if n == name {
			return true
		}
	}
	return false
}

// collect runs each pattern over text and returns deduplicated mentions.
// Patterns with a capture group contribute the group, otherwise the whole
// match.
func collect(text string, patterns ...*regexp.Regexp) []memory.Mention {
	var out []memory.Mention
	seen := map[int]bool{}
	for _, p := range patterns {
		for _, m := range p.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[0], m[1]
			if len(m) >= 4 && m[2] >= 0 {
				start, end = m[2], m[3]
			}
			if seen[start] {
				continue
			}
			out = append(out, memory.Mention{Name: text[start:end], Position: start})
			seen[start] = true
		}
	}
	return out
}
