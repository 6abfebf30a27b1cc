// Package chat turns assistant replies into display text plus menu item
// cards and keeps each guest's conversation.
package chat

import (
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"taverna/internal/models"
)

var (
	markerPattern = regexp.MustCompile(`\[ITEM_IDS:([^\]]*)\]\s*$`)
	idPattern     = regexp.MustCompile(`^[A-Za-z]*[_:#-]?(\d+)$`)
)

// Resolver matches one marker token against a catalog item
type Resolver struct {
	Name  string
	Match func(token string, item models.MenuItem) bool
}

// ByID accepts "4", "id4", "item_4" and similar
var ByID = Resolver{
	Name: "id",
	Match: func(token string, item models.MenuItem) bool {
		m := idPattern.FindStringSubmatch(token)
		if m == nil {
			return false
		}
		id, err := strconv.Atoi(m[1])
		return err == nil && id == item.ID
	},
}

var ByExactName = Resolver{
	Name: "exact_name",
	Match: func(token string, item models.MenuItem) bool {
		return strings.EqualFold(token, item.Name)
	},
}

// ByNormalizedName treats underscores as spaces
var ByNormalizedName = Resolver{
	Name: "normalized_name",
	Match: func(token string, item models.MenuItem) bool {
		return strings.EqualFold(strings.ReplaceAll(token, "_", " "), item.Name)
	},
}

// BySubstring matches when either string contains the other
var BySubstring = Resolver{
	Name: "substring",
	Match: func(token string, item models.MenuItem) bool {
		t, n := strings.ToLower(token), strings.ToLower(item.Name)
		return strings.Contains(n, t) || strings.Contains(t, n)
	},
}

// DefaultResolvers is the order tokens are tried in. The first match wins.
var DefaultResolvers = []Resolver{ByID, ByExactName, ByNormalizedName, BySubstring}

// Parsed is an assistant reply split into what the guest reads and the
// items it refers to.
type Parsed struct {
	DisplayText string
	Items       []models.MenuItem
	Unresolved  []string
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithDeduplication drops repeated items, keeping the first occurrence
func WithDeduplication() ParserOption {
	return func(p *Parser) { p.dedupe = true }
}

// WithResolvers replaces the resolver chain
func WithResolvers(resolvers ...Resolver) ParserOption {
	return func(p *Parser) { p.resolvers = resolvers }
}

// Parser extracts item references from raw assistant text
type Parser struct {
	catalog   []models.MenuItem
	resolvers []Resolver
	dedupe    bool
}

// NewParser builds a parser over the given catalog items
func NewParser(catalog []models.MenuItem, opts ...ParserOption) *Parser {
	p := &Parser{
		catalog:   append([]models.MenuItem(nil), catalog...),
		resolvers: DefaultResolvers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse strips a trailing [ITEM_IDS:...] marker, resolves its tokens and then
// reconciles items named in the text that the marker left out.
func (p *Parser) Parse(raw string) Parsed {
	display := raw
	var tokens []string
	if loc := markerPattern.FindStringSubmatchIndex(raw); loc != nil {
		display = raw[:loc[0]]
		tokens = splitTokens(raw[loc[2]:loc[3]])
	}

	out := Parsed{DisplayText: strings.TrimSpace(display)}
	for _, tok := range tokens {
		item, ok := p.Resolve(tok)
		if !ok {
			log.Printf("chat: no menu item matches %q", tok)
			out.Unresolved = append(out.Unresolved, tok)
			continue
		}
		out.Items = append(out.Items, item)
	}
	if p.dedupe {
		out.Items = dedupe(out.Items)
	}
	out.Items = p.Reconcile(out.DisplayText, out.Items)
	return out
}

// Resolve runs the resolver chain for a single token
func (p *Parser) Resolve(token string) (models.MenuItem, bool) {
	for _, r := range p.resolvers {
		for _, item := range p.catalog {
			if r.Match(token, item) {
				return item, true
			}
		}
	}
	return models.MenuItem{}, false
}

// Reconcile appends catalog items whose name appears in text but which are
// not in items yet, in order of first mention. Names match regardless of
// case but only as whole words, so "Pita" is not found in "Pitas".
func (p *Parser) Reconcile(text string, items []models.MenuItem) []models.MenuItem {
	seen := make(map[int]bool, len(items))
	for _, it := range items {
		seen[it.ID] = true
	}

	type mention struct {
		at   int
		item models.MenuItem
	}
	lower := strings.ToLower(text)
	var found []mention
	for _, item := range p.catalog {
		if seen[item.ID] || item.Name == "" {
			continue
		}
		if at := wordIndex(lower, strings.ToLower(item.Name)); at >= 0 {
			found = append(found, mention{at: at, item: item})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].at < found[j].at })

	for _, m := range found {
		items = append(items, m.item)
	}
	return items
}

// wordIndex returns the first offset of word in text that is not glued to a
// neighbouring letter or digit, or -1
func wordIndex(text, word string) int {
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], word)
		if i < 0 {
			return -1
		}
		at := from + i
		end := at + len(word)
		before, _ := utf8.DecodeLastRuneInString(text[:at])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return at
		}
		_, size := utf8.DecodeRuneInString(text[at:])
		from = at + size
	}
	return -1
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func splitTokens(list string) []string {
	var out []string
	for _, tok := range strings.Split(list, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func dedupe(items []models.MenuItem) []models.MenuItem {
	seen := make(map[int]bool, len(items))
	out := items[:0:0]
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
