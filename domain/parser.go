package domain

import (
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// Info is the classification of a hostname against the suffix rules.
type Info struct {
	// Hostname is the normalised input.
	Hostname string
	// TLD is the public suffix, e.g. "co.uk".
	TLD string
	// Domain is the label directly left of the suffix, e.g. "example".
	Domain string
	// RegistrableDomain is Domain plus TLD, e.g. "example.co.uk".
	RegistrableDomain string
	// SubDomain holds the labels left of RegistrableDomain, or "".
	SubDomain string
	// Rule is the winning suffix rule.
	Rule Rule
}

// Parser classifies hostnames. It is safe for concurrent use.
type Parser struct {
	tree *tree
}

// NewParser builds the suffix tree for rules. With no rules every
// right-most label is treated as a public suffix.
func NewParser(rules ...Rule) *Parser {
	return &Parser{tree: newTree(rules)}
}

// Parse splits host into subdomain, registrable domain and public suffix.
func (p *Parser) Parse(host string) (*Info, error) {
	normalized, err := normalize(host)
	if err != nil {
		return nil, &ParseError{Host: host, Reason: ReasonInvalidPart, Err: err}
	}

	labels := strings.Split(normalized, ".")
	for _, label := range labels {
		if label == "" {
			return nil, &ParseError{Host: host, Reason: ReasonInvalidPart}
		}
	}

	winner := p.winningRule(reversedLabels(normalized))

	if len(labels) == winner.LabelCount {
		perr := &ParseError{Host: host, Rule: &winner, Reason: ReasonUnknownDomain}
		switch {
		case winner.Kind == Wildcard && strings.HasSuffix(normalized, winner.Name[1:]):
			perr.Reason = ReasonPublicSuffix
		case normalized == winner.Name:
			perr.Reason = ReasonPublicSuffix
		}
		return nil, perr
	}

	return newInfo(normalized, winner), nil
}

// IsValidDomain reports whether host parses into a registrable domain.
func (p *Parser) IsValidDomain(host string) bool {
	_, err := p.Parse(host)
	return err == nil
}

func (p *Parser) winningRule(reversed []string) Rule {
	candidates := p.tree.matches(reversed)
	// The root rule is always a candidate.
	winner := candidates[0]
	for _, c := range candidates[1:] {
		if c.outranks(winner) {
			winner = c
		}
	}
	return winner
}

func normalize(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", errEmptyHost
	}
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return "", errIPAddress
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", err
	}
	return strings.ToLower(ascii), nil
}

func newInfo(host string, rule Rule) *Info {
	reversed := reversedLabels(host)

	info := &Info{
		Hostname:          host,
		Domain:            reversed[rule.LabelCount],
		RegistrableDomain: joinReversed(reversed[:rule.LabelCount+1]),
		SubDomain:         joinReversed(reversed[rule.LabelCount+1:]),
		Rule:              rule,
	}
	if rule.Kind == Normal {
		info.TLD = rule.Name
	} else {
		info.TLD = joinReversed(reversed[:rule.LabelCount])
	}
	return info
}

func joinReversed(labels []string) string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[len(labels)-1-i] = l
	}
	return strings.Join(out, ".")
}
