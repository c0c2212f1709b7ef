package domain

import (
	"errors"
	"strings"
)

// RuleKind describes how a Rule matches labels.
type RuleKind int

const (
	// Normal rules match their labels literally, e.g. "co.uk".
	Normal RuleKind = iota
	// Wildcard rules match any label in the "*" position, e.g. "*.ck".
	Wildcard
	// WildcardException rules carve a name out of a wildcard, e.g. "!www.ck".
	WildcardException
)

func (k RuleKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case Wildcard:
		return "wildcard"
	case WildcardException:
		return "wildcard-exception"
	default:
		return "unknown"
	}
}

var (
	// ErrEmptyRule is returned when the rule text is blank.
	ErrEmptyRule = errors.New("rule data is empty")
	// ErrEmptyRulePart is returned when the rule has an empty label, e.g. "co..uk".
	ErrEmptyRulePart = errors.New("rule contains empty part")
	// ErrWildcardSyntax is returned when "*" is used other than as a whole label.
	ErrWildcardSyntax = errors.New("wildcard syntax not correct")
)

// Rule is a single public suffix rule. Rules are compared by Name.
type Rule struct {
	// Name is the lower-cased rule without the leading "!" of exceptions.
	Name string
	Kind RuleKind
	// LabelCount is the number of labels the suffix covers. For exceptions
	// the removed left-most label is not counted.
	LabelCount int
}

// rootRule is the implicit "*" rule: any unknown TLD is a public suffix.
var rootRule = Rule{Name: "*", Kind: Wildcard, LabelCount: 1}

// NewRule parses one line of a public suffix list.
func NewRule(text string) (Rule, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Rule{}, ErrEmptyRule
	}

	parts := strings.Split(text, ".")
	for _, part := range parts {
		if part == "" {
			return Rule{}, ErrEmptyRulePart
		}
		if strings.Contains(part, "*") && part != "*" {
			return Rule{}, ErrWildcardSyntax
		}
	}

	switch {
	case strings.HasPrefix(text, "!"):
		return Rule{
			Name:       text[1:],
			Kind:       WildcardException,
			LabelCount: len(parts) - 1,
		}, nil
	case strings.Contains(text, "*"):
		return Rule{Name: text, Kind: Wildcard, LabelCount: len(parts)}, nil
	default:
		return Rule{Name: text, Kind: Normal, LabelCount: len(parts)}, nil
	}
}

// MustRule is like NewRule but panics on invalid input. It is meant for
// rule tables declared at package level.
func MustRule(text string) Rule {
	r, err := NewRule(text)
	if err != nil {
		panic("domain: invalid rule " + text + ": " + err.Error())
	}
	return r
}

func (r Rule) String() string {
	if r.Kind == WildcardException {
		return "!" + r.Name
	}
	return r.Name
}

// outranks reports whether r wins over o when both match the same host.
func (r Rule) outranks(o Rule) bool {
	re, oe := r.Kind == WildcardException, o.Kind == WildcardException
	if re != oe {
		return re
	}
	if r.LabelCount != o.LabelCount {
		return r.LabelCount > o.LabelCount
	}
	return r.Name > o.Name
}
