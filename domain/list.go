package domain

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadRules reads rules in the Public Suffix List format
// (https://publicsuffix.org/list/). Comment lines start with "//" and only
// the first whitespace-delimited token of a line is significant.
func ReadRules(r io.Reader) ([]Rule, error) {
	var rules []Rule
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}
		if fields := strings.Fields(text); len(fields) > 0 {
			text = fields[0]
		}

		rule, err := NewRule(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read suffix list: %w", err)
	}
	return rules, nil
}
