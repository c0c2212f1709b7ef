package domain

import "strings"

// node is one label of the suffix trie. Children are keyed by the next
// label towards the left of a hostname, or "*".
type node struct {
	rule     *Rule
	children map[string]*node
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// tree is built once and never mutated afterwards, so concurrent lookups
// need no locking.
type tree struct {
	root *node
}

func newTree(rules []Rule) *tree {
	root := newNode()
	r := rootRule
	root.rule = &r

	t := &tree{root: root}
	for _, rule := range rules {
		t.add(rule)
	}
	return t
}

func (t *tree) add(rule Rule) {
	labels := reversedLabels(rule.Name)
	current := t.root
	for _, label := range labels {
		next, ok := current.children[label]
		if !ok {
			next = newNode()
			current.children[label] = next
		}
		current = next
	}
	r := rule
	current.rule = &r
}

// matches collects every rule found along the exact and the wildcard path
// for the reversed labels.
func (t *tree) matches(labels []string) []Rule {
	var found []Rule
	collect(t.root, labels, &found)
	return found
}

func collect(n *node, labels []string, found *[]Rule) {
	if n.rule != nil {
		*found = append(*found, *n.rule)
	}
	if len(labels) == 0 {
		return
	}

	if child, ok := n.children[labels[0]]; ok {
		collect(child, labels[1:], found)
	}
	if child, ok := n.children["*"]; ok {
		collect(child, labels[1:], found)
	}
}

func reversedLabels(name string) []string {
	labels := strings.Split(name, ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels
}
