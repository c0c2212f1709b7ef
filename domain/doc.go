/*
Package domain classifies hostnames into subdomain, registrable domain and
public suffix using a trie of public suffix rules.

	parser := domain.NewParser(domain.MustRule("co.uk"), domain.MustRule("*.ck"))
	info, err := parser.Parse("www.example.co.uk")
	// info.SubDomain == "www", info.RegistrableDomain == "example.co.uk"

A hostname that is itself a public suffix, such as "co.uk", is rejected with
a *ParseError. Rules for the full list can be loaded with ReadRules.
*/
package domain
