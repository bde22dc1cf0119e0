// Package parser extracts name literals, authorities and years from usage
// citations, and ascription chains from path expressions.
package parser

import (
	"regexp"
	"strings"
)

var (
	// Genus (capitalised) followed by lower-case epithets and rank markers,
	// then an optional author part with an optional year.
	citationRe = regexp.MustCompile(`^([A-Z][^\s(),]*(?:\s+[a-z×][^\s(),]*)*)(?:\s+(.*))?$`)
	authorRe   = regexp.MustCompile(`^\(?\s*(.*?)\s*(?:,\s*(\d{4}))?\s*\)?$`)
	yearOnlyRe = regexp.MustCompile(`^\(?\s*(\d{4})\s*\)?$`)
)

// Citation is the parsed form of a usage citation such as
// "Homo sapiens Linnaeus, 1758".
type Citation struct {
	Literal   string
	Authority string
	Year      string
	// Parenthesized marks an author in parentheses, i.e. a name moved from
	// its original genus.
	Parenthesized bool
}

// ParseCitation splits s into literal, authority and year. Input that does
// not start with a capitalised word is returned whole as the literal.
func ParseCitation(s string) Citation {
	s = strings.Join(strings.Fields(s), " ")
	m := citationRe.FindStringSubmatch(s)
	if m == nil {
		return Citation{Literal: s}
	}
	c := Citation{Literal: m[1]}
	rest := strings.TrimSpace(m[2])
	if rest == "" {
		return c
	}
	c.Parenthesized = strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")")
	if y := yearOnlyRe.FindStringSubmatch(rest); y != nil {
		c.Year = y[1]
		return c
	}
	if a := authorRe.FindStringSubmatch(rest); a != nil {
		c.Authority = a[1]
		c.Year = a[2]
	}
	return c
}

// String reassembles the citation in its canonical spacing.
func (c Citation) String() string {
	var b strings.Builder
	b.WriteString(c.Literal)
	if c.Authority == "" && c.Year == "" {
		return b.String()
	}
	b.WriteByte(' ')
	if c.Parenthesized {
		b.WriteByte('(')
	}
	b.WriteString(c.Authority)
	if c.Year != "" {
		if c.Authority != "" {
			b.WriteString(", ")
		}
		b.WriteString(c.Year)
	}
	if c.Parenthesized {
		b.WriteByte(')')
	}
	return b.String()
}

// ParsePath splits an ascription path such as "Animalia > Chordata >
// Mammalia" into its literals, highest first. Empty segments are dropped.
func ParsePath(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ">") {
		part = strings.Join(strings.Fields(part), " ")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JoinPath is the inverse of ParsePath.
func JoinPath(literals []string) string {
	return strings.Join(literals, " > ")
}
