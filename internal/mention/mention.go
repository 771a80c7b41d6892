// Package mention detects whether a business domain is referenced in free text.
package mention

import (
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
)

// Common trailing words in compound brand domains ("pizzalovers", "codeworks").
var endings = []string{
	"lovers", "works", "hub", "shop", "store", "online", "direct", "group",
	"studios", "studio", "labs", "lab", "media", "digital", "designs", "design",
	"solutions", "services", "plumbing", "electrical", "cleaning", "company",
	"co", "world", "house", "home", "place", "depot", "express", "hq", "plus", "pro",
}

// Common leading words in compound brand domains ("thebakery", "getfit").
var beginnings = []string{
	"the", "get", "pro", "my", "best", "top", "go", "try", "we", "your",
	"all", "one", "smart", "eco", "just", "hello", "hey", "super", "mr", "team",
}

// Result is the outcome of a mention check. Position is 1, 2 or 3 for the
// third of the response in which the first match starts, and nil when the
// domain is not mentioned.
type Result struct {
	Mentioned bool
	Position  *int
}

// Detect reports whether domain, or one of its heuristic variants, appears in
// response and where the earliest match falls.
func Detect(response, domain string) Result {
	text := strings.ToLower(response)
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	first := -1
	for _, v := range Variants(domain) {
		if idx := strings.Index(text, v); idx >= 0 && (first < 0 || idx < first) {
			first = idx
		}
	}
	if first < 0 {
		return Result{}
	}

	ratio := float64(first) / float64(len(text))
	pos := 3
	switch {
	case ratio < 0.33:
		pos = 1
	case ratio < 0.66:
		pos = 2
	}
	return Result{Mentioned: true, Position: &pos}
}

// Variants returns the lowercase strings searched for when detecting domain:
// the full host, the host without its public suffix, a de-camel-cased form and
// dictionary-based spaced splits of the brand root.
func Variants(domain string) []string {
	host := Normalize(domain)
	if host == "" {
		return nil
	}
	lower := strings.ToLower(host)

	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	add(lower)

	stripped := stripSuffix(lower)
	add(stripped)

	root := stripped
	if i := strings.LastIndex(root, "."); i >= 0 {
		root = root[i+1:]
	}
	add(root)

	// Case information only survives in the caller's original spelling.
	origRoot := root
	if len(host) == len(lower) {
		if i := strings.Index(lower, root); i >= 0 {
			origRoot = host[i : i+len(root)]
		}
	}
	add(decamel(origRoot))

	for _, v := range splitVariants(root, 1) {
		add(v)
	}
	return out
}

// Root returns the lowercase brand label of a domain ("acmeplumbing" for
// "https://www.acmeplumbing.com.au/contact").
func Root(domain string) string {
	stripped := stripSuffix(strings.ToLower(Normalize(domain)))
	if i := strings.LastIndex(stripped, "."); i >= 0 {
		return stripped[i+1:]
	}
	return stripped
}

// Normalize strips scheme, credentials, path, port and a leading "www.".
func Normalize(domain string) string {
	d := strings.TrimSpace(domain)
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	if strings.HasPrefix(strings.ToLower(d), "www.") {
		d = d[4:]
	}
	return strings.Trim(d, ".")
}

func stripSuffix(host string) string {
	if !strings.Contains(host, ".") {
		return host
	}
	suffix, _ := publicsuffix.PublicSuffix(host)
	if suffix == "" || suffix == host {
		return host[:strings.Index(host, ".")]
	}
	return strings.TrimSuffix(host, "."+suffix)
}

// decamel inserts spaces at lower→upper and letter↔digit boundaries and turns
// hyphens and underscores into spaces.
func decamel(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if r == '-' || r == '_' {
			b.WriteRune(' ')
			prev = ' '
			continue
		}
		if i > 0 {
			switch {
			case unicode.IsLower(prev) && unicode.IsUpper(r),
				unicode.IsLetter(prev) && unicode.IsDigit(r),
				unicode.IsDigit(prev) && unicode.IsLetter(r):
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
		prev = r
	}
	return strings.Join(strings.Fields(strings.ToLower(b.String())), " ")
}

// splitVariants splits root at known endings and beginnings. depth controls
// how many further splits are attempted on the remainder.
func splitVariants(root string, depth int) []string {
	var out []string
	for _, end := range endings {
		if len(root) <= len(end)+1 || !strings.HasSuffix(root, end) {
			continue
		}
		prefix := root[:len(root)-len(end)]
		out = append(out, prefix+" "+end)
		if depth > 0 {
			for _, v := range splitVariants(prefix, depth-1) {
				out = append(out, v+" "+end)
			}
		}
	}
	for _, begin := range beginnings {
		if len(root) <= len(begin)+1 || !strings.HasPrefix(root, begin) {
			continue
		}
		rest := root[len(begin):]
		out = append(out, begin+" "+rest)
		if depth > 0 {
			for _, v := range splitVariants(rest, depth-1) {
				out = append(out, begin+" "+v)
			}
		}
	}
	return out
}
