// Package detect resolves a subscriber identifier (MSISDN or ACR) plus an
// optional campaign hint to an operator code. Detection is deterministic: the
// same identifier and campaign always resolve to the same operator, and
// ambiguous inputs fail with sentinel.ErrNotFound rather than guessing.
// Picking the wrong operator routes a charge to the wrong billing network,
// so every fallback here is explicit catalog data, never a silent default.
package detect

import (
	"sort"
	"strings"

	"dcbgate/internal/catalog"
	"dcbgate/pkg/sentinel"
)

// Detector resolves identifiers against the operator catalog.
type Detector struct {
	catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Detector {
	return &Detector{catalog: c}
}

// Detect returns the operator code for an identifier. ACR identifiers (fixed
// 48-char length) carry no calling code and resolve purely from the campaign;
// MSISDNs resolve by calling code plus longest national prefix, falling back
// to campaign keywords only when no calling code matches.
func (d *Detector) Detect(identifier, campaign string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", sentinel.ErrNotFound
	}

	if len(identifier) == catalog.ACRLength {
		return d.detectACR(campaign)
	}

	msisdn := NormalizeMSISDN(identifier)
	if code, ok := d.detectByPrefix(msisdn); ok {
		return code, nil
	}
	if code, ok := d.matchCampaign(campaign); ok {
		return code, nil
	}
	return "", sentinel.ErrNotFound
}

// detectACR resolves an ACR from campaign keywords. ACRs are only issued by
// operators with a documented family default, so a campaign that names the
// family but no market still resolves, to the catalog's default member.
func (d *Detector) detectACR(campaign string) (string, error) {
	if code, ok := d.matchCampaign(campaign); ok {
		return code, nil
	}
	// No keyword matched at all. ACRs come from exactly one family today, so
	// the documented default member applies when the catalog names one.
	families := d.acrFamilies()
	if len(families) == 1 {
		if code, ok := d.catalog.DefaultACROperator(families[0]); ok {
			return code, nil
		}
	}
	return "", sentinel.ErrNotFound
}

func (d *Detector) acrFamilies() []string {
	seen := map[string]bool{}
	var out []string
	for _, def := range d.catalog.All() {
		if _, ok := d.catalog.DefaultACROperator(def.Family); ok && !seen[def.Family] {
			seen[def.Family] = true
			out = append(out, def.Family)
		}
	}
	sort.Strings(out)
	return out
}

// detectByPrefix matches the normalized MSISDN against the longest calling
// code, then tries national prefixes from 3 digits down to 1 so that more
// specific prefixes beat generic country defaults.
func (d *Detector) detectByPrefix(msisdn string) (string, bool) {
	for _, cc := range d.catalog.CallingCodes() {
		if !strings.HasPrefix(msisdn, cc) {
			continue
		}
		national := msisdn[len(cc):]
		operators := d.catalog.ByCallingCode(cc)
		for plen := 3; plen >= 1; plen-- {
			if len(national) < plen {
				continue
			}
			head := national[:plen]
			var hits []*catalog.Definition
			for _, def := range operators {
				for _, p := range def.Prefixes {
					if p == head {
						hits = append(hits, def)
						break
					}
				}
			}
			if len(hits) > 0 {
				sort.Slice(hits, func(i, j int) bool { return hits[i].Code < hits[j].Code })
				return hits[0].Code, true
			}
		}
		// Calling code matched but no prefix did; let the campaign decide.
		return "", false
	}
	return "", false
}

// matchCampaign resolves a campaign hint to an operator. An explicit operator
// code in the campaign always wins; otherwise the longest whole-token keyword
// match does, with family-wide ties resolved through the documented ACR
// default or rejected outright.
func (d *Detector) matchCampaign(campaign string) (string, bool) {
	c := strings.ToLower(strings.TrimSpace(campaign))
	if c == "" {
		return "", false
	}

	for _, def := range d.catalog.All() {
		if containsCodeToken(c, def.Code) {
			return def.Code, true
		}
	}

	tokens := tokenize(c)
	var (
		best    []*catalog.Definition
		bestLen int
	)
	for _, def := range d.catalog.All() {
		for _, kw := range def.Keywords {
			if !tokens[kw] {
				continue
			}
			switch {
			case len(kw) > bestLen:
				bestLen = len(kw)
				best = []*catalog.Definition{def}
			case len(kw) == bestLen:
				best = append(best, def)
			}
		}
	}
	switch len(best) {
	case 0:
		return "", false
	case 1:
		return best[0].Code, true
	}
	// Several operators matched with equal specificity. A family-wide tie
	// (e.g. the bare family name) resolves to the documented default; a
	// cross-family tie is genuinely ambiguous and fails closed.
	family := best[0].Family
	for _, def := range best[1:] {
		if def.Family != family {
			return "", false
		}
	}
	if code, ok := d.catalog.DefaultACROperator(family); ok {
		return code, true
	}
	return "", false
}

// containsCodeToken reports whether the campaign names the operator code as a
// whole token: an occurrence bounded by non-alphanumerics or string edges.
// Codes contain hyphens themselves, so plain tokenization cannot express
// this; a raw substring check would let "free-uk-coffee" select "ee-uk".
func containsCodeToken(campaign, code string) bool {
	for from := 0; ; {
		i := strings.Index(campaign[from:], code)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(code)
		if (start == 0 || !isAlnum(campaign[start-1])) &&
			(end == len(campaign) || !isAlnum(campaign[end])) {
			return true
		}
		from = start + 1
	}
}

func isAlnum(b byte) bool {
	return 'a' <= b && b <= 'z' || '0' <= b && b <= '9'
}

func tokenize(s string) map[string]bool {
	tokens := map[string]bool{}
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		tokens[tok] = true
	}
	return tokens
}

// NormalizeMSISDN reduces an identifier to a leading + followed by digits,
// stripping separators and converting a 00 international prefix.
func NormalizeMSISDN(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	digits = strings.TrimPrefix(digits, "00")
	return "+" + digits
}
