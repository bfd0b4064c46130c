// Package catalog holds the static operator metadata the rest of the gateway
// keys off: country, currency, calling code, PIN policy, capabilities, and
// the national prefixes used for operator detection. Definitions are built
// once at process start and never mutated afterwards.
package catalog

import (
	"sort"
	"strings"

	"dcbgate/pkg/sentinel"
)

// ACRLength is the fixed length of an Anonymous Customer Reference. An
// identifier of exactly this length is never treated as an MSISDN.
const ACRLength = 48

// Capability enumerates what an operator's billing API can do.
type Capability string

const (
	CapSubscription Capability = "subscription"
	CapPIN          Capability = "pin"
	CapCheckoutOnly Capability = "checkout-only"
	CapFraudToken   Capability = "fraud-token"
	CapCharge       Capability = "charge"
	CapRefund       Capability = "refund"
	CapSMS          Capability = "sms"
	CapEligibility  Capability = "eligibility"
)

// Definition is an immutable catalog entry for one operator.
type Definition struct {
	Code         string
	Name         string
	Country      string
	Currency     string
	CallingCode  string // with leading +, e.g. "+965"
	PINLength    int
	Family       string
	Capabilities []Capability
	// Prefixes are national number prefixes (after the calling code) used to
	// pick an operator when several share a calling code. Longest match wins.
	Prefixes []string
	// Keywords match against campaign strings when prefix detection cannot
	// apply (ACR identifiers, unknown calling codes).
	Keywords []string
	// MaxChargeAmount is the largest single charge the operator accepts, in
	// the operator's currency. Zero means no gateway-side cap.
	MaxChargeAmount float64
}

// Has reports whether the operator supports the given capability.
func (d *Definition) Has(c Capability) bool {
	for _, cap := range d.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// CheckoutOnly operators expose no direct PIN/charge API; subscribers must be
// redirected to a hosted checkout flow.
func (d *Definition) CheckoutOnly() bool { return d.Has(CapCheckoutOnly) }

// Catalog indexes operator definitions for lookup by code, calling code and
// family. It is safe for concurrent use because it is read-only after New.
type Catalog struct {
	byCode        map[string]*Definition
	byCallingCode map[string][]*Definition
	byFamily      map[string][]*Definition
	acrDefaults   map[string]string
	ordered       []*Definition
}

// New builds the catalog from the static operator definitions.
func New() *Catalog {
	return newFrom(Definitions())
}

func newFrom(defs []Definition) *Catalog {
	c := &Catalog{
		byCode:        make(map[string]*Definition, len(defs)),
		byCallingCode: make(map[string][]*Definition),
		byFamily:      make(map[string][]*Definition),
		acrDefaults:   acrDefaultOperators(),
	}
	for i := range defs {
		d := &defs[i]
		c.byCode[d.Code] = d
		c.byCallingCode[d.CallingCode] = append(c.byCallingCode[d.CallingCode], d)
		c.byFamily[d.Family] = append(c.byFamily[d.Family], d)
		c.ordered = append(c.ordered, d)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].Code < c.ordered[j].Code })
	return c
}

// Lookup returns the definition for an operator code.
func (c *Catalog) Lookup(code string) (*Definition, error) {
	d, ok := c.byCode[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d, nil
}

// ByCallingCode returns all operators registered under a calling code.
func (c *Catalog) ByCallingCode(cc string) []*Definition {
	return c.byCallingCode[cc]
}

// ByFamily returns all operators in an operator family.
func (c *Catalog) ByFamily(family string) []*Definition {
	return c.byFamily[family]
}

// DefaultACROperator returns the documented family member used when an ACR
// campaign matches a family but no specific operator keyword.
func (c *Catalog) DefaultACROperator(family string) (string, bool) {
	code, ok := c.acrDefaults[family]
	return code, ok
}

// All returns every definition ordered by code.
func (c *Catalog) All() []*Definition {
	out := make([]*Definition, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// CallingCodes returns the distinct calling codes, longest first, so callers
// can match the most specific code before shorter ones.
func (c *Catalog) CallingCodes() []string {
	codes := make([]string, 0, len(c.byCallingCode))
	for cc := range c.byCallingCode {
		codes = append(codes, cc)
	}
	sort.Slice(codes, func(i, j int) bool {
		if len(codes[i]) != len(codes[j]) {
			return len(codes[i]) > len(codes[j])
		}
		return codes[i] < codes[j]
	})
	return codes
}
