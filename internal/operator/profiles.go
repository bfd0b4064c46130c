package operator

import (
	"fmt"
	"time"

	"dcbgate/internal/catalog"
	dErrors "dcbgate/pkg/domain-errors"
)

// profileOption mutates a base profile during construction.
type profileOption func(*Profile)

func withStatus(native string, s Status) profileOption {
	return func(p *Profile) { p.StatusTable[native] = s }
}

func withError(native string, c dErrors.Code) profileOption {
	return func(p *Profile) { p.ErrorTable[native] = c }
}

func withMSISDNRule(rule MSISDNRule) profileOption {
	return func(p *Profile) { p.MSISDN = rule }
}

func withTimeout(d time.Duration) profileOption {
	return func(p *Profile) { p.Timeout = d }
}

func newProfile(code string, opts ...profileOption) Profile {
	p := Profile{
		Code:        code,
		Endpoints:   defaultEndpoints(),
		StatusTable: defaultStatusTable(),
		ErrorTable:  defaultErrorTable(),
		PINExpiry:   10 * time.Minute,
		Timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Profiles returns the declarative per-operator configuration set. Most
// operators are entirely covered by the shared defaults plus an identifier
// rule; entries below only state what differs.
func Profiles() map[string]Profile {
	profiles := map[string]Profile{
		"zain-kw": newProfile("zain-kw",
			withMSISDNRule(MSISDNRule{NationalLength: 8, StripLeadingZero: true})),
		"zain-bh": newProfile("zain-bh",
			withMSISDNRule(MSISDNRule{NationalLength: 8, StripLeadingZero: true})),
		"zain-sa": newProfile("zain-sa",
			withMSISDNRule(MSISDNRule{NationalLength: 9, StripLeadingZero: true}),
			withStatus("GRACE_PERIOD", StatusSuspended)),
		"zain-jo": newProfile("zain-jo",
			withMSISDNRule(MSISDNRule{NationalLength: 9, StripLeadingZero: true})),
		"zain-iq": newProfile("zain-iq",
			withMSISDNRule(MSISDNRule{NationalLength: 10, StripLeadingZero: true}),
			withTimeout(45*time.Second)),
		"zain-sd": newProfile("zain-sd",
			withMSISDNRule(MSISDNRule{NationalLength: 9, StripLeadingZero: true}),
			withTimeout(45*time.Second)),

		"mobily-sa": newProfile("mobily-sa",
			withMSISDNRule(MSISDNRule{NationalLength: 9, StripLeadingZero: true}),
			withError("FRAUD_CHECK_FAILED", dErrors.CodeFraudTokenInvalid)),
		"stc-kw": newProfile("stc-kw",
			withMSISDNRule(MSISDNRule{NationalLength: 8, StripLeadingZero: true})),
		"stc-bh": newProfile("stc-bh",
			withMSISDNRule(MSISDNRule{NationalLength: 8, StripLeadingZero: true})),
		"ooredoo-kw": newProfile("ooredoo-kw",
			withMSISDNRule(MSISDNRule{NationalLength: 8, StripLeadingZero: true}),
			withStatus("PARKED", StatusSuspended)),
		"ooredoo-qa": newProfile("ooredoo-qa",
			withMSISDNRule(MSISDNRule{NationalLength: 8, StripLeadingZero: true})),
		"etisalat-ae": newProfile("etisalat-ae",
			withMSISDNRule(MSISDNRule{NationalLength: 9, StripLeadingZero: true}),
			withError("SUBSCRIBER_BARRED", dErrors.CodeEligibilityFailed)),
		"du-ae": newProfile("du-ae",
			withMSISDNRule(MSISDNRule{NationalLength: 9, StripLeadingZero: true})),

		"telenor-dk": newProfile("telenor-dk",
			withMSISDNRule(MSISDNRule{NationalLength: 8})),
		"telenor-no": newProfile("telenor-no",
			withMSISDNRule(MSISDNRule{NationalLength: 8})),
		"telenor-se": newProfile("telenor-se",
			withMSISDNRule(MSISDNRule{NationalLength: 9, StripLeadingZero: true})),
		"telenor-rs": newProfile("telenor-rs",
			withMSISDNRule(MSISDNRule{NationalLength: 8, StripLeadingZero: true})),
		"telenor-mm": newProfile("telenor-mm",
			withMSISDNRule(MSISDNRule{StripLeadingZero: true}),
			withTimeout(45*time.Second)),
		"telenor-pk": newProfile("telenor-pk",
			withMSISDNRule(MSISDNRule{NationalLength: 10, StripLeadingZero: true})),

		"three-uk": newProfile("three-uk",
			withMSISDNRule(MSISDNRule{NationalLength: 10, StripLeadingZero: true})),
		"three-ie": newProfile("three-ie",
			withMSISDNRule(MSISDNRule{NationalLength: 9, StripLeadingZero: true})),
		"ee-uk": newProfile("ee-uk",
			withMSISDNRule(MSISDNRule{NationalLength: 10, StripLeadingZero: true})),
		"o2-uk": newProfile("o2-uk",
			withMSISDNRule(MSISDNRule{NationalLength: 10, StripLeadingZero: true})),
		"vodafone-uk": newProfile("vodafone-uk",
			withMSISDNRule(MSISDNRule{NationalLength: 10, StripLeadingZero: true})),

		"unitel-mn": newProfile("unitel-mn",
			withMSISDNRule(MSISDNRule{NationalLength: 8})),
		"9mobile-ng": newProfile("9mobile-ng",
			withMSISDNRule(MSISDNRule{NationalLength: 10, StripLeadingZero: true}),
			withStatus("DEACTIVATED", StatusCancelled)),
	}
	return profiles
}

// BuildAdapters constructs one adapter per catalog operator over the shared
// transport. Operators with bespoke flows get their wrapper; everything else
// runs on the generic adapter directly.
func BuildAdapters(c *catalog.Catalog, transport Transport) (map[string]Adapter, error) {
	profiles := Profiles()
	adapters := make(map[string]Adapter, len(profiles))
	for _, def := range c.All() {
		profile, ok := profiles[def.Code]
		if !ok {
			return nil, fmt.Errorf("no profile for operator %s", def.Code)
		}
		g := newGenericAdapter(def, profile, transport)
		switch {
		case def.Family == "telenor":
			adapters[def.Code] = newTelenorAdapter(g)
		case def.Has(catalog.CapFraudToken):
			adapters[def.Code] = newMobilyAdapter(g)
		default:
			adapters[def.Code] = g
		}
	}
	return adapters, nil
}
