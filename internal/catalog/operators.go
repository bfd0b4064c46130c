package catalog

// Definitions returns the static catalog of supported operators. Prefixes are
// national (post calling code); where several operators share a calling code
// the prefixes disambiguate, with the longest match winning.
func Definitions() []Definition {
	full := []Capability{CapSubscription, CapPIN, CapCharge, CapRefund, CapSMS, CapEligibility}
	checkout := []Capability{CapSubscription, CapCheckoutOnly, CapEligibility}

	return []Definition{
		// Zain group
		{Code: "zain-kw", Name: "Zain Kuwait", Country: "KW", Currency: "KWD", CallingCode: "+965",
			PINLength: 5, Family: "zain", Capabilities: full,
			Prefixes: []string{"55", "9"}, Keywords: []string{"zain", "kuwait", "kw"}, MaxChargeAmount: 30},
		{Code: "zain-bh", Name: "Zain Bahrain", Country: "BH", Currency: "BHD", CallingCode: "+973",
			PINLength: 4, Family: "zain", Capabilities: full,
			Prefixes: []string{"3"}, Keywords: []string{"zain", "bahrain", "bh"}, MaxChargeAmount: 20},
		{Code: "zain-sa", Name: "Zain Saudi Arabia", Country: "SA", Currency: "SAR", CallingCode: "+966",
			PINLength: 4, Family: "zain", Capabilities: full,
			Prefixes: []string{"59"}, Keywords: []string{"zain", "saudi", "ksa", "sa"}, MaxChargeAmount: 100},
		{Code: "zain-jo", Name: "Zain Jordan", Country: "JO", Currency: "JOD", CallingCode: "+962",
			PINLength: 4, Family: "zain", Capabilities: full,
			Prefixes: []string{"79"}, Keywords: []string{"zain", "jordan", "jo"}, MaxChargeAmount: 25},
		{Code: "zain-iq", Name: "Zain Iraq", Country: "IQ", Currency: "IQD", CallingCode: "+964",
			PINLength: 4, Family: "zain", Capabilities: full,
			Prefixes: []string{"78", "79"}, Keywords: []string{"zain", "iraq", "iq"}, MaxChargeAmount: 30000},
		{Code: "zain-sd", Name: "Zain Sudan", Country: "SD", Currency: "SDG", CallingCode: "+249",
			PINLength: 4, Family: "zain", Capabilities: full,
			Prefixes: []string{"9"}, Keywords: []string{"zain", "sudan", "sd"}, MaxChargeAmount: 5000},

		// Saudi / Gulf
		{Code: "mobily-sa", Name: "Mobily Saudi Arabia", Country: "SA", Currency: "SAR", CallingCode: "+966",
			PINLength: 4, Family: "mobily",
			Capabilities: []Capability{CapSubscription, CapPIN, CapCharge, CapRefund, CapSMS, CapEligibility, CapFraudToken},
			Prefixes:     []string{"54", "56"}, Keywords: []string{"mobily"}, MaxChargeAmount: 100},
		{Code: "stc-kw", Name: "stc Kuwait", Country: "KW", Currency: "KWD", CallingCode: "+965",
			PINLength: 4, Family: "stc", Capabilities: full,
			Prefixes: []string{"5"}, Keywords: []string{"stc"}, MaxChargeAmount: 30},
		{Code: "stc-bh", Name: "stc Bahrain", Country: "BH", Currency: "BHD", CallingCode: "+973",
			PINLength: 4, Family: "stc", Capabilities: full,
			Prefixes: []string{"36", "66"}, Keywords: []string{"stc", "bahrain"}, MaxChargeAmount: 20},
		{Code: "ooredoo-kw", Name: "Ooredoo Kuwait", Country: "KW", Currency: "KWD", CallingCode: "+965",
			PINLength: 4, Family: "ooredoo", Capabilities: full,
			Prefixes: []string{"6"}, Keywords: []string{"ooredoo"}, MaxChargeAmount: 30},
		{Code: "ooredoo-qa", Name: "Ooredoo Qatar", Country: "QA", Currency: "QAR", CallingCode: "+974",
			PINLength: 4, Family: "ooredoo", Capabilities: full,
			Prefixes: []string{"3", "5"}, Keywords: []string{"ooredoo", "qatar", "qa"}, MaxChargeAmount: 150},
		{Code: "etisalat-ae", Name: "Etisalat UAE", Country: "AE", Currency: "AED", CallingCode: "+971",
			PINLength: 4, Family: "etisalat", Capabilities: full,
			Prefixes: []string{"50", "54", "56"}, Keywords: []string{"etisalat", "uae", "ae"}, MaxChargeAmount: 200},
		{Code: "du-ae", Name: "du UAE", Country: "AE", Currency: "AED", CallingCode: "+971",
			PINLength: 4, Family: "du", Capabilities: full,
			Prefixes: []string{"52", "55", "58"}, Keywords: []string{"du"}, MaxChargeAmount: 200},

		// Telenor family (ACR networks)
		{Code: "telenor-dk", Name: "Telenor Denmark", Country: "DK", Currency: "DKK", CallingCode: "+45",
			PINLength: 4, Family: "telenor", Capabilities: full,
			Prefixes: []string{"2", "3"}, Keywords: []string{"telenor", "denmark", "dk"}, MaxChargeAmount: 400},
		{Code: "telenor-no", Name: "Telenor Norway", Country: "NO", Currency: "NOK", CallingCode: "+47",
			PINLength: 4, Family: "telenor", Capabilities: full,
			Prefixes: []string{"4", "9"}, Keywords: []string{"telenor", "norway", "no"}, MaxChargeAmount: 500},
		{Code: "telenor-se", Name: "Telenor Sweden", Country: "SE", Currency: "SEK", CallingCode: "+46",
			PINLength: 4, Family: "telenor", Capabilities: full,
			Prefixes: []string{"7"}, Keywords: []string{"telenor", "sweden", "se"}, MaxChargeAmount: 500},
		{Code: "telenor-rs", Name: "Telenor Serbia", Country: "RS", Currency: "RSD", CallingCode: "+381",
			PINLength: 4, Family: "telenor", Capabilities: full,
			Prefixes: []string{"6"}, Keywords: []string{"telenor", "serbia", "rs"}, MaxChargeAmount: 6000},
		{Code: "telenor-mm", Name: "Telenor Myanmar", Country: "MM", Currency: "MMK", CallingCode: "+95",
			PINLength: 4, Family: "telenor", Capabilities: full,
			Prefixes: []string{"9"}, Keywords: []string{"telenor", "myanmar", "mm"}, MaxChargeAmount: 10000},
		{Code: "telenor-pk", Name: "Telenor Pakistan", Country: "PK", Currency: "PKR", CallingCode: "+92",
			PINLength: 4, Family: "telenor", Capabilities: full,
			Prefixes: []string{"34"}, Keywords: []string{"telenor", "pakistan", "pk"}, MaxChargeAmount: 5000},

		// Checkout-only operators (hosted flow, no direct PIN/charge API)
		{Code: "three-uk", Name: "Three UK", Country: "GB", Currency: "GBP", CallingCode: "+44",
			PINLength: 0, Family: "three", Capabilities: checkout,
			Prefixes: []string{"73", "74"}, Keywords: []string{"three", "uk", "gb"}, MaxChargeAmount: 40},
		{Code: "three-ie", Name: "Three Ireland", Country: "IE", Currency: "EUR", CallingCode: "+353",
			PINLength: 0, Family: "three", Capabilities: checkout,
			Prefixes: []string{"83"}, Keywords: []string{"three", "ireland", "ie"}, MaxChargeAmount: 50},
		{Code: "ee-uk", Name: "EE UK", Country: "GB", Currency: "GBP", CallingCode: "+44",
			PINLength: 0, Family: "ee", Capabilities: checkout,
			Prefixes: []string{"77", "78"}, Keywords: []string{"ee"}, MaxChargeAmount: 40},
		{Code: "o2-uk", Name: "O2 UK", Country: "GB", Currency: "GBP", CallingCode: "+44",
			PINLength: 0, Family: "o2", Capabilities: checkout,
			Prefixes: []string{"75"}, Keywords: []string{"o2"}, MaxChargeAmount: 40},
		{Code: "vodafone-uk", Name: "Vodafone UK", Country: "GB", Currency: "GBP", CallingCode: "+44",
			PINLength: 0, Family: "vodafone", Capabilities: checkout,
			Prefixes: []string{"76", "79"}, Keywords: []string{"vodafone"}, MaxChargeAmount: 40},

		// Others
		{Code: "unitel-mn", Name: "Unitel Mongolia", Country: "MN", Currency: "MNT", CallingCode: "+976",
			PINLength: 4, Family: "unitel", Capabilities: full,
			Prefixes: []string{"88", "89"}, Keywords: []string{"unitel", "mongolia", "mn"}, MaxChargeAmount: 50000},
		{Code: "9mobile-ng", Name: "9mobile Nigeria", Country: "NG", Currency: "NGN", CallingCode: "+234",
			PINLength: 4, Family: "9mobile", Capabilities: full,
			Prefixes: []string{"809", "817", "818"}, Keywords: []string{"9mobile", "nigeria", "ng"}, MaxChargeAmount: 10000},
	}
}

// acrDefaultOperators documents, per family, which member handles an ACR
// request whose campaign names the family but no specific market. Only
// families that actually issue ACRs appear here.
func acrDefaultOperators() map[string]string {
	return map[string]string{
		"telenor": "telenor-mm",
	}
}
