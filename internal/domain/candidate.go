package domain

// Candidate is an installed application able to handle a URL, as reported
// by the handler registry. Recomputed per target query; never persisted.
type Candidate struct {
	// Package is the unique application identifier. Candidates are merged
	// and de-duplicated by this field.
	Package string

	// Label is the human-readable application name.
	Label string

	// Component identifies the concrete activity/entry point inside the
	// package.
	Component string

	// Icon is an opaque reference (path or resource id) resolved by the UI.
	Icon string

	// Browser marks applications registered as general web browsers rather
	// than site-specific handlers.
	Browser bool

	// HostVerified reports whether the application holds verified-domain
	// state for the host of the queried URL.
	HostVerified bool
}

// BrowserModeKind enumerates the configured browser-handling policies.
type BrowserModeKind int

const (
	// BrowserModeAlwaysAsk presents every browser unchanged.
	BrowserModeAlwaysAsk BrowserModeKind = iota
	// BrowserModeNone suppresses browsers from the choice set entirely.
	BrowserModeNone
	// BrowserModeSelected keeps only the single configured browser.
	BrowserModeSelected
	// BrowserModeWhitelisted keeps browsers whose package is whitelisted.
	BrowserModeWhitelisted
)

func (k BrowserModeKind) String() string {
	switch k {
	case BrowserModeAlwaysAsk:
		return "always_ask"
	case BrowserModeNone:
		return "none"
	case BrowserModeSelected:
		return "selected"
	case BrowserModeWhitelisted:
		return "whitelisted"
	default:
		return "unknown"
	}
}

// BrowserMode is the policy tag plus its payload: Selected carries the
// chosen package for BrowserModeSelected, Whitelist the allowed package set
// for BrowserModeWhitelisted. Unused payloads stay zero.
type BrowserMode struct {
	Kind      BrowserModeKind
	Selected  string
	Whitelist map[string]struct{}
}

// ParseBrowserMode builds a BrowserMode from its configured string form.
// Unknown mode names fall back to always_ask.
func ParseBrowserMode(mode, selected string, whitelist []string) BrowserMode {
	switch mode {
	case "none":
		return BrowserMode{Kind: BrowserModeNone}
	case "selected":
		return BrowserMode{Kind: BrowserModeSelected, Selected: selected}
	case "whitelisted":
		set := make(map[string]struct{}, len(whitelist))
		for _, pkg := range whitelist {
			set[pkg] = struct{}{}
		}
		return BrowserMode{Kind: BrowserModeWhitelisted, Whitelist: set}
	default:
		return BrowserMode{Kind: BrowserModeAlwaysAsk}
	}
}

// FilteredTargetList is the pure output of the filtering engine. Never
// mutated after creation; both slices are ordered deterministically.
type FilteredTargetList struct {
	Mode     BrowserModeKind
	Browsers []Candidate
	Apps     []Candidate

	// SingleOption is set when exactly one candidate remains overall and it
	// is a browser. The one-native-app/zero-browsers case is deliberately
	// covered by NoBrowsersOnlySingleApp instead; the two flags are
	// distinct on purpose.
	SingleOption bool

	// NoBrowsersOnlySingleApp is set when no browser survived filtering and
	// exactly one app did.
	NoBrowsersOnlySingleApp bool
}
