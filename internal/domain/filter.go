package domain

import "sort"

// EmptyWhitelistKeepsAll preserves the observed behavior of whitelisted mode
// with an absent or empty whitelist: every browser is kept. Suspected to be
// unintended; kept behind a named policy switch so a stricter variant can be
// swapped in without touching the filtering algorithm.
const EmptyWhitelistKeepsAll = true

// FilterConfig parameterizes one filtering run.
type FilterConfig struct {
	Mode BrowserMode

	// EmptyWhitelistKeepsAll overrides the package-level default when
	// Explicit is set; FilterBrowsers reads the default otherwise.
	EmptyWhitelistKeepsAll bool
	Explicit               bool
}

func (c FilterConfig) emptyWhitelistKeepsAll() bool {
	if c.Explicit {
		return c.EmptyWhitelistKeepsAll
	}
	return EmptyWhitelistKeepsAll
}

// FilterBrowsers computes the final launchable-target list from the browser
// candidate set and the full resolved candidate set. Only browsers are
// policy-gated; apps pass through regardless of mode.
func FilterBrowsers(cfg FilterConfig, browsers map[string]Candidate, all []Candidate) FilteredTargetList {
	apps := make([]Candidate, 0, len(all))
	for _, c := range all {
		if !c.Browser {
			apps = append(apps, c)
		}
	}

	var kept []Candidate
	switch cfg.Mode.Kind {
	case BrowserModeAlwaysAsk:
		kept = browserValues(browsers)

	case BrowserModeNone:
		kept = nil

	case BrowserModeSelected:
		if c, ok := browsers[cfg.Mode.Selected]; ok && cfg.Mode.Selected != "" {
			kept = []Candidate{c}
		}

	case BrowserModeWhitelisted:
		if len(cfg.Mode.Whitelist) == 0 {
			if cfg.emptyWhitelistKeepsAll() {
				kept = browserValues(browsers)
			}
			break
		}
		for pkg, c := range browsers {
			if _, ok := cfg.Mode.Whitelist[pkg]; ok {
				kept = append(kept, c)
			}
		}
	}

	sortCandidates(kept)
	sortCandidates(apps)

	total := len(kept) + len(apps)
	return FilteredTargetList{
		Mode:                    cfg.Mode.Kind,
		Browsers:                kept,
		Apps:                    apps,
		SingleOption:            total == 1 && len(kept) == 1,
		NoBrowsersOnlySingleApp: len(kept) == 0 && len(apps) == 1,
	}
}

func browserValues(browsers map[string]Candidate) []Candidate {
	out := make([]Candidate, 0, len(browsers))
	for _, c := range browsers {
		out = append(out, c)
	}
	return out
}

func sortCandidates(cs []Candidate) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Package < cs[j].Package })
}
