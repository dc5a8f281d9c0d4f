package registry

import "testing"

func testSnapshot() *Snapshot {
	s := NewSnapshot()
	s.Update([]Handler{
		{
			Package: "com.full.browser", Label: "Full Browser", Browser: true,
			Schemes: []string{"http", "https"},
		},
		{
			Package: "com.secure.browser", Label: "Secure Browser", Browser: true,
			Schemes: []string{"https"},
		},
		{
			Package: "org.example.app", Label: "Example App",
			Schemes:       []string{"https"},
			Hosts:         []string{"example.com", "*.example.org"},
			VerifiedHosts: []string{"example.com"},
		},
		{
			Package: "org.other.app", Label: "Other App",
			Schemes: []string{"https"},
			Hosts:   []string{"other.example"},
		},
	})
	return s
}

func TestQueryBrowsers_MergesSchemes(t *testing.T) {
	browsers := testSnapshot().QueryBrowsers()

	if len(browsers) != 2 {
		t.Fatalf("got %d browsers, want 2", len(browsers))
	}
	if _, ok := browsers["com.full.browser"]; !ok {
		t.Error("http+https browser missing")
	}
	// Registered only for https, still a full browser.
	if _, ok := browsers["com.secure.browser"]; !ok {
		t.Error("https-only browser missing from the merged set")
	}
}

func TestQueryApps_HostMatching(t *testing.T) {
	s := testSnapshot()

	apps := s.QueryApps("https://example.com/article")
	if len(apps) != 1 || apps[0].Package != "org.example.app" {
		t.Fatalf("apps = %+v, want org.example.app only", apps)
	}
	if !apps[0].HostVerified {
		t.Error("example.com is in verified_hosts, HostVerified should be true")
	}

	wildcard := s.QueryApps("https://news.example.org/x")
	if len(wildcard) != 1 || wildcard[0].Package != "org.example.app" {
		t.Fatalf("wildcard apps = %+v", wildcard)
	}
	if wildcard[0].HostVerified {
		t.Error("news.example.org is not verified")
	}
}

func TestQueryApps_SchemeFiltered(t *testing.T) {
	// org.example.app registers only https.
	if apps := testSnapshot().QueryApps("http://example.com/"); len(apps) != 0 {
		t.Errorf("apps = %+v, want none for http", apps)
	}
}

func TestQueryApps_ExcludesBrowsers(t *testing.T) {
	for _, app := range testSnapshot().QueryApps("https://example.com/") {
		if app.Browser {
			t.Errorf("browser %s leaked into app query", app.Package)
		}
	}
}
