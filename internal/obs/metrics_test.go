package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                  "/",
		"/metrics":                          "/metrics",
		"/v1/programs":                      "/v1/programs",
		"/v1/programs/01ABC":                "/v1/programs/:id",
		"/v1/programs/01ABC/activities":     "/v1/programs/:id/activities",
		"/v1/activities/01DEF":              "/v1/activities/:id",
		"/v1/wallets/01GHI?currency=GEM":    "/v1/wallets/:id",
		"/v1/judge/submissions":             "/v1/judge/submissions",
		"/v1/judge/submissions/abc/approve": "/v1/judge/submissions/:id/approve",
		"/v1/leaderboard":                   "/v1/leaderboard",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
