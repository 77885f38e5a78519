package apidoc

import (
	"reflect"
	"testing"
)

func TestParseMarker(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		outcome   Outcome
		endpoints []Endpoint
		truncated bool
	}{
		{
			name:    "absent",
			doc:     "# File analysis\n\nNothing here.",
			outcome: MarkerAbsent,
		},
		{
			name:    "no api",
			doc:     "body\n<!-- API_START -->\ncontains API: no\n<!-- API_END -->\n",
			outcome: MarkerNoAPI,
		},
		{
			name: "has api",
			doc: "body\n<!-- API_START -->\ncontains API: yes\nEndpoints:\n" +
				"- [GET] /health - Liveness probe\n" +
				"- [post] `/api/users/{id}` - Update a user\n" +
				"- [MCP] search_docs\n" +
				"<!-- API_END -->\ntrailing",
			outcome: MarkerHasAPI,
			endpoints: []Endpoint{
				{Method: "GET", Path: "/health", Description: "Liveness probe"},
				{Method: "POST", Path: "/api/users/{id}", Description: "Update a user"},
				{Method: "MCP", Path: "search_docs"},
			},
		},
		{
			name:      "truncated",
			doc:       "body\n<!-- API_START -->\nContains API: Yes\n- [GET] /a - first\n- [DELETE] /b - sec",
			outcome:   MarkerHasAPI,
			truncated: true,
			endpoints: []Endpoint{
				{Method: "GET", Path: "/a", Description: "first"},
				{Method: "DELETE", Path: "/b", Description: "sec"},
			},
		},
		{
			name:      "malformed with endpoints",
			doc:       "<!-- API_START -->\n- [GET] /x - thing\n<!-- API_END -->",
			outcome:   MarkerMalformed,
			endpoints: []Endpoint{{Method: "GET", Path: "/x", Description: "thing"}},
		},
		{
			name:    "last block wins",
			doc:     "example: <!-- API_START -->\ncontains API: yes\n- [GET] /fake\n<!-- API_END -->\nreal:\n<!-- API_START -->\ncontains API: no\n<!-- API_END -->",
			outcome: MarkerNoAPI,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			block := ParseMarker(tc.doc)
			if block.Outcome != tc.outcome {
				t.Fatalf("outcome = %v, want %v", block.Outcome, tc.outcome)
			}
			if block.Truncated != tc.truncated {
				t.Fatalf("truncated = %v, want %v", block.Truncated, tc.truncated)
			}
			if !reflect.DeepEqual(block.Endpoints, tc.endpoints) {
				t.Fatalf("endpoints = %#v, want %#v", block.Endpoints, tc.endpoints)
			}
		})
	}
}

func TestAPIBearing(t *testing.T) {
	if !(Block{Outcome: MarkerHasAPI}).APIBearing() {
		t.Fatal("has-api block should be API bearing")
	}
	if (Block{Outcome: MarkerMalformed}).APIBearing() {
		t.Fatal("malformed block without endpoints should not be API bearing")
	}
	if !(Block{Outcome: MarkerMalformed, Endpoints: []Endpoint{{Method: "GET", Path: "/"}}}).APIBearing() {
		t.Fatal("malformed block with endpoints should be API bearing")
	}
}

func TestInfoDigestRoundTrip(t *testing.T) {
	endpoints := []Endpoint{
		{Method: "GET", Path: "/health", Description: "Liveness"},
		{Method: "PUT", Path: "/items/{id}"},
	}
	info := EncodeInfo(endpoints)
	if info != "- [GET] /health - Liveness\n- [PUT] /items/{id}" {
		t.Fatalf("unexpected digest %q", info)
	}
	if got := DecodeInfo(info); !reflect.DeepEqual(got, endpoints) {
		t.Fatalf("DecodeInfo = %#v", got)
	}
}

func TestStripMarker(t *testing.T) {
	doc := "intro\n\n<!-- API_START -->\ncontains API: no\n<!-- API_END -->\n\nafter\n"
	if got := StripMarker(doc); got != "intro\nafter\n" {
		t.Fatalf("StripMarker = %q", got)
	}
	if got := StripMarker("plain"); got != "plain" {
		t.Fatalf("StripMarker without block = %q", got)
	}
}

func TestInterfaceKeyNormalizes(t *testing.T) {
	cases := map[[2]string]string{
		{"get", " `/health` "}:          "GET /health",
		{"MCP", "search(query, limit)"}: "MCP search",
		{"POST", "/items."}:             "POST /items",
	}
	for in, want := range cases {
		if got := InterfaceKey(in[0], in[1]); got != want {
			t.Fatalf("InterfaceKey(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}
