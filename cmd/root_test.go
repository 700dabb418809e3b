package cmd

import (
	"testing"
)

func TestAllCommandsRegistered(t *testing.T) {
	want := []string{"generate", "analyze", "manifest", "init", "refcode", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestParseConfirmations(t *testing.T) {
	got, err := parseConfirmations([]string{
		`Lead.email=REQUIRE "Lead"."email"`,
		`Contact.phone=REQUIRE "Contact"."phone"`,
	})
	if err != nil {
		t.Fatalf("parseConfirmations() returned error: %v", err)
	}
	if got["Lead.email"] != `REQUIRE "Lead"."email"` {
		t.Errorf("Lead.email token = %q", got["Lead.email"])
	}
	if len(got) != 2 {
		t.Errorf("parsed %d confirmations, want 2", len(got))
	}
}

func TestParseConfirmationsRejectsMalformedValues(t *testing.T) {
	for _, bad := range []string{"no-separator", "=token-without-key"} {
		if _, err := parseConfirmations([]string{bad}); err == nil {
			t.Errorf("parseConfirmations(%q) = nil, want error", bad)
		}
	}
}

func TestParseConfirmationsEmptyIsNil(t *testing.T) {
	got, err := parseConfirmations(nil)
	if err != nil || got != nil {
		t.Errorf("parseConfirmations(nil) = (%v, %v), want (nil, nil)", got, err)
	}
}
