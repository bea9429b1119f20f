package linkedin

import (
	"testing"

	"github.com/prospectly/outreachd/internal/driver"
)

// The browser driver must keep satisfying the scheduler-facing
// interface.
var _ driver.Driver = (*Driver)(nil)

func TestWithPageParam(t *testing.T) {
	got, err := withPageParam("https://www.linkedin.com/search/results/people/?keywords=cto", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "https://www.linkedin.com/search/results/people/?keywords=cto&page=3"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWithPageParam_ReplacesExisting(t *testing.T) {
	got, err := withPageParam("https://www.linkedin.com/search/results/people/?page=1", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://www.linkedin.com/search/results/people/?page=7" {
		t.Errorf("existing page param not replaced: %q", got)
	}
}

func TestNormalizeProfileURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://www.linkedin.com/in/jane-doe?miniProfileUrn=abc", "https://www.linkedin.com/in/jane-doe"},
		{"https://www.linkedin.com/in/jane-doe#section", "https://www.linkedin.com/in/jane-doe"},
		{"https://www.linkedin.com/company/acme", ""},
		{"://bad", ""},
	}
	for _, c := range cases {
		if got := normalizeProfileURL(c.in); got != c.want {
			t.Errorf("normalizeProfileURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSplitName(t *testing.T) {
	first, last := splitName("Jane Doe\nJane Doe\nView profile")
	if first != "Jane" || last != "Doe" {
		t.Errorf("got %q %q", first, last)
	}

	first, last = splitName("Madonna")
	if first != "Madonna" || last != "" {
		t.Errorf("single name: got %q %q", first, last)
	}

	first, last = splitName("Juan de la Cruz")
	if first != "Juan" || last != "de la Cruz" {
		t.Errorf("multi-part surname: got %q %q", first, last)
	}
}
