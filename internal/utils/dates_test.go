package utils

import "testing"

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025-12-19", "2025-12-19"},
		{"2025-12-19T14:30:00", "2025-12-19"},
		{"19/12/2025", "2025-12-19"},
		{"19/12/2025 14:30", "2025-12-19"},
		{"19-12-2025", "2025-12-19"},
		{"2025/12/19", "2025-12-19"},
		{"12/31/2024", "2024-12-31"}, // month-first only when day-first is impossible
		{" 2025-01-02 ", "2025-01-02"},
	}

	for _, c := range cases {
		got, err := NormalizeDate(c.in)
		if err != nil {
			t.Errorf("NormalizeDate(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	for _, bad := range []string{"", "not a date", "32/13/2020"} {
		if _, err := NormalizeDate(bad); err == nil {
			t.Errorf("NormalizeDate(%q) should fail", bad)
		}
	}
}

func TestParseODataDate(t *testing.T) {
	got, err := ParseODataDate("/Date(1734566400000)/")
	if err != nil {
		t.Fatalf("ParseODataDate failed: %v", err)
	}
	if got != "2024-12-19" {
		t.Errorf("ParseODataDate = %q, want 2024-12-19", got)
	}

	got, err = ParseODataDate("2025-03-04")
	if err != nil || got != "2025-03-04" {
		t.Errorf("ParseODataDate plain = %q (%v), want 2025-03-04", got, err)
	}

	if _, err := ParseODataDate("/Date(abc)/"); err == nil {
		t.Error("invalid epoch should fail")
	}
}

func TestCleanAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"2500", 2500},
		{"2,500.75", 2500.75},
		{"Bs 1.250", 1.250},
		{"2500 BOB", 2500},
		{"$ 99.90", 99.90},
	}

	for _, c := range cases {
		got, err := CleanAmount(c.in)
		if err != nil {
			t.Errorf("CleanAmount(%q) unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("CleanAmount(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	if _, err := CleanAmount("Bs"); err == nil {
		t.Error("symbol-only amount should fail")
	}
}
