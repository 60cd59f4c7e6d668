package storage

import (
	"testing"
	"time"
)

func TestBuildExportPath(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 23, 5, 0, 0, time.FixedZone("x", -5*3600))
	key, err := BuildExportPath("exports", "shop", "customers", ts, "7f1c2a")
	if err != nil {
		t.Fatalf("BuildExportPath() error = %v", err)
	}
	want := "exports/shop/customers/date=2026-02-20/7f1c2a.parquet"
	if key != want {
		t.Fatalf("BuildExportPath() = %q, want %q", key, want)
	}
}

func TestBuildExportPathWithoutPrefix(t *testing.T) {
	ts := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	key, err := BuildExportPath("/", "library", "books", ts, "abc")
	if err != nil {
		t.Fatalf("BuildExportPath() error = %v", err)
	}
	want := "library/books/date=2026-03-01/abc.parquet"
	if key != want {
		t.Fatalf("BuildExportPath() = %q, want %q", key, want)
	}
}

func TestBuildExportPathRejectsInvalidComponent(t *testing.T) {
	cases := []struct {
		prefix, database, collection, id string
	}{
		{"exports", "../oops", "books", "abc"},
		{"exports", "library", "books/../../x", "abc"},
		{"exports", "library", "books", ""},
		{"exports/../up", "library", "books", "abc"},
	}
	for _, tc := range cases {
		if _, err := BuildExportPath(tc.prefix, tc.database, tc.collection, time.Now(), tc.id); err == nil {
			t.Fatalf("BuildExportPath(%q, %q, %q, %q) expected error", tc.prefix, tc.database, tc.collection, tc.id)
		}
	}
}

func TestValidateExportKey(t *testing.T) {
	ts := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	key, err := BuildExportPath("results/nightly", "shop", "orders", ts, "5b8f6a8e-6a55-4b1c-9d8e-2c7a1f0e9b11")
	if err != nil {
		t.Fatalf("BuildExportPath() error = %v", err)
	}
	if err := ValidateExportKey("results/nightly", key); err != nil {
		t.Fatalf("ValidateExportKey(%q) error = %v", key, err)
	}

	invalid := []struct {
		prefix, key string
	}{
		{"exports", "other/shop/orders/date=2026-03-01/a.parquet"},
		{"exports", "exports/shop/orders/a.parquet"},
		{"exports", "exports/shop/orders/2026-03-01/a.parquet"},
		{"exports", "exports/shop/orders/date=2026-03-01/a.csv"},
		{"exports", "exports/../orders/date=2026-03-01/a.parquet"},
		{"exports", "exports/shop/orders/date=2026-03-01/sub/a.parquet"},
		{"", "exports/shop/orders/date=2026-03-01/a.parquet"},
	}
	for _, tc := range invalid {
		if err := ValidateExportKey(tc.prefix, tc.key); err == nil {
			t.Fatalf("ValidateExportKey(%q, %q) expected error", tc.prefix, tc.key)
		}
	}
}
