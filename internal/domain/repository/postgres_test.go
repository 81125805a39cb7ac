package repository

import (
	"context"
	"testing"

	"transit_enrichment/internal/domain/model"
)

func TestCanonicalPostcode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ab12cd", "AB1 2CD"},
		{"AB1 2CD", "AB1 2CD"},
		{"  ab1   2cd ", "AB1 2CD"},
		{"sw1a1aa", "SW1A 1AA"},
		{"e17aa", "E1 7AA"},
		// Three characters still get the space inserted, matching the
		// lookup table's storage form.
		{"1aa", " 1AA"},
		{"aa", "AA"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := CanonicalPostcode(tc.in); got != tc.want {
			t.Errorf("CanonicalPostcode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAreaCodeIndexLookup(t *testing.T) {
	oa := "E0001"
	idx := &AreaCodeIndex{index: map[string]model.AreaCodes{
		"AB12CD": {OA21CD: &oa},
	}}

	codes, err := idx.AreaCodesForPostcode(context.Background(), "ab1 2cd")
	if err != nil {
		t.Fatalf("AreaCodesForPostcode: %v", err)
	}
	if codes.OA21CD == nil || *codes.OA21CD != "E0001" {
		t.Errorf("OA21CD = %v, want E0001", codes.OA21CD)
	}

	// A miss is a warning, not an error, and leaves every code nil.
	codes, err = idx.AreaCodesForPostcode(context.Background(), "zz9 9zz")
	if err != nil {
		t.Fatalf("AreaCodesForPostcode: %v", err)
	}
	if codes.OA21CD != nil || codes.LSOA21CD != nil || codes.LSOA21NM != nil {
		t.Errorf("miss should return all-nil codes, got %+v", codes)
	}
}
