package domain

import (
	"encoding/json"
	"testing"
)

func TestAnnouncementJSONUsesPresenterNames(t *testing.T) {
	t.Parallel()

	target := "$50"
	raw, err := json.Marshal([]Announcement{
		{CompanyName: "Acme", Direction: Raised, Analyst: "Citi", PriceTarget: &target},
		{CompanyName: "Foo", Analyst: "Foo price target lowered"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `[{"CompanyName":"Acme","UpgradeDowngrade":"Raised","Analyst":"Citi","PriceTarget":"$50"},` +
		`{"CompanyName":"Foo","UpgradeDowngrade":"Lowered","Analyst":"Foo price target lowered","PriceTarget":null}]`
	if string(raw) != want {
		t.Fatalf("unexpected json:\n%s", raw)
	}
}

func TestDirectionUnmarshalText(t *testing.T) {
	t.Parallel()

	var d Direction
	if err := d.UnmarshalText([]byte(" Raised ")); err != nil || d != Raised {
		t.Fatalf("expected Raised, got %v (%v)", d, err)
	}
	if err := d.UnmarshalText([]byte("lowered")); err != nil || d != Lowered {
		t.Fatalf("expected Lowered, got %v (%v)", d, err)
	}
	if err := d.UnmarshalText([]byte("sideways")); err == nil {
		t.Fatalf("expected error for unknown direction")
	}
}

func TestKeyDistinguishesMissingTarget(t *testing.T) {
	t.Parallel()

	empty := ""
	a := Announcement{CompanyName: "Acme", Analyst: "Citi"}
	b := Announcement{CompanyName: "Acme", Analyst: "Citi", PriceTarget: &empty}
	if a.Key() == b.Key() {
		t.Fatalf("absent and empty targets must not collide")
	}
	if a.Key() != (Announcement{CompanyName: "Acme", Analyst: "Citi"}).Key() {
		t.Fatalf("key must be stable")
	}
}
