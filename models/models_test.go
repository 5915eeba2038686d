package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateJSON(t *testing.T) {
	var e struct {
		Date Date `json:"date"`
	}
	if err := json.Unmarshal([]byte(`{"date":"2026-03-09"}`), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Date.Year() != 2026 || e.Date.Month() != time.March || e.Date.Day() != 9 {
		t.Fatalf("unexpected date %v", e.Date)
	}

	out, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"date":"2026-03-09"}` {
		t.Errorf("marshal = %s", out)
	}

	if err := json.Unmarshal([]byte(`{"date":"09/03/2026"}`), &e); err == nil {
		t.Error("expected error for non ISO date")
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	ts := time.Date(2026, 1, 31, 23, 59, 0, 0, time.FixedZone("BRT", -3*3600))
	if err := d.Scan(ts); err != nil {
		t.Fatal(err)
	}
	if d.String() != "2026-01-31" {
		t.Errorf("scan time = %s", d)
	}

	if err := d.Scan("2026-02-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if d.String() != "2026-02-01" {
		t.Errorf("scan string = %s", d)
	}

	if err := d.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}

	v, _ := Date{}.Value()
	if v != nil {
		t.Errorf("zero date value = %v", v)
	}
}

func TestNewDateTruncates(t *testing.T) {
	d := NewDate(time.Date(2026, 5, 4, 18, 30, 0, 0, time.UTC))
	if d.Hour() != 0 || d.Minute() != 0 || d.String() != "2026-05-04" {
		t.Errorf("NewDate = %v", d.Time)
	}
	if !d.SameMonth(2026, time.May) || d.SameMonth(2026, time.June) {
		t.Error("SameMonth mismatch")
	}
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"Housing", CategoryHousing, true},
		{"groceries", CategoryGroceries, true},
		{"", CategoryOther, true},
		{"Aluguel", CategoryHousing, true},
		{"Luz/Água", CategoryUtilities, true},
		{"Pagamento", CategoryPayment, true},
		{"Travel", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok != (err == nil) || got != tc.want {
			t.Errorf("ParseCategory(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestAmountInput(t *testing.T) {
	cases := []struct {
		body string
		want string
		ok   bool
	}{
		{`12.5`, "12.5", true},
		{`"12,50"`, "12.5", true},
		{`"1.005"`, "1.01", true},
		{`"0"`, "", false},
		{`-3`, "", false},
		{`"abc"`, "", false},
	}
	for _, tc := range cases {
		var a AmountInput
		if err := json.Unmarshal([]byte(tc.body), &a); err != nil {
			if tc.ok {
				t.Errorf("%s: unmarshal error %v", tc.body, err)
			}
			continue
		}
		d, err := a.Decimal()
		if tc.ok {
			if err != nil || !d.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("%s: got %s, %v", tc.body, d, err)
			}
		} else if err == nil {
			t.Errorf("%s: expected error", tc.body)
		}
	}
}

func TestValidatePercentage(t *testing.T) {
	if ValidatePercentage(nil) != nil {
		t.Error("nil should be valid")
	}
	if ValidatePercentage(Percentage(0)) != nil || ValidatePercentage(Percentage(100)) != nil {
		t.Error("bounds should be valid")
	}
	if ValidatePercentage(Percentage(-1)) == nil || ValidatePercentage(Percentage(100.5)) == nil {
		t.Error("out of range should fail")
	}
}

func TestHouseEnsureIdentity(t *testing.T) {
	h := House{Name: "Casa"}
	h.EnsureIdentity()
	if len(h.InviteCode) != 8 || h.Roommates != DefaultRoommates {
		t.Errorf("unexpected house %+v", h)
	}
	if NormalizeInviteCode(" ab12cd34 ") != "AB12CD34" {
		t.Error("NormalizeInviteCode")
	}
}
