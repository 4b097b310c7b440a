package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.50", "1.5", true},
		{"1,25", "1.25", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got.String(), err)
			}
		} else if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestMoneyJSONIsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{NewMoney(12.5)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amount":12.5}` {
		t.Fatalf("unexpected json %s", b)
	}

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":10,"b":"7.25"}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.A.Same(NewMoney(10)) || !in.B.Same(NewMoney(7.25)) {
		t.Fatalf("unexpected amounts %s %s", in.A, in.B)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-03-14", "2025-03-14", true},
		{"2025-03-14T23:30:00Z", "2025-03-14", true},
		{"2025-03-14T23:30:00+05:00", "2025-03-14", true},
		{"2025-03-14T08:00:00.000", "2025-03-14", true},
		{"14/03/2025", "", false},
		{"", "", false},
		{"2025-02-30", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseDate(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q: ok=%v want %v", tc.in, ok, tc.ok)
		}
		if ok && DateKey(got) != tc.want {
			t.Fatalf("%q: got %s want %s", tc.in, DateKey(got), tc.want)
		}
	}
}

func TestDateRange(t *testing.T) {
	r := DateRange{Start: "2025-03-01", End: "2025-03-31"}
	if err := r.Validate(); err != nil {
		t.Fatalf("expected valid range, got %v", err)
	}
	if !r.Contains(time.Date(2025, 3, 31, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("end day should be contained")
	}
	if r.Contains(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day after end should not be contained")
	}
	if err := (DateRange{Start: "2025-04-01", End: "2025-03-01"}).Validate(); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if got := MonthRange(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)); got.Start != "2024-02-01" || got.End != "2024-02-29" {
		t.Fatalf("unexpected month range %+v", got)
	}
}

func TestDailyDataCloneIsIndependent(t *testing.T) {
	d := DailyData{}
	d.Set("2025-03-03", "t1", Trip{Morning: true})
	cp := d.Clone()
	cp.Set("2025-03-03", "t1", Trip{Evening: true})
	cp.Set("2025-03-04", "t1", Trip{Morning: true})

	if got := d.Trip("2025-03-03", "t1"); got != (Trip{Morning: true}) {
		t.Fatalf("original mutated through clone: %+v", got)
	}
	if _, ok := d["2025-03-04"]; ok {
		t.Fatalf("original gained a date through clone")
	}
}

func TestDailyDataEqualIgnoresEmptyCells(t *testing.T) {
	a := DailyData{}
	b := DailyData{"2025-03-03": {"t1": {}}, "2025-03-04": {}}
	if !a.Equal(b) {
		t.Fatalf("empty cells should compare equal to missing cells")
	}
	b.Set("2025-03-05", "t2", Trip{Evening: true})
	changed := a.ChangedDates(b)
	if len(changed) != 1 || changed[0] != "2025-03-05" {
		t.Fatalf("unexpected changed dates %v", changed)
	}
}

func TestEntryValidate(t *testing.T) {
	good := Entry{ID: "p1", TravellerID: "t1", Amount: NewMoney(10), Date: "2025-03-03"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Entry{
		{TravellerID: "", Amount: NewMoney(10), Date: "2025-03-03"},
		{TravellerID: "t1", Amount: Zero, Date: "2025-03-03"},
		{TravellerID: "t1", Amount: NewMoney(10), Date: "yesterday"},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseLeg(t *testing.T) {
	if l, err := ParseLeg(" Morning "); err != nil || l != Morning {
		t.Fatalf("unexpected %v %v", l, err)
	}
	if _, err := ParseLeg("noon"); !errors.Is(err, ErrInvalidLeg) {
		t.Fatalf("expected ErrInvalidLeg, got %v", err)
	}
}
