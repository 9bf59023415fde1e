package ledger

import "testing"

func TestParseType(t *testing.T) {
	cases := []struct {
		in   string
		want Type
	}{
		{"payed", TypePaid},
		{"PAYED", TypePaid},
		{"pending", TypePayLater},
		{"pay_later", TypePayLater},
		{"PAY_LATER", TypePayLater},
	}
	for _, tc := range cases {
		got, err := ParseType(tc.in)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := ParseType("refunded"); err == nil {
		t.Fatal("ParseType should reject unknown types")
	}
}

func TestExternalLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"PAYED", "payed"},
		{"payed", "payed"},
		{"PAY_LATER", "pending"},
		{"pay_later", "pending"},
		// Values outside the known set read as paid rather than
		// breaking history endpoints.
		{"garbage", "payed"},
		{"", "payed"},
	}
	for _, tc := range cases {
		if got := ExternalLabel(tc.in); got != tc.want {
			t.Fatalf("ExternalLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidPaymentMethod(t *testing.T) {
	if !ValidPaymentMethod("online") || !ValidPaymentMethod("cash") {
		t.Fatal("online and cash must be accepted")
	}
	if ValidPaymentMethod("card") {
		t.Fatal("unknown payment methods must be rejected")
	}
}
