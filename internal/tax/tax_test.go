package tax

import "testing"

func TestApply(t *testing.T) {
	cases := []struct {
		name    string
		amount  int64
		percent float64
		tax     int64
		net     int64
	}{
		{"ten percent", 10000, 10.0, 1000, 9000},
		{"five percent", 5000, 5.0, 250, 4750},
		{"zero percent", 10000, 0.0, 0, 10000},
		{"rounds half up", 1005, 10.0, 101, 904},
		{"rounds down", 1004, 10.0, 100, 904},
		{"full rate", 10000, 100.0, 10000, 0},
		{"one cent", 1, 10.0, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tax, net := Apply(tc.amount, tc.percent)
			if tax != tc.tax || net != tc.net {
				t.Errorf("Apply(%d, %v) = (%d, %d), want (%d, %d)",
					tc.amount, tc.percent, tax, net, tc.tax, tc.net)
			}
			if tax+net != tc.amount {
				t.Errorf("tax %d + net %d must equal gross %d", tax, net, tc.amount)
			}
		})
	}
}

func TestPortion(t *testing.T) {
	if got := Portion(9000, 98.0); got != 8820 {
		t.Errorf("Portion(9000, 98) = %d, want 8820", got)
	}
	if got := Portion(9000, 90.0); got != 8100 {
		t.Errorf("Portion(9000, 90) = %d, want 8100", got)
	}
	if got := Portion(0, 98.0); got != 0 {
		t.Errorf("Portion(0, 98) = %d, want 0", got)
	}
}
