package compliance

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, key string) time.Time {
	t.Helper()
	d, err := ParseDateKey(key)
	if err != nil {
		t.Fatalf("ParseDateKey(%q): %v", key, err)
	}
	return d
}

func TestDateKeyUsesUTC(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	late := time.Date(2024, 5, 2, 3, 0, 0, 0, ist) // 2024-05-01T21:30Z
	if got := DateKey(late); got != "2024-05-01" {
		t.Fatalf("DateKey: want=2024-05-01 got=%s", got)
	}
	a := time.Date(2024, 5, 1, 0, 0, 1, 0, time.UTC)
	b := time.Date(2024, 5, 1, 23, 59, 59, 0, time.UTC)
	if DateKey(a) != DateKey(b) {
		t.Fatalf("same UTC day must share a key: %s vs %s", DateKey(a), DateKey(b))
	}
}
