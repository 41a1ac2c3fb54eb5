package analyzer

import (
	"strings"
	"testing"

	"github.com/crawlytics/csvlog"
)

func timingRows(t *testing.T, rows ...string) *csvlog.RowReader {
	t.Helper()
	doc := "date,path,user_agent,time1\n" + strings.Join(rows, "\n")
	rr, err := csvlog.NewRowReader(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	return rr
}

func TestTimings(t *testing.T) {
	rows := timingRows(t,
		`2025-01-05,/a,GPTBot/1.0,0.100`,
		`2025-01-05,/b,GPTBot/1.0,0.300`,
		`2025-01-05,/c,GPTBot/1.0,0.200`,
		`2025-01-05,/d,Mozilla Firefox,9.999`, // non-bot, excluded
		`2025-01-05,/e,GPTBot/1.0,`,           // no timing value, skipped
	)

	summary, err := New(testRegistry(t), clock).Timings(rows)
	if err != nil {
		t.Fatalf("Timings: %v", err)
	}

	if summary.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", summary.Samples)
	}
	if summary.Mean < 0.199 || summary.Mean > 0.201 {
		t.Errorf("Mean = %f", summary.Mean)
	}
	if summary.Median != 0.2 {
		t.Errorf("Median = %f", summary.Median)
	}
	if summary.Max != 0.3 {
		t.Errorf("Max = %f", summary.Max)
	}
}

func TestTimings_NoSamples(t *testing.T) {
	summary, err := New(testRegistry(t), clock).Timings(nil)
	if err != nil {
		t.Fatalf("Timings(nil): %v", err)
	}
	if summary.Samples != 0 {
		t.Errorf("Samples = %d", summary.Samples)
	}
}

func TestProfileTraffic(t *testing.T) {
	const firefox = `Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0`
	rows := timingRows(t,
		`2025-01-05,/a,GPTBot/1.0,`, // bot, excluded from the profile
		`2025-01-05,/b,`+firefox+`,`,
		`2025-01-05,/c,`+firefox+`,`,
		`2025-01-05,/d,,`, // empty agent, skipped
	)

	profile, err := New(testRegistry(t), clock).ProfileTraffic(rows)
	if err != nil {
		t.Fatalf("ProfileTraffic: %v", err)
	}

	if profile.Total != 2 {
		t.Fatalf("Total = %d, want 2", profile.Total)
	}
	foundFirefox := false
	for browser, count := range profile.Browsers {
		if strings.Contains(browser, "Firefox") && count == 2 {
			foundFirefox = true
		}
	}
	if !foundFirefox {
		t.Errorf("Browsers = %v, want Firefox counted twice", profile.Browsers)
	}
	if profile.Devices["Desktop"] != 2 {
		t.Errorf("Devices = %v", profile.Devices)
	}
}
