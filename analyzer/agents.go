package analyzer

import (
	"fmt"
	"io"
	"strings"

	"github.com/mssola/useragent"

	"github.com/crawlytics/csvlog"
)

// TrafficProfile breaks down the traffic the registry did not attribute to
// any bot, by browser, operating system and device class.
type TrafficProfile struct {
	Total    int
	Browsers map[string]int
	OSes     map[string]int
	Devices  map[string]int
}

// ProfileTraffic scans rows and profiles the non-bot remainder. Rows with
// an empty agent column are skipped.
func (a *Analyzer) ProfileTraffic(rows *csvlog.RowReader) (*TrafficProfile, error) {
	profile := &TrafficProfile{
		Browsers: make(map[string]int),
		OSes:     make(map[string]int),
		Devices:  make(map[string]int),
	}

	if rows == nil {
		return profile, nil
	}

	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading rows: %w", err)
		}

		agent := strings.TrimSpace(row["user_agent"])
		if agent == "" {
			continue
		}
		if c := a.registry.Classify(agent); c.IsBot {
			continue
		}

		ua := useragent.New(agent)

		browser, _ := ua.Browser()
		if browser == "" {
			browser = "Unknown"
		}
		osName := ua.OS()
		if osName == "" {
			osName = "Unknown"
		}
		device := "Desktop"
		if ua.Mobile() {
			device = "Mobile"
		} else if ua.Bot() {
			device = "Bot"
		}

		profile.Browsers[browser]++
		profile.OSes[osName]++
		profile.Devices[device]++
		profile.Total++
	}

	return profile, nil
}
