package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/crawlytics/analyzer"
)

// Format specifies the output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// topPathsPerBot caps the per-bot path listing in table output.
const topPathsPerBot = 5

// Report renders an aggregate report in the requested format.
func Report(rep *analyzer.Report, format Format, w io.Writer) error {
	switch format {
	case FormatTable:
		return reportTable(rep, w)
	case FormatJSON:
		return reportJSON(rep, w)
	case FormatCSV:
		return reportCSV(rep, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteToFile writes the report to a file instead of stdout.
func WriteToFile(rep *analyzer.Report, format Format, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Report(rep, format, f)
}

func reportTable(rep *analyzer.Report, w io.Writer) error {
	heading := color.New(color.FgCyan, color.Bold)
	heading.Fprintf(w, "\nBot traffic report\n")
	fmt.Fprintf(w, "Generated: %s\n", rep.GeneratedAt)
	fmt.Fprintf(w, "Window:    %s .. %s\n", rep.Window.From, rep.Window.To)
	fmt.Fprintf(w, "Requests:  %d  Bots: %d  Paths: %d\n\n",
		rep.Overall.TotalRequests, rep.Overall.UniqueBots, rep.Overall.UniquePaths)

	if len(rep.Bots) == 0 {
		fmt.Fprintln(w, "No bot traffic in window.")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Bot", "LLM", "Requests", "Active Days", "Unique Paths"})
	for _, bot := range rep.Bots {
		table.Append([]string{
			bot.BotName,
			strconv.FormatBool(bot.IsLLM),
			strconv.Itoa(bot.TotalRequests),
			strconv.Itoa(len(bot.DailyRequests)),
			strconv.Itoa(len(bot.TopPaths)),
		})
	}
	table.Render()

	section := color.New(color.FgYellow, color.Bold)
	for _, bot := range rep.Bots {
		section.Fprintf(w, "\nTop paths for %s\n", bot.BotName)
		paths := bot.TopPaths
		if len(paths) > topPathsPerBot {
			paths = paths[:topPathsPerBot]
		}
		for _, pc := range paths {
			fmt.Fprintf(w, "  %6d  %s\n", pc.Requests, pc.Path)
		}
	}
	fmt.Fprintln(w)

	return nil
}

func reportJSON(rep *analyzer.Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// reportCSV flattens the report into one row per bot per active day.
func reportCSV(rep *analyzer.Report, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"bot_name", "is_llm", "date", "requests", "bot_total_requests"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, bot := range rep.Bots {
		for _, day := range bot.DailyRequests {
			row := []string{
				bot.BotName,
				strconv.FormatBool(bot.IsLLM),
				day.Date,
				strconv.Itoa(day.Requests),
				strconv.Itoa(bot.TotalRequests),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}
