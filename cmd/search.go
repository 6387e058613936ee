package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rubiojr/fmcsa/pkg/config"
	"github.com/rubiojr/fmcsa/pkg/query"
	"github.com/rubiojr/fmcsa/pkg/records"
	"github.com/rubiojr/fmcsa/pkg/search"
	"github.com/rubiojr/fmcsa/pkg/storage"
)

var (
	resultTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("86"))

	recordStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// searchFlags maps CLI flags onto records query parameters.
var searchFlags = map[string]string{
	"query":     query.ParamQuery,
	"from":      query.ParamFrom,
	"to":        query.ParamTo,
	"min":       query.ParamMin,
	"max":       query.ParamMax,
	"fields":    query.ParamFields,
	"sort":      query.ParamSort,
	"sort-type": query.ParamSortType,
	"page":      query.ParamPage,
	"limit":     query.ParamLimit,
}

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Query stored records the same way GET /records does",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Usage: "Case-insensitive text to find in names, address, phone or MC number"},
			&cli.StringFlag{Name: "from", Usage: "Created on or after this date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "to", Usage: "Created on or before this date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "min", Usage: "Minimum power units (needs --max)"},
			&cli.StringFlag{Name: "max", Usage: "Maximum power units (needs --min)"},
			&cli.StringFlag{Name: "fields", Usage: "Comma separated columns to return"},
			&cli.StringFlag{Name: "sort", Usage: "Sort column", Value: query.DefaultSortField},
			&cli.StringFlag{Name: "sort-type", Usage: "asc or desc", Value: "desc"},
			&cli.StringFlag{Name: "page", Usage: "Page number"},
			&cli.StringFlag{Name: "limit", Usage: "Records per page"},
			&cli.BoolFlag{Name: "json", Usage: "Print the API response body"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			values := url.Values{}
			for flag, param := range searchFlags {
				if c.IsSet(flag) {
					values.Set(param, c.String(flag))
				}
			}
			return searchRecords(ctx, c.String("config"), values, c.Bool("json"))
		},
	}
}

func searchRecords(ctx context.Context, configPath string, values url.Values, asJSON bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(ctx, cfg, storage.Options{})
	if err != nil {
		return err
	}
	defer closeStore(store)

	svc := newSearchService(store, cfg)
	resp := svc.Search(ctx, values)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
	} else if resp.Success {
		fmt.Println(renderResults(resp, query.Parse(values), svc.Pipeline(values).Window))
	}
	if !resp.Success {
		return resp.Err
	}
	return nil
}

func renderResults(resp search.Response, req query.Request, w query.Window) string {
	var b strings.Builder

	header := "Records"
	if q := req.Values().Encode(); q != "" {
		header += " matching " + q
	}
	b.WriteString(resultTitleStyle.Render(header))
	b.WriteString("\n")

	for _, doc := range resp.Data {
		b.WriteString(recordStyle.Render(renderDocument(doc)))
		b.WriteString("\n")
	}

	footer := fmt.Sprintf("Showing %d of %d records (page %d, %d per page)", len(resp.Data), resp.Total, w.Page, w.Limit)
	b.WriteString(footerStyle.Render(footer))
	return b.String()
}

func renderDocument(doc records.Document) string {
	title := cases.Title(language.English)
	lines := []string{}
	if id, ok := doc[records.IDField]; ok {
		lines = append(lines, labelStyle.Render("ID: ")+fmt.Sprint(id))
	}
	for _, col := range records.Columns {
		v, ok := doc[col]
		if !ok {
			continue
		}
		label := title.String(strings.ReplaceAll(col, "_", " "))
		lines = append(lines, labelStyle.Render(label+": ")+formatValue(v))
	}
	return strings.Join(lines, "\n")
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		if t == "" {
			return "-"
		}
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
