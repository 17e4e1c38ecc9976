package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ecourts-backend/lib/directory"
	"ecourts-backend/lib/restyutil"
	"ecourts-backend/lib/scrapers/ecourts"
	"ecourts-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	searchDirectory    *string
	searchUrl          *string
	searchComplex      *string
	searchCaseType     *string
	searchCaptchaPath  *string
	searchDiagnostics  *string
	searchNoCloudflare *bool
)

func init() {
	searchDirectory = searchCmd.Flags().String("directory", "ecourts_data.json", "The court directory written by crawl.")
	searchUrl = searchCmd.Flags().String("url", "", "A district court site, overrides <state> <district>.")
	searchComplex = searchCmd.Flags().StringP("complex", "c", "", "Court complex label or code.")
	searchCaseType = searchCmd.Flags().StringP("type", "t", "", "Case type label or code.")
	searchCaptchaPath = searchCmd.Flags().String("captcha", "captcha.png", "Where to save the captcha image.")
	searchDiagnostics = searchCmd.Flags().String("diagnostics", "<dev_state>/ecourts_diagnostics", "Directory to write the raw search and details html to, empty disables it.")
	searchNoCloudflare = searchCmd.Flags().Bool("no-cloudflare-bypass", false, "Use a plain TLS transport.")
	rootCmd.AddCommand(searchCmd)
}

func courtUrl(args []string) string {
	if *searchUrl != "" {
		return *searchUrl
	}
	if len(args) < 2 {
		serviceutil.Fatal("expected <state> <district> or --url", nil)
	}
	dir, err := directory.Load(*searchDirectory)
	if err != nil {
		serviceutil.Fatal("failed to load court directory", err)
	}
	url, ok := dir.CourtUrl(args[0], args[1])
	if !ok {
		serviceutil.Fatal(fmt.Sprintf("unknown district %s, %s", args[1], args[0]), nil)
	}
	return url
}

func printCatalog(title string, catalog ecourts.Catalog) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Label", "Code"})
	for _, label := range catalog.Labels() {
		t.AppendRow(table.Row{label, catalog[label]})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func resolveOrList(title, value string, catalog ecourts.Catalog) string {
	if value == "" {
		printCatalog(title, catalog)
		serviceutil.Fatal(fmt.Sprintf("pick a %s from the table above", strings.ToLower(title)), nil)
	}
	label, code, ok := catalog.Resolve(value)
	if !ok {
		printCatalog(title, catalog)
		serviceutil.Fatal(fmt.Sprintf("no %s matches %q", strings.ToLower(title), value), nil)
	}
	slog.Info("resolved "+strings.ToLower(title), "label", label, "code", code)
	return code
}

var searchCmd = &cobra.Command{
	Use:   "search [<state> <district>] <case number> <year>",
	Short: "Runs a single case number search against a district court site, prompting for the captcha.",
	Args:  cobra.RangeArgs(2, 4),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		caseArgs := args[len(args)-2:]
		opts := ecourts.ClientOptions{
			BaseUrl:          courtUrl(args[:len(args)-2]),
			CloudflareBypass: !*searchNoCloudflare,
		}
		if *searchDiagnostics != "" {
			out, err := restyutil.NewFilesystemOutputOrTemp(*searchDiagnostics)
			if err != nil {
				serviceutil.Fatal("failed to create diagnostics dir", err)
			}
			opts.Diagnostics = out
			slog.Info("writing portal responses", "dir", out.Dir())
		}
		client, err := ecourts.NewClient(opts)
		if err != nil {
			serviceutil.Fatal("failed to create client", err)
		}
		err = client.Initialize(ctx)
		if err != nil {
			serviceutil.Fatal("failed to initialize session", err)
		}

		courtComplex := resolveOrList("Court Complex", *searchComplex, client.Session.CourtComplexes)
		caseTypes, err := client.CaseTypes(ctx, courtComplex)
		if err != nil {
			serviceutil.Fatal("failed to get case types", err)
		}
		caseType := resolveOrList("Case Type", *searchCaseType, caseTypes)

		image, _, err := client.Captcha(ctx)
		if err != nil {
			serviceutil.Fatal("failed to get captcha", err)
		}
		err = os.WriteFile(*searchCaptchaPath, image, 0644)
		if err != nil {
			serviceutil.Fatal("failed to save captcha", err)
		}
		captchaPath, _ := filepath.Abs(*searchCaptchaPath)
		fmt.Printf("captcha saved to %s\nenter the captcha: ", captchaPath)
		captcha, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			serviceutil.Fatal("failed to read captcha", err)
		}

		record, err := client.Search(ctx, ecourts.CaseQuery{
			CourtComplex: courtComplex,
			CaseType:     caseType,
			CaseNumber:   caseArgs[0],
			Year:         caseArgs[1],
			Captcha:      strings.TrimSpace(captcha),
		})
		if err != nil {
			serviceutil.Fatal("search failed", err)
		}
		if record == nil {
			fmt.Println("no case found, the captcha may have been wrong")
			os.Exit(1)
		}

		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			serviceutil.Fatal("failed to serialize case", err)
		}
		fmt.Println(string(out))
	},
}
