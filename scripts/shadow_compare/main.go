// Command shadow_compare evaluates a grid of profiles with the local
// requirement resolver and the hosted get_required_documents_v2 procedure,
// and reports every profile where the two checklists disagree.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/requirement"
	"github.com/noah-isme/santri-dokumen-api/pkg/config"
	"github.com/noah-isme/santri-dokumen-api/pkg/logger"
	"github.com/noah-isme/santri-dokumen-api/pkg/rpc"
)

var categoryLabels = map[models.StudentCategory]string{
	models.CategoryReguler:           "Reguler",
	models.CategoryBinaanMukim:       "Binaan Mukim",
	models.CategoryMahasantriBantuan: "Mahasantri Bantuan",
	models.CategoryBinaanNonMukim:    "Binaan Non Mukim",
}

var socialLabels = map[models.SocialStatus]string{
	models.SocialLengkap:    "Lengkap",
	models.SocialYatim:      "Yatim",
	models.SocialPiatu:      "Piatu",
	models.SocialYatimPiatu: "Yatim Piatu",
	models.SocialDhuafa:     "Dhuafa",
}

type gridCase struct {
	Name    string
	Profile models.StudentProfile
}

type diff struct {
	Missing []string // resolved locally only
	Extra   []string // returned remotely only
	Tags    []string // same code, different tag
}

func (d diff) empty() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0 && len(d.Tags) == 0
}

type comparison struct {
	Case     gridCase
	Diff     diff
	Err      error
	Duration time.Duration
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	var (
		baseURL string
		apiKey  string
		timeout time.Duration
		onlyBad bool
	)
	flag.StringVar(&baseURL, "rpc-url", cfg.Requirements.RemoteRPCURL, "base URL of the hosted database REST endpoint")
	flag.StringVar(&apiKey, "api-key", cfg.Requirements.RemoteRPCKey, "API key for the REST endpoint")
	flag.DurationVar(&timeout, "timeout", cfg.Requirements.RemoteTimeout, "per-call timeout")
	flag.BoolVar(&onlyBad, "diff-only", false, "print only profiles that disagree")
	flag.Parse()

	if baseURL == "" {
		fmt.Fprintln(os.Stderr, "REQUIREMENTS_RPC_URL or -rpc-url is required")
		os.Exit(2)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	now := time.Now()
	client := rpc.NewRequirementsClient(baseURL, apiKey, timeout, log)
	resolver := requirement.NewResolver(
		requirement.WithClock(func() time.Time { return now }),
		requirement.WithHomeLocality(cfg.Requirements.HomeLocality),
	)

	ctx := context.Background()
	var results []comparison
	failures := 0
	for _, p := range gridCases(now) {
		res := compare(ctx, client, resolver, p)
		if res.Err != nil || !res.Diff.empty() {
			failures++
			if res.Err != nil {
				log.Warn("grid case failed", zap.String("case", p.Name), zap.Error(res.Err))
			}
		}
		if !onlyBad || res.Err != nil || !res.Diff.empty() {
			results = append(results, res)
		}
	}

	printReport(results)
	if failures > 0 {
		color.Red("%d profile(s) disagree", failures)
		os.Exit(1)
	}
	color.Green("local resolver matches the remote procedure")
}

// gridCases builds the category x social status x age x guardian grid.
func gridCases(now time.Time) []gridCase {
	child := now.AddDate(-12, 0, 0)
	adult := now.AddDate(-19, 0, 0)
	births := []struct {
		label string
		date  *time.Time
	}{{"no-birth", nil}, {"12y", &child}, {"19y", &adult}}
	guardians := []string{"", "Ayah", "Paman"}

	var out []gridCase
	for _, cat := range models.Categories {
		for _, social := range []models.SocialStatus{models.SocialLengkap, models.SocialYatim, models.SocialPiatu, models.SocialYatimPiatu, models.SocialDhuafa} {
			for _, b := range births {
				for _, g := range guardians {
					name := fmt.Sprintf("%s/%s/%s", cat, social, b.label)
					if g != "" {
						name += "/" + strings.ToLower(g)
					}
					out = append(out, gridCase{Name: name, Profile: models.StudentProfile{
						Category:             cat,
						SocialStatus:         social,
						BirthDate:            b.date,
						GuardianRelationship: g,
					}})
				}
			}
		}
	}
	return out
}

func query(p models.StudentProfile) rpc.RequirementsQuery {
	q := rpc.RequirementsQuery{
		Category:     categoryLabels[p.Category],
		SocialStatus: socialLabels[p.SocialStatus],
	}
	if p.BirthDate != nil {
		q.BirthDate = p.BirthDate.Format("2006-01-02")
	}
	if p.GuardianRelationship != "" {
		rel := p.GuardianRelationship
		q.GuardianRel = &rel
	}
	if p.Address != "" {
		addr := p.Address
		q.Address = &addr
	}
	return q
}

type remoteSource interface {
	RequiredDocuments(ctx context.Context, q rpc.RequirementsQuery) ([]rpc.RemoteRequirement, error)
}

func compare(ctx context.Context, remote remoteSource, resolver *requirement.Resolver, p gridCase) comparison {
	res := comparison{Case: p}
	local := resolver.Resolve(p.Profile)

	start := time.Now()
	rows, err := remote.RequiredDocuments(ctx, query(p.Profile))
	res.Duration = time.Since(start)
	if err != nil {
		res.Err = err
		return res
	}
	res.Diff = diffRequirements(local, rows)
	return res
}

func diffRequirements(local []models.DocumentRequirement, remote []rpc.RemoteRequirement) diff {
	localTags := make(map[string]string, len(local))
	for _, r := range local {
		localTags[r.Code] = string(r.Tag)
	}
	remoteTags := make(map[string]string, len(remote))
	for _, r := range remote {
		remoteTags[models.NormalizeCode(r.Code)] = r.Tag()
	}

	var d diff
	for code, tag := range localTags {
		rt, ok := remoteTags[code]
		switch {
		case !ok:
			d.Missing = append(d.Missing, code)
		case rt != tag:
			d.Tags = append(d.Tags, fmt.Sprintf("%s(%s!=%s)", code, tag, rt))
		}
	}
	for code := range remoteTags {
		if _, ok := localTags[code]; !ok {
			d.Extra = append(d.Extra, code)
		}
	}
	sort.Strings(d.Missing)
	sort.Strings(d.Extra)
	sort.Strings(d.Tags)
	return d
}

func printReport(results []comparison) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Profile", "Result", "Local only", "Remote only", "Tag mismatch", "Latency"})
	table.SetAutoWrapText(false)
	for _, r := range results {
		result := color.GreenString("OK")
		switch {
		case r.Err != nil:
			result = color.RedString("ERROR")
		case !r.Diff.empty():
			result = color.YellowString("DIFF")
		}
		table.Append([]string{
			r.Case.Name,
			result,
			strings.Join(r.Diff.Missing, ","),
			strings.Join(r.Diff.Extra, ","),
			strings.Join(r.Diff.Tags, ","),
			r.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}
