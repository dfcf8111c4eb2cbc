// Command santri-cli is the operator tool: schema migrations, checklist
// inspection and development tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/santri-dokumen-api/internal/dto"
	"github.com/noah-isme/santri-dokumen-api/internal/models"
	"github.com/noah-isme/santri-dokumen-api/internal/repository"
	"github.com/noah-isme/santri-dokumen-api/internal/requirement"
	"github.com/noah-isme/santri-dokumen-api/internal/service"
	"github.com/noah-isme/santri-dokumen-api/pkg/config"
	"github.com/noah-isme/santri-dokumen-api/pkg/database"
)

const usage = `usage: santri-cli <command> [flags]

commands:
  migrate up|down|status [-steps n]   apply or inspect schema migrations
  resolve [profile flags]             print the checklist for an ad-hoc profile
  checklist <student-id>              print a stored student's checklist and progress
  cohort [-category c] [-below n]     print completeness for every student
  token -user id -role r [-students a,b] [-ttl d]   mint a development bearer token
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "migrate":
		err = runMigrate(ctx, cfg, args)
	case "resolve":
		err = runResolve(cfg, args)
	case "checklist":
		err = runChecklist(ctx, cfg, args)
	case "cohort":
		err = runCohort(ctx, cfg, args)
	case "token":
		err = runToken(cfg, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fail("%s: %v", cmd, err)
	}
}

func fail(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	return database.NewPostgres(ctx, cfg.Database)
}

func runMigrate(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("direction required: up, down or status")
	}
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	steps := fs.Int("steps", 1, "migrations to roll back")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	switch args[0] {
	case "up":
		n, err := database.MigrateUp(db)
		if err != nil {
			return err
		}
		color.Green("applied %d migration(s)", n)
	case "down":
		n, err := database.MigrateDown(db, *steps)
		if err != nil {
			return err
		}
		color.Yellow("rolled back %d migration(s)", n)
	case "status":
		statuses, err := database.Status(db)
		if err != nil {
			return err
		}
		renderMigrations(os.Stdout, statuses)
	default:
		return fmt.Errorf("unknown direction %q", args[0])
	}
	return nil
}

func runResolve(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	var req dto.ProfileRequest
	resident := fs.Bool("resident", false, "student lives at the pesantren")
	fs.StringVar(&req.Category, "category", "REGULER", "category enum or form label")
	fs.StringVar(&req.SocialStatus, "social", "", "social status")
	fs.StringVar(&req.BirthDate, "birth", "", "birth date YYYY-MM-DD")
	fs.StringVar(&req.GuardianRelationship, "guardian", "", "primary guardian relationship")
	fs.StringVar(&req.Address, "address", "", "home address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "resident" {
			req.Resident = resident
		}
	})

	profile := req.ToProfile()
	reqs := requirement.NewResolver(requirement.WithHomeLocality(cfg.Requirements.HomeLocality)).Resolve(profile)
	color.Cyan("Checklist for %s / %s", profile.Category, profile.SocialStatus)
	renderRequirements(os.Stdout, reqs)
	return nil
}

func newStudentService(db *sqlx.DB, cfg *config.Config) *service.StudentService {
	logr := zap.NewNop()
	docs := service.NewDocumentService(repository.NewDocumentRepository(db), nil, logr)
	resolver := requirement.NewResolver(requirement.WithHomeLocality(cfg.Requirements.HomeLocality))
	return service.NewStudentService(repository.NewStudentRepository(db), repository.NewGuardianRepository(db), docs, resolver, nil, nil, logr)
}

func runChecklist(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("student id required")
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	svc := newStudentService(db, cfg)
	detail, err := svc.Detail(ctx, args[0])
	if err != nil {
		return err
	}
	result, err := svc.Completeness(ctx, args[0])
	if err != nil {
		return err
	}
	color.Cyan("%s (NIS %s) - %s", detail.FullName, detail.NIS, detail.Category)
	renderCompleteness(os.Stdout, result)
	return nil
}

func runCohort(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("cohort", flag.ExitOnError)
	category := fs.String("category", "", "limit to one category")
	below := fs.Int("below", 0, "only students under this percentage")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var filter models.StudentFilter
	if *category != "" {
		c, ok := models.ParseCategory(*category, nil)
		if !ok {
			return fmt.Errorf("unknown category %q", *category)
		}
		filter.Category = &c
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	rows, err := newStudentService(db, cfg).Cohort(ctx, filter)
	if err != nil {
		return err
	}
	renderCohort(os.Stdout, rows, *below)
	return nil
}

func runToken(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	role := fs.String("role", string(models.RoleStaff), "SUPERADMIN, ADMIN, STAFF or GUARDIAN")
	students := fs.String("students", "", "comma separated student ids for GUARDIAN tokens")
	ttl := fs.Duration("ttl", 12*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.Env == config.EnvProduction {
		return fmt.Errorf("refusing to mint tokens in production")
	}

	claims := models.JWTClaims{UserID: *user, Role: models.UserRole(strings.ToUpper(*role))}
	for _, id := range strings.Split(*students, ",") {
		if id = strings.TrimSpace(id); id != "" {
			claims.StudentIDs = append(claims.StudentIDs, id)
		}
	}
	auth := service.NewAuthService(zap.NewNop(), service.AuthConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience})
	token, expires, err := auth.IssueToken(claims, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	color.New(color.FgHiBlack).Fprintf(os.Stderr, "expires %s\n", expires.Format(time.RFC3339))
	return nil
}
