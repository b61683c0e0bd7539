// Command admin runs operator maintenance tasks against the backend database.
//
//	admin list-phones [-limit N]
//	admin scan-balance -balance N
//	admin add-credits -phone P -amount N [-note TEXT]
//	admin find-user -phone P
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/designai/studio-backend/internal/config"
	"github.com/designai/studio-backend/internal/domain"
	"github.com/designai/studio-backend/internal/repo"
	"github.com/designai/studio-backend/internal/services"
	"github.com/designai/studio-backend/internal/sysutil"
)

var errUsage = errors.New("usage: admin <list-phones|scan-balance|add-credits|find-user> [flags]")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	db, err := repo.Open(repo.Options{Driver: cfg.DBDriver, DatabaseURL: cfg.DatabaseURL, SQLitePath: cfg.DBPath})
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, db, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, db *gorm.DB, args []string, w io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(w)

	switch cmd {
	case "list-phones":
		limit := fs.Int("limit", 0, "max rows (0 = all)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return listPhones(ctx, db, *limit, w)

	case "scan-balance":
		floor := fs.Int("balance", -1, "report users with at least this balance")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *floor < 0 {
			return errors.New("scan-balance: -balance is required")
		}
		return scanBalance(ctx, db, *floor, w)

	case "add-credits":
		phone := fs.String("phone", "", "registered phone number")
		amount := fs.Int("amount", 0, "credits to add (negative to deduct)")
		note := fs.String("note", "", "ledger description")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *phone == "" || *amount == 0 {
			return errors.New("add-credits: -phone and a non-zero -amount are required")
		}
		return addCredits(ctx, db, *phone, *amount, *note, w)

	case "find-user":
		phone := fs.String("phone", "", "registered phone number")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *phone == "" {
			return errors.New("find-user: -phone is required")
		}
		return findUser(ctx, db, *phone, w)
	}
	return errUsage
}

func listPhones(ctx context.Context, db *gorm.DB, limit int, w io.Writer) error {
	users, err := repo.ListPhoneUsers(ctx, db, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHONE\tUSER ID\tREGISTERED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.Phone, u.SupabaseUserID, u.CreatedAt.Format(time.DateTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d phone users\n", len(users))
	return nil
}

func scanBalance(ctx context.Context, db *gorm.DB, floor int, w io.Writer) error {
	rows, err := repo.ListCreditsAtLeast(ctx, db, floor)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER ID\tBALANCE\tTIER")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.UserID, r.Balance, r.SubscriptionTier)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d users with balance >= %d\n", len(rows), floor)
	return nil
}

func addCredits(ctx context.Context, db *gorm.DB, phone string, amount int, note string, w io.Writer) error {
	u, err := lookupPhone(ctx, db, phone)
	if err != nil {
		return err
	}
	svc := &services.CreditService{DB: db}
	uc, err := svc.AdminGrant(ctx, u.SupabaseUserID, amount, note)
	if err != nil {
		return fmt.Errorf("add-credits: %w", err)
	}
	fmt.Fprintf(w, "added %d credits to %s (%s); balance now %d\n", amount, phone, u.SupabaseUserID, uc.Balance)
	return nil
}

func findUser(ctx context.Context, db *gorm.DB, phone string, w io.Writer) error {
	u, err := lookupPhone(ctx, db, phone)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "phone:      %s\nuser id:    %s\nregistered: %s\n", u.Phone, u.SupabaseUserID, u.CreatedAt.Format(time.DateTime))

	uc, err := repo.GetCredits(ctx, db, u.SupabaseUserID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		fmt.Fprintln(w, "balance:    0 (no credits row)")
	case err != nil:
		return err
	default:
		fmt.Fprintf(w, "balance:    %d\n", uc.Balance)
		if uc.SubscriptionTier != "" {
			exp := "-"
			if uc.SubscriptionExpiresAt != nil {
				exp = uc.SubscriptionExpiresAt.Format(time.DateOnly)
			}
			fmt.Fprintf(w, "plan:       %s (%s, until %s)\n", uc.SubscriptionTier, uc.SubscriptionStatus, exp)
		}
	}
	return nil
}

func lookupPhone(ctx context.Context, db *gorm.DB, raw string) (*domain.PhoneUser, error) {
	phone, err := services.NormalizePhone(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", raw, err)
	}
	u, err := repo.FindPhoneUserByPhone(ctx, db, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("no user registered with phone %s", phone)
	}
	return u, err
}
