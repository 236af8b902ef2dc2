package main

//go:generate swag init

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/vumbaview/console/backend"
	"github.com/vumbaview/console/composer"
	_ "github.com/vumbaview/console/docs"
	"github.com/vumbaview/console/export"
	"github.com/vumbaview/console/handlers"
	"github.com/vumbaview/console/models"
)

// @title           Vumba View Academy Admin Console API
// @version         1.0.0
// @description     Gateway API for the school-accounting dashboard: students, invoices, credit fulfillment, and aggregate statistics. All records live in the upstream accounting service.
// @host            localhost:8085
// @BasePath        /api/v1
// @securityDefinitions.basic  BasicAuth

func main() {
	_ = godotenv.Load()

	// Configure structured logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	var backendURL string

	app := &cli.App{
		Name:  "console",
		Usage: "Vumba View Academy admin console",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "backend-url",
				EnvVars:     []string{"BACKEND_URL"},
				Value:       backend.DefaultBaseURL,
				Usage:       "base URL of the accounting service",
				Destination: &backendURL,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the console API gateway",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "bind-address",
						EnvVars: []string{"BIND_ADDRESS"},
						Value:   ":8085",
					},
				},
				Action: func(c *cli.Context) error {
					handlers.Backend = backend.New(backendURL)
					addr := c.String("bind-address")
					slog.Info("console starting", "address", addr, "backend", backendURL)
					return http.ListenAndServe(addr, handlers.Router())
				},
			},
			{
				Name:  "students",
				Usage: "list students",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Usage: "filter by name, admission id, or class"},
				},
				Action: func(c *cli.Context) error {
					return listStudents(c.Context, backend.New(backendURL), c.String("search"))
				},
			},
			{
				Name:  "invoices",
				Usage: "work with invoices",
				Subcommands: []*cli.Command{
					{
						Name:  "export",
						Usage: "write invoices as CSV",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "status", Usage: "Pending, Paid, or Overdue"},
							&cli.StringFlag{Name: "out", Usage: "output file (default stdout)"},
						},
						Action: func(c *cli.Context) error {
							return exportInvoices(c.Context, backend.New(backendURL),
								models.InvoiceStatus(c.String("status")), c.String("out"))
						},
					},
					{
						Name:  "create",
						Usage: "compose and submit a new invoice",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "student", Required: true, Usage: "student id"},
							&cli.StringFlag{Name: "due", Required: true, Usage: "due date (YYYY-MM-DD)"},
							&cli.StringFlag{Name: "method", Value: string(models.MethodCash), Usage: "Card, Ecocash, Cash, or Credit"},
							&cli.StringSliceFlag{Name: "item", Usage: `line item as "Fee Type:amount[:description]"`},
							&cli.BoolFlag{Name: "fulfill", Usage: "settle an outstanding credit invoice instead of billing items"},
							&cli.StringFlag{Name: "credit-invoice", Usage: "credit invoice id to fulfill (default: first outstanding)"},
						},
						Action: func(c *cli.Context) error {
							return createInvoice(c, backend.New(backendURL))
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func listStudents(ctx context.Context, client *backend.Client, search string) error {
	students, err := client.ListStudents(ctx)
	if err != nil {
		return err
	}
	if search != "" {
		students = lo.Filter(students, func(s models.Student, _ int) bool {
			return s.Matches(search)
		})
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADMISSION ID\tNAME\tCLASS\tCONTACT")
	for _, s := range students {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.AdmissionID, s.Name, s.Class, s.Contact)
	}
	return tw.Flush()
}

func exportInvoices(ctx context.Context, client *backend.Client, status models.InvoiceStatus, out string) error {
	invoices, _, err := client.ListInvoices(ctx, backend.ListInvoicesOptions{Status: status})
	if err != nil {
		return err
	}

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return export.WriteInvoicesCSV(w, invoices)
}

func createInvoice(c *cli.Context, client *backend.Client) error {
	ctx := c.Context
	items := c.StringSlice("item")
	fulfill := c.Bool("fulfill")
	if fulfill && len(items) > 0 {
		return fmt.Errorf("--fulfill cannot be combined with --item")
	}
	if !fulfill && len(items) == 0 {
		return fmt.Errorf("at least one --item is required")
	}

	due, err := time.Parse("2006-01-02", c.String("due"))
	if err != nil {
		return fmt.Errorf("parsing --due: %w", err)
	}

	comp := composer.New(client)
	if err := comp.SelectStudent(ctx, c.String("student")); err != nil {
		return err
	}
	comp.SetDueDate(due)
	comp.SetPaymentMethod(models.PaymentMethod(c.String("method")))

	if fulfill {
		if err := comp.UpdateItemFeeType(ctx, 0, models.FeeFulfillment); err != nil {
			return err
		}
		if id := c.String("credit-invoice"); id != "" {
			if err := comp.SelectCreditInvoice(id); err != nil {
				return err
			}
		}
		if _, ok := comp.SelectedCreditInvoice(); !ok {
			return fmt.Errorf("student has no outstanding credit invoices")
		}
	} else {
		for i, raw := range items {
			if i > 0 {
				if err := comp.AddItem(); err != nil {
					return err
				}
			}
			if err := applyItem(ctx, comp, i, raw); err != nil {
				return err
			}
		}
	}

	invoice, err := comp.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("created %s for %s, total $%s\n",
		invoice.DisplayNumber(), invoice.Student.Name, invoice.Total.StringFixed(2))
	return nil
}

// applyItem parses "Fee Type:amount[:description]" onto the item at index.
func applyItem(ctx context.Context, comp *composer.Composer, index int, raw string) error {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return fmt.Errorf("invalid --item %q, want \"Fee Type:amount[:description]\"", raw)
	}
	amount, err := decimal.NewFromString(parts[1])
	if err != nil {
		return fmt.Errorf("invalid amount in --item %q: %w", raw, err)
	}
	if err := comp.UpdateItemFeeType(ctx, index, models.FeeType(parts[0])); err != nil {
		return err
	}
	if err := comp.UpdateItemAmount(index, amount); err != nil {
		return err
	}
	if len(parts) == 3 {
		return comp.UpdateItemDescription(index, parts[2])
	}
	return nil
}
