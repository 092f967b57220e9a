// Command floractl is the operator tool: schema migrations, seeding, codes, tokens and shipping updates.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ariefcatur/flora-checkout/internal/auth"
	"github.com/ariefcatur/flora-checkout/internal/catalog"
	"github.com/ariefcatur/flora-checkout/internal/checkout"
	"github.com/ariefcatur/flora-checkout/internal/config"
	"github.com/ariefcatur/flora-checkout/internal/customer"
	kafkax "github.com/ariefcatur/flora-checkout/internal/kafka"
	"github.com/ariefcatur/flora-checkout/internal/ledger"
	"github.com/ariefcatur/flora-checkout/internal/logging"
	"github.com/ariefcatur/flora-checkout/internal/orders"
	"github.com/ariefcatur/flora-checkout/internal/otp"
	"github.com/ariefcatur/flora-checkout/internal/postgres"
	"github.com/ariefcatur/flora-checkout/internal/redisx"
)

type env struct {
	cfg config.Config
	log *zap.Logger
}

func main() {
	_ = godotenv.Load()
	e := &env{}

	app := &cli.App{
		Name:  "floractl",
		Usage: "operate the flora checkout service",
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			l, err := logging.New(cfg.LogLevel, cfg.ServiceName+"-ctl")
			if err != nil {
				return err
			}
			e.cfg, e.log = cfg, l
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply or revert schema migrations",
				Subcommands: []*cli.Command{
					{Name: "up", Action: e.migrateUp},
					{
						Name:   "down",
						Flags:  []cli.Flag{&cli.IntFlag{Name: "steps", Value: 1}},
						Action: e.migrateDown,
					},
				},
			},
			{
				Name:  "account",
				Usage: "payment accounts",
				Subcommands: []*cli.Command{{
					Name: "open",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "username", Required: true},
						&cli.StringFlag{Name: "number", Required: true},
						&cli.StringFlag{Name: "balance", Value: "0"},
					},
					Action: e.openAccount,
				}},
			},
			{
				Name:  "customer",
				Usage: "customer directory",
				Subcommands: []*cli.Command{{
					Name: "add",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "username", Required: true},
						&cli.StringFlag{Name: "email", Required: true},
						&cli.StringFlag{Name: "first-name"},
						&cli.StringFlag{Name: "last-name"},
						&cli.StringFlag{Name: "phone"},
					},
					Action: e.addCustomer,
				}},
			},
			{
				Name:  "plant",
				Usage: "catalog items",
				Subcommands: []*cli.Command{{
					Name: "add",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "name", Required: true},
						&cli.StringFlag{Name: "kind", Value: string(catalog.KindFlower), Usage: "FLOWER or INDOOR_PLANT"},
						&cli.StringFlag{Name: "price", Required: true},
						&cli.IntFlag{Name: "stock"},
						&cli.StringFlag{Name: "category"},
						&cli.StringFlag{Name: "description"},
						&cli.StringFlag{Name: "color", Value: string(catalog.ColorMixed)},
						&cli.IntFlag{Name: "piece", Value: 1},
						&cli.StringFlag{Name: "size"},
						&cli.BoolFlag{Name: "easy-to-care"},
						&cli.StringFlag{Name: "care"},
					},
					Action: e.addPlant,
				}},
			},
			{
				Name:  "otp",
				Usage: "one-time codes",
				Subcommands: []*cli.Command{{
					Name: "issue",
					Flags: []cli.Flag{
						&cli.Int64Flag{Name: "user-id", Required: true},
						&cli.StringFlag{Name: "username", Required: true},
					},
					Action: e.issueCode,
				}},
			},
			{
				Name:  "token",
				Usage: "sign a bearer token for the history endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "role", Value: "customer"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: e.token,
			},
			{
				Name:  "ship",
				Usage: "move an order to a new shipping status",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "order-id", Required: true},
					&cli.StringFlag{Name: "status", Required: true},
				},
				Action: e.ship,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func (e *env) migrateUp(*cli.Context) error {
	if err := postgres.Migrate(e.cfg.PostgresDSN); err != nil {
		return err
	}
	e.log.Info("migrations applied")
	return nil
}

func (e *env) migrateDown(c *cli.Context) error {
	if err := postgres.Rollback(e.cfg.PostgresDSN, c.Int("steps")); err != nil {
		return err
	}
	e.log.Info("migrations reverted", zap.Int("steps", c.Int("steps")))
	return nil
}

func (e *env) openAccount(c *cli.Context) error {
	bal, err := decimal.NewFromString(c.String("balance"))
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	db, err := postgres.Connect(c.Context, e.cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	a, err := (&ledger.Repo{DB: db}).Open(c.Context, ledger.Account{
		Username: c.String("username"), AccountNumber: c.String("number"), Balance: bal,
	})
	if err != nil {
		return err
	}
	return printJSON(a)
}

func (e *env) addCustomer(c *cli.Context) error {
	db, err := postgres.Connect(c.Context, e.cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	cust, err := (&customer.Repo{DB: db}).Register(c.Context, customer.Customer{
		Username:  c.String("username"),
		Email:     c.String("email"),
		FirstName: c.String("first-name"),
		LastName:  c.String("last-name"),
		Phone:     c.String("phone"),
	})
	if err != nil {
		return err
	}
	return printJSON(cust)
}

func (e *env) addPlant(c *cli.Context) error {
	price, err := decimal.NewFromString(c.String("price"))
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	it := catalog.Item{
		Name:        c.String("name"),
		Description: c.String("description"),
		Price:       price,
		UpdatePrice: price,
		Stock:       c.Int("stock"),
		Category:    c.String("category"),
		Kind:        catalog.Kind(c.String("kind")),
	}
	switch it.Kind {
	case catalog.KindFlower:
		color, ok := catalog.ParseColor(c.String("color"))
		if !ok {
			return fmt.Errorf("unknown color %q", c.String("color"))
		}
		it.Flower = &catalog.Flower{Color: color, Piece: c.Int("piece")}
	case catalog.KindIndoorPlant:
		it.IndoorPlant = &catalog.IndoorPlant{
			PlantSize: c.String("size"), EasyToCare: c.Bool("easy-to-care"), CareInstructions: c.String("care"),
		}
	}

	db, err := postgres.Connect(c.Context, e.cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	saved, err := (&catalog.Repo{DB: db}).Save(c.Context, it)
	if err != nil {
		return err
	}
	return printJSON(saved)
}

func (e *env) issueCode(c *cli.Context) error {
	rdb := redisx.New(e.cfg.RedisAddr)
	defer rdb.Close()

	a := &otp.Authority{Store: &otp.RedisStore{Redis: rdb}, Digits: e.cfg.OTPDigits, Log: e.log}
	code, err := a.Issue(c.Context, c.Int64("user-id"), c.String("username"))
	if err != nil {
		return err
	}
	fmt.Println(code)
	return nil
}

func (e *env) token(c *cli.Context) error {
	tok, err := auth.Issue([]byte(e.cfg.JWTSecret),
		auth.Principal{Username: c.String("username"), Role: c.String("role")}, c.Duration("ttl"), time.Now())
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func (e *env) ship(c *cli.Context) error {
	target, ok := orders.ParseShippingStatus(c.String("status"))
	if !ok {
		return fmt.Errorf("unknown shipping status %q", c.String("status"))
	}
	db, err := postgres.Connect(c.Context, e.cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	prod := kafkax.NewProducer(e.cfg.KafkaBrokers, orders.TopicShippingChanged, 16, e.log)
	prod.Start(context.Background())
	defer func() {
		prod.Close()
		prod.WaitClosed()
	}()

	orch := &checkout.Orchestrator{
		Orders:   &orders.Repo{DB: db},
		Shipping: prod,
		Producer: e.cfg.ServiceName + "-ctl",
		Log:      e.log,
	}
	snap, err := orch.UpdateShippingStatus(c.Context, c.Int64("order-id"), target)
	if err != nil {
		return err
	}
	return printJSON(snap)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
