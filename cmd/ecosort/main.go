package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ecosort/internal/app"
	"ecosort/internal/codec"
	"ecosort/internal/config"
	"ecosort/internal/db"
	"ecosort/internal/engine"
	"ecosort/internal/logging"
	"ecosort/internal/migrate"
	"ecosort/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if engine.IsRetryable(err) {
			fmt.Fprintln(os.Stderr, "nothing was written; the command can be retried")
		}
		os.Exit(1)
	}
}

// cli carries state shared by every command of one invocation.
type cli struct {
	v   *viper.Viper
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New(), log: logging.Discard()}
	root := &cobra.Command{
		Use:   "ecosort",
		Short: "ecosort points ledger",
		Long: `ecosort credits points for recycled waste items and lets accounts spend
them on awards.
- Collect: redeem a waste item's QR code for its points, exactly once.
- Redeem: spend points on a catalog award, never below zero.
- Waste log: soft-delete, bulk-delete by day and restore scanned items.
- Ranking: leaderboard of eligible accounts, all-time or per month.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.log = logging.New(c.v.GetString("log-level"))
			workspace := c.v.GetString("workspace")
			config.LoadEnv(workspace, c.log)
			_, err := db.EnsureWorkspace(workspace)
			return err
		},
	}
	c.v.SetEnvPrefix("ECOSORT")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	flags := root.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.String("db", "", "database file (default <workspace>/.ecosort/ecosort.db)")
	flags.Bool("json", false, "output JSON")
	flags.String("actor-id", "", "account acting on the ledger")
	flags.String("role", "admin", "role of the acting account")
	flags.String("log-level", "warn", "log level")
	for _, name := range []string{"workspace", "db", "json", "actor-id", "role", "log-level"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.migrateCmd())
	root.AddCommand(c.seedCmd())
	root.AddCommand(c.tokenCmd())
	root.AddCommand(c.accountCmd())
	root.AddCommand(c.wasteCmd())
	root.AddCommand(c.awardCmd())
	root.AddCommand(c.collectCmd())
	root.AddCommand(c.redeemCmd())
	root.AddCommand(c.rankCmd())
	root.AddCommand(c.historyCmd())
	root.AddCommand(c.reconcileCmd())
	root.AddCommand(c.eventsCmd())
	return root
}

func (c *cli) dbConfig() db.Config {
	return db.Config{Workspace: c.v.GetString("workspace"), Path: c.v.GetString("db")}
}

func (c *cli) actor() (string, error) {
	id := strings.TrimSpace(c.v.GetString("actor-id"))
	if id == "" {
		return "", errors.New("--actor-id (or ECOSORT_ACTOR_ID) is required")
	}
	return id, nil
}

// fieldCodec returns the display-field codec keyed by ECOSORT_SECRET_KEY, or
// nil when no key is configured.
func (c *cli) fieldCodec() (*codec.FieldCodec, error) {
	secret := c.v.GetString("secret-key")
	if secret == "" {
		return nil, nil
	}
	return codec.New([]byte(secret))
}

func (c *cli) withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	cfg, err := config.Load(c.v.GetString("workspace"))
	if err != nil {
		return err
	}
	conn, err := app.Open(ctx, c.dbConfig(), cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	e := engine.New(conn, cfg)
	e.Log = c.log
	fc, err := c.fieldCodec()
	if err != nil {
		return err
	}
	if fc != nil {
		e.Codec = fc
	}
	return fn(ctx, e)
}

func (c *cli) serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				authCfg := server.AuthConfig{JWTSecret: c.v.GetString("jwt-secret"), Logger: c.log}
				if authCfg.JWTSecret == "" {
					return fmt.Errorf("ECOSORT_JWT_SECRET is required for bearer auth")
				}
				handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Logger: c.log})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				c.log.WithField("addr", addr).WithField("base_path", basePath).Info("serving ecosort API")
				fmt.Fprintf(cmd.OutOrStdout(), "Serving ecosort API on http://%s%s (OpenAPI at %s/openapi.json, metrics at /metrics)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "API base path")
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(c.dbConfig())
			if err != nil {
				return err
			}
			defer conn.Close()
			version, err := migrate.Migrate(cmd.Context(), conn)
			if err != nil {
				return err
			}
			return c.print(cmd, map[string]int{"schema_version": version}, func(t tableWriter) {
				t.AppendHeader(rowOf("Schema version"))
				t.AppendRow(rowOf(version))
			})
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Sync roles and pages from ecosort.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				roles, err := e.Repo.ListRoles(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd, roles, func(t tableWriter) {
					t.AppendHeader(rowOf("Role", "Name", "Pages"))
					for _, r := range roles {
						t.AppendRow(rowOf(r.ID, r.Name, strings.Join(r.Pages, ", ")))
					}
				})
			})
		},
	}
}

func (c *cli) tokenCmd() *cobra.Command {
	var email string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token for the acting account",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actor()
			if err != nil {
				return err
			}
			token, err := server.SignToken(c.v.GetString("jwt-secret"), actor, email, c.v.GetString("role"), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func (c *cli) accountCmd() *cobra.Command {
	acct := &cobra.Command{Use: "account", Short: "Manage accounts"}
	var in engine.AccountInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account with a zero balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.CreateAccount(ctx, in)
				if err != nil {
					return err
				}
				return c.print(cmd, a, func(t tableWriter) {
					t.AppendHeader(rowOf("ID", "Username", "Role", "Verified"))
					t.AppendRow(rowOf(a.ID, a.Username, a.RoleID, a.Verified))
				})
			})
		},
	}
	create.Flags().StringVar(&in.ID, "id", "", "account id (generated when empty)")
	create.Flags().StringVar(&in.Email, "email", "", "email")
	create.Flags().StringVar(&in.Username, "username", "", "username")
	create.Flags().StringVar(&in.RoleID, "account-role", "student", "role id")
	create.Flags().BoolVar(&in.Verified, "verified", true, "mark the email verified")
	acct.AddCommand(create)

	acct.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Show an account's points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.AccountPoints(ctx, args[0])
				if err != nil {
					return err
				}
				return c.print(cmd, p, func(t tableWriter) {
					t.AppendHeader(rowOf("ID", "Username", "Points"))
					t.AppendRow(rowOf(p.ID, p.Username, p.Points))
				})
			})
		},
	})
	return acct
}

func (c *cli) collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect WASTE_ID",
		Short: "Collect the points of a waste item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actor()
			if err != nil {
				return err
			}
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Collect(ctx, actor, args[0])
				if err != nil {
					return err
				}
				return c.print(cmd, res, func(t tableWriter) {
					t.AppendHeader(rowOf("Waste", "Account", "Points", "Balance"))
					t.AppendRow(rowOf(res.WasteItemID, res.AccountID, res.PointsAwarded, res.NewBalance))
				})
			})
		},
	}
}

func (c *cli) redeemCmd() *cobra.Command {
	var barcode, onBehalf string
	cmd := &cobra.Command{
		Use:   "redeem AWARD_ID",
		Short: "Spend points on an award",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actor()
			if err != nil {
				return err
			}
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Redeem(ctx, engine.RedeemOptions{
					ActorID:   actor,
					ActorRole: c.v.GetString("role"),
					AccountID: onBehalf,
					AwardID:   args[0],
					Token:     barcode,
				})
				if err != nil {
					return err
				}
				return c.print(cmd, res, func(t tableWriter) {
					t.AppendHeader(rowOf("Redemption", "Account", "Award", "Cost", "Balance"))
					t.AppendRow(rowOf(res.RedemptionID, res.AccountID, res.AwardName, res.Cost, res.NewBalance))
				})
			})
		},
	}
	cmd.Flags().StringVar(&barcode, "barcode", "", "redemption token")
	cmd.Flags().StringVar(&onBehalf, "for", "", "redeem for another account")
	return cmd
}

func (c *cli) rankCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Leaderboard of eligible accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.RankAccounts(ctx, engine.RankScope{Month: month})
				if err != nil {
					return err
				}
				return c.print(cmd, items, func(t tableWriter) {
					t.AppendHeader(rowOf("#", "Account", "Username", "Email", "Points"))
					for i, r := range items {
						t.AppendRow(rowOf(i+1, r.AccountID, r.Username, r.Email, r.Points))
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "rank points collected in YYYY-MM")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var q engine.HistoryQuery
	var kind string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Collections and redemptions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Kind = engine.HistoryKind(kind)
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.History(ctx, q)
				if err != nil {
					return err
				}
				return c.print(cmd, items, func(t tableWriter) {
					t.AppendHeader(rowOf("At", "Kind", "Account", "ID", "Delta"))
					for _, h := range items {
						t.AppendRow(rowOf(h.At, h.Kind, h.AccountID, h.ID, h.Delta))
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&q.AccountID, "user", "", "account id")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum records when no account is given")
	cmd.Flags().StringVar(&kind, "kind", "", "collection or redemption")
	return cmd
}

func (c *cli) reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile ACCOUNT_ID",
		Short: "Compare a stored balance with its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.ReconcileBalance(ctx, args[0])
				if err != nil {
					return err
				}
				if err := c.print(cmd, r, func(t tableWriter) {
					t.AppendHeader(rowOf("Account", "Stored", "Credits", "Debits", "Derived", "Consistent"))
					t.AppendRow(rowOf(r.AccountID, r.Stored, r.Credits, r.Debits, r.Derived, r.Consistent))
				}); err != nil {
					return err
				}
				if !r.Consistent {
					return fmt.Errorf("balance of %s is %d but history derives %d", r.AccountID, r.Stored, r.Derived)
				}
				return nil
			})
		},
	}
}

func (c *cli) eventsCmd() *cobra.Command {
	var n int
	var entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.AuditTrail(ctx, entityKind, entityID, n)
				if err != nil {
					return err
				}
				return c.print(cmd, items, func(t tableWriter) {
					t.AppendHeader(rowOf("ID", "TS", "Type", "Entity", "Actor"))
					for _, evt := range items {
						t.AppendRow(rowOf(evt.ID, evt.TS, evt.Type, evt.EntityKind+"/"+evt.EntityID, evt.ActorID))
					}
				})
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}
