package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ecosort/internal/domain"
	"ecosort/internal/engine"
)

func (c *cli) wasteCmd() *cobra.Command {
	waste := &cobra.Command{Use: "waste", Short: "Scanned waste items"}
	waste.AddCommand(c.wasteAddCmd())
	waste.AddCommand(c.wasteListCmd())
	waste.AddCommand(c.wasteSummaryCmd())
	waste.AddCommand(c.wasteDeleteCmd())
	waste.AddCommand(c.wasteDeleteDayCmd())
	waste.AddCommand(c.wasteRestoreCmd())
	waste.AddCommand(c.wasteDeletedCmd())
	return waste
}

func (c *cli) wasteAddCmd() *cobra.Command {
	var in engine.WasteInput
	var created string
	var encrypt bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a classified waste item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if created != "" {
					t, err := time.ParseInLocation(domain.CreatedLayout, created, e.Config.Location())
					if err != nil {
						return fmt.Errorf("--created must be %q: %w", domain.CreatedLayout, err)
					}
					in.CreatedAt = t
				}
				if encrypt {
					fc, err := c.fieldCodec()
					if err != nil {
						return err
					}
					if fc == nil {
						return fmt.Errorf("--encrypt needs ECOSORT_SECRET_KEY")
					}
					for _, field := range []*string{&in.Class, &in.Prediction, &in.Confidence, &in.RecycleProb, &in.Image} {
						if *field == "" {
							continue
						}
						enc, err := fc.Encrypt(*field)
						if err != nil {
							return err
						}
						*field = enc
					}
				}
				w, err := e.AddWaste(ctx, in)
				if err != nil {
					return err
				}
				return c.print(cmd, w, func(t tableWriter) {
					t.AppendHeader(rowOf("ID", "Created", "Points"))
					t.AppendRow(rowOf(w.ID, w.CreatedAt, w.Points))
				})
			})
		},
	}
	cmd.Flags().StringVar(&in.ID, "id", "", "item id (generated when empty)")
	cmd.Flags().StringVar(&in.Class, "class", "", "classification label")
	cmd.Flags().StringVar(&in.Prediction, "prediction", "", "Recyclable or Non-Recyclable")
	cmd.Flags().StringVar(&in.Confidence, "confidence", "", "classifier confidence")
	cmd.Flags().StringVar(&in.RecycleProb, "recycle-prob", "", "recyclability probability")
	cmd.Flags().Int64Var(&in.Points, "points", 0, "points awarded on collect")
	cmd.Flags().StringVar(&created, "created", "", "creation time, local (default now)")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "store display fields encrypted")
	return cmd
}

func (c *cli) wasteListCmd() *cobra.Command {
	var all bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List waste items newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListWaste(ctx, all, limit)
				if err != nil {
					return err
				}
				for i := range items {
					items[i].Image = nil
				}
				return c.print(cmd, items, wasteTable(items))
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include deleted items")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum items")
	return cmd
}

func (c *cli) wasteSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Recyclable and non-recyclable counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.Summarize(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd, s, func(t tableWriter) {
					t.AppendHeader(rowOf("Recyclable", "Non-Recyclable"))
					t.AppendRow(rowOf(s.Recyclable, s.NonRecyclable))
				})
			})
		},
	}
}

func (c *cli) wasteDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Soft-delete a waste item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actor()
			if err != nil {
				return err
			}
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.SoftDelete(ctx, actor, args[0])
				if err != nil {
					return err
				}
				return c.print(cmd, res, func(t tableWriter) {
					t.AppendHeader(rowOf("ID", "Deleted at", "Deleted by"))
					t.AppendRow(rowOf(res.ID, res.DeletedAt, res.DeletedBy))
				})
			})
		},
	}
}

func (c *cli) wasteDeleteDayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-day YYYY-MM-DD",
		Short: "Soft-delete every item created on a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actor()
			if err != nil {
				return err
			}
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.SoftDeleteByDate(ctx, actor, args[0])
				if err != nil {
					return err
				}
				return c.print(cmd, res, func(t tableWriter) {
					t.AppendHeader(rowOf("Date", "Total", "Newly deleted", "Already deleted"))
					t.AppendRow(rowOf(res.Date, res.Total, res.NewlyDeleted, res.AlreadyDeleted))
				})
			})
		},
	}
}

func (c *cli) wasteRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore ID",
		Short: "Restore a soft-deleted waste item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actor()
			if err != nil {
				return err
			}
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Restore(ctx, actor, args[0])
				if err != nil {
					return err
				}
				return c.print(cmd, res, func(t tableWriter) {
					t.AppendHeader(rowOf("ID", "Restored at", "Restored by", "Was deleted"))
					t.AppendRow(rowOf(res.ID, res.RestoredAt, res.RestoredBy, res.WasDeleted))
				})
			})
		},
	}
}

func (c *cli) wasteDeletedCmd() *cobra.Command {
	var q engine.DeletedQuery
	cmd := &cobra.Command{
		Use:   "deleted",
		Short: "List soft-deleted items, most recently deleted first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.QueryDeleted(ctx, q)
				if err != nil {
					return err
				}
				for i := range items {
					items[i].Image = nil
				}
				return c.print(cmd, items, wasteTable(items))
			})
		},
	}
	cmd.Flags().StringVar(&q.DateFrom, "from", "", "deleted on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&q.DateTo, "to", "", "deleted on or before YYYY-MM-DD")
	cmd.Flags().StringVar(&q.DeletedBy, "by", "", "deleting account")
	return cmd
}

func (c *cli) awardCmd() *cobra.Command {
	award := &cobra.Command{Use: "award", Short: "Award catalog"}
	award.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List awards, cheapest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListAwards(ctx)
				if err != nil {
					return err
				}
				return c.print(cmd, items, func(t tableWriter) {
					t.AppendHeader(rowOf("ID", "Name", "Cost"))
					for _, a := range items {
						t.AppendRow(rowOf(a.ID, a.Name, a.Cost))
					}
				})
			})
		},
	})

	var in engine.AwardInput
	save := &cobra.Command{
		Use:   "save",
		Short: "Create or update an award",
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actor()
			if err != nil {
				return err
			}
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.SaveAward(ctx, actor, in)
				if err != nil {
					return err
				}
				return c.print(cmd, a, func(t tableWriter) {
					t.AppendHeader(rowOf("ID", "Name", "Cost"))
					t.AppendRow(rowOf(a.ID, a.Name, a.Cost))
				})
			})
		},
	}
	save.Flags().StringVar(&in.ID, "id", "", "award id to update (create when empty)")
	save.Flags().StringVar(&in.Name, "name", "", "award name")
	save.Flags().Int64Var(&in.Cost, "cost", 0, "cost in points")
	award.AddCommand(save)

	award.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete an award",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := c.actor()
			if err != nil {
				return err
			}
			return c.withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteAward(ctx, actor, args[0])
			})
		},
	})
	return award
}

func wasteTable(items []engine.WasteView) func(tableWriter) {
	return func(t tableWriter) {
		t.AppendHeader(rowOf("ID", "Created", "Class", "Prediction", "Points", "Collected", "State"))
		for _, w := range items {
			t.AppendRow(rowOf(w.ID, w.Timestamp, deref(w.Class), deref(w.Prediction), w.Points, w.Collected, w.State.State))
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
