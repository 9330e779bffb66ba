// Package tx contains the transaction commands
package tx

import (
	"context"
	"fmt"

	"softetsolutions/mattax/cmd/common"
	"softetsolutions/mattax/cmd/root"
	"softetsolutions/mattax/internal/backend"
	"softetsolutions/mattax/internal/container"
	"softetsolutions/mattax/internal/form"
	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/receipt"

	"github.com/spf13/cobra"
)

var (
	listAll     bool
	draftFile   string
	receiptFile string
	scanReceipt bool
	draftFlags  common.DraftFile
)

// Cmd represents the tx command
var Cmd = &cobra.Command{
	Use:   "tx",
	Short: "List, add and edit transactions",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listFeed(cmd, false)
	},
}

var binCmd = &cobra.Command{
	Use:   "bin",
	Short: "List deleted transactions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listFeed(cmd, true)
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new transaction",
	Long: `Record a new transaction from flags and/or a YAML draft file (--draft).
Flags override values from the draft file. Categories, subcategories, vendors and accounts
that do not exist yet are created. With --receipt the image is attached; add --scan to
pre-fill the transaction from the receipt before the flags are applied.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.SessionContainer()
		if err != nil {
			return err
		}
		if err := c.Resolver().Load(root.Context(cmd), c.Session()); err != nil {
			return err
		}
		return runForm(cmd, c, c.NewCreateForm())
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit an existing transaction",
	Long:  `Edit an existing transaction. Only the fields given by flags or the draft file change.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.SessionContainer()
		if err != nil {
			return err
		}
		ctx := root.Context(cmd)
		if err := c.Resolver().Load(ctx, c.Session()); err != nil {
			return err
		}
		tx, err := common.FindTransaction(ctx, c.Service().ListTransactions, c.Session(), models.ID(args[0]))
		if err != nil {
			return err
		}
		return runForm(cmd, c, c.NewEditForm(tx))
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Move a transaction to the bin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args[0], "deleted", backend.Service.DeleteTransaction)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a transaction from the bin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args[0], "restored", backend.Service.RestoreTransaction)
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge <id>",
	Short: "Permanently delete a transaction from the bin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args[0], "purged", backend.Service.PurgeTransaction)
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs <id>",
	Short: "Show the change history of a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.SessionContainer()
		if err != nil {
			return err
		}
		entries, err := c.Service().TransactionLogs(root.Context(cmd), c.Session(), models.ID(args[0]))
		if err != nil {
			return fmt.Errorf("failed to load transaction logs: %w", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No changes recorded.")
			return nil
		}
		return common.WriteLogs(cmd.OutOrStdout(), entries)
	},
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "Fetch every page instead of the first")
	binCmd.Flags().BoolVar(&listAll, "all", false, "Fetch every page instead of the first")

	for _, c := range []*cobra.Command{addCmd, editCmd} {
		common.DraftFlags(c, &draftFlags)
		c.Flags().StringVar(&draftFile, "draft", "", "YAML draft file")
		c.Flags().StringVar(&receiptFile, "receipt", "", "Receipt image to attach")
		c.Flags().BoolVar(&scanReceipt, "scan", false, "Pre-fill the transaction from --receipt")
	}

	Cmd.AddCommand(listCmd, binCmd, addCmd, editCmd, deleteCmd, restoreCmd, purgeCmd, logsCmd)
}

func listFeed(cmd *cobra.Command, deleted bool) error {
	c, err := root.SessionContainer()
	if err != nil {
		return err
	}
	ctx := root.Context(cmd)
	if err := c.Resolver().Load(ctx, c.Session()); err != nil {
		root.Log.WithError(err).Warn("Showing ids instead of names")
	}

	f := c.Feed(deleted)
	if err := f.LoadFirstPage(ctx); err != nil {
		return err
	}
	for listAll && f.HasMore() {
		if err := f.LoadNextPage(ctx); err != nil {
			return err
		}
	}

	items := f.Items()
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No transactions.")
		return nil
	}
	if err := common.WriteTransactions(cmd.OutOrStdout(), items, c.Resolver()); err != nil {
		return err
	}
	if f.HasMore() {
		fmt.Fprintln(cmd.OutOrStdout(), "More transactions available; use --all to list everything.")
	}
	return nil
}

// runForm fills the form from the receipt, the draft file and the flags, in
// that order, then submits it.
func runForm(cmd *cobra.Command, c *container.Container, f *form.Controller) error {
	ctx := root.Context(cmd)
	out := cmd.OutOrStdout()
	defer f.Close()

	if receiptFile != "" {
		file, err := receipt.FileFromPath(receiptFile, c.Config().Receipt.DefaultMIMEType)
		if err != nil {
			return err
		}
		if scanReceipt {
			report, err := f.ScanReceipt(ctx, file)
			if err != nil {
				return err
			}
			common.WriteMergeReport(cmd.ErrOrStderr(), report)
		} else if err := f.Edit(func(d *models.Draft) { d.Receipt = &file }); err != nil {
			return err
		}
	}

	values := draftFlags
	if draftFile != "" {
		fromFile, err := common.LoadDraftFile(draftFile)
		if err != nil {
			return err
		}
		values = fromFile.Override(draftFlags)
	}
	if err := common.ApplyDraftFile(f, values); err != nil {
		return err
	}

	if err := f.Submit(ctx); err != nil {
		return err
	}
	d := f.Draft()
	root.Log.Info("Transaction saved",
		logging.F(logging.FieldMode, string(f.Mode())),
		logging.F(logging.FieldTransactionID, d.TransactionID.String()))
	fmt.Fprintf(out, "Saved %s transaction of %s.\n", d.Type, d.Total().StringFixed(2))
	return nil
}

type action func(backend.Service, context.Context, models.Session, models.ID) error

func runAction(cmd *cobra.Command, id, verb string, do action) error {
	c, err := root.SessionContainer()
	if err != nil {
		return err
	}
	if err := do(c.Service(), root.Context(cmd), c.Session(), models.ID(id)); err != nil {
		return err
	}
	root.Log.Info("Transaction "+verb, logging.F(logging.FieldTransactionID, id))
	fmt.Fprintf(cmd.OutOrStdout(), "Transaction %s %s.\n", id, verb)
	return nil
}
