// Package receipt contains the receipt commands
package receipt

import (
	"fmt"

	"softetsolutions/mattax/cmd/common"
	"softetsolutions/mattax/cmd/root"
	"softetsolutions/mattax/internal/fileutils"
	"softetsolutions/mattax/internal/logging"
	"softetsolutions/mattax/internal/models"
	"softetsolutions/mattax/internal/receipt"

	"github.com/spf13/cobra"
)

var outputFile string

// Cmd represents the receipt command
var Cmd = &cobra.Command{
	Use:   "receipt",
	Short: "Scan receipts and download stored receipt images",
}

var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "Read a receipt and print the pre-filled draft",
	Long: `Read a receipt image with the configured extractor and print the resulting draft as YAML.
Missing categories, vendors and accounts are created, as when scanning in the entry form.
The output can be edited and passed to "tx add --draft".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.SessionContainer()
		if err != nil {
			return err
		}
		ctx := root.Context(cmd)
		file, err := receipt.FileFromPath(args[0], c.Config().Receipt.DefaultMIMEType)
		if err != nil {
			return err
		}
		if err := c.Resolver().Load(ctx, c.Session()); err != nil {
			return err
		}

		f := c.NewCreateForm()
		defer f.Close()
		report, err := f.ScanReceipt(ctx, file)
		if err != nil {
			return err
		}
		common.WriteMergeReport(cmd.ErrOrStderr(), report)

		out, err := common.DraftFileFrom(f.Draft()).Marshal()
		if err != nil {
			return fmt.Errorf("failed to render draft: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var showCmd = &cobra.Command{
	Use:   "show <receiptId>",
	Short: "Download a stored receipt image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := root.SessionContainer()
		if err != nil {
			return err
		}
		img, err := c.Service().ReceiptImage(root.Context(cmd), c.Session(), models.ID(args[0]))
		if err != nil {
			return err
		}
		data, err := img.Bytes()
		if err != nil {
			return err
		}

		if outputFile == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := fileutils.WriteFile(outputFile, data, 0600); err != nil {
			return fmt.Errorf("error writing receipt: %w", err)
		}
		root.Log.Info("Receipt saved",
			logging.F(logging.FieldOutputFile, outputFile),
			logging.F(logging.FieldCount, len(data)))
		return nil
	},
}

func init() {
	showCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the image to this file instead of stdout")
	Cmd.AddCommand(scanCmd, showCmd)
}
