// Package entities contains the reference entity commands
package entities

import (
	"fmt"

	"softetsolutions/mattax/cmd/common"
	"softetsolutions/mattax/cmd/root"
	"softetsolutions/mattax/internal/models"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	parentID string
	asYAML   bool
)

// Cmd represents the entities command
var Cmd = &cobra.Command{
	Use:   "entities",
	Short: "List and rename categories, subcategories, vendors and accounts",
}

var listCmd = &cobra.Command{
	Use:   "list <kind>",
	Short: "List entities of a kind (category, subcategory, vendor, account)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := models.ParseEntityKind(args[0])
		if err != nil {
			return err
		}
		if kind.Scoped() && parentID == "" {
			return fmt.Errorf("--parent is required for %s", kind)
		}
		c, err := root.SessionContainer()
		if err != nil {
			return err
		}
		if err := c.Resolver().Load(root.Context(cmd), c.Session()); err != nil {
			return err
		}

		entities := c.Resolver().Entities(kind, models.ID(parentID))
		if asYAML {
			out, err := yaml.Marshal(entities)
			if err != nil {
				return fmt.Errorf("failed to render entities: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}
		return common.WriteEntities(cmd.OutOrStdout(), entities)
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <kind> <id> <label>",
	Short: "Rename an entity",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := models.ParseEntityKind(args[0])
		if err != nil {
			return err
		}
		c, err := root.SessionContainer()
		if err != nil {
			return err
		}
		ctx := root.Context(cmd)
		if err := c.Resolver().Load(ctx, c.Session()); err != nil {
			return err
		}
		e, err := c.Resolver().Rename(ctx, c.Session(), kind, models.ID(args[1]), args[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s %s to %q.\n", kind, e.ID, e.Label)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&parentID, "parent", "", "Category id owning the subcategories")
	listCmd.Flags().BoolVar(&asYAML, "yaml", false, "Print YAML instead of a table")
	Cmd.AddCommand(listCmd, renameCmd)
}
