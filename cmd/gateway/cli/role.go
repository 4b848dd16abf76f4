package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giga-sharing/gateway/internal/model"
)

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles and grantable schemas",
		Long:  "List and create the role codes and schema identifiers that API keys are granted against.",
	}

	cmd.AddCommand(newRoleListCmd())
	cmd.AddCommand(newRoleCreateCmd())
	cmd.AddCommand(newSchemaListCmd())
	cmd.AddCommand(newSchemaCreateCmd())

	return cmd
}

func newRoleListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runRoleList(jsonOutput bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	roles, err := store.ListRoles(context.Background())
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(roles)
	}

	if len(roles) == 0 {
		fmt.Println("No roles configured. Use 'gateway role create' or 'gateway key bootstrap'.")
		return nil
	}

	fmt.Printf("%-8s %s\n", "ID", "DESCRIPTION")
	fmt.Printf("%-8s %s\n", "--", "-----------")
	for _, r := range roles {
		fmt.Printf("%-8s %s\n", r.ID, r.Description)
	}
	return nil
}

func newRoleCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Create a role",
		Long:  "Register a role code. Country roles are ISO 3166-1 alpha-3 codes matched against table name prefixes.",
		Example: `  gateway role create KEN --description "Kenya country access"
  gateway role create SCHM --description "School master data"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleCreate(args[0], description)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Human-readable description")

	return cmd
}

func runRoleCreate(id, description string) error {
	if len(id) < 3 || len(id) > 5 {
		return fmt.Errorf("role id must be 3 to 5 characters")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	role := &model.Role{ID: id, Description: description}
	if err := store.CreateRole(context.Background(), role); err != nil {
		return fmt.Errorf("create role: %w", err)
	}

	fmt.Printf("Created role %q\n", id)
	return nil
}

func newSchemaListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List all grantable schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runSchemaList(jsonOutput bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	schemas, err := store.ListSchemas(context.Background())
	if err != nil {
		return fmt.Errorf("list schemas: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(schemas)
	}

	if len(schemas) == 0 {
		fmt.Println("No schemas registered. Use 'gateway role add-schema'.")
		return nil
	}

	fmt.Printf("%-28s %s\n", "ID", "DESCRIPTION")
	fmt.Printf("%-28s %s\n", "--", "-----------")
	for _, s := range schemas {
		fmt.Printf("%-28s %s\n", s.ID, s.Description)
	}
	return nil
}

func newSchemaCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add-schema <id>",
		Short: "Register a grantable schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaCreate(args[0], description)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Human-readable description")

	return cmd
}

func runSchemaCreate(id, description string) error {
	if len(id) == 0 || len(id) > 50 {
		return fmt.Errorf("schema id must be 1 to 50 characters")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	schema := &model.Schema{ID: id, Description: description}
	if err := store.CreateSchema(context.Background(), schema); err != nil {
		return fmt.Errorf("register schema: %w", err)
	}

	fmt.Printf("Registered schema %q\n", id)
	return nil
}
