package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/giga-sharing/gateway/internal/config"
	"github.com/giga-sharing/gateway/internal/model"
	"github.com/giga-sharing/gateway/internal/service"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, and revoke the API keys used to authenticate against the gateway.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())
	cmd.AddCommand(newKeyBootstrapCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var (
		description string
		validity    int
		roles       []string
		schemas     []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Issue a new API key with the given roles and schemas. The full credential is shown once and cannot be retrieved again.",
		Example: `  gateway key create --role KEN --schema school-master --description "Kenya ministry"
  gateway key create --role ADMIN --validity 90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(description, validity, roles, schemas)
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Human-readable description for the key")
	cmd.Flags().IntVar(&validity, "validity", 0, "Days until the key expires (0 = never)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role to grant, repeatable (required)")
	cmd.Flags().StringSliceVar(&schemas, "schema", nil, "Schema to grant, repeatable")
	cmd.MarkFlagRequired("role")

	return cmd
}

func runKeyCreate(description string, validity int, roles, schemas []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	keySvc := service.NewKeyService(store, profileEndpoint(), "", newLogger(false))
	profile, key, err := keySvc.Issue(context.Background(), service.IssueRequest{
		Description:  description,
		ValidityDays: validity,
		Roles:        roles,
		Schemas:      schemas,
	})
	if err != nil {
		return fmt.Errorf("issue key: %w", err)
	}

	fmt.Println("API key created:")
	fmt.Println()
	fmt.Printf("  Key:     %s\n", profile.BearerToken)
	fmt.Printf("  Id:      %s\n", key.ID)
	fmt.Printf("  Roles:   %s\n", strings.Join(key.RoleIDs(), ", "))
	if len(key.SchemaIDs()) > 0 {
		fmt.Printf("  Schemas: %s\n", strings.Join(key.SchemaIDs(), ", "))
	}
	if key.Expiration != nil {
		fmt.Printf("  Expires: %s\n", key.Expiration.Format("2006-01-02"))
	}
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(jsonOutput bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	keys, err := store.ListAPIKeys(context.Background())
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(keys)
	}

	if len(keys) == 0 {
		fmt.Println("No API keys configured. Use 'gateway key create' to create one.")
		return nil
	}

	fmt.Printf("%-26s %-24s %-20s %-12s\n", "KEY", "DESCRIPTION", "ROLES", "EXPIRES")
	fmt.Printf("%-26s %-24s %-20s %-12s\n", "---", "-----------", "-----", "-------")
	for _, k := range keys {
		expires := "never"
		if k.Expiration != nil {
			expires = k.Expiration.Format("2006-01-02")
		}
		fmt.Printf("%-26s %-24s %-20s %-12s\n",
			k.RedactedKey(), k.Description, strings.Join(k.RoleIDs(), ","), expires)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key by its identifier",
		Long:  "Delete an API key and its role and schema grants. Requests using the key fail immediately afterwards.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0])
		},
	}

	return cmd
}

func runKeyRevoke(id string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.DeleteAPIKey(context.Background(), id)
	if errors.Is(err, config.ErrNotFound) {
		fmt.Printf("No API key with id %q\n", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	fmt.Printf("Revoked API key %q\n", id)
	return nil
}

// ---------- key bootstrap ----------

func newKeyBootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Seed the ADMIN role and create the first administrative key",
		Long: `Create the ADMIN role if missing and issue an administrative API key.

Prompts for a custom secret; leave it empty to generate one. Set the printed
key id as GATEWAY_AUTH_BOOTSTRAP_KEY_ID to protect the key from revocation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyBootstrap()
		},
	}

	return cmd
}

func runKeyBootstrap() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if _, err := store.GetRole(ctx, model.AdminRoleID); errors.Is(err, config.ErrNotFound) {
		role := &model.Role{ID: model.AdminRoleID, Description: "Full administrative access"}
		if err := store.CreateRole(ctx, role); err != nil {
			return fmt.Errorf("create admin role: %w", err)
		}
		fmt.Println("Created ADMIN role.")
	} else if err != nil {
		return fmt.Errorf("check admin role: %w", err)
	}

	secret, err := promptSecret()
	if err != nil {
		return err
	}
	if secret == "" {
		secret, err = service.GenerateSecret()
		if err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
	}

	hash, err := service.HashSecret(secret)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}

	key := &model.APIKey{
		ID:          uuid.NewString(),
		Description: "Bootstrap administrative key",
		SecretHash:  hash,
	}
	if err := store.CreateAPIKey(ctx, key, []string{model.AdminRoleID}, nil); err != nil {
		return fmt.Errorf("create bootstrap key: %w", err)
	}

	fmt.Println("Bootstrap key created:")
	fmt.Println()
	fmt.Printf("  Key: %s\n", service.FormatSharingKey(key.ID, secret))
	fmt.Printf("  Id:  %s\n", key.ID)
	fmt.Println()
	fmt.Println("  Save this key now - it cannot be retrieved again.")
	fmt.Printf("  Export GATEWAY_AUTH_BOOTSTRAP_KEY_ID=%s to protect it from revocation.\n", key.ID)
	return nil
}

// promptSecret reads a secret with echo disabled. Falls back to an empty
// secret (caller generates one) when stdin is not a terminal.
func promptSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Print("Secret (empty to generate): ")
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}

	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		return "", nil
	}
	if strings.Contains(secret, ":") {
		return "", fmt.Errorf("secret must not contain ':'")
	}
	if len(secret) < 16 {
		return "", fmt.Errorf("secret must be at least 16 characters")
	}
	return secret, nil
}
