package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tokenvesting/internal/middleware"
	solanautil "tokenvesting/pkg/solana"
)

func password(env string) (string, error) {
	pw := os.Getenv(env)
	if pw == "" {
		return "", fmt.Errorf("keystore password not set, export %s", env)
	}
	return pw, nil
}

func KeygenCmd() *cobra.Command {
	var keystore, passwordEnv string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing key and store it encrypted in the keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(passwordEnv)
			if err != nil {
				return err
			}
			km := solanautil.NewKeyManager(keystore)
			account, err := km.GenerateKeyPair()
			if err != nil {
				return err
			}
			path, err := km.SaveKeyStoreEntry(account, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "address: %s\nkeystore: %s\n", account.PublicKey.ToBase58(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&keystore, "keystore", solanautil.DefaultKeystoreDir, "keystore directory")
	cmd.Flags().StringVar(&passwordEnv, "password-env", defaultPasswordEnv, "environment variable holding the keystore password")
	return cmd
}

// SignCmd prints the authentication headers for one API request.
func SignCmd() *cobra.Command {
	var (
		keystore, passwordEnv string
		address, method, path string
		bodyFile              string
		timestamp             int64
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign an API request with a keystore key",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := password(passwordEnv)
			if err != nil {
				return err
			}
			account, err := solanautil.NewKeyManager(keystore).LoadKeyStoreEntry(address, pw)
			if err != nil {
				return err
			}

			var body []byte
			switch bodyFile {
			case "":
			case "-":
				body, err = io.ReadAll(cmd.InOrStdin())
			default:
				body, err = os.ReadFile(bodyFile)
			}
			if err != nil {
				return fmt.Errorf("failed to read body: %w", err)
			}
			if timestamp == 0 {
				timestamp = time.Now().Unix()
			}
			sig := solanautil.SignMessage(account, solanautil.RequestMessage(method, path, timestamp, body))

			out, err := json.MarshalIndent(map[string]string{
				middleware.HeaderSigner:    address,
				middleware.HeaderTimestamp: strconv.FormatInt(timestamp, 10),
				middleware.HeaderSignature: sig,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&keystore, "keystore", solanautil.DefaultKeystoreDir, "keystore directory")
	cmd.Flags().StringVar(&passwordEnv, "password-env", defaultPasswordEnv, "environment variable holding the keystore password")
	cmd.Flags().StringVar(&address, "address", "", "signer address in the keystore")
	cmd.Flags().StringVar(&method, "method", "POST", "HTTP method")
	cmd.Flags().StringVar(&path, "path", "", "request path, e.g. /vesting-pool/acme/claim")
	cmd.Flags().StringVar(&bodyFile, "body", "", "file with the request body, - for stdin")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "unix timestamp (default now)")
	cmd.MarkFlagRequired("address")
	cmd.MarkFlagRequired("path")
	return cmd
}
