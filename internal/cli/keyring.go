package cli

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wizardtoolkit/internal/errkind"
)

// NewKeyringCommand builds the keyring tool: get and put entries by hex
// key-id against a file or Vault-backed auth.Keyring, plus a generate
// subcommand that prints a fresh passphrase. Entries cannot be listed or
// removed through this tool (spec §4.4's "optionally
// fetches from keyring", whose persistence format spec §1 leaves out of
// scope). Unlike the other four tools this one has subcommands, the way
// the teacher's single binary groups "encrypt"/"decrypt" under one root.
func NewKeyringCommand(version string) (*cobra.Command, *Reporter) {
	var common commonFlags
	var keyringURI string

	root := &cobra.Command{
		Use:     "keyring",
		Short:   "Manage keyring entries (key-id -> key material)",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return common.apply()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if common.list {
				listAlgorithms(os.Stdout)
				return nil
			}
			return cmd.Help()
		},
	}
	root.SilenceErrors = true
	root.SilenceUsage = true
	common.registerPersistent(root)
	root.PersistentFlags().StringVar(&keyringURI, "keyring", "", "keyring URI: a file path, or vault://<mount>")

	root.AddCommand(newKeyringGetCmd(&keyringURI))
	root.AddCommand(newKeyringPutCmd(&keyringURI))
	root.AddCommand(newKeyringGenerateCmd())

	return root, nil
}

func newKeyringGetCmd(keyringURI *string) *cobra.Command {
	var keyIDHex string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Look up a key by its hex key-id",
		RunE: func(cmd *cobra.Command, args []string) error {
			ring, err := resolveKeyring(*keyringURI)
			if err != nil || ring == nil {
				return errkind.New(errkind.KindOption, "keyring-get", fmt.Errorf("-keyring is required"))
			}
			keyID, err := hex.DecodeString(keyIDHex)
			if err != nil {
				return errkind.New(errkind.KindOption, "keyring-get", err)
			}
			key, ok, err := ring.Get(keyID)
			if err != nil {
				return err
			}
			if !ok {
				return errkind.New(errkind.KindAuthenticate, "keyring-get", errkind.ErrUnknownKeyID)
			}
			fmt.Println(hex.EncodeToString(key))
			return nil
		},
	}
	cmd.Flags().StringVar(&keyIDHex, "key-id", "", "hex-encoded key id")
	return cmd
}

func newKeyringPutCmd(keyringURI *string) *cobra.Command {
	var keyIDHex, keyHex string
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store a key under a hex key-id",
		RunE: func(cmd *cobra.Command, args []string) error {
			ring, err := resolveKeyring(*keyringURI)
			if err != nil || ring == nil {
				return errkind.New(errkind.KindOption, "keyring-put", fmt.Errorf("-keyring is required"))
			}
			keyID, err := hex.DecodeString(keyIDHex)
			if err != nil {
				return errkind.New(errkind.KindOption, "keyring-put", err)
			}
			key, err := hex.DecodeString(keyHex)
			if err != nil {
				return errkind.New(errkind.KindOption, "keyring-put", err)
			}
			return ring.Put(keyID, key)
		},
	}
	cmd.Flags().StringVar(&keyIDHex, "key-id", "", "hex-encoded key id")
	cmd.Flags().StringVar(&keyHex, "key", "", "hex-encoded key material")
	return cmd
}

func newKeyringGenerateCmd() *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a freshly generated passphrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := GeneratePassphrase(method)
			if err != nil {
				return err
			}
			WarnIfWeak(pw)
			fmt.Println(pw)
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", "diceware", "generation method: diceware, random")
	return cmd
}
