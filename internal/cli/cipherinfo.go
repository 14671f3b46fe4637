package cli

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wizardtoolkit/internal/errkind"
	"wizardtoolkit/internal/log"
	"wizardtoolkit/internal/packet"
)

// NewCipherInfoCommand builds the cipher-info tool: it parses a cipher
// packet's header (spec §4.6, §6.1) and prints the ContentDescriptor
// fields, without touching key material or chunk data. There is no
// teacher equivalent (Picocrypt's binary header isn't human-inspectable);
// grounded instead in spec §6.1's field list directly.
func NewCipherInfoCommand(version string) (*cobra.Command, *Reporter) {
	var (
		common commonFlags
		input  string
		props  string
	)

	cmd := &cobra.Command{
		Use:     "cipher-info",
		Short:   "Print a cipher packet's header fields",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.apply(); err != nil {
				return err
			}
			if common.list {
				listAlgorithms(os.Stdout)
				return nil
			}
			path := input
			if props != "" {
				path = props
			}
			if path == "" {
				return errkind.New(errkind.KindOption, "cipher-info", fmt.Errorf("-input (or -properties) is required"))
			}

			f, err := os.Open(path)
			if err != nil {
				return errkind.New(errkind.KindFile, "cipher-info", err)
			}
			defer f.Close()

			warnings := log.NewCollector(nil, log.String("input", path))
			desc, err := packet.Parse(bufio.NewReader(f), warnings)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				return err
			}

			printDescriptor(os.Stdout, desc)
			for _, w := range warnings.Warnings() {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}
			return nil
		},
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	common.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "cipher packet file to inspect")
	cmd.Flags().StringVar(&props, "properties", "", "inspect a separate properties file instead")

	return cmd, nil
}

func printDescriptor(w *os.File, d *packet.Descriptor) {
	fmt.Fprintf(w, "protocol:      %d.%d\n", d.ProtocolMajor, d.ProtocolMinor)
	fmt.Fprintf(w, "about:         %s\n", d.AboutPath)
	fmt.Fprintf(w, "cipher:        %s\n", d.Cipher)
	fmt.Fprintf(w, "mode:          %s\n", d.Mode)
	fmt.Fprintf(w, "nonce:         %s\n", hex.EncodeToString(d.Nonce))
	fmt.Fprintf(w, "authenticate:  %s\n", d.AuthenticateMethod)
	fmt.Fprintf(w, "key-hash:      %s\n", d.KeyHash)
	fmt.Fprintf(w, "key-length:    %d bits\n", d.KeyLength)
	fmt.Fprintf(w, "key-id:        %s\n", hex.EncodeToString(d.KeyID))
	fmt.Fprintf(w, "entropy:       %s\n", d.EntropyCodec)
	fmt.Fprintf(w, "level:         %d\n", d.EntropyLevel)
	fmt.Fprintf(w, "hmac:          %s\n", d.HMAC)
	fmt.Fprintf(w, "chunksize:     %d\n", d.ChunkSize)
	fmt.Fprintf(w, "create-date:   %d\n", d.CreateDate)
	fmt.Fprintf(w, "modify-date:   %d\n", d.ModifyDate)
	fmt.Fprintf(w, "timestamp:     %d\n", d.Timestamp)
	fmt.Fprintf(w, "producer:      %s\n", d.Version)
}
