package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wizardtoolkit/internal/decipher"
	"wizardtoolkit/internal/log"
	"wizardtoolkit/internal/packet"
)

// NewDecipherCommand builds the decipher tool's root command (spec §4.8,
// §6.4). Grounded in the teacher's cmd/picocrypt "decrypt" subcommand.
//
// The cipher/mode/hmac/entropy/key/key-length/level/chunksize flags exist
// here for parity with encipher, but the cipher packet header is always
// authoritative: when one of them other than -level is set, decipher
// compares it against
// the parsed header and logs a warning on mismatch rather than
// overriding the header (spec §4.6: the header alone reverses the
// transform).
func NewDecipherCommand(version string) (*cobra.Command, *Reporter) {
	var (
		common  commonFlags
		spec    cipherSpec
		input   string
		output  string
		props   string
		passph  string
		keyring string
		authStr string
		verbose bool
		bench   int
	)
	_ = authStr // accepted for flag parity; authenticate method comes from the header, not the CLI, on decipher

	reporter := NewReporter(false, false)

	cmd := &cobra.Command{
		Use:     "decipher",
		Short:   "Decrypt a cipher packet back into its plaintext",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.apply(); err != nil {
				return err
			}
			if common.list {
				listAlgorithms(os.Stdout)
				return nil
			}
			reporter.verbose = verbose

			ring, err := resolveKeyring(keyring)
			if err != nil {
				reporter.PrintError("%v", err)
				return err
			}

			passphrase, err := acquirePassphrase(passph, false)
			if err != nil {
				reporter.PrintError("%v", err)
				return err
			}
			defer ZeroPassphrase(passphrase)

			runID := NewRunID()
			log.Info("decipher starting", log.String("run", runID), log.String("input", input))
			warnings := log.NewCollector(nil, log.String("run", runID), log.String("input", input))

			opts := decipher.Options{
				InputPath:      input,
				OutputPath:     output,
				PropertiesPath: props,
				Passphrase:     passphrase,
				Keyring:        ring,
				Reporter:       reporter,
				Warnings:       warnings,
			}

			run := func() error {
				if err := decipher.Run(opts); err != nil {
					return err
				}
				return warnCipherMismatch(cmd, spec, opts.InputPath, opts.PropertiesPath, warnings)
			}

			if bench > 0 {
				return runBench(bench, "decipher", func() error { return decipher.Run(opts) }, reporter)
			}

			if err := run(); err != nil {
				reporter.PrintError("%v", err)
				return err
			}
			reporter.Finish()
			reporter.PrintSuccess("decrypted %s -> %s", input, output)
			return nil
		},
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	common.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "ciphertext input file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "plaintext output file")
	cmd.Flags().StringVar(&props, "properties", "", "read the cipher packet header from a separate file")
	cmd.Flags().StringVar(&passph, "passphrase", "", "passphrase (prompted interactively if omitted)")
	cmd.Flags().StringVar(&keyring, "keyring", "", "keyring URI: a file path, or vault://<mount>")
	cmd.Flags().StringVar(&spec.cipherStr, "cipher", "", "expected cipher; warns on mismatch with the header if set")
	cmd.Flags().StringVar(&spec.modeStr, "mode", "", "expected mode; warns on mismatch with the header if set")
	cmd.Flags().StringVar(&spec.hmacStr, "hmac", "", "expected HMAC algorithm; warns on mismatch with the header if set")
	cmd.Flags().StringVar(&spec.entropyStr, "entropy", "", "expected entropy codec; warns on mismatch with the header if set")
	cmd.Flags().BoolVar(new(bool), "decompress", false, "accepted for flag parity with -compress; decompression is always header-driven")
	cmd.Flags().StringVar(&spec.keyHashStr, "key", "", "expected key-derivation hash; warns on mismatch with the header if set")
	cmd.Flags().Uint32Var(&spec.keyLength, "key-length", 0, "expected key length in bits; warns on mismatch with the header if set")
	cmd.Flags().Uint32Var(&spec.level, "level", 0, "unused on decipher; entropy level is recorded in the header")
	cmd.Flags().Uint64Var(&spec.chunkSize, "chunksize", 0, "expected chunk size; warns on mismatch with the header if set")
	cmd.Flags().StringVar(&authStr, "authenticate", "", "unused on decipher; authenticate method is recorded in the header")
	cmd.Flags().Bool("random", false, "accepted for flag parity; decipher never draws fresh randomness")
	cmd.Flags().Bool("true-random", false, "accepted for flag parity; decipher never draws fresh randomness")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print one progress line per chunk instead of a progress bar")
	cmd.Flags().IntVar(&bench, "bench", 0, "repeat the operation N times and report timings instead of running once")

	return cmd, reporter
}

// warnCipherMismatch re-parses the already-decrypted packet's header via
// peekDescriptor and adds a warning to the collector decipher.Run
// populated when an explicit -cipher/
// -mode/-hmac/-entropy/-key/-key-length/-chunksize flag doesn't match
// what the header actually used. It is best-effort: decipher has already
// succeeded by the time this runs, so a mismatch is informational, not
// fatal.
func warnCipherMismatch(cmd *cobra.Command, spec cipherSpec, inputPath, propsPath string, warnings *log.Collector) error {
	f := cmd.Flags()
	wantAny := f.Changed("cipher") || f.Changed("mode") || f.Changed("hmac") ||
		f.Changed("entropy") || f.Changed("key") || f.Changed("key-length") || f.Changed("chunksize")
	if !wantAny {
		return nil
	}

	path := inputPath
	if propsPath != "" {
		path = propsPath
	}
	desc, err := peekDescriptor(path)
	if err != nil {
		return nil // best-effort; decipher already succeeded
	}

	check := func(flagName, want, got string) {
		if want != "" && want != got {
			warnings.Add("cli-mismatch", flagName+" disagrees with cipher packet header",
				log.String("flag", flagName), log.String("want", want), log.String("header", got))
		}
	}
	if f.Changed("cipher") {
		check("cipher", spec.cipherStr, desc.Cipher.String())
	}
	if f.Changed("mode") {
		check("mode", spec.modeStr, desc.Mode.String())
	}
	if f.Changed("hmac") {
		check("hmac", spec.hmacStr, desc.HMAC.String())
	}
	if f.Changed("entropy") {
		check("entropy", spec.entropyStr, desc.EntropyCodec.String())
	}
	if f.Changed("key") {
		check("key", spec.keyHashStr, desc.KeyHash.String())
	}
	if f.Changed("key-length") {
		check("key-length", fmt.Sprint(spec.keyLength), fmt.Sprint(desc.KeyLength))
	}
	if f.Changed("chunksize") {
		check("chunksize", fmt.Sprint(spec.chunkSize), fmt.Sprint(desc.ChunkSize))
	}
	return nil
}

// peekDescriptor re-opens and re-parses path's header only, for the
// post-hoc mismatch check above; it never touches cipherIn's chunk data.
func peekDescriptor(path string) (*packet.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return packet.Parse(bufio.NewReader(f), log.NewCollector(nil))
}
