package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/encipher"
	"wizardtoolkit/internal/log"
	"wizardtoolkit/internal/util"
)

// NewEncipherCommand builds the encipher tool's root command (spec §4.7,
// §6.4). Grounded in the teacher's cmd/picocrypt "encrypt" subcommand,
// split out here into its own binary per SPEC_FULL's module layout.
func NewEncipherCommand(version string) (*cobra.Command, *Reporter) {
	var (
		common  commonFlags
		spec    cipherSpec
		input   string
		output  string
		props   string
		passph  string
		keyring string
		authStr string
		random  bool
		trueRnd bool
		verbose bool
		bench   int
		compress bool
	)

	reporter := NewReporter(false, false)

	cmd := &cobra.Command{
		Use:     "encipher",
		Short:   "Encrypt a file into a self-describing cipher packet",
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

			resolved, err := spec.resolve()
			if err != nil {
				reporter.PrintError("%v", err)
				return err
			}
			authMethod, err := auth.ParseMethod(authStr)
			if err != nil {
				reporter.PrintError("%v", err)
				return err
			}

			ring, err := resolveKeyring(keyring)
			if err != nil {
				reporter.PrintError("%v", err)
				return err
			}

			passphrase, err := acquirePassphrase(passph, true)
			if err != nil {
				reporter.PrintError("%v", err)
				return err
			}
			defer ZeroPassphrase(passphrase)

			pool, err := resolveReservoir("reservoir.xdm", random, trueRnd)
			if err != nil {
				reporter.PrintError("%v", err)
				return err
			}
			defer pool.Close()

			runID := NewRunID()
			log.Info("encipher starting", log.String("run", runID), log.String("input", input))
			warnings := log.NewCollector(nil, log.String("run", runID), log.String("input", input))

			opts := encipher.Options{
				InputPath:      input,
				OutputPath:     output,
				PropertiesPath: props,
				Cipher:         resolved.cipher,
				Mode:           resolved.mode,
				KeyHash:        resolved.keyHash,
				KeyLength:      resolved.keyLength,
				Passphrase:     passphrase,
				EntropyCodec:   resolved.codec,
				EntropyLevel:   resolved.level,
				HMAC:           resolved.hmac,
				ChunkSize:      resolved.chunkSize,
				Reservoir:      pool,
				Keyring:        ring,
				Reporter:       reporter,
				Warnings:       warnings,
				Version:        version,
			}
			_ = authMethod // authenticate_method is always Secret for the implemented path (spec §1 non-goal on Public)

			if bench > 0 {
				return runBench(bench, "encipher", func() error { return encipher.Run(opts) }, reporter)
			}

			if err := encipher.Run(opts); err != nil {
				reporter.PrintError("%v", err)
				return err
			}
			reporter.Finish()
			reporter.PrintSuccess("encrypted %s -> %s", input, output)
			return nil
		},
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	common.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "plaintext input file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "ciphertext output file")
	cmd.Flags().StringVar(&props, "properties", "", "write the cipher packet header to a separate file")
	cmd.Flags().StringVar(&passph, "passphrase", "", "passphrase (prompted interactively if omitted)")
	cmd.Flags().StringVar(&keyring, "keyring", "", "keyring URI: a file path, or vault://<mount>")
	cmd.Flags().StringVar(&spec.cipherStr, "cipher", "AES", "cipher: AES, Serpent, TwoFish")
	cmd.Flags().StringVar(&spec.modeStr, "mode", "CBC", "mode: ECB, CBC, CFB, CTR, OFB")
	cmd.Flags().StringVar(&spec.hmacStr, "hmac", "SHA256", "per-chunk HMAC: None, SHA256, SHA384, SHA512")
	cmd.Flags().StringVar(&spec.entropyStr, "entropy", "None", "entropy codec: None, ZIP, BZIP, LZMA")
	cmd.Flags().BoolVar(&compress, "compress", false, "shorthand for -entropy ZIP when -entropy is left at its default")
	cmd.Flags().StringVar(&spec.keyHashStr, "key", "SHA256", "key-derivation hash: SHA256, SHA384, SHA512, SHA3256")
	cmd.Flags().Uint32Var(&spec.keyLength, "key-length", 256, "key length in bits: 256, 512, 1024, 2048")
	cmd.Flags().Uint32Var(&spec.level, "level", 6, "entropy codec effort level, 1-9")
	cmd.Flags().Uint64Var(&spec.chunkSize, "chunksize", util.DefaultChunkSize, "plaintext chunk size in bytes")
	cmd.Flags().StringVar(&authStr, "authenticate", "Secret", "authenticate method: Secret, Public (Public unimplemented)")
	cmd.Flags().BoolVar(&random, "random", false, "use an ephemeral, unpersisted random reservoir")
	cmd.Flags().BoolVar(&trueRnd, "true-random", false, "fold a blocking /dev/random draw into reservoir seeding")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print one progress line per chunk instead of a progress bar")
	cmd.Flags().IntVar(&bench, "bench", 0, "repeat the operation N times and report timings instead of running once")

	applyCompressShorthand(cmd, &spec)
	return cmd, reporter
}

// applyCompressShorthand wires the -compress convenience flag: if set and
// -entropy was left at its default, treat it as -entropy ZIP. Grounded in
// spec §6.4's "-(de)compress" shorthand for encipher.
func applyCompressShorthand(cmd *cobra.Command, spec *cipherSpec) {
	compress := cmd.Flags().Lookup("compress")
	cmd.PreRunE = func(*cobra.Command, []string) error {
		if compress.Changed && !cmd.Flags().Lookup("entropy").Changed {
			spec.entropyStr = "ZIP"
		}
		return nil
	}
}

// acquirePassphrase returns explicit when non-empty, otherwise reads from
// stdin (when piped) or prompts interactively (when attached to a tty).
func acquirePassphrase(explicit string, confirm bool) ([]byte, error) {
	if explicit != "" {
		return []byte(explicit), nil
	}
	if !isTerminal() {
		s, err := ReadPassphraseFromStdin()
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	}
	s, err := ReadPassphraseInteractive(confirm)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// runBench repeats op n times, reporting per-run wall time and average
// throughput the way the teacher's internal/crypto/benchmark_test.go
// reports MiB/s, but as CLI output rather than a test assertion.
func runBench(n int, label string, op func() error, reporter *Reporter) error {
	var total time.Duration
	for i := 1; i <= n; i++ {
		start := time.Now()
		if err := op(); err != nil {
			reporter.PrintError("%s run %d/%d: %v", label, i, n, err)
			return err
		}
		elapsed := time.Since(start)
		total += elapsed
		fmt.Fprintf(os.Stderr, "%s run %d/%d: %s\n", label, i, n, elapsed)
	}
	fmt.Fprintf(os.Stderr, "%s: %d runs, average %s\n", label, n, total/time.Duration(n))
	return nil
}
