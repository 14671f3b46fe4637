package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/errkind"
	"wizardtoolkit/internal/filehash"
)

// NewDigestCommand builds the digest tool (spec §4.9, §6.3): -generate
// writes an RDF digest document over a set of files, -authenticate
// re-hashes the files an RDF document names and reports mismatches.
func NewDigestCommand(version string) (*cobra.Command, *Reporter) {
	var (
		common      commonFlags
		generate    bool
		authenticat bool
		output      string
		rdfPath     string
		keyHashStr  string
	)

	cmd := &cobra.Command{
		Use:     "digest",
		Short:   "Generate or authenticate a digest RDF document",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.apply(); err != nil {
				return err
			}
			if common.list {
				listAlgorithms(os.Stdout)
				return nil
			}

			switch {
			case generate == authenticat:
				return errkind.New(errkind.KindOption, "digest", fmt.Errorf("exactly one of -generate or -authenticate is required"))
			case generate:
				return runGenerate(args, output, keyHashStr)
			default:
				return runAuthenticate(rdfPath)
			}
		},
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	common.register(cmd)
	cmd.Flags().BoolVar(&generate, "generate", false, "generate an RDF digest document over the given files")
	cmd.Flags().BoolVar(&authenticat, "authenticate", false, "authenticate the files an RDF digest document names")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "where to write the generated RDF document (\"-\" for stdout)")
	cmd.Flags().StringVar(&rdfPath, "properties", "", "RDF digest document to authenticate against")
	cmd.Flags().StringVar(&keyHashStr, "key", "SHA256", "digest hash: SHA256, SHA384, SHA512, SHA3256")

	return cmd, nil
}

func runGenerate(paths []string, output, keyHashStr string) error {
	if len(paths) == 0 {
		return errkind.New(errkind.KindOption, "digest-generate", fmt.Errorf("at least one file path is required"))
	}
	alg, err := auth.ParseKeyHash(keyHashStr)
	if err != nil {
		return err
	}
	wire, records, err := filehash.Generate(paths, alg)
	if err != nil {
		return err
	}

	if output == "-" {
		os.Stdout.Write(wire)
	} else {
		if err := os.WriteFile(output, wire, 0o600); err != nil {
			return errkind.New(errkind.KindFile, "digest-generate", err)
		}
	}
	fmt.Fprintf(os.Stderr, "digested %d file(s)\n", len(records))
	return nil
}

func runAuthenticate(rdfPath string) error {
	if rdfPath == "" {
		return errkind.New(errkind.KindOption, "digest-authenticate", fmt.Errorf("-properties <rdf file> is required"))
	}
	wire, err := os.ReadFile(rdfPath)
	if err != nil {
		return errkind.New(errkind.KindFile, "digest-authenticate", err)
	}
	records, err := filehash.Parse(wire)
	if err != nil {
		return err
	}

	results := filehash.Authenticate(records)
	mismatches := 0
	for _, r := range results {
		fmt.Println(r.Diagnostic())
		if !r.Matched {
			mismatches++
		}
	}
	if mismatches > 0 {
		return errkind.New(errkind.KindAuthenticate, "digest-authenticate",
			fmt.Errorf("%d of %d file(s) failed authentication", mismatches, len(results)))
	}
	return nil
}
