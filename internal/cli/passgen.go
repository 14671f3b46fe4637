package cli

import (
	"fmt"
	"strings"

	"github.com/sethvargo/go-diceware/diceware"
	"github.com/sethvargo/go-password/password"

	"wizardtoolkit/internal/errkind"
)

// GeneratePassphrase produces a fresh passphrase for keyring's "generate"
// subcommand (spec §4.4 leaves passphrase provisioning to the caller;
// this is a convenience the CLI layer adds on top). method selects the
// generator: "diceware" (the default, a hyphen-joined word list suitable
// for memorizing) or "random" (a fixed-length mixed-character string).
func GeneratePassphrase(method string) (string, error) {
	switch method {
	case "", "diceware":
		words, err := diceware.Generate(6)
		if err != nil {
			return "", errkind.New(errkind.KindOption, "GeneratePassphrase", err)
		}
		return strings.Join(words, "-"), nil
	case "random":
		pw, err := password.Generate(24, 4, 4, false, false)
		if err != nil {
			return "", errkind.New(errkind.KindOption, "GeneratePassphrase", err)
		}
		return pw, nil
	default:
		return "", errkind.New(errkind.KindOption, "GeneratePassphrase", fmt.Errorf("unknown generation method %q", method))
	}
}
