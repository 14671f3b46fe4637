package auth

import (
	"fmt"
	"os"
	"syscall"

	"github.com/Picocrypt/zxcvbn-go"
	"github.com/sethvargo/go-diceware/diceware"
	"github.com/sethvargo/go-password/password"
	"golang.org/x/term"

	"wizardtoolkit/internal/errkind"
)

// GeneratePassphrase produces a random high-entropy passphrase using
// go-password's character-class generator, for callers that want a
// machine-chosen secret rather than a user-supplied one.
func GeneratePassphrase(length int) (string, error) {
	p, err := password.Generate(length, length/4, length/8, false, true)
	if err != nil {
		return "", errkind.New(errkind.KindOption, "GeneratePassphrase", err)
	}
	return p, nil
}

// GenerateDicewarePassphrase produces a diceware-style space-separated
// word passphrase, offered as a more memorable alternative to
// GeneratePassphrase for interactive use.
func GenerateDicewarePassphrase(numWords int) (string, error) {
	words, err := diceware.Generate(numWords)
	if err != nil {
		return "", errkind.New(errkind.KindOption, "GenerateDicewarePassphrase", err)
	}
	result := words[0]
	for _, w := range words[1:] {
		result += " " + w
	}
	return result, nil
}

// EstimateStrength scores a candidate passphrase with zxcvbn, returning a
// 0-4 score (0 = trivially guessable, 4 = very strong). The score is
// advisory only: nothing in key derivation depends on it.
func EstimateStrength(passphrase string) int {
	result := zxcvbn.PasswordStrength(passphrase, nil)
	return result.Score
}

// ReadPassphrase prompts prompt on stderr and reads a passphrase from the
// terminal with echo disabled, matching the teacher's CLI convention of
// writing prompts to stderr so stdout stays clean for piped ciphertext.
func ReadPassphrase(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, errkind.New(errkind.KindOption, "ReadPassphrase", err)
	}
	return passphrase, nil
}
