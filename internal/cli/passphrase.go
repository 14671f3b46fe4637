package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/Picocrypt/zxcvbn-go"
	"golang.org/x/term"

	"wizardtoolkit/internal/errkind"
)

func isTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// readSecure reads one line from stdin without echoing it when stdin is a
// terminal, falling back to a plain buffered read when it is piped.
// Grounded in the teacher's internal/cli/password.go readPasswordSecure.
func readSecure(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if !isTerminal() {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return "", errkind.New(errkind.KindOption, "readSecure", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errkind.New(errkind.KindOption, "readSecure", err)
	}
	return string(pw), nil
}

// ReadPassphraseInteractive prompts for a passphrase, asking for
// confirmation when confirm is set (encipher's case). It warns on stderr,
// but does not refuse, when zxcvbn scores the passphrase weak, since the
// spec leaves passphrase-strength policy out of scope for the cipher
// core itself.
func ReadPassphraseInteractive(confirm bool) (string, error) {
	pw, err := readSecure("Passphrase: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errkind.New(errkind.KindOption, "ReadPassphraseInteractive", fmt.Errorf("passphrase cannot be empty"))
	}
	if confirm {
		again, err := readSecure("Confirm passphrase: ")
		if err != nil {
			return "", err
		}
		if pw != again {
			return "", errkind.New(errkind.KindOption, "ReadPassphraseInteractive", errkind.ErrPasswordMismatch)
		}
	}
	WarnIfWeak(pw)
	return pw, nil
}

// ReadPassphraseFromStdin reads one line from stdin without prompting,
// for scripted invocations that pipe a passphrase in.
func ReadPassphraseFromStdin() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", errkind.New(errkind.KindOption, "ReadPassphraseFromStdin", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// WarnIfWeak prints a one-line zxcvbn strength estimate to stderr when
// the passphrase scores below "strong" (score 3 of 0-4), mirroring the
// teacher's interactive strength indicator but as plain text rather than
// a GUI widget.
func WarnIfWeak(passphrase string) {
	result := zxcvbn.PasswordStrength(passphrase, nil)
	if result.Score >= 3 {
		return
	}
	labels := [...]string{"very weak", "weak", "fair", "strong", "very strong"}
	label := "very weak"
	if result.Score >= 0 && int(result.Score) < len(labels) {
		label = labels[result.Score]
	}
	fmt.Fprintf(os.Stderr, "warning: passphrase strength is %s (zxcvbn score %d/4)\n", label, result.Score)
}
