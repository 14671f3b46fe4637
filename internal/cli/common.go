package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"wizardtoolkit/internal/auth"
	"wizardtoolkit/internal/cryptosuite"
	"wizardtoolkit/internal/entropy"
	"wizardtoolkit/internal/errkind"
	"wizardtoolkit/internal/log"
	"wizardtoolkit/internal/packet"
	"wizardtoolkit/internal/reservoir"
)

// Run executes cmd, wiring SIGINT/SIGTERM to reporter.Cancel when a
// reporter is given (grounded in the teacher's root.go signal-handling
// goroutine), and maps any error to the exit code spec §6.4 requires: 0
// on success, 1 otherwise.
func Run(cmd *cobra.Command, reporter *Reporter) int {
	if reporter != nil {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			reporter.Cancel()
			fmt.Fprintln(os.Stderr, "\ncancelling...")
		}()
	}
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// commonFlags holds the five flags spec §6.4 lists for every tool
// (-debug, -help, -list, -version, -log); -help and -version are cobra
// built-ins (cobra.Command already exposes --help, and --version is wired
// automatically by setting Command.Version), so only -debug, -list, and
// -log need their own flag variables here.
type commonFlags struct {
	debug bool
	list  bool
	log   string
}

func (c *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&c.debug, "debug", false, "enable debug logging to stderr")
	cmd.Flags().BoolVar(&c.list, "list", false, "list supported algorithm names and exit")
	cmd.Flags().StringVar(&c.log, "log", "", "append structured logs to this file instead of stderr")
}

// registerPersistent is register, but on a command with subcommands
// (keyring's root), so -debug/-list/-log are visible to every
// subcommand rather than only the root command itself.
func (c *commonFlags) registerPersistent(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging to stderr")
	cmd.PersistentFlags().BoolVar(&c.list, "list", false, "list supported algorithm names and exit")
	cmd.PersistentFlags().StringVar(&c.log, "log", "", "append structured logs to this file instead of stderr")
}

// apply activates logging per the flags; call before any pipeline work.
func (c *commonFlags) apply() error {
	switch {
	case c.log != "":
		if err := log.EnableFileLogging(c.log, log.LevelInfo); err != nil {
			return errkind.New(errkind.KindResource, "apply", err)
		}
	case c.debug:
		log.EnableDebugLogging()
	}
	return nil
}

// listAlgorithms prints every enum name the cipher-packet header can
// carry, the reference a user consults when choosing -cipher/-mode/
// -hmac/-entropy/-key flag values.
func listAlgorithms(w *os.File) {
	fmt.Fprintln(w, "ciphers:    AES, Serpent, TwoFish")
	fmt.Fprintln(w, "modes:      ECB, CBC, CFB, CTR, OFB")
	fmt.Fprintln(w, "hmac:       None, SHA256, SHA384, SHA512")
	fmt.Fprintln(w, "entropy:    None, ZIP, BZIP, LZMA")
	fmt.Fprintln(w, "key-hash:   SHA256, SHA384, SHA512, SHA3256")
	fmt.Fprintln(w, "authenticate: Secret, Public (Public is an unimplemented stub)")
}

// resolveKeyring builds the Keyring a -keyring flag names. An empty uri
// means no keyring is configured. A "vault://<mount>" uri selects the
// HashiCorp Vault backend; anything else is a local file path.
func resolveKeyring(uri string) (auth.Keyring, error) {
	if uri == "" {
		return nil, nil
	}
	if mount, ok := strings.CutPrefix(uri, "vault://"); ok {
		return auth.OpenVaultKeyring(mount)
	}
	return auth.OpenFileKeyring(uri)
}

// resolveReservoir opens the process-wide random reservoir. -random asks
// for an ephemeral, unpersisted pool (path is ignored); -true-random
// additionally folds a /dev/random draw into the seed on first use (spec
// §4.3).
func resolveReservoir(path string, ephemeral, trueRandom bool) (*reservoir.Reservoir, error) {
	if ephemeral {
		path = ""
	}
	return reservoir.OpenTrueRandom(path, trueRandom)
}

// cipherSpec bundles the -cipher/-mode/-hmac/-entropy/-key/
// -key-length/-level/-chunksize flags' textual values; resolve converts
// them into their typed form, returning the first parse error encountered.
type cipherSpec struct {
	cipherStr, modeStr, hmacStr, entropyStr, keyHashStr string
	keyLength, level                                    uint32
	chunkSize                                            uint64
}

type resolvedSpec struct {
	cipher    cryptosuite.CipherID
	mode      cryptosuite.ModeID
	hmac      packet.HMACAlg
	codec     entropy.Codec
	keyHash   auth.KeyHash
	keyLength uint32
	level     uint32
	chunkSize uint64
}

func (c cipherSpec) resolve() (resolvedSpec, error) {
	var r resolvedSpec
	var err error
	if r.cipher, err = cryptosuite.ParseCipherID(c.cipherStr); err != nil {
		return r, err
	}
	if r.mode, err = cryptosuite.ParseModeID(c.modeStr); err != nil {
		return r, err
	}
	if r.hmac, err = packet.ParseHMACAlg(c.hmacStr); err != nil {
		return r, err
	}
	if r.codec, err = entropy.ParseCodec(c.entropyStr); err != nil {
		return r, err
	}
	if r.keyHash, err = auth.ParseKeyHash(c.keyHashStr); err != nil {
		return r, err
	}
	r.keyLength = c.keyLength
	r.level = c.level
	r.chunkSize = c.chunkSize
	return r, nil
}
