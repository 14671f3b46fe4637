package auth

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	vaultapi "github.com/hashicorp/vault/api"

	"wizardtoolkit/internal/errkind"
)

// Keyring is the pluggable lookup C4 consults when a passphrase alone
// doesn't authenticate (spec §4.4: "optionally fetches from keyring").
// The spec deliberately leaves the persistence format out of scope (§1
// "Persistent keyring storage format"); this package supplies two
// concrete backends so the rest of the system has something to exercise.
type Keyring interface {
	Get(keyID []byte) (key []byte, ok bool, err error)
	Put(keyID, key []byte) error
}

// fileKeyring is the default local keyring: a JSON map of hex key-id to
// hex key, guarded by a mutex the way the teacher guards its in-memory
// crypto contexts, persisted on every Put for durability across runs.
type fileKeyring struct {
	mu      sync.Mutex
	path    string
	entries map[string]string
}

// OpenFileKeyring opens (or creates) a local file-backed keyring at path.
func OpenFileKeyring(path string) (Keyring, error) {
	k := &fileKeyring{path: path, entries: map[string]string{}}
	data, err := os.ReadFile(path)
	if err == nil {
		if jsonErr := json.Unmarshal(data, &k.entries); jsonErr != nil {
			return nil, errkind.New(errkind.KindResource, "OpenFileKeyring", jsonErr)
		}
	} else if !os.IsNotExist(err) {
		return nil, errkind.New(errkind.KindResource, "OpenFileKeyring", err)
	}
	return k, nil
}

func (k *fileKeyring) Get(keyID []byte) ([]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	hexKey, ok := k.entries[hex.EncodeToString(keyID)]
	if !ok {
		return nil, false, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, false, errkind.New(errkind.KindResource, "Get", err)
	}
	return key, true, nil
}

func (k *fileKeyring) Put(keyID, key []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[hex.EncodeToString(keyID)] = hex.EncodeToString(key)

	data, err := json.MarshalIndent(k.entries, "", "  ")
	if err != nil {
		return errkind.New(errkind.KindResource, "Put", err)
	}
	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return errkind.New(errkind.KindResource, "Put", err)
	}
	return os.WriteFile(k.path, data, 0o600)
}

// vaultKeyring stores key material in HashiCorp Vault's KV engine,
// exercising the same client the rest of the retrieval pack's tooling
// uses for secret management. mountPath is the KV mount (e.g. "secret"),
// and each key is stored at <mountPath>/data/wizardtoolkit/<hex keyID>.
type vaultKeyring struct {
	client    *vaultapi.Client
	mountPath string
}

// OpenVaultKeyring builds a Keyring backed by a running Vault server,
// using the ambient VAULT_ADDR/VAULT_TOKEN environment the vault/api
// client already knows how to read.
func OpenVaultKeyring(mountPath string) (Keyring, error) {
	client, err := vaultapi.NewClient(vaultapi.DefaultConfig())
	if err != nil {
		return nil, errkind.New(errkind.KindResource, "OpenVaultKeyring", err)
	}
	return &vaultKeyring{client: client, mountPath: mountPath}, nil
}

func (v *vaultKeyring) secretPath(keyID []byte) string {
	return fmt.Sprintf("%s/data/wizardtoolkit/%s", v.mountPath, hex.EncodeToString(keyID))
}

func (v *vaultKeyring) Get(keyID []byte) ([]byte, bool, error) {
	secret, err := v.client.Logical().Read(v.secretPath(keyID))
	if err != nil {
		return nil, false, errkind.New(errkind.KindAuthenticate, "vaultKeyring.Get", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, false, nil
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, false, nil
	}
	hexKey, ok := data["key"].(string)
	if !ok {
		return nil, false, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, false, errkind.New(errkind.KindAuthenticate, "vaultKeyring.Get", err)
	}
	return key, true, nil
}

func (v *vaultKeyring) Put(keyID, key []byte) error {
	_, err := v.client.Logical().Write(v.secretPath(keyID), map[string]interface{}{
		"data": map[string]interface{}{
			"key": hex.EncodeToString(key),
		},
	})
	if err != nil {
		return errkind.New(errkind.KindAuthenticate, "vaultKeyring.Put", err)
	}
	return nil
}
