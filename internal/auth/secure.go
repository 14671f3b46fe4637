package auth

import "github.com/awnumar/memguard"

// SecureKey wraps a derived key in a memguard.LockedBuffer so it is
// locked out of swap and wiped as soon as it's no longer needed, the same
// secure-handling intent as the teacher's crypto.KeyMaterial but backed
// by an actual mlock-ed allocation instead of a best-effort zero-fill.
type SecureKey struct {
	buf *memguard.LockedBuffer
}

// NewSecureKey copies key into a locked buffer and returns a handle. The
// caller's original slice is left untouched; callers that generated key
// themselves should still zero it afterward.
func NewSecureKey(key []byte) *SecureKey {
	return &SecureKey{buf: memguard.NewBufferFromBytes(key)}
}

// Bytes exposes the locked key material. The returned slice is only
// valid until Destroy is called.
func (s *SecureKey) Bytes() []byte {
	if s.buf == nil {
		return nil
	}
	return s.buf.Bytes()
}

// Destroy wipes and unlocks the underlying buffer. Safe to call multiple
// times.
func (s *SecureKey) Destroy() {
	if s.buf != nil {
		s.buf.Destroy()
		s.buf = nil
	}
}
