package errkind

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrCancelled", ErrCancelled},
		{"ErrAuthFailed", ErrAuthFailed},
		{"ErrCorruptHeader", ErrCorruptHeader},
		{"ErrCorruptChunk", ErrCorruptChunk},
		{"ErrUnknownMajor", ErrUnknownMajor},
		{"ErrNoCredentials", ErrNoCredentials},
		{"ErrPasswordMismatch", ErrPasswordMismatch},
		{"ErrInvalidChunkSize", ErrInvalidChunkSize},
		{"ErrFileNotFound", ErrFileNotFound},
		{"ErrInvalidFormat", ErrInvalidFormat},
		{"ErrRandFailure", ErrRandFailure},
		{"ErrKeyDerivation", ErrKeyDerivation},
		{"ErrMACFailure", ErrMACFailure},
		{"ErrCipherFailure", ErrCipherFailure},
		{"ErrUnknownKeyID", ErrUnknownKeyID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Error("sentinel error should not be nil")
			}
			if tt.err.Error() == "" {
				t.Error("sentinel error should have a message")
			}
		})
	}
}

func TestFault(t *testing.T) {
	baseErr := errors.New("underlying")
	f := New(KindCipher, "EncipherChunk", baseErr)

	if f.Kind() != KindCipher {
		t.Errorf("Kind() = %v, want KindCipher", f.Kind())
	}
	if f.Unwrap() != baseErr {
		t.Error("Unwrap should return the wrapped error")
	}
	if got, want := f.Error(), "CipherError: EncipherChunk: underlying"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	kind, ok := KindOf(f)
	if !ok || kind != KindCipher {
		t.Errorf("KindOf = (%v, %v), want (KindCipher, true)", kind, ok)
	}
	if _, ok := KindOf(baseErr); ok {
		t.Error("KindOf should report false for a plain error")
	}
}

func TestCryptoError(t *testing.T) {
	baseErr := errors.New("underlying error")
	cryptoErr := NewCryptoError("pad", baseErr)

	if cryptoErr.Error() != "crypto pad: underlying error" {
		t.Errorf("unexpected error message: %s", cryptoErr.Error())
	}
	if cryptoErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}

	cryptoErrNil := NewCryptoError("unpad", nil)
	if cryptoErrNil.Error() != "crypto unpad failed" {
		t.Errorf("unexpected error message for nil: %s", cryptoErrNil.Error())
	}
}

func TestFileError(t *testing.T) {
	baseErr := errors.New("permission denied")
	fileErr := NewFileError("open", "/path/to/file", baseErr)

	if fileErr.Error() != "open /path/to/file: permission denied" {
		t.Errorf("unexpected error message: %s", fileErr.Error())
	}
	if fileErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}

	fileErrNil := NewFileError("stat", "/some/path", nil)
	if fileErrNil.Error() != "stat /some/path failed" {
		t.Errorf("unexpected error message for nil: %s", fileErrNil.Error())
	}
}

func TestValidationError(t *testing.T) {
	validErr := NewValidationError("chunksize", "must be >= 1")

	expected := "validation: chunksize: must be >= 1"
	if validErr.Error() != expected {
		t.Errorf("unexpected error message: %s", validErr.Error())
	}
}

func TestHeaderError(t *testing.T) {
	baseErr := errors.New("decode failed")
	headerErr := NewHeaderError("version", baseErr)

	if headerErr.Error() != "header version: decode failed" {
		t.Errorf("unexpected error message: %s", headerErr.Error())
	}
	if headerErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}
}

func TestChunkError(t *testing.T) {
	baseErr := errors.New("hmac mismatch")
	chunkErr := NewChunkError(3, baseErr)

	if chunkErr.Error() != "corrupt cipher chunk #3: hmac mismatch" {
		t.Errorf("unexpected error message: %s", chunkErr.Error())
	}
	if chunkErr.Unwrap() != baseErr {
		t.Error("Unwrap should return underlying error")
	}
}

func TestIsAndAs(t *testing.T) {
	if !Is(ErrCancelled, ErrCancelled) {
		t.Error("Is should return true for same error")
	}
	if Is(ErrCancelled, ErrAuthFailed) {
		t.Error("Is should return false for different errors")
	}

	cryptoErr := NewCryptoError("test", errors.New("test"))
	var target *CryptoError
	if !As(cryptoErr, &target) {
		t.Error("As should find CryptoError")
	}
	if target.Op != "test" {
		t.Errorf("unexpected Op: %s", target.Op)
	}
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base")
	wrapped := Wrap(baseErr, "context")

	if wrapped.Error() != "context: base" {
		t.Errorf("unexpected wrapped message: %s", wrapped.Error())
	}
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestConvenienceFunctions(t *testing.T) {
	if !IsCancelled(ErrCancelled) {
		t.Error("IsCancelled should return true for ErrCancelled")
	}
	if IsCancelled(ErrAuthFailed) {
		t.Error("IsCancelled should return false for other errors")
	}
	if !IsAuthFailed(ErrAuthFailed) {
		t.Error("IsAuthFailed should return true for ErrAuthFailed")
	}
	if !IsCorrupt(ErrCorruptHeader) {
		t.Error("IsCorrupt should return true for ErrCorruptHeader")
	}
	if !IsCorrupt(ErrCorruptChunk) {
		t.Error("IsCorrupt should return true for ErrCorruptChunk")
	}
	if !IsCorrupt(NewChunkError(1, ErrCorruptChunk)) {
		t.Error("IsCorrupt should return true for a *ChunkError")
	}
}
