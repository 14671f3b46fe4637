package cryptosuite

// ecbEncrypter and ecbDecrypter implement crypto/cipher.BlockMode for
// Electronic Codebook mode, which the standard library deliberately does
// not provide (ECB leaks block-level plaintext patterns and the stdlib
// authors refuse to make it convenient). Spec §4.5 lists ECB as a
// selectable mode, so it's implemented here the same way stdlib implements
// CBC: a thin loop calling Block.Encrypt/Decrypt per block, no chaining
// state at all.

type ecbEncrypter struct {
	b blockCipher
}

// newECBEncrypter returns a block mode that encrypts each block of the
// input independently. There is no IV: ECB has no chaining state.
func newECBEncrypter(b blockCipher) *ecbEncrypter {
	return &ecbEncrypter{b: b}
}

func (e *ecbEncrypter) BlockSize() int { return e.b.BlockSize() }

func (e *ecbEncrypter) CryptBlocks(dst, src []byte) {
	if len(src)%e.BlockSize() != 0 {
		panic("cryptosuite: input not full blocks")
	}
	if len(dst) < len(src) {
		panic("cryptosuite: output smaller than input")
	}
	bs := e.BlockSize()
	for len(src) > 0 {
		e.b.Encrypt(dst[:bs], src[:bs])
		src = src[bs:]
		dst = dst[bs:]
	}
}

type ecbDecrypter struct {
	b blockCipher
}

func newECBDecrypter(b blockCipher) *ecbDecrypter {
	return &ecbDecrypter{b: b}
}

func (e *ecbDecrypter) BlockSize() int { return e.b.BlockSize() }

func (e *ecbDecrypter) CryptBlocks(dst, src []byte) {
	if len(src)%e.BlockSize() != 0 {
		panic("cryptosuite: input not full blocks")
	}
	if len(dst) < len(src) {
		panic("cryptosuite: output smaller than input")
	}
	bs := e.BlockSize()
	for len(src) > 0 {
		e.b.Decrypt(dst[:bs], src[:bs])
		src = src[bs:]
		dst = dst[bs:]
	}
}
