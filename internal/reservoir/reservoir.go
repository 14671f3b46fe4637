// Package reservoir implements the random reservoir (spec §4.3, component
// C3): a persistent HMAC-keystream CSPRNG seeded once from a gathered
// entropy pool and then driven by a monotonically incremented nonce
// across the process lifetime; on Close a fresh keystream block is written
// to a disk-backed state file, from which the next invocation reseeds its
// key and nonce. Grounded in the teacher's internal/crypto package for
// primitive choice (HMAC-SHA-family, crypto/rand seeding, the
// sanity-check-the-output style of crypto.RandomBytes) and in
// shirou/gopsutil for the resource-usage entropy-pool inputs the teacher
// never needed but spec §4.3 calls for explicitly.
package reservoir

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"wizardtoolkit/internal/entropy"
	"wizardtoolkit/internal/errkind"
)

const (
	magic0       = 0x7f
	magic1       = 'S'
	magic2       = 'E'
	magic3       = 'E'
	fileTypeTag  = "random"
	formatMajor  = 1
	formatMinor  = 0
	minPoolRatio = 0.50
)

// hashFactory builds a hash.Hash for the reservoir's keystream. Default SHA-256
// per spec §3 RandomReservoir.hmac_alg.
type hashFactory func() hash.Hash

// Reservoir is the process-wide singleton CSPRNG described in spec §4.3.
// All operations are serialised by mu, matching spec §5's shared-resource
// policy ("a single mutex guards buffer, offset, nonce, and key").
type Reservoir struct {
	mu sync.Mutex

	newHash hashFactory
	digest  int

	key    []byte
	nonce  []byte
	buffer []byte
	offset int

	seedMixer [4]uint64
	path      string
}

var (
	singleton   *Reservoir
	singletonMu sync.Mutex
)

// Open returns the process-wide reservoir, seeding it from path (or live
// entropy if path is absent or invalid) on first call. Subsequent calls
// return the same instance.
func Open(path string) (*Reservoir, error) {
	return OpenTrueRandom(path, false)
}

// OpenTrueRandom is Open, additionally requesting a blocking-source draw
// (spec §4.3: "/dev/random only when true_random was requested") be
// folded into the seed pool on first use. Ignored on subsequent calls,
// same as path, since the singleton is already seeded by then.
func OpenTrueRandom(path string, trueRandom bool) (*Reservoir, error) {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton != nil {
		return singleton, nil
	}
	r, err := newReservoir(path, sha256.New, sha256.Size, trueRandom)
	if err != nil {
		return nil, err
	}
	singleton = r
	return r, nil
}

// resetForTest clears the singleton so package tests can exercise Open
// multiple times within one process.
func resetForTest() {
	singletonMu.Lock()
	singleton = nil
	singletonMu.Unlock()
}

func newReservoir(path string, newHash hashFactory, digestSize int, trueRandom bool) (*Reservoir, error) {
	r := &Reservoir{newHash: newHash, digest: digestSize, path: path}

	if path != "" {
		if err := r.loadFromFile(path); err == nil {
			return r, nil
		}
		// fall through: missing or corrupt reservoir file regenerates from
		// live entropy sources (spec §8 scenario 6)
	}

	pool, err := gatherEntropyPool(digestSize, trueRandom)
	if err != nil {
		return nil, err
	}
	compressed, err := entropy.Increase(entropy.ZIP, pool, 9)
	if err != nil {
		return nil, errkind.New(errkind.KindRandom, "newReservoir", err)
	}
	if float64(len(compressed)) < float64(len(pool))*minPoolRatio {
		return nil, errkind.New(errkind.KindRandom, "newReservoir",
			fmt.Errorf("entropy pool compressed to %.0f%% of its size, below the %.0f%% floor",
				100*float64(len(compressed))/float64(len(pool)), 100*minPoolRatio))
	}

	h := newHash()
	h.Write(compressed)
	seed := h.Sum(nil)

	r.key = make([]byte, digestSize)
	copy(r.key, seed)
	r.nonce = make([]byte, 2*digestSize)
	for i := range r.nonce {
		r.nonce[i] = seed[i%len(seed)]
	}
	r.buffer = nil
	r.offset = 0
	r.seedSeedMixer(seed)
	return r, nil
}

func (r *Reservoir) seedSeedMixer(seed []byte) {
	for i := 0; i < 4 && (i+1)*8 <= len(seed); i++ {
		r.seedMixer[i] = binary.BigEndian.Uint64(seed[i*8 : (i+1)*8])
	}
}

// gatherEntropyPool assembles the inputs spec §4.3 names: process/thread
// identifiers, multiple clock sources, current resource usage, the
// environment block, and bytes from the OS CSPRNG (plus /dev/random only
// when trueRandom is requested).
func gatherEntropyPool(digestSize int, trueRandom bool) ([]byte, error) {
	var pool []byte

	pid := os.Getpid()
	pool = appendUint64(pool, uint64(pid))
	pool = appendUint64(pool, uint64(os.Getppid()))

	now := time.Now()
	pool = appendUint64(pool, uint64(now.UnixNano()))
	pool = appendUint64(pool, uint64(time.Now().UnixNano()))

	var memStat runtime.MemStats
	runtime.ReadMemStats(&memStat)
	pool = appendUint64(pool, memStat.Alloc)
	pool = appendUint64(pool, memStat.NumGC)
	pool = appendUint64(pool, uint64(runtime.NumGoroutine()))

	if vm, err := mem.VirtualMemory(); err == nil {
		pool = appendUint64(pool, vm.Used)
		pool = appendUint64(pool, vm.Free)
	}
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		pool = appendUint64(pool, uint64(pcts[0]*1000))
	}

	for _, kv := range os.Environ() {
		pool = append(pool, kv...)
	}

	osRandom := make([]byte, 64)
	if _, err := rand.Read(osRandom); err != nil {
		return nil, errkind.New(errkind.KindRandom, "gatherEntropyPool", err)
	}
	pool = append(pool, osRandom...)

	if trueRandom {
		if trueBytes, err := readTrueRandom(64); err == nil {
			pool = append(pool, trueBytes...)
		}
	}

	if len(pool) < digestSize {
		pad := make([]byte, digestSize-len(pool))
		rand.Read(pad)
		pool = append(pool, pad...)
	}
	return pool, nil
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func readTrueRandom(n int) ([]byte, error) {
	f, err := os.Open("/dev/random")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// GetRandomKey serves n pseudo-random bytes from the HMAC keystream
// (spec §4.3 set_random_key). It first drains any leftover bytes in
// buffer, then generates fresh HMAC blocks as needed, retaining any
// unused tail for the next call.
func (r *Reservoir) GetRandomKey(n int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getRandomKeyLocked(n)
}

func (r *Reservoir) getRandomKeyLocked(n int) ([]byte, error) {
	out := make([]byte, 0, n)

	if r.offset < len(r.buffer) {
		take := len(r.buffer) - r.offset
		if take > n {
			take = n
		}
		out = append(out, r.buffer[r.offset:r.offset+take]...)
		r.offset += take
	}

	for len(out) < n {
		block := r.nextBlock()
		need := n - len(out)
		if need >= len(block) {
			out = append(out, block...)
			r.buffer = nil
			r.offset = 0
		} else {
			out = append(out, block[:need]...)
			r.buffer = block
			r.offset = need
		}
	}
	return out, nil
}

// nextBlock increments nonce, computes H_key(nonce), and returns the
// digest (spec §4.3: "nonce is incremented by 1 before each new block is
// produced").
func (r *Reservoir) nextBlock() []byte {
	incrementBigEndian(r.nonce)
	mac := hmac.New(r.newHash, r.key)
	mac.Write(r.nonce)
	return mac.Sum(nil)
}

func incrementBigEndian(b []byte) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i]++
		if b[i] != 0 {
			return
		}
	}
}

// PseudoRandomUint64 returns a non-cryptographic pseudo-random value from
// an xorshift-128-like generator seeded once from the CSPRNG (spec §4.3
// get_pseudo_random_value). Intended only for non-security-critical
// sampling such as benchmark jitter or test-fixture selection.
func (r *Reservoir) PseudoRandomUint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, y, z, w := r.seedMixer[0], r.seedMixer[1], r.seedMixer[2], r.seedMixer[3]
	t := x ^ (x << 11)
	x, y, z = y, z, w
	w = w ^ (w >> 19) ^ (t ^ (t >> 8))
	r.seedMixer[0], r.seedMixer[1], r.seedMixer[2], r.seedMixer[3] = x, y, z, w
	return w
}

// Close advances the keystream by one block and serialises that block to
// path as the key the next invocation loads (spec §4.3, §6.2).
func (r *Reservoir) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.path == "" {
		return nil
	}
	return r.saveToFile(r.path)
}

func (r *Reservoir) saveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errkind.New(errkind.KindRandom, "saveToFile", err)
	}
	defer f.Close()

	var hdr []byte
	hdr = append(hdr, magic0, magic1, magic2, magic3)
	hdr = append(hdr, fileTypeTag...)
	hdr = appendUint16(hdr, formatMajor)
	hdr = appendUint16(hdr, formatMinor)
	hdr = appendUint64(hdr, uint64(time.Now().Unix()))

	// persist a fresh keystream block rather than the key itself, so the
	// next invocation reseeds from a new state instead of replaying this one
	digest := r.nextBlock()
	var digestLen [4]byte
	binary.BigEndian.PutUint32(digestLen[:], uint32(len(digest)))
	hdr = append(hdr, digestLen[:]...)
	hdr = append(hdr, digest...)

	crc := crc32.ChecksumIEEE(digest)
	hdr = appendUint64(hdr, uint64(crc))

	if _, err := f.Write(hdr); err != nil {
		return errkind.New(errkind.KindRandom, "saveToFile", err)
	}
	return nil
}

func appendUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

func (r *Reservoir) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errkind.New(errkind.KindRandom, "loadFromFile", err)
	}
	want := []byte{magic0, magic1, magic2, magic3}
	if len(data) < 4+len(fileTypeTag)+2+2+8+4 {
		return errkind.New(errkind.KindRandom, "loadFromFile", errkind.ErrInvalidFormat)
	}
	if string(data[:4]) != string(want) {
		return errkind.New(errkind.KindRandom, "loadFromFile", fmt.Errorf("bad magic"))
	}
	off := 4
	if string(data[off:off+len(fileTypeTag)]) != fileTypeTag {
		return errkind.New(errkind.KindRandom, "loadFromFile", fmt.Errorf("bad filetype tag"))
	}
	off += len(fileTypeTag)
	off += 2 // major
	off += 2 // minor
	off += 8 // timestamp
	digestLen := binary.BigEndian.Uint32(data[off : off+4])
	off += 4
	if off+int(digestLen)+8 > len(data) {
		return errkind.New(errkind.KindRandom, "loadFromFile", fmt.Errorf("truncated reservoir file"))
	}
	digest := data[off : off+int(digestLen)]
	off += int(digestLen)
	wantCRC := binary.BigEndian.Uint64(data[off : off+8])
	gotCRC := uint64(crc32.ChecksumIEEE(digest))
	if gotCRC != wantCRC {
		return errkind.New(errkind.KindRandom, "loadFromFile", fmt.Errorf("CRC mismatch"))
	}

	r.key = append([]byte(nil), digest...)
	r.nonce = make([]byte, 2*len(digest))
	copy(r.nonce, digest)
	r.buffer = nil
	r.offset = 0
	r.seedSeedMixer(digest)
	return nil
}
