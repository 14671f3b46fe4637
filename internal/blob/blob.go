// Package blob implements the byte-stream abstraction (spec §4.1,
// component C1): a uniform sequential reader/writer over a file, pipe,
// memory buffer, or transparently (de)compressed gzip/bzip2 stream. The
// teacher repo has no analogous indirection layer — it opens *os.File
// directly throughout internal/volume — so this package is grounded
// instead in the reservoir-adjacent retrieval pack: other_examples'
// ctrdrbg reader construction shows the same "small io.Reader/io.Writer
// facade in front of a concrete transport" idiom applied generically.
package blob

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/dsnet/compress/bzip2"

	"wizardtoolkit/internal/errkind"
)

// Mode selects how a Stream is opened.
type Mode int

const (
	ReadMode Mode = iota
	WriteMode
)

// mmapThreshold is the file size above which Open maps the file read-only
// instead of buffering reads through the kernel page cache redundantly.
const mmapThreshold = 64 * 1024 * 1024

// Stream is the uniform handle C7/C8/C9 read and write through. Exactly
// one of the underlying transports (file, pipe, memory) is active, except
// that a memory-mapped file read keeps both file (closed by Close) and
// mem (which serves reads) set.
type Stream struct {
	path     string
	mode     Mode
	seekable bool

	file   *os.File
	cmd    *exec.Cmd
	mem    *memTransport
	reader io.Reader
	writer io.Writer
	closer io.Closer

	pos int64
}

// Open opens path for reading or writing. path "-" binds stdin/stdout. A
// leading "|" opens a subprocess pipe (the remainder of path is the shell
// command line). transparentCompression, when true and mode is ReadMode,
// peeks the first three bytes to detect gzip/bzip2 magic and wraps the
// stream in the matching decompressor; in WriteMode it inspects the file
// extension (.gz, .bz2) to select a compressor instead.
func Open(path string, mode Mode, transparentCompression bool) (*Stream, error) {
	switch {
	case path == "-":
		return openStdio(mode, transparentCompression)
	case len(path) > 0 && path[0] == '|':
		return openPipe(path[1:], mode)
	default:
		return openFile(path, mode, transparentCompression)
	}
}

// OpenMemory attaches a Stream to an in-memory buffer. A nil initial
// buffer starts empty and grows on write.
func OpenMemory(mode Mode, initial []byte) *Stream {
	m := newMemTransport(initial)
	return &Stream{mode: mode, mem: m, seekable: true, reader: m, writer: m}
}

func openStdio(mode Mode, transparentCompression bool) (*Stream, error) {
	if mode == ReadMode {
		r := io.Reader(os.Stdin)
		if transparentCompression {
			wrapped, err := maybeDecompress(bufio.NewReader(r))
			if err != nil {
				return nil, err
			}
			r = wrapped
		}
		return &Stream{path: "-", mode: mode, reader: r, seekable: false}, nil
	}
	return &Stream{path: "-", mode: mode, writer: os.Stdout, seekable: false}, nil
}

func openPipe(command string, mode Mode) (*Stream, error) {
	cmd := exec.Command("/bin/sh", "-c", command)
	s := &Stream{path: "|" + command, mode: mode, cmd: cmd, seekable: false}
	if mode == ReadMode {
		out, err := cmd.StdoutPipe()
		if err != nil {
			return nil, errkind.New(errkind.KindBlob, "openPipe", err)
		}
		s.reader = out
	} else {
		in, err := cmd.StdinPipe()
		if err != nil {
			return nil, errkind.New(errkind.KindBlob, "openPipe", err)
		}
		s.writer = in
		s.closer = in
	}
	if err := cmd.Start(); err != nil {
		return nil, errkind.New(errkind.KindBlob, "openPipe", err)
	}
	return s, nil
}

func openFile(path string, mode Mode, transparentCompression bool) (*Stream, error) {
	var f *os.File
	var err error
	op := "open"
	if mode == ReadMode {
		f, err = os.Open(path)
	} else {
		op = "create"
		f, err = os.Create(path)
	}
	if err != nil {
		return nil, errkind.New(errkind.KindFile, "openFile", errkind.NewFileError(op, path, err))
	}

	s := &Stream{path: path, mode: mode, file: f, seekable: true}

	if mode == ReadMode {
		info, statErr := f.Stat()
		if statErr == nil && info.Size() > mmapThreshold {
			mapped, mapErr := mapFile(f)
			if mapErr == nil {
				s.mem = newMemTransport(mapped)
				s.reader = s.mem
				s.writer = nil
				s.closer = f
				return finishReadOpen(s, transparentCompression)
			}
			// fall through to ordinary buffered reads if mapping failed
		}
		s.reader = bufio.NewReaderSize(f, 256*1024)
		return finishReadOpen(s, transparentCompression)
	}

	if transparentCompression {
		w, closer, werr := wrapCompressedWriter(f, path)
		if werr != nil {
			f.Close()
			return nil, werr
		}
		s.writer = w
		s.closer = closer
		return s, nil
	}
	s.writer = f
	s.closer = f
	return s, nil
}

func finishReadOpen(s *Stream, transparentCompression bool) (*Stream, error) {
	if !transparentCompression {
		return s, nil
	}
	br, ok := s.reader.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(s.reader)
	}
	wrapped, err := maybeDecompress(br)
	if err != nil {
		return nil, err
	}
	s.reader = wrapped
	if wrapped != io.Reader(br) {
		s.seekable = false // decompressed streams are not seekable
	}
	return s, nil
}

func maybeDecompress(br *bufio.Reader) (io.Reader, error) {
	magic, err := br.Peek(3)
	if err != nil {
		// fewer than 3 bytes available; nothing to sniff, return as-is
		return br, nil
	}
	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b && magic[2] == 0x08:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errkind.New(errkind.KindBlob, "gzip.NewReader", err)
		}
		return gz, nil
	case magic[0] == 'B' && magic[1] == 'Z' && magic[2] == 'h':
		bz, err := bzip2.NewReader(br, nil)
		if err != nil {
			return nil, errkind.New(errkind.KindBlob, "bzip2.NewReader", err)
		}
		return bz, nil
	default:
		return br, nil
	}
}

func wrapCompressedWriter(f *os.File, path string) (io.Writer, io.Closer, error) {
	ext := pathExt(path)
	switch ext {
	case ".gz":
		gw := gzip.NewWriter(f)
		return gw, multiCloser{gw, f}, nil
	case ".bz2":
		bw, err := bzip2.NewWriter(f, nil)
		if err != nil {
			return nil, nil, errkind.New(errkind.KindBlob, "bzip2.NewWriter", err)
		}
		return bw, multiCloser{bw, f}, nil
	default:
		return f, f, nil
	}
}

func pathExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var firstErr error
	for _, c := range m {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Read reads up to len(p) bytes. A short read is not itself an error;
// io.EOF is returned once the underlying transport is exhausted.
func (s *Stream) Read(p []byte) (int, error) {
	if s.reader == nil {
		return 0, errkind.New(errkind.KindBlob, "Read", fmt.Errorf("stream not opened for reading"))
	}
	n, err := s.reader.Read(p)
	s.pos += int64(n)
	return n, err
}

// Write writes len(p) bytes, propagating any underlying failure.
func (s *Stream) Write(p []byte) (int, error) {
	if s.writer == nil {
		return 0, errkind.New(errkind.KindBlob, "Write", fmt.Errorf("stream not opened for writing"))
	}
	n, err := s.writer.Write(p)
	s.pos += int64(n)
	if err != nil {
		return n, errkind.New(errkind.KindFile, "Write", err)
	}
	return n, nil
}

// Tell returns the current byte offset.
func (s *Stream) Tell() int64 { return s.pos }

// Seek repositions the stream. Pipe and compressed streams are
// non-seekable and return a BlobError.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if !s.seekable {
		return 0, errkind.New(errkind.KindBlob, "Seek", fmt.Errorf("stream %q is not seekable", s.path))
	}
	if s.file != nil {
		n, err := s.file.Seek(offset, whence)
		if err != nil {
			return 0, errkind.New(errkind.KindBlob, "Seek", err)
		}
		s.pos = n
		return n, nil
	}
	if s.mem != nil {
		n, err := s.mem.Seek(offset, whence)
		if err != nil {
			return 0, errkind.New(errkind.KindBlob, "Seek", err)
		}
		s.pos = n
		return n, nil
	}
	return 0, errkind.New(errkind.KindBlob, "Seek", fmt.Errorf("no seekable transport"))
}

// Size returns the transport's total size, if known.
func (s *Stream) Size() (int64, error) {
	if s.file != nil {
		info, err := s.file.Stat()
		if err != nil {
			return 0, errkind.New(errkind.KindBlob, "Size", err)
		}
		return info.Size(), nil
	}
	if s.mem != nil {
		return s.mem.Size(), nil
	}
	return 0, errkind.New(errkind.KindBlob, "Size", fmt.Errorf("size unavailable for stream %q", s.path))
}

// Sync flushes any OS-level write buffering so a partial write is
// detectable by a concurrent reader of the same file.
func (s *Stream) Sync() error {
	if s.file != nil {
		if err := s.file.Sync(); err != nil {
			return errkind.New(errkind.KindFile, "Sync", err)
		}
	}
	return nil
}

// Close releases the underlying transport. Safe to call multiple times.
func (s *Stream) Close() error {
	var err error
	if s.closer != nil {
		err = s.closer.Close()
		s.closer = nil
		s.file = nil
	} else if s.file != nil {
		err = s.file.Close()
		s.file = nil
	}
	if s.cmd != nil {
		waitErr := s.cmd.Wait()
		if err == nil {
			err = waitErr
		}
		s.cmd = nil
	}
	if err != nil {
		return errkind.New(errkind.KindFile, "Close", err)
	}
	return nil
}

// Path returns the path or pipe command the stream was opened with.
func (s *Stream) Path() string { return s.path }
