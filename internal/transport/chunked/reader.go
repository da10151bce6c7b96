package chunked

import (
	"bufio"
	"io"
)

// SyntaxError reports malformed chunked framing, as opposed to an I/O
// failure of the underlying reader. Callers use the distinction to decide
// between decode and transfer error classes.
type SyntaxError struct {
	msg string
}

func (e *SyntaxError) Error() string { return "chunked: " + e.msg }

func NewChunkedReader(r io.Reader) io.Reader {
	var br *bufio.Reader
	if v, ok := r.(*bufio.Reader); ok {
		br = v
	} else {
		br = bufio.NewReader(r)
	}
	return &chunkedReader{Reader: br}
}

type chunkedReader struct {
	*bufio.Reader
	currentChunk                   io.Reader
	currentCount, currentChunkSize int64
}

func (c *chunkedReader) readChunkHeader() (size uint64, err error) {
	cnt := 0
	isPref := true
	for isPref {
		var line []byte
		line, isPref, err = c.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		for _, b := range line {
			cnt++
			switch {
			case '0' <= b && b <= '9':
				b = b - '0'
			case 'a' <= b && b <= 'f':
				b = b - 'a' + 10
			case 'A' <= b && b <= 'F':
				b = b - 'A' + 10
			default:
				return 0, &SyntaxError{"invalid byte in chunk length"}
			}
			size <<= 4
			size |= uint64(b)
		}
		if cnt >= 16 {
			return 0, &SyntaxError{"chunk length too large"}
		}
	}
	return
}

func (c *chunkedReader) Read(p []byte) (n int, err error) {
	if c.currentChunk == nil {
		size, err := c.readChunkHeader()
		if err != nil {
			return n, err
		}
		if size == 0 {
			// last chunk, drain the terminating CRLF
			if dr, _ := c.Reader.ReadByte(); dr == '\r' {
				c.Reader.ReadByte()
			}
			return 0, io.EOF
		}
		c.currentChunk = io.LimitReader(c.Reader, int64(size))
		c.currentChunkSize = int64(size)
	}
	n, err = c.currentChunk.Read(p)
	c.currentCount += int64(n)
	if err == io.EOF {
		if c.currentCount != c.currentChunkSize {
			return n, io.ErrUnexpectedEOF
		}
		err = nil
		dr, _ := c.Reader.ReadByte()
		dn, rerr := c.Reader.ReadByte()
		if rerr != nil {
			if rerr == io.EOF {
				rerr = io.ErrUnexpectedEOF
			}
			return n, rerr
		}
		if dr != '\r' || dn != '\n' {
			return n, &SyntaxError{"chunk data not terminated by CRLF"}
		}
		c.currentChunk = nil
		c.currentCount = 0
	}
	return
}
