package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/nettide/httpc/internal/errs"
	"github.com/nettide/httpc/internal/http"
	"github.com/nettide/httpc/internal/transport/chunked"
)

// HTTP1 serializes requests and parses responses per RFC9112 message
// syntax. Cancellation is observed at entry, before any byte touches the
// wire; mid-transfer failures surface as classified errors.
type HTTP1 struct{}

func (t HTTP1) Write(ctx context.Context, w io.Writer, r *http.PreparedRequest) error {
	if err := errs.FromContext(ctx); err != nil {
		return err
	}
	body, err := r.GetBody()
	if err != nil {
		return errs.New(errs.Request, err)
	}
	if body != nil {
		defer body.Close() // request body is ALWAYS closed
	}

	if err := t.writeHeader(w, r); err != nil {
		return errs.New(errs.Request, markConn(err))
	}
	if body != nil && body != http.NoBody {
		if err := t.writeBody(w, r, body); err != nil {
			return errs.New(errs.BodyTransfer, err)
		}
	}
	return nil
}

// writeHeader writes the request line and header block, e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func (t HTTP1) writeHeader(w io.Writer, r *http.PreparedRequest) error {
	header := bufio.NewWriter(w) // default bufsize is 4096

	if _, err := header.WriteString(r.Method); err != nil {
		return err
	}
	header.WriteByte(' ')
	header.WriteString(r.U.RequestURI())
	header.WriteString(" HTTP/1.1\r\n")

	header.WriteString("Host: ")
	header.WriteString(r.HeaderHost)
	header.WriteString("\r\n")
	switch {
	case r.ContentLength >= 0 && r.Request.Body != nil:
		header.WriteString("Content-Length: ")
		header.WriteString(strconv.FormatInt(r.ContentLength, 10))
		header.WriteString("\r\n")
	case r.ContentLength < 0 && r.Request.Body != nil:
		header.WriteString("Transfer-Encoding: chunked\r\n")
	}
	for k, v := range r.Header {
		for _, v := range v {
			header.WriteString(k)
			header.WriteString(": ")
			header.WriteString(v)
			if _, err := header.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	if _, err := header.WriteString("\r\n"); err != nil {
		return err
	}
	return header.Flush()
}

func (t HTTP1) writeBody(w io.Writer, r *http.PreparedRequest, body io.Reader) error {
	if r.ContentLength < 0 {
		cw := chunked.NewChunkedWriter(connWriter{w})
		if _, err := io.Copy(cw, body); err != nil {
			return err
		}
		return cw.Close()
	}
	_, err := io.Copy(connWriter{w}, body)
	return err
}

func (t HTTP1) Read(ctx context.Context, r io.Reader, resp *http.Response) error {
	if err := errs.FromContext(ctx); err != nil {
		return err
	}
	tp := textproto.NewReader(bufio.NewReader(r))

	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return errs.New(errs.Request, markConn(err))
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		return errs.Msg(errs.Request, "malformed HTTP response")
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		return errs.Newf(errs.Request, "malformed HTTP status code %q", statusCode)
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 0 {
		return errs.Msg(errs.Request, "malformed HTTP status code")
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return errs.New(errs.Request, markConn(err))
	}
	resp.Header = http.Header(mimeHeader)

	return t.readTransfer(tp.R, resp)
}

func (t HTTP1) readTransfer(r *bufio.Reader, resp *http.Response) error {
	contentLens := resp.Header["Content-Length"]

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return errs.Newf(errs.Request, "message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}

		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)
		contentLens = resp.Header["Content-Length"]
	}

	if resp.Header.Get("Transfer-Encoding") == "chunked" {
		resp.ContentLength = -1
		resp.Body = classifiedBody{chunked.NewChunkedReader(r)}
		return nil
	}

	cl := int64(-1)
	if len(contentLens) > 0 {
		if n, err := strconv.ParseUint(contentLens[0], 10, 63); err == nil {
			cl = int64(n)
		}
	}
	resp.ContentLength = cl
	switch {
	case cl > 0:
		resp.Body = classifiedBody{io.LimitReader(r, cl)}
	case cl == 0:
		resp.Body = http.NoBody
	default:
		// read until the peer closes
		resp.Body = classifiedBody{r}
	}
	return nil
}

// classifiedBody translates body-stream failures at first observation:
// framing violations become BodyDecode, everything else BodyTransfer.
type classifiedBody struct {
	io.Reader
}

func (b classifiedBody) Read(p []byte) (int, error) {
	n, err := b.Reader.Read(p)
	if err == nil || err == io.EOF {
		return n, err
	}
	var syntax *chunked.SyntaxError
	if errors.As(err, &syntax) {
		return n, errs.New(errs.BodyDecode, err)
	}
	return n, errs.New(errs.BodyTransfer, err)
}

func (b classifiedBody) Close() error { return nil }
