package http

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// idleConn re-arms its deadline before every read and write, so a
// connection that stays silent for longer than timeout fails.
type idleConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *idleConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}

// newIdleDialer bounds connection setup by the same idle timeout.
func newIdleDialer(idle time.Duration) *net.Dialer {
	return &net.Dialer{Timeout: idle}
}

// newIdleTransport builds a single-use transport whose connections abort
// after idle of the given duration.
func newIdleTransport(idle time.Duration) *http.Transport {
	dialer := newIdleDialer(idle)
	return &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &idleConn{Conn: conn, timeout: idle}, nil
		},
	}
}

// formStream writes parts as a multipart body into a pipe. Sources are closed
// as they are consumed, and all of them are closed once the stream ends.
type formStream struct {
	reader *io.PipeReader
	writer *multipart.Writer
	done   chan struct{}
}

func newFormStream(parts []Part) *formStream {
	pr, pw := io.Pipe()
	fs := &formStream{
		reader: pr,
		writer: multipart.NewWriter(pw),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(fs.done)
		err := writeParts(fs.writer, parts)
		if err == nil {
			err = fs.writer.Close()
		}
		pw.CloseWithError(err)
	}()

	return fs
}

// ContentType is the boundary-bearing Content-Type header value.
func (fs *formStream) ContentType() string {
	return fs.writer.FormDataContentType()
}

// close stops the writer goroutine and waits until every source is closed.
func (fs *formStream) close() {
	_ = fs.reader.Close()
	<-fs.done
}

func writeParts(w *multipart.Writer, parts []Part) error {
	for i, p := range parts {
		if !p.IsFile() {
			if err := w.WriteField(p.Name, p.Value); err != nil {
				closeParts(parts[i:])
				return err
			}
			continue
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(p.Name), escapeQuotes(p.FileName)))
		contentType := p.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		dst, err := w.CreatePart(h)
		if err == nil {
			_, err = io.Copy(dst, p.Source)
		}
		_ = p.Source.Close()
		if err != nil {
			closeParts(parts[i+1:])
			return err
		}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// decoderFor returns a function wrapping a response body so that it yields
// text in the named encoding.
func decoderFor(name string) (func(io.Reader) io.Reader, error) {
	var enc encoding.Encoding

	switch strings.ToLower(strings.ReplaceAll(name, "-", "")) {
	case "", "utf8":
		return func(r io.Reader) io.Reader { return r }, nil
	case "latin1", "binary", "iso88591":
		enc = charmap.ISO8859_1
	case "ascii":
		return func(r io.Reader) io.Reader {
			return transform.NewReader(r, asciiTransformer{})
		}, nil
	case "utf16le", "ucs2":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "hex":
		return func(r io.Reader) io.Reader {
			return encodedReader(r, hex.NewEncoder)
		}, nil
	case "base64":
		return func(r io.Reader) io.Reader {
			return encodedReader(r, func(w io.Writer) io.Writer {
				return base64.NewEncoder(base64.StdEncoding, w)
			})
		}, nil
	default:
		return nil, fmt.Errorf("unsupported response encoding: %q", name)
	}

	return func(r io.Reader) io.Reader {
		return transform.NewReader(r, enc.NewDecoder())
	}, nil
}

// encodedReader streams r through an encoder, e.g. hex or base64.
func encodedReader(r io.Reader, newEncoder func(io.Writer) io.Writer) io.Reader {
	pr, pw := io.Pipe()
	go func() {
		enc := newEncoder(pw)
		_, err := io.Copy(enc, r)
		if c, ok := enc.(io.Closer); ok && err == nil {
			err = c.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr
}

// asciiTransformer clears the high bit of every byte.
type asciiTransformer struct {
	transform.NopResetter
}

func (asciiTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = src[nSrc] & 0x7f
		nDst++
		nSrc++
	}
	return nDst, nSrc, nil
}

// statusMessage strips the numeric code from a status line like "200 OK".
func statusMessage(resp *http.Response) string {
	if _, msg, found := strings.Cut(resp.Status, " "); found {
		return msg
	}
	return http.StatusText(resp.StatusCode)
}
