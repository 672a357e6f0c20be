package proxy

import (
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

const compressBufferSize = 8192

// in the order of preference at equal quality
var supportedEncodings = []string{"br", "gzip"}

var compressMIME = []string{
	"text/plain",
	"text/html",
	"text/css",
	"text/javascript",
	"application/json",
	"application/javascript",
	"image/svg+xml",
}

func splitTrim(s string) []string {
	var ss []string
	for _, si := range strings.Split(s, ",") {
		if si = strings.TrimSpace(si); si != "" {
			ss = append(ss, si)
		}
	}

	return ss
}

func canEncodeEntity(r *http.Request, rsp *http.Response, status int) bool {
	if r.Method == http.MethodHead || status < http.StatusOK ||
		status == http.StatusNoContent || status == http.StatusNotModified {
		return false
	}

	if ce := rsp.Header.Get("Content-Encoding"); ce != "" && ce != "identity" {
		return false
	}

	for _, cc := range splitTrim(rsp.Header.Get("Cache-Control")) {
		if strings.EqualFold(cc, "no-transform") {
			return false
		}
	}

	ct := rsp.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}

	return slices.Contains(compressMIME, strings.TrimSpace(strings.ToLower(ct)))
}

// returns the accepted encoding with the highest quality, or empty
func acceptedEncoding(r *http.Request) string {
	var (
		best  string
		bestQ float64
	)

	for _, s := range splitTrim(r.Header.Get("Accept-Encoding")) {
		name, params, _ := strings.Cut(s, ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if !slices.Contains(supportedEncodings, name) {
			continue
		}

		q := 1.0
		if p := strings.TrimSpace(params); strings.HasPrefix(p, "q=") {
			v, err := strconv.ParseFloat(strings.TrimPrefix(p, "q="), 64)
			if err != nil {
				continue
			}

			q = v
		}

		if q <= 0 {
			continue
		}

		if q > bestQ || q == bestQ && slices.Index(supportedEncodings, name) < slices.Index(supportedEncodings, best) {
			best, bestQ = name, q
		}
	}

	return best
}

func encoder(enc string, w io.Writer) io.WriteCloser {
	if enc == "br" {
		return brotli.NewWriterLevel(w, brotli.DefaultCompression)
	}

	return gzip.NewWriter(w)
}

func setEncodingHeaders(h http.Header, enc string) {
	h.Del("Content-Length")
	h.Set("Content-Encoding", enc)
	if !slices.ContainsFunc(h.Values("Vary"), func(v string) bool {
		return slices.ContainsFunc(splitTrim(v), func(vi string) bool {
			return strings.EqualFold(vi, "Accept-Encoding")
		})
	}) {
		h.Add("Vary", "Accept-Encoding")
	}
}

// copies the body, encoded when enc is not empty
func copyBody(w io.Writer, body io.Reader, enc string) error {
	b := make([]byte, compressBufferSize)
	if enc == "" {
		_, err := io.CopyBuffer(w, body, b)
		return err
	}

	e := encoder(enc, w)
	if _, err := io.CopyBuffer(e, body, b); err != nil {
		e.Close()
		return err
	}

	return e.Close()
}
