/*
This command prints the routing decisions of a deployed application for a
list of request URIs, without serving them. It can be used to verify the
manifests of a build before the deployment.

Usage:

	routecheck -routes-manifest routes-manifest.json [options] uri...

When no URI is passed as argument, the URIs are read from the standard
input, one per line. Every decision is printed as a JSON object per line.
Decisions served from the static store carry the URI of the store object,
and the status of the response when the store has the object.
*/
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/zalando/edgerouter/decision"
	"github.com/zalando/edgerouter/manifest"
	"github.com/zalando/edgerouter/postprocess"
)

type headerFlag []string

func (f *headerFlag) String() string {
	return strings.Join(*f, ", ")
}

func (f *headerFlag) Set(value string) error {
	if !strings.Contains(value, ":") {
		return fmt.Errorf("invalid header, expected format key: value, got: %s", value)
	}

	*f = append(*f, value)
	return nil
}

type options struct {
	routesManifest    string
	prerenderManifest string
	basePath          string
	trailingSlash     string
	defaultLocale     string
	locales           string
	method            string
	host              string
	headers           headerFlag
}

type result struct {
	URI      string            `json:"uri"`
	Kind     string            `json:"kind"`
	Decision decision.Decision `json:"decision"`
	Object   string            `json:"object,omitempty"`
	Status   int               `json:"status,omitempty"`
}

// returns the URI of the store object serving the decision, if any
func storeObject(d decision.Decision) string {
	switch dt := d.(type) {
	case *decision.ServeStatic:
		return dt.StoragePrefix + dt.OriginPath
	case *decision.NotFound:
		if dt.Static && !dt.Data {
			return dt.StoragePrefix + dt.ErrorPagePath
		}
	}

	return ""
}

func newResult(uri string, d decision.Decision, m *manifest.Manifest) result {
	r := result{URI: uri, Kind: d.Kind().String(), Decision: d}
	if r.Object = storeObject(d); r.Object != "" {
		r.Status = postprocess.StatusForURI(r.Object, http.StatusOK, m)
	}

	return r
}

func parseArgs(args []string) (*options, []string, error) {
	o := &options{}
	fs := flag.NewFlagSet("routecheck", flag.ContinueOnError)
	fs.StringVar(&o.routesManifest, "routes-manifest", "", "file path or HTTP(S) URL of the route manifest")
	fs.StringVar(&o.prerenderManifest, "prerender-manifest", "", "file path or HTTP(S) URL of the prerender manifest")
	fs.StringVar(&o.basePath, "base-path", "", "overrides the base path of the route manifest")
	fs.StringVar(&o.trailingSlash, "trailing-slash", "", "overrides the trailing slash policy of the route manifest, true or false")
	fs.StringVar(&o.defaultLocale, "default-locale", "", "default locale, used with -locales")
	fs.StringVar(&o.locales, "locales", "", "comma separated list of the locales")
	fs.StringVar(&o.method, "method", "GET", "method of the checked requests")
	fs.StringVar(&o.host, "host", "localhost", "host of the checked requests")
	fs.Var(&o.headers, "header", "header of the checked requests, key: value, can be repeated")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if o.routesManifest == "" {
		return nil, nil, fmt.Errorf("missing routes-manifest")
	}

	return o, fs.Args(), nil
}

func (o *options) overrides() (manifest.Overrides, error) {
	ov := manifest.Overrides{
		BasePath:      o.basePath,
		DefaultLocale: o.defaultLocale,
	}

	if o.locales != "" {
		for _, l := range strings.Split(o.locales, ",") {
			ov.Locales = append(ov.Locales, strings.TrimSpace(l))
		}
	}

	if o.trailingSlash != "" {
		b, err := strconv.ParseBool(o.trailingSlash)
		if err != nil {
			return ov, fmt.Errorf("invalid trailing-slash: %q", o.trailingSlash)
		}

		ov.TrailingSlash = &b
	}

	return ov, nil
}

func (o *options) header() map[string][]string {
	h := make(map[string][]string)
	for _, hi := range o.headers {
		kv := strings.SplitN(hi, ":", 2)
		k := strings.TrimSpace(kv[0])
		h[k] = append(h[k], strings.TrimSpace(kv[1]))
	}

	return h
}

func readURIs(in io.Reader) ([]string, error) {
	var uris []string
	s := bufio.NewScanner(in)
	for s.Scan() {
		if u := strings.TrimSpace(s.Text()); u != "" {
			uris = append(uris, u)
		}
	}

	return uris, s.Err()
}

func check(ctx context.Context, o *options, uris []string, out io.Writer) error {
	ov, err := o.overrides()
	if err != nil {
		return err
	}

	m, p, err := manifest.Load(ctx, manifest.LoadOptions{
		RoutesManifest:    o.routesManifest,
		PrerenderManifest: o.prerenderManifest,
		Overrides:         ov,
	})

	if err != nil {
		return err
	}

	b := decision.New(m, p)
	h := o.header()
	enc := json.NewEncoder(out)
	for _, u := range uris {
		d := b.Decide(decision.NewRequest(o.method, u, o.host, h))
		if err := enc.Encode(newResult(u, d, m)); err != nil {
			return err
		}
	}

	return nil
}

func main() {
	o, uris, err := parseArgs(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if len(uris) == 0 {
		uris, err = readURIs(os.Stdin)
		if err != nil {
			log.Fatal(err)
		}
	}

	if err := check(context.Background(), o, uris, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
