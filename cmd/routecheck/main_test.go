package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalando/edgerouter/manifest/manifesttest"
)

func writeManifest(t *testing.T) string {
	f := filepath.Join(t.TempDir(), "routes-manifest.json")
	require.NoError(t, os.WriteFile(f, []byte(manifesttest.Routes), 0o644))
	return f
}

func TestParseArgs(t *testing.T) {
	_, _, err := parseArgs([]string{"/terms"})
	assert.Error(t, err)

	_, _, err = parseArgs([]string{"-routes-manifest", "routes.json", "-header", "no-colon"})
	assert.Error(t, err)

	o, uris, err := parseArgs([]string{
		"-routes-manifest", "routes.json",
		"-header", "Accept-Language: nl",
		"-header", "Cookie: NEXT_LOCALE=nl",
		"/", "/terms",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/terms"}, uris)
	assert.Equal(t, "GET", o.method)
	assert.Equal(t, map[string][]string{
		"Accept-Language": {"nl"},
		"Cookie":          {"NEXT_LOCALE=nl"},
	}, o.header())
}

func TestOverrides(t *testing.T) {
	o := &options{basePath: "/basepath", defaultLocale: "en", locales: "en, nl", trailingSlash: "true"}
	ov, err := o.overrides()
	require.NoError(t, err)
	assert.Equal(t, "/basepath", ov.BasePath)
	assert.Equal(t, []string{"en", "nl"}, ov.Locales)
	require.NotNil(t, ov.TrailingSlash)
	assert.True(t, *ov.TrailingSlash)

	o.trailingSlash = "maybe"
	_, err = o.overrides()
	assert.Error(t, err)
}

func TestReadURIs(t *testing.T) {
	uris, err := readURIs(strings.NewReader("/terms\n\n  /blog/hello \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/terms", "/blog/hello"}, uris)
}

func TestCheck(t *testing.T) {
	o := &options{
		routesManifest: writeManifest(t),
		basePath:       manifesttest.BasePath,
		defaultLocale:  "en",
		locales:        "en,nl",
		method:         "GET",
		host:           "localhost",
	}

	var out bytes.Buffer
	err := check(context.Background(), o, []string{
		"/basepath/terms/",
		"/basepath/terms",
		"/basepath/customers",
		"/basepath/page/does/not/exist",
	}, &out)
	require.NoError(t, err)

	var results []map[string]any
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r map[string]any
		require.NoError(t, dec.Decode(&r))
		results = append(results, r)
	}

	require.Len(t, results, 4)
	assert.Equal(t, "redirect", results[0]["kind"])
	assert.Equal(t, map[string]any{"location": "/basepath/terms", "statusCode": float64(308)}, results[0]["decision"])
	assert.Equal(t, "serve-static", results[1]["kind"])
	assert.Equal(t, map[string]any{
		"originPath":    "/terms.html",
		"storagePrefix": "/basepath/static-pages",
		"page":          "/terms",
	}, results[1]["decision"])
	assert.Equal(t, "/basepath/static-pages/terms.html", results[1]["object"])
	assert.Equal(t, float64(200), results[1]["status"])
	assert.Equal(t, "invoke-compute", results[2]["kind"])
	assert.Equal(t, "/basepath/customers", results[2]["uri"])
	assert.NotContains(t, results[2], "object")
	assert.NotContains(t, results[2], "status")
	assert.Equal(t, "not-found", results[3]["kind"])
	assert.Equal(t, "/basepath/static-pages/404.html", results[3]["object"])
	assert.Equal(t, float64(404), results[3]["status"])
}

func TestCheckMissingManifest(t *testing.T) {
	o := &options{routesManifest: filepath.Join(t.TempDir(), "missing.json"), method: "GET"}
	err := check(context.Background(), o, []string{"/"}, &bytes.Buffer{})
	assert.Error(t, err)
}
