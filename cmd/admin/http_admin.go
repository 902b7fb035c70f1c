package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func stateCmd(args []string) {
	os.Exit(httpCmd("state", http.MethodGet, "/admin/v1/state", 5*time.Second, args))
}

func snapshotCmd(args []string) {
	os.Exit(httpCmd("snapshot", http.MethodPost, "/admin/v1/snapshot", 10*time.Second, args))
}

func httpCmd(name, method, path string, timeout time.Duration, args []string) int {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	return callAdmin(method, *baseURL, path, timeout, os.Stdout)
}

// callAdmin sends one request to the server's admin API, copies the body to
// out and maps the outcome to an exit code: 0 on 2xx, 1 otherwise, 2 when
// the url is unusable.
func callAdmin(method, baseURL, path string, timeout time.Duration, out io.Writer) int {
	u, err := url.JoinPath(strings.TrimSpace(baseURL), path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "url:", err)
		return 2
	}
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "url:", err)
		return 2
	}
	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", method, u, err)
		return 1
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Fprintln(out, strings.TrimSpace(string(body)))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", method, u, resp.Status)
		return 1
	}
	return 0
}
