/*******************************************************************************
* Copyright (C) 2026 the Eclipse BaSyx Authors and Fraunhofer IESE
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

// Package main provides a static health probe for the device description service
// container image. It accepts the subset of wget arguments used by container
// HEALTHCHECK instructions.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	defaultPort    = "5004"
	defaultTimeout = 5 * time.Second
	statusUp       = "UP"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type probeOptions struct {
	url      string
	quiet    bool
	spider   bool
	expectUp bool
	output   string
	debug    bool
	timeout  time.Duration
}

type healthBody struct {
	Status string `json:"status"`
}

func main() {
	options, err := parseOptions(os.Args)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	if options.url == "" {
		options.url = defaultHealthURL()
	}

	if options.debug {
		_, _ = fmt.Fprintf(os.Stderr, "healthprobe url=%s timeout=%s expectUp=%t\n", options.url, options.timeout, options.expectUp)
	}

	if err := probe(options, os.Stdout); err != nil {
		if !options.quiet {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
}

func parseOptions(args []string) (probeOptions, error) {
	options := probeOptions{
		output:  "-",
		timeout: defaultTimeout,
	}

	// Invoked under its own name the probe is silent and validates the body.
	if filepath.Base(args[0]) == "healthprobe" {
		options.quiet = true
		options.expectUp = true
	}

	rest := args[1:]
	for len(rest) > 0 {
		arg := rest[0]
		rest = rest[1:]

		switch {
		case arg == "--quiet" || arg == "-q":
			options.quiet = true
		case arg == "--spider":
			options.spider = true
		case arg == "--debug":
			options.debug = true
		case arg == "--expect-up":
			options.expectUp = true
		case arg == "--tries":
			if len(rest) == 0 {
				return options, errors.New("HEALTHPROBE-PARSE-MISSINGTRIES")
			}
			rest = rest[1:]
		case strings.HasPrefix(arg, "--tries="):
			continue
		case arg == "--output-document" || arg == "-O":
			if len(rest) == 0 {
				return options, errors.New("HEALTHPROBE-PARSE-MISSINGOUTPUT")
			}
			options.output = rest[0]
			rest = rest[1:]
		case strings.HasPrefix(arg, "--output-document="):
			options.output = strings.TrimPrefix(arg, "--output-document=")
		case arg == "--timeout":
			if len(rest) == 0 {
				return options, errors.New("HEALTHPROBE-PARSE-MISSINGTIMEOUT")
			}
			timeout, err := parseTimeout(rest[0])
			if err != nil {
				return options, err
			}
			options.timeout = timeout
			rest = rest[1:]
		case strings.HasPrefix(arg, "--timeout="):
			timeout, err := parseTimeout(strings.TrimPrefix(arg, "--timeout="))
			if err != nil {
				return options, err
			}
			options.timeout = timeout
		case strings.HasPrefix(arg, "-"):
			continue
		default:
			options.url = arg
		}
	}

	if options.output == "" {
		options.output = "-"
	}

	return options, nil
}

func parseTimeout(value string) (time.Duration, error) {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0, errors.New("HEALTHPROBE-PARSE-INVALIDTIMEOUT")
	}
	return time.Duration(seconds) * time.Second, nil
}

func defaultHealthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = defaultPort
	}
	contextPath := strings.TrimSuffix(os.Getenv("SERVER_CONTEXTPATH"), "/")
	return fmt.Sprintf("http://127.0.0.1:%s%s/health", port, contextPath)
}

// probe requests options.url and writes the body to stdout, to a file or
// nowhere (spider mode). With expectUp the body must report status UP.
func probe(options probeOptions, stdout io.Writer) error {
	client := &http.Client{Timeout: options.timeout}

	response, err := client.Get(options.url)
	if err != nil {
		return fmt.Errorf("HEALTHPROBE-RUN-REQUESTFAILED: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("HEALTHPROBE-RUN-UNHEALTHYSTATUS: %d", response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("HEALTHPROBE-RUN-READBODYFAILED: %w", err)
	}

	if options.expectUp {
		var health healthBody
		if err := json.Unmarshal(body, &health); err != nil {
			return fmt.Errorf("HEALTHPROBE-RUN-INVALIDBODY: %w", err)
		}
		if health.Status != statusUp {
			return fmt.Errorf("HEALTHPROBE-RUN-NOTUP: %q", health.Status)
		}
	}

	if options.spider {
		return nil
	}

	if options.output == "-" {
		if _, err := io.Copy(stdout, bytes.NewReader(body)); err != nil {
			return fmt.Errorf("HEALTHPROBE-RUN-WRITESTDOUTFAILED: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(options.output, body, 0o600); err != nil {
		return fmt.Errorf("HEALTHPROBE-RUN-WRITEOUTPUTFAILED: %w", err)
	}
	return nil
}
