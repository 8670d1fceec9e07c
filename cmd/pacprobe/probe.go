package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hazz-dev/pacprobe/internal/config"
	"github.com/hazz-dev/pacprobe/internal/probe"
)

// errProbeFailed maps any non-success outcome to exit status 1.
var errProbeFailed = errors.New("authentication probe failed")

type probeRecorder interface {
	InsertProbe(ctx context.Context, r probe.Result) error
}

// executeProbe runs one probe and prints the report. rec may be nil.
func executeProbe(ctx context.Context, out io.Writer, creds config.Credentials, c probe.Checker, rec probeRecorder) error {
	fmt.Fprintln(out, "✅ Loaded credentials from .env")
	fmt.Fprintf(out, "   Base URL: %s\n", creds.BaseURL)
	fmt.Fprintf(out, "   API Key: %s\n", maskKey(creds.APIKey))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "🔍 Testing authentication...")
	fmt.Fprintf(out, "   Endpoint: %s\n", probe.Endpoint(creds))
	fmt.Fprintln(out, "   Method: GET")
	fmt.Fprintln(out)

	result := c.Run(ctx)
	writeReport(out, result)

	if rec != nil {
		if err := rec.InsertProbe(ctx, result); err != nil {
			fmt.Fprintf(out, "⚠️  Could not record probe: %v\n", err)
		}
	}

	if !result.Outcome.OK() {
		return errProbeFailed
	}
	return nil
}

func writeReport(out io.Writer, r probe.Result) {
	switch r.Outcome {
	case probe.OutcomeSuccess:
		fmt.Fprintln(out, "✅ Authentication successful!")
		fmt.Fprintf(out, "   Status Code: %d\n", r.StatusCode)
		fmt.Fprintln(out)
		if r.Plants == nil {
			fmt.Fprintf(out, "   Response: %s...\n", truncate(r.Body, 100))
			return
		}
		fmt.Fprintf(out, "   Response: %d plant(s) found\n", r.Plants.Count)
		switch first := r.Plants.First; {
		case first != nil:
			fmt.Fprintf(out, "   First result: %s - %s...\n", first.Symbol, truncate(first.Blurb, 50))
		case r.ParseErr != nil:
			fmt.Fprintf(out, "   Response: %s...\n", truncate(r.Body, 100))
		}
	case probe.OutcomeUnauthorized:
		fmt.Fprintln(out, "❌ Authentication failed!")
		fmt.Fprintf(out, "   Status Code: %d (Unauthorized)\n", r.StatusCode)
		fmt.Fprintf(out, "   Response: %s\n", r.Body)
	case probe.OutcomeUnexpectedStatus:
		fmt.Fprintf(out, "⚠️  Unexpected status code: %d\n", r.StatusCode)
		fmt.Fprintf(out, "   Response: %s\n", truncate(r.Body, 200))
	default:
		fmt.Fprintf(out, "❌ Request failed: %s\n", r.Error)
	}
}

// maskKey shows the first 20 and last 10 characters of key. Keys of 30
// characters or fewer would be printed in full that way, so they are
// replaced by asterisks and their length.
func maskKey(key string) string {
	runes := []rune(key)
	if len(runes) <= 30 {
		return fmt.Sprintf("%s (%d chars)", strings.Repeat("*", len(runes)), len(runes))
	}
	return string(runes[:20]) + "..." + string(runes[len(runes)-10:])
}

// truncate returns at most n characters of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
