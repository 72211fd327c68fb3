package app

import (
	"errors"
	"net/http"

	errs "followscope/pkg/errors"
	"followscope/pkg/retry"
	"followscope/pkg/run"
	"followscope/pkg/scanner"
)

// Describe turns err into a message that tells the user what to do next
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, run.ErrRunInProgress):
		return "another scan or unfollow batch is already running"
	case errors.Is(err, scanner.ErrScanCancelled):
		return "scan cancelled; rerun with --resume to continue from the collected ids"
	}

	var apiErr *errs.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch apiErr.Type {
	case errs.ErrorTypeAuthMissing:
		return "no X session found; run `followscope auth login` or set FOLLOWSCOPE_AUTH_TOKEN and FOLLOWSCOPE_CT0"
	case errs.ErrorTypeRateLimited:
		if errors.Is(err, retry.ErrExhausted) {
			return "X kept rate limiting after repeated backoff; wait 15 minutes and run again"
		}
		return "X is rate limiting this session; wait 15 minutes and run again"
	case errs.ErrorTypeRequestFailed:
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return "the X session has expired; copy fresh cookies with `followscope auth login`"
		case http.StatusForbidden:
			return "X refused the request (403); the session may be locked or the ct0 cookie stale"
		case http.StatusNotFound:
			return "X could not find that account"
		}
		return "X returned HTTP " + http.StatusText(apiErr.Code) + " on " + apiErr.Endpoint
	case errs.ErrorTypeMalformedResponse:
		return "X returned a response followscope could not read; the web API may have changed"
	case errs.ErrorTypeNetwork:
		return "could not reach x.com; check the network connection"
	}
	return err.Error()
}
