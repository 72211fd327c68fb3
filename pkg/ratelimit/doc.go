// Package ratelimit paces requests to the X web API.
//
// Two mechanisms cooperate. Gate inserts a uniformly random pause between
// consecutive pages or mutations so traffic does not look scripted. Ceiling is
// a token bucket (golang.org/x/time/rate) applied inside the HTTP client as a
// hard cap on requests per minute.
package ratelimit
