package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
)

type ContextKey string

const (
	RequestIDPrefix         string     = "r"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
)

// maxBookRequestBodySize bounds a create or update payload. A valid book
// is a few hundred bytes at most.
const maxBookRequestBodySize int64 = 1 << 16

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// DecodeCreateOrUpdateBookRequestBody is a helper function to read the content of a book creation or update request.
// Unknown attributes (like `images`) are ignored.
func DecodeCreateOrUpdateBookRequestBody(w http.ResponseWriter, r *http.Request, book *Book) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("missing book request body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBookRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(book); err != nil {
		return fmt.Errorf("invalid book request body: %w", err)
	}
	return nil
}

// ParseBookID converts the path parameter into a book id.
func ParseBookID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid book id %q", raw)
	}
	return id, nil
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
