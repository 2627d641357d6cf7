package utils

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ParseTime parses time string
func ParseTime(timeStr string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,                // RFC3339 with optional fraction
		"2006-01-02T15:04:05.999999999", // ISO without zone
		"2006-01-02T15:04:05",           // ISO without zone or fraction
		"2006-01-02 15:04:05.999999999", // DateTime with fraction
		"2006-01-02 15:04:05",           // DateTime
		"2006-01-02",                    // Date
	}

	for _, format := range formats {
		if t, err := time.ParseInLocation(format, timeStr, time.Local); err == nil {
			return t, nil
		}
	}

	if unixTime, err := strconv.ParseInt(timeStr, 10, 64); err == nil {
		// Unix timestamp
		if unixTime > 1e10 { // Unix timestamp in milliseconds
			return time.UnixMilli(unixTime), nil
		}
		return time.Unix(unixTime, 0), nil
	}

	return time.Time{}, fmt.Errorf("unsupported time format: %s", timeStr)
}

// JoinHostPort formats host and numeric port as host:port
func JoinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SplitHostPort splits host:port and parses the port
func SplitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "", 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "" {
		return "", 0, fmt.Errorf("invalid address %q: missing host", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid address %q: bad port %q", addr, portStr)
	}
	return host, port, nil
}

// SplitList splits a comma separated list, trimming blanks and dropping empty items
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// AppendUnique appends items not yet present in list, keeping order
func AppendUnique(list []string, items ...string) []string {
	seen := make(map[string]struct{}, len(list)+len(items))
	for _, v := range list {
		seen[v] = struct{}{}
	}
	for _, v := range items {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		list = append(list, v)
	}
	return list
}
