package geoip

import (
	"context"
	"fmt"
	"net"
	"sync"

	"dray/internal/logger"

	"github.com/oschwald/geoip2-golang"
)

var (
	countryReader *geoip2.Reader
	mu            sync.RWMutex
)

// Init opens the country database. A missing database is not fatal:
// lookups then return "".
func Init(countryPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if countryReader != nil || countryPath == "" {
		return nil
	}
	r, err := geoip2.Open(countryPath)
	if err != nil {
		logger.Log.Warnf("Failed to open Country DB at %s: %v. Country data will be missing.", countryPath, err)
		return fmt.Errorf("failed to open country DB at %s: %w", countryPath, err)
	}
	countryReader = r
	return nil
}

// Ready reports whether a database is loaded.
func Ready() bool {
	mu.RLock()
	defer mu.RUnlock()
	return countryReader != nil
}

// Country returns the ISO code for an IP literal, or "" when the host is
// not an IP or nothing is known about it.
func Country(host string) string {
	ip := net.ParseIP(host)
	if ip == nil {
		return ""
	}
	mu.RLock()
	defer mu.RUnlock()
	if countryReader == nil {
		return ""
	}
	c, err := countryReader.Country(ip)
	if err != nil {
		return ""
	}
	return c.Country.IsoCode
}

// ResolveCountry is Country for domain names too; the first resolved
// address decides.
func ResolveCountry(ctx context.Context, host string) string {
	if net.ParseIP(host) != nil || !Ready() {
		return Country(host)
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil || len(ips) == 0 {
		logger.Log.Debugf("geoip: cannot resolve %s: %v", host, err)
		return ""
	}
	return Country(ips[0].String())
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if countryReader != nil {
		countryReader.Close()
		countryReader = nil
	}
}
