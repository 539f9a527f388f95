// Package geo provides optional, best-effort country resolution for
// listener IP addresses, used only to enrich /api/stats. It never gates or
// delays accepting a listener connection.
package geo

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Resolver looks up the country for an IP address against a local MaxMind
// GeoLite2 Country database.
type Resolver struct {
	db *geoip2.Reader
}

// Open loads the database at path. A Resolver opened this way must be
// closed with Close when no longer needed.
func Open(path string) (*Resolver, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &Resolver{db: db}, nil
}

// Close releases the underlying database file.
func (r *Resolver) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Country resolves ip to an ISO country code (e.g. "US"), or "" if the
// resolver is nil, the address is unparseable, or the address has no
// country record (private/reserved ranges, lookup miss).
func (r *Resolver) Country(ip string) string {
	if r == nil || r.db == nil {
		return ""
	}
	parsed := net.ParseIP(stripPort(ip))
	if parsed == nil {
		return ""
	}
	record, err := r.db.Country(parsed)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

// stripPort removes a trailing ":port" from a host:port remote address,
// leaving bare IPs and IPv6 literals without brackets untouched.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
