// Package profiles provides predefined port scanning profiles for common use cases.
//
// Profiles are curated sets of commonly-used ports optimized for specific
// scanning scenarios. They eliminate the need to manually specify port lists
// and encode security best practices.
//
// Available Profiles:
//
//   - quick: Common ports across all services (fast reconnaissance)
//   - web: HTTP, HTTPS, and web application ports
//   - database: Database servers (MySQL, PostgreSQL, MongoDB, Redis, etc.)
//   - full: All 65,535 ports (comprehensive but slow)
//
// These four are the only profiles: there are no UDP-specific or
// mixed-protocol profiles, and GetProfile returns nil for any other name.
//
// Example usage:
//
//	// Get ports for a profile
//	ports := profiles.GetProfile("web")
//	fmt.Printf("Scanning %d web ports\n", len(ports))
//
//	// List all available profiles
//	for _, name := range profiles.ListProfiles() {
//	    fmt.Println(name)
//	}
//
// Profile Details:
//
// quick Profile (121 entries, 119 distinct ports):
//   Commonly open ports across all services. Ideal for fast
//   reconnaissance when you need quick results. Includes: SSH (22), HTTP (80),
//   HTTPS (443), SMB (445), RDP (3389), MySQL (3306), etc.
//
// web Profile (30+ ports):
//   HTTP/HTTPS and web application ports including: 80, 443, 8080, 8443,
//   3000-3005 (Node.js), 4200 (Angular), 5000 (Flask), 8000 (Django),
//   9090 (Prometheus), WebSocket, RTMP streaming, and API gateways.
//
// database Profile (25+ ports):
//   Relational databases (MySQL, PostgreSQL, MSSQL, Oracle), NoSQL
//   (MongoDB, Redis, Cassandra, CouchDB), search engines (Elasticsearch),
//   and message queues (RabbitMQ, Kafka).
//
// full Profile (65,535 ports):
//   Every possible TCP/UDP port. Use with caution as this takes significant
//   time even at high scan rates (e.g., ~9 seconds at 7,500 pps).
//
// Port Deduplication:
//
// GetProfile returns each list exactly as written, without deduplication.
// The quick list repeats 443 and 995, web repeats 8081 and 8082, and
// database repeats 11211.
package profiles
