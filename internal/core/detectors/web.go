package detectors

import "strings"

// Grounded on original_source/src/scanner/protocol_detectors/web_detectors.rs.

func init() {
	register(CategoryWeb, httpDetector{})
	register(CategoryWeb, dockerRegistryDetector{})
	register(CategoryWeb, prometheusDetector{})
	register(CategoryWeb, grafanaDetector{})
	register(CategoryWeb, elasticsearchDetector{})
	register(CategoryWeb, graphQLDetector{})
}

type httpDetector struct{}

func (httpDetector) Name() string { return "HTTP" }

func (httpDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("GET / HTTP/1.1\r\nHost: localhost\r\nUser-Agent: portscope\r\n\r\n"),
		[]byte("HEAD / HTTP/1.1\r\nHost: localhost\r\n\r\n"),
		[]byte("OPTIONS / HTTP/1.1\r\nHost: localhost\r\n\r\n"),
	}
}

func (httpDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	switch {
	case strings.HasPrefix(s, "http/1.") || strings.HasPrefix(s, "http/2"):
		return Result{ServiceName: "HTTP-WebServer", Confidence: 0.95,
			Info: infoMap("protocol", "HTTP web server")}, true
	case strings.Contains(s, "server:") || strings.Contains(s, "content-type:") ||
		strings.Contains(s, "<!doctype html") || strings.Contains(s, "<html"):
		return Result{ServiceName: "HTTP-WebServer", Confidence: 0.85,
			Info: infoMap("protocol", "HTTP-like response")}, true
	default:
		return Result{}, false
	}
}

type dockerRegistryDetector struct{}

func (dockerRegistryDetector) Name() string { return "DockerRegistry" }

func (dockerRegistryDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("GET /v2/ HTTP/1.1\r\nHost: localhost\r\n\r\n"),
		[]byte("GET /v2/_catalog HTTP/1.1\r\nHost: localhost\r\n\r\n"),
	}
}

func (dockerRegistryDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	switch {
	case strings.Contains(s, "docker-distribution-api-version"), strings.Contains(s, "registry/2.0"),
		strings.Contains(s, "\"repositories\""):
		return Result{ServiceName: "Docker-Registry", Confidence: 0.90,
			Info: infoMap("protocol", "Docker Registry API")}, true
	case strings.Contains(s, "docker") && strings.Contains(s, "registry"):
		return Result{ServiceName: "Docker-Registry", Confidence: 0.80,
			Info: infoMap("protocol", "Docker Registry service")}, true
	default:
		return Result{}, false
	}
}

type prometheusDetector struct{}

func (prometheusDetector) Name() string { return "Prometheus" }

func (prometheusDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("GET /metrics HTTP/1.1\r\nHost: localhost\r\n\r\n"),
		[]byte("GET /api/v1/query HTTP/1.1\r\nHost: localhost\r\n\r\n"),
	}
}

func (prometheusDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	switch {
	case (strings.Contains(s, "# help") && strings.Contains(s, "# type")),
		strings.Contains(s, "prometheus_"), strings.Contains(s, "process_cpu_seconds_total"):
		return Result{ServiceName: "Prometheus-Metrics", Confidence: 0.90,
			Info: infoMap("protocol", "Prometheus metrics endpoint")}, true
	case strings.Contains(s, "prometheus"):
		return Result{ServiceName: "Prometheus-Metrics", Confidence: 0.75,
			Info: infoMap("protocol", "Prometheus service")}, true
	default:
		return Result{}, false
	}
}

type grafanaDetector struct{}

func (grafanaDetector) Name() string { return "Grafana" }

func (grafanaDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("GET /api/health HTTP/1.1\r\nHost: localhost\r\n\r\n"),
		[]byte("GET /login HTTP/1.1\r\nHost: localhost\r\n\r\n"),
	}
}

func (grafanaDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if strings.Contains(s, "grafana") || strings.Contains(s, "/api/dashboards") || strings.Contains(s, "grafana-app") {
		return Result{ServiceName: "Grafana-Dashboard", Confidence: 0.88,
			Info: infoMap("protocol", "Grafana web interface")}, true
	}
	return Result{}, false
}

type elasticsearchDetector struct{}

func (elasticsearchDetector) Name() string { return "Elasticsearch" }

func (elasticsearchDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("GET / HTTP/1.1\r\nHost: localhost\r\n\r\n"),
		[]byte("GET /_cluster/health HTTP/1.1\r\nHost: localhost\r\n\r\n"),
	}
}

func (elasticsearchDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if (strings.Contains(s, "\"cluster_name\"") && strings.Contains(s, "\"version\"")) ||
		strings.Contains(s, "elasticsearch") || strings.Contains(s, "\"lucene_version\"") {
		return Result{ServiceName: "Elasticsearch-Search", Confidence: 0.90,
			Info: infoMap("protocol", "Elasticsearch REST API")}, true
	}
	return Result{}, false
}

type graphQLDetector struct{}

func (graphQLDetector) Name() string { return "GraphQL" }

func (graphQLDetector) ProbePayloads() [][]byte {
	return [][]byte{
		[]byte("POST /graphql HTTP/1.1\r\nHost: localhost\r\nContent-Type: application/json\r\nContent-Length: 25\r\n\r\n{\"query\":\"{ __schema }\"}\r\n"),
	}
}

func (graphQLDetector) Classify(response []byte) (Result, bool) {
	s := lower(response)
	if (strings.Contains(s, "\"data\"") && strings.Contains(s, "\"query\"")) ||
		strings.Contains(s, "graphql") ||
		(strings.Contains(s, "\"errors\"") && strings.Contains(s, "\"extensions\"")) {
		return Result{ServiceName: "GraphQL-API", Confidence: 0.85,
			Info: infoMap("protocol", "GraphQL API endpoint")}, true
	}
	return Result{}, false
}
