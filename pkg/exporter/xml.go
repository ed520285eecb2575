package exporter

import (
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/exec/portscope/internal/core"
	"github.com/exec/portscope/pkg/services"
)

// XMLExporter exports scan results as an Nmap-compatible XML document.
// It covers the subset of the Nmap schema tooling actually consumes:
// <nmaprun><host><address/><ports><port><state/><service/></port></ports></host></nmaprun>.
type XMLExporter struct {
	writer   io.Writer
	metadata ScanMetadata
	hosts    []xmlHost
}

type xmlRun struct {
	XMLName xml.Name  `xml:"nmaprun"`
	Scanner string    `xml:"scanner,attr"`
	Start   string    `xml:"start,attr"`
	Hosts   []xmlHost `xml:"host"`
}

type xmlHost struct {
	Address xmlAddress `xml:"address"`
	Ports   xmlPorts   `xml:"ports"`
}

type xmlAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type xmlPorts struct {
	Port []xmlPort `xml:"port"`
}

type xmlPort struct {
	Protocol string      `xml:"protocol,attr"`
	PortID   uint16      `xml:"portid,attr"`
	State    xmlState    `xml:"state"`
	Service  *xmlService `xml:"service,omitempty"`
}

type xmlState struct {
	State string `xml:"state,attr"`
}

type xmlService struct {
	Name    string `xml:"name,attr"`
	Version string `xml:"version,attr,omitempty"`
	Banner  string `xml:"banner,attr,omitempty"`
}

// NewXMLExporter creates an Nmap-compatible XML exporter. It buffers results
// in memory until Close, since the host/port tree can only be emitted once
// the full set of results for a run is known.
func NewXMLExporter(w io.Writer, meta ScanMetadata) *XMLExporter {
	copyTargets := make([]string, len(meta.Targets))
	copy(copyTargets, meta.Targets)
	return &XMLExporter{
		writer: w,
		metadata: ScanMetadata{
			Targets:    copyTargets,
			TotalPorts: meta.TotalPorts,
			Rate:       meta.Rate,
		},
	}
}

// Export buffers result events grouped by host, ready for Close to marshal.
func (e *XMLExporter) Export(events <-chan core.Event) {
	byHost := make(map[string][]core.ResultEvent)
	var order []string
	for event := range events {
		if event.Kind != core.EventKindResult {
			continue
		}
		r := *event.Result
		if _, seen := byHost[r.Host]; !seen {
			order = append(order, r.Host)
		}
		byHost[r.Host] = append(byHost[r.Host], r)
	}
	e.hosts = make([]xmlHost, 0, len(order))
	for _, host := range order {
		e.hosts = append(e.hosts, buildXMLHost(host, byHost[host]))
	}
}

func buildXMLHost(host string, results []core.ResultEvent) xmlHost {
	ports := make([]xmlPort, 0, len(results))
	for _, r := range results {
		svc, version := "", ""
		if r.Service != nil {
			svc, version = r.Service.Name, r.Service.Version
		}
		banner := strings.TrimSpace(r.Banner)
		if svc == "" {
			svc = banner
		}
		if svc == "" {
			svc = services.GetName(r.Port)
		}

		var service *xmlService
		if svc != "" || banner != "" {
			service = &xmlService{Name: svc, Version: version, Banner: banner}
		}

		ports = append(ports, xmlPort{
			Protocol: string(r.Technique),
			PortID:   r.Port,
			State:    xmlState{State: string(r.Status)},
			Service:  service,
		})
	}
	return xmlHost{
		Address: xmlAddress{Addr: host, AddrType: "ipv4"},
		Ports:   xmlPorts{Port: ports},
	}
}

// Close marshals the buffered hosts/ports tree and writes the XML document.
func (e *XMLExporter) Close() error {
	run := xmlRun{
		Scanner: "portscope",
		Start:   time.Now().UTC().Format(time.RFC3339),
		Hosts:   e.hosts,
	}

	if _, err := e.writer.Write([]byte(xml.Header)); err != nil {
		return err
	}

	enc := xml.NewEncoder(e.writer)
	enc.Indent("", "  ")
	if err := enc.Encode(run); err != nil {
		return err
	}
	_, err := e.writer.Write([]byte("\n"))
	return err
}
