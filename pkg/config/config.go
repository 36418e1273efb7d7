// Package config loads the PACS server list consumed by a query run. Two
// formats are supported: the classic whitespace-delimited cfg file
// (one "name host port aet" per line, '#' comments) and a YAML document for
// setups that keep their fleet inventory in YAML.
package config

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Server describes one remote PACS endpoint. Immutable after load.
type Server struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	AET  string `yaml:"aet"`
}

// Addr returns the host:port dial address.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s Server) String() string {
	return fmt.Sprintf("%s (%s@%s)", s.Name, s.AET, s.Addr())
}

type yamlFile struct {
	Servers []Server `yaml:"servers"`
}

// Load reads the server list at path. YAML is selected by file extension,
// anything else parses as the line-oriented cfg format.
func Load(path string) ([]Server, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadCfg(path)
	}
}

func loadCfg(path string) ([]Server, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open server config: %w", err)
	}
	defer f.Close()

	var servers []Server
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		srv, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		servers = append(servers, srv)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read server config: %w", err)
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("%s: no servers configured", path)
	}
	return servers, nil
}

// parseLine parses "name host port aet". Trailing tokens are tolerated for
// compatibility with older cfg files that carried a per-server worker count.
func parseLine(line string) (Server, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Server{}, fmt.Errorf("expected 'name host port aet', got %d field(s)", len(fields))
	}
	port, err := strconv.Atoi(fields[2])
	if err != nil {
		return Server{}, fmt.Errorf("port %q is not numeric", fields[2])
	}
	srv := Server{Name: fields[0], Host: fields[1], Port: port, AET: fields[3]}
	if err := srv.validate(); err != nil {
		return Server{}, err
	}
	return srv, nil
}

func loadYAML(path string) ([]Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open server config: %w", err)
	}
	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(doc.Servers) == 0 {
		return nil, fmt.Errorf("%s: no servers configured", path)
	}
	for i, srv := range doc.Servers {
		if err := srv.validate(); err != nil {
			return nil, fmt.Errorf("%s: servers[%d]: %w", path, i, err)
		}
	}
	return doc.Servers, nil
}

func (s Server) validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("server name is required")
	case s.Host == "":
		return fmt.Errorf("server host is required")
	case s.Port <= 0 || s.Port > 65535:
		return fmt.Errorf("port %d out of range", s.Port)
	case s.AET == "":
		return fmt.Errorf("called AE title is required")
	case len(s.AET) > 16:
		return fmt.Errorf("called AE title %q exceeds 16 characters", s.AET)
	}
	return nil
}
