// Package health reports the backend topology a deployment is configured with.
// It never dials a backend: the report describes configuration, not liveness.
package health

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/logrelay/internal/models"
)

// Unconfigured is the address reported for a backend with no host.
const Unconfigured = "unconfigured"

// Entry is one backend in a snapshot.
type Entry struct {
	Name    string
	Address string
}

// Databases is an ordered name to address mapping. It encodes as a JSON
// object whose keys keep the configured order.
type Databases []Entry

// Snapshot renders backends as name to "host:port" pairs in input order.
// It never fails: an empty host becomes Unconfigured, a non-positive port is
// omitted, an empty name becomes "backend-<n>", and a repeated name keeps its
// first position and its last address.
func Snapshot(backends []models.Backend) Databases {
	out := make(Databases, 0, len(backends))
	index := make(map[string]int, len(backends))

	for i, b := range backends {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			name = fmt.Sprintf("backend-%d", i+1)
		}
		addr := address(b)

		if pos, ok := index[name]; ok {
			out[pos].Address = addr
			continue
		}
		index[name] = len(out)
		out = append(out, Entry{Name: name, Address: addr})
	}

	return out
}

func address(b models.Backend) string {
	host := strings.TrimSpace(b.Host)
	if host == "" {
		return Unconfigured
	}
	if b.Port <= 0 {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(b.Port))
}

// Get returns the address for name.
func (d Databases) Get(name string) (string, bool) {
	for _, e := range d {
		if e.Name == name {
			return e.Address, true
		}
	}
	return "", false
}

// Names returns the backend names in order.
func (d Databases) Names() []string {
	names := make([]string, len(d))
	for i, e := range d {
		names[i] = e.Name
	}
	return names
}

// MarshalJSON encodes the entries as an object in order.
func (d Databases) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Address)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping key order.
func (d *Databases) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("databases: expected object, got %v", tok)
	}

	out := Databases{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("databases: expected string key, got %v", keyTok)
		}
		var addr string
		if err := dec.Decode(&addr); err != nil {
			return fmt.Errorf("databases: value for %q: %w", key, err)
		}
		out = append(out, Entry{Name: key, Address: addr})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = out
	return nil
}

// MarshalYAML encodes the entries as an ordered YAML mapping.
func (d Databases) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range d {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Address},
		)
	}
	return node, nil
}
