package topology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/eda-labs/clab-connector/pkg/util"
)

// topologyFile mirrors containerlab's topology-data.json.
type topologyFile struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Clab struct {
		Config struct {
			Mgmt struct {
				IPv4Subnet string `json:"ipv4-subnet"`
			} `json:"mgmt"`
		} `json:"config"`
	} `json:"clab"`
	SSHPubKeys []string     `json:"ssh-pub-keys"`
	Nodes      orderedNodes `json:"nodes"`
	Links      []struct {
		A linkEnd `json:"a"`
		Z linkEnd `json:"z"`
	} `json:"links"`
}

type linkEnd struct {
	Node      string `json:"node"`
	Interface string `json:"interface"`
}

type nodeEntry struct {
	name     string
	Kind     string            `json:"kind"`
	Image    string            `json:"image"`
	MgmtIPv4 string            `json:"mgmt-ipv4-address"`
	Labels   map[string]string `json:"labels"`
}

// orderedNodes keeps the "nodes" object in file order.
type orderedNodes []nodeEntry

func (o *orderedNodes) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("nodes: expected object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		var e nodeEntry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("node %v: %w", tok, err)
		}
		e.name = tok.(string)
		*o = append(*o, e)
	}
	_, err = dec.Token()
	return err
}

// ParseFile reads a containerlab topology-data.json file.
func ParseFile(path string, opts Options) (*Topology, error) {
	util.Infof("Parsing topology file '%s'", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology file: %w", err)
	}
	return Parse(data, opts)
}

// Parse builds a Topology from topology-data.json content. Nodes of
// unsupported kinds are skipped with a warning, and so are links touching
// them.
func Parse(data []byte, opts Options) (*Topology, error) {
	opts = opts.withDefaults()

	var f topologyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", util.ErrInvalidTopology, err)
	}
	if f.Type != "clab" {
		return nil, fmt.Errorf("%w: not a containerlab topology file (missing 'type=clab')", util.ErrInvalidTopology)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("%w: missing topology name", util.ErrInvalidTopology)
	}

	t := &Topology{
		Name:         util.NormalizeName(f.Name),
		OriginalName: f.Name,
		MgmtSubnet:   f.Clab.Config.Mgmt.IPv4Subnet,
		SSHPubKeys:   f.SSHPubKeys,
		Credentials:  opts.Credentials,
	}
	if t.Name != f.Name {
		util.Infof("Renamed topology '%s' -> '%s' for EDA safety", f.Name, t.Name)
	}
	if len(f.Nodes) > 0 {
		t.FilePath = f.Nodes[0].Labels["clab-topo-file"]
	}

	for _, e := range f.Nodes {
		n, err := NewNode(e.name, e.Kind, e.Labels["clab-node-type"], imageVersion(e.Image), e.MgmtIPv4, opts)
		if err != nil {
			util.WithNode(e.name).Warnf("skipping node: %v", err)
			continue
		}
		if n.EDASupported() {
			if !util.IsValidIPv4(n.MgmtIP()) {
				return nil, fmt.Errorf("%w: node %s has no valid management IPv4 address", util.ErrInvalidTopology, e.name)
			}
			if t.MgmtSubnet != "" && !util.InSubnet(n.MgmtIP(), t.MgmtSubnet) {
				util.WithNode(e.name).Warnf("management address %s is outside %s", n.MgmtIP(), t.MgmtSubnet)
			}
		}
		t.Nodes = append(t.Nodes, n)
	}

	for _, l := range f.Links {
		a, okA := t.Node(l.A.Node)
		z, okZ := t.Node(l.Z.Node)
		if !okA || !okZ {
			util.Debugf("dropping link %s:%s - %s:%s", l.A.Node, l.A.Interface, l.Z.Node, l.Z.Interface)
			continue
		}
		t.Links = append(t.Links, &Link{
			A: Endpoint{Node: a, Interface: l.A.Interface},
			Z: Endpoint{Node: z, Interface: l.Z.Interface},
		})
	}

	util.Infof("Topology %s: %d nodes, %d links", t.Name, len(t.Nodes), len(t.Links))
	return t, nil
}

// imageVersion returns the image tag, e.g. "ghcr.io/nokia/srlinux:24.10.1"
// => "24.10.1". Registry ports are not mistaken for tags.
func imageVersion(image string) string {
	i := strings.LastIndex(image, ":")
	if i < 0 || strings.Contains(image[i:], "/") {
		return ""
	}
	return image[i+1:]
}
