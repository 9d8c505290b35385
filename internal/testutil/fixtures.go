package testutil

import (
	"bytes"
	"encoding/json"
	"testing"
)

// FixtureNode is one node of a generated topology-data.json.
type FixtureNode struct {
	Name   string
	Kind   string
	Image  string
	Type   string
	MgmtIP string
}

// FixtureLink connects A:AIf with Z:ZIf.
type FixtureLink struct {
	A, AIf string
	Z, ZIf string
}

// Fixture describes a containerlab deployment for tests.
type Fixture struct {
	Name     string
	Subnet   string
	SSHKeys  []string
	TopoFile string
	Nodes    []FixtureNode
	Links    []FixtureLink
}

// DC1 returns a small fabric: two SR Linux leaves on the same release, one
// SR OS spine and a linux client on leaf1.
func DC1() Fixture {
	return Fixture{
		Name:     "dc1",
		Subnet:   "172.20.20.0/24",
		SSHKeys:  []string{"ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAITestKey user@host"},
		TopoFile: "/home/user/lab/dc1.clab.yml",
		Nodes: []FixtureNode{
			{Name: "leaf1", Kind: "nokia_srlinux", Image: "ghcr.io/nokia/srlinux:24.10.1", Type: "ixrd3l", MgmtIP: "172.20.20.2"},
			{Name: "leaf2", Kind: "nokia_srlinux", Image: "ghcr.io/nokia/srlinux:24.10.1", Type: "ixrd3l", MgmtIP: "172.20.20.3"},
			{Name: "spine1", Kind: "nokia_sros", Image: "registry.example.com:5000/nokia/vr-sros:25.3.R1", Type: "sr-1", MgmtIP: "172.20.20.4"},
			{Name: "client1", Kind: "linux", Image: "ghcr.io/srl-labs/network-multitool", MgmtIP: "172.20.20.10"},
		},
		Links: []FixtureLink{
			{A: "leaf1", AIf: "e1-1", Z: "spine1", ZIf: "1/1/c1/1"},
			{A: "leaf2", AIf: "e1-1", Z: "spine1", ZIf: "1/1/c2/1"},
			{A: "client1", AIf: "eth1", Z: "leaf1", ZIf: "e1-3"},
		},
	}
}

// JSON renders the fixture in topology-data.json layout, keeping node order.
func (f Fixture) JSON() []byte {
	type labels struct {
		NodeType string `json:"clab-node-type,omitempty"`
		TopoFile string `json:"clab-topo-file,omitempty"`
	}
	type node struct {
		Kind   string `json:"kind"`
		Image  string `json:"image"`
		MgmtIP string `json:"mgmt-ipv4-address"`
		Labels labels `json:"labels"`
	}
	type end struct {
		Node      string `json:"node"`
		Interface string `json:"interface"`
	}
	type link struct {
		A end `json:"a"`
		Z end `json:"z"`
	}

	var nodes bytes.Buffer
	nodes.WriteByte('{')
	for i, n := range f.Nodes {
		if i > 0 {
			nodes.WriteByte(',')
		}
		key, _ := json.Marshal(n.Name)
		val, _ := json.Marshal(node{
			Kind:   n.Kind,
			Image:  n.Image,
			MgmtIP: n.MgmtIP,
			Labels: labels{NodeType: n.Type, TopoFile: f.TopoFile},
		})
		nodes.Write(key)
		nodes.WriteByte(':')
		nodes.Write(val)
	}
	nodes.WriteByte('}')

	links := make([]link, 0, len(f.Links))
	for _, l := range f.Links {
		links = append(links, link{A: end{l.A, l.AIf}, Z: end{l.Z, l.ZIf}})
	}

	doc := map[string]interface{}{
		"type": "clab",
		"name": f.Name,
		"clab": map[string]interface{}{
			"config": map[string]interface{}{
				"mgmt": map[string]interface{}{"ipv4-subnet": f.Subnet},
			},
		},
		"ssh-pub-keys": f.SSHKeys,
		"nodes":        json.RawMessage(nodes.Bytes()),
		"links":        links,
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return out
}

// WriteTopology writes the fixture as topology-data.json in a temp dir.
func (f Fixture) WriteTopology(t *testing.T) string {
	t.Helper()
	return WriteFile(t, "topology-data.json", f.JSON())
}
