// Package topology models a deployed containerlab topology and renders the
// EDA resources that describe it.
package topology

import (
	"context"
	"strings"

	"github.com/eda-labs/clab-connector/pkg/tmpl"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// Node kinds understood by the connector.
const (
	KindSRL   = "nokia_srlinux"
	KindSROS  = "nokia_sros"
	KindLinux = "linux"
)

// Interface and link roles used as eda.nokia.com/role label values.
const (
	RoleInterSwitch = "interSwitch"
	RoleEdge        = "edge"

	roleLabel = "eda.nokia.com/role"
)

// Node is one device of the topology. Nodes that EDA cannot manage return
// empty manifests from every rendering method.
type Node interface {
	Name() string
	Kind() string
	NodeType() string
	Version() string
	MgmtIP() string

	EDASupported() bool
	Platform() string
	ProfileName(t *Topology) string
	// MapInterface translates a containerlab interface name into the
	// device-native name. Unknown names pass through unchanged.
	MapInterface(ifname string) string
	CheckReachability(ctx context.Context) error

	NodeProfile(t *Topology) (string, error)
	TopoNode(t *Topology) (string, error)
	SystemInterface(t *Topology) (string, error)
	TopolinkInterface(t *Topology, ifname string, peer Node) (string, error)
	EdgeInterface(t *Topology, ifname string, host Node) (string, error)

	NeedsArtifact() bool
	ArtifactInfo() ArtifactInfo
	ArtifactManifest(namespace string, a ArtifactInfo) (string, error)
}

// ArtifactInfo describes the schema artifact a node profile depends on.
type ArtifactInfo struct {
	Name     string
	Filename string
	URL      string
	Version  string
}

// Complete reports whether every field needed to create the artifact is set.
func (a ArtifactInfo) Complete() bool {
	return a.Name != "" && a.Filename != "" && a.URL != ""
}

// baseNode carries the attributes shared by every kind.
type baseNode struct {
	name     string
	kind     string
	nodeType string
	version  string
	mgmtIP   string
}

func (b *baseNode) Name() string     { return b.name }
func (b *baseNode) Kind() string     { return b.kind }
func (b *baseNode) NodeType() string { return b.nodeType }
func (b *baseNode) Version() string  { return b.version }
func (b *baseNode) MgmtIP() string   { return b.mgmtIP }

func (b *baseNode) NeedsArtifact() bool        { return false }
func (b *baseNode) ArtifactInfo() ArtifactInfo { return ArtifactInfo{} }

func (b *baseNode) ArtifactManifest(string, ArtifactInfo) (string, error) { return "", nil }

// EDAName returns the node name made safe for Kubernetes resource names.
func EDAName(n Node) string {
	return util.NormalizeName(n.Name())
}

// InterfaceResourceName is the name of the Interface resource for ifname on n.
func InterfaceResourceName(n Node, ifname string) string {
	return EDAName(n) + "-" + n.MapInterface(ifname)
}

// SystemInterfaceName is the name of n's system Interface resource.
func SystemInterfaceName(n Node) string {
	return EDAName(n) + "-system0"
}

// InferRole derives the TopoNode role from the node name.
func InferRole(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "leaf"):
		return "leaf"
	case strings.Contains(lower, "spine"):
		return "spine"
	case strings.Contains(lower, "borderleaf"), strings.Contains(lower, "bl"):
		return "borderleaf"
	case strings.Contains(lower, "dcgw"):
		return "dcgw"
	}
	util.WithNode(name).Warn("could not determine role, defaulting to eda.nokia.com/role=leaf")
	return "leaf"
}

func renderInterface(t *Topology, n Node, ifname, role, desc string) (string, error) {
	data := tmpl.InterfaceData{
		Namespace:     t.Namespace(),
		InterfaceName: InterfaceResourceName(n, ifname),
		LabelKey:      roleLabel,
		LabelValue:    role,
		EncapType:     "'null'",
		NodeName:      EDAName(n),
		Interface:     n.MapInterface(ifname),
		Description:   desc,
	}
	return tmpl.Render(tmpl.Interface, data)
}

func renderSystemInterface(t *Topology, n Node) (string, error) {
	return tmpl.Render(tmpl.Interface, tmpl.InterfaceData{
		Namespace:     t.Namespace(),
		InterfaceName: SystemInterfaceName(n),
		EncapType:     "'null'",
		NodeName:      EDAName(n),
		Interface:     "system0",
		Description:   "system interface",
	})
}

func renderTopoNode(t *Topology, n Node, selector, version string) (string, error) {
	return tmpl.Render(tmpl.TopoNode, tmpl.TopoNodeData{
		Namespace:       t.Namespace(),
		NodeName:        EDAName(n),
		TopologyName:    t.Name,
		Role:            InferRole(n.Name()),
		Selector:        selector,
		NodeProfile:     n.ProfileName(t),
		OperatingSystem: operatingSystem(n.Kind()),
		Platform:        n.Platform(),
		SWVersion:       version,
		MgmtIP:          n.MgmtIP(),
	})
}

func renderArtifact(namespace string, a ArtifactInfo) (string, error) {
	return tmpl.Render(tmpl.Artifact, tmpl.ArtifactData{
		Namespace:        namespace,
		ArtifactName:     a.Name,
		ArtifactFilename: a.Filename,
		ArtifactURL:      a.URL,
	})
}

// operatingSystem maps a containerlab kind to the EDA operatingSystem value.
func operatingSystem(kind string) string {
	switch kind {
	case KindSRL:
		return "srl"
	case KindSROS:
		return "sros"
	}
	return kind
}
