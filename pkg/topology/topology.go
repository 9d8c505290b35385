package topology

import (
	"context"

	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/tmpl"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// NamespacePrefix is prepended to the topology name to form its namespace.
const NamespacePrefix = "clab-"

// NodeUser resource names and the containerlab label values that bind
// them to nodes.
const (
	NodeUserSRL  = "admin"
	NodeUserSROS = "admin-sros"

	SelectorSRL  = "managedSrl"
	SelectorSROS = "managedSros"

	selectorLabel = "containerlab"
)

// NodeSelector returns the label selector matching value.
func NodeSelector(value string) string {
	return selectorLabel + "=" + value
}

// Topology is a parsed containerlab deployment.
type Topology struct {
	// Name is the EDA-safe topology name.
	Name string
	// OriginalName is the name as written by containerlab.
	OriginalName string
	FilePath     string
	MgmtSubnet   string
	SSHPubKeys   []string
	Nodes        []Node
	Links        []*Link

	Credentials config.Credentials
}

// Namespace returns the EDA namespace the topology is integrated into.
func (t *Topology) Namespace() string {
	return NamespacePrefix + t.Name
}

// EDANodes returns the nodes EDA can manage, in topology order.
func (t *Topology) EDANodes() []Node {
	var out []Node
	for _, n := range t.Nodes {
		if n.EDASupported() {
			out = append(out, n)
		}
	}
	return out
}

// NodesOfKind returns the nodes of the given kind, in topology order.
func (t *Topology) NodesOfKind(kind string) []Node {
	var out []Node
	for _, n := range t.Nodes {
		if n.Kind() == kind {
			out = append(out, n)
		}
	}
	return out
}

// Node returns the node with the given containerlab name.
func (t *Topology) Node(name string) (Node, bool) {
	for _, n := range t.Nodes {
		if n.Name() == name {
			return n, true
		}
	}
	return nil, false
}

// CheckConnectivity checks every node in order and stops at the first
// unreachable one.
func (t *Topology) CheckConnectivity(ctx context.Context) error {
	for _, n := range t.Nodes {
		if err := n.CheckReachability(ctx); err != nil {
			util.WithNode(n.Name()).Errorf("connectivity check failed: %v", err)
			return err
		}
	}
	return nil
}

// NodeProfiles renders one NodeProfile per distinct profile name, which
// encodes the kind and the normalized version.
func (t *Topology) NodeProfiles() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, n := range t.Nodes {
		key := n.ProfileName(t)
		if seen[key] {
			continue
		}
		doc, err := n.NodeProfile(t)
		if err != nil {
			return nil, util.NewNodeError(n.Name(), "node profile", err)
		}
		if doc == "" {
			continue
		}
		seen[key] = true
		out = append(out, doc)
	}
	return out, nil
}

// TopoNodes renders the TopoNode of every EDA-managed node.
func (t *Topology) TopoNodes() ([]string, error) {
	return t.collect("toponode", func(n Node) (string, error) { return n.TopoNode(t) })
}

// SystemInterfaces renders the system0 Interface of every EDA-managed node.
func (t *Topology) SystemInterfaces() ([]string, error) {
	return t.collect("system interface", func(n Node) (string, error) { return n.SystemInterface(t) })
}

func (t *Topology) collect(op string, render func(Node) (string, error)) ([]string, error) {
	var out []string
	for _, n := range t.Nodes {
		doc, err := render(n)
		if err != nil {
			return nil, util.NewNodeError(n.Name(), op, err)
		}
		if doc != "" {
			out = append(out, doc)
		}
	}
	return out, nil
}

// TopolinkInterfaces renders Interface resources for every link end that
// EDA manages. Edge interfaces are omitted when skipEdge is set.
func (t *Topology) TopolinkInterfaces(skipEdge bool) ([]string, error) {
	var out []string
	for _, l := range t.Links {
		if skipEdge && l.IsEdge() {
			continue
		}
		docs, err := l.Interfaces(t)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

// TopoLinks renders the TopoLink resources. Edge links are omitted when
// skipEdge is set.
func (t *Topology) TopoLinks(skipEdge bool) ([]string, error) {
	var out []string
	for _, l := range t.Links {
		if skipEdge && l.IsEdge() {
			continue
		}
		doc, err := l.TopoLink(t)
		if err != nil {
			return nil, err
		}
		if doc != "" {
			out = append(out, doc)
		}
	}
	return out, nil
}

// InitManifest renders the Init bootstrap resource.
func (t *Topology) InitManifest() (string, error) {
	return tmpl.Render(tmpl.Init, tmpl.InitData{Namespace: t.Namespace()})
}

// SecurityProfileManifest renders the managed-tls NodeSecurityProfile.
func (t *Topology) SecurityProfileManifest() (string, error) {
	return tmpl.Render(tmpl.NodeSecurityProfile, tmpl.InitData{Namespace: t.Namespace()})
}

// NodeUserGroupManifest renders the sudo NodeGroup.
func (t *Topology) NodeUserGroupManifest() (string, error) {
	return tmpl.Render(tmpl.NodeUserGroup, tmpl.InitData{Namespace: t.Namespace()})
}

// NodeUserManifests renders the SR Linux and SR OS NodeUsers.
func (t *Topology) NodeUserManifests() ([]string, error) {
	creds := t.Credentials
	if creds == (config.Credentials{}) {
		creds = config.DefaultCredentials()
	}
	users := []tmpl.NodeUserData{
		{
			Namespace:    t.Namespace(),
			NodeUser:     NodeUserSRL,
			Username:     creds.SRLUsername,
			Password:     creds.SRLPassword,
			SSHPubKeys:   t.SSHPubKeys,
			NodeSelector: NodeSelector(SelectorSRL),
		},
		{
			Namespace:    t.Namespace(),
			NodeUser:     NodeUserSROS,
			Username:     creds.SROSUsername,
			Password:     creds.SROSPassword,
			SSHPubKeys:   t.SSHPubKeys,
			NodeSelector: NodeSelector(SelectorSROS),
		},
	}
	out := make([]string, 0, len(users))
	for _, u := range users {
		doc, err := tmpl.Render(tmpl.NodeUser, u)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// NamespaceManifest renders the EDA Namespace resource for the topology.
func (t *Topology) NamespaceManifest(systemNamespace, description string) (string, error) {
	return tmpl.Render(tmpl.Namespace, tmpl.NamespaceData{
		Name:            t.Namespace(),
		SystemNamespace: systemNamespace,
		Description:     description,
	})
}
