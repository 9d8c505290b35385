package topology

import (
	"strings"

	"github.com/eda-labs/clab-connector/pkg/tmpl"
)

// Endpoint is one side of a link.
type Endpoint struct {
	Node      Node
	Interface string
}

// Link is a point-to-point containerlab link between two known nodes.
type Link struct {
	A Endpoint
	Z Endpoint
}

// IsTopolink reports whether both ends are managed by EDA.
func (l *Link) IsTopolink() bool {
	return l.A.Node.EDASupported() && l.Z.Node.EDASupported()
}

// IsEdge reports whether exactly one end is managed by EDA and the other is
// a linux host.
func (l *Link) IsEdge() bool {
	a, z := l.A.Node, l.Z.Node
	return (a.EDASupported() && z.Kind() == KindLinux) ||
		(z.EDASupported() && a.Kind() == KindLinux)
}

// edgeSides returns the EDA-managed end first.
func (l *Link) edgeSides() (Endpoint, Endpoint) {
	if l.A.Node.EDASupported() {
		return l.A, l.Z
	}
	return l.Z, l.A
}

// Name is the TopoLink resource name, managed end first for edge links.
func (l *Link) Name() string {
	a, z := l.A, l.Z
	if l.IsEdge() {
		a, z = l.edgeSides()
	}
	return EDAName(a.Node) + "-" + linkIfName(a.Interface) + "-" + EDAName(z.Node) + "-" + linkIfName(z.Interface)
}

// linkIfName makes a containerlab interface name usable inside a resource
// name, e.g. 1/1/c1/1 => 1-1-c1-1.
func linkIfName(ifname string) string {
	return strings.ReplaceAll(ifname, "/", "-")
}

// Interfaces renders the Interface resources for the managed ends.
func (l *Link) Interfaces(t *Topology) ([]string, error) {
	switch {
	case l.IsTopolink():
		a, err := l.A.Node.TopolinkInterface(t, l.A.Interface, l.Z.Node)
		if err != nil {
			return nil, err
		}
		z, err := l.Z.Node.TopolinkInterface(t, l.Z.Interface, l.A.Node)
		if err != nil {
			return nil, err
		}
		return []string{a, z}, nil
	case l.IsEdge():
		local, host := l.edgeSides()
		doc, err := local.Node.EdgeInterface(t, local.Interface, host.Node)
		if err != nil {
			return nil, err
		}
		return []string{doc}, nil
	}
	return nil, nil
}

// TopoLink renders the TopoLink resource, or "" when no end is managed.
func (l *Link) TopoLink(t *Topology) (string, error) {
	switch {
	case l.IsTopolink():
		return tmpl.Render(tmpl.TopoLink, tmpl.TopoLinkData{
			Namespace:       t.Namespace(),
			LinkName:        l.Name(),
			LinkRole:        RoleInterSwitch,
			LocalNode:       EDAName(l.A.Node),
			LocalInterface:  l.A.Node.MapInterface(l.A.Interface),
			RemoteNode:      EDAName(l.Z.Node),
			RemoteInterface: l.Z.Node.MapInterface(l.Z.Interface),
		})
	case l.IsEdge():
		local, _ := l.edgeSides()
		return tmpl.Render(tmpl.TopoLink, tmpl.TopoLinkData{
			Namespace:      t.Namespace(),
			LinkName:       l.Name(),
			LinkRole:       RoleEdge,
			LocalNode:      EDAName(local.Node),
			LocalInterface: local.Node.MapInterface(local.Interface),
		})
	}
	return "", nil
}
