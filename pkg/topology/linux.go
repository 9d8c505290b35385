package topology

import "context"

// LinuxNode is a plain linux container, typically a test client attached
// to a fabric edge port. EDA does not manage it.
type LinuxNode struct {
	baseNode
}

var _ Node = (*LinuxNode)(nil)

func (n *LinuxNode) EDASupported() bool                      { return false }
func (n *LinuxNode) Platform() string                        { return "" }
func (n *LinuxNode) ProfileName(*Topology) string            { return "" }
func (n *LinuxNode) MapInterface(ifname string) string       { return ifname }
func (n *LinuxNode) CheckReachability(context.Context) error { return nil }

func (n *LinuxNode) NodeProfile(*Topology) (string, error)     { return "", nil }
func (n *LinuxNode) TopoNode(*Topology) (string, error)        { return "", nil }
func (n *LinuxNode) SystemInterface(*Topology) (string, error) { return "", nil }

func (n *LinuxNode) TopolinkInterface(*Topology, string, Node) (string, error) { return "", nil }
func (n *LinuxNode) EdgeInterface(*Topology, string, Node) (string, error)     { return "", nil }
