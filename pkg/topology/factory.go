package topology

import (
	"fmt"

	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/device"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// Options configures node construction.
type Options struct {
	Credentials config.Credentials
	// Dial opens SSH sessions to nodes; device.Dial when nil.
	Dial device.Dialer
	// Probe checks that a TCP port answers; device.ProbeTCP when nil.
	Probe device.Prober
}

func (o Options) withDefaults() Options {
	if o.Dial == nil {
		o.Dial = device.Dial
	}
	if o.Probe == nil {
		o.Probe = device.ProbeTCP
	}
	if o.Credentials == (config.Credentials{}) {
		o.Credentials = config.DefaultCredentials()
	}
	return o
}

// NewNode creates the Node implementation for kind. An empty nodeType
// selects the kind's default.
func NewNode(name, kind, nodeType, version, mgmtIP string, opts Options) (Node, error) {
	opts = opts.withDefaults()
	base := baseNode{name: name, kind: kind, nodeType: nodeType, version: version, mgmtIP: mgmtIP}

	switch kind {
	case KindSRL:
		if base.nodeType == "" {
			base.nodeType = srlDefaultType
		}
		return &SRLNode{
			baseNode: base,
			username: opts.Credentials.SRLUsername,
			password: opts.Credentials.SRLPassword,
			dial:     opts.Dial,
		}, nil
	case KindSROS:
		if base.nodeType == "" {
			base.nodeType = srosDefaultType
		}
		return &SROSNode{
			baseNode: base,
			username: opts.Credentials.SROSPostUsername,
			password: opts.Credentials.SROSPostPassword,
			probe:    opts.Probe,
		}, nil
	case KindLinux:
		return &LinuxNode{baseNode: base}, nil
	case "":
		return nil, fmt.Errorf("node %s: %w: no kind", name, util.ErrInvalidTopology)
	}
	return nil, fmt.Errorf("node %s: %w '%s'", name, util.ErrUnsupportedKind, kind)
}
