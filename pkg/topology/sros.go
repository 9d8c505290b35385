package topology

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/eda-labs/clab-connector/pkg/device"
	"github.com/eda-labs/clab-connector/pkg/tmpl"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// SROS constants
const (
	SROSGNMIPort     = 57400
	srosDefaultType  = "sr-1"
	srosProfileShort = "sros"
	srosVersionPath  = ".system.information.version"
	srosYangPath     = "https://eda-asvr.eda-system.svc/eda-system/clab-schemaprofiles/{artifact_name}/{filename}"
	srosSchemaURL    = "https://github.com/nokia-eda/schema-profiles/releases/download/nokia-sros-v{version}/sros-{version}.zip"
)

var (
	srosEthRe  = regexp.MustCompile(`^e([0-9]+)-([0-9]+)$`)
	srosPortRe = regexp.MustCompile(`^[0-9]+(/[a-z]?[0-9]+)+$`)
)

// reachabilityTimeout bounds the TCP probe of the SROS SSH port.
var reachabilityTimeout = 5 * time.Second

// SROSNode is a Nokia SR OS node.
type SROSNode struct {
	baseNode
	username string
	password string
	probe    device.Prober
}

var _ Node = (*SROSNode)(nil)

// NormalizeVersion lower-cases an SR OS release and drops a leading "v",
// e.g. "V25.3.R1" => "25.3.r1".
func NormalizeVersion(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.TrimPrefix(v, "v")
}

func (n *SROSNode) EDASupported() bool { return true }

// Platform maps the containerlab type to the EDA platform,
// e.g. sr-1 => "7750 SR-1", ixr-e => "7250 IXR-E".
func (n *SROSNode) Platform() string {
	t := strings.ToUpper(n.nodeType)
	if strings.HasPrefix(t, "IXR") {
		return "7250 " + t
	}
	return "7750 " + t
}

func (n *SROSNode) ProfileName(t *Topology) string {
	return fmt.Sprintf("%s-%s-%s", t.Name, srosProfileShort, NormalizeVersion(n.version))
}

// MapInterface converts containerlab interface names to EDA's SR OS port
// names: e1-2 => ethernet-1-1-2 (card 1, mda 1, port 2) and
// 1/1/c1/1 => ethernet-1-1-c1-1.
func (n *SROSNode) MapInterface(ifname string) string {
	if m := srosEthRe.FindStringSubmatch(ifname); m != nil {
		return fmt.Sprintf("ethernet-%s-1-%s", m[1], m[2])
	}
	if srosPortRe.MatchString(ifname) {
		return "ethernet-" + strings.ReplaceAll(ifname, "/", "-")
	}
	return ifname
}

// CheckReachability probes the SSH port. SR OS may not yet accept the
// node-user credentials before post-integration, so no login is attempted.
func (n *SROSNode) CheckReachability(ctx context.Context) error {
	if err := n.probe(ctx, n.mgmtIP, device.DefaultSSHPort, reachabilityTimeout); err != nil {
		return util.NewNodeError(n.name, "probe", fmt.Errorf("%w: %v", util.ErrUnreachable, err))
	}
	util.WithNode(n.name).Infof("SSH port on %s is open", n.mgmtIP)
	return nil
}

func (n *SROSNode) NodeProfile(t *Topology) (string, error) {
	util.WithNode(n.name).Debug("rendering node profile")
	version := NormalizeVersion(n.version)
	vars := map[string]string{
		"artifact_name": n.artifactName(),
		"filename":      n.artifactFilename(),
	}
	return tmpl.Render(tmpl.NodeProfile, tmpl.NodeProfileData{
		Namespace:          t.Namespace(),
		ProfileName:        n.ProfileName(t),
		SWVersion:          version,
		GNMIPort:           SROSGNMIPort,
		OperatingSystem:    operatingSystem(n.kind),
		VersionPath:        srosVersionPath,
		VersionMatch:       strings.ReplaceAll(version, ".", `\.`) + ".*",
		YangPath:           tmpl.Expand(srosYangPath, vars),
		NodeUser:           NodeUserSROS,
		OnboardingUsername: n.username,
		OnboardingPassword: n.password,
	})
}

func (n *SROSNode) TopoNode(t *Topology) (string, error) {
	util.WithNode(n.name).Debug("rendering toponode")
	return renderTopoNode(t, n, SelectorSROS, NormalizeVersion(n.version))
}

func (n *SROSNode) SystemInterface(t *Topology) (string, error) {
	return renderSystemInterface(t, n)
}

func (n *SROSNode) TopolinkInterface(t *Topology, ifname string, peer Node) (string, error) {
	return renderInterface(t, n, ifname, RoleInterSwitch, "inter-switch link to "+EDAName(peer))
}

func (n *SROSNode) EdgeInterface(t *Topology, ifname string, host Node) (string, error) {
	return renderInterface(t, n, ifname, RoleEdge, "edge link to "+EDAName(host))
}

func (n *SROSNode) NeedsArtifact() bool { return true }

func (n *SROSNode) artifactName() string     { return "clab-sros-" + NormalizeVersion(n.version) }
func (n *SROSNode) artifactFilename() string { return "sros-" + NormalizeVersion(n.version) + ".zip" }

func (n *SROSNode) ArtifactInfo() ArtifactInfo {
	version := NormalizeVersion(n.version)
	if version == "" {
		util.WithNode(n.name).Warn("no version in image tag, cannot locate schema profile")
		return ArtifactInfo{}
	}
	return ArtifactInfo{
		Name:     n.artifactName(),
		Filename: n.artifactFilename(),
		URL:      tmpl.Expand(srosSchemaURL, map[string]string{"version": version}),
		Version:  version,
	}
}

func (n *SROSNode) ArtifactManifest(namespace string, a ArtifactInfo) (string, error) {
	return renderArtifact(namespace, a)
}
