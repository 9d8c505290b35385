package topology

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/eda-labs/clab-connector/pkg/device"
	"github.com/eda-labs/clab-connector/pkg/tmpl"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// SR Linux constants
const (
	SRLGNMIPort     = 57410
	srlDefaultType  = "ixrd3l"
	srlProfileShort = "srlinux"
	srlVersionPath  = ".system.information.version"
	srlYangPath     = "https://eda-asvr.eda-system.svc/eda-system/clab-schemaprofiles/{artifact_name}/{filename}"
	srlImage        = "eda-system/srlimages/srlinux-{version}-bin/srlinux.bin"
	srlImageMD5     = "eda-system/srlimages/srlinux-{version}-bin/srlinux.bin.md5"

	// SRLBootstrapRemotePath is where the bootstrap config is uploaded.
	SRLBootstrapRemotePath = "bootstrap-config.cfg"
)

// srlSchemaProfiles maps SR Linux versions to their YANG schema bundle.
var srlSchemaProfiles = map[string]string{
	"24.10.1": "https://github.com/nokia/srlinux-yang-models/releases/download/v24.10.1/srlinux-24.10.1-492.zip",
}

var srlInterfaceRe = regexp.MustCompile(`^e([0-9])-([0-9]+)$`)

// SRLNode is a Nokia SR Linux node.
type SRLNode struct {
	baseNode
	username string
	password string
	dial     device.Dialer
}

var _ Node = (*SRLNode)(nil)

func (n *SRLNode) EDASupported() bool { return true }

// Platform maps the containerlab type to the EDA platform,
// e.g. ixrd2 => "7220 IXR-D2".
func (n *SRLNode) Platform() string {
	t := strings.ReplaceAll(n.nodeType, "ixr", "")
	return "7220 IXR-" + strings.ToUpper(t)
}

func (n *SRLNode) ProfileName(t *Topology) string {
	return fmt.Sprintf("%s-%s-%s", t.Name, srlProfileShort, n.version)
}

// MapInterface converts containerlab's e1-1 into ethernet-1-1.
func (n *SRLNode) MapInterface(ifname string) string {
	if m := srlInterfaceRe.FindStringSubmatch(ifname); m != nil {
		return fmt.Sprintf("ethernet-%s-%s", m[1], m[2])
	}
	return ifname
}

// CheckReachability opens and closes an SSH session with the node user.
func (n *SRLNode) CheckReachability(ctx context.Context) error {
	s, err := n.dial(ctx, n.mgmtIP, n.username, n.password)
	if err != nil {
		return util.NewNodeError(n.name, "ssh", fmt.Errorf("%w: %v", util.ErrUnreachable, err))
	}
	s.Close()
	util.WithNode(n.name).Infof("SSH to %s successful", n.mgmtIP)
	return nil
}

func (n *SRLNode) NodeProfile(t *Topology) (string, error) {
	util.WithNode(n.name).Debug("rendering node profile")
	artifact := n.artifactName()
	filename := n.artifactFilename()
	vars := map[string]string{
		"artifact_name": artifact,
		"filename":      filename,
		"version":       n.version,
	}
	return tmpl.Render(tmpl.NodeProfile, tmpl.NodeProfileData{
		Namespace:          t.Namespace(),
		ProfileName:        n.ProfileName(t),
		SWVersion:          n.version,
		GNMIPort:           SRLGNMIPort,
		OperatingSystem:    operatingSystem(n.kind),
		VersionPath:        srlVersionPath,
		VersionMatch:       "v" + strings.ReplaceAll(n.version, ".", `\.`) + ".*",
		YangPath:           tmpl.Expand(srlYangPath, vars),
		NodeUser:           NodeUserSRL,
		OnboardingUsername: n.username,
		OnboardingPassword: n.password,
		SWImage:            tmpl.Expand(srlImage, vars),
		SWImageMD5:         tmpl.Expand(srlImageMD5, vars),
	})
}

func (n *SRLNode) TopoNode(t *Topology) (string, error) {
	util.WithNode(n.name).Debug("rendering toponode")
	return renderTopoNode(t, n, SelectorSRL, n.version)
}

func (n *SRLNode) SystemInterface(t *Topology) (string, error) {
	return renderSystemInterface(t, n)
}

func (n *SRLNode) TopolinkInterface(t *Topology, ifname string, peer Node) (string, error) {
	return renderInterface(t, n, ifname, RoleInterSwitch, "inter-switch link to "+EDAName(peer))
}

func (n *SRLNode) EdgeInterface(t *Topology, ifname string, host Node) (string, error) {
	return renderInterface(t, n, ifname, RoleEdge, "edge link to "+EDAName(host))
}

func (n *SRLNode) NeedsArtifact() bool { return true }

func (n *SRLNode) artifactName() string     { return "clab-srlinux-" + n.version }
func (n *SRLNode) artifactFilename() string { return "srlinux-" + n.version + ".zip" }

func (n *SRLNode) ArtifactInfo() ArtifactInfo {
	url, ok := srlSchemaProfiles[n.version]
	if !ok {
		util.WithNode(n.name).Warnf("no schema profile for version %s", n.version)
		return ArtifactInfo{Version: n.version}
	}
	return ArtifactInfo{
		Name:     n.artifactName(),
		Filename: n.artifactFilename(),
		URL:      url,
		Version:  n.version,
	}
}

func (n *SRLNode) ArtifactManifest(namespace string, a ArtifactInfo) (string, error) {
	return renderArtifact(namespace, a)
}

// PushBootstrapConfig renders the gNMI discovery config, uploads it to the
// node and sources it from the CLI. Any stderr output is treated as failure.
func (n *SRLNode) PushBootstrapConfig(ctx context.Context) error {
	log := util.WithNode(n.name)
	log.Info("pushing bootstrap config")

	cfg, err := tmpl.Render(tmpl.SRLBootstrapConfig, tmpl.BootstrapConfigData{GNMIPort: SRLGNMIPort})
	if err != nil {
		return util.NewNodeError(n.name, "bootstrap config", err)
	}

	f, err := os.CreateTemp("", "srl-bootstrap-*.cfg")
	if err != nil {
		return util.NewNodeError(n.name, "bootstrap config", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(cfg); err != nil {
		f.Close()
		return util.NewNodeError(n.name, "bootstrap config", err)
	}
	if err := f.Close(); err != nil {
		return util.NewNodeError(n.name, "bootstrap config", err)
	}

	s, err := n.dial(ctx, n.mgmtIP, n.username, n.password)
	if err != nil {
		return util.NewNodeError(n.name, "ssh", err)
	}
	defer s.Close()

	log.Debug("copying rendered bootstrap config to node")
	if err := s.Upload(path, SRLBootstrapRemotePath); err != nil {
		return util.NewNodeError(n.name, "upload", err)
	}

	log.Debug("sourcing the bootstrap config")
	_, stderr, err := s.Run("source " + SRLBootstrapRemotePath)
	if err != nil {
		return util.NewNodeError(n.name, "source", err)
	}
	if stderr != "" {
		log.Errorf("stderr: %s", stderr)
		return util.NewNodeError(n.name, "source", fmt.Errorf("bootstrap config rejected: %s", strings.TrimSpace(stderr)))
	}
	log.Info("bootstrap config applied")
	return nil
}
