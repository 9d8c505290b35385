// Package tmpl renders the EDA manifests and device configuration snippets
// shipped inside the binary.
package tmpl

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"text/template"

	"github.com/valyala/fasttemplate"
)

//go:embed templates
var templatesFS embed.FS

// Template names
const (
	Init                = "init.yaml"
	NodeSecurityProfile = "nodesecurityprofile.yaml"
	NodeUserGroup       = "node-user-group.yaml"
	NodeUser            = "node-user.yaml"
	NodeProfile         = "node-profile.yaml"
	TopoNode            = "toponode.yaml"
	Interface           = "interface.yaml"
	TopoLink            = "topolink.yaml"
	Artifact            = "artifact.yaml"
	Namespace           = "namespace.yaml"
	SRLBootstrapConfig  = "srlinux-bootstrap-config.cfg"
	SROSPostIntegration = "sros-post-integration.cfg"
)

// templateFuncs provides helper functions for manifest templates.
var templateFuncs = template.FuncMap{
	"quote": strconv.Quote,
}

// Render loads a template from the embedded FS and renders it with data.
func Render(name string, data any) (string, error) {
	raw, err := templatesFS.ReadFile(path.Join("templates", name+".tmpl"))
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", name, err)
	}

	t, err := template.New(name).Funcs(templateFuncs).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Expand substitutes {name} placeholders in a path or URL pattern, e.g.
// "srlinux-{version}-bin/srlinux.bin". Unknown placeholders are left as-is.
func Expand(pattern string, vars map[string]string) string {
	if !strings.Contains(pattern, "{") {
		return pattern
	}
	return fasttemplate.ExecuteFuncString(pattern, "{", "}", func(w io.Writer, tag string) (int, error) {
		if v, ok := vars[tag]; ok {
			return w.Write([]byte(v))
		}
		return w.Write([]byte("{" + tag + "}"))
	})
}

// InitData feeds the Init template.
type InitData struct {
	Namespace string
}

// NodeUserData feeds the NodeUser template.
type NodeUserData struct {
	Namespace    string
	NodeUser     string
	Username     string
	Password     string
	SSHPubKeys   []string
	NodeSelector string
}

// NodeProfileData feeds the NodeProfile template.
type NodeProfileData struct {
	Namespace          string
	ProfileName        string
	SWVersion          string
	GNMIPort           int
	Annotate           bool
	OperatingSystem    string
	VersionPath        string
	VersionMatch       string
	YangPath           string
	NodeUser           string
	OnboardingUsername string
	OnboardingPassword string
	SWImage            string
	SWImageMD5         string
}

// TopoNodeData feeds the TopoNode template.
type TopoNodeData struct {
	Namespace       string
	NodeName        string
	TopologyName    string
	Role            string
	Selector        string
	NodeProfile     string
	OperatingSystem string
	Platform        string
	SWVersion       string
	MgmtIP          string
}

// InterfaceData feeds the Interface template.
type InterfaceData struct {
	Namespace     string
	InterfaceName string
	LabelKey      string
	LabelValue    string
	EncapType     string
	NodeName      string
	Interface     string
	Description   string
}

// TopoLinkData feeds the TopoLink template. An empty RemoteNode renders a
// single-sided (edge) link.
type TopoLinkData struct {
	Namespace       string
	LinkName        string
	LinkRole        string
	LocalNode       string
	LocalInterface  string
	RemoteNode      string
	RemoteInterface string
}

// ArtifactData feeds the Artifact template.
type ArtifactData struct {
	Namespace        string
	ArtifactName     string
	ArtifactFilename string
	ArtifactURL      string
}

// NamespaceData feeds the EDA Namespace template.
type NamespaceData struct {
	Name            string
	SystemNamespace string
	Description     string
}

// BootstrapConfigData feeds the SR Linux bootstrap config.
type BootstrapConfigData struct {
	GNMIPort int
}

// SROSScriptData feeds the SROS post-integration MD-CLI script.
type SROSScriptData struct {
	CertURL   string
	CertFile  string
	KeyURL    string
	KeyFile   string
	ConfigURL string
}
