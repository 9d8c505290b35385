package integrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eda-labs/clab-connector/pkg/device"
	"github.com/eda-labs/clab-connector/pkg/kube"
	"github.com/eda-labs/clab-connector/pkg/tmpl"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// Files placed on the SR OS compact flash.
const (
	srosFlash      = "cf3:/"
	srosCertFile   = "edaboot.crt"
	srosKeyFile    = "edaboot.key"
	srosConfigFile = "config.cfg"

	// srosFallbackPassword is the factory admin password of SR OS images.
	srosFallbackPassword = "admin"
)

// EDA renders the node's initial config asynchronously after the TopoNode
// is created.
var (
	initConfigRetries  = 20
	initConfigInterval = 2 * time.Second
)

// SROSTarget identifies the SR OS node to prepare.
type SROSTarget struct {
	// NodeName is the EDA TopoNode name.
	NodeName  string
	Namespace string
	// Version is the normalized SR OS release, e.g. "25.3.r1".
	Version  string
	MgmtIP   string
	Username string
	Password string
	// Quiet suppresses the device transcript at info level.
	Quiet bool
}

// SecretName is the EDA-issued TLS secret of the node.
func (t SROSTarget) SecretName() string {
	return fmt.Sprintf("%s--%s-cert-tls", t.Namespace, t.NodeName)
}

// InitConfigName is the Artifact holding the node's initial config.
func (t SROSTarget) InitConfigName() string {
	return fmt.Sprintf("initcfg-%s-%s", t.NodeName, t.Version)
}

// PrepareSROSNode installs the EDA-issued TLS material and the initial
// config on an SR OS node, then loads and commits that config.
func (i *Integrator) PrepareSROSNode(ctx context.Context, t SROSTarget) error {
	log := util.WithNode(t.NodeName)
	dial := i.dialer()

	password := device.FirstWorkingPassword(ctx, dial, t.MgmtIP, t.Username, candidatePasswords(t.Password))
	if password == "" {
		return util.NewNodeError(t.NodeName, "ssh", fmt.Errorf("no working password for user %s", t.Username))
	}
	if password != t.Password {
		log.Infof("logged in with the %s fallback password", t.Username)
	}

	cert, err := i.cluster.SecretData(ctx, kube.SystemNamespace, t.SecretName(), "tls.crt")
	if err != nil {
		return util.NewNodeError(t.NodeName, "tls certificate", err)
	}
	key, err := i.cluster.SecretData(ctx, kube.SystemNamespace, t.SecretName(), "tls.key")
	if err != nil {
		return util.NewNodeError(t.NodeName, "tls key", err)
	}
	cfg, err := i.waitForInitConfig(ctx, t)
	if err != nil {
		return util.NewNodeError(t.NodeName, "initial config", err)
	}

	dir, err := os.MkdirTemp("", "sros-"+t.NodeName+"-")
	if err != nil {
		return util.NewNodeError(t.NodeName, "temp dir", err)
	}
	defer os.RemoveAll(dir)

	s, err := dial(ctx, t.MgmtIP, t.Username, password)
	if err != nil {
		return util.NewNodeError(t.NodeName, "ssh", err)
	}
	defer s.Close()

	files := []struct {
		name string
		data []byte
	}{
		{srosCertFile, cert},
		{srosKeyFile, key},
		{srosConfigFile, []byte(cfg)},
	}
	for _, f := range files {
		local := filepath.Join(dir, f.name)
		if err := os.WriteFile(local, f.data, 0600); err != nil {
			return util.NewNodeError(t.NodeName, "write "+f.name, err)
		}
		log.Debugf("uploading %s", f.name)
		if err := s.Upload(local, srosFlash+f.name); err != nil {
			return util.NewNodeError(t.NodeName, "upload "+f.name, err)
		}
	}

	script, err := tmpl.Render(tmpl.SROSPostIntegration, tmpl.SROSScriptData{
		CertURL:   srosFlash + srosCertFile,
		CertFile:  srosCertFile,
		KeyURL:    srosFlash + srosKeyFile,
		KeyFile:   srosKeyFile,
		ConfigURL: srosFlash + srosConfigFile,
	})
	if err != nil {
		return util.NewNodeError(t.NodeName, "md-cli script render", err)
	}
	out, err := s.RunScript(script)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		if t.Quiet {
			log.Debug(line)
		} else {
			log.Info(line)
		}
	}
	if err != nil {
		return util.NewNodeError(t.NodeName, "md-cli script", err)
	}
	return nil
}

// waitForInitConfig polls the node's init config Artifact until EDA has
// rendered non-empty content.
func (i *Integrator) waitForInitConfig(ctx context.Context, t SROSTarget) (string, error) {
	name := t.InitConfigName()
	var lastErr error
	for attempt := 1; attempt <= initConfigRetries; attempt++ {
		content, err := i.cluster.ArtifactText(ctx, t.Namespace, name)
		if err == nil && content != "" {
			return content, nil
		}
		lastErr = err
		util.Debugf("init config %s not ready (attempt %d/%d)", name, attempt, initConfigRetries)
		if attempt == initConfigRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(initConfigInterval):
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("artifact %s: %w", name, lastErr)
	}
	return "", fmt.Errorf("artifact %s has no content after %d attempts", name, initConfigRetries)
}

func candidatePasswords(configured string) []string {
	if configured == "" || configured == srosFallbackPassword {
		return []string{srosFallbackPassword}
	}
	return []string{configured, srosFallbackPassword}
}
