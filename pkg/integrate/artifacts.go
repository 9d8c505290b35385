package integrate

import (
	"context"
	"strings"

	"github.com/eda-labs/clab-connector/pkg/kube"
	"github.com/eda-labs/clab-connector/pkg/topology"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// artifactGroup is the set of nodes sharing one schema artifact. The first
// node is the one whose manifest is rendered.
type artifactGroup struct {
	info  topology.ArtifactInfo
	nodes []topology.Node
}

// groupArtifacts groups the nodes that need a schema artifact by artifact
// name, in topology order. Nodes with incomplete artifact info are skipped.
func groupArtifacts(topo *topology.Topology) []*artifactGroup {
	var groups []*artifactGroup
	byName := map[string]*artifactGroup{}
	for _, n := range topo.Nodes {
		if !n.NeedsArtifact() {
			continue
		}
		info := n.ArtifactInfo()
		if !info.Complete() {
			util.Warnf("%sNo artifact info for node %s; skipping.", util.SubStep, n.Name())
			continue
		}
		g, ok := byName[info.Name]
		if !ok {
			g = &artifactGroup{info: info}
			byName[info.Name] = g
			groups = append(groups, g)
		}
		g.nodes = append(g.nodes, n)
	}
	return groups
}

// createArtifacts applies one Artifact per distinct schema to the EDA
// system namespace. Apply failures are logged and do not stop the run.
func (i *Integrator) createArtifacts(ctx context.Context, topo *topology.Topology) error {
	util.Infof("%sCreating artifacts for nodes that need them", util.SubStep)
	for _, g := range groupArtifacts(topo) {
		first := g.nodes[0]
		util.Infof("%sCreating YANG artifact for node: %s (version=%s)", util.SubStep, first.Name(), g.info.Version)

		doc, err := first.ArtifactManifest(kube.SystemNamespace, g.info)
		if err != nil {
			return util.NewNodeError(first.Name(), "artifact", err)
		}
		if doc == "" {
			util.Warnf("%sCould not generate artifact YAML for %s", util.SubStep, first.Name())
			continue
		}

		err = i.cluster.ApplyManifest(ctx, doc, kube.SystemNamespace)
		switch {
		case kube.IsAlreadyExists(err):
			util.Infof("%sArtifact '%s' already exists.", util.SubStep, g.info.Name)
			continue
		case err != nil:
			util.Errorf("Error creating artifact '%s': %v", g.info.Name, err)
			continue
		}
		util.Infof("%sArtifact '%s' created.", util.SubStep, g.info.Name)
		if len(g.nodes) > 1 {
			others := make([]string, 0, len(g.nodes)-1)
			for _, n := range g.nodes[1:] {
				others = append(others, n.Name())
			}
			util.Infof("%sUsing same artifact for nodes: %s", util.SubStep, strings.Join(others, ", "))
		}
	}
	return nil
}
