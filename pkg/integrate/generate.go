package integrate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/kube"
	"github.com/eda-labs/clab-connector/pkg/topology"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// GenerateOptions control manifest generation.
type GenerateOptions struct {
	TopologyFile string
	// Output is the combined manifest file, or the target directory when
	// Separate is set. An empty combined Output writes to Out.
	Output             string
	Separate           bool
	SkipEdgeInterfaces bool
	Out                io.Writer
	// Credentials feed the node users. Zero means the defaults.
	Credentials config.Credentials
}

// Manifests renders every resource an integration run creates, in the order
// it creates them: namespace, artifacts, init, node security profile, node
// user group, node users, node profiles, toponodes, topolink interfaces and
// topolinks.
func Manifests(topo *topology.Topology, skipEdge bool) ([]string, error) {
	ns, err := topo.NamespaceManifest(kube.SystemNamespace, namespaceDescription(topo))
	if err != nil {
		return nil, err
	}
	docs := []string{ns}
	for _, g := range groupArtifacts(topo) {
		doc, err := g.nodes[0].ArtifactManifest(kube.SystemNamespace, g.info)
		if err != nil {
			return nil, util.NewNodeError(g.nodes[0].Name(), "artifact", err)
		}
		if doc != "" {
			docs = append(docs, doc)
		}
	}

	for _, render := range []func() (string, error){
		topo.InitManifest,
		topo.SecurityProfileManifest,
		topo.NodeUserGroupManifest,
	} {
		doc, err := render()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	for _, render := range []func() ([]string, error){
		topo.NodeUserManifests,
		topo.NodeProfiles,
		topo.TopoNodes,
		func() ([]string, error) { return topo.TopolinkInterfaces(skipEdge) },
		func() ([]string, error) { return topo.TopoLinks(skipEdge) },
	} {
		out, err := render()
		if err != nil {
			return nil, err
		}
		docs = append(docs, out...)
	}
	return docs, nil
}

// Generate renders the manifests of a topology file without contacting EDA
// or the cluster.
func Generate(opts GenerateOptions) error {
	topo, err := topology.ParseFile(opts.TopologyFile, topology.Options{Credentials: opts.Credentials})
	if err != nil {
		return err
	}
	docs, err := Manifests(topo, opts.SkipEdgeInterfaces)
	if err != nil {
		return err
	}

	if opts.Separate {
		dir := opts.Output
		if dir == "" {
			dir = topo.Namespace() + "-crs"
		}
		return writeSeparate(dir, docs)
	}

	combined := joinDocuments(docs)
	if opts.Output == "" {
		w := opts.Out
		if w == nil {
			w = os.Stdout
		}
		_, err := io.WriteString(w, combined)
		return err
	}
	if err := os.WriteFile(opts.Output, []byte(combined), 0644); err != nil {
		return fmt.Errorf("write %s: %w", opts.Output, err)
	}
	util.Infof("Wrote %d manifests to %s", len(docs), opts.Output)
	return nil
}

func joinDocuments(docs []string) string {
	var b strings.Builder
	for idx, doc := range docs {
		if idx > 0 {
			b.WriteString("---\n")
		}
		b.WriteString(strings.TrimRight(doc, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// writeSeparate writes each manifest to its own file named after its
// position, kind and name.
func writeSeparate(dir string, docs []string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for idx, doc := range docs {
		obj, err := kube.Decode(doc)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("%02d-%s-%s.yaml", idx+1, strings.ToLower(obj.GetKind()), obj.GetName())
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		util.Debugf("wrote %s", path)
	}
	util.Infof("Wrote %d manifests to %s", len(docs), dir)
	return nil
}
