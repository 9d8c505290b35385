// Package integrate onboards a containerlab topology into an EDA cluster and
// removes it again.
//
// Integration is a fixed, linear sequence of steps. Resources are queued on
// the EDA transaction client, validated one by one as they are queued, and
// committed in labelled batches. Any failure aborts the run; nothing that was
// already committed is rolled back.
package integrate

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/device"
	"github.com/eda-labs/clab-connector/pkg/eda"
	"github.com/eda-labs/clab-connector/pkg/kube"
	"github.com/eda-labs/clab-connector/pkg/topology"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// Commit labels, in the order they are issued.
const (
	LabelInit       = "create init (bootstrap)"
	LabelUsers      = "create node users and groups"
	LabelProfiles   = "create node profiles"
	LabelNodes      = "create nodes"
	LabelInterfaces = "create topolink interfaces"
	LabelLinks      = "create topolinks"
	LabelRemove     = "remove namespace"
)

// Defaults
const (
	DefaultNamespaceTimeout = 60 * time.Second
	DefaultSyncTimeout      = 90 * time.Second
	DefaultSyncInterval     = 5 * time.Second
)

// EDA is the part of the EDA API client the workflows drive.
type EDA interface {
	IsUp(ctx context.Context) bool
	IsAuthenticated(ctx context.Context) bool
	AddReplaceToTransaction(manifest string) (*eda.Item, error)
	AddDeleteToTransaction(namespace, kind, name, group, version string) *eda.Item
	IsTransactionItemValid(ctx context.Context, item *eda.Item) (bool, error)
	CommitTransaction(ctx context.Context, description string) (string, error)
	Pending() int
	Discard()
	TopoNodeStatus(ctx context.Context, namespace, name string) (*eda.NodeStatus, error)
}

// Cluster is the Kubernetes side of the integration.
type Cluster interface {
	ApplyManifest(ctx context.Context, manifest, namespace string) error
	BootstrapNamespace(ctx context.Context, ns string) error
	WaitForNamespace(ctx context.Context, ns string, timeout time.Duration) error
	UpdateNamespaceDescription(ctx context.Context, ns, description string) error
	SecretData(ctx context.Context, ns, name, key string) ([]byte, error)
	ArtifactText(ctx context.Context, ns, name string) (string, error)
}

var (
	_ EDA     = (*eda.Client)(nil)
	_ Cluster = (*kube.Client)(nil)
)

// Options control one integration run.
type Options struct {
	TopologyFile string
	// SkipEdgeInterfaces omits edge links and the interfaces they need.
	SkipEdgeInterfaces bool
	// PushBootstrapConfig enables the gNMI discovery config push to
	// SR Linux nodes after the resources are committed.
	PushBootstrapConfig bool
	EnableSyncCheck     bool
	SyncTimeout         time.Duration
}

// Integrator creates the EDA resources describing a containerlab topology.
type Integrator struct {
	eda     EDA
	cluster Cluster

	Credentials config.Credentials
	// Dial opens SSH sessions to nodes. device.Dial when nil.
	Dial device.Dialer
	// Probe checks TCP reachability of nodes. device.ProbeTCP when nil.
	Probe device.Prober

	NamespaceTimeout time.Duration
	SyncInterval     time.Duration
	// Out receives the node status table.
	Out io.Writer

	prepareSROS func(ctx context.Context, target SROSTarget) error
}

// New returns an Integrator using the given EDA and cluster clients.
func New(e EDA, c Cluster) *Integrator {
	i := &Integrator{
		eda:              e,
		cluster:          c,
		Credentials:      config.DefaultCredentials(),
		NamespaceTimeout: DefaultNamespaceTimeout,
		SyncInterval:     DefaultSyncInterval,
		Out:              os.Stdout,
	}
	i.prepareSROS = i.PrepareSROSNode
	return i
}

func (i *Integrator) dialer() device.Dialer {
	if i.Dial != nil {
		return i.Dial
	}
	return device.Dial
}

func (i *Integrator) topologyOptions() topology.Options {
	return topology.Options{Credentials: i.Credentials, Dial: i.Dial, Probe: i.Probe}
}

// Run parses the topology file and integrates it.
func (i *Integrator) Run(ctx context.Context, opts Options) error {
	util.Info("Parsing topology for integration")
	topo, err := topology.ParseFile(opts.TopologyFile, i.topologyOptions())
	if err != nil {
		return err
	}
	return i.Integrate(ctx, topo, opts)
}

// Integrate creates every resource of an already parsed topology.
func (i *Integrator) Integrate(ctx context.Context, topo *topology.Topology, opts Options) error {
	util.Step("Running pre-checks")
	if err := Prechecks(ctx, i.eda); err != nil {
		return err
	}
	if err := topo.CheckConnectivity(ctx); err != nil {
		return err
	}

	util.Step("Creating namespace")
	if err := i.createNamespace(ctx, topo); err != nil {
		return err
	}

	util.Step("Creating artifacts")
	if err := i.createArtifacts(ctx, topo); err != nil {
		return err
	}

	util.Step("Creating init")
	doc, err := topo.InitManifest()
	if err != nil {
		return err
	}
	if err := i.queue(ctx, "init", doc); err != nil {
		return err
	}
	if err := i.commit(ctx, LabelInit); err != nil {
		return err
	}

	util.Step("Creating node security profile")
	if err := i.createSecurityProfile(ctx, topo); err != nil {
		return err
	}

	util.Step("Creating node users")
	if err := i.createNodeUsers(ctx, topo); err != nil {
		return err
	}
	if err := i.commit(ctx, LabelUsers); err != nil {
		return err
	}

	util.Step("Creating node profiles")
	profiles, err := topo.NodeProfiles()
	if err != nil {
		return err
	}
	if err := i.queue(ctx, "node profile", profiles...); err != nil {
		return err
	}
	if err := i.commit(ctx, LabelProfiles); err != nil {
		return err
	}

	util.Step("Onboarding nodes")
	nodes, err := topo.TopoNodes()
	if err != nil {
		return err
	}
	if err := i.queue(ctx, "toponode", nodes...); err != nil {
		return err
	}
	if err := i.commit(ctx, LabelNodes); err != nil {
		return err
	}

	util.Step("Adding topolink interfaces")
	ifaces, err := topo.TopolinkInterfaces(opts.SkipEdgeInterfaces)
	if err != nil {
		return err
	}
	if err := i.queue(ctx, "topolink interface", ifaces...); err != nil {
		return err
	}
	if err := i.commitIfPending(ctx, LabelInterfaces, "No topolink interfaces to create, skipping."); err != nil {
		return err
	}

	util.Step("Creating topolinks")
	links, err := topo.TopoLinks(opts.SkipEdgeInterfaces)
	if err != nil {
		return err
	}
	if err := i.queue(ctx, "topolink", links...); err != nil {
		return err
	}
	if err := i.commitIfPending(ctx, LabelLinks, "No topolinks to create, skipping."); err != nil {
		return err
	}

	util.Step("Running post-integration steps")
	if err := i.postIntegration(ctx, topo, opts); err != nil {
		return err
	}

	if opts.EnableSyncCheck {
		util.Step("Checking node synchronization")
		timeout := opts.SyncTimeout
		if timeout <= 0 {
			timeout = DefaultSyncTimeout
		}
		i.checkSync(ctx, topo, timeout)
	}

	util.Info("Done!")
	return nil
}

// Prechecks verifies that EDA answers and accepts the configured
// credentials.
func Prechecks(ctx context.Context, e EDA) error {
	if !e.IsUp(ctx) {
		return util.NewConnectionError("health check", "EDA not up or unreachable")
	}
	if !e.IsAuthenticated(ctx) {
		return util.NewConnectionError("login", "EDA credentials invalid")
	}
	return nil
}

func (i *Integrator) createNamespace(ctx context.Context, topo *topology.Topology) error {
	ns := topo.Namespace()
	if err := i.cluster.BootstrapNamespace(ctx, ns); err != nil {
		util.Errorf("Failed to create namespace '%s': %v", ns, err)
		return err
	}
	if err := i.cluster.WaitForNamespace(ctx, ns, i.NamespaceTimeout); err != nil {
		util.Errorf("Failed to create namespace '%s': %v", ns, err)
		return err
	}
	if err := i.cluster.UpdateNamespaceDescription(ctx, ns, namespaceDescription(topo)); err != nil {
		util.Warnf("%sCreated namespace '%s' but could not update its description: %v. Continuing with integration.", util.SubStep, ns, err)
	}
	return nil
}

func namespaceDescription(topo *topology.Topology) string {
	return fmt.Sprintf("Containerlab %s: %s", topo.Name, topo.FilePath)
}

func (i *Integrator) createSecurityProfile(ctx context.Context, topo *topology.Topology) error {
	doc, err := topo.SecurityProfileManifest()
	if err != nil {
		return err
	}
	err = i.cluster.ApplyManifest(ctx, doc, topo.Namespace())
	if kube.IsAlreadyExists(err) {
		util.Infof("%sNode security profile already exists, skipping.", util.SubStep)
		return nil
	}
	if err != nil {
		return fmt.Errorf("node security profile: %w", err)
	}
	util.Infof("%sNode security profile created.", util.SubStep)
	return nil
}

func (i *Integrator) createNodeUsers(ctx context.Context, topo *topology.Topology) error {
	group, err := topo.NodeUserGroupManifest()
	if err != nil {
		return err
	}
	if err := i.queue(ctx, "node user group", group); err != nil {
		return err
	}

	if len(topo.SSHPubKeys) == 0 {
		util.Warnf("%sNo SSH public keys found. Proceeding with an empty key list.", util.SubStep)
	}
	users, err := topo.NodeUserManifests()
	if err != nil {
		return err
	}
	return i.queue(ctx, "node user", users...)
}

// queue adds each manifest to the pending transaction and validates it
// before the next one is added. On failure the whole pending batch is
// discarded so no partial transaction is left behind.
func (i *Integrator) queue(ctx context.Context, what string, manifests ...string) error {
	for _, m := range manifests {
		item, err := i.eda.AddReplaceToTransaction(m)
		if err != nil {
			i.eda.Discard()
			return fmt.Errorf("%s: %w", what, err)
		}
		ok, err := i.eda.IsTransactionItemValid(ctx, item)
		if err != nil {
			i.eda.Discard()
			return err
		}
		if !ok {
			i.eda.Discard()
			return util.NewValidationError(fmt.Sprintf("%s %s rejected by EDA", what, item.Name()))
		}
	}
	return nil
}

func (i *Integrator) commit(ctx context.Context, label string) error {
	if _, err := i.eda.CommitTransaction(ctx, label); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	return nil
}

func (i *Integrator) commitIfPending(ctx context.Context, label, skipMsg string) error {
	if i.eda.Pending() == 0 {
		util.Infof("%s%s", util.SubStep, skipMsg)
		return nil
	}
	return i.commit(ctx, label)
}
