package integrate

import (
	"context"

	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/topology"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// Remover deletes an integrated topology from EDA by deleting its
// namespace, which takes every resource created in it along.
type Remover struct {
	eda EDA

	Credentials config.Credentials
}

// NewRemover returns a Remover using the given EDA client.
func NewRemover(e EDA) *Remover {
	return &Remover{eda: e, Credentials: config.DefaultCredentials()}
}

// Run parses the topology file and removes the topology.
func (r *Remover) Run(ctx context.Context, topologyFile string) error {
	topo, err := topology.ParseFile(topologyFile, topology.Options{Credentials: r.Credentials})
	if err != nil {
		return err
	}
	return r.Remove(ctx, topo)
}

// Remove deletes the EDA Namespace of topo in a single transaction.
func (r *Remover) Remove(ctx context.Context, topo *topology.Topology) error {
	util.Step("Running pre-checks")
	if err := Prechecks(ctx, r.eda); err != nil {
		return err
	}

	util.Step("Removing namespace")
	ns := topo.Namespace()
	util.Infof("%sRemoving namespace %s", util.SubStep, ns)
	r.eda.AddDeleteToTransaction("", "Namespace", ns, "", "")
	if _, err := r.eda.CommitTransaction(ctx, LabelRemove); err != nil {
		return err
	}

	util.Info("Done!")
	return nil
}
