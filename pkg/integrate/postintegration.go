package integrate

import (
	"context"

	"github.com/eda-labs/clab-connector/pkg/topology"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// bootstrapPusher is implemented by nodes that can receive the gNMI
// discovery config over SSH.
type bootstrapPusher interface {
	PushBootstrapConfig(ctx context.Context) error
}

// postIntegration runs the device-side steps that follow the commits.
// SR OS preparation is best effort per node; an SR Linux bootstrap push
// failure aborts the run.
func (i *Integrator) postIntegration(ctx context.Context, topo *topology.Topology, opts Options) error {
	quiet := util.IsQuiet()
	for _, n := range topo.NodesOfKind(topology.KindSROS) {
		util.Infof("%sRunning SROS post-integration for node %s", util.SubStep, n.Name())
		target := SROSTarget{
			NodeName:  topology.EDAName(n),
			Namespace: topo.Namespace(),
			Version:   topology.NormalizeVersion(n.Version()),
			MgmtIP:    n.MgmtIP(),
			Username:  i.Credentials.SROSPostUsername,
			Password:  i.Credentials.SROSPostPassword,
			Quiet:     quiet,
		}
		if err := i.prepareSROS(ctx, target); err != nil {
			util.Errorf("SROS post-integration for %s failed: %v", n.Name(), err)
			continue
		}
		util.Infof("%sSROS post-integration for %s completed successfully", util.SubStep, n.Name())
	}

	if !opts.PushBootstrapConfig {
		return nil
	}
	for _, n := range topo.NodesOfKind(topology.KindSRL) {
		p, ok := n.(bootstrapPusher)
		if !ok {
			continue
		}
		util.Infof("%sPushing bootstrap config to %s", util.SubStep, n.Name())
		if err := p.PushBootstrapConfig(ctx); err != nil {
			return err
		}
	}
	return nil
}
