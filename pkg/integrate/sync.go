package integrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/eda-labs/clab-connector/pkg/cli"
	"github.com/eda-labs/clab-connector/pkg/eda"
	"github.com/eda-labs/clab-connector/pkg/topology"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// Node sync states shown in the status table.
const (
	SyncReady   = "READY"
	SyncSyncing = "SYNCING"
	SyncPending = "PENDING"
	SyncError   = "ERROR"
	SyncUnknown = "UNKNOWN"
)

// NodeSync is the classified onboarding state of one TopoNode.
type NodeSync struct {
	Name   string
	State  string
	Detail string
}

// ClassifySync maps a TopoNode status, or the error reading it, to a sync
// state.
func ClassifySync(name string, st *eda.NodeStatus, err error) NodeSync {
	ns := NodeSync{Name: name, State: SyncUnknown}
	switch {
	case errors.Is(err, util.ErrNotFound):
		ns.State, ns.Detail = SyncPending, "TopoNode not found yet"
		return ns
	case err != nil:
		ns.State, ns.Detail = SyncError, err.Error()
		return ns
	case st == nil:
		ns.Detail = "No data available"
		return ns
	}

	if st.Synced() {
		ns.State, ns.Detail = SyncReady, "Node synced successfully"
		return ns
	}
	switch st.NodeState {
	case "Synced":
		ns.State, ns.Detail = SyncSyncing, "NPP "+st.NPPState
	case "Committing", "RetryingCommit":
		ns.State, ns.Detail = SyncSyncing, "Configuration sync in progress"
	case "TryingToConnect", "WaitingForInitialCfg":
		ns.State, ns.Detail = SyncPending, "Waiting for sync to start"
	case "Standby":
		ns.State, ns.Detail = SyncPending, "Node in standby mode"
	case "NoIpAddress":
		ns.State, ns.Detail = SyncError, "No IP address available"
	case "":
		switch {
		case st.NPPState == "Connected":
			ns.State, ns.Detail = SyncSyncing, "NPP connected"
		case st.NPPState != "":
			ns.State, ns.Detail = SyncPending, "NPP "+st.NPPState
		default:
			ns.Detail = "Status unknown"
		}
	default:
		ns.State, ns.Detail = SyncPending, st.NodeState
	}
	return ns
}

// SyncChecker reads the onboarding state of TopoNodes in one namespace.
type SyncChecker struct {
	EDA       EDA
	Namespace string
	Interval  time.Duration
	Out       io.Writer
}

// Status reads and classifies the state of each named TopoNode once.
func (c *SyncChecker) Status(ctx context.Context, names []string) []NodeSync {
	out := make([]NodeSync, len(names))
	for idx, name := range names {
		st, err := c.EDA.TopoNodeStatus(ctx, c.Namespace, name)
		out[idx] = ClassifySync(name, st, err)
	}
	return out
}

// Wait polls the named TopoNodes until all are ready or timeout elapses,
// prints the last observed states and reports whether all nodes synced.
func (c *SyncChecker) Wait(ctx context.Context, names []string, timeout time.Duration) bool {
	if len(names) == 0 {
		return true
	}
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	util.Infof("%sWaiting for %d nodes to be ready (timeout: %s)", util.SubStep, len(names), timeout)

	start := time.Now()
	deadline := start.Add(timeout)
	for {
		statuses := c.Status(ctx, names)
		ready := countState(statuses, SyncReady)
		util.Debugf("%d/%d nodes ready after %s", ready, len(names), time.Since(start).Round(time.Second))
		if ready == len(names) {
			c.Print(statuses)
			util.Infof("%sAll nodes are ready!", util.SubStep)
			return true
		}
		if time.Now().Add(interval).After(deadline) {
			c.Print(statuses)
			util.Warnf("%sNot all nodes synced within %s", util.SubStep, timeout)
			return false
		}
		select {
		case <-ctx.Done():
			c.Print(statuses)
			util.Warnf("%sNode sync check interrupted: %v", util.SubStep, ctx.Err())
			return false
		case <-time.After(interval):
		}
	}
}

// Print writes a status table and a summary line.
func (c *SyncChecker) Print(statuses []NodeSync) {
	w := c.Out
	if w == nil {
		w = os.Stdout
	}
	t := cli.NewTableTo(w, "NODE", "STATUS", "DETAILS")
	for _, s := range statuses {
		t.Row(s.Name, colorState(s.State), s.Detail)
	}
	t.Flush()
	fmt.Fprintf(w, "Summary: %d/%d ready, %d syncing, %d pending, %d errors\n",
		countState(statuses, SyncReady), len(statuses), countState(statuses, SyncSyncing),
		countState(statuses, SyncPending), countState(statuses, SyncError))
}

// AllReady reports whether every status is ready.
func AllReady(statuses []NodeSync) bool {
	return countState(statuses, SyncReady) == len(statuses)
}

func countState(statuses []NodeSync, state string) int {
	n := 0
	for _, s := range statuses {
		if s.State == state {
			n++
		}
	}
	return n
}

func colorState(state string) string {
	switch state {
	case SyncReady:
		return cli.Green(state)
	case SyncError:
		return cli.Red(state)
	}
	return cli.Yellow(state)
}

// NodeNames returns the TopoNode names of the EDA-managed nodes.
func NodeNames(topo *topology.Topology) []string {
	var names []string
	for _, n := range topo.EDANodes() {
		names = append(names, topology.EDAName(n))
	}
	return names
}

func (i *Integrator) checkSync(ctx context.Context, topo *topology.Topology, timeout time.Duration) {
	c := &SyncChecker{EDA: i.eda, Namespace: topo.Namespace(), Interval: i.SyncInterval, Out: i.Out}
	if !c.Wait(ctx, NodeNames(topo), timeout) {
		util.Warnf("%sThe topology is integrated; check the node status in EDA.", util.SubStep)
	}
}
