package eda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/eda-labs/clab-connector/pkg/util"
)

// NodeStatus is the onboarding state EDA reports for a TopoNode.
type NodeStatus struct {
	Name      string `json:"-"`
	NodeState string `json:"node-state"`
	NPPState  string `json:"npp-state"`
	Version   string `json:"version"`
	Platform  string `json:"platform"`
}

// Synced reports whether EDA has fully onboarded the node.
func (s *NodeStatus) Synced() bool {
	return s.NodeState == "Synced" && s.NPPState == "Connected"
}

// TopoNodeStatus reads the status of TopoNode name in namespace.
func (c *Client) TopoNodeStatus(ctx context.Context, namespace, name string) (*NodeStatus, error) {
	path := fmt.Sprintf("apps/%s/%s/namespaces/%s/toponodes/%s", CoreGroup, CoreVersion, namespace, name)
	status, body, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("toponode %s/%s: %w", namespace, name, util.ErrNotFound)
	}
	if status != http.StatusOK {
		return nil, util.NewConnectionError("toponode status", fmt.Sprintf("HTTP %d: %s", status, body))
	}

	var obj struct {
		Status NodeStatus `json:"status"`
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode toponode %s: %w", name, err)
	}
	obj.Status.Name = name
	return &obj.Status, nil
}
