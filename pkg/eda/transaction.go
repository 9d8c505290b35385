package eda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/eda-labs/clab-connector/pkg/util"
)

// Item is one entry of a transaction.
type Item struct {
	Type ItemType `json:"type"`
}

// ItemType holds exactly one operation.
type ItemType struct {
	Replace *ValueOp  `json:"replace,omitempty"`
	Delete  *DeleteOp `json:"delete,omitempty"`
}

// ValueOp carries a full resource.
type ValueOp struct {
	Value map[string]interface{} `json:"value"`
}

// DeleteOp identifies a resource to delete.
type DeleteOp struct {
	GVK       GVK    `json:"gvk"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// GVK is a group/version/kind triple.
type GVK struct {
	Group   string `json:"group"`
	Version string `json:"version"`
	Kind    string `json:"kind"`
}

// Name returns a short description of the item for log output.
func (i *Item) Name() string {
	switch {
	case i.Type.Delete != nil:
		return fmt.Sprintf("delete %s/%s", i.Type.Delete.GVK.Kind, i.Type.Delete.Name)
	case i.Type.Replace != nil:
		return "replace " + describe(i.Type.Replace.Value)
	}
	return "empty"
}

func describe(obj map[string]interface{}) string {
	kind, _ := obj["kind"].(string)
	var name string
	if md, ok := obj["metadata"].(map[string]interface{}); ok {
		name, _ = md["name"].(string)
	}
	return kind + "/" + name
}

func decodeManifest(manifest string) (map[string]interface{}, error) {
	var obj map[string]interface{}
	if err := yaml.Unmarshal([]byte(manifest), &obj); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("parse manifest: empty document")
	}
	return obj, nil
}

func (c *Client) add(item Item) *Item {
	c.mu.Lock()
	c.pending = append(c.pending, item)
	c.mu.Unlock()
	util.Debugf("Adding item to transaction: %s", item.Name())
	return &item
}

// AddReplaceToTransaction queues a create-or-replace of the YAML manifest.
func (c *Client) AddReplaceToTransaction(manifest string) (*Item, error) {
	obj, err := decodeManifest(manifest)
	if err != nil {
		return nil, err
	}
	return c.add(Item{Type: ItemType{Replace: &ValueOp{Value: obj}}}), nil
}

// AddDeleteToTransaction queues a delete. Empty group and version default to
// core.eda.nokia.com/v1.
func (c *Client) AddDeleteToTransaction(namespace, kind, name, group, version string) *Item {
	if group == "" {
		group = CoreGroup
	}
	if version == "" {
		version = CoreVersion
	}
	return c.add(Item{Type: ItemType{Delete: &DeleteOp{
		GVK:       GVK{Group: group, Version: version, Kind: kind},
		Name:      name,
		Namespace: namespace,
	}}})
}

// Pending returns the number of queued items.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// IsTransactionItemValid asks EDA to validate a single item. HTTP 204 means
// valid; any other status is reported as invalid with the server message
// logged.
func (c *Client) IsTransactionItemValid(ctx context.Context, item *Item) (bool, error) {
	util.Debugf("Validating transaction item %s", item.Name())
	status, body, err := c.Post(ctx, "core/transaction/v1/validate", item)
	if err != nil {
		return false, err
	}
	if status == http.StatusNoContent {
		return true, nil
	}
	util.Warnf("Validation error for %s: HTTP %d: %s", item.Name(), status, body)
	return false, nil
}

type commitRequest struct {
	Description string `json:"description"`
	DryRun      bool   `json:"dryrun"`
	ResultType  string `json:"resultType"`
	Retain      bool   `json:"retain"`
	CRs         []Item `json:"crs"`
}

// CommitTransaction submits every queued item as one transaction, waits for
// it to complete and returns its id. The queue is cleared only on success.
func (c *Client) CommitTransaction(ctx context.Context, description string) (string, error) {
	c.mu.Lock()
	items := append([]Item(nil), c.pending...)
	c.mu.Unlock()

	util.Infof("%sCommitting transaction: %s, %d items", util.SubStep, description, len(items))
	status, body, err := c.Post(ctx, "core/transaction/v1", commitRequest{
		Description: description,
		ResultType:  "normal",
		Retain:      true,
		CRs:         items,
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", util.NewConnectionError("transaction", fmt.Sprintf("HTTP %d: %s", status, body))
	}
	var created struct {
		ID interface{} `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", util.NewConnectionError("transaction", err.Error())
	}
	id := transactionID(created.ID)
	if id == "" {
		return "", util.NewConnectionError("transaction", fmt.Sprintf("no transaction id in response: %s", body))
	}

	util.Debugf("Waiting for transaction %s to complete", id)
	status, body, err = c.Get(ctx, "core/transaction/v1/details/"+id+"?waitForComplete=true&failOnErrors=true")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", util.NewConnectionError("transaction details", fmt.Sprintf("HTTP %d: %s", status, body))
	}
	var details map[string]interface{}
	if err := json.Unmarshal(body, &details); err != nil {
		return "", util.NewConnectionError("transaction details", err.Error())
	}
	if _, failed := details["code"]; failed {
		util.Errorf("Transaction %s failed: %s", id, body)
		return "", util.NewConnectionError("transaction commit", string(body))
	}

	c.mu.Lock()
	c.pending = c.pending[len(items):]
	c.mu.Unlock()
	util.Infof("%sTransaction %s committed", util.SubStep, id)
	return id, nil
}

// transactionID formats the id EDA returns, which is a JSON number.
func transactionID(v interface{}) string {
	switch id := v.(type) {
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case string:
		return id
	}
	return ""
}

// Discard drops all queued items without committing them.
func (c *Client) Discard() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}
