// Package kube applies EDA resources and reads supporting objects through
// the Kubernetes API of the cluster hosting EDA.
package kube

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/yaml"

	"github.com/eda-labs/clab-connector/pkg/tmpl"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// SystemNamespace hosts EDA's own resources.
const SystemNamespace = "eda-system"

// Well-known resources
var (
	NamespaceGVR    = schema.GroupVersionResource{Version: "v1", Resource: "namespaces"}
	SecretGVR       = schema.GroupVersionResource{Version: "v1", Resource: "secrets"}
	NodeGVR         = schema.GroupVersionResource{Version: "v1", Resource: "nodes"}
	EDANamespaceGVR = schema.GroupVersionResource{Group: "core.eda.nokia.com", Version: "v1", Resource: "namespaces"}
	ArtifactGVR     = schema.GroupVersionResource{Group: "artifacts.eda.nokia.com", Version: "v1", Resource: "artifacts"}
)

// pollInterval is how often WaitForNamespace re-reads the namespace.
var pollInterval = 2 * time.Second

// Client wraps a dynamic Kubernetes client.
type Client struct {
	dyn dynamic.Interface
}

// New wraps an existing dynamic client.
func New(dyn dynamic.Interface) *Client {
	return &Client{dyn: dyn}
}

// NewFromKubeconfig builds a client from the kubeconfig at path, or from the
// default loading rules ($KUBECONFIG, ~/.kube/config) when path is empty.
func NewFromKubeconfig(path string) (*Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if path != "" {
		rules.ExplicitPath = path
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create kubernetes client: %w", err)
	}
	return New(dyn), nil
}

// IsAlreadyExists reports whether err means the object was already present.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, util.ErrAlreadyExists) || apierrors.IsAlreadyExists(err)
}

// Decode parses a YAML manifest into an unstructured object.
func Decode(manifest string) (*unstructured.Unstructured, error) {
	var obj map[string]interface{}
	if err := yaml.Unmarshal([]byte(manifest), &obj); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	u := &unstructured.Unstructured{Object: obj}
	if u.GetKind() == "" || u.GetAPIVersion() == "" {
		return nil, fmt.Errorf("parse manifest: missing apiVersion or kind")
	}
	return u, nil
}

// resourceFor guesses the plural resource of obj's kind. EDA CRDs follow
// the regular lower-case plural convention.
func resourceFor(obj *unstructured.Unstructured) schema.GroupVersionResource {
	gvr, _ := meta.UnsafeGuessKindToResource(obj.GroupVersionKind())
	return gvr
}

// ApplyManifest creates the object described by manifest in namespace.
// An existing object yields an error for which IsAlreadyExists is true.
func (c *Client) ApplyManifest(ctx context.Context, manifest, namespace string) error {
	obj, err := Decode(manifest)
	if err != nil {
		return err
	}
	if namespace != "" {
		obj.SetNamespace(namespace)
	}
	gvr := resourceFor(obj)

	_, err = c.dyn.Resource(gvr).Namespace(obj.GetNamespace()).Create(ctx, obj, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("%s %s/%s: %w", obj.GetKind(), obj.GetNamespace(), obj.GetName(), util.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("apply %s %s/%s: %w", obj.GetKind(), obj.GetNamespace(), obj.GetName(), err)
	}
	util.Debugf("applied %s %s/%s", obj.GetKind(), obj.GetNamespace(), obj.GetName())
	return nil
}

// BootstrapNamespace registers ns with EDA by creating its Namespace
// resource in the system namespace. An existing registration is accepted.
func (c *Client) BootstrapNamespace(ctx context.Context, ns string) error {
	doc, err := tmpl.Render(tmpl.Namespace, tmpl.NamespaceData{
		Name:            ns,
		SystemNamespace: SystemNamespace,
		Description:     "",
	})
	if err != nil {
		return err
	}
	err = c.ApplyManifest(ctx, doc, SystemNamespace)
	if IsAlreadyExists(err) {
		util.Infof("%sNamespace %s already bootstrapped", util.SubStep, ns)
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap namespace %s: %w", ns, err)
	}
	util.Infof("%sNamespace %s bootstrapped", util.SubStep, ns)
	return nil
}

// WaitForNamespace blocks until the Kubernetes namespace ns is Active or
// timeout elapses.
func (c *Client) WaitForNamespace(ctx context.Context, ns string, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, pollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		obj, err := c.dyn.Resource(NamespaceGVR).Get(ctx, ns, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		phase, _, _ := unstructured.NestedString(obj.Object, "status", "phase")
		return phase == "Active", nil
	})
	if err != nil {
		return fmt.Errorf("namespace %s not ready: %w", ns, err)
	}
	util.Infof("%sNamespace %s is active", util.SubStep, ns)
	return nil
}

// UpdateNamespaceDescription sets spec.description on ns's EDA Namespace.
func (c *Client) UpdateNamespaceDescription(ctx context.Context, ns, description string) error {
	patch, err := json.Marshal(map[string]interface{}{
		"spec": map[string]interface{}{"description": description},
	})
	if err != nil {
		return err
	}
	_, err = c.dyn.Resource(EDANamespaceGVR).Namespace(SystemNamespace).Patch(ctx, ns, types.MergePatchType, patch, metav1.PatchOptions{})
	if err != nil {
		return fmt.Errorf("update description of namespace %s: %w", ns, err)
	}
	return nil
}

// SecretData returns the decoded value of key in secret ns/name.
func (c *Client) SecretData(ctx context.Context, ns, name, key string) ([]byte, error) {
	obj, err := c.dyn.Resource(SecretGVR).Namespace(ns).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return nil, fmt.Errorf("secret %s/%s: %w", ns, name, util.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get secret %s/%s: %w", ns, name, err)
	}
	enc, found, _ := unstructured.NestedString(obj.Object, "data", key)
	if !found {
		return nil, fmt.Errorf("secret %s/%s key %s: %w", ns, name, key, util.ErrNotFound)
	}
	data, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, fmt.Errorf("decode secret %s/%s key %s: %w", ns, name, key, err)
	}
	return data, nil
}

// ArtifactText returns spec.textFile.content of Artifact ns/name.
func (c *Client) ArtifactText(ctx context.Context, ns, name string) (string, error) {
	obj, err := c.dyn.Resource(ArtifactGVR).Namespace(ns).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return "", fmt.Errorf("artifact %s/%s: %w", ns, name, util.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get artifact %s/%s: %w", ns, name, err)
	}
	content, _, _ := unstructured.NestedString(obj.Object, "spec", "textFile", "content")
	return content, nil
}

// Reachable lists at most one namespace to confirm the API server answers
// with the loaded credentials.
func (c *Client) Reachable(ctx context.Context) error {
	if _, err := c.dyn.Resource(NamespaceGVR).List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}
	return nil
}

// NodeReadiness counts the cluster nodes and those whose Ready condition is
// True.
func (c *Client) NodeReadiness(ctx context.Context) (ready, total int, err error) {
	list, err := c.dyn.Resource(NodeGVR).List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("list nodes: %w", err)
	}
	for _, n := range list.Items {
		total++
		conds, _, _ := unstructured.NestedSlice(n.Object, "status", "conditions")
		for _, raw := range conds {
			cond, _ := raw.(map[string]interface{})
			if cond["type"] == "Ready" && cond["status"] == "True" {
				ready++
				break
			}
		}
	}
	return ready, total, nil
}
