// Package health checks that the EDA API and the Kubernetes cluster hosting
// EDA are usable before a topology is integrated.
package health

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eda-labs/clab-connector/pkg/cli"
)

// Status represents the health of one component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
)

// Check names, in the order they run.
const (
	CheckEDAConnectivity = "EDA Connectivity"
	CheckEDAAuth         = "EDA Authentication"
	CheckEDAVersion      = "EDA Version"
	CheckK8sConnectivity = "Kubernetes Connectivity"
	CheckK8sCluster      = "Kubernetes Cluster"
)

// SupportedMajorVersions are the EDA release lines the connector is tested
// against. Other versions report degraded, not unhealthy.
var SupportedMajorVersions = []string{"24", "25", "26"}

// Result represents the result of a single check
type Result struct {
	Check    string        `json:"check"`
	Status   Status        `json:"status"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// Report contains all check results
type Report struct {
	Overall  Status        `json:"overall"`
	Results  []Result      `json:"results"`
	Duration time.Duration `json:"duration"`
}

// EDA is the part of the EDA API client the checks use.
type EDA interface {
	IsUp(ctx context.Context) bool
	IsAuthenticated(ctx context.Context) bool
	Version(ctx context.Context) (string, error)
}

// Cluster is the Kubernetes side of the checks.
type Cluster interface {
	Reachable(ctx context.Context) error
	NodeReadiness(ctx context.Context) (ready, total int, err error)
}

// Checker runs the EDA and Kubernetes checks.
type Checker struct {
	EDA EDA
	// Cluster may be nil when no kubeconfig could be loaded; ClusterErr
	// then says why.
	Cluster    Cluster
	ClusterErr error
	// SkipKubernetes leaves the Kubernetes checks out of the report.
	SkipKubernetes bool
}

type check struct {
	name string
	run  func(ctx context.Context) (Status, string)
}

func (c *Checker) checks() []check {
	checks := []check{
		{CheckEDAConnectivity, c.edaConnectivity},
		{CheckEDAAuth, c.edaAuth},
		{CheckEDAVersion, c.edaVersion},
	}
	if !c.SkipKubernetes {
		checks = append(checks,
			check{CheckK8sConnectivity, c.k8sConnectivity},
			check{CheckK8sCluster, c.k8sCluster},
		)
	}
	return checks
}

// Run executes every check and returns the report.
func (c *Checker) Run(ctx context.Context) *Report {
	start := time.Now()
	report := &Report{}
	for _, chk := range c.checks() {
		t := time.Now()
		status, msg := chk.run(ctx)
		report.Results = append(report.Results, Result{
			Check:    chk.name,
			Status:   status,
			Message:  msg,
			Duration: time.Since(t),
		})
	}
	report.Overall = Overall(report.Results)
	report.Duration = time.Since(start)
	return report
}

// Overall folds check results into one status: any unhealthy result makes
// the whole unhealthy, any degraded or unknown result makes it degraded.
func Overall(results []Result) Status {
	if len(results) == 0 {
		return StatusUnknown
	}
	overall := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusUnknown:
			overall = StatusDegraded
		}
	}
	return overall
}

func (c *Checker) edaConnectivity(ctx context.Context) (Status, string) {
	if !c.EDA.IsUp(ctx) {
		return StatusUnhealthy, "EDA is not reachable"
	}
	return StatusHealthy, "EDA is reachable"
}

func (c *Checker) edaAuth(ctx context.Context) (Status, string) {
	if !c.EDA.IsAuthenticated(ctx) {
		return StatusUnhealthy, "Authentication failed"
	}
	return StatusHealthy, "Authentication successful"
}

func (c *Checker) edaVersion(ctx context.Context) (Status, string) {
	v, err := c.EDA.Version(ctx)
	if err != nil {
		return StatusUnhealthy, fmt.Sprintf("Version check failed: %v", err)
	}
	if !SupportedVersion(v) {
		return StatusDegraded, fmt.Sprintf("Version %s may not be fully supported", v)
	}
	return StatusHealthy, fmt.Sprintf("Version %s is supported", v)
}

// SupportedVersion reports whether an EDA version such as "v25.4.1" belongs
// to one of SupportedMajorVersions.
func SupportedVersion(v string) bool {
	major, _, _ := strings.Cut(strings.TrimPrefix(v, "v"), ".")
	for _, m := range SupportedMajorVersions {
		if major == m {
			return true
		}
	}
	return false
}

func (c *Checker) k8sConnectivity(ctx context.Context) (Status, string) {
	if c.Cluster == nil {
		return StatusUnhealthy, noClusterMessage(c.ClusterErr)
	}
	if err := c.Cluster.Reachable(ctx); err != nil {
		return StatusUnhealthy, fmt.Sprintf("Kubernetes API unreachable: %v", err)
	}
	return StatusHealthy, "Kubernetes API is reachable"
}

func (c *Checker) k8sCluster(ctx context.Context) (Status, string) {
	if c.Cluster == nil {
		return StatusUnhealthy, noClusterMessage(c.ClusterErr)
	}
	ready, total, err := c.Cluster.NodeReadiness(ctx)
	switch {
	case err != nil:
		return StatusUnhealthy, fmt.Sprintf("Node check failed: %v", err)
	case ready == 0:
		return StatusUnhealthy, "No nodes are ready"
	case ready < total:
		return StatusDegraded, fmt.Sprintf("%d/%d nodes ready", ready, total)
	}
	return StatusHealthy, fmt.Sprintf("All %d nodes ready", total)
}

func noClusterMessage(err error) string {
	if err == nil {
		return "No Kubernetes config found"
	}
	return fmt.Sprintf("No Kubernetes config: %v", err)
}

// Print writes the results as a table followed by the overall status.
func (r *Report) Print(w io.Writer) {
	t := cli.NewTableTo(w, "COMPONENT", "STATUS", "MESSAGE")
	for _, res := range r.Results {
		t.Row(res.Check, FormatStatus(res.Status), res.Message)
	}
	t.Flush()
	fmt.Fprintf(w, "\nOverall Status: %s\n", FormatStatus(r.Overall))
}

// FormatStatus renders a status in upper case and color.
func FormatStatus(s Status) string {
	label := strings.ToUpper(string(s))
	switch s {
	case StatusHealthy:
		return cli.Green(label)
	case StatusDegraded:
		return cli.Yellow(label)
	case StatusUnhealthy:
		return cli.Red(label)
	default:
		return cli.Dim(label)
	}
}
