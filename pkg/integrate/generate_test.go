package integrate

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/eda-labs/clab-connector/internal/testutil"
	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/kube"
)

func manifestKinds(t *testing.T, docs []string) []string {
	t.Helper()
	var out []string
	for _, d := range docs {
		obj := testutil.Must(kube.Decode(d))(t)
		out = append(out, obj.GetKind())
	}
	return out
}

func TestManifests(t *testing.T) {
	h := newHarness(t)
	topo := h.parse(t, testutil.DC1())

	tests := []struct {
		name     string
		skipEdge bool
		want     map[string]int
		total    int
	}{
		{
			name: "all links",
			want: map[string]int{
				"Namespace": 1, "Artifact": 2, "Init": 1, "NodeSecurityProfile": 1,
				"NodeGroup": 1, "NodeUser": 2, "NodeProfile": 2, "TopoNode": 3,
				"Interface": 5, "TopoLink": 3,
			},
			total: 21,
		},
		{
			name:     "skip edge",
			skipEdge: true,
			want:     map[string]int{"Interface": 4, "TopoLink": 2},
			total:    19,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := Manifests(topo, tt.skipEdge)
			testutil.AssertNoError(t, err, "Manifests")
			if len(docs) != tt.total {
				t.Fatalf("manifests = %d, want %d", len(docs), tt.total)
			}
			counts := map[string]int{}
			for _, k := range manifestKinds(t, docs) {
				counts[k]++
			}
			for kind, n := range tt.want {
				if counts[kind] != n {
					t.Errorf("%s = %d, want %d", kind, counts[kind], n)
				}
			}
		})
	}
}

func TestManifestsOrder(t *testing.T) {
	h := newHarness(t)
	topo := h.parse(t, testutil.DC1())
	docs := testutil.Must(Manifests(topo, false))(t)

	// Collapse runs of the same kind.
	var order []string
	for _, k := range manifestKinds(t, docs) {
		if len(order) == 0 || order[len(order)-1] != k {
			order = append(order, k)
		}
	}
	want := "Namespace Artifact Init NodeSecurityProfile NodeGroup NodeUser NodeProfile TopoNode Interface TopoLink"
	if got := strings.Join(order, " "); got != want {
		t.Errorf("order = %s\nwant    %s", got, want)
	}
}

func TestGenerateCombined(t *testing.T) {
	path := testutil.DC1().WriteTopology(t)

	var out bytes.Buffer
	err := Generate(GenerateOptions{TopologyFile: path, Out: &out})
	testutil.AssertNoError(t, err, "Generate")
	if n := strings.Count(out.String(), "---\n"); n != 20 {
		t.Errorf("separators = %d, want 20", n)
	}
	if !strings.Contains(out.String(), "kind: TopoLink") {
		t.Error("output has no topolinks")
	}

	file := filepath.Join(t.TempDir(), "dc1.yaml")
	err = Generate(GenerateOptions{TopologyFile: path, Output: file})
	testutil.AssertNoError(t, err, "Generate to file")
	data := testutil.Must(os.ReadFile(file))(t)
	if string(data) != out.String() {
		t.Error("file output differs from stream output")
	}
}

func TestGenerateSeparate(t *testing.T) {
	path := testutil.DC1().WriteTopology(t)
	dir := filepath.Join(t.TempDir(), "crs")

	err := Generate(GenerateOptions{TopologyFile: path, Output: dir, Separate: true, SkipEdgeInterfaces: true})
	testutil.AssertNoError(t, err, "Generate")

	entries := testutil.Must(os.ReadDir(dir))(t)
	if len(entries) != 19 {
		t.Fatalf("files = %d, want 19", len(entries))
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if names[0] != "01-namespace-clab-dc1.yaml" {
		t.Errorf("first file = %s", names[0])
	}
	if names[1] != "02-artifact-clab-srlinux-24.10.1.yaml" {
		t.Errorf("second file = %s", names[1])
	}
	data := testutil.Must(os.ReadFile(filepath.Join(dir, names[0])))(t)
	if !strings.Contains(string(data), "Containerlab dc1: /home/user/lab/dc1.clab.yml") {
		t.Errorf("namespace manifest:\n%s", data)
	}
}

func TestGenerateCredentials(t *testing.T) {
	path := testutil.DC1().WriteTopology(t)
	tests := []struct {
		name  string
		creds config.Credentials
		want  []string
	}{
		{"defaults", config.Credentials{}, []string{"NokiaSrl1!", "NokiaSros1!"}},
		{"custom", func() config.Credentials {
			c := config.DefaultCredentials()
			c.SRLPassword = "srl-custom"
			c.SROSPassword = "sros-custom"
			return c
		}(), []string{"srl-custom", "sros-custom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := Generate(GenerateOptions{TopologyFile: path, Out: &out, Credentials: tt.creds})
			testutil.AssertNoError(t, err, "Generate")
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output lacks %q", w)
				}
			}
		})
	}
}

func TestGenerateMissingFile(t *testing.T) {
	err := Generate(GenerateOptions{TopologyFile: filepath.Join(t.TempDir(), "nope.json")})
	testutil.AssertError(t, err, "Generate")
}

func TestJoinDocuments(t *testing.T) {
	got := joinDocuments([]string{"a: 1\n\n", "b: 2"})
	if got != "a: 1\n---\nb: 2\n" {
		t.Errorf("joinDocuments() = %q", got)
	}
}
