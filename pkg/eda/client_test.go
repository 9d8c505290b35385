package eda

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eda-labs/clab-connector/pkg/config"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// fakeEDA emulates the EDA API and its Keycloak proxy.
type fakeEDA struct {
	mu          sync.Mutex
	tokenTTL    time.Duration
	userLogins  int
	adminLogins int
	commits     []commitRequest
	validated   int
	failDetails bool
	rejectKind  string
}

func (f *fakeEDA) token(t *testing.T) string {
	claims := jwt.MapClaims{"exp": time.Now().Add(f.tokenTTL).Unix(), "sub": "admin"}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func (f *fakeEDA) server(t *testing.T) *httptest.Server {
	const kc = "/core/httpproxy/v1/keycloak"
	mux := http.NewServeMux()

	mux.HandleFunc(kc+"/realms/master/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("client_id") != "admin-cli" || r.Form.Get("password") != "kcpass" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.adminLogins++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"access_token": "admin-token"})
	})
	mux.HandleFunc(kc+"/admin/realms/eda/clients", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer admin-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`[{"id":"1111","clientId":"account"},{"id":"2222","clientId":"eda"}]`))
	})
	mux.HandleFunc(kc+"/admin/realms/eda/clients/2222/client-secret", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"secret","value":"s3cr3t"}`))
	})
	mux.HandleFunc(kc+"/realms/eda/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.Form.Get("client_secret") != "s3cr3t" || r.Form.Get("password") != "edapass" {
			http.Error(w, `{"error":"unauthorized_client"}`, http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		f.userLogins++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"access_token": f.token(t)})
	})

	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ey") {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("/core/about/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"UP"}`))
	})
	mux.HandleFunc("/core/about/version", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"eda":{"version":"25.4.1-12345"}}`))
	}))
	mux.HandleFunc("/core/transaction/v1/validate", authed(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.validated++
		reject := f.rejectKind != "" && strings.Contains(string(body), `"kind":"`+f.rejectKind+`"`)
		f.mu.Unlock()
		if reject {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":400,"message":"invalid"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("/core/transaction/v1", authed(func(w http.ResponseWriter, r *http.Request) {
		var req commitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.commits = append(f.commits, req)
		f.mu.Unlock()
		w.Write([]byte(`{"id":42}`))
	}))
	mux.HandleFunc("/core/transaction/v1/details/42", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("waitForComplete") != "true" || r.URL.Query().Get("failOnErrors") != "true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if f.failDetails {
			w.Write([]byte(`{"code":500,"message":"intent failed"}`))
			return
		}
		w.Write([]byte(`{"state":"complete","success":true}`))
	}))
	mux.HandleFunc("/apps/core.eda.nokia.com/v1/namespaces/clab-dc1/toponodes/leaf1", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":{"node-state":"Synced","npp-state":"Connected","version":"24.10.1"}}`))
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, f *fakeEDA) *Client {
	t.Helper()
	if f.tokenTTL == 0 {
		f.tokenTTL = time.Hour
	}
	srv := f.server(t)
	c, err := New(config.EDA{
		URL:        srv.URL + "/",
		User:       "admin",
		Password:   "edapass",
		KCUser:     "admin",
		KCPassword: "kcpass",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

const leafManifest = `apiVersion: core.eda.nokia.com/v1
kind: TopoNode
metadata:
  name: leaf1
  namespace: clab-dc1
spec:
  version: "24.10.1"
`

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "eda.example.com", "ftp://eda", "https://"} {
		if _, err := New(config.EDA{URL: u}); err == nil {
			t.Errorf("New(%q) should fail", u)
		}
	}
}

func TestIsUp(t *testing.T) {
	c := newTestClient(t, &fakeEDA{})
	if !c.IsUp(context.Background()) {
		t.Error("IsUp() = false, want true")
	}

	down, _ := New(config.EDA{URL: "http://127.0.0.1:1"})
	if down.IsUp(context.Background()) {
		t.Error("IsUp() on closed port = true")
	}
}

func TestLoginFetchesClientSecret(t *testing.T) {
	f := &fakeEDA{}
	c := newTestClient(t, f)

	v, err := c.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error: %v", err)
	}
	if v != "25.4.1" {
		t.Errorf("Version() = %q, want suffix dropped", v)
	}
	if f.adminLogins != 1 || f.userLogins != 1 {
		t.Errorf("adminLogins = %d, userLogins = %d", f.adminLogins, f.userLogins)
	}

	// Cached version and token: no further logins.
	if !c.IsAuthenticated(context.Background()) {
		t.Error("IsAuthenticated() = false")
	}
	if f.userLogins != 1 {
		t.Errorf("userLogins = %d after cached call", f.userLogins)
	}
}

func TestLoginWithKnownSecret(t *testing.T) {
	f := &fakeEDA{tokenTTL: time.Hour}
	srv := f.server(t)
	c, _ := New(config.EDA{URL: srv.URL, User: "admin", Password: "edapass", KCSecret: "s3cr3t"})
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if f.adminLogins != 0 {
		t.Error("known client secret should skip the admin realm")
	}
}

func TestBadCredentials(t *testing.T) {
	f := &fakeEDA{tokenTTL: time.Hour}
	srv := f.server(t)
	c, _ := New(config.EDA{URL: srv.URL, User: "admin", Password: "wrong", KCUser: "admin", KCPassword: "kcpass"})
	if c.IsAuthenticated(context.Background()) {
		t.Error("IsAuthenticated() with bad password = true")
	}
	err := c.Login(context.Background())
	if !errors.Is(err, util.ErrConnection) {
		t.Errorf("Login() error = %v, want ErrConnection", err)
	}
}

func TestTokenRefresh(t *testing.T) {
	f := &fakeEDA{tokenTTL: 10 * time.Second}
	c := newTestClient(t, f)
	ctx := context.Background()

	if _, _, err := c.Get(ctx, "core/about/version"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Get(ctx, "core/about/version"); err != nil {
		t.Fatal(err)
	}
	if f.userLogins != 2 {
		t.Errorf("userLogins = %d, want a fresh login for a token inside the refresh margin", f.userLogins)
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("x"))
	if got := tokenExpiry(tok); !got.Equal(exp) {
		t.Errorf("tokenExpiry() = %v, want %v", got, exp)
	}
	if got := tokenExpiry("not-a-jwt"); !got.IsZero() {
		t.Errorf("tokenExpiry(garbage) = %v, want zero", got)
	}
}

func TestTransaction(t *testing.T) {
	f := &fakeEDA{}
	c := newTestClient(t, f)
	ctx := context.Background()

	item, err := c.AddReplaceToTransaction(leafManifest)
	if err != nil {
		t.Fatalf("AddReplaceToTransaction() error: %v", err)
	}
	if item.Type.Replace == nil || item.Type.Replace.Value["kind"] != "TopoNode" {
		t.Fatalf("item = %+v", item)
	}
	if item.Name() != "replace TopoNode/leaf1" {
		t.Errorf("Name() = %q", item.Name())
	}

	ok, err := c.IsTransactionItemValid(ctx, item)
	if err != nil || !ok {
		t.Fatalf("IsTransactionItemValid() = %v, %v", ok, err)
	}

	c.AddDeleteToTransaction("eda-system", "Namespace", "clab-dc1", "", "")
	if c.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", c.Pending())
	}

	id, err := c.CommitTransaction(ctx, "create nodes")
	if err != nil {
		t.Fatalf("CommitTransaction() error: %v", err)
	}
	if id != "42" {
		t.Errorf("id = %q", id)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d after commit", c.Pending())
	}

	if len(f.commits) != 1 {
		t.Fatalf("commits = %d", len(f.commits))
	}
	req := f.commits[0]
	if req.Description != "create nodes" || req.DryRun || !req.Retain || req.ResultType != "normal" {
		t.Errorf("commit request = %+v", req)
	}
	if len(req.CRs) != 2 {
		t.Fatalf("crs = %d", len(req.CRs))
	}
	del := req.CRs[1].Type.Delete
	if del == nil || del.GVK.Group != CoreGroup || del.GVK.Version != CoreVersion || del.Name != "clab-dc1" {
		t.Errorf("delete item = %+v", del)
	}
}

func TestValidationRejected(t *testing.T) {
	f := &fakeEDA{rejectKind: "TopoNode"}
	c := newTestClient(t, f)

	item, err := c.AddReplaceToTransaction(leafManifest)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := c.IsTransactionItemValid(context.Background(), item)
	if err != nil {
		t.Fatalf("IsTransactionItemValid() error: %v", err)
	}
	if ok {
		t.Error("IsTransactionItemValid() = true for rejected item")
	}
}

func TestCommitFailureKeepsPending(t *testing.T) {
	f := &fakeEDA{failDetails: true}
	c := newTestClient(t, f)

	if _, err := c.AddReplaceToTransaction(leafManifest); err != nil {
		t.Fatal(err)
	}
	_, err := c.CommitTransaction(context.Background(), "create nodes")
	if !errors.Is(err, util.ErrConnection) {
		t.Fatalf("CommitTransaction() error = %v, want ErrConnection", err)
	}
	if c.Pending() != 1 {
		t.Errorf("Pending() = %d, want items kept after failure", c.Pending())
	}
	c.Discard()
	if c.Pending() != 0 {
		t.Error("Discard() should drop pending items")
	}
}

func TestAddReplaceRejectsBadYAML(t *testing.T) {
	c, _ := New(config.EDA{URL: "https://eda.example.com"})
	for _, doc := range []string{"", "::: not yaml", "- a\n- b\n"} {
		if _, err := c.AddReplaceToTransaction(doc); err == nil {
			t.Errorf("AddReplaceToTransaction(%q) should fail", doc)
		}
	}
	if c.Pending() != 0 {
		t.Error("failed adds must not queue items")
	}
}

func TestTopoNodeStatus(t *testing.T) {
	c := newTestClient(t, &fakeEDA{})
	st, err := c.TopoNodeStatus(context.Background(), "clab-dc1", "leaf1")
	if err != nil {
		t.Fatalf("TopoNodeStatus() error: %v", err)
	}
	if !st.Synced() || st.Name != "leaf1" || st.Version != "24.10.1" {
		t.Errorf("status = %+v", st)
	}

	_, err = c.TopoNodeStatus(context.Background(), "clab-dc1", "missing")
	if !errors.Is(err, util.ErrNotFound) {
		t.Errorf("missing node error = %v, want ErrNotFound", err)
	}
}

func TestUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Write([]byte(`{"status":"UP"}`))
	}))
	defer srv.Close()

	c, _ := New(config.EDA{URL: srv.URL})
	c.IsUp(context.Background())
	if !strings.HasPrefix(ua, "clab-connector/") {
		t.Errorf("User-Agent = %q", ua)
	}
}
