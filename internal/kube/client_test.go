package kube

import (
	"os"
	"path/filepath"
	"testing"
)

const testKubeconfig = `apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://primary.invalid:6443
  name: primary
- cluster:
    server: https://secondary.invalid:6443
  name: secondary
contexts:
- context:
    cluster: primary
    namespace: dev
    user: admin
  name: primary
- context:
    cluster: secondary
    namespace: staging
    user: admin
  name: secondary
current-context: primary
users:
- name: admin
  user:
    token: sekret
`

func writeKubeconfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(testKubeconfig), 0o600); err != nil {
		t.Fatalf("write kubeconfig: %v", err)
	}
	return path
}

func TestNewResolvesCurrentContext(t *testing.T) {
	client, err := New(writeKubeconfig(t), "", NewAPIRequestStats())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.Namespace != "dev" {
		t.Fatalf("namespace = %q, want %q", client.Namespace, "dev")
	}
	if client.RESTConfig.Host != "https://primary.invalid:6443" {
		t.Fatalf("host = %q", client.RESTConfig.Host)
	}
	if client.RESTConfig.QPS != 50 || client.RESTConfig.Burst != 100 {
		t.Fatalf("rate limits = %v/%v, want 50/100", client.RESTConfig.QPS, client.RESTConfig.Burst)
	}
	if client.RESTConfig.Timeout != 0 {
		t.Fatalf("client-wide timeout = %v, want none", client.RESTConfig.Timeout)
	}
	if client.RESTConfig.WrapTransport == nil {
		t.Fatalf("telemetry transport was not attached")
	}
}

func TestNewHonoursContextOverride(t *testing.T) {
	client, err := New(writeKubeconfig(t), "secondary", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.Namespace != "staging" {
		t.Fatalf("namespace = %q, want %q", client.Namespace, "staging")
	}
	if client.RESTConfig.Host != "https://secondary.invalid:6443" {
		t.Fatalf("host = %q", client.RESTConfig.Host)
	}
}

func TestNewRejectsMissingKubeconfig(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent"), "", nil); err == nil {
		t.Fatalf("expected an error for a missing kubeconfig")
	}
}
