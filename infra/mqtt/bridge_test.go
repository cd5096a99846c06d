package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/harborops/berthd/core/events"
	"github.com/harborops/berthd/core/model"
	"github.com/harborops/berthd/internal/eventbus"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0o644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0o644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs loaded")
	}
}

func TestLoadTLSConfigMissingFiles(t *testing.T) {
	cfg := Config{UseTLS: true}
	if _, err := cfg.LoadTLSConfig(); err == nil {
		t.Fatal("expected error without cert paths")
	}
}

func TestNewClientOptionsCredentials(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "berthd", Username: "u", Password: "p"}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("credentials not applied")
	}
	cfg.AuthMethod = "certificate"
	opts, err = NewClientOptions(cfg)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Username != "" {
		t.Fatal("certificate auth must not set a username")
	}
}

func TestBridgeForwardsByTopic(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	pub := NewMockPublisher()
	b := NewBridge(pub, TopicsConfig{
		Conflicts: "port/conflicts",
		Reopt:     "port/reopt",
	}, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	bus.Publish(events.ConflictEvent{OpenNow: 2, Severity: model.SeverityCritical})
	bus.Publish(events.ReoptEvent{Trigger: "conflict", State: "applied", Changes: 1})
	// no topic configured for suggestions: dropped silently
	bus.Publish(events.SuggestionEvent{VesselID: "v1", Count: 3})

	deadline := time.After(2 * time.Second)
	for len(pub.Published("port/conflicts")) == 0 || len(pub.Published("port/reopt")) == 0 {
		select {
		case <-deadline:
			t.Fatalf("events not forwarded: %v", pub.Messages)
		case <-time.After(10 * time.Millisecond):
		}
	}

	var got events.ConflictEvent
	if err := json.Unmarshal(pub.Published("port/conflicts")[0], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.OpenNow != 2 || got.Severity != model.SeverityCritical {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if len(pub.Published("")) != 0 {
		t.Fatal("unconfigured events must not publish anywhere")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop on cancel")
	}
}
